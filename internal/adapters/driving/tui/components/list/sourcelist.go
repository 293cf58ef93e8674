// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// SourceList renders the sources cited by an answer, highest score first.
type SourceList struct {
	sources []domain.Source
	names   map[string]string
	styles  *styles.Styles
	width   int
	limit   int
}

// NewSourceList creates a new source list component.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SourceList{
		styles: s,
		width:  80,
		limit:  5,
	}
}

// View renders the source list, or "" when there are no sources.
func (l *SourceList) View() string {
	if len(l.sources) == 0 {
		return ""
	}

	n := min(len(l.sources), l.limit)
	lines := make([]string, 0, n*2+1)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(l.sources))))

	for i := range n {
		lines = append(lines, l.renderSource(i, &l.sources[i]))
	}
	if len(l.sources) > n {
		lines = append(lines, l.styles.Muted.Render(fmt.Sprintf("  ... %d more", len(l.sources)-n)))
	}

	return strings.Join(lines, "\n")
}

func (l *SourceList) renderSource(index int, src *domain.Source) string {
	name := l.names[src.DocumentID]
	if name == "" {
		name = src.DocumentID
	}

	title := fmt.Sprintf("  [%d] %s #%d", index+1, name, src.ChunkIndex)
	score := fmt.Sprintf("%.1f%%", src.Score*100)
	titleLine := l.styles.Normal.Render(title) + "  " + l.styles.Muted.Render(score)

	preview := truncate(strings.Join(strings.Fields(src.Content), " "), max(l.width-8, 20))
	return titleLine + "\n" + l.styles.Source.Render("    "+preview)
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// SetSources replaces the listed sources.
func (l *SourceList) SetSources(sources []domain.Source) {
	l.sources = sources
}

// Sources returns the listed sources.
func (l *SourceList) Sources() []domain.Source {
	return l.sources
}

// SetNames sets the document names shown in place of IDs.
func (l *SourceList) SetNames(names map[string]string) {
	l.names = names
}

// SetLimit sets how many sources are shown in full.
func (l *SourceList) SetLimit(n int) {
	if n > 0 {
		l.limit = n
	}
}

// SetWidth sets the component width.
func (l *SourceList) SetWidth(width int) {
	l.width = width
}

// Count returns the number of sources.
func (l *SourceList) Count() int {
	return len(l.sources)
}

// IsEmpty returns whether the list is empty.
func (l *SourceList) IsEmpty() bool {
	return len(l.sources) == 0
}
