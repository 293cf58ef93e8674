// Package documents provides the indexed documents view for the TUI.
package documents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// errNoService is reported when the view has no document service.
var errNoService = fmt.Errorf("document service not available")

// View is the documents list view.
type View struct {
	styles          *styles.Styles
	keymap          *keymap.KeyMap
	documentService driving.DocumentService
	ctx             context.Context

	documents     []domain.Document
	details       *driving.DocumentDetails
	selected      int
	scrollOffset  int
	width         int
	height        int
	loading       bool
	confirmDelete bool
	err           error
}

// NewView creates a new documents view.
func NewView(s *styles.Styles, documentService driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		keymap:          keymap.DefaultKeyMap(),
		documentService: documentService,
		ctx:             context.Background(),
		documents:       []domain.Document{},
		width:           80,
		height:          24,
	}
}

// WithContext sets the context service calls are made with.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the documents.
func (v *View) Init() tea.Cmd {
	return v.Load()
}

// Load returns a command that loads every stored document.
func (v *View) Load() tea.Cmd {
	v.loading = true
	svc, ctx := v.documentService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentsLoaded{Err: errNoService}
		}
		docs, err := svc.List(ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.confirmDelete {
			return v.handleConfirmKeyMsg(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.documents = sortByName(msg.Documents)
		if v.selected >= len(v.documents) {
			v.selected = max(len(v.documents)-1, 0)
		}
		v.adjustScroll()
		return v, nil

	case messages.DocumentDetailsLoaded:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.details = msg.Details
		return v, nil

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		if v.details != nil && v.details.ID == msg.DocumentID {
			v.details = nil
		}
		return v, v.Load()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses in list mode.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.details = nil
			v.adjustScroll()
		}
	case keymap.Matches(k, v.keymap.Down):
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.details = nil
			v.adjustScroll()
		}
	case keymap.Matches(k, v.keymap.Select):
		if doc := v.SelectedDocument(); doc != nil {
			return v, v.loadDetails(doc.ID)
		}
	case keymap.Matches(k, v.keymap.Delete):
		if v.SelectedDocument() != nil {
			v.confirmDelete = true
		}
	case keymap.Matches(k, v.keymap.Reload):
		v.details = nil
		return v, v.Load()
	case keymap.Matches(k, v.keymap.Back):
		if v.details != nil {
			v.details = nil
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewChat}
		}
	}

	return v, nil
}

// handleConfirmKeyMsg deletes the selected document on y and cancels on
// anything else.
func (v *View) handleConfirmKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	v.confirmDelete = false
	if msg.String() != "y" && msg.String() != "Y" {
		return v, nil
	}
	doc := v.SelectedDocument()
	if doc == nil {
		return v, nil
	}
	return v, v.deleteDocument(doc.ID)
}

func (v *View) loadDetails(docID string) tea.Cmd {
	svc, ctx := v.documentService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: errNoService}
		}
		details, err := svc.GetDetails(ctx, docID)
		return messages.DocumentDetailsLoaded{DocumentID: docID, Details: details, Err: err}
	}
}

func (v *View) deleteDocument(docID string) tea.Cmd {
	svc, ctx := v.documentService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentDeleted{DocumentID: docID, Err: errNoService}
		}
		return messages.DocumentDeleted{DocumentID: docID, Err: svc.Delete(ctx, docID)}
	}
}

func sortByName(docs []domain.Document) []domain.Document {
	out := make([]domain.Document, len(docs))
	copy(out, docs)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// adjustScroll adjusts the scroll offset to keep the selected item visible.
func (v *View) adjustScroll() {
	visibleItems := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visibleItems {
		v.scrollOffset = v.selected - visibleItems + 1
	}
}

// visibleItemCount returns the number of items that can be displayed.
func (v *View) visibleItemCount() int {
	// title, help and the details pane
	reserved := 8
	if v.details != nil {
		reserved += 10
	}
	return max(v.height-reserved, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No documents indexed. Run 'docchat index <path>' to add some."))
	default:
		b.WriteString(v.renderList())
	}
	b.WriteString("\n\n")

	if v.details != nil {
		b.WriteString(v.renderDetails())
		b.WriteString("\n")
	}

	if v.confirmDelete {
		if doc := v.SelectedDocument(); doc != nil {
			b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Delete %s? [y/N]", doc.Name)))
			b.WriteString("\n")
		}
	}

	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) renderList() string {
	var b strings.Builder
	visibleItems := v.visibleItemCount()
	for i := v.scrollOffset; i < len(v.documents) && i < v.scrollOffset+visibleItems; i++ {
		b.WriteString(v.renderDocument(i, &v.documents[i]))
		b.WriteString("\n")
	}

	if len(v.documents) > visibleItems {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1,
			min(v.scrollOffset+visibleItems, len(v.documents)),
			len(v.documents))))
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderDocument renders a single document line.
func (v *View) renderDocument(index int, doc *domain.Document) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	name := doc.Name
	if name == "" {
		name = doc.ID
	}
	maxNameLen := max(v.width/2-4, 10)
	if r := []rune(name); len(r) > maxNameLen {
		name = string(r[:maxNameLen-3]) + "..."
	}

	kind := doc.Kind
	if kind == "" {
		kind = domain.DocumentKindText
	}
	info := fmt.Sprintf("%-7s %s", kind, formatSize(doc.Size))

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxNameLen, name, info))
	}
	return v.styles.Normal.Render(indicator) +
		v.styles.Normal.Render(fmt.Sprintf("%-*s  ", maxNameLen, name)) +
		v.styles.Muted.Render(info)
}

// renderDetails renders the metadata of the selected document.
func (v *View) renderDetails() string {
	d := v.details
	var b strings.Builder

	b.WriteString(v.styles.Subtitle.Render(d.Name))
	b.WriteString("\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  %-10s", label)))
		b.WriteString(v.styles.Normal.Render(value))
		b.WriteString("\n")
	}

	row("ID", d.ID)
	row("Kind", d.Kind.String())
	row("URI", d.URI)
	row("Type", d.MIMEType)
	row("Size", formatSize(d.Size))
	row("Chunks", fmt.Sprintf("%d", d.ChunkCount))
	if len(d.Columns) > 0 {
		row("Columns", strings.Join(d.Columns, ", "))
		row("Rows", fmt.Sprintf("%d", d.RowCount))
	}
	if !d.UpdatedAt.IsZero() {
		row("Updated", d.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}

	return b.String()
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] navigate  [enter] details  [d] delete  [r] reload  [esc] back")
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.adjustScroll()
}

// Documents returns the current list of documents.
func (v *View) Documents() []domain.Document {
	return v.documents
}

// SelectedIndex returns the currently selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the currently selected document.
func (v *View) SelectedDocument() *domain.Document {
	if v.selected < len(v.documents) {
		return &v.documents[v.selected]
	}
	return nil
}

// Details returns the loaded details of the selected document, if any.
func (v *View) Details() *driving.DocumentDetails {
	return v.details
}

// ConfirmingDelete returns true while a delete awaits confirmation.
func (v *View) ConfirmingDelete() bool {
	return v.confirmDelete
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
