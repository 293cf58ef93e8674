package normalisers

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// extensionTypes maps file extensions to the MIME types the normalisers
// register. It is consulted before the system MIME table, which is missing
// or wrong for several of these on common platforms.
var extensionTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".json":     "application/json",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".xml":      "application/xml",
}

// Registry dispatches raw documents to the highest-priority normaliser
// registered for their MIME type.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a normaliser. Normalisers of equal priority keep
// registration order.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, n)
	slices.SortStableFunc(r.normalisers, func(a, b driven.Normaliser) int {
		return b.Priority() - a.Priority()
	})
}

// Normalise resolves raw's MIME type and runs the best matching normaliser.
// The normaliser receives a copy of raw carrying the resolved type.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	resolved := *raw
	resolved.MIMEType = ResolveMIMEType(raw)

	n := r.lookup(resolved.MIMEType)
	if n == nil {
		return nil, fmt.Errorf("%s (%s): %w", displayName(raw), resolved.MIMEType, domain.ErrUnsupportedType)
	}
	return n.Normalise(ctx, &resolved)
}

// Supports reports whether a normaliser is registered for mimeType.
func (r *Registry) Supports(mimeType string) bool {
	return r.lookup(baseType(mimeType)) != nil
}

// SupportedMIMETypes returns every registered MIME type, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var types []string
	for _, n := range r.normalisers {
		types = append(types, n.SupportedMIMETypes()...)
	}
	slices.Sort(types)
	return slices.Compact(types)
}

func (r *Registry) lookup(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, n := range r.normalisers {
		if slices.Contains(n.SupportedMIMETypes(), mimeType) {
			return n
		}
	}
	return nil
}

// ResolveMIMEType returns raw's MIME type without parameters. When the type
// is unset or generic it is derived from the file extension of raw's name
// or URI, and failing that sniffed from the content.
func ResolveMIMEType(raw *domain.RawDocument) string {
	if t := baseType(raw.MIMEType); t != "" && t != "application/octet-stream" {
		return t
	}

	for _, name := range []string{raw.Name, raw.URI} {
		if t := TypeByExtension(filepath.Ext(name)); t != "" {
			return t
		}
	}

	if len(raw.Content) == 0 {
		return "application/octet-stream"
	}
	return baseType(http.DetectContentType(raw.Content))
}

// TypeByExtension returns the MIME type for ext (with leading dot), or ""
// when it is unknown.
func TypeByExtension(ext string) string {
	if ext == "" {
		return ""
	}
	ext = strings.ToLower(ext)
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return baseType(mime.TypeByExtension(ext))
}

func baseType(t string) string {
	if t == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(t); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(t))
}

func displayName(raw *domain.RawDocument) string {
	switch {
	case raw.Name != "":
		return raw.Name
	case raw.URI != "":
		return raw.URI
	default:
		return "document"
	}
}
