// Package filesystem reads documents from local directories and watches
// them for changes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/normalisers"
)

// MaxFileSize is the largest file the connector reads.
const MaxFileSize = 64 << 20

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("connector closed")

// codeTypes covers source extensions missing from the MIME tables.
var codeTypes = map[string]string{
	".go":   "text/x-go",
	".py":   "text/x-python",
	".rs":   "text/x-rust",
	".java": "text/x-java",
	".c":    "text/x-c",
	".h":    "text/x-c",
	".cpp":  "text/x-c++",
	".rb":   "text/x-ruby",
	".sh":   "text/x-shellscript",
	".bash": "text/x-shellscript",
	".sql":  "text/x-sql",
}

// Ensure Connector implements the interface.
var _ driven.DocumentSource = (*Connector)(nil)

// Connector reads files below a root path. The root may also be a single
// file.
type Connector struct {
	rootPath string

	mu       sync.Mutex
	watchers []*fsnotify.Watcher
	closed   bool
}

// New creates a connector for rootPath. file:// URIs are accepted.
func New(rootPath string) *Connector {
	return &Connector{rootPath: LocalPath(rootPath)}
}

// LocalPath converts a file:// URI to a local path. Other values are
// returned unchanged.
func LocalPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// DocumentID returns the stable document ID for a file path, so that
// re-reading a file replaces its earlier upload.
func DocumentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String()
}

// Root returns the root path.
func (c *Connector) Root() string {
	return c.rootPath
}

// Walk emits every visible regular file under the root. Hidden files and
// directories are skipped. Read errors are sent on the error channel and
// the walk continues.
func (c *Connector) Walk(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		sendErr := func(err error) {
			select {
			case errs <- err:
			case <-ctx.Done():
			}
		}
		send := func(path string) error {
			doc, err := c.readFile(path)
			if err != nil {
				sendErr(err)
				return nil
			}
			select {
			case docs <- *doc:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		info, err := os.Stat(c.rootPath)
		if err != nil {
			sendErr(fmt.Errorf("path %s does not exist: %w", c.rootPath, err))
			return
		}
		if !info.IsDir() {
			_ = send(c.rootPath)
			return
		}

		err = filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				sendErr(fmt.Errorf("walk %s: %w", path, err))
				return nil
			}
			if c.hidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			return send(path)
		})
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			sendErr(err)
		}
	}()

	return docs, errs
}

// Watch emits a change for every created, written, removed or renamed
// visible file under the root. New subdirectories are watched as they
// appear. The channel closes when ctx is cancelled or the connector is
// closed.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	info, err := os.Stat(c.rootPath)
	if err != nil {
		return nil, fmt.Errorf("path %s does not exist: %w", c.rootPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", c.rootPath, domain.ErrInvalidInput)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := c.addTree(watcher, c.rootPath); err != nil {
		watcher.Close()
		return nil, err
	}
	c.watchers = append(c.watchers, watcher)

	changes := make(chan domain.RawDocumentChange)
	go c.run(ctx, watcher, changes)
	return changes, nil
}

func (c *Connector) run(ctx context.Context, w *fsnotify.Watcher, changes chan<- domain.RawDocumentChange) {
	defer close(changes)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !c.hidden(event.Name) {
					if err := c.addTree(w, event.Name); err != nil {
						logger.Warn("Cannot watch %s: %v", event.Name, err)
					}
				}
			}

			change := c.handleFsEvent(event)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("Watch error: %v", err)
		}
	}
}

// handleFsEvent converts an fsnotify event to a change, or nil when the
// event is not relevant.
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.RawDocumentChange {
	if c.hidden(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		path := absPath(event.Name)
		return &domain.RawDocumentChange{
			Type: domain.ChangeDeleted,
			Document: domain.RawDocument{
				ID:   DocumentID(path),
				Name: filepath.Base(path),
				URI:  path,
			},
		}

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		doc, err := c.readFile(event.Name)
		if err != nil {
			logger.Debug("Skipping %s: %v", event.Name, err)
			return nil
		}
		changeType := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = domain.ChangeCreated
		}
		return &domain.RawDocumentChange{Type: changeType, Document: *doc}
	}

	return nil
}

// Close stops every watcher. It is idempotent.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	var errs []error
	for _, w := range c.watchers {
		errs = append(errs, w.Close())
	}
	c.watchers = nil
	return errors.Join(errs...)
}

func (c *Connector) addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if c.hidden(path) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (c *Connector) readFile(path string) (*domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%s is larger than %d bytes: %w", path, MaxFileSize, domain.ErrInvalidInput)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	path = absPath(path)
	name := filepath.Base(path)
	return &domain.RawDocument{
		ID:       DocumentID(path),
		Name:     name,
		URI:      path,
		MIMEType: detectMIMEType(name),
		Content:  content,
		Metadata: map[string]any{
			"filename":  name,
			"extension": strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
			"modified":  info.ModTime().UTC().Format(time.RFC3339),
		},
	}, nil
}

// hidden reports whether path is hidden relative to the root.
func (c *Connector) hidden(path string) bool {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		rel = path
	}
	return isHidden(rel)
}

// isHidden reports whether any element of path starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func detectMIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "text/plain"
	}
	if t, ok := codeTypes[ext]; ok {
		return t
	}
	if t := normalisers.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
