// Package filesystem provides a connector that syncs a local directory
// tree.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/vecsync/internal/connectors/mimetype"
	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// watchDebounce coalesces a burst of filesystem events into a single
// change notification.
const watchDebounce = 500 * time.Millisecond

// Connector syncs a local directory tree. Paths are reported relative
// to the root with forward slashes. Content hashes come from the file
// bytes themselves; modification times are advisory only.
type Connector struct {
	sourceID string
	root     string
	filter   domain.PathFilter

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a filesystem connector for the source. The location may
// be a bare path or a file:// URI.
func New(source domain.Source) *Connector {
	return &Connector{
		sourceID: source.ID,
		root:     normaliseRoot(source.Location),
		filter:   domain.NewPathFilter(&source),
	}
}

// normaliseRoot strips a file:// scheme and cleans the path.
func normaliseRoot(location string) string {
	location = strings.TrimPrefix(location, "file://")
	return filepath.Clean(location)
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return domain.SourceTypeFilesystem
}

// SourceID returns the configured source ID.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsWatch:        true,
		SupportsHierarchy:    true,
		RequiresAuth:         false,
		SupportsValidation:   true,
		SupportsCursorReturn: false,
		ProvidesContentHash:  true,
	}
}

// Validate checks the root exists and is a readable directory.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrConnectorClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("root %s does not exist", c.root)
		}
		return fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", c.root)
	}
	if _, err := os.ReadDir(c.root); err != nil {
		return fmt.Errorf("read root: %w", err)
	}
	return nil
}

// Enumerate walks the tree and reports every admissible file. Local
// walks are cheap, so the cursor is ignored and every pass is full.
// Files that vanish or turn unreadable mid-walk are skipped; a broken
// subtree fails the listing, since its contents are unknown.
func (c *Connector) Enumerate(ctx context.Context, _ string) (<-chan domain.SourceDocument, <-chan error) {
	docsCh := make(chan domain.SourceDocument)
	errsCh := make(chan error, 1)

	go func() {
		defer close(docsCh)
		defer close(errsCh)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			errsCh <- domain.ErrConnectorClosed
			return
		}
		c.mu.Unlock()

		if _, err := os.Stat(c.root); err != nil {
			if os.IsNotExist(err) {
				errsCh <- fmt.Errorf("root %s does not exist", c.root)
			} else {
				errsCh <- fmt.Errorf("stat root: %w", err)
			}
			return
		}

		walkErr := filepath.WalkDir(c.root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if entry.IsDir() {
				if path != c.root && domain.SkipDir(entry.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(entry.Name(), ".") {
				return nil
			}
			if !entry.Type().IsRegular() {
				return nil
			}

			info, err := entry.Info()
			if err != nil {
				return nil
			}
			rel, err := filepath.Rel(c.root, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if !c.filter.Admit(rel, info.Size()) {
				return nil
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return nil
			}

			doc := domain.SourceDocument{
				SourceID:    c.sourceID,
				Path:        rel,
				ContentHash: domain.HashContent(content),
				MIMEType:    mimetype.Detect(rel),
				Size:        int64(len(content)),
				ModifiedAt:  info.ModTime().UTC(),
				Metadata: map[string]string{
					"connector_type": domain.SourceTypeFilesystem,
					"filename":       entry.Name(),
					"extension":      mimetype.Extension(rel),
				},
			}

			select {
			case docsCh <- doc:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if walkErr != nil {
			errsCh <- walkErr
			return
		}

		errsCh <- &driven.EnumerationComplete{}
	}()

	return docsCh, errsCh
}

// Fetch reads one document by its relative path.
func (c *Connector) Fetch(ctx context.Context, doc domain.SourceDocument) (domain.RawDocument, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.RawDocument{}, domain.ErrConnectorClosed
	}
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.RawDocument{}, err
	}

	full, err := c.resolve(doc.Path)
	if err != nil {
		return domain.RawDocument{}, err
	}

	content, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.RawDocument{}, fmt.Errorf("%w: %s", domain.ErrNotFound, doc.Path)
		}
		return domain.RawDocument{}, fmt.Errorf("read %s: %w", doc.Path, err)
	}

	fetched := domain.SourceDocument{
		SourceID:    c.sourceID,
		Path:        doc.Path,
		ContentHash: domain.HashContent(content),
		MIMEType:    mimetype.Detect(doc.Path),
		Size:        int64(len(content)),
		Metadata: map[string]string{
			"connector_type": domain.SourceTypeFilesystem,
			"filename":       filepath.Base(doc.Path),
			"extension":      mimetype.Extension(doc.Path),
		},
	}
	if info, err := os.Stat(full); err == nil {
		fetched.ModifiedAt = info.ModTime().UTC()
	}

	return domain.RawDocument{SourceDocument: fetched, Content: content}, nil
}

// resolve joins a relative path onto the root and rejects escapes.
func (c *Connector) resolve(rel string) (string, error) {
	full := filepath.Join(c.root, filepath.FromSlash(rel))
	if full != c.root && !strings.HasPrefix(full, c.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q escapes source root", domain.ErrInvalidInput, rel)
	}
	return full, nil
}

// Watch emits a debounced change notification whenever something under
// the root changes. Events are advisory: the scheduler marks the source
// pending and the next run re-enumerates, so coalescing a burst into
// one event loses nothing.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.WatchEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, domain.ErrConnectorClosed
	}
	if c.watcher != nil {
		return nil, fmt.Errorf("watch already active for %s", c.sourceID)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addRecursive(watcher, c.root); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	c.watcher = watcher

	events := make(chan domain.WatchEvent, 16)
	go c.watchLoop(ctx, watcher, events)
	return events, nil
}

// addRecursive registers every non-ignored directory under root.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && domain.SkipDir(entry.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (c *Connector) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- domain.WatchEvent) {
	defer close(out)

	var (
		debounce <-chan time.Time
		pending  domain.WatchEvent
	)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ignoreEvent(event) {
				continue
			}
			// New directories join the watch set so files created
			// inside them are seen too.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !domain.SkipDir(filepath.Base(event.Name)) {
						_ = watcher.Add(event.Name)
					}
					continue
				}
			}
			pending = c.toWatchEvent(event)
			if debounce == nil {
				debounce = time.After(watchDebounce)
			}

		case <-debounce:
			debounce = nil
			select {
			case out <- pending:
			default:
				// Receiver is behind; the next burst re-arms.
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// ignoreEvent drops permission-only changes and hidden files.
func ignoreEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return true
	}
	return strings.HasPrefix(filepath.Base(event.Name), ".")
}

func (c *Connector) toWatchEvent(event fsnotify.Event) domain.WatchEvent {
	eventType := domain.WatchChanged
	if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		eventType = domain.WatchRemoved
	}

	rel := event.Name
	if r, err := filepath.Rel(c.root, event.Name); err == nil {
		rel = filepath.ToSlash(r)
	}
	return domain.WatchEvent{
		Type:     eventType,
		SourceID: c.sourceID,
		Path:     rel,
	}
}

// Close releases the watcher, if any. Safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if c.watcher != nil {
		watcher := c.watcher
		c.watcher = nil
		if err := watcher.Close(); err != nil {
			return fmt.Errorf("close watcher: %w", err)
		}
	}
	return nil
}
