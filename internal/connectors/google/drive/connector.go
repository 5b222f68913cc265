// Package drive provides a connector that syncs a Google Drive folder.
// Native Google Workspace documents are exported to text formats;
// regular files are downloaded as-is.
package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	drivev3 "google.golang.org/api/drive/v3"

	"github.com/custodia-labs/vecsync/internal/connectors/google"
	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/ratelimit"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// pageSize is the number of files requested per list call.
const pageSize = 100

// Connector syncs a Google Drive folder. Enumeration walks the folder
// tree breadth-first; paths are built from folder names relative to
// the configured root. Content hashes come from the API's MD5 where
// available, otherwise from the file ID and version.
type Connector struct {
	sourceID   string
	rootFolder string
	filter     domain.PathFilter
	svc        *drivev3.Service
	limiter    *ratelimit.Limiter

	mu     sync.Mutex
	closed bool
}

// New creates a Drive connector for the source, building an
// authenticated client from the source's credentials file. The
// limiter is shared across connectors talking to the same project and
// may be nil.
func New(ctx context.Context, source domain.Source, limiter *ratelimit.Limiter) (*Connector, error) {
	svc, err := google.NewDriveService(ctx, source.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return NewWithService(source, svc, limiter), nil
}

// NewWithService creates a Drive connector around an existing client.
func NewWithService(source domain.Source, svc *drivev3.Service, limiter *ratelimit.Limiter) *Connector {
	return &Connector{
		sourceID:   source.ID,
		rootFolder: normaliseFolder(source.Location),
		filter:     domain.NewPathFilter(&source),
		svc:        svc,
		limiter:    limiter,
	}
}

// normaliseFolder strips a gdrive:// scheme from the folder ID.
func normaliseFolder(location string) string {
	return strings.TrimPrefix(location, "gdrive://")
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return domain.SourceTypeGoogleDrive
}

// SourceID returns the configured source ID.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Capabilities returns what this connector supports.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsWatch:        false,
		SupportsHierarchy:    true,
		RequiresAuth:         true,
		SupportsValidation:   true,
		SupportsCursorReturn: true,
		ProvidesContentHash:  true,
		SupportsRateLimiting: true,
		SupportsPagination:   true,
	}
}

// wait blocks until the shared limiter grants a request slot.
func (c *Connector) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// recordBackoff feeds a provider-imposed Retry-After into the shared
// limiter so every worker backs off, not just the one that hit it.
func (c *Connector) recordBackoff(err error) {
	if c.limiter == nil {
		return
	}
	if after := google.RetryAfter(err); after > 0 {
		c.limiter.RecordRetryAfter(after)
	}
}

// Validate checks the credentials work and the root folder exists and
// is actually a folder.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return domain.ErrConnectorClosed
	}

	if err := c.wait(ctx); err != nil {
		return err
	}
	file, err := c.svc.Files.Get(c.rootFolder).
		Fields("id, name, mimeType").
		Context(ctx).Do()
	if err != nil {
		c.recordBackoff(err)
		return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, google.WrapError(err))
	}
	if file.MimeType != mimeFolder {
		return fmt.Errorf("%w: %s is not a folder", domain.ErrConnectorValidation, c.rootFolder)
	}
	return nil
}

// folderItem is one pending folder in the breadth-first walk.
type folderItem struct {
	id   string
	path string
}

// Enumerate walks the folder tree and reports every admissible file.
// The completion sentinel carries a changes-feed position for the next
// run; a change that lands mid-walk is caught by the next run's feed.
func (c *Connector) Enumerate(ctx context.Context, cursor string) (<-chan domain.SourceDocument, <-chan error) {
	docsCh := make(chan domain.SourceDocument)
	errsCh := make(chan error, 1)

	go func() {
		defer close(docsCh)
		defer close(errsCh)

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			errsCh <- domain.ErrConnectorClosed
			return
		}

		if err := c.walkFolders(ctx, docsCh); err != nil {
			errsCh <- err
			return
		}

		token, err := c.nextStartToken(ctx, cursor)
		if err != nil {
			errsCh <- err
			return
		}

		next := Cursor{
			Version:        CursorVersion,
			RootFolderID:   c.rootFolder,
			StartPageToken: token,
		}
		errsCh <- &driven.EnumerationComplete{NewCursor: next.Encode()}
	}()

	return docsCh, errsCh
}

// nextStartToken returns the changes-feed position for the next run.
// A valid cursor for this root folder is advanced through the feed so
// its position stays continuous between runs; a missing, foreign or
// expired cursor gets a fresh token at the current head instead. The
// walk already produced the complete listing, so only the moved
// position matters here.
func (c *Connector) nextStartToken(ctx context.Context, raw string) (string, error) {
	prev, err := DecodeCursor(raw)
	if err != nil || prev.IsEmpty() || prev.RootFolderID != c.rootFolder {
		return c.freshStartToken(ctx)
	}

	token := prev.StartPageToken
	for {
		if err := c.wait(ctx); err != nil {
			return "", err
		}
		list, err := c.svc.Changes.List(token).
			Fields("nextPageToken, newStartPageToken").
			PageSize(pageSize).
			Context(ctx).Do()
		if err != nil {
			c.recordBackoff(err)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			// Stored tokens expire; replace rather than fail the run.
			return c.freshStartToken(ctx)
		}
		if list.NewStartPageToken != "" {
			return list.NewStartPageToken, nil
		}
		if list.NextPageToken == "" {
			return c.freshStartToken(ctx)
		}
		token = list.NextPageToken
	}
}

// freshStartToken asks the API for a feed position at the current head.
func (c *Connector) freshStartToken(ctx context.Context) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	token, err := c.svc.Changes.GetStartPageToken().Context(ctx).Do()
	if err != nil {
		c.recordBackoff(err)
		return "", fmt.Errorf("get changes token: %w", google.WrapError(err))
	}
	return token.StartPageToken, nil
}

// walkFolders runs the breadth-first listing, sending admissible files
// to out. Folders already visited are skipped so a shortcut loop
// cannot recurse forever.
func (c *Connector) walkFolders(ctx context.Context, out chan<- domain.SourceDocument) error {
	queue := []folderItem{{id: c.rootFolder, path: ""}}
	seen := map[string]bool{c.rootFolder: true}

	for len(queue) > 0 {
		folder := queue[0]
		queue = queue[1:]

		pageToken := ""
		for {
			if err := c.wait(ctx); err != nil {
				return err
			}
			list, err := c.svc.Files.List().
				Q(fmt.Sprintf("'%s' in parents and trashed = false", folder.id)).
				Fields("nextPageToken, files(id, name, mimeType, size, md5Checksum, version, modifiedTime)").
				PageSize(pageSize).
				PageToken(pageToken).
				Context(ctx).Do()
			if err != nil {
				c.recordBackoff(err)
				return fmt.Errorf("list folder %s: %w", folder.id, google.WrapError(err))
			}

			for _, file := range list.Files {
				if file.MimeType == mimeFolder {
					if !seen[file.Id] {
						seen[file.Id] = true
						queue = append(queue, folderItem{id: file.Id, path: childPath(folder.path, file.Name)})
					}
					continue
				}

				doc, ok := c.toSourceDocument(folder.path, file)
				if !ok {
					continue
				}
				select {
				case out <- doc:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			pageToken = list.NextPageToken
			if pageToken == "" {
				break
			}
		}
	}
	return nil
}

// toSourceDocument converts an API file into an enumeration entry.
// Returns false for files with no usable export and files the path
// filter rejects.
func (c *Connector) toSourceDocument(folderPath string, file *drivev3.File) (domain.SourceDocument, bool) {
	exportMIME, ok := exportTarget(file.MimeType)
	if !ok {
		return domain.SourceDocument{}, false
	}

	rel := childPath(folderPath, file.Name)
	if !c.filter.Admit(rel, file.Size) {
		return domain.SourceDocument{}, false
	}

	mime := file.MimeType
	if exportMIME != "" {
		mime = exportMIME
	}

	var modified time.Time
	if t, err := time.Parse(time.RFC3339, file.ModifiedTime); err == nil {
		modified = t.UTC()
	}

	return domain.SourceDocument{
		SourceID:    c.sourceID,
		Path:        rel,
		ContentHash: contentHash(file),
		MIMEType:    mime,
		Size:        file.Size,
		ModifiedAt:  modified,
		Metadata: map[string]string{
			"connector_type": domain.SourceTypeGoogleDrive,
			"file_id":        file.Id,
			"drive_mime":     file.MimeType,
		},
	}, true
}

// childPath joins a folder path and an item name with forward slashes.
// Slashes inside Drive names would corrupt the hierarchy, so they are
// replaced.
func childPath(folderPath, name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	if folderPath == "" {
		return name
	}
	return folderPath + "/" + name
}

// Fetch retrieves a single document's content, exporting native
// documents and downloading regular files. The document's provider ID
// comes from the enumeration metadata.
func (c *Connector) Fetch(ctx context.Context, doc domain.SourceDocument) (domain.RawDocument, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return domain.RawDocument{}, domain.ErrConnectorClosed
	}

	fileID := doc.Metadata["file_id"]
	if fileID == "" {
		return domain.RawDocument{}, fmt.Errorf("%w: document %s has no drive file id", domain.ErrInvalidInput, doc.Path)
	}

	if err := c.wait(ctx); err != nil {
		return domain.RawDocument{}, err
	}

	exportMIME, ok := exportTarget(doc.Metadata["drive_mime"])
	if !ok {
		return domain.RawDocument{}, fmt.Errorf("%w: no export for %s", domain.ErrInvalidInput, doc.Metadata["drive_mime"])
	}

	var resp io.ReadCloser
	var err error
	if exportMIME != "" {
		var httpResp *http.Response
		httpResp, err = c.svc.Files.Export(fileID, exportMIME).Context(ctx).Download()
		if err == nil {
			resp = httpResp.Body
		}
	} else {
		var httpResp *http.Response
		httpResp, err = c.svc.Files.Get(fileID).Context(ctx).Download()
		if err == nil {
			resp = httpResp.Body
		}
	}
	if err != nil {
		c.recordBackoff(err)
		return domain.RawDocument{}, fmt.Errorf("fetch %s: %w", doc.Path, google.WrapError(err))
	}
	defer resp.Close()

	content, err := io.ReadAll(io.LimitReader(resp, MaxExportSize+1))
	if err != nil {
		return domain.RawDocument{}, fmt.Errorf("read %s: %w", doc.Path, err)
	}
	if len(content) > MaxExportSize {
		// Embedding a truncated body would mark the document synced
		// under its full-content hash. Fail it instead; the size cap
		// is a per-document error, not a trim.
		return domain.RawDocument{}, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrContentTooLarge, doc.Path, MaxExportSize)
	}

	// The enumeration hash is authoritative. Recomputing it from the
	// exported bytes would never match the stored value and every run
	// would re-embed the document.
	out := doc
	out.SourceID = c.sourceID
	out.Size = int64(len(content))
	return domain.RawDocument{SourceDocument: out, Content: content}, nil
}

// Watch is not supported; drive sources are polled.
func (c *Connector) Watch(_ context.Context) (<-chan domain.WatchEvent, error) {
	return nil, domain.ErrNotImplemented
}

// Close releases resources. Safe to call multiple times.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
