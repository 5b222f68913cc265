// Package git provides a connector that syncs one branch of a git
// repository through a local clone kept in the cache directory.
package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/custodia-labs/vecsync/internal/connectors/mimetype"
	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// cloneDepth is the history depth for remote clones. One commit is
// enough; the pipeline only reads the checked-out tree.
const cloneDepth = 1

// errCacheCorrupt marks a clone cache that cannot be updated in place
// and must be cloned from scratch.
var errCacheCorrupt = errors.New("clone cache corrupt")

// Connector syncs the checked-out tree of a git branch. The repository
// is cloned into the cache directory on the first run and fetched and
// hard-reset on later runs. Paths are reported relative to the
// repository root; the cursor is the HEAD commit SHA.
type Connector struct {
	sourceID string
	url      string
	branch   string
	repoDir  string
	filter   domain.PathFilter

	mu     sync.Mutex
	closed bool
}

// New creates a git connector for the source. Clones live under
// cacheDir, one directory per source ID.
func New(source domain.Source, cacheDir string) *Connector {
	return &Connector{
		sourceID: source.ID,
		url:      source.Location,
		branch:   source.Branch,
		repoDir:  filepath.Join(cacheDir, source.ID),
		filter:   domain.NewPathFilter(&source),
	}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return domain.SourceTypeGit
}

// SourceID returns the configured source ID.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsWatch:        false,
		SupportsHierarchy:    true,
		RequiresAuth:         false,
		SupportsValidation:   true,
		SupportsCursorReturn: true,
		ProvidesContentHash:  true,
	}
}

// Validate lists the remote's advertised refs and, when a branch is
// configured, checks it exists.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrConnectorClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	remote := gogit.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{c.url},
	})
	refs, err := remote.ListContext(ctx, &gogit.ListOptions{})
	if err != nil {
		return fmt.Errorf("list remote %s: %w", c.url, err)
	}
	if c.branch == "" {
		return nil
	}

	want := plumbing.NewBranchReferenceName(c.branch)
	for _, ref := range refs {
		if ref.Name() == want {
			return nil
		}
	}
	return fmt.Errorf("branch %q not found on %s", c.branch, c.url)
}

// Enumerate brings the clone up to date and lists every admissible
// file in the checked-out tree. The new cursor is the HEAD commit SHA.
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

		repo, err := c.ensureRepo(ctx)
		if err != nil {
			errsCh <- err
			return
		}
		head, err := repo.Head()
		if err != nil {
			errsCh <- fmt.Errorf("resolve head: %w", err)
			return
		}
		sha := head.Hash().String()

		walkErr := filepath.WalkDir(c.repoDir, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if entry.IsDir() {
				if path != c.repoDir && domain.SkipDir(entry.Name()) {
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
			rel, err := filepath.Rel(c.repoDir, path)
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
					"connector_type": domain.SourceTypeGit,
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

		errsCh <- &driven.EnumerationComplete{NewCursor: sha}
	}()

	return docsCh, errsCh
}

// ensureRepo opens the cached clone, updating it to the remote branch
// head, or clones from scratch when no usable cache exists.
func (c *Connector) ensureRepo(ctx context.Context) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpen(c.repoDir)
	if err != nil {
		return c.clone(ctx)
	}
	if err := c.update(ctx, repo); err != nil {
		if errors.Is(err, errCacheCorrupt) {
			return c.clone(ctx)
		}
		return nil, err
	}
	return repo, nil
}

// update fetches the branch head and hard-resets the worktree to it.
// Fetch failures propagate as-is so a network outage fails the run
// instead of discarding a valid cache; failures after a successful
// fetch mean the cache itself is broken.
func (c *Connector) update(ctx context.Context, repo *gogit.Repository) error {
	branch := c.branch
	if branch == "" {
		head, err := repo.Head()
		if err != nil || !head.Name().IsBranch() {
			return fmt.Errorf("%w: no usable head", errCacheCorrupt)
		}
		branch = head.Name().Short()
	}

	refspec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/origin/%s", branch, branch))
	err := repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refspec},
		Depth:      depthFor(c.url),
		Force:      true,
		Tags:       gogit.NoTags,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch %s: %w", c.url, err)
	}

	ref, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return fmt.Errorf("%w: resolve origin/%s: %w", errCacheCorrupt, branch, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: open worktree: %w", errCacheCorrupt, err)
	}
	if err := worktree.Reset(&gogit.ResetOptions{Mode: gogit.HardReset, Commit: ref.Hash()}); err != nil {
		return fmt.Errorf("%w: reset to origin/%s: %w", errCacheCorrupt, branch, err)
	}
	return nil
}

// clone discards any existing cache directory and clones anew.
func (c *Connector) clone(ctx context.Context) (*gogit.Repository, error) {
	if err := os.RemoveAll(c.repoDir); err != nil {
		return nil, fmt.Errorf("clear clone cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.repoDir), 0o755); err != nil {
		return nil, fmt.Errorf("create clone cache: %w", err)
	}

	opts := &gogit.CloneOptions{
		URL:          c.url,
		SingleBranch: true,
		Depth:        depthFor(c.url),
		Tags:         gogit.NoTags,
	}
	if c.branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(c.branch)
	}

	repo, err := gogit.PlainCloneContext(ctx, c.repoDir, false, opts)
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", c.url, err)
	}
	return repo, nil
}

// depthFor returns the clone depth for a URL. Shallow history only
// pays off over the network, and go-git's local transport does not
// serve shallow packs, so local paths clone with full history.
func depthFor(url string) int {
	if strings.HasPrefix(url, "file://") {
		return 0
	}
	if strings.Contains(url, "://") || strings.HasPrefix(url, "git@") {
		return cloneDepth
	}
	return 0
}

// Fetch reads one document from the checked-out tree.
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

	// A run enumerates before fetching, so the clone normally exists
	// already. Recover it if something swept the cache mid-run.
	if _, err := os.Stat(c.repoDir); err != nil {
		if _, err := c.ensureRepo(ctx); err != nil {
			return domain.RawDocument{}, err
		}
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
			"connector_type": domain.SourceTypeGit,
			"filename":       filepath.Base(doc.Path),
			"extension":      mimetype.Extension(doc.Path),
		},
	}
	if info, err := os.Stat(full); err == nil {
		fetched.ModifiedAt = info.ModTime().UTC()
	}

	return domain.RawDocument{SourceDocument: fetched, Content: content}, nil
}

// resolve joins a relative path onto the clone root and rejects
// escapes.
func (c *Connector) resolve(rel string) (string, error) {
	full := filepath.Join(c.repoDir, filepath.FromSlash(rel))
	if full != c.repoDir && !strings.HasPrefix(full, c.repoDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q escapes repository root", domain.ErrInvalidInput, rel)
	}
	return full, nil
}

// Watch is not supported; git sources are polled.
func (c *Connector) Watch(_ context.Context) (<-chan domain.WatchEvent, error) {
	return nil, domain.ErrNotImplemented
}

// Close marks the connector closed. The clone cache stays on disk for
// the next run.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
