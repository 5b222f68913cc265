package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// fakeSourceStore is an in-memory driven.SourceStore.
type fakeSourceStore struct {
	mu      sync.Mutex
	sources map[string]domain.Source
}

func newFakeSourceStore(sources ...domain.Source) *fakeSourceStore {
	s := &fakeSourceStore{sources: make(map[string]domain.Source)}
	for _, src := range sources {
		s.sources[src.ID] = src
	}
	return s
}

func (s *fakeSourceStore) Save(_ context.Context, source domain.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[source.ID] = source
	return nil
}

func (s *fakeSourceStore) Get(_ context.Context, id string) (*domain.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	source, ok := s.sources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &source, nil
}

func (s *fakeSourceStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.sources, id)
	return nil
}

func (s *fakeSourceStore) List(_ context.Context) ([]domain.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Source, 0, len(s.sources))
	for _, source := range s.sources {
		out = append(out, source)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeSourceStore) UpdateStatus(_ context.Context, id string, status domain.SourceStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	source, ok := s.sources[id]
	if !ok {
		return domain.ErrNotFound
	}
	source.Status = status
	source.LastError = message
	s.sources[id] = source
	return nil
}

func (s *fakeSourceStore) ListByStatus(_ context.Context, status domain.SourceStatus) ([]domain.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Source
	for _, source := range s.sources {
		if source.Status == status {
			out = append(out, source)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeSourceStore) status(id string) domain.SourceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources[id].Status
}

// fakeStateStore is an in-memory driven.SyncStateStore.
type fakeStateStore struct {
	mu       sync.Mutex
	states   map[string]domain.SyncState
	failSave error
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string]domain.SyncState)}
}

func stateKey(sourceID, path string) string { return sourceID + "\x00" + path }

func (s *fakeStateStore) Save(_ context.Context, state domain.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return s.failSave
	}
	s.states[stateKey(state.SourceID, state.Path)] = state
	return nil
}

func (s *fakeStateStore) Get(_ context.Context, sourceID, path string) (*domain.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[stateKey(sourceID, path)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

func (s *fakeStateStore) ListBySource(_ context.Context, sourceID string) ([]domain.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SyncState
	for _, state := range s.states {
		if state.SourceID == sourceID {
			out = append(out, state)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *fakeStateStore) Delete(_ context.Context, sourceID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stateKey(sourceID, path)
	if _, ok := s.states[key]; !ok {
		return domain.ErrNotFound
	}
	delete(s.states, key)
	return nil
}

// fakeCursorStore is an in-memory driven.SyncCursorStore.
type fakeCursorStore struct {
	mu      sync.Mutex
	cursors map[string]domain.SyncCursor
}

func newFakeCursorStore() *fakeCursorStore {
	return &fakeCursorStore{cursors: make(map[string]domain.SyncCursor)}
}

func (s *fakeCursorStore) SaveCursor(_ context.Context, cursor domain.SyncCursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[cursor.SourceID] = cursor
	return nil
}

func (s *fakeCursorStore) GetCursor(_ context.Context, sourceID string) (*domain.SyncCursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cursor, ok := s.cursors[sourceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cursor, nil
}

func (s *fakeCursorStore) DeleteCursor(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cursors[sourceID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.cursors, sourceID)
	return nil
}

// fakeRunStore is an in-memory driven.SyncRunStore.
type fakeRunStore struct {
	mu   sync.Mutex
	runs []domain.SyncRun
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{}
}

func (s *fakeRunStore) RecordRun(_ context.Context, run domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *fakeRunStore) ListRuns(_ context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SyncRun
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if sourceID == "" || s.runs[i].SourceID == sourceID {
			out = append(out, s.runs[i])
		}
	}
	return out, nil
}

// fakeVectorStore is an in-memory driven.VectorStore that records
// every mutating call so tests can assert on ordering and volume.
type fakeVectorStore struct {
	mu         sync.Mutex
	points     map[string]domain.Chunk
	ops        []string
	upserts    int
	deletes    int
	failUpsert error
	failDelete error
	queryHits  []driven.QueryHit
	lastQueryK int
	lastFilter map[string]string
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{points: make(map[string]domain.Chunk)}
}

func (s *fakeVectorStore) EnsureCollection(_ context.Context, _ int) error { return nil }

func (s *fakeVectorStore) Upsert(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpsert != nil {
		return s.failUpsert
	}
	for _, chunk := range chunks {
		s.points[chunk.ID] = chunk
		s.ops = append(s.ops, "upsert:"+chunk.ID)
	}
	s.upserts++
	return nil
}

func (s *fakeVectorStore) Delete(_ context.Context, chunkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete != nil {
		return s.failDelete
	}
	for _, id := range chunkIDs {
		delete(s.points, id)
		s.ops = append(s.ops, "delete:"+id)
	}
	s.deletes++
	return nil
}

func (s *fakeVectorStore) ExistingIDs(_ context.Context, chunkIDs []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool)
	for _, id := range chunkIDs {
		if _, ok := s.points[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (s *fakeVectorStore) Query(_ context.Context, _ []float32, k int, filter map[string]string) ([]driven.QueryHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQueryK = k
	s.lastFilter = filter
	return s.queryHits, nil
}

func (s *fakeVectorStore) HealthCheck(_ context.Context) error { return nil }

func (s *fakeVectorStore) Close() error { return nil }

func (s *fakeVectorStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.points))
	for id := range s.points {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *fakeVectorStore) upsertCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

func (s *fakeVectorStore) opLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

// fakeEmbedder is an in-memory driven.EmbeddingService. errs is
// consulted per call: each EmbedBatch pops the next error, nil meaning
// success. failTexts marks texts that always fail. A non-nil block
// channel stalls every call until it is closed.
type fakeEmbedder struct {
	mu        sync.Mutex
	calls     int
	batches   [][]string
	errs      []error
	failTexts map[string]error
	block     chan struct{}
	dims      int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{dims: 4}
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.batches = append(e.batches, append([]string(nil), texts...))
	var err error
	if len(e.errs) > 0 {
		err = e.errs[0]
		e.errs = e.errs[1:]
	}
	if err == nil {
		for _, text := range texts {
			if failErr, ok := e.failTexts[text]; ok {
				err = failErr
				break
			}
		}
	}
	block := e.block
	dims := e.dims
	e.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, dims)
		vec[0] = float32(len(text))
		out[i] = vec
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int { return e.dims }

func (e *fakeEmbedder) ModelName() string { return "fake-embed" }

func (e *fakeEmbedder) Ping(_ context.Context) error { return nil }

func (e *fakeEmbedder) Close() error { return nil }

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *fakeEmbedder) setErrs(errs ...error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = errs
}

func (e *fakeEmbedder) setBlock(block chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.block = block
}

func (e *fakeEmbedder) batchSizes() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	sizes := make([]int, len(e.batches))
	for i, batch := range e.batches {
		sizes[i] = len(batch)
	}
	return sizes
}

// fakeConnector is an in-memory driven.Connector serving a fixed set
// of documents. Set enumerateErr to fail the listing instead of
// completing it; a non-nil gate stalls the listing until it is closed.
type fakeConnector struct {
	mu           sync.Mutex
	sourceID     string
	docs         map[string]string
	enumerateErr error
	fetchErr     map[string]error
	newCursor    string
	seenCursor   string
	gate         chan struct{}
	watchCh      chan domain.WatchEvent
	closed       bool
}

func newFakeConnector(sourceID string, docs map[string]string) *fakeConnector {
	return &fakeConnector{
		sourceID:  sourceID,
		docs:      docs,
		newCursor: "cursor-1",
	}
}

func (c *fakeConnector) Type() string { return domain.SourceTypeFilesystem }

func (c *fakeConnector) SourceID() string { return c.sourceID }

func (c *fakeConnector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsValidation:   true,
		SupportsCursorReturn: true,
		ProvidesContentHash:  true,
		SupportsWatch:        c.watchCh != nil,
	}
}

func (c *fakeConnector) Validate(_ context.Context) error { return nil }

func (c *fakeConnector) Enumerate(ctx context.Context, cursor string) (<-chan domain.SourceDocument, <-chan error) {
	c.mu.Lock()
	c.seenCursor = cursor
	docs := make(map[string]string, len(c.docs))
	for path, content := range c.docs {
		docs[path] = content
	}
	enumerateErr := c.enumerateErr
	newCursor := c.newCursor
	gate := c.gate
	c.mu.Unlock()

	docsCh := make(chan domain.SourceDocument)
	errsCh := make(chan error, 1)
	go func() {
		defer close(docsCh)
		defer close(errsCh)

		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				errsCh <- ctx.Err()
				return
			}
		}

		paths := make([]string, 0, len(docs))
		for path := range docs {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		for _, path := range paths {
			doc := domain.SourceDocument{
				SourceID:    c.sourceID,
				Path:        path,
				ContentHash: domain.HashContent([]byte(docs[path])),
				MIMEType:    "text/plain",
				Size:        int64(len(docs[path])),
			}
			select {
			case docsCh <- doc:
			case <-ctx.Done():
				errsCh <- ctx.Err()
				return
			}
		}
		if enumerateErr != nil {
			errsCh <- enumerateErr
			return
		}
		errsCh <- &driven.EnumerationComplete{NewCursor: newCursor}
	}()
	return docsCh, errsCh
}

func (c *fakeConnector) Fetch(_ context.Context, doc domain.SourceDocument) (domain.RawDocument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.fetchErr[doc.Path]; ok {
		return domain.RawDocument{}, err
	}
	content, ok := c.docs[doc.Path]
	if !ok {
		return domain.RawDocument{}, domain.ErrNotFound
	}
	return domain.RawDocument{
		SourceDocument: domain.SourceDocument{
			SourceID:    c.sourceID,
			Path:        doc.Path,
			ContentHash: domain.HashContent([]byte(content)),
			MIMEType:    "text/plain",
			Size:        int64(len(content)),
		},
		Content: []byte(content),
	}, nil
}

func (c *fakeConnector) Watch(_ context.Context) (<-chan domain.WatchEvent, error) {
	if c.watchCh == nil {
		return nil, domain.ErrUnsupportedType
	}
	return c.watchCh, nil
}

func (c *fakeConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConnector) setDoc(path, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[path] = content
}

func (c *fakeConnector) removeDoc(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, path)
}

func (c *fakeConnector) setEnumerateErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enumerateErr = err
}

func (c *fakeConnector) setNewCursor(cursor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.newCursor = cursor
}

func (c *fakeConnector) setFetchErr(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchErr == nil {
		c.fetchErr = make(map[string]error)
	}
	if err == nil {
		delete(c.fetchErr, path)
		return
	}
	c.fetchErr[path] = err
}

func (c *fakeConnector) setGate(gate chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = gate
}

// fakeFactory hands out a fixed connector per source id.
type fakeFactory struct {
	mu         sync.Mutex
	connectors map[string]*fakeConnector
	createErr  error
}

func newFakeFactory(connectors ...*fakeConnector) *fakeFactory {
	f := &fakeFactory{connectors: make(map[string]*fakeConnector)}
	for _, conn := range connectors {
		f.connectors[conn.sourceID] = conn
	}
	return f
}

func (f *fakeFactory) add(conn *fakeConnector) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectors[conn.sourceID] = conn
}

func (f *fakeFactory) Create(_ context.Context, source domain.Source) (driven.Connector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	conn, ok := f.connectors[source.ID]
	if !ok {
		return nil, fmt.Errorf("%w: no connector for %s", domain.ErrUnsupportedType, source.ID)
	}
	return conn, nil
}

func (f *fakeFactory) Register(_ string, _ driven.ConnectorBuilder) {}

func (f *fakeFactory) SupportedTypes() []string {
	return []string{domain.SourceTypeFilesystem}
}

// fakeNormalisers turns raw bytes straight into document content. A
// non-nil err fails every call with it instead.
type fakeNormalisers struct {
	err error
}

func (f fakeNormalisers) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &driven.NormaliseResult{
		Document: domain.Document{
			SourceID:    raw.SourceDocument.SourceID,
			Path:        raw.SourceDocument.Path,
			ContentHash: raw.SourceDocument.ContentHash,
			Title:       raw.SourceDocument.Path,
			Content:     string(raw.Content),
		},
	}, nil
}

func (fakeNormalisers) Register(_ driven.Normaliser) {}

func (fakeNormalisers) SupportedMIMETypes() []string { return []string{"text/plain"} }
