package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/logger"
	"github.com/custodia-labs/vecsync/internal/postprocessors"
	"github.com/custodia-labs/vecsync/internal/postprocessors/chunker"
)

type workerFixture struct {
	connector *fakeConnector
	embedder  *fakeEmbedder
	vectors   *fakeVectorStore
	worker    *EmbedWorker
}

// newWorkerFixture builds a worker over a chunker cutting every 50
// bytes, so an unbroken run of n*50 bytes yields exactly n chunks.
func newWorkerFixture(docs map[string]string, cfg domain.EmbeddingConfig) *workerFixture {
	f := &workerFixture{
		connector: newFakeConnector("docs", docs),
		embedder:  newFakeEmbedder(),
		vectors:   newFakeVectorStore(),
	}
	f.worker = NewEmbedWorker(
		fakeNormalisers{},
		postprocessors.NewChain(chunker.New(chunker.WithChunkSize(50), chunker.WithOverlap(0))),
		f.embedder,
		f.vectors,
		cfg,
		logger.NewNop(),
	)
	return f
}

func enumerated(path, content string) domain.SourceDocument {
	return domain.SourceDocument{
		SourceID:    "docs",
		Path:        path,
		ContentHash: domain.HashContent([]byte(content)),
	}
}

func expectChunkIDs(path, content string, n int) []string {
	hash := domain.HashContent([]byte(content))
	ids := make([]string, n)
	for i := range ids {
		ids[i] = chunker.ChunkID("docs", path, hash, i)
	}
	return ids
}

func TestEmbedWorker_SingleDocument(t *testing.T) {
	content := "short document"
	f := newWorkerFixture(map[string]string{"a.txt": content}, domain.EmbeddingConfig{BatchSize: 10, MaxRetries: 1})

	result, err := f.worker.Process(context.Background(), f.connector, enumerated("a.txt", content))
	require.NoError(t, err)

	require.Len(t, result.Chunks, 1)
	assert.Equal(t, expectChunkIDs("a.txt", content, 1)[0], result.Chunks[0].ID)
	assert.Equal(t, content, result.Chunks[0].Content)
	assert.NotEmpty(t, result.Chunks[0].Embedding)
	assert.Equal(t, domain.HashContent([]byte(content)), result.Doc.ContentHash)
}

func TestEmbedWorker_BatchesRequests(t *testing.T) {
	content := strings.Repeat("x", 250) // 5 chunks of 50 bytes
	f := newWorkerFixture(map[string]string{"a.txt": content}, domain.EmbeddingConfig{BatchSize: 2, MaxRetries: 1})

	result, err := f.worker.Process(context.Background(), f.connector, enumerated("a.txt", content))
	require.NoError(t, err)

	require.Len(t, result.Chunks, 5)
	assert.Equal(t, []int{2, 2, 1}, f.embedder.batchSizes())
	for _, chunk := range result.Chunks {
		assert.NotEmpty(t, chunk.Embedding)
	}
}

func TestEmbedWorker_SkipsStoredChunks(t *testing.T) {
	content := strings.Repeat("x", 200) // 4 chunks
	f := newWorkerFixture(map[string]string{"a.txt": content}, domain.EmbeddingConfig{BatchSize: 10, MaxRetries: 1})

	// Two chunks already have stored vectors from an interrupted run.
	ids := expectChunkIDs("a.txt", content, 4)
	require.NoError(t, f.vectors.Upsert(context.Background(), []domain.Chunk{
		{ID: ids[0], Embedding: []float32{1}},
		{ID: ids[1], Embedding: []float32{1}},
	}))

	result, err := f.worker.Process(context.Background(), f.connector, enumerated("a.txt", content))
	require.NoError(t, err)

	require.Len(t, result.Chunks, 4)
	assert.Equal(t, []int{2}, f.embedder.batchSizes(), "stored chunks must not be re-embedded")
	assert.Empty(t, result.Chunks[0].Embedding, "stored chunks carry no fresh vector")
	assert.Empty(t, result.Chunks[1].Embedding)
	assert.NotEmpty(t, result.Chunks[2].Embedding)
	assert.NotEmpty(t, result.Chunks[3].Embedding)
}

func TestEmbedWorker_RetriesTransient(t *testing.T) {
	content := "short document"
	f := newWorkerFixture(map[string]string{"a.txt": content}, domain.EmbeddingConfig{BatchSize: 10, MaxRetries: 3})
	f.embedder.setErrs(domain.ErrTransient, nil)

	result, err := f.worker.Process(context.Background(), f.connector, enumerated("a.txt", content))
	require.NoError(t, err)

	assert.Equal(t, 2, f.embedder.callCount())
	require.Len(t, result.Chunks, 1)
	assert.NotEmpty(t, result.Chunks[0].Embedding)
}

func TestEmbedWorker_NoRetryOnRejection(t *testing.T) {
	content := "short document"
	f := newWorkerFixture(map[string]string{"a.txt": content}, domain.EmbeddingConfig{BatchSize: 10, MaxRetries: 3})
	f.embedder.setErrs(domain.ErrEmbeddingRejected)

	_, err := f.worker.Process(context.Background(), f.connector, enumerated("a.txt", content))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingRejected)
	assert.Equal(t, 1, f.embedder.callCount(), "permanent rejections must not be retried")
}

func TestEmbedWorker_RetriesExhausted(t *testing.T) {
	content := "short document"
	f := newWorkerFixture(map[string]string{"a.txt": content}, domain.EmbeddingConfig{BatchSize: 10, MaxRetries: 2})
	f.embedder.setErrs(domain.ErrRateLimited, domain.ErrRateLimited)

	_, err := f.worker.Process(context.Background(), f.connector, enumerated("a.txt", content))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 2, f.embedder.callCount())
}

func TestEmbedWorker_SalvagesCompletedBatches(t *testing.T) {
	content := strings.Repeat("x", 200) // 4 chunks, 2 batches
	f := newWorkerFixture(map[string]string{"a.txt": content}, domain.EmbeddingConfig{BatchSize: 2, MaxRetries: 1})
	f.embedder.setErrs(nil, domain.ErrEmbeddingRejected)

	_, err := f.worker.Process(context.Background(), f.connector, enumerated("a.txt", content))
	require.Error(t, err)

	// The first batch was paid for; its vectors are kept.
	ids := expectChunkIDs("a.txt", content, 4)
	assert.ElementsMatch(t, ids[:2], f.vectors.ids())

	// The retry embeds only what is still missing.
	f.embedder.setErrs()
	result, err := f.worker.Process(context.Background(), f.connector, enumerated("a.txt", content))
	require.NoError(t, err)
	require.Len(t, result.Chunks, 4)
	assert.Equal(t, []int{2, 2, 2}, f.embedder.batchSizes(), "retry must only embed the unsalvaged chunks")
}

func TestEmbedWorker_UnsupportedMIMEType(t *testing.T) {
	content := "strange bytes"
	f := newWorkerFixture(map[string]string{"blob.bin": content}, domain.EmbeddingConfig{BatchSize: 10, MaxRetries: 1})
	f.worker.normalisers = fakeNormalisers{err: domain.ErrUnsupportedType}

	result, err := f.worker.Process(context.Background(), f.connector, enumerated("blob.bin", content))
	require.NoError(t, err, "an unnormalisable document is skipped, not errored")

	assert.Empty(t, result.Chunks)
	assert.Equal(t, 0, f.embedder.callCount())
	assert.Equal(t, domain.HashContent([]byte(content)), result.Doc.ContentHash)
}

func TestEmbedWorker_EmptyContent(t *testing.T) {
	f := newWorkerFixture(map[string]string{"empty.txt": ""}, domain.EmbeddingConfig{BatchSize: 10, MaxRetries: 1})

	result, err := f.worker.Process(context.Background(), f.connector, enumerated("empty.txt", ""))
	require.NoError(t, err)

	assert.Empty(t, result.Chunks)
	assert.Equal(t, 0, f.embedder.callCount())
}

func TestEmbedWorker_FetchFailure(t *testing.T) {
	f := newWorkerFixture(map[string]string{}, domain.EmbeddingConfig{BatchSize: 10, MaxRetries: 1})

	_, err := f.worker.Process(context.Background(), f.connector, enumerated("gone.txt", "whatever"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorContains(t, err, "fetch gone.txt")
}

func TestEmbedWorker_FetchedHashWins(t *testing.T) {
	content := "fresh content"
	f := newWorkerFixture(map[string]string{"a.txt": content}, domain.EmbeddingConfig{BatchSize: 10, MaxRetries: 1})

	// The enumerated hash is stale; the fetched bytes decide identity.
	stale := domain.SourceDocument{SourceID: "docs", Path: "a.txt", ContentHash: "stale-hash"}
	result, err := f.worker.Process(context.Background(), f.connector, stale)
	require.NoError(t, err)

	fetchedHash := domain.HashContent([]byte(content))
	assert.Equal(t, fetchedHash, result.Doc.ContentHash)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, chunker.ChunkID("docs", "a.txt", fetchedHash, 0), result.Chunks[0].ID)
}
