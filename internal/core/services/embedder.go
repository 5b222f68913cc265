package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// retryConfig controls exponential backoff for embedding calls.
type retryConfig struct {
	attempts   int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
}

// EmbedResult carries one document's embedded chunk set plus the
// content identity it was produced from. The document is the fetched
// version, whose hash may be newer than the enumerated one.
type EmbedResult struct {
	// Doc is the document as fetched, with the connector's
	// authoritative content hash for the returned bytes.
	Doc domain.SourceDocument

	// Chunks is the deterministic chunk set. Newly embedded chunks
	// carry vectors; chunks already present in the vector store are
	// left without one and need no re-upsert.
	Chunks []domain.Chunk
}

// EmbedWorker turns one changed document into embedded chunks:
// fetch, normalise, chunk, then embed in batches. Several workers run
// concurrently per source; they share the embedding service, whose
// rate limiter bounds the global request rate.
type EmbedWorker struct {
	normalisers driven.NormaliserRegistry
	chain       driven.ProcessorChain
	embedder    driven.EmbeddingService
	vectors     driven.VectorStore
	batchSize   int
	retry       retryConfig
	log         *logger.Logger
}

// NewEmbedWorker creates an embed worker from embedding configuration.
func NewEmbedWorker(
	normalisers driven.NormaliserRegistry,
	chain driven.ProcessorChain,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	cfg domain.EmbeddingConfig,
	log *logger.Logger,
) *EmbedWorker {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = domain.DefaultBatchSize
	}
	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	return &EmbedWorker{
		normalisers: normalisers,
		chain:       chain,
		embedder:    embedder,
		vectors:     vectors,
		batchSize:   batchSize,
		retry: retryConfig{
			attempts:   attempts,
			baseDelay:  100 * time.Millisecond,
			maxDelay:   5 * time.Second,
			multiplier: 2,
		},
		log: log.Named("embed"),
	}
}

// Process fetches, normalises, chunks, and embeds one document.
// Binary or empty content yields a result with zero chunks so the
// caller records it as processed rather than pending. Chunk ids
// already present in the vector store are skipped, which makes
// resuming an interrupted run cost nothing extra.
func (w *EmbedWorker) Process(ctx context.Context, conn driven.Connector, doc domain.SourceDocument) (*EmbedResult, error) {
	raw, err := conn.Fetch(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", doc.Path, err)
	}
	if raw.SourceDocument.ContentHash == "" {
		raw.SourceDocument.ContentHash = domain.HashContent(raw.Content)
	}
	fetched := raw.SourceDocument
	if fetched.ContentHash != doc.ContentHash {
		// The document changed between listing and fetch. Embed what
		// we actually got; the fetched hash is what gets recorded.
		w.log.Debug("content changed since enumeration",
			zap.String("source_id", doc.SourceID),
			zap.String("path", doc.Path))
	}

	normalised, err := w.normalisers.Normalise(ctx, &raw)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedType) {
			// Nothing extracts text from this document; record it as
			// processed with an empty chunk set rather than erroring.
			w.log.Debug("no normaliser for document",
				zap.String("path", doc.Path),
				zap.String("mime_type", fetched.MIMEType))
			return &EmbedResult{Doc: fetched}, nil
		}
		return nil, fmt.Errorf("normalise %s: %w", doc.Path, err)
	}

	document := normalised.Document
	chunks, err := w.chain.Process(ctx, &document)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", doc.Path, err)
	}
	if len(chunks) == 0 {
		return &EmbedResult{Doc: fetched}, nil
	}

	pending, err := w.pendingChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(pending); start += w.batchSize {
		end := start + w.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, idx := range batch {
			texts[i] = chunks[idx].Content
		}

		vectors, err := w.embedBatch(ctx, texts)
		if err != nil {
			w.salvage(ctx, chunks, pending[:start])
			return nil, fmt.Errorf("embed %s: %w", doc.Path, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embed %s: got %d vectors for %d texts", doc.Path, len(vectors), len(texts))
		}
		for i, idx := range batch {
			chunks[idx].Embedding = vectors[i]
		}
	}

	return &EmbedResult{Doc: fetched, Chunks: chunks}, nil
}

// pendingChunks returns the indices of chunks whose ids have no stored
// vector yet. A failed lookup degrades to embedding everything, since
// upserts by deterministic id are idempotent anyway.
func (w *EmbedWorker) pendingChunks(ctx context.Context, chunks []domain.Chunk) ([]int, error) {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}

	existing, err := w.vectors.ExistingIDs(ctx, ids)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		w.log.Warn("stored-vector lookup failed, embedding all chunks", zap.Error(err))
		existing = nil
	}

	pending := make([]int, 0, len(chunks))
	for i, c := range chunks {
		if !existing[c.ID] {
			pending = append(pending, i)
		}
	}
	return pending, nil
}

// salvage stores chunks embedded before a later batch failed. Sync
// state is not advanced, so the document is retried in full next run,
// but the stored vectors make that retry skip the paid-for chunks.
func (w *EmbedWorker) salvage(ctx context.Context, chunks []domain.Chunk, done []int) {
	if len(done) == 0 || ctx.Err() != nil {
		return
	}
	salvaged := make([]domain.Chunk, 0, len(done))
	for _, idx := range done {
		if len(chunks[idx].Embedding) > 0 {
			salvaged = append(salvaged, chunks[idx])
		}
	}
	if len(salvaged) == 0 {
		return
	}
	if err := w.vectors.Upsert(ctx, salvaged); err != nil {
		w.log.Debug("salvage upsert failed", zap.Error(err))
		return
	}
	w.log.Debug("salvaged embedded chunks", zap.Int("count", len(salvaged)))
}

// embedBatch calls the embedding service with exponential backoff on
// retryable failures. Permanent failures surface immediately.
func (w *EmbedWorker) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	backoff := w.retry.baseDelay

	for attempt := 0; attempt < w.retry.attempts; attempt++ {
		vectors, err := w.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !domain.IsRetryable(err) {
			return nil, err
		}

		if attempt < w.retry.attempts-1 {
			w.log.Debug("retrying embedding batch",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * w.retry.multiplier)
			if backoff > w.retry.maxDelay {
				backoff = w.retry.maxDelay
			}
		}
	}
	return nil, lastErr
}
