package driven

import "context"

// EmbeddingService turns text into vectors. It only generates
// embeddings; storing and searching them is the VectorStore's job.
// Adapters exist for OpenAI-compatible HTTP APIs and for Ollama.
type EmbeddingService interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds several texts in one request, returning one
	// vector per text in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the model's vector size. The vector store
	// collection must be created with the same value.
	Dimensions() int

	// ModelName returns the embedding model identifier.
	ModelName() string

	// Ping makes a lightweight request to verify the service is
	// reachable. Run at startup, before the first sync.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
