package domain

import (
	"fmt"
	"time"
)

// EmbeddingProvider identifies an embedding service implementation.
type EmbeddingProvider string

// Available embedding providers.
const (
	// ProviderOpenAI is any OpenAI-compatible embeddings endpoint.
	ProviderOpenAI EmbeddingProvider = "openai"

	// ProviderOllama is a local Ollama instance.
	ProviderOllama EmbeddingProvider = "ollama"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderOllama:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// VectorStoreType identifies a vector store backend.
type VectorStoreType string

// Available vector store backends.
const (
	// VectorStoreQdrant is a Qdrant server over gRPC.
	VectorStoreQdrant VectorStoreType = "qdrant"

	// VectorStoreMemory is the in-process store, for development and tests.
	VectorStoreMemory VectorStoreType = "memory"
)

// IsValid returns true if the backend is recognised.
func (t VectorStoreType) IsValid() bool {
	switch t {
	case VectorStoreQdrant, VectorStoreMemory:
		return true
	default:
		return false
	}
}

// EmbeddingConfig holds embedding service configuration.
type EmbeddingConfig struct {
	// Provider selects the embedding implementation.
	Provider EmbeddingProvider

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey authenticates cloud providers. Usually injected via the
	// VECSYNC_EMBEDDING_API_KEY environment variable rather than the
	// config file.
	APIKey string

	// Model is the embedding model name.
	Model string

	// Dimensions is the model's output vector size. Must match the
	// vector store collection; verified at startup.
	Dimensions int

	// BatchSize caps texts per request.
	BatchSize int

	// MaxRetries caps retry attempts for transient failures.
	MaxRetries int

	// RequestsPerMinute feeds the shared rate limiter. Zero disables
	// rate limiting.
	RequestsPerMinute int

	// MaxChunkBytes is the provider's per-input size limit. Chunks are
	// sub-split to stay under it.
	MaxChunkBytes int
}

// VectorStoreConfig holds vector store configuration.
type VectorStoreConfig struct {
	// Type selects the backend.
	Type VectorStoreType

	// Host is the Qdrant host.
	Host string

	// Port is the Qdrant gRPC port.
	Port int

	// Collection is the collection name holding chunk points.
	Collection string

	// APIKey authenticates managed Qdrant deployments.
	APIKey string

	// UseTLS enables TLS on the gRPC channel.
	UseTLS bool
}

// StorageConfig holds metadata store configuration.
type StorageConfig struct {
	// DataDir is where the SQLite database lives.
	// Empty means ~/.vecsync/data.
	DataDir string
}

// SyncConfig holds run behaviour configuration.
type SyncConfig struct {
	// Workers bounds per-run document parallelism.
	Workers int

	// SourceConcurrency bounds how many sources run at once in
	// continuous mode.
	SourceConcurrency int

	// DeletionDebounce is how many consecutive complete enumerations a
	// path must be absent from, beyond the first, before its chunks are
	// deleted. Zero deletes on the first miss; the default of one
	// tolerates a single flaky listing.
	DeletionDebounce int

	// PollInterval is the default continuous-mode poll interval.
	PollInterval time.Duration

	// RequestTimeout bounds individual network calls.
	RequestTimeout time.Duration
}

// ChunkingConfig holds chunker parameters. The profile they fingerprint
// is stored per document; changing parameters re-embeds everything, the
// same as a content change.
type ChunkingConfig struct {
	// ChunkSize is the target maximum chunk size in characters.
	ChunkSize int

	// Overlap is how many characters consecutive chunks share.
	Overlap int
}

// Profile fingerprints the chunking parameters for sync state.
func (c ChunkingConfig) Profile() string {
	return fmt.Sprintf("boundary:%d:%d", c.ChunkSize, c.Overlap)
}

// ProcessorConfig renders the parameters as generic processor config
// for the post-processing pipeline registry.
func (c ChunkingConfig) ProcessorConfig() map[string]any {
	return map[string]any{
		"chunk_size": c.ChunkSize,
		"overlap":    c.Overlap,
	}
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string

	// Format is console or json.
	Format string
}

// Config is the full pipeline configuration, loaded from TOML with
// environment overrides.
type Config struct {
	// Sources are the configured document sources.
	Sources []Source

	// Embedding holds embedding service settings.
	Embedding EmbeddingConfig

	// VectorStore holds vector store settings.
	VectorStore VectorStoreConfig

	// Storage holds metadata store settings.
	Storage StorageConfig

	// Sync holds run behaviour settings.
	Sync SyncConfig

	// Chunking holds chunker parameters.
	Chunking ChunkingConfig

	// Log holds logging settings.
	Log LogConfig
}

// Defaults for configuration values left unset.
const (
	DefaultChunkSize     = 1000
	DefaultChunkOverlap  = 200
	DefaultBatchSize     = 50
	DefaultMaxRetries    = 3
	DefaultWorkers       = 4
	DefaultDebounce      = 1
	DefaultMaxChunkBytes = 8192
)

// DefaultPollInterval is the continuous-mode poll cadence when neither
// the global nor the per-source setting is given.
const DefaultPollInterval = 60 * time.Second

// DefaultRequestTimeout bounds individual network calls by default.
const DefaultRequestTimeout = 30 * time.Second

// DefaultConfig returns a configuration with every tunable at its
// default. Sources and provider endpoints must still be supplied.
func DefaultConfig() Config {
	return Config{
		Embedding: EmbeddingConfig{
			Provider:      ProviderOpenAI,
			BaseURL:       "https://api.openai.com/v1",
			Model:         "text-embedding-3-small",
			Dimensions:    1536,
			BatchSize:     DefaultBatchSize,
			MaxRetries:    DefaultMaxRetries,
			MaxChunkBytes: DefaultMaxChunkBytes,
		},
		VectorStore: VectorStoreConfig{
			Type:       VectorStoreQdrant,
			Host:       "localhost",
			Port:       6334,
			Collection: "vecsync_chunks",
		},
		Sync: SyncConfig{
			Workers:           DefaultWorkers,
			SourceConcurrency: 1,
			DeletionDebounce:  DefaultDebounce,
			PollInterval:      DefaultPollInterval,
			RequestTimeout:    DefaultRequestTimeout,
		},
		Chunking: ChunkingConfig{
			ChunkSize: DefaultChunkSize,
			Overlap:   DefaultChunkOverlap,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for fatal mistakes. Dimension and
// collection compatibility with a live vector store is verified
// separately at startup, after connecting.
func (c *Config) Validate() error {
	if !c.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", ErrInvalidInput, c.Embedding.Provider)
	}
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("%w: embedding base_url is required", ErrInvalidInput)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding dimensions must be positive", ErrInvalidInput)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch_size must be positive", ErrInvalidInput)
	}
	if c.Embedding.MaxRetries < 0 {
		return fmt.Errorf("%w: embedding max_retries cannot be negative", ErrInvalidInput)
	}
	if !c.VectorStore.Type.IsValid() {
		return fmt.Errorf("%w: vector store type %q", ErrInvalidInput, c.VectorStore.Type)
	}
	if c.VectorStore.Type == VectorStoreQdrant && c.VectorStore.Collection == "" {
		return fmt.Errorf("%w: vector store collection is required", ErrInvalidInput)
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("%w: sync workers must be positive", ErrInvalidInput)
	}
	if c.Sync.DeletionDebounce < 0 {
		return fmt.Errorf("%w: deletion debounce cannot be negative", ErrInvalidInput)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidInput)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("%w: overlap must be in [0, chunk size)", ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for i := range c.Sources {
		src := &c.Sources[i]
		if err := src.Validate(); err != nil {
			return err
		}
		if _, dup := seen[src.ID]; dup {
			return fmt.Errorf("%w: duplicate source id %q", ErrInvalidInput, src.ID)
		}
		seen[src.ID] = struct{}{}
	}
	return nil
}
