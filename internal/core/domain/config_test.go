package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEmbeddingProvider_IsValid tests all valid and invalid providers
func TestEmbeddingProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider EmbeddingProvider
		expected bool
	}{
		{
			name:     "openai is valid",
			provider: ProviderOpenAI,
			expected: true,
		},
		{
			name:     "ollama is valid",
			provider: ProviderOllama,
			expected: true,
		},
		{
			name:     "empty string is invalid",
			provider: EmbeddingProvider(""),
			expected: false,
		},
		{
			name:     "unknown provider is invalid",
			provider: EmbeddingProvider("cohere"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.provider.IsValid()
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestVectorStoreType_IsValid tests vector store backend validation
func TestVectorStoreType_IsValid(t *testing.T) {
	assert.True(t, VectorStoreQdrant.IsValid())
	assert.True(t, VectorStoreMemory.IsValid())
	assert.False(t, VectorStoreType("pinecone").IsValid())
	assert.False(t, VectorStoreType("").IsValid())
}

// TestDefaultConfig tests the default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, DefaultBatchSize, cfg.Embedding.BatchSize)
	assert.Equal(t, DefaultMaxRetries, cfg.Embedding.MaxRetries)
	assert.Equal(t, VectorStoreQdrant, cfg.VectorStore.Type)
	assert.Equal(t, DefaultWorkers, cfg.Sync.Workers)
	assert.Equal(t, DefaultDebounce, cfg.Sync.DeletionDebounce)
	assert.Equal(t, DefaultPollInterval, cfg.Sync.PollInterval)
	assert.Equal(t, DefaultChunkSize, cfg.Chunking.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.Chunking.Overlap)

	t.Run("defaults validate", func(t *testing.T) {
		require.NoError(t, cfg.Validate())
	})
}

// TestConfig_Validate tests configuration validation
func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.Sources = []Source{
			{ID: "docs", Type: SourceTypeFilesystem, Location: "/docs"},
		}
		return cfg
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad provider", func(t *testing.T) {
		cfg := valid()
		cfg.Embedding.Provider = "carrier-pigeon"
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
	})

	t.Run("missing base url", func(t *testing.T) {
		cfg := valid()
		cfg.Embedding.BaseURL = ""
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
	})

	t.Run("zero dimensions", func(t *testing.T) {
		cfg := valid()
		cfg.Embedding.Dimensions = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
	})

	t.Run("zero batch size", func(t *testing.T) {
		cfg := valid()
		cfg.Embedding.BatchSize = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
	})

	t.Run("missing qdrant collection", func(t *testing.T) {
		cfg := valid()
		cfg.VectorStore.Collection = ""
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
	})

	t.Run("memory store needs no collection", func(t *testing.T) {
		cfg := valid()
		cfg.VectorStore.Type = VectorStoreMemory
		cfg.VectorStore.Collection = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Run("zero workers", func(t *testing.T) {
		cfg := valid()
		cfg.Sync.Workers = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
	})

	t.Run("negative debounce", func(t *testing.T) {
		cfg := valid()
		cfg.Sync.DeletionDebounce = -1
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
	})

	t.Run("zero debounce is immediate deletion", func(t *testing.T) {
		cfg := valid()
		cfg.Sync.DeletionDebounce = 0
		assert.NoError(t, cfg.Validate())
	})

	t.Run("overlap at least chunk size", func(t *testing.T) {
		cfg := valid()
		cfg.Chunking.Overlap = cfg.Chunking.ChunkSize
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
	})

	t.Run("invalid source", func(t *testing.T) {
		cfg := valid()
		cfg.Sources = append(cfg.Sources, Source{ID: "broken", Type: SourceTypeGit})
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
	})

	t.Run("duplicate source ids", func(t *testing.T) {
		cfg := valid()
		cfg.Sources = append(cfg.Sources, Source{
			ID: "docs", Type: SourceTypeGit, Location: "https://example.com/r.git",
		})
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
	})
}

// TestChunkingConfig_Profile tests chunk profile fingerprinting
func TestChunkingConfig_Profile(t *testing.T) {
	a := ChunkingConfig{ChunkSize: 1000, Overlap: 200}
	b := ChunkingConfig{ChunkSize: 1000, Overlap: 200}
	c := ChunkingConfig{ChunkSize: 500, Overlap: 200}

	assert.Equal(t, a.Profile(), b.Profile())
	assert.NotEqual(t, a.Profile(), c.Profile())
	assert.Equal(t, "boundary:1000:200", a.Profile())
}

// TestChunkingConfig_ProcessorConfig tests pipeline parameter rendering
func TestChunkingConfig_ProcessorConfig(t *testing.T) {
	cfg := ChunkingConfig{ChunkSize: 800, Overlap: 100}
	pc := cfg.ProcessorConfig()

	assert.Equal(t, 800, pc["chunk_size"])
	assert.Equal(t, 100, pc["overlap"])
}
