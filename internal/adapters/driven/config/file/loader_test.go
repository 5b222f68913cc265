package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewLoader(t *testing.T) {
	t.Run("explicit path wins", func(t *testing.T) {
		loader := NewLoader("/etc/vecsync/config.toml")
		assert.Equal(t, "/etc/vecsync/config.toml", loader.Path())
	})

	t.Run("env path fallback", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "/tmp/other.toml")
		loader := NewLoader("")
		assert.Equal(t, "/tmp/other.toml", loader.Path())
	})

	t.Run("home directory default", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "")
		loader := NewLoader("")
		assert.Contains(t, loader.Path(), filepath.Join(".vecsync", "config.toml"))
	})
}

func TestLoader_Load(t *testing.T) {
	t.Run("empty file yields defaults", func(t *testing.T) {
		t.Setenv(DefaultAPIKeyEnv, "")
		path := writeConfig(t, "")

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)

		assert.Equal(t, domain.ProviderOpenAI, cfg.Embedding.Provider)
		assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
		assert.Equal(t, 1536, cfg.Embedding.Dimensions)
		assert.Equal(t, domain.DefaultBatchSize, cfg.Embedding.BatchSize)
		assert.Equal(t, domain.VectorStoreQdrant, cfg.VectorStore.Type)
		assert.Equal(t, "vecsync_chunks", cfg.VectorStore.Collection)
		assert.Equal(t, domain.DefaultWorkers, cfg.Sync.Workers)
		assert.Equal(t, domain.DefaultPollInterval, cfg.Sync.PollInterval)
		assert.Equal(t, domain.DefaultChunkSize, cfg.Chunking.ChunkSize)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Empty(t, cfg.Sources)
	})

	t.Run("full file maps every section", func(t *testing.T) {
		path := writeConfig(t, `
[embedding]
provider = "openai"
base_url = "https://example.test/v1"
model = "text-embedding-3-large"
dimensions = 3072
batch_size = 25
max_retries = 5
requests_per_minute = 300
max_chunk_bytes = 4096

[vector_store]
type = "qdrant"
host = "qdrant.internal"
port = 7334
collection = "docs"
use_tls = true

[storage]
data_dir = "/var/lib/vecsync"

[sync]
workers = 8
source_concurrency = 2
deletion_debounce = 3
poll_interval = "5m"
request_timeout = "45s"

[chunking]
chunk_size = 800
overlap = 100

[log]
level = "debug"
format = "json"

[[sources]]
type = "git"
id = "handbook"
name = "Company Handbook"
location = "https://github.com/example/handbook.git"
branch = "main"
include = ["docs/**", "*.md"]
exclude = ["docs/drafts/**"]
max_file_size = 1048576
poll_interval = "2m"

[[sources]]
type = "filesystem"
id = "notes"
location = "/srv/notes"
`)

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)

		assert.Equal(t, "https://example.test/v1", cfg.Embedding.BaseURL)
		assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
		assert.Equal(t, 3072, cfg.Embedding.Dimensions)
		assert.Equal(t, 25, cfg.Embedding.BatchSize)
		assert.Equal(t, 5, cfg.Embedding.MaxRetries)
		assert.Equal(t, 300, cfg.Embedding.RequestsPerMinute)
		assert.Equal(t, 4096, cfg.Embedding.MaxChunkBytes)

		assert.Equal(t, "qdrant.internal", cfg.VectorStore.Host)
		assert.Equal(t, 7334, cfg.VectorStore.Port)
		assert.Equal(t, "docs", cfg.VectorStore.Collection)
		assert.True(t, cfg.VectorStore.UseTLS)

		assert.Equal(t, "/var/lib/vecsync", cfg.Storage.DataDir)

		assert.Equal(t, 8, cfg.Sync.Workers)
		assert.Equal(t, 2, cfg.Sync.SourceConcurrency)
		assert.Equal(t, 3, cfg.Sync.DeletionDebounce)
		assert.Equal(t, 5*time.Minute, cfg.Sync.PollInterval)
		assert.Equal(t, 45*time.Second, cfg.Sync.RequestTimeout)

		assert.Equal(t, 800, cfg.Chunking.ChunkSize)
		assert.Equal(t, 100, cfg.Chunking.Overlap)

		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)

		require.Len(t, cfg.Sources, 2)
		handbook := cfg.Sources[0]
		assert.Equal(t, "handbook", handbook.ID)
		assert.Equal(t, domain.SourceTypeGit, handbook.Type)
		assert.Equal(t, "Company Handbook", handbook.Name)
		assert.Equal(t, "main", handbook.Branch)
		assert.Equal(t, []string{"docs/**", "*.md"}, handbook.Include)
		assert.Equal(t, []string{"docs/drafts/**"}, handbook.Exclude)
		assert.Equal(t, int64(1048576), handbook.MaxFileSize)
		assert.Equal(t, 2*time.Minute, handbook.PollInterval)

		notes := cfg.Sources[1]
		assert.Equal(t, "notes", notes.Name, "name defaults to id")
		assert.Zero(t, notes.PollInterval, "unset poll interval uses the global default")
	})

	t.Run("ollama provider switches endpoint defaults", func(t *testing.T) {
		path := writeConfig(t, `
[embedding]
provider = "ollama"
`)

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderOllama, cfg.Embedding.Provider)
		assert.Equal(t, "http://localhost:11434", cfg.Embedding.BaseURL)
		assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
		assert.Equal(t, 768, cfg.Embedding.Dimensions)
	})

	t.Run("ollama defaults still overridable", func(t *testing.T) {
		path := writeConfig(t, `
[embedding]
provider = "ollama"
base_url = "http://embedder:11434"
model = "all-minilm"
dimensions = 384
`)

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)
		assert.Equal(t, "http://embedder:11434", cfg.Embedding.BaseURL)
		assert.Equal(t, "all-minilm", cfg.Embedding.Model)
		assert.Equal(t, 384, cfg.Embedding.Dimensions)
	})

	t.Run("explicit zero overlap kept", func(t *testing.T) {
		path := writeConfig(t, `
[chunking]
overlap = 0
`)

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)
		assert.Zero(t, cfg.Chunking.Overlap)
	})

	t.Run("missing file", func(t *testing.T) {
		loader := NewLoader(filepath.Join(t.TempDir(), "absent.toml"))

		_, err := loader.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "absent.toml")
	})

	t.Run("malformed toml", func(t *testing.T) {
		path := writeConfig(t, "[embedding\nprovider=")

		_, err := NewLoader(path).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing config")
	})

	t.Run("invalid duration", func(t *testing.T) {
		path := writeConfig(t, `
[sync]
poll_interval = "whenever"
`)

		_, err := NewLoader(path).Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "sync.poll_interval")
	})

	t.Run("validation failures surface", func(t *testing.T) {
		path := writeConfig(t, `
[embedding]
provider = "acme"
`)

		_, err := NewLoader(path).Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("duplicate source ids rejected", func(t *testing.T) {
		path := writeConfig(t, `
[[sources]]
type = "filesystem"
id = "notes"
location = "/srv/notes"

[[sources]]
type = "filesystem"
id = "notes"
location = "/srv/other"
`)

		_, err := NewLoader(path).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate source id")
	})
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Run("api key from default env", func(t *testing.T) {
		t.Setenv(DefaultAPIKeyEnv, "sk-from-env")
		path := writeConfig(t, "")

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)
		assert.Equal(t, "sk-from-env", cfg.Embedding.APIKey)
	})

	t.Run("api key from named env", func(t *testing.T) {
		t.Setenv("ACME_EMBED_KEY", "sk-acme")
		path := writeConfig(t, `
[embedding]
api_key_env = "ACME_EMBED_KEY"
`)

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)
		assert.Equal(t, "sk-acme", cfg.Embedding.APIKey)
	})

	t.Run("qdrant api key", func(t *testing.T) {
		t.Setenv(EnvQdrantAPIKey, "qd-secret")
		path := writeConfig(t, "")

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)
		assert.Equal(t, "qd-secret", cfg.VectorStore.APIKey)
	})

	t.Run("data dir and log level", func(t *testing.T) {
		t.Setenv(EnvDataDir, "/mnt/vecsync")
		t.Setenv(EnvLogLevel, "debug")
		path := writeConfig(t, `
[storage]
data_dir = "/var/lib/vecsync"

[log]
level = "warn"
`)

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)
		assert.Equal(t, "/mnt/vecsync", cfg.Storage.DataDir, "environment wins over file")
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("poll interval", func(t *testing.T) {
		t.Setenv(EnvPollInterval, "90s")
		path := writeConfig(t, `
[sync]
poll_interval = "5m"
`)

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, cfg.Sync.PollInterval)
	})

	t.Run("invalid env poll interval", func(t *testing.T) {
		t.Setenv(EnvPollInterval, "sometimes")
		path := writeConfig(t, "")

		_, err := NewLoader(path).Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
