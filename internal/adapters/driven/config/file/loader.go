package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.ConfigLoader = (*Loader)(nil)

// Environment variables consulted during Load.
const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "VECSYNC_CONFIG"

	// DefaultAPIKeyEnv holds the embedding API key unless the config
	// names a different variable via embedding.api_key_env.
	DefaultAPIKeyEnv = "VECSYNC_EMBEDDING_API_KEY"

	// EnvQdrantAPIKey holds the Qdrant API key for managed deployments.
	EnvQdrantAPIKey = "VECSYNC_QDRANT_API_KEY"

	// EnvDataDir overrides storage.data_dir.
	EnvDataDir = "VECSYNC_DATA_DIR"

	// EnvLogLevel overrides log.level.
	EnvLogLevel = "VECSYNC_LOG_LEVEL"

	// EnvPollInterval overrides sync.poll_interval.
	EnvPollInterval = "VECSYNC_POLL_INTERVAL"
)

// Loader reads configuration from a TOML file with environment
// overrides.
type Loader struct {
	path string
}

// NewLoader creates a loader for the given path. An empty path falls
// back to $VECSYNC_CONFIG, then ~/.vecsync/config.toml.
func NewLoader(path string) *Loader {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".vecsync", "config.toml")
		} else {
			path = "config.toml"
		}
	}
	return &Loader{path: path}
}

// Path returns the configuration file path being read.
func (l *Loader) Path() string {
	return l.path
}

// Load reads, merges, and validates the configuration.
func (l *Loader) Load() (domain.Config, error) {
	cfg := domain.DefaultConfig()

	data, err := os.ReadFile(l.path)
	if err != nil {
		return domain.Config{}, fmt.Errorf("reading config %s: %w", l.path, err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return domain.Config{}, fmt.Errorf("parsing config %s: %w", l.path, err)
	}
	if err := raw.apply(&cfg); err != nil {
		return domain.Config{}, fmt.Errorf("config %s: %w", l.path, err)
	}
	if err := applyEnv(&cfg, raw.Embedding.APIKeyEnv); err != nil {
		return domain.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return domain.Config{}, fmt.Errorf("config %s: %w", l.path, err)
	}
	return cfg, nil
}

// fileConfig mirrors the TOML schema. Pointer fields distinguish an
// explicit zero from an omitted key where zero is meaningful.
type fileConfig struct {
	Embedding   embeddingSection   `toml:"embedding"`
	VectorStore vectorStoreSection `toml:"vector_store"`
	Storage     storageSection     `toml:"storage"`
	Sync        syncSection        `toml:"sync"`
	Chunking    chunkingSection    `toml:"chunking"`
	Log         logSection         `toml:"log"`
	Sources     []sourceSection    `toml:"sources"`
}

type embeddingSection struct {
	Provider          string `toml:"provider"`
	BaseURL           string `toml:"base_url"`
	APIKeyEnv         string `toml:"api_key_env"`
	Model             string `toml:"model"`
	Dimensions        int    `toml:"dimensions"`
	BatchSize         int    `toml:"batch_size"`
	MaxRetries        *int   `toml:"max_retries"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	MaxChunkBytes     int    `toml:"max_chunk_bytes"`
}

type vectorStoreSection struct {
	Type       string `toml:"type"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Collection string `toml:"collection"`
	UseTLS     bool   `toml:"use_tls"`
}

type storageSection struct {
	DataDir string `toml:"data_dir"`
}

type syncSection struct {
	Workers           int    `toml:"workers"`
	SourceConcurrency int    `toml:"source_concurrency"`
	DeletionDebounce  *int   `toml:"deletion_debounce"`
	PollInterval      string `toml:"poll_interval"`
	RequestTimeout    string `toml:"request_timeout"`
}

type chunkingSection struct {
	ChunkSize int  `toml:"chunk_size"`
	Overlap   *int `toml:"overlap"`
}

type logSection struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type sourceSection struct {
	Type            string   `toml:"type"`
	ID              string   `toml:"id"`
	Name            string   `toml:"name"`
	Location        string   `toml:"location"`
	Branch          string   `toml:"branch"`
	Include         []string `toml:"include"`
	Exclude         []string `toml:"exclude"`
	MaxFileSize     int64    `toml:"max_file_size"`
	CredentialsFile string   `toml:"credentials_file"`
	PollInterval    string   `toml:"poll_interval"`
}

// apply overlays the file's values onto the defaults.
func (f *fileConfig) apply(cfg *domain.Config) error {
	if f.Embedding.Provider != "" {
		cfg.Embedding.Provider = domain.EmbeddingProvider(f.Embedding.Provider)
		// Ollama has its own endpoint and model defaults; keep them
		// unless the file overrides below.
		if cfg.Embedding.Provider == domain.ProviderOllama {
			cfg.Embedding.BaseURL = "http://localhost:11434"
			cfg.Embedding.Model = "nomic-embed-text"
			cfg.Embedding.Dimensions = 768
		}
	}
	if f.Embedding.BaseURL != "" {
		cfg.Embedding.BaseURL = f.Embedding.BaseURL
	}
	if f.Embedding.Model != "" {
		cfg.Embedding.Model = f.Embedding.Model
	}
	if f.Embedding.Dimensions != 0 {
		cfg.Embedding.Dimensions = f.Embedding.Dimensions
	}
	if f.Embedding.BatchSize != 0 {
		cfg.Embedding.BatchSize = f.Embedding.BatchSize
	}
	if f.Embedding.MaxRetries != nil {
		cfg.Embedding.MaxRetries = *f.Embedding.MaxRetries
	}
	if f.Embedding.RequestsPerMinute != 0 {
		cfg.Embedding.RequestsPerMinute = f.Embedding.RequestsPerMinute
	}
	if f.Embedding.MaxChunkBytes != 0 {
		cfg.Embedding.MaxChunkBytes = f.Embedding.MaxChunkBytes
	}

	if f.VectorStore.Type != "" {
		cfg.VectorStore.Type = domain.VectorStoreType(f.VectorStore.Type)
	}
	if f.VectorStore.Host != "" {
		cfg.VectorStore.Host = f.VectorStore.Host
	}
	if f.VectorStore.Port != 0 {
		cfg.VectorStore.Port = f.VectorStore.Port
	}
	if f.VectorStore.Collection != "" {
		cfg.VectorStore.Collection = f.VectorStore.Collection
	}
	if f.VectorStore.UseTLS {
		cfg.VectorStore.UseTLS = true
	}

	if f.Storage.DataDir != "" {
		cfg.Storage.DataDir = f.Storage.DataDir
	}

	if f.Sync.Workers != 0 {
		cfg.Sync.Workers = f.Sync.Workers
	}
	if f.Sync.SourceConcurrency != 0 {
		cfg.Sync.SourceConcurrency = f.Sync.SourceConcurrency
	}
	if f.Sync.DeletionDebounce != nil {
		cfg.Sync.DeletionDebounce = *f.Sync.DeletionDebounce
	}
	if err := setDuration(&cfg.Sync.PollInterval, f.Sync.PollInterval, "sync.poll_interval"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Sync.RequestTimeout, f.Sync.RequestTimeout, "sync.request_timeout"); err != nil {
		return err
	}

	if f.Chunking.ChunkSize != 0 {
		cfg.Chunking.ChunkSize = f.Chunking.ChunkSize
	}
	if f.Chunking.Overlap != nil {
		cfg.Chunking.Overlap = *f.Chunking.Overlap
	}

	if f.Log.Level != "" {
		cfg.Log.Level = f.Log.Level
	}
	if f.Log.Format != "" {
		cfg.Log.Format = f.Log.Format
	}

	sources := make([]domain.Source, 0, len(f.Sources))
	for i := range f.Sources {
		src, err := f.Sources[i].toSource()
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}
	cfg.Sources = sources
	return nil
}

func (s *sourceSection) toSource() (domain.Source, error) {
	src := domain.Source{
		ID:              s.ID,
		Type:            s.Type,
		Name:            s.Name,
		Location:        s.Location,
		Branch:          s.Branch,
		Include:         s.Include,
		Exclude:         s.Exclude,
		MaxFileSize:     s.MaxFileSize,
		CredentialsFile: s.CredentialsFile,
	}
	if src.Name == "" {
		src.Name = src.ID
	}
	field := fmt.Sprintf("sources.%s.poll_interval", s.ID)
	if err := setDuration(&src.PollInterval, s.PollInterval, field); err != nil {
		return domain.Source{}, err
	}
	return src, nil
}

// setDuration parses a duration string like "90s" or "5m" into dst.
// Empty strings leave dst unchanged.
func setDuration(dst *time.Duration, value, field string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%w: %s %q: %v", domain.ErrInvalidInput, field, value, err)
	}
	if d < 0 {
		return fmt.Errorf("%w: %s cannot be negative", domain.ErrInvalidInput, field)
	}
	*dst = d
	return nil
}

// applyEnv overlays environment variables. Environment wins over the
// file so deployments can override without editing it.
func applyEnv(cfg *domain.Config, apiKeyEnv string) error {
	if apiKeyEnv == "" {
		apiKeyEnv = DefaultAPIKeyEnv
	}
	if key := os.Getenv(apiKeyEnv); key != "" {
		cfg.Embedding.APIKey = key
	}
	if key := os.Getenv(EnvQdrantAPIKey); key != "" {
		cfg.VectorStore.APIKey = key
	}
	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}
	if interval := os.Getenv(EnvPollInterval); interval != "" {
		if err := setDuration(&cfg.Sync.PollInterval, interval, EnvPollInterval); err != nil {
			return err
		}
	}
	return nil
}
