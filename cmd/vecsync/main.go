// Command vecsync keeps a vector store in step with document sources.
//
// Sources, the embedding provider and the vector store are declared in
// a TOML config file located through $VECSYNC_CONFIG or
// ~/.vecsync/config.toml. The cli package documents the commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/custodia-labs/vecsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/vecsync/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/vecsync/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/vecsync/internal/adapters/driven/storage/sqlite"
	vecmemory "github.com/custodia-labs/vecsync/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/vecsync/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/vecsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/vecsync/internal/connectors"
	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/core/services"
	"github.com/custodia-labs/vecsync/internal/logger"
	"github.com/custodia-labs/vecsync/internal/normalisers"
	"github.com/custodia-labs/vecsync/internal/postprocessors"
	"github.com/custodia-labs/vecsync/internal/ratelimit"
)

// version is set via -ldflags at build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)

	if needsServices(os.Args[1:]) {
		app, err := newApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vecsync: %v\n", err)
			return err
		}
		defer app.close()

		cli.SetServices(cli.Services{
			Orchestrator: app.orchestrator,
			Scheduler:    app.scheduler,
			Sources:      app.sources,
			Query:        app.query,
		})
		cli.SetPreflight(app.preflight)
	}

	return cli.Execute(ctx)
}

// needsServices reports whether the invocation reaches a backing
// service. Help, completion and version output must work without a
// config file.
func needsServices(args []string) bool {
	if len(args) == 0 {
		return false
	}
	for _, arg := range args {
		switch arg {
		case "-h", "--help", "help", "version", "completion", "__complete":
			return false
		}
	}
	return true
}

// app holds the wired pipeline: driven adapters built from config and
// the driving services the commands call.
type app struct {
	cfg domain.Config
	log *logger.Logger

	store    *sqlite.Store
	vectors  driven.VectorStore
	embedder driven.EmbeddingService

	orchestrator *services.SyncOrchestrator
	scheduler    *services.Scheduler
	sources      *services.SourceService
	query        *services.QueryService
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := file.NewLoader("").Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}

	dataDir, err := resolveDataDir(cfg.Storage)
	if err != nil {
		a.close()
		return nil, err
	}

	a.store, err = sqlite.NewStore(dataDir)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}

	a.vectors, err = newVectorStore(cfg.VectorStore)
	if err != nil {
		a.close()
		return nil, err
	}

	a.embedder, err = newEmbedder(cfg.Embedding)
	if err != nil {
		a.close()
		return nil, err
	}

	factory := connectors.NewDefaultFactory(connectors.DefaultOptions{
		CacheDir:     filepath.Join(dataDir, "git"),
		DriveLimiter: driveLimiter(),
	})

	registry := normalisers.New()
	normalisers.RegisterDefaults(registry)

	chain, err := newProcessorChain(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	profile := cfg.Chunking.Profile()
	planner := services.NewPlanner(cfg.Sync.DeletionDebounce, profile)
	worker := services.NewEmbedWorker(registry, chain, a.embedder, a.vectors, cfg.Embedding, log)
	reconciler := services.NewReconciler(a.vectors, a.store.SyncStateStore(), log)

	a.orchestrator = services.NewSyncOrchestrator(
		a.store.SourceStore(),
		a.store.SyncStateStore(),
		a.store.SyncCursorStore(),
		a.store.SyncRunStore(),
		factory, planner, worker, reconciler,
		cfg.Sync, profile, log,
	)
	a.scheduler = services.NewScheduler(a.orchestrator, a.store.SourceStore(), factory, cfg.Sync, nil, log)
	a.sources = services.NewSourceService(a.store.SourceStore(), a.store.SyncStateStore(), a.store.SyncCursorStore(), a.vectors, log)
	a.query = services.NewQueryService(a.embedder, a.vectors, log)

	if err := a.sources.Reconcile(ctx, cfg.Sources); err != nil {
		a.close()
		return nil, fmt.Errorf("reconciling sources: %w", err)
	}

	log.Debug("pipeline initialised",
		zap.Int("sources", len(cfg.Sources)),
		zap.String("embedding_model", a.embedder.ModelName()),
		zap.String("vector_store", string(cfg.VectorStore.Type)))

	return a, nil
}

// preflight verifies the vector store and embedding provider before a
// pipeline command runs, so misconfiguration fails fast instead of
// partway through a run. The collection check also creates it on the
// first ever run.
func (a *app) preflight(ctx context.Context) error {
	if t := a.cfg.Sync.RequestTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	if err := a.vectors.HealthCheck(ctx); err != nil {
		return fmt.Errorf("vector store: %w", err)
	}
	if err := a.vectors.EnsureCollection(ctx, a.embedder.Dimensions()); err != nil {
		return fmt.Errorf("vector store: %w", err)
	}
	if err := a.embedder.Ping(ctx); err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}
	return nil
}

func (a *app) close() {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.vectors != nil {
		_ = a.vectors.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.log.Sync()
}

// resolveDataDir expands the configured data directory, defaulting to
// ~/.vecsync/data. The metadata database and the git clone cache both
// live under it.
func resolveDataDir(cfg domain.StorageConfig) (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".vecsync", "data"), nil
}

func newVectorStore(cfg domain.VectorStoreConfig) (driven.VectorStore, error) {
	switch cfg.Type {
	case domain.VectorStoreQdrant:
		return qdrant.New(qdrant.Config{
			Host:       cfg.Host,
			Port:       cfg.Port,
			Collection: cfg.Collection,
			APIKey:     cfg.APIKey,
			UseTLS:     cfg.UseTLS,
		})
	case domain.VectorStoreMemory:
		return vecmemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("%w: vector store type %q", domain.ErrUnsupportedType, cfg.Type)
	}
}

// newEmbedder builds the configured embedding service. The limiter is
// created even for an unlimited quota: it still honours Retry-After
// backoff from 429 responses.
func newEmbedder(cfg domain.EmbeddingConfig) (driven.EmbeddingService, error) {
	limiter := ratelimit.PerMinute(cfg.RequestsPerMinute, 0)

	switch cfg.Provider {
	case domain.ProviderOpenAI:
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Limiter:    limiter,
		})
	case domain.ProviderOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Limiter:    limiter,
		}), nil
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, cfg.Provider)
	}
}

// newProcessorChain builds the chunk-production chain through the
// registry so chunker parameters flow from config the same way
// user-declared processors would.
func newProcessorChain(cfg domain.Config) (*postprocessors.Chain, error) {
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)

	chunkCfg := cfg.Chunking.ProcessorConfig()
	chunkCfg["max_bytes"] = cfg.Embedding.MaxChunkBytes

	chunkProc, err := registry.Build("chunker", chunkCfg)
	if err != nil {
		return nil, fmt.Errorf("building chunker: %w", err)
	}
	return postprocessors.NewChain(chunkProc), nil
}

// driveLimiter bounds Google Drive API calls. Drive's default per-user
// quota is 12000 queries per minute; one shared limiter keeps
// concurrent enumerations well under it.
func driveLimiter() *ratelimit.Limiter {
	return ratelimit.PerMinute(600, 0)
}
