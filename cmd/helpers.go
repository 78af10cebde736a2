package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hfarouk/docdex/internal/chunker"
	"github.com/hfarouk/docdex/internal/config"
	"github.com/hfarouk/docdex/internal/db"
	"github.com/hfarouk/docdex/internal/embeddings"
	"github.com/hfarouk/docdex/internal/ingest"
	"github.com/hfarouk/docdex/internal/llm"
	"github.com/hfarouk/docdex/internal/queue"
	"github.com/hfarouk/docdex/internal/retriever"
	"github.com/hfarouk/docdex/internal/store"
	"github.com/hfarouk/docdex/internal/vectorindex"
	"github.com/hfarouk/docdex/internal/worker"
)

// app bundles the collaborators every command needs: database, stores,
// queue, index, and the configured providers.
type app struct {
	cfg       *config.Config
	db        *db.DB
	store     *store.Store
	queue     *queue.Queue
	index     *vectorindex.Manager
	embedder  embeddings.Embedder
	provider  llm.Provider
	retriever *retriever.Retriever
	ingest    *ingest.Service
	log       *slog.Logger
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `docdex init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openApp opens the database, index, and providers under cfg.DataDir.
// The caller must Close the returned app.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	database, err := db.Open(filepath.Join(cfg.DataDir, "docdex.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	st := store.New(database)
	q := queue.New(database, time.Duration(cfg.Worker.LeaseSecs)*time.Second)

	index, err := vectorindex.NewManager(filepath.Join(cfg.DataDir, "index"), vectorindex.Params{
		MinTrainSize:      cfg.Index.MinTrainSize,
		TrainSampleCap:    cfg.Index.TrainSampleCap,
		BackfillBatchSize: cfg.Index.BackfillBatchSize,
		NProbe:            cfg.Index.NProbe,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("opening vector index: %w", err)
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	provider, err := llm.NewProvider(cfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	svc, err := ingest.New(st, q, filepath.Join(cfg.DataDir, "uploads"))
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating ingest service: %w", err)
	}

	return &app{
		cfg:       cfg,
		db:        database,
		store:     st,
		queue:     q,
		index:     index,
		embedder:  embedder,
		provider:  provider,
		retriever: retriever.New(embedder, index, st),
		ingest:    svc,
		log:       newLogger(),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// newWorker builds an indexing worker over the app's collaborators.
func (a *app) newWorker() *worker.Worker {
	return worker.New(a.store, a.queue, a.index, a.embedder, chunker.Options{
		Size:    a.cfg.Chunk.Size,
		Overlap: a.cfg.Chunk.Overlap,
	}, time.Duration(a.cfg.Worker.PollIntervalSecs)*time.Second, a.log)
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbedProvider
	if provider == "" {
		provider = cfg.Provider
	}

	apiKey := ""
	if envVar := config.APIKeyEnvVar(provider); envVar != "" {
		apiKey = os.Getenv(envVar)
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is required for %s embeddings", envVar, provider)
		}
	}

	embedCfg := *cfg
	embedCfg.EmbedProvider = provider
	return embeddings.New(&embedCfg, apiKey)
}
