// Package app wires configuration, providers and stores into a running
// ingestion pipeline.
package app

import (
	"go.uber.org/zap"

	"ideagraph-backend/internal/cluster"
	"ideagraph-backend/internal/config"
	"ideagraph-backend/internal/embed"
	"ideagraph-backend/internal/graph"
	"ideagraph-backend/internal/llm"
	"ideagraph-backend/internal/observability"
	"ideagraph-backend/internal/pipeline"
	"ideagraph-backend/internal/placement"
	"ideagraph-backend/internal/vectorstore"
	"ideagraph-backend/pkg/errors"
	"ideagraph-backend/internal/logger"
)

// Container holds all application dependencies.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Collector
	Vectors  *vectorstore.Store
	Clusters *cluster.Assigner
	Graph    *graph.Store
	Embedder embed.Embedder
	Provider llm.Provider
	Engine   *placement.Engine
	Pipeline *pipeline.Pipeline

	watcher *config.Watcher
}

// New builds the full dependency graph from configuration. When
// configPath is non-empty the file is also watched: tunables edits
// apply to the running pipeline without a restart.
func New(cfg *config.Config, configPath string) (*Container, error) {
	log, err := logger.New(cfg.Logging, cfg.Environment)
	if err != nil {
		return nil, errors.NewInternal("logger init failed", err)
	}

	metrics := observability.NewCollector("ideagraph")

	vectors := vectorstore.New(cfg.Embedding.Dimension)
	clusters := cluster.NewAssigner(cfg.Tunables.ClusterThreshold, log)
	graphStore := graph.NewStore(log)

	provider, err := buildProvider(cfg, log)
	if err != nil {
		return nil, err
	}

	embedder, err := buildEmbedder(cfg, metrics)
	if err != nil {
		return nil, err
	}

	extractor := llm.NewExtractor(provider)
	oracle := llm.NewPlacementOracle(provider)
	engine := placement.NewEngine(graphStore, oracle, log, metrics)

	pipe := pipeline.New(extractor, embedder, vectors, clusters, graphStore, engine,
		pipeline.Options{
			TopK:          cfg.Tunables.TopK,
			ContextChunks: cfg.Tunables.ContextChunks,
			LowSimilarity: cfg.Tunables.PlacementThreshold,
		}, log, metrics)

	c := &Container{
		Config:   cfg,
		Logger:   log,
		Metrics:  metrics,
		Vectors:  vectors,
		Clusters: clusters,
		Graph:    graphStore,
		Embedder: embedder,
		Provider: provider,
		Engine:   engine,
		Pipeline: pipe,
	}

	if configPath != "" {
		if err := c.watchConfig(configPath); err != nil {
			// Hot reload is a convenience, not a requirement.
			log.Warn("config watcher disabled", zap.Error(err))
		}
	}
	return c, nil
}

// Close releases background resources. Safe to call more than once.
func (c *Container) Close() {
	if c.watcher != nil {
		c.watcher.Stop()
		c.watcher = nil
	}
	_ = c.Logger.Sync()
}

func (c *Container) watchConfig(path string) error {
	w, err := config.NewWatcher(path, c.Config.Tunables, c.Logger)
	if err != nil {
		return err
	}
	w.OnChange(func(t config.TunablesConfig) {
		c.Clusters.SetThreshold(t.ClusterThreshold)
		c.Pipeline.SetOptions(pipeline.Options{
			TopK:          t.TopK,
			ContextChunks: t.ContextChunks,
			LowSimilarity: t.PlacementThreshold,
		})
	})
	c.watcher = w
	return nil
}

// buildProvider selects the completion backend. The mock provider needs
// no credentials and keeps the whole pipeline runnable offline.
func buildProvider(cfg *config.Config, log *zap.Logger) (llm.Provider, error) {
	if cfg.LLM.UseMock {
		log.Info("using mock completion provider")
		return llm.NewMockProvider(), nil
	}
	if cfg.LLM.APIKey == "" {
		return nil, errors.NewValidation("llm api key is required unless the mock provider is enabled")
	}
	inner := llm.NewOpenAIProvider(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	return llm.NewBreakerProvider(inner, llm.DefaultBreakerConfig("openai"), log), nil
}

func buildEmbedder(cfg *config.Config, metrics *observability.Collector) (embed.Embedder, error) {
	var inner embed.Embedder
	if cfg.LLM.UseMock {
		inner = embed.NewMock(cfg.Embedding.Dimension)
	} else {
		inner = embed.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.BaseURL,
			embed.WithModel(cfg.Embedding.Model),
			embed.WithDimension(cfg.Embedding.Dimension))
	}
	return embed.NewCached(inner, cfg.Embedding.CacheTTL, metrics), nil
}
