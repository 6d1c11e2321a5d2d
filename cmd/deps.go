package cmd

import (
	"context"
	"fmt"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/cache"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/config"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/extract"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/pipeline"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/provider"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/provider/catalog"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/provider/websearch"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/query"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/sse"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/telemetry"
	infraes "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/elasticsearch"
	infralogger "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
	infraredis "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/redis"
)

const healthPingTimeout = 2 * time.Second

// deps holds the wired service components shared by serve and search.
type deps struct {
	Config       *config.Config
	Logger       infralogger.Logger
	Telemetry    *telemetry.Provider
	Registry     *sse.Registry
	Normalizer   *query.Normalizer
	Orchestrator *pipeline.Orchestrator

	redis *redis.Client
	es    *es.Client
}

type depsOptions struct {
	configPath  string
	debug       bool
	outputPaths []string
}

func newDeps(ctx context.Context, opts depsOptions) (*deps, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if opts.debug {
		cfg.Service.Debug = true
		cfg.Logging.Level = "debug"
	}

	log, err := infralogger.New(infralogger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
		OutputPaths: opts.outputPaths,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	log = log.With(infralogger.String("service", cfg.Service.Name))

	d := &deps{
		Config:     cfg,
		Logger:     log,
		Telemetry:  telemetry.NewProvider(),
		Normalizer: query.NewNormalizer(cfg.Query),
	}
	d.Registry = sse.NewRegistry(log,
		sse.WithConfig(cfg.SSE),
		sse.WithEvictHook(func(string) { d.Telemetry.IncrementSlowClientEvicted() }),
		sse.WithCountHook(d.Telemetry.SetConnections),
	)

	if err = d.wirePipeline(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *deps) wirePipeline(ctx context.Context) error {
	cfg := d.Config

	searchers := []provider.SearchProvider{
		provider.NewResilient(websearch.New(cfg.Search.Web), cfg.Search.Resilience, d.Logger),
	}

	var indexer pipeline.Indexer
	if cfg.Elasticsearch.Enabled {
		d.Logger.Info("Connecting to Elasticsearch", infralogger.String("url", cfg.Elasticsearch.URL))
		client, err := infraes.NewClient(ctx, cfg.Elasticsearch, d.Logger)
		if err != nil {
			return fmt.Errorf("connect elasticsearch: %w", err)
		}
		d.es = client
		indexer = catalog.NewIndexer(client, cfg.Elasticsearch.Index)
		if cfg.Search.Catalog {
			searchers = append(searchers, provider.NewResilient(
				catalog.NewProvider(client, cfg.Elasticsearch.Index, cfg.Pipeline.MaxHitsPerStage),
				cfg.Search.Resilience, d.Logger))
		}
	}

	var search provider.SearchProvider = searchers[0]
	if len(searchers) > 1 {
		search = provider.NewFanout(searchers...)
	}

	var stageCache cache.StageCache = cache.Nop{}
	if cfg.Redis.Enabled {
		client, err := infraredis.NewClient(ctx, cfg.Redis.Config)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		d.redis = client
		stageCache = cache.NewRedisStageCache(client, cfg.Redis.CacheTTL)
	}

	var interpreter extract.Interpreter = extract.NewHeuristicInterpreter()
	if cfg.Anthropic.Enabled {
		interpreter = extract.NewClaudeInterpreter(cfg.Anthropic)
		d.Logger.Info("Claude interpreter enabled", infralogger.String("model", cfg.Anthropic.Model))
	}

	d.Orchestrator = pipeline.NewOrchestrator(cfg.Pipeline, pipeline.Dependencies{
		Search:    search,
		Extractor: extract.NewPageExtractor(cfg.Extraction, interpreter, d.Logger),
		Publisher: d.Registry,
		Cache:     stageCache,
		Indexer:   indexer,
		Telemetry: d.Telemetry,
	}, d.Logger)

	d.Logger.Info("Search pipeline ready",
		infralogger.String("provider", search.Name()),
		infralogger.Bool("cache", cfg.Redis.Enabled),
		infralogger.Bool("catalog_index", indexer != nil),
	)
	return nil
}

// redisPing returns nil when redis is disabled.
func (d *deps) redisPing() func() error {
	if d.redis == nil {
		return nil
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), healthPingTimeout)
		defer cancel()
		return d.redis.Ping(ctx).Err()
	}
}

// elasticsearchPing returns nil when elasticsearch is disabled.
func (d *deps) elasticsearchPing() func() error {
	if d.es == nil {
		return nil
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), healthPingTimeout)
		defer cancel()
		res, err := d.es.Ping(d.es.Ping.WithContext(ctx))
		if err != nil {
			return err
		}
		defer func() {
			_ = res.Body.Close()
		}()
		if res.IsError() {
			return fmt.Errorf("elasticsearch ping returned %s", res.Status())
		}
		return nil
	}
}

// Close releases connections after background indexing has finished.
func (d *deps) Close() {
	if d.Orchestrator != nil {
		d.Orchestrator.Wait()
	}
	if d.Registry != nil {
		d.Registry.Close()
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.Logger.Warn("Failed to close redis client", infralogger.Error(err))
		}
	}
	_ = d.Logger.Sync()
}
