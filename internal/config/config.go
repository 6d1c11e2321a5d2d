// Package config loads the exchange search service configuration.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/extract"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/pipeline"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/provider"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/provider/websearch"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/query"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/sse"
	infraconfig "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/config"
	infraes "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/elasticsearch"
	infraredis "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/redis"
)

const (
	defaultServiceName = "exchange-search"
	defaultVersion     = "1.0.0"
	defaultPort        = 8095
	defaultCacheTTL    = 15 * time.Minute
)

// Config holds all configuration for the exchange search service.
type Config struct {
	Service       ServiceConfig             `yaml:"service"`
	Logging       infraconfig.LoggingConfig `yaml:"logging"`
	CORS          CORSConfig                `yaml:"cors"`
	Query         query.Config              `yaml:"query"`
	Pipeline      pipeline.Config           `yaml:"pipeline"`
	Search        SearchConfig              `yaml:"search"`
	Elasticsearch infraes.Config            `yaml:"elasticsearch"`
	Redis         RedisConfig               `yaml:"redis"`
	Extraction    extract.Config            `yaml:"extraction"`
	Anthropic     extract.ClaudeConfig      `yaml:"anthropic"`
	SSE           sse.Config                `yaml:"sse"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"EXCHANGE_SEARCH_PORT"  yaml:"port"`
	Debug   bool   `env:"EXCHANGE_SEARCH_DEBUG" yaml:"debug"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Enabled          bool     `yaml:"enabled"`
	AllowedOrigins   []string `env:"CORS_ORIGINS"     yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// SearchConfig selects and tunes the search backends.
type SearchConfig struct {
	Web        websearch.Config          `yaml:"web"`
	Resilience provider.ResilienceConfig `yaml:"resilience"`
	// Catalog adds the Elasticsearch catalog as a second backend when
	// elasticsearch is enabled.
	Catalog bool `env:"SEARCH_CATALOG_ENABLED" yaml:"catalog"`
}

// RedisConfig adds the stage cache TTL to the shared Redis settings.
type RedisConfig struct {
	infraredis.Config `yaml:",inline"`
	CacheTTL          time.Duration `env:"REDIS_CACHE_TTL" yaml:"cache_ttl"`
}

// Load loads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	cfg, err := infraconfig.LoadWithDefaults[Config](path, setDefaults)
	if err != nil {
		return nil, err
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = defaultServiceName
	}
	if cfg.Service.Version == "" {
		cfg.Service.Version = defaultVersion
	}
	if cfg.Service.Port == 0 {
		cfg.Service.Port = defaultPort
	}

	cfg.Logging.SetDefaults()

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.CORS.AllowedMethods) == 0 {
		cfg.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.CORS.AllowedHeaders) == 0 {
		cfg.CORS.AllowedHeaders = []string{"Content-Type", "Authorization", "Last-Event-ID"}
	}

	cfg.Query.SetDefaults()
	cfg.Search.Web.SetDefaults()
	cfg.Search.Resilience.SetDefaults()
	cfg.Elasticsearch.SetDefaults()
	cfg.Extraction.SetDefaults()
	cfg.Anthropic.SetDefaults()
	cfg.SSE.SetDefaults()

	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = defaultCacheTTL
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = "localhost:6379"
	}

	if cfg.Pipeline.ItemTimeout == 0 {
		cfg.Pipeline.ItemTimeout = cfg.Extraction.Timeout
	}
	cfg.Pipeline.SetDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := infraconfig.ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := infraconfig.ValidateURL("search.web.base_url", c.Search.Web.BaseURL); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if c.Elasticsearch.Enabled {
		if err := infraconfig.ValidateURL("elasticsearch.url", c.Elasticsearch.URL); err != nil {
			return err
		}
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return &infraconfig.ValidationError{Field: "redis.address", Message: "is required when redis is enabled"}
	}
	if c.Anthropic.Enabled && c.Anthropic.APIKey == "" {
		return &infraconfig.ValidationError{Field: "anthropic.api_key", Message: "is required when anthropic is enabled"}
	}
	if c.Extraction.MaxBodyBytes < 1 {
		return &infraconfig.ValidationError{Field: "extraction.max_body_bytes", Message: "must be greater than 0"}
	}
	return nil
}

func (c *Config) validatePipeline() error {
	p := c.Pipeline
	errs := []error{
		infraconfig.ValidatePositive("pipeline.max_hits_per_stage", p.MaxHitsPerStage),
		infraconfig.ValidatePositive("pipeline.max_results", p.MaxResults),
		infraconfig.ValidatePositive("pipeline.extraction_concurrency", p.ExtractionConcurrency),
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	if p.StageTimeout <= 0 || p.StageTimeout > p.RunTimeout {
		return &infraconfig.ValidationError{
			Field:   "pipeline.stage_timeout",
			Message: fmt.Sprintf("must be between 0 and run_timeout (%s)", p.RunTimeout),
		}
	}
	return nil
}
