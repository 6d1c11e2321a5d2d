package elasticsearch

import (
	"time"

	"github.com/jonesrussell/north-cloud/exchange-search/infrastructure/retry"
)

// Config holds Elasticsearch client settings.
type Config struct {
	Enabled  bool   `env:"ELASTICSEARCH_ENABLED"  yaml:"enabled"`
	URL      string `env:"ELASTICSEARCH_URL"      yaml:"url"`
	Username string `env:"ELASTICSEARCH_USERNAME" yaml:"username"`
	Password string `env:"ELASTICSEARCH_PASSWORD" yaml:"password"`
	APIKey   string `env:"ELASTICSEARCH_API_KEY"  yaml:"api_key"`
	// Index holds indexed exchange programs.
	Index       string        `env:"ELASTICSEARCH_INDEX" yaml:"index"`
	MaxRetries  int           `yaml:"max_retries"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
	TLS         TLSConfig     `yaml:"tls"`

	// RetryConfig controls startup connection attempts.
	RetryConfig *retry.Config `yaml:"-"`
}

// TLSConfig holds TLS settings for HTTPS clusters.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	CAFile             string `yaml:"ca_file"`
}

const (
	defaultURL         = "http://localhost:9200"
	defaultIndex       = "exchange_programs"
	defaultMaxRetries  = 3
	defaultPingTimeout = 5 * time.Second
)

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.Index == "" {
		c.Index = defaultIndex
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = defaultPingTimeout
	}
	if c.RetryConfig == nil {
		c.RetryConfig = &retry.Config{
			MaxAttempts:  5,
			InitialDelay: 2 * time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		}
	}
}
