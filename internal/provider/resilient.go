package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/exchange-search/infrastructure/circuitbreaker"
	infraerrors "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/errors"
	infralogger "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/exchange-search/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultRatePerSecond = 5
	defaultBurst         = 5
)

// ResilienceConfig configures the decorator around a SearchProvider.
type ResilienceConfig struct {
	RatePerSecond    float64       `yaml:"rate_per_second"`
	Burst            int           `yaml:"burst"`
	MaxAttempts      int           `yaml:"max_attempts"`
	InitialBackoff   time.Duration `yaml:"initial_backoff"`
	FailureThreshold int           `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

// SetDefaults fills zero fields.
func (c *ResilienceConfig) SetDefaults() {
	if c.RatePerSecond == 0 {
		c.RatePerSecond = defaultRatePerSecond
	}
	if c.Burst == 0 {
		c.Burst = defaultBurst
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 2
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 200 * time.Millisecond
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 30 * time.Second
	}
}

// Resilient rate limits, retries and circuit-breaks a SearchProvider.
type Resilient struct {
	next    SearchProvider
	limiter *rate.Limiter
	breaker *circuitbreaker.Breaker
	retry   retry.Config
}

// NewResilient wraps next.
func NewResilient(next SearchProvider, cfg ResilienceConfig, log infralogger.Logger) *Resilient {
	cfg.SetDefaults()
	name := next.Name()

	return &Resilient{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.FailureThreshold,
			Timeout:          cfg.OpenTimeout,
			OnStateChange: func(from, to circuitbreaker.State) {
				log.Warn("Search provider circuit changed state",
					infralogger.String("provider", name),
					infralogger.String("from", from.String()),
					infralogger.String("to", to.String()),
				)
			},
		}),
		retry: retry.Config{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.InitialBackoff,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
			IsRetryable:  isRetryable,
		},
	}
}

func (r *Resilient) Name() string { return r.next.Name() }

func (r *Resilient) Search(ctx context.Context, text string, scope domain.Stage) ([]domain.RawHit, error) {
	var hits []domain.RawHit
	err := r.breaker.Execute(ctx, func() error {
		return retry.Retry(ctx, r.retry, func() error {
			if err := r.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
			h, err := r.next.Search(ctx, text, scope)
			if err != nil {
				return err
			}
			hits = h
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func isRetryable(err error) bool {
	if _, ok := infraerrors.GetHTTPStatusCode(err); ok {
		return infraerrors.IsTemporary(err)
	}
	return retry.DefaultIsRetryable(err)
}
