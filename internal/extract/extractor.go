package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	infraerrors "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/errors"
	infrahttp "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/http"
	infralogger "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultMaxBodyBytes = 2 << 20
	defaultUserAgent    = "Mozilla/5.0 (compatible; ExchangeSearch/1.0)"
)

// Interpreter turns a parsed page into a program record.
type Interpreter interface {
	Interpret(ctx context.Context, page *Page) (*domain.ProgramRecord, error)
}

// Config configures page fetching.
type Config struct {
	Timeout      time.Duration `env:"EXTRACTION_TIMEOUT"        yaml:"timeout"`
	MaxBodyBytes int64         `env:"EXTRACTION_MAX_BODY_BYTES" yaml:"max_body_bytes"`
	UserAgent    string        `env:"EXTRACTION_USER_AGENT"     yaml:"user_agent"`
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultFetchTimeout
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
}

// PageExtractor is a provider.Extractor that fetches the hit URL.
type PageExtractor struct {
	client      *http.Client
	interpreter Interpreter
	maxBody     int64
	logger      infralogger.Logger
	now         func() time.Time
}

// NewPageExtractor creates a PageExtractor.
func NewPageExtractor(cfg Config, interpreter Interpreter, log infralogger.Logger) *PageExtractor {
	cfg.SetDefaults()
	return &PageExtractor{
		client: infrahttp.NewClient(&infrahttp.ClientConfig{
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
		}),
		interpreter: interpreter,
		maxBody:     cfg.MaxBodyBytes,
		logger:      log,
		now:         time.Now,
	}
}

// Extract fetches hit.URL and interprets it. Every error is an
// *domain.ExtractionFailure.
func (e *PageExtractor) Extract(ctx context.Context, hit domain.RawHit) (*domain.ProgramRecord, error) {
	page, err := e.fetch(ctx, hit.URL)
	if err != nil {
		return nil, &domain.ExtractionFailure{URL: hit.URL, Err: err}
	}

	record, err := e.interpreter.Interpret(ctx, page)
	if err != nil {
		return nil, &domain.ExtractionFailure{URL: hit.URL, Err: err}
	}

	if record.ProgramURL == "" {
		record.ProgramURL = hit.URL
	}
	if record.Highlights == nil {
		record.Highlights = []string{}
	}
	record.MatchScore = nil
	record.ExtractedAt = e.now().UTC()

	e.logger.Debug("Extracted program",
		infralogger.String("url", hit.URL),
		infralogger.String("program_name", record.ProgramName),
		infralogger.String("institution", record.Institution),
	)
	return record, nil
}

func (e *PageExtractor) fetch(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if httpErr := infraerrors.ParseHTTPError(resp); httpErr != nil {
		return nil, httpErr
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "html") {
		return nil, fmt.Errorf("unsupported content type %q", ct)
	}

	return ParsePage(pageURL, io.LimitReader(resp.Body, e.maxBody))
}
