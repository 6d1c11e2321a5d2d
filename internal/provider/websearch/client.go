// Package websearch queries a SearXNG instance through its JSON API.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	infraerrors "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/errors"
	infrahttp "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/http"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
)

const providerName = "searxng"

// Config holds SearXNG settings.
type Config struct {
	BaseURL    string        `env:"SEARCH_BASE_URL"   yaml:"base_url"`
	Timeout    time.Duration `env:"SEARCH_TIMEOUT"    yaml:"timeout"`
	Language   string        `env:"SEARCH_LANGUAGE"   yaml:"language"`
	Categories string        `yaml:"categories"`
	UserAgent  string        `yaml:"user_agent"`
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8888"
	}
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.Categories == "" {
		c.Categories = "general"
	}
}

// Client is a provider.SearchProvider backed by SearXNG.
type Client struct {
	baseURL    string
	language   string
	categories string
	http       *http.Client
}

// New creates a SearXNG client.
func New(cfg Config) *Client {
	cfg.SetDefaults()
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		language:   cfg.Language,
		categories: cfg.Categories,
		http: infrahttp.NewClient(&infrahttp.ClientConfig{
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
		}),
	}
}

type searchResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
		Engine  string `json:"engine"`
	} `json:"results"`
}

func (c *Client) Name() string { return providerName }

// Search runs text and tags each hit with scope.
func (c *Client) Search(ctx context.Context, text string, scope domain.Stage) ([]domain.RawHit, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("format", "json")
	params.Set("pageno", "1")
	params.Set("language", c.language)
	params.Set("categories", c.categories)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng request: %w", err)
	}
	defer resp.Body.Close()

	if httpErr := infraerrors.ParseHTTPError(resp); httpErr != nil {
		return nil, httpErr
	}

	var body searchResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode searxng response: %w", err)
	}

	hits := make([]domain.RawHit, 0, len(body.Results))
	for _, r := range body.Results {
		if r.URL == "" {
			continue
		}
		hits = append(hits, domain.RawHit{
			URL:     r.URL,
			Title:   strings.TrimSpace(r.Title),
			Snippet: strings.TrimSpace(r.Content),
			Source:  providerName,
			Stage:   scope,
		})
	}
	return hits, nil
}
