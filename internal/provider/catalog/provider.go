package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
)

const (
	providerName   = "catalog"
	defaultMaxHits = 20
	snippetLength  = 300
)

var searchFields = []string{"program_name^3", "institution^2", "description", "highlights", "location"}

// Provider is a provider.SearchProvider over the program catalog index.
type Provider struct {
	client  *es.Client
	index   string
	maxHits int
}

// NewProvider creates a catalog search provider.
func NewProvider(client *es.Client, index string, maxHits int) *Provider {
	if maxHits <= 0 {
		maxHits = defaultMaxHits
	}
	return &Provider{client: client, index: index, maxHits: maxHits}
}

func (p *Provider) Name() string { return providerName }

// Search runs a multi_match query. site: hints in text are ignored.
func (p *Provider) Search(ctx context.Context, text string, scope domain.Stage) ([]domain.RawHit, error) {
	query := map[string]any{
		"size":    p.maxHits,
		"_source": []string{"program_name", "institution", "description", "program_url"},
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     stripSiteHints(text),
				"fields":    searchFields,
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := p.client.Search(
		p.client.Search.WithContext(ctx),
		p.client.Search.WithIndex(p.index),
		p.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("elasticsearch returned error [%d]: %s", res.StatusCode, string(body))
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err = json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]domain.RawHit, 0, len(esResponse.Hits.Hits))
	for _, h := range esResponse.Hits.Hits {
		doc := h.Source
		if doc.ProgramURL == "" {
			continue
		}
		title := doc.ProgramName
		if doc.Institution != "" {
			title += " - " + doc.Institution
		}
		hits = append(hits, domain.RawHit{
			URL:     doc.ProgramURL,
			Title:   title,
			Snippet: truncate(doc.Description, snippetLength),
			Source:  providerName,
			Stage:   scope,
		})
	}
	return hits, nil
}

func stripSiteHints(text string) string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		if strings.HasPrefix(f, "site:") || f == "OR" {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
