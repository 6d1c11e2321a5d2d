// Package usage accounts AI tokens and searched sources for one run.
package usage

import (
	"context"
	"sync"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
)

// Meter accumulates usage. It is safe for concurrent use by extraction workers.
type Meter interface {
	AddTokens(n int64)
	AddSources(urls ...string)
	Tokens() int64
	Sources() int
}

// RunMeter is the Meter attached to every search run. Sources are counted
// once per normalized URL.
type RunMeter struct {
	mu      sync.Mutex
	tokens  int64
	sources map[string]struct{}
}

// NewMeter creates an empty RunMeter.
func NewMeter() *RunMeter {
	return &RunMeter{sources: make(map[string]struct{})}
}

func (m *RunMeter) AddTokens(n int64) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.tokens += n
	m.mu.Unlock()
}

func (m *RunMeter) AddSources(urls ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range urls {
		if key := domain.NormalizeURL(u); key != "" {
			m.sources[key] = struct{}{}
		}
	}
}

func (m *RunMeter) Tokens() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens
}

func (m *RunMeter) Sources() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sources)
}

type discard struct{}

func (discard) AddTokens(int64) {}
func (discard) AddSources(...string) {}
func (discard) Tokens() int64 { return 0 }
func (discard) Sources() int { return 0 }

type contextKey struct{}

// WithMeter attaches m to ctx.
func WithMeter(ctx context.Context, m Meter) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// FromContext returns the attached Meter, or one that discards everything.
func FromContext(ctx context.Context) Meter {
	if m, ok := ctx.Value(contextKey{}).(Meter); ok && m != nil {
		return m
	}
	return discard{}
}
