package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Fanout queries several providers concurrently and concatenates their hits
// in provider order. It fails only when every provider fails.
type Fanout struct {
	providers []SearchProvider
}

// NewFanout creates a Fanout over providers.
func NewFanout(providers ...SearchProvider) *Fanout {
	return &Fanout{providers: providers}
}

func (f *Fanout) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

func (f *Fanout) Search(ctx context.Context, text string, scope domain.Stage) ([]domain.RawHit, error) {
	results := make([][]domain.RawHit, len(f.providers))
	errs := make([]error, len(f.providers))

	var g errgroup.Group
	for i, p := range f.providers {
		g.Go(func() error {
			results[i], errs[i] = p.Search(ctx, text, scope)
			return nil
		})
	}
	_ = g.Wait()

	var hits []domain.RawHit
	failed := 0
	for i := range f.providers {
		if errs[i] != nil {
			failed++
			continue
		}
		hits = append(hits, results[i]...)
	}
	if len(f.providers) > 0 && failed == len(f.providers) {
		return nil, errors.Join(errs...)
	}
	return hits, nil
}
