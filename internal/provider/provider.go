// Package provider defines the search and extraction collaborators of the
// pipeline and the decorators shared by every backend.
package provider

import (
	"context"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
)

// SearchProvider returns raw hits for shaped query text. scope is one of
// domain.SearchStages.
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, text string, scope domain.Stage) ([]domain.RawHit, error)
}

// Extractor turns one hit into a program record.
type Extractor interface {
	Extract(ctx context.Context, hit domain.RawHit) (*domain.ProgramRecord, error)
}

// SearchFunc adapts a function to SearchProvider.
type SearchFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, text string, scope domain.Stage) ([]domain.RawHit, error)
}

func (f SearchFunc) Name() string { return f.ProviderName }

func (f SearchFunc) Search(ctx context.Context, text string, scope domain.Stage) ([]domain.RawHit, error) {
	return f.Fn(ctx, text, scope)
}

// ExtractFunc adapts a function to Extractor.
type ExtractFunc func(ctx context.Context, hit domain.RawHit) (*domain.ProgramRecord, error)

func (f ExtractFunc) Extract(ctx context.Context, hit domain.RawHit) (*domain.ProgramRecord, error) {
	return f(ctx, hit)
}
