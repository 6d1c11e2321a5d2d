// Package response builds the search response envelope.
package response

import (
	"errors"
	"time"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/usage"
)

// Run is the read-only view of a search run the assembler needs.
type Run interface {
	Query() *domain.SearchQuery
	StartedAt() time.Time
	Meter() usage.Meter
}

// Assembler builds SearchResponse envelopes.
type Assembler struct {
	now func() time.Time
}

// NewAssembler creates an Assembler on the wall clock.
func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// Success builds the envelope of a completed run. totalFound always equals
// len(programs) and programs is never null.
func (a *Assembler) Success(run Run, ranked []domain.ProgramRecord) *domain.SearchResponse {
	programs := ranked
	if programs == nil {
		programs = []domain.ProgramRecord{}
	}
	total := len(programs)
	now := a.now()

	meter := run.Meter()
	return &domain.SearchResponse{
		Success:     true,
		Programs:    programs,
		TotalFound:  &total,
		SearchQuery: summary(run.Query()),
		Usage: &domain.Usage{
			SearchTime:      now.Sub(run.StartedAt()).Milliseconds(),
			AITokensUsed:    meter.Tokens(),
			SourcesSearched: meter.Sources(),
		},
		Timestamp: timestamp(now),
	}
}

// Failure builds the envelope of a failed run.
func (a *Assembler) Failure(run Run, errorType string, err error) *domain.SearchResponse {
	resp := &domain.SearchResponse{
		Success:   false,
		Error:     message(err),
		ErrorType: errorType,
		Timestamp: timestamp(a.now()),
	}
	if run != nil {
		resp.SearchQuery = summary(run.Query())
	}
	return resp
}

// Validation builds the envelope of a rejected query.
func (a *Assembler) Validation(err error) *domain.SearchResponse {
	return &domain.SearchResponse{
		Success:   false,
		Error:     message(err),
		ErrorType: domain.ErrorTypeValidation,
		Timestamp: timestamp(a.now()),
	}
}

// ErrorType classifies a run error.
func ErrorType(err error) string {
	if errors.Is(err, domain.ErrRunTimeout) {
		return domain.ErrorTypeTimeout
	}
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return domain.ErrorTypeValidation
	}
	return domain.ErrorTypePipelineFailure
}

func summary(q *domain.SearchQuery) string {
	if q == nil {
		return ""
	}
	return q.Summary()
}

func message(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
