package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/usage"
)

// ErrInvalidTransition is a stage change that skips, repeats or reverses a stage.
var ErrInvalidTransition = errors.New("invalid stage transition")

// Run is the state of one search. Only the goroutine executing the run
// mutates it.
type Run struct {
	ID           string
	ConnectionID string

	query     *domain.SearchQuery
	stage     domain.Stage
	hits      map[domain.Stage][]domain.RawHit
	records   []domain.ProgramRecord
	startedAt time.Time
	durations map[domain.Stage]time.Duration
	meter     *usage.RunMeter
}

func newRun(id string, q *domain.SearchQuery, startedAt time.Time) *Run {
	return &Run{
		ID:           id,
		ConnectionID: q.ConnectionID,
		query:        q,
		hits:         make(map[domain.Stage][]domain.RawHit),
		startedAt:    startedAt,
		durations:    make(map[domain.Stage]time.Duration),
		meter:        usage.NewMeter(),
	}
}

// advance moves the run to next. failed may be entered from any
// non-terminal stage; every other stage must directly follow the current one.
func (r *Run) advance(next domain.Stage) error {
	if r.stage.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, r.stage)
	}
	if next == domain.StageFailed {
		r.stage = next
		return nil
	}
	if next.Ordinal() < 0 || next.Ordinal() != r.stage.Ordinal()+1 {
		return fmt.Errorf("%w: %q -> %q", ErrInvalidTransition, r.stage, next)
	}
	r.stage = next
	return nil
}

func (r *Run) Query() *domain.SearchQuery { return r.query }

func (r *Run) StartedAt() time.Time { return r.startedAt }

func (r *Run) Meter() usage.Meter { return r.meter }

// Stage is the current stage, empty before the first transition.
func (r *Run) Stage() domain.Stage { return r.stage }

// Hits returns the capped hits recorded for a search stage.
func (r *Run) Hits(stage domain.Stage) []domain.RawHit { return r.hits[stage] }

// Records returns the extracted records in extraction order.
func (r *Run) Records() []domain.ProgramRecord { return r.records }

// StageDuration returns how long stage took.
func (r *Run) StageDuration(stage domain.Stage) time.Duration { return r.durations[stage] }
