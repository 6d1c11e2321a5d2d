package pipeline

import (
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_AdvanceForwardOnly(t *testing.T) {
	t.Parallel()

	run := newRun("r1", &domain.SearchQuery{ConnectionID: "c1"}, time.Now())
	assert.Equal(t, "c1", run.ConnectionID)

	order := []domain.Stage{
		domain.StageGeneral,
		domain.StageEducationSites,
		domain.StageProgramSpecific,
		domain.StageExtractingPrograms,
		domain.StageRankingPrograms,
		domain.StageComplete,
	}
	for _, stage := range order {
		require.NoError(t, run.advance(stage), stage)
	}
	require.ErrorIs(t, run.advance(domain.StageFailed), ErrInvalidTransition)
}

func TestRun_AdvanceRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from []domain.Stage
		next domain.Stage
	}{
		{name: "skip first stage", next: domain.StageEducationSites},
		{name: "repeat stage", from: []domain.Stage{domain.StageGeneral}, next: domain.StageGeneral},
		{name: "move backwards", from: []domain.Stage{domain.StageGeneral, domain.StageEducationSites}, next: domain.StageGeneral},
		{name: "skip to complete", from: []domain.Stage{domain.StageGeneral}, next: domain.StageComplete},
		{name: "unknown stage", next: domain.Stage("bogus")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			run := newRun("r", &domain.SearchQuery{}, time.Now())
			for _, s := range tt.from {
				require.NoError(t, run.advance(s))
			}
			require.ErrorIs(t, run.advance(tt.next), ErrInvalidTransition)
		})
	}
}

func TestRun_FailedFromAnyStage(t *testing.T) {
	t.Parallel()

	run := newRun("r", &domain.SearchQuery{}, time.Now())
	require.NoError(t, run.advance(domain.StageGeneral))
	require.NoError(t, run.advance(domain.StageFailed))
	assert.Equal(t, domain.StageFailed, run.Stage())
	require.ErrorIs(t, run.advance(domain.StageEducationSites), ErrInvalidTransition)
}
