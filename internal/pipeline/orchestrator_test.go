package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/cache"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/pipeline"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/provider"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/sse"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/telemetry"
	infralogger "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
)

var errUpstream = errors.New("upstream unavailable")

type published struct {
	id    string
	event sse.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(id string, event sse.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{id: id, event: event})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		if data, ok := e.event.Data.(sse.ProgressData); ok {
			out = append(out, e.event.Type+":"+string(data.Stage))
			continue
		}
		out = append(out, e.event.Type)
	}
	return out
}

type recordingIndexer struct {
	mu      sync.Mutex
	indexed []domain.ProgramRecord
}

func (ix *recordingIndexer) Index(_ context.Context, records []domain.ProgramRecord) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.indexed = append(ix.indexed, records...)
	return len(records), nil
}

// stageSearch answers each stage from a fixed table; missing stages return
// zero hits.
func stageSearch(byStage map[domain.Stage][]domain.RawHit, errs map[domain.Stage]error, calls *atomic.Int32) provider.SearchProvider {
	return provider.SearchFunc{
		ProviderName: "fake",
		Fn: func(_ context.Context, _ string, scope domain.Stage) ([]domain.RawHit, error) {
			if calls != nil {
				calls.Add(1)
			}
			if err := errs[scope]; err != nil {
				return nil, err
			}
			return byStage[scope], nil
		},
	}
}

// hitExtractor builds a record directly from the hit. The hit snippet is used
// as the institution.
func hitExtractor(fail map[string]bool) provider.Extractor {
	return provider.ExtractFunc(func(_ context.Context, hit domain.RawHit) (*domain.ProgramRecord, error) {
		if fail[hit.URL] {
			return nil, &domain.ExtractionFailure{URL: hit.URL, Err: errUpstream}
		}
		return &domain.ProgramRecord{
			ProgramName: hit.Title,
			Institution: hit.Snippet,
			Location:    "Sydney, Australia",
			Highlights:  []string{},
			Description: "business exchange program",
			ProgramURL:  hit.URL,
		}, nil
	})
}

func hitsFor(n int) []domain.RawHit {
	hits := make([]domain.RawHit, 0, n)
	for i := range n {
		hits = append(hits, domain.RawHit{
			URL:     fmt.Sprintf("https://uni%d.edu.au/exchange", i),
			Title:   fmt.Sprintf("Business Program %d", i),
			Snippet: fmt.Sprintf("University %d", i),
		})
	}
	return hits
}

func newOrchestrator(t *testing.T, cfg pipeline.Config, deps pipeline.Dependencies) *pipeline.Orchestrator {
	t.Helper()
	o := pipeline.NewOrchestrator(cfg, deps, infralogger.NewNop())
	t.Cleanup(o.Wait)
	return o
}

func TestOrchestrator_DeduplicatesHits(t *testing.T) {
	t.Parallel()

	hits := hitsFor(10)
	hits = append(hits,
		domain.RawHit{URL: "http://www.uni0.edu.au/exchange/", Title: "Dup 0", Snippet: "University 0"},
		domain.RawHit{URL: "https://UNI1.edu.au/exchange#apply", Title: "Dup 1", Snippet: "university 1"},
	)
	require.Len(t, hits, 12)

	pub := &recordingPublisher{}
	o := newOrchestrator(t, pipeline.Config{}, pipeline.Dependencies{
		Search:    stageSearch(map[domain.Stage][]domain.RawHit{domain.StageGeneral: hits}, nil, nil),
		Extractor: hitExtractor(nil),
		Publisher: pub,
	})

	resp := o.Search(context.Background(), &domain.SearchQuery{FreeText: "business program in Australia", ConnectionID: "conn-1"})

	require.True(t, resp.Success, resp.Error)
	require.NotNil(t, resp.TotalFound)
	assert.Equal(t, 10, *resp.TotalFound)
	assert.Len(t, resp.Programs, 10)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 10, resp.Usage.SourcesSearched)
	assert.Equal(t, "business program in Australia", resp.SearchQuery)

	for i := 1; i < len(resp.Programs); i++ {
		assert.GreaterOrEqual(t, *resp.Programs[i-1].MatchScore, *resp.Programs[i].MatchScore)
	}
}

func TestOrchestrator_ZeroHitsIsSuccess(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	o := newOrchestrator(t, pipeline.Config{}, pipeline.Dependencies{
		Search:    stageSearch(nil, nil, nil),
		Extractor: hitExtractor(nil),
		Publisher: pub,
	})

	resp := o.Search(context.Background(), &domain.SearchQuery{ConnectionID: "conn-1"})

	require.True(t, resp.Success)
	require.NotNil(t, resp.Programs)
	assert.Empty(t, resp.Programs)
	require.NotNil(t, resp.TotalFound)
	assert.Zero(t, *resp.TotalFound)
	assert.Equal(t, []string{
		"search-progress:general",
		"search-progress:education_sites",
		"search-progress:program_specific",
		"search-progress:extracting_programs",
		"search-progress:ranking_programs",
		"search-complete",
	}, pub.types())
}

func TestOrchestrator_AllProvidersFail(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	errs := map[domain.Stage]error{
		domain.StageGeneral:         errUpstream,
		domain.StageEducationSites:  errUpstream,
		domain.StageProgramSpecific: errUpstream,
	}
	o := newOrchestrator(t, pipeline.Config{}, pipeline.Dependencies{
		Search:    stageSearch(nil, errs, nil),
		Extractor: hitExtractor(nil),
		Publisher: pub,
	})

	resp := o.Search(context.Background(), &domain.SearchQuery{FreeText: "law", ConnectionID: "conn-1"})

	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrorTypePipelineFailure, resp.ErrorType)
	assert.NotEmpty(t, resp.Error)
	assert.Nil(t, resp.Programs)
	assert.Equal(t, []string{
		"search-progress:general",
		"search-progress:education_sites",
		"search-progress:program_specific",
	}, pub.types())
}

func TestOrchestrator_PartialProviderFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	errs := map[domain.Stage]error{
		domain.StageGeneral:        errUpstream,
		domain.StageEducationSites: errUpstream,
	}
	o := newOrchestrator(t, pipeline.Config{}, pipeline.Dependencies{
		Search:    stageSearch(map[domain.Stage][]domain.RawHit{domain.StageProgramSpecific: hitsFor(2)}, errs, nil),
		Extractor: hitExtractor(nil),
	})

	resp := o.Search(context.Background(), &domain.SearchQuery{})
	require.True(t, resp.Success)
	assert.Equal(t, 2, *resp.TotalFound)
}

func TestOrchestrator_RecordsRunMetrics(t *testing.T) {
	t.Parallel()

	tel := telemetry.NewProvider()
	o := newOrchestrator(t, pipeline.Config{}, pipeline.Dependencies{
		Search:    stageSearch(map[domain.Stage][]domain.RawHit{domain.StageGeneral: hitsFor(3)}, nil, nil),
		Extractor: hitExtractor(nil),
		Telemetry: tel,
	})

	resp := o.Search(context.Background(), &domain.SearchQuery{FreeText: "business"})
	require.True(t, resp.Success, resp.Error)

	assert.InDelta(t, 1, testutil.ToFloat64(tel.Metrics.RunsTotal.WithLabelValues(telemetry.OutcomeComplete)), 0)
	assert.Equal(t, uint64(1), programsReturnedSamples(t, tel))

	failing := newOrchestrator(t, pipeline.Config{}, pipeline.Dependencies{
		Search: stageSearch(nil, map[domain.Stage]error{
			domain.StageGeneral:         errUpstream,
			domain.StageEducationSites:  errUpstream,
			domain.StageProgramSpecific: errUpstream,
		}, nil),
		Extractor: hitExtractor(nil),
		Telemetry: tel,
	})
	resp = failing.Search(context.Background(), &domain.SearchQuery{FreeText: "business"})
	require.False(t, resp.Success)

	assert.InDelta(t, 1, testutil.ToFloat64(tel.Metrics.RunsTotal.WithLabelValues(domain.ErrorTypePipelineFailure)), 0)
	assert.Equal(t, uint64(1), programsReturnedSamples(t, tel), "failed runs report no program count")
}

func programsReturnedSamples(t *testing.T, tel *telemetry.Provider) uint64 {
	t.Helper()
	families, err := tel.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "exchange_search_programs_returned" {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatal("programs_returned histogram not registered")
	return 0
}

func TestOrchestrator_UnknownConnectionStillRuns(t *testing.T) {
	t.Parallel()

	registry := sse.NewRegistry(infralogger.NewNop())
	t.Cleanup(registry.Close)

	o := newOrchestrator(t, pipeline.Config{}, pipeline.Dependencies{
		Search:    stageSearch(map[domain.Stage][]domain.RawHit{domain.StageGeneral: hitsFor(3)}, nil, nil),
		Extractor: hitExtractor(nil),
		Publisher: registry,
	})

	resp := o.Search(context.Background(), &domain.SearchQuery{ConnectionID: "never-registered"})
	require.True(t, resp.Success)
	assert.Equal(t, 3, *resp.TotalFound)
	assert.Zero(t, registry.ConnectionCount())
}

func TestOrchestrator_StreamsToRegisteredConnection(t *testing.T) {
	t.Parallel()

	registry := sse.NewRegistry(infralogger.NewNop())
	t.Cleanup(registry.Close)
	events, err := registry.Register("conn-a")
	require.NoError(t, err)
	other, err := registry.Register("conn-b")
	require.NoError(t, err)

	o := newOrchestrator(t, pipeline.Config{}, pipeline.Dependencies{
		Search:    stageSearch(nil, nil, nil),
		Extractor: hitExtractor(nil),
		Publisher: registry,
	})
	resp := o.Search(context.Background(), &domain.SearchQuery{ConnectionID: "conn-a"})
	require.True(t, resp.Success)

	var got []string
	for range 6 {
		e := <-events
		got = append(got, e.Type)
	}
	assert.Equal(t, sse.EventTypeSearchComplete, got[5])
	for _, typ := range got[:5] {
		assert.Equal(t, sse.EventTypeSearchProgress, typ)
	}
	assert.Empty(t, other)
}

func TestOrchestrator_StageTimeoutIsZeroHits(t *testing.T) {
	t.Parallel()

	slow := provider.SearchFunc{
		ProviderName: "slow",
		Fn: func(ctx context.Context, _ string, scope domain.Stage) ([]domain.RawHit, error) {
			if scope == domain.StageGeneral {
				return hitsFor(2), nil
			}
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	o := newOrchestrator(t, pipeline.Config{StageTimeout: 20 * time.Millisecond}, pipeline.Dependencies{
		Search:    slow,
		Extractor: hitExtractor(nil),
	})

	resp := o.Search(context.Background(), &domain.SearchQuery{})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, 2, *resp.TotalFound)
}

func TestOrchestrator_AllStagesTimeOutIsEmptySuccess(t *testing.T) {
	t.Parallel()

	blocked := provider.SearchFunc{
		ProviderName: "blocked",
		Fn: func(ctx context.Context, _ string, _ domain.Stage) ([]domain.RawHit, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	o := newOrchestrator(t, pipeline.Config{StageTimeout: 10 * time.Millisecond}, pipeline.Dependencies{
		Search:    blocked,
		Extractor: hitExtractor(nil),
	})

	resp := o.Search(context.Background(), &domain.SearchQuery{})
	require.True(t, resp.Success, resp.Error)
	assert.Zero(t, *resp.TotalFound)
}

func TestOrchestrator_RunTimeout(t *testing.T) {
	t.Parallel()

	blocked := provider.SearchFunc{
		ProviderName: "blocked",
		Fn: func(ctx context.Context, _ string, _ domain.Stage) ([]domain.RawHit, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	pub := &recordingPublisher{}
	o := newOrchestrator(t, pipeline.Config{RunTimeout: 30 * time.Millisecond, StageTimeout: time.Second}, pipeline.Dependencies{
		Search:    blocked,
		Extractor: hitExtractor(nil),
		Publisher: pub,
	})

	resp := o.Search(context.Background(), &domain.SearchQuery{FreeText: "art"})
	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrorTypeTimeout, resp.ErrorType)
	assert.Equal(t, "art", resp.SearchQuery)
	assert.NotContains(t, pub.types(), sse.EventTypeSearchComplete)
}

func TestOrchestrator_DetachedFromCallerCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newOrchestrator(t, pipeline.Config{}, pipeline.Dependencies{
		Search:    stageSearch(map[domain.Stage][]domain.RawHit{domain.StageGeneral: hitsFor(1)}, nil, nil),
		Extractor: hitExtractor(nil),
	})

	resp := o.Search(ctx, &domain.SearchQuery{})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, 1, *resp.TotalFound)
}

func TestOrchestrator_SkipsFailedExtractions(t *testing.T) {
	t.Parallel()

	hits := hitsFor(4)
	o := newOrchestrator(t, pipeline.Config{ExtractionConcurrency: 2}, pipeline.Dependencies{
		Search:    stageSearch(map[domain.Stage][]domain.RawHit{domain.StageGeneral: hits}, nil, nil),
		Extractor: hitExtractor(map[string]bool{hits[1].URL: true, hits[3].URL: true}),
	})

	resp := o.Search(context.Background(), &domain.SearchQuery{})
	require.True(t, resp.Success)
	require.Len(t, resp.Programs, 2)

	urls := []string{resp.Programs[0].ProgramURL, resp.Programs[1].ProgramURL}
	assert.ElementsMatch(t, []string{hits[0].URL, hits[2].URL}, urls)
}

func TestOrchestrator_CapsHitsAndResults(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, pipeline.Config{MaxHitsPerStage: 5, MaxResults: 3}, pipeline.Dependencies{
		Search:    stageSearch(map[domain.Stage][]domain.RawHit{domain.StageGeneral: hitsFor(8)}, nil, nil),
		Extractor: hitExtractor(nil),
	})

	resp := o.Search(context.Background(), &domain.SearchQuery{})
	require.True(t, resp.Success)
	assert.Equal(t, 3, *resp.TotalFound)
	assert.Equal(t, 5, resp.Usage.SourcesSearched)
}

func TestOrchestrator_UsesStageCache(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var calls atomic.Int32
	o := newOrchestrator(t, pipeline.Config{}, pipeline.Dependencies{
		Search:    stageSearch(map[domain.Stage][]domain.RawHit{domain.StageGeneral: hitsFor(2)}, nil, &calls),
		Extractor: hitExtractor(nil),
		Cache:     cache.NewRedisStageCache(client, time.Minute),
	})

	q := &domain.SearchQuery{FreeText: "economics"}
	first := o.Search(context.Background(), q)
	second := o.Search(context.Background(), q)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, *first.TotalFound, *second.TotalFound)
}

func TestOrchestrator_IndexesRankedPrograms(t *testing.T) {
	t.Parallel()

	ix := &recordingIndexer{}
	o := newOrchestrator(t, pipeline.Config{}, pipeline.Dependencies{
		Search:    stageSearch(map[domain.Stage][]domain.RawHit{domain.StageGeneral: hitsFor(3)}, nil, nil),
		Extractor: hitExtractor(nil),
		Indexer:   ix,
	})

	resp := o.Search(context.Background(), &domain.SearchQuery{})
	require.True(t, resp.Success)
	o.Wait()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	assert.Len(t, ix.indexed, 3)
}
