// Package pipeline runs the staged exchange-program search.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/cache"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/provider"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/ranking"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/response"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/sse"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/telemetry"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/usage"
	infralogger "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
)

// Indexer persists ranked programs outside the response path.
type Indexer interface {
	Index(ctx context.Context, records []domain.ProgramRecord) (int, error)
}

// Dependencies are the collaborators of an Orchestrator. Search and Extractor
// are required; the rest fall back to no-op implementations.
type Dependencies struct {
	Search    provider.SearchProvider
	Extractor provider.Extractor
	Publisher sse.Publisher
	Cache     cache.StageCache
	Indexer   Indexer
	Telemetry *telemetry.Provider
}

// Orchestrator executes search runs.
type Orchestrator struct {
	cfg       Config
	search    provider.SearchProvider
	extractor provider.Extractor
	publisher sse.Publisher
	cache     cache.StageCache
	indexer   Indexer
	telemetry *telemetry.Provider
	shaper    *Shaper
	assembler *response.Assembler
	logger    infralogger.Logger

	newID      func() string
	background sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg Config, deps Dependencies, log infralogger.Logger) *Orchestrator {
	cfg.SetDefaults()

	o := &Orchestrator{
		cfg:       cfg,
		search:    deps.Search,
		extractor: deps.Extractor,
		publisher: deps.Publisher,
		cache:     deps.Cache,
		indexer:   deps.Indexer,
		telemetry: deps.Telemetry,
		shaper:    NewShaper(cfg.EducationDomains),
		assembler: response.NewAssembler(),
		logger:    log,
		newID:     uuid.NewString,
	}
	if o.publisher == nil {
		o.publisher = sse.NopPublisher{}
	}
	if o.cache == nil {
		o.cache = cache.Nop{}
	}
	if o.telemetry == nil {
		o.telemetry = telemetry.NewProvider()
	}
	return o
}

// Search executes one run for q and always returns a well-formed envelope.
// The run is detached from ctx cancellation and bounded by the run timeout.
func (o *Orchestrator) Search(ctx context.Context, q *domain.SearchQuery) *domain.SearchResponse {
	if q == nil {
		q = &domain.SearchQuery{}
	}
	run := newRun(o.newID(), q, time.Now())
	log := o.logger.With(
		infralogger.String("run_id", run.ID),
		infralogger.String("connection_id", run.ConnectionID),
	)

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.RunTimeout)
	defer cancel()
	runCtx = usage.WithMeter(runCtx, run.meter)
	runCtx = infralogger.WithContext(runCtx, log)
	runCtx, span := o.telemetry.StartSpan(runCtx, "search.run",
		attribute.String("run.id", run.ID),
		attribute.String("search.query", q.Summary()),
	)
	defer span.End()

	log.Info("Search run started", infralogger.String("query", q.Summary()))

	ranked, err := o.execute(runCtx, run, log)
	if err != nil {
		return o.fail(run, err, log, span)
	}

	if err = run.advance(domain.StageComplete); err != nil {
		return o.fail(run, err, log, span)
	}
	resp := o.assembler.Success(run, ranked)
	o.publisher.Publish(run.ConnectionID, sse.NewCompleteEvent())

	elapsed := time.Since(run.startedAt)
	o.telemetry.RecordRun(telemetry.OutcomeComplete, elapsed, len(ranked))
	span.SetAttributes(attribute.Int("search.programs", len(ranked)))
	log.Info("Search run complete",
		infralogger.Int("programs", len(ranked)),
		infralogger.Int("sources", run.meter.Sources()),
		infralogger.Int64("ai_tokens", run.meter.Tokens()),
		infralogger.Duration("duration", elapsed),
	)

	o.indexAsync(ranked, log)
	return resp
}

// Wait blocks until background indexing started by earlier runs has finished.
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

func (o *Orchestrator) fail(run *Run, err error, log infralogger.Logger, span trace.Span) *domain.SearchResponse {
	_ = run.advance(domain.StageFailed)
	errorType := response.ErrorType(err)

	o.telemetry.RecordRun(errorType, time.Since(run.startedAt), 0)
	span.RecordError(err)
	span.SetStatus(codes.Error, errorType)
	log.Warn("Search run failed",
		infralogger.String("error_type", errorType),
		infralogger.Error(err),
	)
	return o.assembler.Failure(run, errorType, err)
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, log infralogger.Logger) ([]domain.ProgramRecord, error) {
	var stageErrs []error
	for _, stage := range domain.SearchStages {
		if err := o.enter(ctx, run, stage); err != nil {
			return nil, err
		}
		hits, err := o.searchStage(ctx, run, stage, log)
		if timeoutErr := runTimeout(ctx, o.cfg.RunTimeout); timeoutErr != nil {
			return nil, timeoutErr
		}
		if err != nil {
			stageErrs = append(stageErrs, err)
		}
		run.hits[stage] = hits
	}

	if len(stageErrs) == len(domain.SearchStages) {
		return nil, fmt.Errorf("%w: %w", domain.ErrPipelineFailure, errors.Join(stageErrs...))
	}

	if err := o.enter(ctx, run, domain.StageExtractingPrograms); err != nil {
		return nil, err
	}
	run.records = o.extractAll(ctx, run, log)
	if timeoutErr := runTimeout(ctx, o.cfg.RunTimeout); timeoutErr != nil {
		return nil, timeoutErr
	}

	if err := o.enter(ctx, run, domain.StageRankingPrograms); err != nil {
		return nil, err
	}
	start := time.Now()
	ranked := ranking.Rank(run.records, run.query)
	if len(ranked) > o.cfg.MaxResults {
		ranked = ranked[:o.cfg.MaxResults]
	}
	o.finishStage(run, domain.StageRankingPrograms, start, len(ranked))

	return ranked, nil
}

// enter advances the run and publishes search-progress for stage.
func (o *Orchestrator) enter(ctx context.Context, run *Run, stage domain.Stage) error {
	if timeoutErr := runTimeout(ctx, o.cfg.RunTimeout); timeoutErr != nil {
		return timeoutErr
	}
	if err := run.advance(stage); err != nil {
		return err
	}
	o.publisher.Publish(run.ConnectionID, sse.NewProgressEvent(stage))
	return nil
}

func (o *Orchestrator) finishStage(run *Run, stage domain.Stage, start time.Time, hits int) {
	d := time.Since(start)
	run.durations[stage] = d
	o.telemetry.RecordStage(stage.String(), d, hits)
}

// runTimeout reports the run-wide deadline as domain.ErrRunTimeout.
func runTimeout(ctx context.Context, limit time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", domain.ErrRunTimeout, limit)
	}
	return nil
}

func (o *Orchestrator) indexAsync(ranked []domain.ProgramRecord, log infralogger.Logger) {
	if o.indexer == nil || len(ranked) == 0 {
		return
	}
	records := slices.Clone(ranked)

	o.background.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.IndexTimeout)
		defer cancel()

		n, err := o.indexer.Index(ctx, records)
		if err != nil {
			log.Warn("Failed to index programs", infralogger.Error(err))
			return
		}
		log.Debug("Indexed programs", infralogger.Int("count", n))
	})
}
