package pipeline

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	infralogger "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
)

// Provider error kinds recorded in metrics.
const (
	kindTimeout = "timeout"
	kindError   = "error"
)

// Cache lookup results recorded in metrics.
const (
	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheError = "error"
)

// searchStage runs one search stage. A stage deadline yields zero hits and
// no error; any other provider failure is returned as *domain.ProviderError.
func (o *Orchestrator) searchStage(
	ctx context.Context,
	run *Run,
	stage domain.Stage,
	log infralogger.Logger,
) ([]domain.RawHit, error) {
	start := time.Now()
	text := o.shaper.Shape(stage, run.query)

	ctx, span := o.telemetry.StartSpan(ctx, "search.stage",
		attribute.String("stage", stage.String()),
		attribute.String("provider", o.search.Name()),
	)
	defer span.End()

	hits, cached := o.lookup(ctx, stage, text, log)
	if !cached {
		stageCtx, cancel := context.WithTimeout(ctx, o.cfg.StageTimeout)
		found, err := o.search.Search(stageCtx, text, stage)
		stageExpired := errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		cancel()

		switch {
		case err != nil && stageExpired:
			o.telemetry.RecordProviderError(stage.String(), kindTimeout)
			log.Warn("Search stage timed out, continuing with zero hits",
				infralogger.String("stage", stage.String()),
				infralogger.Duration("timeout", o.cfg.StageTimeout),
			)
			hits = nil
		case err != nil:
			pErr := &domain.ProviderError{Provider: o.search.Name(), Stage: stage, Err: err}
			o.telemetry.RecordProviderError(stage.String(), kindError)
			o.finishStage(run, stage, start, -1)
			span.RecordError(pErr)
			span.SetStatus(codes.Error, "provider error")
			log.Warn("Search provider failed",
				infralogger.String("stage", stage.String()),
				infralogger.String("provider", o.search.Name()),
				infralogger.Error(err),
			)
			return nil, pErr
		default:
			hits = found
			o.store(ctx, stage, text, hits, log)
		}
	}

	if len(hits) > o.cfg.MaxHitsPerStage {
		hits = hits[:o.cfg.MaxHitsPerStage]
	}
	urls := make([]string, 0, len(hits))
	for _, h := range hits {
		urls = append(urls, h.URL)
	}
	run.meter.AddSources(urls...)

	o.finishStage(run, stage, start, len(hits))
	span.SetAttributes(attribute.Int("stage.hits", len(hits)), attribute.Bool("stage.cached", cached))
	log.Debug("Search stage finished",
		infralogger.String("stage", stage.String()),
		infralogger.Int("hits", len(hits)),
		infralogger.Bool("cached", cached),
	)
	return hits, nil
}

func (o *Orchestrator) lookup(ctx context.Context, stage domain.Stage, text string, log infralogger.Logger) ([]domain.RawHit, bool) {
	hits, ok, err := o.cache.Get(ctx, stage, text)
	switch {
	case err != nil:
		o.telemetry.RecordCacheLookup(cacheError)
		log.Debug("Stage cache lookup failed", infralogger.String("stage", stage.String()), infralogger.Error(err))
		return nil, false
	case ok:
		o.telemetry.RecordCacheLookup(cacheHit)
		return hits, true
	default:
		o.telemetry.RecordCacheLookup(cacheMiss)
		return nil, false
	}
}

func (o *Orchestrator) store(ctx context.Context, stage domain.Stage, text string, hits []domain.RawHit, log infralogger.Logger) {
	if err := o.cache.Set(ctx, stage, text, hits); err != nil {
		log.Debug("Stage cache store failed", infralogger.String("stage", stage.String()), infralogger.Error(err))
	}
}

// extractAll extracts every distinct hit URL with bounded concurrency.
// Failed hits are skipped; the result keeps first-seen hit order.
func (o *Orchestrator) extractAll(ctx context.Context, run *Run, log infralogger.Logger) []domain.ProgramRecord {
	start := time.Now()
	hits := uniqueHits(run)

	ctx, span := o.telemetry.StartSpan(ctx, "search.stage",
		attribute.String("stage", domain.StageExtractingPrograms.String()),
		attribute.Int("extract.hits", len(hits)),
	)
	defer span.End()

	results := make([]*domain.ProgramRecord, len(hits))
	var g errgroup.Group
	g.SetLimit(o.cfg.ExtractionConcurrency)

	for i, hit := range hits {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			itemCtx, cancel := context.WithTimeout(ctx, o.cfg.ItemTimeout)
			defer cancel()

			record, err := o.extractor.Extract(itemCtx, hit)
			if err != nil {
				o.telemetry.RecordExtractionFailure()
				if errors.Is(err, domain.ErrNotAProgram) {
					log.Debug("Skipping non-program page", infralogger.String("url", hit.URL))
				} else {
					log.Warn("Skipping hit after extraction failure",
						infralogger.String("url", hit.URL),
						infralogger.Error(err),
					)
				}
				return nil
			}
			results[i] = record
			return nil
		})
	}
	_ = g.Wait()

	records := make([]domain.ProgramRecord, 0, len(hits))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}

	o.finishStage(run, domain.StageExtractingPrograms, start, len(records))
	span.SetAttributes(attribute.Int("extract.records", len(records)))
	return records
}

// uniqueHits flattens the search stages' hits, keeping the first hit per
// normalized URL.
func uniqueHits(run *Run) []domain.RawHit {
	seen := make(map[string]struct{})
	var out []domain.RawHit
	for _, stage := range domain.SearchStages {
		for _, h := range run.hits[stage] {
			key := domain.NormalizeURL(h.URL)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, h)
		}
	}
	return out
}
