// Package telemetry exports Prometheus metrics and OpenTelemetry stage spans
// for the exchange search service.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName = "exchange-search"
	namespace   = "exchange_search"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	StageDuration      *prometheus.HistogramVec
	StageHits          *prometheus.HistogramVec
	ProviderErrors     *prometheus.CounterVec
	ExtractionFailures prometheus.Counter
	ProgramsReturned   prometheus.Histogram
	CacheLookups       *prometheus.CounterVec
	Connections        prometheus.Gauge
	SlowClientEvicted  prometheus.Counter
}

// Provider bundles the tracer, the metrics and their registry.
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	registry *prometheus.Registry
}

// NewProvider registers all metrics on a fresh registry, so providers can be
// created per test without duplicate-registration panics.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Provider{
		Tracer:   otel.Tracer(serviceName),
		Metrics:  initMetrics(promauto.With(reg)),
		registry: reg,
	}
}

// Handler serves /metrics.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (p *Provider) Gatherer() prometheus.Gatherer {
	return p.registry
}

func initMetrics(f promauto.Factory) *Metrics {
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Search runs by outcome (complete, pipeline_failure, timeout)",
		}, []string{"outcome"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a search run",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 45, 90},
		}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		StageHits: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_hits",
			Help:      "Raw hits returned per search stage",
			Buckets:   []float64{0, 1, 5, 10, 20, 50},
		}, []string{"stage"}),
		ProviderErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Search provider failures by stage and kind (error, timeout)",
		}, []string{"stage", "kind"}),
		ExtractionFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Hits skipped because extraction failed",
		}),
		ProgramsReturned: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "programs_returned",
			Help:      "Programs in successful responses",
			Buckets:   []float64{0, 1, 5, 10, 25, 50},
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_cache_lookups_total",
			Help:      "Stage cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_connections",
			Help:      "Live progress stream connections",
		}),
		SlowClientEvicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sse_slow_clients_evicted_total",
			Help:      "Progress streams closed because their buffer filled",
		}),
	}
}

// OutcomeComplete is the run outcome label of a successful run. Failed runs
// are labelled with their error type.
const OutcomeComplete = "complete"

// RecordRun records a finished run. The program count is observed only for
// OutcomeComplete.
func (p *Provider) RecordRun(outcome string, duration time.Duration, programs int) {
	p.Metrics.RunsTotal.WithLabelValues(outcome).Inc()
	p.Metrics.RunDuration.Observe(duration.Seconds())
	if outcome == OutcomeComplete {
		p.Metrics.ProgramsReturned.Observe(float64(programs))
	}
}

// RecordStage records the duration of a stage and, for search stages, its hit count.
func (p *Provider) RecordStage(stage string, duration time.Duration, hits int) {
	p.Metrics.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if hits >= 0 {
		p.Metrics.StageHits.WithLabelValues(stage).Observe(float64(hits))
	}
}

// RecordProviderError counts a failed stage provider call.
func (p *Provider) RecordProviderError(stage, kind string) {
	p.Metrics.ProviderErrors.WithLabelValues(stage, kind).Inc()
}

// RecordExtractionFailure counts a skipped hit.
func (p *Provider) RecordExtractionFailure() {
	p.Metrics.ExtractionFailures.Inc()
}

// RecordCacheLookup counts a stage cache lookup.
func (p *Provider) RecordCacheLookup(result string) {
	p.Metrics.CacheLookups.WithLabelValues(result).Inc()
}

// SetConnections sets the live stream gauge.
func (p *Provider) SetConnections(n int) {
	p.Metrics.Connections.Set(float64(n))
}

// IncrementSlowClientEvicted counts an evicted stream.
func (p *Provider) IncrementSlowClientEvicted() {
	p.Metrics.SlowClientEvicted.Inc()
}

// StartSpan starts a span. The caller ends it.
//
//nolint:spancheck // Caller is responsible for ending the span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
