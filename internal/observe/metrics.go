// Package observe provides observability primitives for Plenum: OpenTelemetry
// metrics for the meeting engine and a package tracer for orchestrator steps.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so metrics can be scraped
// from a /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Plenum metrics.
const meterName = "github.com/plenum-ai/plenum"

// Metrics holds all OpenTelemetry metric instruments for the meeting engine.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// LLMDuration tracks language-model call latency. Use with attribute:
	//   attribute.String("role", "plan"|"generate"|"critic"|"analyst"|"guidance"|"summary")
	LLMDuration metric.Float64Histogram

	// ProviderRequests counts backend API calls by provider, role, and status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts backend errors by provider and role.
	ProviderErrors metric.Int64Counter

	// Turns counts executed dialogue turns. Use with attributes:
	//   attribute.String("stage", ...), attribute.String("agent", ...)
	Turns metric.Int64Counter

	// Interruptions counts triggered interruptions by stage.
	Interruptions metric.Int64Counter

	// OptionsProposed counts registered options.
	OptionsProposed metric.Int64Counter

	// VotesCast counts recorded votes by kind (support, oppose, abstain).
	VotesCast metric.Int64Counter

	// ActiveMeetings tracks the number of meetings currently running.
	ActiveMeetings metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// LLM call latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.LLMDuration, err = m.Float64Histogram("plenum.llm.duration",
		metric.WithDescription("Latency of language-model calls by role."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("plenum.provider.requests",
		metric.WithDescription("Total backend API requests by provider, role, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("plenum.provider.errors",
		metric.WithDescription("Total backend errors by provider and role."),
	); err != nil {
		return nil, err
	}
	if met.Turns, err = m.Int64Counter("plenum.meeting.turns",
		metric.WithDescription("Total executed dialogue turns by stage and agent."),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("plenum.meeting.interruptions",
		metric.WithDescription("Total triggered interruptions by stage."),
	); err != nil {
		return nil, err
	}
	if met.OptionsProposed, err = m.Int64Counter("plenum.meeting.options_proposed",
		metric.WithDescription("Total registered options."),
	); err != nil {
		return nil, err
	}
	if met.VotesCast, err = m.Int64Counter("plenum.meeting.votes_cast",
		metric.WithDescription("Total recorded votes by kind."),
	); err != nil {
		return nil, err
	}
	if met.ActiveMeetings, err = m.Int64UpDownCounter("plenum.active_meetings",
		metric.WithDescription("Number of meetings currently running."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordLLMDuration records one language-model call latency for a role.
func (m *Metrics) RecordLLMDuration(ctx context.Context, role string, seconds float64) {
	m.LLMDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("role", role),
	))
}

// RecordTurn increments the turn counter for a stage and agent.
func (m *Metrics) RecordTurn(ctx context.Context, stage, agent string) {
	m.Turns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("agent", agent),
	))
}

// RecordInterruption increments the interruption counter for a stage.
func (m *Metrics) RecordInterruption(ctx context.Context, stage string) {
	m.Interruptions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
	))
}

// RecordVote increments the vote counter for a vote kind.
func (m *Metrics) RecordVote(ctx context.Context, kind string) {
	m.VotesCast.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordProviderRequest increments the request counter with the standard
// attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, role, status string) {
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("role", role),
		attribute.String("status", status),
	))
}

// RecordProviderError increments the error counter with the standard
// attribute set.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, role string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("role", role),
	))
}
