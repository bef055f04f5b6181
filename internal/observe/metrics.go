// Package observe records encounter engine metrics through the OpenTelemetry
// Metrics API. Tests should build Metrics with NewMetrics and a ManualReader
// so they do not share the global provider.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/jwebster45206/encounter-engine"

// Turn outcomes.
const (
	OutcomeEncounter = "encounter"
	OutcomeCritical  = "critical"
	OutcomeNone      = "none"
)

// Metrics holds every instrument the engine records. All fields are safe for
// concurrent use.
type Metrics struct {
	meter metric.Meter

	// Turns counts selection rounds by outcome.
	Turns metric.Int64Counter

	// Selections counts chosen entities. Attributes: entity_id, type.
	Selections metric.Int64Counter

	// SelectionDuration tracks the time spent weighing and drawing.
	SelectionDuration metric.Float64Histogram

	// Registrations counts entity writes by data source.
	Registrations metric.Int64Counter

	// Extracted counts narrative names by result: registered, known, error.
	Extracted metric.Int64Counter

	// SnapshotSaves counts persistence attempts by status.
	SnapshotSaves metric.Int64Counter

	// HTTPRequestDuration tracks request latency by method and route.
	HTTPRequestDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{meter: m}

	if met.Turns, err = m.Int64Counter("encounter.turns",
		metric.WithDescription("Selection rounds by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Selections, err = m.Int64Counter("encounter.selections",
		metric.WithDescription("Entities chosen for an encounter by id and type."),
	); err != nil {
		return nil, err
	}
	if met.SelectionDuration, err = m.Float64Histogram("encounter.selection.duration",
		metric.WithDescription("Latency of one selection round."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Registrations, err = m.Int64Counter("encounter.entities.registered",
		metric.WithDescription("Entity registrations by data source."),
	); err != nil {
		return nil, err
	}
	if met.Extracted, err = m.Int64Counter("encounter.extraction.names",
		metric.WithDescription("Names found in narrative text by result."),
	); err != nil {
		return nil, err
	}
	if met.SnapshotSaves, err = m.Int64Counter("encounter.snapshot.saves",
		metric.WithDescription("Snapshot save attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("encounter.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a Metrics bound to the global meter provider,
// creating it on first use.
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

// ObserveEntityCount reports count() as the encounter.entities gauge on every
// collection.
func (m *Metrics) ObserveEntityCount(count func() int) error {
	_, err := m.meter.Int64ObservableGauge("encounter.entities",
		metric.WithDescription("Entities currently registered."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(count()))
			return nil
		}),
	)
	return err
}

// RecordTurn counts one selection round and, when something was chosen, the
// chosen entity.
func (m *Metrics) RecordTurn(ctx context.Context, outcome, entityID, entityType string, seconds float64) {
	m.Turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.SelectionDuration.Record(ctx, seconds)
	if entityID != "" {
		m.Selections.Add(ctx, 1, metric.WithAttributes(
			attribute.String("entity_id", entityID),
			attribute.String("type", entityType),
		))
	}
}

func (m *Metrics) RecordRegistration(ctx context.Context, source string) {
	m.Registrations.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) RecordExtraction(ctx context.Context, result string, n int) {
	if n <= 0 {
		return
	}
	m.Extracted.Add(ctx, int64(n), metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) RecordSnapshotSave(ctx context.Context, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SnapshotSaves.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, seconds float64) {
	m.HTTPRequestDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}
