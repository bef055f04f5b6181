package observe

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the counter value for the data point carrying attr.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	m := findMetric(rm, name)
	require.NotNil(t, m, "metric %s not found", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T", name, m.Data)
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
			return dp.Value
		}
	}
	return 0
}

func TestRecordTurn(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTurn(ctx, OutcomeEncounter, "npc_mateo", "npc", 0.002)
	m.RecordTurn(ctx, OutcomeEncounter, "npc_mateo", "npc", 0.001)
	m.RecordTurn(ctx, OutcomeCritical, "antagonist_don_luis", "antagonist", 0.001)
	m.RecordTurn(ctx, OutcomeNone, "", "", 0.001)

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumFor(t, rm, "encounter.turns", attribute.String("outcome", OutcomeEncounter)))
	assert.Equal(t, int64(1), sumFor(t, rm, "encounter.turns", attribute.String("outcome", OutcomeNone)))
	assert.Equal(t, int64(2), sumFor(t, rm, "encounter.selections", attribute.String("entity_id", "npc_mateo")))
	assert.Equal(t, int64(1), sumFor(t, rm, "encounter.selections", attribute.String("type", "antagonist")))

	hist := findMetric(rm, "encounter.selection.duration")
	require.NotNil(t, hist)
	data, ok := hist.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, uint64(4), data.DataPoints[0].Count)
}

func TestRecordCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRegistration(ctx, "narrative")
	m.RecordRegistration(ctx, "narrative")
	m.RecordExtraction(ctx, "registered", 3)
	m.RecordExtraction(ctx, "known", 0)
	m.RecordSnapshotSave(ctx, nil)
	m.RecordSnapshotSave(ctx, errors.New("down"))

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumFor(t, rm, "encounter.entities.registered", attribute.String("source", "narrative")))
	assert.Equal(t, int64(3), sumFor(t, rm, "encounter.extraction.names", attribute.String("result", "registered")))
	assert.Zero(t, sumFor(t, rm, "encounter.extraction.names", attribute.String("result", "known")))
	assert.Equal(t, int64(1), sumFor(t, rm, "encounter.snapshot.saves", attribute.String("status", "ok")))
	assert.Equal(t, int64(1), sumFor(t, rm, "encounter.snapshot.saves", attribute.String("status", "error")))
}

func TestObserveEntityCount(t *testing.T) {
	m, reader := newTestMetrics(t)
	n := 4
	require.NoError(t, m.ObserveEntityCount(func() int { return n }))

	rm := collect(t, reader)
	g := findMetric(rm, "encounter.entities")
	require.NotNil(t, g)
	gauge, ok := g.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(4), gauge.DataPoints[0].Value)

	n = 7
	rm = collect(t, reader)
	gauge = findMetric(rm, "encounter.entities").Data.(metricdata.Gauge[int64])
	assert.Equal(t, int64(7), gauge.DataPoints[0].Value)
}

func TestInitProvider_ServesPrometheus(t *testing.T) {
	mp, handler, err := InitProvider()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	m.RecordTurn(context.Background(), OutcomeNone, "", "", 0.001)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "encounter_turns")
}
