package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	p, err := Setup(ctx, Config{ServiceName: "test"}, logger)
	require.NoError(t, err)
	assert.Empty(t, p.Signals())
	assert.NotNil(t, p.Meter("test"))
	assert.Same(t, logger, p.Bridge(logger, zapcore.InfoLevel))
	assert.NoError(t, p.Shutdown(ctx))
}

func TestSetup_LogsOnly(t *testing.T) {
	ctx := context.Background()
	p, err := Setup(ctx, Config{
		ServiceName: "test",
		Endpoint:    "127.0.0.1:4317",
		Insecure:    true,
		Logs:        true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"logs"}, p.Signals())

	core, recorded := observer.New(zapcore.DebugLevel)
	base := zap.New(core)
	bridged := p.Bridge(base, zapcore.WarnLevel)
	assert.NotSame(t, base, bridged)
	bridged.Info("local only")
	assert.Equal(t, 1, recorded.Len())

	shutdownCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(shutdownCtx)
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, samplerFor(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)
	buildingID := uuid.New()
	a, b := uuid.New(), uuid.New()

	ctx, span := StartSpan(context.Background(), "billing.recompute_unit",
		AttrBuildingID.String(buildingID.String()),
		BuildingIDs(a, b),
	)
	assert.NotEmpty(t, TraceID(ctx))
	err := errors.New("lock not obtained")
	EndSpan(span, &err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "billing.recompute_unit", got.Name())
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "lock not obtained", got.Status().Description)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range got.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, buildingID.String(), attrs[AttrBuildingID].AsString())
	assert.Equal(t, []string{a.String(), b.String()}, attrs[AttrBuildingIDs].AsStringSlice())
}

func TestEndSpan_NoError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := StartSpan(context.Background(), "ok")
	var err error
	EndSpan(span, &err)
	_, span = StartSpan(context.Background(), "nil pointer")
	EndSpan(span, nil)

	require.Len(t, sr.Ended(), 2)
	for _, s := range sr.Ended() {
		assert.Equal(t, codes.Unset, s.Status().Code)
	}
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

func collectLedgerMetrics(t *testing.T, record func(context.Context, *LedgerMetrics)) (map[string]int64, map[string]uint64) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewLedgerMetrics(provider.Meter(LedgerMeterName))
	require.NoError(t, err)
	ctx := context.Background()
	record(ctx, m)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	sums := map[string]int64{}
	counts := map[string]uint64{}
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		switch data := metric.Data.(type) {
		case metricdata.Sum[int64]:
			for _, dp := range data.DataPoints {
				key := metric.Name
				if outcome, ok := dp.Attributes.Value("outcome"); ok {
					key += "/" + outcome.AsString()
				}
				sums[key] += dp.Value
			}
		case metricdata.Histogram[float64]:
			for _, dp := range data.DataPoints {
				counts[metric.Name] += dp.Count
			}
		}
	}
	return sums, counts
}

func TestLedgerMetrics_RecordAllocation(t *testing.T) {
	sums, counts := collectLedgerMetrics(t, func(ctx context.Context, m *LedgerMetrics) {
		m.RecordAllocation(ctx, 2, 150, 5*time.Millisecond)
		m.RecordAllocation(ctx, 1, 50, 20*time.Millisecond)
	})

	assert.Equal(t, int64(3), sums["ledger_allocation_links_total"])
	assert.Equal(t, int64(200), sums["ledger_allocated_amount_total"])
	assert.Equal(t, uint64(2), counts["ledger_allocation_pass_duration_seconds"])
}

func TestLedgerMetrics_RecordSweep(t *testing.T) {
	sums, counts := collectLedgerMetrics(t, func(ctx context.Context, m *LedgerMetrics) {
		m.RecordSweep(ctx, 7, 2, 1, 3*time.Second)
	})

	assert.Equal(t, int64(7), sums["ledger_sweep_buildings_total/recomputed"])
	assert.Equal(t, int64(2), sums["ledger_sweep_buildings_total/skipped"])
	assert.Equal(t, int64(1), sums["ledger_sweep_buildings_total/failed"])
	assert.Equal(t, uint64(1), counts["ledger_sweep_duration_seconds"])
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}
	logger := zap.New(core).With(zap.String("building_id", "b-1"))

	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept too")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
	assert.Equal(t, "b-1", logs.All()[0].ContextMap()["building_id"])
	assert.False(t, core.Enabled(zapcore.DebugLevel))
}
