package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMeterName is the instrumentation scope of the ledger metrics
const LedgerMeterName = "building-ledger/billing"

// LedgerMetrics records allocation and reconcile sweep activity.
type LedgerMetrics struct {
	linksCreated    *Counter
	amountAllocated *Counter
	passDuration    *Histogram
	sweepBuildings  *Counter
	sweepDuration   *Histogram
}

// NewLedgerMetrics registers the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	links, err := NewCounter(meter, "ledger_allocation_links_total",
		"Transaction to distribution links created", "{link}")
	if err != nil {
		return nil, err
	}
	amount, err := NewCounter(meter, "ledger_allocated_amount_total",
		"Money linked from payments to distributions", "{unit}")
	if err != nil {
		return nil, err
	}
	pass, err := NewDurationHistogram(meter, "ledger_allocation_pass_duration_seconds",
		"Duration of allocation passes that created links",
		[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1})
	if err != nil {
		return nil, err
	}
	buildings, err := NewCounter(meter, "ledger_sweep_buildings_total",
		"Buildings visited by reconcile sweeps, by outcome", "{building}")
	if err != nil {
		return nil, err
	}
	sweep, err := NewDurationHistogram(meter, "ledger_sweep_duration_seconds",
		"Duration of reconcile sweeps",
		[]float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600})
	if err != nil {
		return nil, err
	}
	return &LedgerMetrics{
		linksCreated:    links,
		amountAllocated: amount,
		passDuration:    pass,
		sweepBuildings:  buildings,
		sweepDuration:   sweep,
	}, nil
}

// RecordAllocation records one allocation pass
func (m *LedgerMetrics) RecordAllocation(ctx context.Context, links int, amount int64, elapsed time.Duration) {
	m.linksCreated.Add(ctx, int64(links))
	m.amountAllocated.Add(ctx, amount)
	m.passDuration.Observe(ctx, elapsed)
}

// RecordSweep records the outcome counts of one reconcile sweep
func (m *LedgerMetrics) RecordSweep(ctx context.Context, recomputed, skipped, failed int, elapsed time.Duration) {
	m.sweepBuildings.Add(ctx, int64(recomputed), attribute.String("outcome", "recomputed"))
	m.sweepBuildings.Add(ctx, int64(skipped), attribute.String("outcome", "skipped"))
	m.sweepBuildings.Add(ctx, int64(failed), attribute.String("outcome", "failed"))
	m.sweepDuration.Observe(ctx, elapsed)
}
