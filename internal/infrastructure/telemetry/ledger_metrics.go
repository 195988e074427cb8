package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMeterName is the meter the ledger instruments are created on
const LedgerMeterName = "ledgerflow/ledger"

// LedgerMetrics counts postings, reversals, stock movements and unit of work
// retries. A nil *LedgerMetrics records nothing, so callers never need to
// check whether metrics are configured.
type LedgerMetrics struct {
	postings      *Counter
	reversals     *Counter
	postingErrors *Counter
	movements     *Counter
	underflows    *Counter
	retries       *Counter
	unitDuration  *Histogram
}

// NewLedgerMetrics creates the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	m := &LedgerMetrics{}
	var err error

	if m.postings, err = NewCounter(meter, "ledger.postings", "Balanced transactions posted", "{transaction}"); err != nil {
		return nil, err
	}
	if m.reversals, err = NewCounter(meter, "ledger.reversals", "Transactions reversed", "{transaction}"); err != nil {
		return nil, err
	}
	if m.postingErrors, err = NewCounter(meter, "ledger.posting_errors", "Postings rejected before persistence", "{error}"); err != nil {
		return nil, err
	}
	if m.movements, err = NewCounter(meter, "stock.movements", "Stock movements appended", "{movement}"); err != nil {
		return nil, err
	}
	if m.underflows, err = NewCounter(meter, "stock.underflows", "Consumptions floored at zero", "{movement}"); err != nil {
		return nil, err
	}
	if m.retries, err = NewCounter(meter, "uow.retries", "Units of work retried after a transient failure", "{retry}"); err != nil {
		return nil, err
	}
	if m.unitDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "uow.duration",
		Description: "Wall time of a unit of work",
		Unit:        "s",
		Boundaries:  UnitDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordPosting counts a persisted transaction. template is empty for
// postings built from explicit legs.
func (m *LedgerMetrics) RecordPosting(ctx context.Context, template string) {
	if m == nil {
		return
	}
	m.postings.Inc(ctx, AttrTemplate.String(templateLabel(template)))
}

// RecordPostingError counts a posting rejected by validation
func (m *LedgerMetrics) RecordPostingError(ctx context.Context, template string) {
	if m == nil {
		return
	}
	m.postingErrors.Inc(ctx, AttrTemplate.String(templateLabel(template)))
}

// RecordReversal counts a persisted reversal
func (m *LedgerMetrics) RecordReversal(ctx context.Context) {
	if m == nil {
		return
	}
	m.reversals.Inc(ctx)
}

// RecordMovement counts a stock movement by direction and reason
func (m *LedgerMetrics) RecordMovement(ctx context.Context, direction, reason string) {
	if m == nil {
		return
	}
	m.movements.Inc(ctx, AttrDirection.String(direction), AttrReason.String(reason))
}

// RecordUnderflow counts a consumption that was floored at zero
func (m *LedgerMetrics) RecordUnderflow(ctx context.Context) {
	if m == nil {
		return
	}
	m.underflows.Inc(ctx)
}

// RecordRetry counts one retried unit of work
func (m *LedgerMetrics) RecordRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.retries.Inc(ctx)
}

// RecordUnit records how long a unit of work took and whether it committed
func (m *LedgerMetrics) RecordUnit(ctx context.Context, d time.Duration, committed bool) {
	if m == nil {
		return
	}
	outcome := "rollback"
	if committed {
		outcome = "commit"
	}
	m.unitDuration.RecordDuration(ctx, d, attribute.String(string(AttrOutcome), outcome))
}

func templateLabel(template string) string {
	if template == "" {
		return "manual"
	}
	return template
}
