package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// AccountingMetrics records ledger posting activity. A nil *AccountingMetrics
// is valid and records nothing.
type AccountingMetrics struct {
	logger *zap.Logger

	entriesPosted   *Counter
	entriesSkipped  *Counter
	entriesReversed *Counter
	postedAmount    *Counter
	handleDuration  *Histogram
	outboxBacklog   *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// OutboxStatsProvider reports outbox row counts by status for gauge collection.
type OutboxStatsProvider interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// AccountingMetricsConfig holds configuration for accounting metrics.
type AccountingMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewAccountingMetrics creates the accounting instruments on cfg.Meter.
func NewAccountingMetrics(cfg AccountingMetricsConfig) (*AccountingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	am := &AccountingMetrics{logger: logger, stopChan: make(chan struct{})}

	var err error
	if am.entriesPosted, err = NewCounter(cfg.Meter, "accounting_journal_entries_posted_total",
		"Total number of journal entries posted", "{entries}"); err != nil {
		return nil, err
	}
	if am.entriesSkipped, err = NewCounter(cfg.Meter, "accounting_journal_entries_skipped_total",
		"Total number of journal entries skipped (missing rule, duplicate, invalid)", "{entries}"); err != nil {
		return nil, err
	}
	if am.entriesReversed, err = NewCounter(cfg.Meter, "accounting_journal_entries_reversed_total",
		"Total number of journal entries reversed", "{entries}"); err != nil {
		return nil, err
	}
	if am.postedAmount, err = NewCounter(cfg.Meter, "accounting_posted_amount_total",
		"Total posted debit amount in cents", "{cents}"); err != nil {
		return nil, err
	}
	if am.handleDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "accounting_event_handling_duration_seconds",
		Description: "Time spent turning one business event into journal entries",
		Unit:        "s",
		Boundaries:  DurationBuckets,
	}); err != nil {
		return nil, err
	}
	if am.outboxBacklog, err = NewGauge(cfg.Meter, "accounting_outbox_events",
		"Outbox rows by status", "{events}"); err != nil {
		return nil, err
	}
	return am, nil
}

// RecordPosted records one posted entry and its debit total.
func (am *AccountingMetrics) RecordPosted(ctx context.Context, orgID uuid.UUID, operationType, currency string, amount decimal.Decimal) {
	if am == nil {
		return
	}
	am.entriesPosted.Inc(ctx,
		AttrOrganizationID.String(orgID.String()),
		AttrOperationType.String(operationType),
		AttrCurrency.String(currency),
	)
	am.postedAmount.Add(ctx, amount.Shift(2).IntPart(),
		AttrOrganizationID.String(orgID.String()),
		AttrCurrency.String(currency),
	)
}

// RecordSkipped records a sub-entry that was not posted.
func (am *AccountingMetrics) RecordSkipped(ctx context.Context, orgID uuid.UUID, operationType, reason string) {
	if am == nil {
		return
	}
	am.entriesSkipped.Inc(ctx,
		AttrOrganizationID.String(orgID.String()),
		AttrOperationType.String(operationType),
		AttrSkipReason.String(reason),
	)
}

// RecordReversed records one reversed entry.
func (am *AccountingMetrics) RecordReversed(ctx context.Context, orgID uuid.UUID, operationType string) {
	if am == nil {
		return
	}
	am.entriesReversed.Inc(ctx,
		AttrOrganizationID.String(orgID.String()),
		AttrOperationType.String(operationType),
	)
}

// RecordHandled records how long handling one event took.
func (am *AccountingMetrics) RecordHandled(ctx context.Context, eventType string, d time.Duration, err error) {
	if am == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	am.handleDuration.RecordDuration(ctx, d,
		AttrEventType.String(eventType),
		AttrOutcome.String(outcome),
	)
}

// StartOutboxCollection samples outbox row counts every interval until Stop
// is called or ctx is done. Calling it more than once has no effect.
func (am *AccountingMetrics) StartOutboxCollection(ctx context.Context, provider OutboxStatsProvider, interval time.Duration) {
	if am == nil || provider == nil {
		return
	}
	am.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go am.runOutboxCollection(ctx, provider, interval)
	})
}

func (am *AccountingMetrics) runOutboxCollection(ctx context.Context, provider OutboxStatsProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	am.collectOutbox(ctx, provider)
	for {
		select {
		case <-am.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			am.collectOutbox(ctx, provider)
		}
	}
}

func (am *AccountingMetrics) collectOutbox(ctx context.Context, provider OutboxStatsProvider) {
	counts, err := provider.CountByStatus(ctx)
	if err != nil {
		am.logger.Warn("Failed to collect outbox statistics", zap.Error(err))
		return
	}
	for status, n := range counts {
		am.outboxBacklog.Record(ctx, n, AttrOutboxStatus.String(status))
	}
}

// Stop stops periodic collection.
func (am *AccountingMetrics) Stop() {
	if am == nil {
		return
	}
	am.stopOnce.Do(func() {
		close(am.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewAccountingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
