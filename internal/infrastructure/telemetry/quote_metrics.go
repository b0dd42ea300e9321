package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Allocation outcomes recorded by QuoteMetrics.RecordAllocation
const (
	AllocationOutcomeAllocated = "allocated"
	AllocationOutcomeExhausted = "exhausted"
	AllocationOutcomeError     = "error"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// QuoteMetrics groups the instruments of the quote workflow: number
// allocation, PDF rendering and quote lifecycle.
type QuoteMetrics struct {
	logger *zap.Logger

	allocations        *Counter
	allocationAttempts *Histogram
	renders            *Counter
	renderDuration     *Histogram
	renderPages        *Histogram
	quotesCreated      *Counter
	statusChanges      *Counter
	archiveFailures    *Counter
}

// QuoteMetricsConfig holds configuration for QuoteMetrics.
type QuoteMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewQuoteMetrics creates the quote instruments on the given meter.
func NewQuoteMetrics(cfg QuoteMetricsConfig) (*QuoteMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	qm := &QuoteMetrics{logger: logger}
	var err error

	if qm.allocations, err = NewCounter(cfg.Meter,
		"quote_number_allocations_total",
		"Quote number allocations by outcome",
		"{allocation}",
	); err != nil {
		return nil, err
	}
	if qm.allocationAttempts, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "quote_number_allocation_attempts",
		Description: "Reservation attempts needed per allocation",
		Unit:        "{attempt}",
		Boundaries:  []float64{1, 2, 3, 5, 10, 25, 50, 100},
	}); err != nil {
		return nil, err
	}
	if qm.renders, err = NewCounter(cfg.Meter,
		"quote_pdf_renders_total",
		"Quote PDF renders by outcome",
		"{render}",
	); err != nil {
		return nil, err
	}
	if qm.renderDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "quote_pdf_render_duration_seconds",
		Description: "Time spent laying out and encoding a quote PDF",
		Unit:        "s",
		Boundaries:  []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}); err != nil {
		return nil, err
	}
	if qm.renderPages, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "quote_pdf_pages",
		Description: "Pages per rendered quote",
		Unit:        "{page}",
		Boundaries:  []float64{1, 2, 3, 5, 10, 20},
	}); err != nil {
		return nil, err
	}
	if qm.quotesCreated, err = NewCounter(cfg.Meter,
		"quotes_created_total",
		"Quotes created by payment mode",
		"{quote}",
	); err != nil {
		return nil, err
	}
	if qm.statusChanges, err = NewCounter(cfg.Meter,
		"quote_status_changes_total",
		"Quote status transitions by target status",
		"{change}",
	); err != nil {
		return nil, err
	}
	if qm.archiveFailures, err = NewCounter(cfg.Meter,
		"quote_archive_failures_total",
		"Rendered quotes that could not be archived",
		"{failure}",
	); err != nil {
		return nil, err
	}

	logger.Debug("Quote metrics initialized")
	return qm, nil
}

// RecordAllocation records one Allocate call.
func (qm *QuoteMetrics) RecordAllocation(ctx context.Context, year, attempts int, outcome string) {
	attrs := []attribute.KeyValue{AttrYear.Int(year), AttrOutcome.String(outcome)}
	qm.allocations.Inc(ctx, attrs...)
	qm.allocationAttempts.Record(ctx, float64(attempts), attrs...)
}

// RecordRender records one PDF render. pages is ignored on failure.
func (qm *QuoteMetrics) RecordRender(ctx context.Context, d time.Duration, pages int, fallback bool, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	qm.renders.Inc(ctx, AttrOutcome.String(outcome), AttrFallback.Bool(fallback))
	qm.renderDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
	if err == nil {
		qm.renderPages.Record(ctx, float64(pages))
	}
}

// RecordQuoteCreated counts a persisted quote.
func (qm *QuoteMetrics) RecordQuoteCreated(ctx context.Context, paymentMode string) {
	qm.quotesCreated.Inc(ctx, AttrPaymentMode.String(paymentMode))
}

// RecordStatusChange counts a status transition.
func (qm *QuoteMetrics) RecordStatusChange(ctx context.Context, status string) {
	qm.statusChanges.Inc(ctx, attribute.String("quote.status", status))
}

// RecordArchiveFailure counts a rendered document the archive rejected.
func (qm *QuoteMetrics) RecordArchiveFailure(ctx context.Context, driver string) {
	qm.archiveFailures.Inc(ctx, AttrStorageDriver.String(driver))
}
