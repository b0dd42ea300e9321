// Package numbering allocates quote numbers.
//
// Allocation reads the highest sequence of the year, proposes the next one and
// reserves it with a conditional insert. A conflicting reservation means
// another caller won the race; the next candidate is tried, up to a bounded
// number of attempts. An optional atomic counter proposes candidates so that
// the loop normally succeeds on the first attempt.
package numbering

import (
	"context"
	"errors"
	"fmt"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/domain/shared"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultMaxAttempts is the retry ceiling of one allocation
const DefaultMaxAttempts = 100

// SequenceCounter is an atomic per-year counter used to propose candidates.
// The SequenceStore stays authoritative; the counter only shortens the search.
type SequenceCounter interface {
	// Next increments and returns the counter of the year. When the counter
	// does not exist yet it is first initialised from seed.
	Next(ctx context.Context, year int, seed func(ctx context.Context) (int, error)) (int, error)

	// Observe raises the counter to at least seq
	Observe(ctx context.Context, year int, seq int) error
}

// Authority hands out unique, increasing quote numbers per year
type Authority struct {
	store       quote.SequenceStore
	counter     SequenceCounter
	maxAttempts int
	logger      *zap.Logger
	metrics     *telemetry.QuoteMetrics
}

// Option configures an Authority
type Option func(*Authority)

// WithCounter plugs an atomic counter in front of the store
func WithCounter(c SequenceCounter) Option {
	return func(a *Authority) {
		a.counter = c
	}
}

// WithMaxAttempts overrides the retry ceiling
func WithMaxAttempts(n int) Option {
	return func(a *Authority) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(a *Authority) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAuthority creates an Authority over the given store
func NewAuthority(store quote.SequenceStore, opts ...Option) *Authority {
	a := &Authority{
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetMetrics sets the metrics collector
func (a *Authority) SetMetrics(m *telemetry.QuoteMetrics) {
	a.metrics = m
}

// Allocate reserves and returns the next number of the year.
// It is safe for concurrent use, including across processes sharing the store.
func (a *Authority) Allocate(ctx context.Context, year int) (quote.Number, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "numbering", "allocate", telemetry.WithAttribute(telemetry.SpanAttrYear, year))
	defer span.End()

	if year < quote.MinYear || year > quote.MaxYear {
		return quote.Number{}, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("year %d is outside the 4-digit range", year))
	}

	useCounter := a.counter != nil
	last := 0
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		seq, fromCounter, err := a.candidate(ctx, year, last, useCounter)
		if err != nil {
			telemetry.RecordError(span, err)
			a.record(ctx, year, attempt, telemetry.AllocationOutcomeError)
			return quote.Number{}, err
		}
		if seq > quote.MaxSequence {
			a.logger.Error("Quote number partition exhausted", zap.Int("year", year), zap.Int("candidate", seq))
			a.record(ctx, year, attempt, telemetry.AllocationOutcomeExhausted)
			return quote.Number{}, quote.ErrAllocationExhausted.WithMessage(
				fmt.Sprintf("No 4-digit quote number left for year %d", year))
		}

		number, err := quote.NewNumber(year, seq)
		if err != nil {
			return quote.Number{}, fmt.Errorf("failed to build quote number: %w", err)
		}

		err = a.store.Reserve(ctx, number)
		if err == nil {
			if !fromCounter && a.counter != nil {
				if obsErr := a.counter.Observe(ctx, year, seq); obsErr != nil {
					a.logger.Warn("Failed to advance sequence counter", zap.Int("year", year), zap.Error(obsErr))
				}
			}
			telemetry.SetAttributes(span, telemetry.SpanAttrQuoteNumber, number.String(), telemetry.SpanAttrAttempts, attempt)
			a.logger.Info("Quote number allocated",
				zap.String("number", number.String()),
				zap.Int("attempts", attempt),
				zap.Bool("from_counter", fromCounter),
			)
			a.record(ctx, year, attempt, telemetry.AllocationOutcomeAllocated)
			return number, nil
		}
		if !errors.Is(err, quote.ErrNumberTaken) {
			telemetry.RecordError(span, err)
			a.record(ctx, year, attempt, telemetry.AllocationOutcomeError)
			return quote.Number{}, fmt.Errorf("failed to reserve quote number: %w", err)
		}

		telemetry.AddEvent(span, "number_conflict", telemetry.SpanAttrQuoteNumber, number.String())
		a.logger.Debug("Quote number already reserved, retrying",
			zap.String("number", number.String()),
			zap.Int("attempt", attempt),
		)
		if fromCounter {
			// the counter lags behind the store; finish on the store path
			useCounter = false
		}
		last = seq
	}

	a.logger.Error("Quote number allocation exhausted its retries",
		zap.Int("year", year),
		zap.Int("max_attempts", a.maxAttempts),
	)
	a.record(ctx, year, a.maxAttempts, telemetry.AllocationOutcomeExhausted)
	telemetry.RecordError(span, quote.ErrAllocationExhausted)
	return quote.Number{}, quote.ErrAllocationExhausted
}

// candidate proposes the next sequence, strictly above last
func (a *Authority) candidate(ctx context.Context, year, last int, useCounter bool) (int, bool, error) {
	if useCounter {
		seq, err := a.counter.Next(ctx, year, func(ctx context.Context) (int, error) {
			return a.store.MaxSequence(ctx, year)
		})
		switch {
		case err != nil:
			a.logger.Warn("Sequence counter unavailable, using store maximum", zap.Int("year", year), zap.Error(err))
		case seq > last:
			return seq, true, nil
		}
	}

	current, err := a.store.MaxSequence(ctx, year)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read max quote sequence: %w", err)
	}
	next := current + 1
	if next <= last {
		next = last + 1
	}
	return next, false, nil
}

func (a *Authority) record(ctx context.Context, year, attempts int, outcome string) {
	if a.metrics != nil {
		a.metrics.RecordAllocation(ctx, year, attempts, outcome)
	}
}
