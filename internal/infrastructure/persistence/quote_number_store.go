package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormQuoteNumberStore is the reservation ledger behind number allocation.
// A reservation is a plain insert; the (year, sequence) primary key and the
// unique number index reject a second insert of the same number, which is
// reported as quote.ErrNumberTaken.
type GormQuoteNumberStore struct {
	db *gorm.DB
}

// NewGormQuoteNumberStore creates a new GormQuoteNumberStore
func NewGormQuoteNumberStore(db *gorm.DB) *GormQuoteNumberStore {
	return &GormQuoteNumberStore{db: db}
}

// MaxSequence returns the highest sequence reserved in the year, 0 if none
func (s *GormQuoteNumberStore) MaxSequence(ctx context.Context, year int) (int, error) {
	var current int
	err := s.db.WithContext(ctx).
		Model(&models.QuoteNumberModel{}).
		Where("year = ?", year).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&current).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read max sequence for %d: %w", year, err)
	}
	return current, nil
}

// Reserve records n if no other caller holds it
func (s *GormQuoteNumberStore) Reserve(ctx context.Context, n quote.Number) error {
	if n.IsZero() {
		return quote.ErrInvalidRecord.WithMessage("cannot reserve an empty quote number")
	}
	row := &models.QuoteNumberModel{
		Year:       n.Year(),
		Sequence:   n.Sequence(),
		Number:     n.String(),
		ReservedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Create(row).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return quote.ErrNumberTaken.WithMessage(fmt.Sprintf("Quote number %s already reserved", n))
	}
	return fmt.Errorf("failed to reserve quote number %s: %w", n, err)
}

// IsReserved reports whether n is in the ledger
func (s *GormQuoteNumberStore) IsReserved(ctx context.Context, n quote.Number) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.QuoteNumberModel{}).
		Where("year = ? AND sequence = ?", n.Year(), n.Sequence()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check quote number %s: %w", n, err)
	}
	return count > 0, nil
}

var _ quote.SequenceStore = (*GormQuoteNumberStore)(nil)
