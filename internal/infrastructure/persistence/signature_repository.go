package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/domain/shared"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSignatureRepository implements quote.SignatureRepository using GORM
type GormSignatureRepository struct {
	db *gorm.DB
}

// NewGormSignatureRepository creates a new GormSignatureRepository
func NewGormSignatureRepository(db *gorm.DB) *GormSignatureRepository {
	return &GormSignatureRepository{db: db}
}

// FindByQuoteID returns the signature of a quote
func (r *GormSignatureRepository) FindByQuoteID(ctx context.Context, quoteID int64) (*quote.Signature, error) {
	var m models.SignatureModel
	err := r.db.WithContext(ctx).Where("quote_id = ?", quoteID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithMessage(fmt.Sprintf("Quote %d is not signed", quoteID))
		}
		return nil, fmt.Errorf("failed to load signature of quote %d: %w", quoteID, err)
	}
	return m.ToDomain(), nil
}

// Record stores the signature and marks the quote accepted. The unique
// index on quote_id rejects a second signature even under concurrency.
func (r *GormSignatureRepository) Record(ctx context.Context, s *quote.Signature) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.SignatureModelFromDomain(s)).Error; err != nil {
			if isUniqueViolation(err) {
				return quote.ErrAlreadySigned
			}
			return fmt.Errorf("failed to insert signature: %w", err)
		}

		result := tx.Model(&models.QuoteModel{}).
			Where("id = ?", s.QuoteID).
			Updates(map[string]any{"status": string(quote.StatusAccepted), "updated_at": time.Now()})
		if result.Error != nil {
			return fmt.Errorf("failed to accept quote %d: %w", s.QuoteID, result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound.WithMessage(fmt.Sprintf("Quote %d not found", s.QuoteID))
		}
		return nil
	})
}

var _ quote.SignatureRepository = (*GormSignatureRepository)(nil)
