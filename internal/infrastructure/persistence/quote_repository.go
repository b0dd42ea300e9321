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
	"gorm.io/gorm/clause"
)

// Paging bounds of the history listing
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// GormQuoteRepository implements quote.QuoteRepository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// Save inserts the client, the quote and its lines in one transaction and
// writes the generated ids back to q
func (r *GormQuoteRepository) Save(ctx context.Context, q *quote.Quote) error {
	if !q.IsNew() {
		return shared.ErrInvalidState.WithMessage("quote is already stored")
	}
	m := models.QuoteModelFromDomain(q)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client := m.Client
		if err := tx.Create(&client).Error; err != nil {
			return fmt.Errorf("failed to insert client: %w", err)
		}
		m.ClientID = client.ID
		m.Client = client

		if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
			if isUniqueViolation(err) {
				return quote.ErrNumberTaken.WithMessage(fmt.Sprintf("Quote number %s already used", q.Number))
			}
			return fmt.Errorf("failed to insert quote: %w", err)
		}

		if len(m.Lines) == 0 {
			return nil
		}
		for i := range m.Lines {
			m.Lines[i].QuoteID = m.ID
		}
		if err := tx.Create(&m.Lines).Error; err != nil {
			return fmt.Errorf("failed to insert quote lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	q.ID = m.ID
	q.Client.ID = m.ClientID
	return nil
}

// FindByID loads a quote with its client and lines in position order
func (r *GormQuoteRepository) FindByID(ctx context.Context, id int64) (*quote.Quote, error) {
	var m models.QuoteModel
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithMessage(fmt.Sprintf("Quote %d not found", id))
		}
		return nil, fmt.Errorf("failed to load quote %d: %w", id, err)
	}
	return m.ToDomain(), nil
}

// List returns a page of the history, newest first
func (r *GormQuoteRepository) List(ctx context.Context, filter quote.ListFilter) ([]quote.Summary, int64, error) {
	page, size := normalizePage(filter.Page, filter.PageSize)

	query := r.db.WithContext(ctx).Model(&models.QuoteModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Year > 0 {
		start := time.Date(filter.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		query = query.Where("created_at >= ? AND created_at < ?", start, start.AddDate(1, 0, 0))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count quotes: %w", err)
	}
	if total == 0 {
		return []quote.Summary{}, 0, nil
	}

	sortField := ValidateSortField(filter.SortBy, QuoteSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.SortOrder)

	var rows []models.QuoteModel
	err := query.
		Preload("Client").
		Order(sortField + " " + sortOrder).
		Order("id " + sortOrder).
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quotes: %w", err)
	}

	summaries := make([]quote.Summary, len(rows))
	for i := range rows {
		summaries[i] = rows[i].ToSummary()
	}
	return summaries, total, nil
}

// UpdateStatus changes the status of a quote
func (r *GormQuoteRepository) UpdateStatus(ctx context.Context, id int64, status quote.Status) error {
	result := r.db.WithContext(ctx).
		Model(&models.QuoteModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to update status of quote %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound.WithMessage(fmt.Sprintf("Quote %d not found", id))
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

var _ quote.QuoteRepository = (*GormQuoteRepository)(nil)
