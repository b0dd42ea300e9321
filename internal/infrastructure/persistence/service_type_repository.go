package persistence

import (
	"context"
	"fmt"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormServiceTypeRepository implements quote.ServiceTypeRepository using GORM
type GormServiceTypeRepository struct {
	db *gorm.DB
}

// NewGormServiceTypeRepository creates a new GormServiceTypeRepository
func NewGormServiceTypeRepository(db *gorm.DB) *GormServiceTypeRepository {
	return &GormServiceTypeRepository{db: db}
}

// List returns the catalog ordered by name
func (r *GormServiceTypeRepository) List(ctx context.Context) ([]quote.ServiceType, error) {
	var rows []models.ServiceTypeModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list service types: %w", err)
	}
	out := make([]quote.ServiceType, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Seed inserts the entries whose name is not in the catalog yet. Postgres
// databases are seeded by migration; this serves sqlite development stores.
func (r *GormServiceTypeRepository) Seed(ctx context.Context, entries []quote.ServiceType) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]models.ServiceTypeModel, len(entries))
	for i, e := range entries {
		rows[i] = models.ServiceTypeModel{Name: e.Name, Unit: e.Unit, UnitPrice: e.UnitPrice.Amount()}
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to seed service types: %w", err)
	}
	return nil
}

var _ quote.ServiceTypeRepository = (*GormServiceTypeRepository)(nil)
