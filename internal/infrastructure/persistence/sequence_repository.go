package persistence

import (
	"context"
	"time"

	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSequenceRepository hands out document numbers from a counter row per
// prefix. The increment row-locks the counter until the unit ends, so a
// rolled back unit gives its number back only if nothing else drew one.
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

// Next increments and returns the counter for prefix
func (r *GormSequenceRepository) Next(ctx context.Context, prefix string) (int64, error) {
	db := r.db.WithContext(ctx)
	now := time.Now()

	seed := models.SequenceModel{Prefix: prefix, UpdatedAt: now}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, translateError(err)
	}
	if err := db.Model(&models.SequenceModel{}).
		Where("prefix = ?", prefix).
		UpdateColumns(map[string]any{
			"value":      gorm.Expr("value + 1"),
			"updated_at": now,
		}).Error; err != nil {
		return 0, translateError(err)
	}

	var current models.SequenceModel
	if err := db.First(&current, "prefix = ?", prefix).Error; err != nil {
		return 0, translateError(err)
	}
	return current.Value, nil
}

var _ uow.SequenceRepository = (*GormSequenceRepository)(nil)
