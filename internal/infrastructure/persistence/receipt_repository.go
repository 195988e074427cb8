package persistence

import (
	"context"

	"github.com/erp/ledgerflow/internal/domain/finance"
	"github.com/erp/ledgerflow/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReceiptRepository implements finance.ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

func orderedAllocations(db *gorm.DB) *gorm.DB {
	return db.Order("allocated_at ASC, id ASC")
}

// FindByID finds a receipt with its allocations
func (r *GormReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Receipt, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a receipt and locks its row
func (r *GormReceiptRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.Receipt, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormReceiptRepository) find(q *gorm.DB, id uuid.UUID) (*finance.Receipt, error) {
	var model models.ReceiptModel
	if err := q.Preload("Allocations", orderedAllocations).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAllocatedToForUpdate locks every receipt with an active allocation
// to the document. Rows are locked in ID order so concurrent cancels
// cannot deadlock on each other.
func (r *GormReceiptRepository) FindAllocatedToForUpdate(ctx context.Context, documentID uuid.UUID) ([]finance.Receipt, error) {
	active := r.db.Model(&models.AllocationModel{}).
		Select("receipt_id").
		Where("document_id = ? AND reversed_at IS NULL", documentID)

	var rows []models.ReceiptModel
	if err := forUpdate(r.db.WithContext(ctx)).
		Preload("Allocations", orderedAllocations).
		Where("id IN (?)", active).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	out := make([]finance.Receipt, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save writes the receipt header and syncs its allocations
func (r *GormReceiptRepository) Save(ctx context.Context, receipt *finance.Receipt) error {
	model := models.ReceiptModelFromDomain(receipt)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveAggregate(tx, model); err != nil {
			return err
		}
		keep := make([]uuid.UUID, len(model.Allocations))
		for i := range model.Allocations {
			keep[i] = model.Allocations[i].ID
		}
		if err := pruneChildren(tx, &models.AllocationModel{}, "receipt_id", model.ID, keep); err != nil {
			return err
		}
		for i := range model.Allocations {
			if err := tx.Save(&model.Allocations[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translateError(err)
}

var _ finance.ReceiptRepository = (*GormReceiptRepository)(nil)
