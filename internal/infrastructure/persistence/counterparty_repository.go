package persistence

import (
	"context"

	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/erp/ledgerflow/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCounterpartyRepository implements partner.CounterpartyRepository using GORM
type GormCounterpartyRepository struct {
	db *gorm.DB
}

// NewGormCounterpartyRepository creates a new GormCounterpartyRepository
func NewGormCounterpartyRepository(db *gorm.DB) *GormCounterpartyRepository {
	return &GormCounterpartyRepository{db: db}
}

// FindByID finds a counterparty by its ID
func (r *GormCounterpartyRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Counterparty, error) {
	return r.find(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate finds a counterparty and locks its row
func (r *GormCounterpartyRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*partner.Counterparty, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), "id = ?", id)
}

// FindByCode finds a counterparty by its code
func (r *GormCounterpartyRepository) FindByCode(ctx context.Context, code string) (*partner.Counterparty, error) {
	return r.find(r.db.WithContext(ctx), "code = ?", code)
}

func (r *GormCounterpartyRepository) find(q *gorm.DB, cond string, arg any) (*partner.Counterparty, error) {
	var model models.CounterpartyModel
	if err := q.First(&model, cond, arg).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a counterparty
func (r *GormCounterpartyRepository) Save(ctx context.Context, c *partner.Counterparty) error {
	return translateError(r.db.WithContext(ctx).Save(models.CounterpartyModelFromDomain(c)).Error)
}

// GormBalanceEntryRepository implements partner.BalanceEntryRepository using GORM
type GormBalanceEntryRepository struct {
	db *gorm.DB
}

// NewGormBalanceEntryRepository creates a new GormBalanceEntryRepository
func NewGormBalanceEntryRepository(db *gorm.DB) *GormBalanceEntryRepository {
	return &GormBalanceEntryRepository{db: db}
}

// Create appends a balance entry
func (r *GormBalanceEntryRepository) Create(ctx context.Context, entry *partner.BalanceEntry) error {
	return translateError(r.db.WithContext(ctx).Create(models.BalanceEntryModelFromDomain(entry)).Error)
}

// FindByCounterparty returns the entries of a counterparty, oldest first
func (r *GormBalanceEntryRepository) FindByCounterparty(ctx context.Context, counterpartyID uuid.UUID) ([]partner.BalanceEntry, error) {
	var rows []models.BalanceEntryModel
	if err := r.db.WithContext(ctx).
		Where("counterparty_id = ?", counterpartyID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	out := make([]partner.BalanceEntry, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

var (
	_ partner.CounterpartyRepository = (*GormCounterpartyRepository)(nil)
	_ partner.BalanceEntryRepository = (*GormBalanceEntryRepository)(nil)
)
