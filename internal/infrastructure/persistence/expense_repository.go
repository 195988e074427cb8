package persistence

import (
	"context"

	"github.com/erp/ledgerflow/internal/domain/finance"
	"github.com/erp/ledgerflow/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormExpenseRepository implements finance.ExpenseRepository using GORM
type GormExpenseRepository struct {
	db *gorm.DB
}

// NewGormExpenseRepository creates a new GormExpenseRepository
func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

// FindByID finds an expense by its ID
func (r *GormExpenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Expense, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds an expense and locks its row
func (r *GormExpenseRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.Expense, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormExpenseRepository) find(q *gorm.DB, id uuid.UUID) (*finance.Expense, error) {
	var model models.ExpenseModel
	if err := q.First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save creates or updates an expense
func (r *GormExpenseRepository) Save(ctx context.Context, e *finance.Expense) error {
	return translateError(r.db.WithContext(ctx).Save(models.ExpenseModelFromDomain(e)).Error)
}

// GormExpenseCategoryRepository implements finance.ExpenseCategoryRepository
type GormExpenseCategoryRepository struct {
	db *gorm.DB
}

// NewGormExpenseCategoryRepository creates a new GormExpenseCategoryRepository
func NewGormExpenseCategoryRepository(db *gorm.DB) *GormExpenseCategoryRepository {
	return &GormExpenseCategoryRepository{db: db}
}

// FindByID finds a category by its ID
func (r *GormExpenseCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.ExpenseCategory, error) {
	var model models.ExpenseCategoryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a category. A taken name is shared.ErrAlreadyExists.
func (r *GormExpenseCategoryRepository) Create(ctx context.Context, c *finance.ExpenseCategory) error {
	return translateError(r.db.WithContext(ctx).Create(models.ExpenseCategoryModelFromDomain(c)).Error)
}

var (
	_ finance.ExpenseRepository         = (*GormExpenseRepository)(nil)
	_ finance.ExpenseCategoryRepository = (*GormExpenseCategoryRepository)(nil)
)
