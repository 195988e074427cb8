package finance

import (
	"context"

	"github.com/google/uuid"
)

// ReceiptRepository persists receipts and their allocations
type ReceiptRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Receipt, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Receipt, error)
	// FindAllocatedToForUpdate row-locks every receipt holding an active
	// allocation to the document
	FindAllocatedToForUpdate(ctx context.Context, documentID uuid.UUID) ([]Receipt, error)
	Save(ctx context.Context, r *Receipt) error
}

// ExpenseRepository persists expenses
type ExpenseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Expense, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Expense, error)
	Save(ctx context.Context, e *Expense) error
}

// ExpenseCategoryRepository persists expense categories. Names are unique.
type ExpenseCategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ExpenseCategory, error)
	Create(ctx context.Context, c *ExpenseCategory) error
}
