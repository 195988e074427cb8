package finance

import (
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateTypeExpense = "Expense"

const (
	EventTypeExpenseCreated   = "ExpenseCreated"
	EventTypeExpensePosted    = "ExpensePosted"
	EventTypeExpenseCancelled = "ExpenseCancelled"
)

// ExpenseEvent carries an expense status change
type ExpenseEvent struct {
	shared.BaseDomainEvent
	Number     string          `json:"number"`
	CategoryID uuid.UUID       `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	FromStatus ExpenseStatus   `json:"from_status,omitempty"`
	ToStatus   ExpenseStatus   `json:"to_status"`
}

// NewExpenseEvent creates an ExpenseEvent of the given type
func NewExpenseEvent(eventType string, e *Expense, from ExpenseStatus) *ExpenseEvent {
	return &ExpenseEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeExpense, e.ID),
		Number:          e.Number,
		CategoryID:      e.CategoryID,
		Amount:          e.Amount,
		FromStatus:      from,
		ToStatus:        e.Status,
	}
}
