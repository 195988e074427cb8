package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseStatus represents the status of an expense
type ExpenseStatus string

const (
	ExpenseStatusDraft     ExpenseStatus = "DRAFT"
	ExpenseStatusPosted    ExpenseStatus = "POSTED"
	ExpenseStatusCancelled ExpenseStatus = "CANCELLED"
)

// IsValid checks if the status is a known value
func (s ExpenseStatus) IsValid() bool {
	switch s {
	case ExpenseStatusDraft, ExpenseStatusPosted, ExpenseStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s ExpenseStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the expense graph has an edge to target.
// Only a posted expense can be cancelled.
func (s ExpenseStatus) CanTransitionTo(target ExpenseStatus) bool {
	switch s {
	case ExpenseStatusDraft:
		return target == ExpenseStatusPosted
	case ExpenseStatusPosted:
		return target == ExpenseStatusCancelled
	}
	return false
}

// ExpenseCategory groups expenses and names the account they are charged to
type ExpenseCategory struct {
	shared.BaseEntity
	Name             string
	ExpenseAccountID uuid.UUID
}

// NewExpenseCategory creates a category charging expenseAccountID
func NewExpenseCategory(name string, expenseAccountID uuid.UUID) (*ExpenseCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Category name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Category name cannot exceed 100 characters")
	}
	if expenseAccountID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeAccountNotConfigured, "Category needs an expense account")
	}
	now := time.Now()
	return &ExpenseCategory{
		BaseEntity:       shared.BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:             name,
		ExpenseAccountID: expenseAccountID,
	}, nil
}

// Expense is money spent outside trade: rent, utilities, fuel. Posting
// debits the category's expense account and credits the payment account.
type Expense struct {
	shared.BaseAggregateRoot
	Number      string
	Date        time.Time
	CategoryID  uuid.UUID
	WarehouseID uuid.UUID
	Description string
	Amount      decimal.Decimal
	Currency    valueobject.Currency
	// PaymentAccountID is the cash or bank account credited. uuid.Nil
	// means the warehouse's cash-or-bank account from the plan.
	PaymentAccountID uuid.UUID
	// ExpenseAccountID is the account debited, fixed when posted
	ExpenseAccountID uuid.UUID
	Status           ExpenseStatus
	PostingID        *uuid.UUID
	ReversalID       *uuid.UUID
	CancelReason     string
	PostedAt         *time.Time
	CancelledAt      *time.Time
}

// NewExpense creates a draft expense. A draft may carry a zero amount;
// posting requires a positive one.
func NewExpense(number string, date time.Time, categoryID, warehouseID uuid.UUID, amount valueobject.Money,
	paymentAccountID uuid.UUID, description string) (*Expense, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Expense number cannot be empty")
	}
	if categoryID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Expense category cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Expense amount cannot be negative")
	}
	if date.IsZero() {
		date = time.Now()
	}

	e := &Expense{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		Date:              date,
		CategoryID:        categoryID,
		WarehouseID:       warehouseID,
		Description:       strings.TrimSpace(description),
		Amount:            amount.Amount(),
		Currency:          amount.Currency(),
		PaymentAccountID:  paymentAccountID,
		Status:            ExpenseStatusDraft,
	}
	e.AddDomainEvent(NewExpenseEvent(EventTypeExpenseCreated, e, ""))
	return e, nil
}

// Total returns the amount as money
func (e *Expense) Total() valueobject.Money {
	return valueobject.MustMoney(e.Amount, e.Currency)
}

// Memo is the description used on ledger postings
func (e *Expense) Memo() string {
	if e.Description != "" {
		return e.Description
	}
	return "Expense " + e.Number
}

// CheckPostable reports why the expense cannot be posted, if it cannot
func (e *Expense) CheckPostable() error {
	if e.PostingID != nil {
		return shared.NewDomainError(shared.CodeInvalidState, "Expense "+e.Number+" is already posted")
	}
	if !e.Status.CanTransitionTo(ExpenseStatusPosted) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot post expense %s in %s status", e.Number, e.Status))
	}
	if !e.Amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Expense amount must be positive to post")
	}
	return nil
}

// MarkPosted records the posting and the account it charged
func (e *Expense) MarkPosted(expenseAccountID, transactionID uuid.UUID) error {
	if err := e.CheckPostable(); err != nil {
		return err
	}
	now := time.Now()
	id := transactionID
	e.ExpenseAccountID = expenseAccountID
	e.PostingID = &id
	e.PostedAt = &now
	e.moveTo(ExpenseStatusPosted, EventTypeExpensePosted)
	return nil
}

// CheckCancellable reports why the expense cannot be cancelled, if it cannot
func (e *Expense) CheckCancellable() error {
	if e.ReversalID != nil {
		return shared.NewDomainError(shared.CodeAlreadyReversed, "Expense "+e.Number+" is already reversed")
	}
	if !e.Status.CanTransitionTo(ExpenseStatusCancelled) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot cancel expense %s in %s status", e.Number, e.Status))
	}
	if e.PostingID == nil {
		return shared.NewDomainError(shared.CodeInvalidState, "Expense "+e.Number+" has no posting to reverse")
	}
	return nil
}

// MarkCancelled records the reversal of the posting
func (e *Expense) MarkCancelled(reversalID uuid.UUID, reason string) error {
	if err := e.CheckCancellable(); err != nil {
		return err
	}
	now := time.Now()
	id := reversalID
	e.ReversalID = &id
	e.CancelReason = reason
	e.CancelledAt = &now
	e.moveTo(ExpenseStatusCancelled, EventTypeExpenseCancelled)
	return nil
}

func (e *Expense) moveTo(target ExpenseStatus, eventType string) {
	from := e.Status
	e.Status = target
	e.Touch()
	e.IncrementVersion()
	e.AddDomainEvent(NewExpenseEvent(eventType, e, from))
}
