package models

import (
	"time"

	"github.com/erp/ledgerflow/internal/domain/finance"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseCategoryModel is the persistence model for an expense category.
type ExpenseCategoryModel struct {
	BaseModel
	Name             string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	ExpenseAccountID uuid.UUID `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (ExpenseCategoryModel) TableName() string {
	return "expense_categories"
}

// ToDomain converts the persistence model to a domain ExpenseCategory.
func (m *ExpenseCategoryModel) ToDomain() *finance.ExpenseCategory {
	return &finance.ExpenseCategory{
		BaseEntity:       m.BaseModel.ToDomain(),
		Name:             m.Name,
		ExpenseAccountID: m.ExpenseAccountID,
	}
}

// ExpenseCategoryModelFromDomain creates a persistence model from a domain ExpenseCategory.
func ExpenseCategoryModelFromDomain(c *finance.ExpenseCategory) *ExpenseCategoryModel {
	m := &ExpenseCategoryModel{
		Name:             c.Name,
		ExpenseAccountID: c.ExpenseAccountID,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// ExpenseModel is the persistence model for a non-trade expense.
type ExpenseModel struct {
	AggregateModel
	Number           string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	Date             time.Time             `gorm:"not null;index"`
	CategoryID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	WarehouseID      uuid.UUID             `gorm:"type:uuid"`
	Description      string                `gorm:"type:text"`
	Amount           decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Currency         valueobject.Currency  `gorm:"type:varchar(3);not null"`
	PaymentAccountID uuid.UUID             `gorm:"type:uuid"`
	ExpenseAccountID uuid.UUID             `gorm:"type:uuid"`
	Status           finance.ExpenseStatus `gorm:"type:varchar(20);not null;index"`
	PostingID        *uuid.UUID            `gorm:"type:uuid"`
	ReversalID       *uuid.UUID            `gorm:"type:uuid"`
	CancelReason     string                `gorm:"type:varchar(500)"`
	PostedAt         *time.Time
	CancelledAt      *time.Time
}

// TableName returns the table name for GORM
func (ExpenseModel) TableName() string {
	return "expenses"
}

// ToDomain converts the persistence model to a domain Expense.
func (m *ExpenseModel) ToDomain() *finance.Expense {
	return &finance.Expense{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Number:            m.Number,
		Date:              m.Date,
		CategoryID:        m.CategoryID,
		WarehouseID:       m.WarehouseID,
		Description:       m.Description,
		Amount:            m.Amount,
		Currency:          m.Currency,
		PaymentAccountID:  m.PaymentAccountID,
		ExpenseAccountID:  m.ExpenseAccountID,
		Status:            m.Status,
		PostingID:         m.PostingID,
		ReversalID:        m.ReversalID,
		CancelReason:      m.CancelReason,
		PostedAt:          m.PostedAt,
		CancelledAt:       m.CancelledAt,
	}
}

// ExpenseModelFromDomain creates a persistence model from a domain Expense.
func ExpenseModelFromDomain(e *finance.Expense) *ExpenseModel {
	m := &ExpenseModel{
		Number:           e.Number,
		Date:             e.Date,
		CategoryID:       e.CategoryID,
		WarehouseID:      e.WarehouseID,
		Description:      e.Description,
		Amount:           e.Amount,
		Currency:         e.Currency,
		PaymentAccountID: e.PaymentAccountID,
		ExpenseAccountID: e.ExpenseAccountID,
		Status:           e.Status,
		PostingID:        e.PostingID,
		ReversalID:       e.ReversalID,
		CancelReason:     e.CancelReason,
		PostedAt:         e.PostedAt,
		CancelledAt:      e.CancelledAt,
	}
	m.FromDomainAggregateRoot(e.BaseAggregateRoot)
	return m
}
