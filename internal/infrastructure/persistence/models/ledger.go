package models

import (
	"time"

	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for a chart-of-accounts node.
type AccountModel struct {
	AggregateModel
	Code     string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name     string               `gorm:"type:varchar(200);not null"`
	Type     ledger.AccountType   `gorm:"type:varchar(20);not null"`
	ParentID *uuid.UUID           `gorm:"type:uuid;index"`
	Currency valueobject.Currency `gorm:"type:varchar(3);not null"`
	IsLeaf   bool                 `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account.
func (m *AccountModel) ToDomain() *ledger.Account {
	return &ledger.Account{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		Type:              m.Type,
		ParentID:          m.ParentID,
		Currency:          m.Currency,
		IsLeaf:            m.IsLeaf,
	}
}

// AccountModelFromDomain creates a persistence model from a domain Account.
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{
		Code:     a.Code,
		Name:     a.Name,
		Type:     a.Type,
		ParentID: a.ParentID,
		Currency: a.Currency,
		IsLeaf:   a.IsLeaf,
	}
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	return m
}

// TransactionModel is the persistence model for a ledger transaction.
// ReversesID is unique: a transaction can be reversed at most once.
type TransactionModel struct {
	AggregateModel
	Date        time.Time            `gorm:"not null;index"`
	Description string               `gorm:"type:varchar(500)"`
	Currency    valueobject.Currency `gorm:"type:varchar(3);not null"`
	SourceType  string               `gorm:"type:varchar(50);index:idx_ledger_txn_source,priority:1"`
	SourceID    *uuid.UUID           `gorm:"type:uuid;index:idx_ledger_txn_source,priority:2"`
	ReversesID  *uuid.UUID           `gorm:"type:uuid;uniqueIndex"`
	Legs        []LegModel           `gorm:"foreignKey:TransactionID"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "ledger_transactions"
}

// LegModel is one debit or credit row of a transaction.
type LegModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Side          ledger.Side     `gorm:"type:varchar(10);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineNo        int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LegModel) TableName() string {
	return "ledger_legs"
}

// ToDomain converts the model and its legs to a domain Transaction.
// reversedBy comes from the rows whose ReversesID points here.
func (m *TransactionModel) ToDomain(reversedBy []uuid.UUID) *ledger.Transaction {
	txn := &ledger.Transaction{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Date:              m.Date,
		Description:       m.Description,
		Currency:          m.Currency,
		Legs:              make([]ledger.Leg, 0, len(m.Legs)),
		ReversesID:        m.ReversesID,
		ReversedBy:        UUIDList(reversedBy).Clone(),
	}
	if m.SourceID != nil {
		txn.Source = &ledger.Source{Type: m.SourceType, ID: *m.SourceID}
	}
	for _, leg := range m.Legs {
		txn.Legs = append(txn.Legs, ledger.Leg{
			ID:            leg.ID,
			TransactionID: leg.TransactionID,
			AccountID:     leg.AccountID,
			Side:          leg.Side,
			Amount:        leg.Amount,
			LineNo:        leg.LineNo,
		})
	}
	return txn
}

// TransactionModelFromDomain creates a persistence model with its legs.
func TransactionModelFromDomain(t *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{
		Date:        t.Date,
		Description: t.Description,
		Currency:    t.Currency,
		ReversesID:  t.ReversesID,
		Legs:        make([]LegModel, 0, len(t.Legs)),
	}
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	if t.Source != nil {
		id := t.Source.ID
		m.SourceType = t.Source.Type
		m.SourceID = &id
	}
	for _, leg := range t.Legs {
		m.Legs = append(m.Legs, LegModel{
			ID:            leg.ID,
			TransactionID: t.ID,
			AccountID:     leg.AccountID,
			Side:          leg.Side,
			Amount:        leg.Amount,
			LineNo:        leg.LineNo,
		})
	}
	return m
}
