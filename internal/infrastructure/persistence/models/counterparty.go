package models

import (
	"time"

	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CounterpartyModel is the persistence model for a customer or supplier.
type CounterpartyModel struct {
	AggregateModel
	Code           string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name           string          `gorm:"type:varchar(200);not null"`
	Kind           partner.Kind    `gorm:"type:varchar(20);not null;index"`
	AccountID      uuid.UUID       `gorm:"type:uuid;not null"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (CounterpartyModel) TableName() string {
	return "counterparties"
}

// ToDomain converts the persistence model to a domain Counterparty.
func (m *CounterpartyModel) ToDomain() *partner.Counterparty {
	return &partner.Counterparty{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		Kind:              m.Kind,
		AccountID:         m.AccountID,
		CurrentBalance:    m.CurrentBalance,
	}
}

// CounterpartyModelFromDomain creates a persistence model from a domain Counterparty.
func CounterpartyModelFromDomain(c *partner.Counterparty) *CounterpartyModel {
	m := &CounterpartyModel{
		Code:           c.Code,
		Name:           c.Name,
		Kind:           c.Kind,
		AccountID:      c.AccountID,
		CurrentBalance: c.CurrentBalance,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	return m
}

// BalanceEntryModel is an immutable running-balance audit row.
type BalanceEntryModel struct {
	ID             uuid.UUID             `gorm:"type:uuid;primary_key"`
	CounterpartyID uuid.UUID             `gorm:"type:uuid;not null;index"`
	Delta          decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	BalanceBefore  decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	BalanceAfter   decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Reason         partner.BalanceReason `gorm:"type:varchar(30);not null"`
	SourceType     string                `gorm:"type:varchar(50)"`
	SourceID       uuid.UUID             `gorm:"type:uuid"`
	CreatedAt      time.Time             `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (BalanceEntryModel) TableName() string {
	return "balance_entries"
}

// ToDomain converts the persistence model to a domain BalanceEntry.
func (m *BalanceEntryModel) ToDomain() *partner.BalanceEntry {
	return &partner.BalanceEntry{
		ID:             m.ID,
		CounterpartyID: m.CounterpartyID,
		Delta:          m.Delta,
		BalanceBefore:  m.BalanceBefore,
		BalanceAfter:   m.BalanceAfter,
		Reason:         m.Reason,
		SourceType:     m.SourceType,
		SourceID:       m.SourceID,
		CreatedAt:      m.CreatedAt,
	}
}

// BalanceEntryModelFromDomain creates a persistence model from a balance entry.
func BalanceEntryModelFromDomain(e *partner.BalanceEntry) *BalanceEntryModel {
	return &BalanceEntryModel{
		ID:             e.ID,
		CounterpartyID: e.CounterpartyID,
		Delta:          e.Delta,
		BalanceBefore:  e.BalanceBefore,
		BalanceAfter:   e.BalanceAfter,
		Reason:         e.Reason,
		SourceType:     e.SourceType,
		SourceID:       e.SourceID,
		CreatedAt:      e.CreatedAt,
	}
}
