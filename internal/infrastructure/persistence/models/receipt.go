package models

import (
	"time"

	"github.com/erp/ledgerflow/internal/domain/finance"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptModel is the persistence model for customer receipts and supplier payments.
type ReceiptModel struct {
	AggregateModel
	Kind              finance.ReceiptKind  `gorm:"type:varchar(30);not null;uniqueIndex:idx_receipt_number,priority:1"`
	Number            string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_receipt_number,priority:2"`
	Date              time.Time            `gorm:"not null;index"`
	CounterpartyID    uuid.UUID            `gorm:"type:uuid;not null;index"`
	WarehouseID       uuid.UUID            `gorm:"type:uuid;not null"`
	Currency          valueobject.Currency `gorm:"type:varchar(3);not null"`
	Amount            decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	UnallocatedAmount decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PostingID         *uuid.UUID           `gorm:"type:uuid"`
	ReversalIDs       UUIDList             `gorm:"type:text;serializer:json"`
	Remark            string               `gorm:"type:text"`
	Allocations       []AllocationModel    `gorm:"foreignKey:ReceiptID"`
}

// TableName returns the table name for GORM
func (ReceiptModel) TableName() string {
	return "receipts"
}

// AllocationModel links part of a receipt to an invoice.
type AllocationModel struct {
	ID                uuid.UUID          `gorm:"type:uuid;primary_key"`
	ReceiptID         uuid.UUID          `gorm:"type:uuid;not null;index"`
	DocumentType      trade.DocumentType `gorm:"type:varchar(30);not null"`
	DocumentID        uuid.UUID          `gorm:"type:uuid;not null;index"`
	DocumentNumber    string             `gorm:"type:varchar(50)"`
	Amount            decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	AllocatedAt       time.Time          `gorm:"not null"`
	ReversedAt        *time.Time
	ReversalPostingID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "allocations"
}

// ToDomain converts the persistence model to a domain Receipt.
func (m *ReceiptModel) ToDomain() *finance.Receipt {
	r := &finance.Receipt{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Kind:              m.Kind,
		Number:            m.Number,
		Date:              m.Date,
		CounterpartyID:    m.CounterpartyID,
		WarehouseID:       m.WarehouseID,
		Currency:          m.Currency,
		Amount:            m.Amount,
		UnallocatedAmount: m.UnallocatedAmount,
		PostingID:         m.PostingID,
		ReversalIDs:       m.ReversalIDs.Clone(),
		Allocations:       make([]finance.Allocation, 0, len(m.Allocations)),
		Remark:            m.Remark,
	}
	for _, a := range m.Allocations {
		r.Allocations = append(r.Allocations, finance.Allocation{
			ID:                a.ID,
			ReceiptID:         a.ReceiptID,
			DocumentType:      a.DocumentType,
			DocumentID:        a.DocumentID,
			DocumentNumber:    a.DocumentNumber,
			Amount:            a.Amount,
			AllocatedAt:       a.AllocatedAt,
			ReversedAt:        a.ReversedAt,
			ReversalPostingID: a.ReversalPostingID,
		})
	}
	return r
}

// ReceiptModelFromDomain creates a persistence model with allocations.
func ReceiptModelFromDomain(r *finance.Receipt) *ReceiptModel {
	m := &ReceiptModel{
		Kind:              r.Kind,
		Number:            r.Number,
		Date:              r.Date,
		CounterpartyID:    r.CounterpartyID,
		WarehouseID:       r.WarehouseID,
		Currency:          r.Currency,
		Amount:            r.Amount,
		UnallocatedAmount: r.UnallocatedAmount,
		PostingID:         r.PostingID,
		ReversalIDs:       UUIDList(r.ReversalIDs).Clone(),
		Remark:            r.Remark,
		Allocations:       make([]AllocationModel, 0, len(r.Allocations)),
	}
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	for _, a := range r.Allocations {
		m.Allocations = append(m.Allocations, AllocationModel{
			ID:                a.ID,
			ReceiptID:         r.ID,
			DocumentType:      a.DocumentType,
			DocumentID:        a.DocumentID,
			DocumentNumber:    a.DocumentNumber,
			Amount:            a.Amount,
			AllocatedAt:       a.AllocatedAt,
			ReversedAt:        a.ReversedAt,
			ReversalPostingID: a.ReversalPostingID,
		})
	}
	return m
}
