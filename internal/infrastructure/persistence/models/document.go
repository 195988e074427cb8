package models

import (
	"time"

	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for sale and purchase invoices.
// Number is unique per document type.
type InvoiceModel struct {
	AggregateModel
	Type           trade.DocumentType   `gorm:"type:varchar(30);not null;uniqueIndex:idx_invoice_number,priority:1"`
	Number         string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_number,priority:2"`
	Date           time.Time            `gorm:"not null;index"`
	CounterpartyID uuid.UUID            `gorm:"type:uuid;not null;index"`
	WarehouseID    uuid.UUID            `gorm:"type:uuid;not null"`
	Currency       valueobject.Currency `gorm:"type:varchar(3);not null"`
	Subtotal       decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Discount       decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Tax            decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	GrandTotal     decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	PaidAmount     decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	CreditedAmount decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Status         trade.InvoiceStatus  `gorm:"type:varchar(20);not null;index"`
	PaymentStatus  trade.PaymentStatus  `gorm:"type:varchar(20);not null"`
	PostingID      *uuid.UUID           `gorm:"type:uuid"`
	ReversalIDs    UUIDList             `gorm:"type:text;serializer:json"`
	Remark         string               `gorm:"type:text"`
	CancelReason   string               `gorm:"type:varchar(500)"`
	ConfirmedAt    *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	Lines          []DocumentLineModel `gorm:"foreignKey:DocumentID"`
	Fulfillments   []FulfillmentModel  `gorm:"foreignKey:DocumentID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// DocumentLineModel stores a line of an invoice or a return.
type DocumentLineModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	DocumentID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo       int             `gorm:"not null"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotCode      string          `gorm:"type:varchar(100)"`
	ExpiryDate   *time.Time
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	FulfilledQty decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (DocumentLineModel) TableName() string {
	return "document_lines"
}

// FulfillmentModel records the lot a delivery or receipt moved.
type FulfillmentModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	DocumentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineID     uuid.UUID       `gorm:"type:uuid;not null"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null"`
	LotCode    string          `gorm:"type:varchar(100);not null"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FulfillmentModel) TableName() string {
	return "fulfillments"
}

func linesToDomain(lines []DocumentLineModel) []trade.Line {
	out := make([]trade.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, trade.Line{
			ID:           l.ID,
			DocumentID:   l.DocumentID,
			LineNo:       l.LineNo,
			ProductID:    l.ProductID,
			LotCode:      l.LotCode,
			ExpiryDate:   l.ExpiryDate,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			Amount:       l.Amount,
			FulfilledQty: l.FulfilledQty,
		})
	}
	return out
}

func linesFromDomain(documentID uuid.UUID, lines []trade.Line) []DocumentLineModel {
	out := make([]DocumentLineModel, 0, len(lines))
	for _, l := range lines {
		out = append(out, DocumentLineModel{
			ID:           l.ID,
			DocumentID:   documentID,
			LineNo:       l.LineNo,
			ProductID:    l.ProductID,
			LotCode:      l.LotCode,
			ExpiryDate:   l.ExpiryDate,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			Amount:       l.Amount,
			FulfilledQty: l.FulfilledQty,
		})
	}
	return out
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *trade.Invoice {
	inv := &trade.Invoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Type:              m.Type,
		Number:            m.Number,
		Date:              m.Date,
		CounterpartyID:    m.CounterpartyID,
		WarehouseID:       m.WarehouseID,
		Currency:          m.Currency,
		Lines:             linesToDomain(m.Lines),
		Fulfillments:      make([]trade.Fulfillment, 0, len(m.Fulfillments)),
		Subtotal:          m.Subtotal,
		Discount:          m.Discount,
		Tax:               m.Tax,
		GrandTotal:        m.GrandTotal,
		PaidAmount:        m.PaidAmount,
		CreditedAmount:    m.CreditedAmount,
		Status:            m.Status,
		PaymentStatus:     m.PaymentStatus,
		PostingID:         m.PostingID,
		ReversalIDs:       m.ReversalIDs.Clone(),
		Remark:            m.Remark,
		CancelReason:      m.CancelReason,
		ConfirmedAt:       m.ConfirmedAt,
		CompletedAt:       m.CompletedAt,
		CancelledAt:       m.CancelledAt,
	}
	for _, f := range m.Fulfillments {
		inv.Fulfillments = append(inv.Fulfillments, trade.Fulfillment{
			ID:         f.ID,
			DocumentID: f.DocumentID,
			LineID:     f.LineID,
			ProductID:  f.ProductID,
			LotCode:    f.LotCode,
			Quantity:   f.Quantity,
			CreatedAt:  f.CreatedAt,
		})
	}
	return inv
}

// InvoiceModelFromDomain creates a persistence model with lines and fulfillments.
func InvoiceModelFromDomain(inv *trade.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		Type:           inv.Type,
		Number:         inv.Number,
		Date:           inv.Date,
		CounterpartyID: inv.CounterpartyID,
		WarehouseID:    inv.WarehouseID,
		Currency:       inv.Currency,
		Subtotal:       inv.Subtotal,
		Discount:       inv.Discount,
		Tax:            inv.Tax,
		GrandTotal:     inv.GrandTotal,
		PaidAmount:     inv.PaidAmount,
		CreditedAmount: inv.CreditedAmount,
		Status:         inv.Status,
		PaymentStatus:  inv.PaymentStatus,
		PostingID:      inv.PostingID,
		ReversalIDs:    UUIDList(inv.ReversalIDs).Clone(),
		Remark:         inv.Remark,
		CancelReason:   inv.CancelReason,
		ConfirmedAt:    inv.ConfirmedAt,
		CompletedAt:    inv.CompletedAt,
		CancelledAt:    inv.CancelledAt,
		Lines:          linesFromDomain(inv.ID, inv.Lines),
		Fulfillments:   make([]FulfillmentModel, 0, len(inv.Fulfillments)),
	}
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	for _, f := range inv.Fulfillments {
		m.Fulfillments = append(m.Fulfillments, FulfillmentModel{
			ID:         f.ID,
			DocumentID: inv.ID,
			LineID:     f.LineID,
			ProductID:  f.ProductID,
			LotCode:    f.LotCode,
			Quantity:   f.Quantity,
			CreatedAt:  f.CreatedAt,
		})
	}
	return m
}

// ReturnModel is the persistence model for sale and purchase returns.
type ReturnModel struct {
	AggregateModel
	Type           trade.DocumentType   `gorm:"type:varchar(30);not null;uniqueIndex:idx_return_number,priority:1"`
	Number         string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_return_number,priority:2"`
	Date           time.Time            `gorm:"not null;index"`
	CounterpartyID uuid.UUID            `gorm:"type:uuid;not null;index"`
	WarehouseID    uuid.UUID            `gorm:"type:uuid;not null"`
	Currency       valueobject.Currency `gorm:"type:varchar(3);not null"`
	InvoiceID      *uuid.UUID           `gorm:"type:uuid;index"`
	Subtotal       decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Tax            decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Total          decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	RefundedAmount decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	CreditedAmount decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Status         trade.ReturnStatus   `gorm:"type:varchar(20);not null;index"`
	PaymentStatus  trade.PaymentStatus  `gorm:"type:varchar(20);not null"`
	PostingID      *uuid.UUID           `gorm:"type:uuid"`
	RefundID       *uuid.UUID           `gorm:"type:uuid"`
	ReversalIDs    UUIDList             `gorm:"type:text;serializer:json"`
	Reason         string               `gorm:"type:varchar(500)"`
	ConfirmedAt    *time.Time
	ReturnedAt     *time.Time
	SettledAt      *time.Time
	CancelledAt    *time.Time
	Lines          []DocumentLineModel `gorm:"foreignKey:DocumentID"`
}

// TableName returns the table name for GORM
func (ReturnModel) TableName() string {
	return "returns"
}

// ToDomain converts the persistence model to a domain Return.
func (m *ReturnModel) ToDomain() *trade.Return {
	return &trade.Return{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Type:              m.Type,
		Number:            m.Number,
		Date:              m.Date,
		CounterpartyID:    m.CounterpartyID,
		WarehouseID:       m.WarehouseID,
		Currency:          m.Currency,
		InvoiceID:         m.InvoiceID,
		Lines:             linesToDomain(m.Lines),
		Subtotal:          m.Subtotal,
		Tax:               m.Tax,
		Total:             m.Total,
		RefundedAmount:    m.RefundedAmount,
		CreditedAmount:    m.CreditedAmount,
		Status:            m.Status,
		PaymentStatus:     m.PaymentStatus,
		PostingID:         m.PostingID,
		RefundID:          m.RefundID,
		ReversalIDs:       m.ReversalIDs.Clone(),
		Reason:            m.Reason,
		ConfirmedAt:       m.ConfirmedAt,
		ReturnedAt:        m.ReturnedAt,
		SettledAt:         m.SettledAt,
		CancelledAt:       m.CancelledAt,
	}
}

// ReturnModelFromDomain creates a persistence model with lines.
func ReturnModelFromDomain(r *trade.Return) *ReturnModel {
	m := &ReturnModel{
		Type:           r.Type,
		Number:         r.Number,
		Date:           r.Date,
		CounterpartyID: r.CounterpartyID,
		WarehouseID:    r.WarehouseID,
		Currency:       r.Currency,
		InvoiceID:      r.InvoiceID,
		Subtotal:       r.Subtotal,
		Tax:            r.Tax,
		Total:          r.Total,
		RefundedAmount: r.RefundedAmount,
		CreditedAmount: r.CreditedAmount,
		Status:         r.Status,
		PaymentStatus:  r.PaymentStatus,
		PostingID:      r.PostingID,
		RefundID:       r.RefundID,
		ReversalIDs:    UUIDList(r.ReversalIDs).Clone(),
		Reason:         r.Reason,
		ConfirmedAt:    r.ConfirmedAt,
		ReturnedAt:     r.ReturnedAt,
		SettledAt:      r.SettledAt,
		CancelledAt:    r.CancelledAt,
		Lines:          linesFromDomain(r.ID, r.Lines),
	}
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	return m
}
