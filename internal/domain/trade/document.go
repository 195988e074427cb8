package trade

import (
	"strings"
	"time"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentType identifies the kind of trade document. It doubles as the
// source type on postings, stock movements and allocations.
type DocumentType string

const (
	DocumentTypeSaleInvoice     DocumentType = "sale_invoice"
	DocumentTypePurchaseInvoice DocumentType = "purchase_invoice"
	DocumentTypeSaleReturn      DocumentType = "sale_return"
	DocumentTypePurchaseReturn  DocumentType = "purchase_return"
)

// IsValid checks if the document type is known
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeSaleInvoice, DocumentTypePurchaseInvoice, DocumentTypeSaleReturn, DocumentTypePurchaseReturn:
		return true
	}
	return false
}

// IsInvoice returns true for sale and purchase invoices
func (t DocumentType) IsInvoice() bool {
	return t == DocumentTypeSaleInvoice || t == DocumentTypePurchaseInvoice
}

// String returns the string representation
func (t DocumentType) String() string {
	return string(t)
}

// PaymentStatus tracks how much of a document has been settled
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// ComputePaymentStatus derives the status from the settled amount
func ComputePaymentStatus(settled, total decimal.Decimal) PaymentStatus {
	switch {
	case settled.LessThanOrEqual(decimal.Zero):
		return PaymentStatusUnpaid
	case settled.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	default:
		return PaymentStatusPartial
	}
}

// Line is one product row on a document. FulfilledQty counts units
// delivered (sale) or received (purchase) so far.
type Line struct {
	ID           uuid.UUID
	DocumentID   uuid.UUID
	LineNo       int
	ProductID    uuid.UUID
	LotCode      string
	ExpiryDate   *time.Time
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Amount       decimal.Decimal
	FulfilledQty decimal.Decimal
}

func newLine(documentID uuid.UUID, lineNo int, productID uuid.UUID, lotCode string, expiry *time.Time, qty, unitPrice decimal.Decimal) (*Line, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ID cannot be empty")
	}
	if !qty.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unit price cannot be negative")
	}
	return &Line{
		ID:           uuid.New(),
		DocumentID:   documentID,
		LineNo:       lineNo,
		ProductID:    productID,
		LotCode:      strings.TrimSpace(lotCode),
		ExpiryDate:   expiry,
		Quantity:     qty,
		UnitPrice:    unitPrice,
		Amount:       qty.Mul(unitPrice),
		FulfilledQty: decimal.Zero,
	}, nil
}

// Remaining returns the quantity still to be fulfilled
func (l *Line) Remaining() decimal.Decimal {
	return l.Quantity.Sub(l.FulfilledQty)
}

// IsFulfilled reports whether the whole line has been fulfilled
func (l *Line) IsFulfilled() bool {
	return l.FulfilledQty.GreaterThanOrEqual(l.Quantity)
}

// HasLot reports whether the line names a specific lot
func (l *Line) HasLot() bool {
	return l.LotCode != ""
}

// Fulfillment records one stock movement a document caused: which line,
// which lot, how much. Cancelling restores exactly these lots.
type Fulfillment struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	LineID     uuid.UUID
	ProductID  uuid.UUID
	LotCode    string
	Quantity   decimal.Decimal
	CreatedAt  time.Time
}

// LineRequest asks for part of a line to be delivered or received. For
// purchase receipts LotCode, ExpiryDate and UnitCost describe the lot.
type LineRequest struct {
	LineID     uuid.UUID
	Quantity   decimal.Decimal
	LotCode    string
	ExpiryDate *time.Time
	UnitCost   *decimal.Decimal
}

// ProductLot keys returnable quantities
type ProductLot struct {
	ProductID uuid.UUID
	LotCode   string
}
