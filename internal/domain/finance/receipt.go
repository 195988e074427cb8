package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptKind distinguishes money in from customers and money out to suppliers
type ReceiptKind string

const (
	ReceiptKindCustomer ReceiptKind = "CUSTOMER_RECEIPT"
	ReceiptKindSupplier ReceiptKind = "SUPPLIER_PAYMENT"
)

// IsValid checks if the kind is known
func (k ReceiptKind) IsValid() bool {
	return k == ReceiptKindCustomer || k == ReceiptKindSupplier
}

// String returns the string representation
func (k ReceiptKind) String() string {
	return string(k)
}

// SettlesDocument returns the invoice type this kind of receipt may be
// allocated to
func (k ReceiptKind) SettlesDocument() trade.DocumentType {
	if k == ReceiptKindCustomer {
		return trade.DocumentTypeSaleInvoice
	}
	return trade.DocumentTypePurchaseInvoice
}

// NumberPrefix is the sequence prefix for receipts of this kind
func (k ReceiptKind) NumberPrefix() string {
	if k == ReceiptKindCustomer {
		return "RCPT"
	}
	return "PAY"
}

// SourceType is the posting source type for receipts of this kind
func (k ReceiptKind) SourceType() string {
	if k == ReceiptKindCustomer {
		return "customer_receipt"
	}
	return "supplier_payment"
}

// Allocation applies part of a receipt to one document
type Allocation struct {
	ID                uuid.UUID
	ReceiptID         uuid.UUID
	DocumentType      trade.DocumentType
	DocumentID        uuid.UUID
	DocumentNumber    string
	Amount            decimal.Decimal
	AllocatedAt       time.Time
	ReversedAt        *time.Time
	ReversalPostingID *uuid.UUID
}

// IsActive returns true until the allocation has been reversed
func (a *Allocation) IsActive() bool {
	return a.ReversedAt == nil
}

// Receipt is cash received from a customer or paid to a supplier. It is
// posted on creation; allocations only move money between the receipt's
// unallocated balance and documents' paid amounts.
type Receipt struct {
	shared.BaseAggregateRoot
	Kind              ReceiptKind
	Number            string
	Date              time.Time
	CounterpartyID    uuid.UUID
	WarehouseID       uuid.UUID
	Currency          valueobject.Currency
	Amount            decimal.Decimal
	UnallocatedAmount decimal.Decimal
	PostingID         *uuid.UUID
	ReversalIDs       []uuid.UUID
	Allocations       []Allocation
	Remark            string
}

// NewReceipt creates a receipt with the full amount unallocated
func NewReceipt(kind ReceiptKind, number string, date time.Time, counterpartyID, warehouseID uuid.UUID, amount valueobject.Money) (*Receipt, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid receipt kind: "+string(kind))
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Receipt number cannot be empty")
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Counterparty ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Warehouse ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Amount must be positive")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Receipt date is required")
	}

	r := &Receipt{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Kind:              kind,
		Number:            number,
		Date:              date,
		CounterpartyID:    counterpartyID,
		WarehouseID:       warehouseID,
		Currency:          amount.Currency(),
		Amount:            amount.Amount(),
		UnallocatedAmount: amount.Amount(),
		ReversalIDs:       make([]uuid.UUID, 0),
		Allocations:       make([]Allocation, 0),
	}
	r.AddDomainEvent(NewReceiptRecordedEvent(r))
	return r, nil
}

// AttachPosting records the receipt's ledger transaction
func (r *Receipt) AttachPosting(transactionID uuid.UUID) {
	id := transactionID
	r.PostingID = &id
}

// AllocatedAmount sums active allocations
func (r *Receipt) AllocatedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, a := range r.Allocations {
		if a.IsActive() {
			total = total.Add(a.Amount)
		}
	}
	return total
}

// Money wraps an amount in the receipt currency
func (r *Receipt) Money(amount decimal.Decimal) valueobject.Money {
	return valueobject.MustMoney(amount, r.Currency)
}

// Allocate applies amount of the unallocated balance to a document
func (r *Receipt) Allocate(docType trade.DocumentType, docID uuid.UUID, docNumber string, amount decimal.Decimal) (*Allocation, error) {
	if docType != r.Kind.SettlesDocument() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("A %s cannot be allocated to a %s", r.Kind, docType))
	}
	if docID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Document ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Allocation amount must be positive")
	}
	if amount.GreaterThan(r.UnallocatedAmount) {
		return nil, shared.NewDomainError(shared.CodeExceedsUnallocated,
			fmt.Sprintf("Allocation %s exceeds unallocated %s on %s", amount.String(), r.UnallocatedAmount.String(), r.Number))
	}

	alloc := Allocation{
		ID:             uuid.New(),
		ReceiptID:      r.ID,
		DocumentType:   docType,
		DocumentID:     docID,
		DocumentNumber: docNumber,
		Amount:         amount,
		AllocatedAt:    time.Now(),
	}
	r.Allocations = append(r.Allocations, alloc)
	r.UnallocatedAmount = r.UnallocatedAmount.Sub(amount)
	r.Touch()
	r.IncrementVersion()

	r.AddDomainEvent(NewReceiptAllocatedEvent(r, &alloc))
	return &alloc, nil
}

// ActiveAllocatedTo sums active allocations to a document
func (r *Receipt) ActiveAllocatedTo(docID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, a := range r.Allocations {
		if a.DocumentID == docID && a.IsActive() {
			total = total.Add(a.Amount)
		}
	}
	return total
}

// ReverseAllocationsTo marks every active allocation to the document as
// reversed by the given transaction and shrinks the receipt by the same
// amount. The unallocated balance is untouched: the money went back to the
// counterparty, not back into the receipt.
func (r *Receipt) ReverseAllocationsTo(docID, reversalTransactionID uuid.UUID) decimal.Decimal {
	now := time.Now()
	reversed := decimal.Zero
	for idx := range r.Allocations {
		a := &r.Allocations[idx]
		if a.DocumentID != docID || !a.IsActive() {
			continue
		}
		txnID := reversalTransactionID
		a.ReversedAt = &now
		a.ReversalPostingID = &txnID
		reversed = reversed.Add(a.Amount)
	}
	if reversed.IsZero() {
		return reversed
	}

	r.Amount = r.Amount.Sub(reversed)
	r.ReversalIDs = append(r.ReversalIDs, reversalTransactionID)
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewReceiptAllocationsReversedEvent(r, docID, reversed))
	return reversed
}
