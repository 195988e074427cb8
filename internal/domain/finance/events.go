package finance

import (
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeReceipt = "Receipt"

// Event type constants
const (
	EventTypeReceiptRecorded           = "ReceiptRecorded"
	EventTypeReceiptAllocated          = "ReceiptAllocated"
	EventTypeReceiptAllocationReversed = "ReceiptAllocationReversed"
)

// ReceiptRecordedEvent is raised when a receipt or payment is created
type ReceiptRecordedEvent struct {
	shared.BaseDomainEvent
	Kind           ReceiptKind     `json:"kind"`
	Number         string          `json:"number"`
	CounterpartyID uuid.UUID       `json:"counterparty_id"`
	Amount         decimal.Decimal `json:"amount"`
}

// NewReceiptRecordedEvent creates a ReceiptRecordedEvent
func NewReceiptRecordedEvent(r *Receipt) *ReceiptRecordedEvent {
	return &ReceiptRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptRecorded, AggregateTypeReceipt, r.ID),
		Kind:            r.Kind,
		Number:          r.Number,
		CounterpartyID:  r.CounterpartyID,
		Amount:          r.Amount,
	}
}

// ReceiptAllocatedEvent is raised when part of a receipt settles a document
type ReceiptAllocatedEvent struct {
	shared.BaseDomainEvent
	AllocationID uuid.UUID       `json:"allocation_id"`
	DocumentID   uuid.UUID       `json:"document_id"`
	Amount       decimal.Decimal `json:"amount"`
	Unallocated  decimal.Decimal `json:"unallocated"`
}

// NewReceiptAllocatedEvent creates a ReceiptAllocatedEvent
func NewReceiptAllocatedEvent(r *Receipt, a *Allocation) *ReceiptAllocatedEvent {
	return &ReceiptAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptAllocated, AggregateTypeReceipt, r.ID),
		AllocationID:    a.ID,
		DocumentID:      a.DocumentID,
		Amount:          a.Amount,
		Unallocated:     r.UnallocatedAmount,
	}
}

// ReceiptAllocationsReversedEvent is raised when a cancelled document
// takes its allocations back
type ReceiptAllocationsReversedEvent struct {
	shared.BaseDomainEvent
	DocumentID uuid.UUID       `json:"document_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// NewReceiptAllocationsReversedEvent creates a ReceiptAllocationsReversedEvent
func NewReceiptAllocationsReversedEvent(r *Receipt, docID uuid.UUID, amount decimal.Decimal) *ReceiptAllocationsReversedEvent {
	return &ReceiptAllocationsReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptAllocationReversed, AggregateTypeReceipt, r.ID),
		DocumentID:      docID,
		Amount:          amount,
	}
}
