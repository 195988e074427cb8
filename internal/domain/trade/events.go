package trade

import (
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeInvoice = "Invoice"
	AggregateTypeReturn  = "Return"
)

// Event type constants
const (
	EventTypeInvoiceCreated   = "InvoiceCreated"
	EventTypeInvoiceConfirmed = "InvoiceConfirmed"
	EventTypeInvoiceCompleted = "InvoiceCompleted"
	EventTypeInvoiceCancelled = "InvoiceCancelled"

	EventTypeReturnCreated   = "ReturnCreated"
	EventTypeReturnConfirmed = "ReturnConfirmed"
	EventTypeReturnReturned  = "ReturnReturned"
	EventTypeReturnRefunded  = "ReturnRefunded"
	EventTypeReturnCredited  = "ReturnCredited"
	EventTypeReturnCancelled = "ReturnCancelled"
)

// InvoiceEvent is raised on every invoice status change
type InvoiceEvent struct {
	shared.BaseDomainEvent
	DocumentType   DocumentType    `json:"document_type"`
	Number         string          `json:"number"`
	CounterpartyID uuid.UUID       `json:"counterparty_id"`
	FromStatus     InvoiceStatus   `json:"from_status,omitempty"`
	ToStatus       InvoiceStatus   `json:"to_status"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// NewInvoiceEvent creates an InvoiceEvent of the given type
func NewInvoiceEvent(eventType string, inv *Invoice, from InvoiceStatus) *InvoiceEvent {
	return &InvoiceEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeInvoice, inv.ID),
		DocumentType:    inv.Type,
		Number:          inv.Number,
		CounterpartyID:  inv.CounterpartyID,
		FromStatus:      from,
		ToStatus:        inv.Status,
		GrandTotal:      inv.GrandTotal,
	}
}

// ReturnEvent is raised on every return status change
type ReturnEvent struct {
	shared.BaseDomainEvent
	DocumentType   DocumentType    `json:"document_type"`
	Number         string          `json:"number"`
	CounterpartyID uuid.UUID       `json:"counterparty_id"`
	FromStatus     ReturnStatus    `json:"from_status,omitempty"`
	ToStatus       ReturnStatus    `json:"to_status"`
	Total          decimal.Decimal `json:"total"`
}

// NewReturnEvent creates a ReturnEvent of the given type
func NewReturnEvent(eventType string, r *Return, from ReturnStatus) *ReturnEvent {
	return &ReturnEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeReturn, r.ID),
		DocumentType:    r.Type,
		Number:          r.Number,
		CounterpartyID:  r.CounterpartyID,
		FromStatus:      from,
		ToStatus:        r.Status,
		Total:           r.Total,
	}
}
