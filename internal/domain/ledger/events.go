package ledger

import (
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeTransactionPosted   = "TransactionPosted"
	EventTypeTransactionReversed = "TransactionReversed"

	AggregateTypeTransaction = "LedgerTransaction"
)

// TransactionPostedEvent is raised when a balanced transaction is created
type TransactionPostedEvent struct {
	shared.BaseDomainEvent
	Description string          `json:"description"`
	Total       decimal.Decimal `json:"total"`
	LegCount    int             `json:"leg_count"`
}

// NewTransactionPostedEvent creates a TransactionPostedEvent
func NewTransactionPostedEvent(t *Transaction) *TransactionPostedEvent {
	return &TransactionPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionPosted, AggregateTypeTransaction, t.ID),
		Description:     t.Description,
		Total:           t.TotalDebit(),
		LegCount:        len(t.Legs),
	}
}

// TransactionReversedEvent is raised when a reversal is posted
type TransactionReversedEvent struct {
	shared.BaseDomainEvent
	OriginalID uuid.UUID `json:"original_id"`
}

// NewTransactionReversedEvent creates a TransactionReversedEvent
func NewTransactionReversedEvent(originalID, reversalID uuid.UUID) *TransactionReversedEvent {
	return &TransactionReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionReversed, AggregateTypeTransaction, reversalID),
		OriginalID:      originalID,
	}
}
