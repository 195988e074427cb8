package partner

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceReason names the business event behind a balance change
type BalanceReason string

const (
	ReasonInvoiceConfirm  BalanceReason = "INVOICE_CONFIRM"
	ReasonInvoiceCancel   BalanceReason = "INVOICE_CANCEL"
	ReasonReturnConfirm   BalanceReason = "RETURN_CONFIRM"
	ReasonReturnRefund    BalanceReason = "RETURN_REFUND"
	ReasonReturnCancel    BalanceReason = "RETURN_CANCEL"
	ReasonReceipt         BalanceReason = "RECEIPT"
	ReasonReceiptReversal BalanceReason = "RECEIPT_REVERSAL"
	ReasonOpeningBalance  BalanceReason = "OPENING_BALANCE"
)

// Source identifies the document that caused a balance change
type Source struct {
	Type string
	ID   uuid.UUID
}

// BalanceEntry is an immutable record of one running-balance change.
// Corrections are new entries, never edits.
type BalanceEntry struct {
	ID             uuid.UUID
	CounterpartyID uuid.UUID
	Delta          decimal.Decimal
	BalanceBefore  decimal.Decimal
	BalanceAfter   decimal.Decimal
	Reason         BalanceReason
	SourceType     string
	SourceID       uuid.UUID
	CreatedAt      time.Time
}

func newBalanceEntry(counterpartyID uuid.UUID, delta, before, after decimal.Decimal, reason BalanceReason, source Source) *BalanceEntry {
	return &BalanceEntry{
		ID:             uuid.New(),
		CounterpartyID: counterpartyID,
		Delta:          delta,
		BalanceBefore:  before,
		BalanceAfter:   after,
		Reason:         reason,
		SourceType:     source.Type,
		SourceID:       source.ID,
		CreatedAt:      time.Now(),
	}
}

// IsIncrease returns true when the entry raised the balance
func (e *BalanceEntry) IsIncrease() bool {
	return e.Delta.IsPositive()
}
