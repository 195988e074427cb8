package partner

import (
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	EventTypeBalanceChanged = "CounterpartyBalanceChanged"

	AggregateTypeCounterparty = "Counterparty"
)

// BalanceChangedEvent is raised whenever the running balance moves
type BalanceChangedEvent struct {
	shared.BaseDomainEvent
	Code         string          `json:"code"`
	Delta        decimal.Decimal `json:"delta"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reason       BalanceReason   `json:"reason"`
}

// NewBalanceChangedEvent creates a BalanceChangedEvent
func NewBalanceChangedEvent(c *Counterparty, e *BalanceEntry) *BalanceChangedEvent {
	return &BalanceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBalanceChanged, AggregateTypeCounterparty, c.ID),
		Code:            c.Code,
		Delta:           e.Delta,
		BalanceAfter:    e.BalanceAfter,
		Reason:          e.Reason,
	}
}
