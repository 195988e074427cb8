package inventory

import (
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeBatchReceived = "BatchReceived"
	EventTypeStockConsumed = "StockConsumed"
	EventTypeStockRestored = "StockRestored"

	AggregateTypeBatch = "Batch"
)

// BatchReceivedEvent is raised when a new lot is created
type BatchReceivedEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID       `json:"product_id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	LotCode     string          `json:"lot_code"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// NewBatchReceivedEvent creates a BatchReceivedEvent
func NewBatchReceivedEvent(b *Batch) *BatchReceivedEvent {
	return &BatchReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchReceived, AggregateTypeBatch, b.ID),
		ProductID:       b.ProductID,
		WarehouseID:     b.WarehouseID,
		LotCode:         b.LotCode,
		Quantity:        b.Quantity,
	}
}

// StockMovedEvent is raised for consumption and restoration of a lot
type StockMovedEvent struct {
	shared.BaseDomainEvent
	ProductID    uuid.UUID       `json:"product_id"`
	WarehouseID  uuid.UUID       `json:"warehouse_id"`
	LotCode      string          `json:"lot_code"`
	Quantity     decimal.Decimal `json:"quantity"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	SourceType   string          `json:"source_type,omitempty"`
}

// NewStockMovedEvent creates the event matching a movement's direction
func NewStockMovedEvent(m *StockMovement) *StockMovedEvent {
	eventType := EventTypeStockRestored
	if m.Direction == DirectionOut {
		eventType = EventTypeStockConsumed
	}
	return &StockMovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeBatch, m.BatchID),
		ProductID:       m.ProductID,
		WarehouseID:     m.WarehouseID,
		LotCode:         m.LotCode,
		Quantity:        m.Quantity,
		BalanceAfter:    m.BalanceAfter,
		SourceType:      m.SourceType,
	}
}
