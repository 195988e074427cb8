package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the flow of a stock movement
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// MovementReason records which operation produced a movement
type MovementReason string

const (
	ReasonReceive      MovementReason = "RECEIVE"
	ReasonConsumeFEFO  MovementReason = "CONSUME_FEFO"
	ReasonConsumeExact MovementReason = "CONSUME_EXACT"
	ReasonRestore      MovementReason = "RESTORE"
)

// SourceRef points at the document that caused a movement
type SourceRef struct {
	Type string
	ID   uuid.UUID
}

// StockMovement is an append-only audit row. One is written for every
// mutating stock ledger call.
type StockMovement struct {
	ID           uuid.UUID
	BatchID      uuid.UUID
	ProductID    uuid.UUID
	WarehouseID  uuid.UUID
	LotCode      string
	Direction    Direction
	Quantity     decimal.Decimal
	BalanceAfter decimal.Decimal
	Reason       MovementReason
	SourceType   string
	SourceID     *uuid.UUID
	Note         string
	CreatedAt    time.Time
}

// NewStockMovement records qty moving in direction against the batch,
// capturing the batch quantity after the change.
func NewStockMovement(b *Batch, direction Direction, qty decimal.Decimal, reason MovementReason, source SourceRef) *StockMovement {
	m := &StockMovement{
		ID:           uuid.New(),
		BatchID:      b.ID,
		ProductID:    b.ProductID,
		WarehouseID:  b.WarehouseID,
		LotCode:      b.LotCode,
		Direction:    direction,
		Quantity:     qty,
		BalanceAfter: b.Quantity,
		Reason:       reason,
		SourceType:   source.Type,
		CreatedAt:    time.Now(),
	}
	if source.ID != uuid.Nil {
		id := source.ID
		m.SourceID = &id
	}
	return m
}

// SignedQuantity is positive for IN and negative for OUT
func (m *StockMovement) SignedQuantity() decimal.Decimal {
	if m.Direction == DirectionOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}
