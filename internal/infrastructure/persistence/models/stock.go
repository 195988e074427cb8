package models

import (
	"time"

	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchModel is the persistence model for a lot. The key columns carry a
// unique index so two units can never create the same lot.
type BatchModel struct {
	AggregateModel
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_batch_key,priority:1"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_batch_key,priority:2"`
	LotCode     string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_batch_key,priority:3"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0;check:quantity >= 0"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ExpiryDate  *time.Time      `gorm:"index"`
	ReceivedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BatchModel) TableName() string {
	return "stock_batches"
}

// ToDomain converts the persistence model to a domain Batch.
func (m *BatchModel) ToDomain() *inventory.Batch {
	return &inventory.Batch{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ProductID:         m.ProductID,
		WarehouseID:       m.WarehouseID,
		LotCode:           m.LotCode,
		Quantity:          m.Quantity,
		UnitCost:          m.UnitCost,
		ExpiryDate:        m.ExpiryDate,
		ReceivedAt:        m.ReceivedAt,
	}
}

// BatchModelFromDomain creates a persistence model from a domain Batch.
func BatchModelFromDomain(b *inventory.Batch) *BatchModel {
	m := &BatchModel{
		ProductID:   b.ProductID,
		WarehouseID: b.WarehouseID,
		LotCode:     b.LotCode,
		Quantity:    b.Quantity,
		UnitCost:    b.UnitCost,
		ExpiryDate:  b.ExpiryDate,
		ReceivedAt:  b.ReceivedAt,
	}
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	return m
}

// StockMovementModel is an append-only stock audit row.
type StockMovementModel struct {
	ID           uuid.UUID                `gorm:"type:uuid;primary_key"`
	BatchID      uuid.UUID                `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	WarehouseID  uuid.UUID                `gorm:"type:uuid;not null"`
	LotCode      string                   `gorm:"type:varchar(100);not null"`
	Direction    inventory.Direction      `gorm:"type:varchar(10);not null"`
	Quantity     decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	BalanceAfter decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Reason       inventory.MovementReason `gorm:"type:varchar(30);not null"`
	SourceType   string                   `gorm:"type:varchar(50);index:idx_movement_source,priority:1"`
	SourceID     *uuid.UUID               `gorm:"type:uuid;index:idx_movement_source,priority:2"`
	Note         string                   `gorm:"type:varchar(500)"`
	CreatedAt    time.Time                `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement.
func (m *StockMovementModel) ToDomain() *inventory.StockMovement {
	return &inventory.StockMovement{
		ID:           m.ID,
		BatchID:      m.BatchID,
		ProductID:    m.ProductID,
		WarehouseID:  m.WarehouseID,
		LotCode:      m.LotCode,
		Direction:    m.Direction,
		Quantity:     m.Quantity,
		BalanceAfter: m.BalanceAfter,
		Reason:       m.Reason,
		SourceType:   m.SourceType,
		SourceID:     m.SourceID,
		Note:         m.Note,
		CreatedAt:    m.CreatedAt,
	}
}

// StockMovementModelFromDomain creates a persistence model from a movement.
func StockMovementModelFromDomain(s *inventory.StockMovement) *StockMovementModel {
	return &StockMovementModel{
		ID:           s.ID,
		BatchID:      s.BatchID,
		ProductID:    s.ProductID,
		WarehouseID:  s.WarehouseID,
		LotCode:      s.LotCode,
		Direction:    s.Direction,
		Quantity:     s.Quantity,
		BalanceAfter: s.BalanceAfter,
		Reason:       s.Reason,
		SourceType:   s.SourceType,
		SourceID:     s.SourceID,
		Note:         s.Note,
		CreatedAt:    s.CreatedAt,
	}
}
