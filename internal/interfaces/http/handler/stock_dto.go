package handler

import (
	appinv "github.com/erp/ledgerflow/internal/application/inventory"
	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiveStockRequest creates a lot
type ReceiveStockRequest struct {
	ProductID   uuid.UUID        `json:"product_id" binding:"required"`
	WarehouseID uuid.UUID        `json:"warehouse_id" binding:"required"`
	LotCode     string           `json:"lot_code" binding:"required,max=64"`
	Quantity    decimal.Decimal  `json:"quantity" binding:"gt=0"`
	UnitCost    decimal.Decimal  `json:"unit_cost" binding:"gte=0"`
	ExpiryDate  string           `json:"expiry_date" binding:"omitempty,datetime=2006-01-02"`
	Source      *SourceReference `json:"source"`
}

// ConsumeFEFORequest draws stock from the earliest-expiring lots
type ConsumeFEFORequest struct {
	ProductID   uuid.UUID        `json:"product_id" binding:"required"`
	WarehouseID uuid.UUID        `json:"warehouse_id" binding:"required"`
	Quantity    decimal.Decimal  `json:"quantity" binding:"gt=0"`
	Source      *SourceReference `json:"source"`
}

// ConsumeExactRequest draws stock from one named lot
type ConsumeExactRequest struct {
	ProductID      uuid.UUID        `json:"product_id" binding:"required"`
	WarehouseID    uuid.UUID        `json:"warehouse_id" binding:"required"`
	LotCode        string           `json:"lot_code" binding:"required"`
	Quantity       decimal.Decimal  `json:"quantity" binding:"gt=0"`
	AllowUnderflow bool             `json:"allow_underflow"`
	Source         *SourceReference `json:"source"`
}

// RestoreStockRequest puts stock back into a lot
type RestoreStockRequest struct {
	ProductID   uuid.UUID        `json:"product_id" binding:"required"`
	WarehouseID uuid.UUID        `json:"warehouse_id" binding:"required"`
	LotCode     string           `json:"lot_code" binding:"required"`
	Quantity    decimal.Decimal  `json:"quantity" binding:"gt=0"`
	ExpiryDate  string           `json:"expiry_date" binding:"omitempty,datetime=2006-01-02"`
	UnitCost    decimal.Decimal  `json:"unit_cost" binding:"gte=0"`
	Source      *SourceReference `json:"source"`
}

// LotQuery names a lot in query parameters
type LotQuery struct {
	ProductID   string `form:"product_id" binding:"required,uuid"`
	WarehouseID string `form:"warehouse_id" binding:"required,uuid"`
	LotCode     string `form:"lot_code"`
}

// BatchResponse represents a lot
type BatchResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id"`
	LotCode     string          `json:"lot_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	ExpiryDate  string          `json:"expiry_date,omitempty"`
	ReceivedAt  string          `json:"received_at"`
}

// ConsumptionResponse is what one consume removed from one lot
type ConsumptionResponse struct {
	Batch     BatchResponse   `json:"batch"`
	Removed   decimal.Decimal `json:"removed"`
	Shortfall decimal.Decimal `json:"shortfall"`
}

// OnHandResponse is the total of every lot of a product in a warehouse
type OnHandResponse struct {
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// MovementResponse is one entry of a lot's audit trail
type MovementResponse struct {
	ID           string          `json:"id"`
	Direction    string          `json:"direction"`
	Quantity     decimal.Decimal `json:"quantity"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reason       string          `json:"reason"`
	SourceType   string          `json:"source_type,omitempty"`
	SourceID     string          `json:"source_id,omitempty"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

func (r *SourceReference) stockSource() inventory.SourceRef {
	if r == nil {
		return inventory.SourceRef{Type: "manual"}
	}
	return inventory.SourceRef{Type: r.Type, ID: r.ID}
}

func toBatchResponse(b *inventory.Batch) BatchResponse {
	return BatchResponse{
		ID:          b.ID.String(),
		ProductID:   b.ProductID.String(),
		WarehouseID: b.WarehouseID.String(),
		LotCode:     b.LotCode,
		Quantity:    b.Quantity,
		UnitCost:    b.UnitCost,
		ExpiryDate:  formatDate(b.ExpiryDate),
		ReceivedAt:  b.ReceivedAt.Format(timeLayout),
	}
}

func toConsumptionResponse(c appinv.Consumption) ConsumptionResponse {
	return ConsumptionResponse{
		Batch:     toBatchResponse(c.Batch),
		Removed:   c.Removed,
		Shortfall: c.Shortfall,
	}
}

func toMovementResponse(m inventory.StockMovement) MovementResponse {
	return MovementResponse{
		ID:           m.ID.String(),
		Direction:    string(m.Direction),
		Quantity:     m.Quantity,
		BalanceAfter: m.BalanceAfter,
		Reason:       string(m.Reason),
		SourceType:   m.SourceType,
		SourceID:     optionalUUID(m.SourceID),
		Note:         m.Note,
		CreatedAt:    m.CreatedAt.Format(timeLayout),
	}
}
