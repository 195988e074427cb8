package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchRepository persists lots. The ForUpdate variants row-lock what they
// return until the surrounding unit of work ends.
type BatchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	FindByKey(ctx context.Context, key BatchKey) (*Batch, error)
	FindByKeyForUpdate(ctx context.Context, key BatchKey) (*Batch, error)
	// FindWithStock returns every lot of the product in the warehouse holding
	// at least minQty, in FEFO order. Rows are not locked; callers re-read
	// the chosen lot with FindByKeyForUpdate.
	FindWithStock(ctx context.Context, productID, warehouseID uuid.UUID, minQty decimal.Decimal) ([]Batch, error)
	FindByProduct(ctx context.Context, productID, warehouseID uuid.UUID) ([]Batch, error)
	Create(ctx context.Context, batch *Batch) error
	Save(ctx context.Context, batch *Batch) error
}

// MovementRepository appends and reads stock movements
type MovementRepository interface {
	Create(ctx context.Context, movement *StockMovement) error
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]StockMovement, error)
	FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]StockMovement, error)
}
