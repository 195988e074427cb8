package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchKey identifies a lot within a warehouse
type BatchKey struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	LotCode     string
}

// NewBatchKey builds a key with a trimmed lot code
func NewBatchKey(productID, warehouseID uuid.UUID, lotCode string) BatchKey {
	return BatchKey{ProductID: productID, WarehouseID: warehouseID, LotCode: strings.TrimSpace(lotCode)}
}

// Validate checks that every part of the key is present
func (k BatchKey) Validate() error {
	if k.ProductID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product ID cannot be empty")
	}
	if k.WarehouseID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Warehouse ID cannot be empty")
	}
	if k.LotCode == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Lot code cannot be empty")
	}
	return nil
}

// LockName is the name used for key locks on this lot
func (k BatchKey) LockName() string {
	return fmt.Sprintf("stock:%s:%s:%s", k.ProductID, k.WarehouseID, k.LotCode)
}

// String implements fmt.Stringer
func (k BatchKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.ProductID, k.WarehouseID, k.LotCode)
}

// Batch is a quantity of one product in one warehouse under a lot code.
// Quantity never goes below zero.
type Batch struct {
	shared.BaseAggregateRoot
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	LotCode     string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	ExpiryDate  *time.Time
	ReceivedAt  time.Time
}

// NewBatch creates a batch holding qty units
func NewBatch(key BatchKey, qty, unitCost decimal.Decimal, expiry *time.Time, receivedAt time.Time) (*Batch, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if !qty.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unit cost cannot be negative")
	}

	b := &Batch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         key.ProductID,
		WarehouseID:       key.WarehouseID,
		LotCode:           key.LotCode,
		Quantity:          qty,
		UnitCost:          unitCost,
		ExpiryDate:        expiry,
		ReceivedAt:        receivedAt,
	}
	b.AddDomainEvent(NewBatchReceivedEvent(b))
	return b, nil
}

// Key returns the batch key
func (b *Batch) Key() BatchKey {
	return BatchKey{ProductID: b.ProductID, WarehouseID: b.WarehouseID, LotCode: b.LotCode}
}

// IsExpiredAt reports whether the batch expired before the given moment
func (b *Batch) IsExpiredAt(at time.Time) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(at)
}

// Covers reports whether a single draw of qty can be served by this batch
func (b *Batch) Covers(qty decimal.Decimal) bool {
	return b.Quantity.GreaterThanOrEqual(qty)
}

// HasStock returns true if anything is left in the batch
func (b *Batch) HasStock() bool {
	return b.Quantity.IsPositive()
}

// TotalValue returns quantity times unit cost
func (b *Batch) TotalValue() decimal.Decimal {
	return b.Quantity.Mul(b.UnitCost)
}

// Consume removes qty from the batch. Without allowUnderflow a short batch
// is an error; with it the batch is floored at zero and the missing part is
// returned as shortfall.
func (b *Batch) Consume(qty decimal.Decimal, allowUnderflow bool) (removed, shortfall decimal.Decimal, err error) {
	if !qty.IsPositive() {
		return decimal.Zero, decimal.Zero, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}

	if qty.GreaterThan(b.Quantity) {
		if !allowUnderflow {
			return decimal.Zero, decimal.Zero, shared.NewDomainError(shared.CodeInsufficientStock,
				fmt.Sprintf("Lot %s has %s, requested %s", b.LotCode, b.Quantity.String(), qty.String()))
		}
		removed = b.Quantity
		shortfall = qty.Sub(b.Quantity)
	} else {
		removed = qty
		shortfall = decimal.Zero
	}

	if removed.IsZero() {
		return removed, shortfall, nil
	}
	b.Quantity = b.Quantity.Sub(removed)
	b.Touch()
	b.IncrementVersion()
	return removed, shortfall, nil
}

// Restore puts qty back into the batch
func (b *Batch) Restore(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	b.Quantity = b.Quantity.Add(qty)
	b.Touch()
	b.IncrementVersion()
	return nil
}
