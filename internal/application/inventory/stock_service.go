package inventory

import (
	"context"

	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConsumeExactRequest removes stock from one named lot
type ConsumeExactRequest struct {
	ProductID      uuid.UUID
	WarehouseID    uuid.UUID
	LotCode        string
	Quantity       decimal.Decimal
	AllowUnderflow bool
	Source         inventory.SourceRef
}

// ConsumeFEFORequest removes stock following the configured FEFO policy
type ConsumeFEFORequest struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Quantity    decimal.Decimal
	Source      inventory.SourceRef
}

// RestoreRequest puts stock back into a lot
type RestoreRequest struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	LotCode     string
	Quantity    decimal.Decimal
	Options     RestoreOptions
}

// StockService runs each stock ledger operation as its own command
type StockService struct {
	scope  uow.TransactionScope
	ledger *StockLedger
}

// NewStockService creates a new StockService
func NewStockService(scope uow.TransactionScope, ledger *StockLedger) *StockService {
	return &StockService{scope: scope, ledger: ledger}
}

// Receive creates a lot
func (s *StockService) Receive(ctx context.Context, req ReceiveRequest) (*inventory.Batch, error) {
	var batch *inventory.Batch
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		batch, err = s.ledger.Receive(ctx, repos, req)
		return err
	})
	return batch, err
}

// ConsumeFEFO draws from the earliest-expiring lots. Under the single-lot
// policy the result has exactly one entry.
func (s *StockService) ConsumeFEFO(ctx context.Context, req ConsumeFEFORequest) ([]Consumption, error) {
	var out []Consumption
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		if s.ledger.Policy() == inventory.FEFOPolicySplit {
			taken, err := s.ledger.ConsumeSplit(ctx, repos, req.ProductID, req.WarehouseID, req.Quantity, req.Source)
			out = taken
			return err
		}
		taken, err := s.ledger.ConsumeFEFO(ctx, repos, req.ProductID, req.WarehouseID, req.Quantity, req.Source)
		if err != nil {
			return err
		}
		out = []Consumption{*taken}
		return nil
	})
	return out, err
}

// ConsumeExact draws from one named lot
func (s *StockService) ConsumeExact(ctx context.Context, req ConsumeExactRequest) (*Consumption, error) {
	var out *Consumption
	key := inventory.NewBatchKey(req.ProductID, req.WarehouseID, req.LotCode)
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		out, err = s.ledger.ConsumeExact(ctx, repos, key, req.Quantity, req.AllowUnderflow, req.Source)
		return err
	})
	return out, err
}

// Restore puts stock back, creating the lot when it does not exist
func (s *StockService) Restore(ctx context.Context, req RestoreRequest) (*inventory.Batch, error) {
	var batch *inventory.Batch
	key := inventory.NewBatchKey(req.ProductID, req.WarehouseID, req.LotCode)
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		batch, err = s.ledger.Restore(ctx, repos, key, req.Quantity, req.Options)
		return err
	})
	return batch, err
}

// Lot returns a lot by key
func (s *StockService) Lot(ctx context.Context, productID, warehouseID uuid.UUID, lotCode string) (*inventory.Batch, error) {
	var batch *inventory.Batch
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		found, err := repos.Batches().FindByKey(ctx, inventory.NewBatchKey(productID, warehouseID, lotCode))
		batch = found
		return err
	})
	return batch, err
}

// OnHand sums every lot of a product in a warehouse
func (s *StockService) OnHand(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		total, err = s.ledger.OnHand(ctx, repos, productID, warehouseID)
		return err
	})
	return total, err
}

// Movements returns a lot's audit trail
func (s *StockService) Movements(ctx context.Context, batchID uuid.UUID) ([]inventory.StockMovement, error) {
	var out []inventory.StockMovement
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		out, err = s.ledger.Movements(ctx, repos, batchID)
		return err
	})
	return out, err
}
