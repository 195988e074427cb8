package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/infrastructure/logger"
	"github.com/erp/ledgerflow/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// fefoAttempts bounds how often ConsumeFEFO re-selects when the lot it
// picked was drained by a concurrent unit before the key lock was taken
const fefoAttempts = 3

// Config tunes the stock ledger
type Config struct {
	FEFOPolicy        inventory.FEFOPolicy
	LowStockThreshold decimal.Decimal
}

// ReceiveRequest describes a new lot
type ReceiveRequest struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	LotCode     string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	ExpiryDate  *time.Time
	Source      inventory.SourceRef
}

// RestoreOptions are used only when Restore has to create the lot
type RestoreOptions struct {
	ExpiryDate *time.Time
	UnitCost   decimal.Decimal
	Source     inventory.SourceRef
}

// Consumption is what one consume call removed from one lot
type Consumption struct {
	Batch     *inventory.Batch
	Removed   decimal.Decimal
	Shortfall decimal.Decimal
}

// StockLedger is the only writer of lot quantities. Every mutating call
// holds the lot's key lock until the unit of work ends, row-locks the lot
// and appends exactly one movement.
type StockLedger struct {
	locker  inventory.KeyLocker
	cfg     Config
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
	now     func() time.Time
}

// NewStockLedger creates a stock ledger
func NewStockLedger(locker inventory.KeyLocker, cfg Config, log *zap.Logger) *StockLedger {
	if !cfg.FEFOPolicy.IsValid() {
		cfg.FEFOPolicy = inventory.FEFOPolicySingleLot
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StockLedger{locker: locker, cfg: cfg, logger: log, now: time.Now}
}

// WithMetrics counts movements and underflows on m
func (s *StockLedger) WithMetrics(m *telemetry.LedgerMetrics) *StockLedger {
	s.metrics = m
	return s
}

// Policy returns the configured delivery policy
func (s *StockLedger) Policy() inventory.FEFOPolicy {
	return s.cfg.FEFOPolicy
}

// Receive creates a lot. Receiving an existing key fails with DUPLICATE_LOT.
func (s *StockLedger) Receive(ctx context.Context, repos uow.TransactionalRepositories, req ReceiveRequest) (*inventory.Batch, error) {
	key := inventory.NewBatchKey(req.ProductID, req.WarehouseID, req.LotCode)
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", "receive",
		telemetry.WithAttribute(telemetry.SpanAttrLot, key.String()))
	defer span.End()

	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := uow.AcquireKey(ctx, repos, s.locker, key.LockName()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	existing, err := repos.Batches().FindByKeyForUpdate(ctx, key)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up lot %s: %w", key, err)
	}
	if existing != nil {
		return nil, shared.NewDomainError(shared.CodeDuplicateLot, "Lot "+key.String()+" already exists")
	}

	batch, err := inventory.NewBatch(key, req.Quantity, req.UnitCost, req.ExpiryDate, s.now())
	if err != nil {
		return nil, err
	}
	if batch.IsExpiredAt(s.now()) {
		logger.WithTraceContext(ctx, s.logger).Warn("receiving an expired lot",
			zap.String("lot", key.String()),
			zap.Time("expiry", *batch.ExpiryDate),
		)
	}
	if err := repos.Batches().Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create lot %s: %w", key, err)
	}

	movement := inventory.NewStockMovement(batch, inventory.DirectionIn, req.Quantity, inventory.ReasonReceive, req.Source)
	if err := repos.Movements().Create(ctx, movement); err != nil {
		return nil, fmt.Errorf("failed to record movement: %w", err)
	}
	s.metrics.RecordMovement(ctx, string(inventory.DirectionIn), string(inventory.ReasonReceive))
	return batch, nil
}

// ConsumeFEFO takes qty from the single earliest-expiring lot that holds
// all of it.
func (s *StockLedger) ConsumeFEFO(ctx context.Context, repos uow.TransactionalRepositories, productID, warehouseID uuid.UUID, qty decimal.Decimal, source inventory.SourceRef) (*Consumption, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", "consume_fefo",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, productID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, qty.String()))
	defer span.End()

	if !qty.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}

	for attempt := 1; attempt <= fefoAttempts; attempt++ {
		candidates, err := repos.Batches().FindWithStock(ctx, productID, warehouseID, qty)
		if err != nil {
			return nil, fmt.Errorf("failed to list lots: %w", err)
		}
		chosen, err := inventory.SelectFEFO(candidates, qty)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}

		key := chosen.Key()
		if err := uow.AcquireKey(ctx, repos, s.locker, key.LockName()); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		batch, err := repos.Batches().FindByKeyForUpdate(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to lock lot %s: %w", key, err)
		}
		if !batch.Covers(qty) {
			continue
		}
		return s.take(ctx, repos, batch, qty, false, inventory.ReasonConsumeFEFO, source)
	}
	return nil, shared.NewDomainError(shared.CodeInsufficientStock,
		fmt.Sprintf("No single lot holds %s units", qty.String()))
}

// ConsumeExact takes qty from the named lot. With allowUnderflow the lot
// is floored at zero and the shortfall is reported instead of failing.
func (s *StockLedger) ConsumeExact(ctx context.Context, repos uow.TransactionalRepositories, key inventory.BatchKey, qty decimal.Decimal, allowUnderflow bool, source inventory.SourceRef) (*Consumption, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", "consume_exact",
		telemetry.WithAttribute(telemetry.SpanAttrLot, key.String()),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, qty.String()))
	defer span.End()

	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := uow.AcquireKey(ctx, repos, s.locker, key.LockName()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	batch, err := repos.Batches().FindByKeyForUpdate(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Lot "+key.String()+" does not exist")
		}
		return nil, fmt.Errorf("failed to lock lot %s: %w", key, err)
	}
	return s.take(ctx, repos, batch, qty, allowUnderflow, inventory.ReasonConsumeExact, source)
}

// ConsumeSplit draws qty across lots in FEFO order, one ConsumeExact per
// lot. The whole request fails when the lots hold too little in total.
func (s *StockLedger) ConsumeSplit(ctx context.Context, repos uow.TransactionalRepositories, productID, warehouseID uuid.UUID, qty decimal.Decimal, source inventory.SourceRef) ([]Consumption, error) {
	batches, err := repos.Batches().FindWithStock(ctx, productID, warehouseID, decimal.Zero)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	draws, err := inventory.PlanSplit(batches, qty)
	if err != nil {
		return nil, err
	}

	out := make([]Consumption, 0, len(draws))
	for _, draw := range draws {
		c, err := s.ConsumeExact(ctx, repos, draw.Key, draw.Quantity, false, source)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// Restore puts qty back into the named lot, creating it when it no longer
// exists.
func (s *StockLedger) Restore(ctx context.Context, repos uow.TransactionalRepositories, key inventory.BatchKey, qty decimal.Decimal, opts RestoreOptions) (*inventory.Batch, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", "restore",
		telemetry.WithAttribute(telemetry.SpanAttrLot, key.String()),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, qty.String()))
	defer span.End()

	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := uow.AcquireKey(ctx, repos, s.locker, key.LockName()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	batch, err := repos.Batches().FindByKeyForUpdate(ctx, key)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		batch, err = inventory.NewBatch(key, qty, opts.UnitCost, opts.ExpiryDate, s.now())
		if err != nil {
			return nil, err
		}
		if err := repos.Batches().Create(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to create lot %s: %w", key, err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to lock lot %s: %w", key, err)
	default:
		if err := batch.Restore(qty); err != nil {
			return nil, err
		}
		if err := repos.Batches().Save(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to save lot %s: %w", key, err)
		}
	}

	movement := inventory.NewStockMovement(batch, inventory.DirectionIn, qty, inventory.ReasonRestore, opts.Source)
	if err := repos.Movements().Create(ctx, movement); err != nil {
		return nil, fmt.Errorf("failed to record movement: %w", err)
	}
	s.metrics.RecordMovement(ctx, string(inventory.DirectionIn), string(inventory.ReasonRestore))
	return batch, nil
}

// OnHand sums every lot of the product in the warehouse
func (s *StockLedger) OnHand(ctx context.Context, repos uow.TransactionalRepositories, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	batches, err := repos.Batches().FindByProduct(ctx, productID, warehouseID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list lots: %w", err)
	}
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.Quantity)
	}
	return total, nil
}

// Movements returns the audit trail of a lot, oldest first
func (s *StockLedger) Movements(ctx context.Context, repos uow.TransactionalRepositories, batchID uuid.UUID) ([]inventory.StockMovement, error) {
	return repos.Movements().FindByBatch(ctx, batchID)
}

func (s *StockLedger) take(ctx context.Context, repos uow.TransactionalRepositories, batch *inventory.Batch, qty decimal.Decimal, allowUnderflow bool, reason inventory.MovementReason, source inventory.SourceRef) (*Consumption, error) {
	removed, shortfall, err := batch.Consume(qty, allowUnderflow)
	if err != nil {
		return nil, err
	}
	// an empty lot floored at zero has nothing to move
	if removed.IsPositive() {
		if err := repos.Batches().Save(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to save lot %s: %w", batch.Key(), err)
		}
		movement := inventory.NewStockMovement(batch, inventory.DirectionOut, removed, reason, source)
		if err := repos.Movements().Create(ctx, movement); err != nil {
			return nil, fmt.Errorf("failed to record movement: %w", err)
		}
		s.metrics.RecordMovement(ctx, string(inventory.DirectionOut), string(reason))
	}

	log := logger.WithTraceContext(ctx, s.logger)
	if shortfall.IsPositive() {
		s.metrics.RecordUnderflow(ctx)
		log.Warn("lot underflow floored at zero",
			zap.String("lot", batch.Key().String()),
			zap.String("requested", qty.String()),
			zap.String("shortfall", shortfall.String()),
		)
	}
	if s.cfg.LowStockThreshold.IsPositive() && batch.Quantity.LessThan(s.cfg.LowStockThreshold) {
		log.Warn("lot below low-stock threshold",
			zap.String("lot", batch.Key().String()),
			zap.String("quantity", batch.Quantity.String()),
			zap.String("threshold", s.cfg.LowStockThreshold.String()),
		)
	}
	return &Consumption{Batch: batch, Removed: removed, Shortfall: shortfall}, nil
}
