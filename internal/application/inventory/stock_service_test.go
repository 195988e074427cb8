package inventory_test

import (
	"context"
	"testing"

	appinv "github.com/erp/ledgerflow/internal/application/inventory"
	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockService_ConsumeFEFO_PicksEarliestExpiry(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()
	product := uuid.New()

	h.ReceiveLot(t, product, "JUN", "10", testutil.DatePtr(2025, 6, 30))
	h.ReceiveLot(t, product, "JAN", "5", testutil.DatePtr(2025, 1, 31))

	taken, err := h.Stock.ConsumeFEFO(ctx, appinv.ConsumeFEFORequest{
		ProductID:   product,
		WarehouseID: h.WarehouseID,
		Quantity:    testutil.Dec("5"),
		Source:      inventory.SourceRef{Type: "manual"},
	})
	require.NoError(t, err)
	require.Len(t, taken, 1)
	assert.Equal(t, "JAN", taken[0].Batch.LotCode)
	assert.True(t, taken[0].Batch.Quantity.IsZero())

	jun, err := h.Stock.Lot(ctx, product, h.WarehouseID, "JUN")
	require.NoError(t, err)
	assert.True(t, testutil.Dec("10").Equal(jun.Quantity))
}

func TestStockService_ConsumeFEFO_SingleLotMustCover(t *testing.T) {
	h := testutil.NewHarness(t)
	product := uuid.New()
	h.ReceiveLot(t, product, "A", "4", testutil.DatePtr(2025, 1, 1))
	h.ReceiveLot(t, product, "B", "4", testutil.DatePtr(2025, 2, 1))

	_, err := h.Stock.ConsumeFEFO(context.Background(), appinv.ConsumeFEFORequest{
		ProductID:   product,
		WarehouseID: h.WarehouseID,
		Quantity:    testutil.Dec("6"),
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	onHand, err := h.Stock.OnHand(context.Background(), product, h.WarehouseID)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("8").Equal(onHand), "nothing was taken")
}

func TestStockService_ConsumeFEFO_SplitPolicy(t *testing.T) {
	h := testutil.NewHarness(t, testutil.WithFEFOPolicy(inventory.FEFOPolicySplit))
	product := uuid.New()
	h.ReceiveLot(t, product, "LATE", "4", testutil.DatePtr(2025, 9, 1))
	h.ReceiveLot(t, product, "EARLY", "4", testutil.DatePtr(2025, 1, 1))

	taken, err := h.Stock.ConsumeFEFO(context.Background(), appinv.ConsumeFEFORequest{
		ProductID:   product,
		WarehouseID: h.WarehouseID,
		Quantity:    testutil.Dec("6"),
	})
	require.NoError(t, err)
	require.Len(t, taken, 2)
	assert.Equal(t, "EARLY", taken[0].Batch.LotCode)
	assert.True(t, testutil.Dec("4").Equal(taken[0].Removed))
	assert.Equal(t, "LATE", taken[1].Batch.LotCode)
	assert.True(t, testutil.Dec("2").Equal(taken[1].Removed))

	_, err = h.Stock.ConsumeFEFO(context.Background(), appinv.ConsumeFEFORequest{
		ProductID:   product,
		WarehouseID: h.WarehouseID,
		Quantity:    testutil.Dec("3"),
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestStockService_ConsumeExact(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()
	product := uuid.New()
	h.ReceiveLot(t, product, "L1", "3", nil)

	req := appinv.ConsumeExactRequest{
		ProductID:   product,
		WarehouseID: h.WarehouseID,
		LotCode:     "L1",
		Quantity:    testutil.Dec("5"),
	}

	_, err := h.Stock.ConsumeExact(ctx, req)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	req.AllowUnderflow = true
	c, err := h.Stock.ConsumeExact(ctx, req)
	require.NoError(t, err)
	assert.True(t, c.Batch.Quantity.IsZero(), "floored at zero")
	assert.True(t, testutil.Dec("3").Equal(c.Removed))
	assert.True(t, testutil.Dec("2").Equal(c.Shortfall))

	before, err := h.Stock.Movements(ctx, c.Batch.ID)
	require.NoError(t, err)
	empty, err := h.Stock.ConsumeExact(ctx, req)
	require.NoError(t, err)
	assert.True(t, empty.Removed.IsZero())
	assert.True(t, testutil.Dec("5").Equal(empty.Shortfall))
	after, err := h.Stock.Movements(ctx, c.Batch.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "an empty lot records no movement")

	req.LotCode = "NOPE"
	_, err = h.Stock.ConsumeExact(ctx, req)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStockService_ReceiveAndRestore(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()
	product := uuid.New()
	batch := h.ReceiveLot(t, product, "L1", "2", nil)

	_, err := h.Stock.Receive(ctx, appinv.ReceiveRequest{
		ProductID:   product,
		WarehouseID: h.WarehouseID,
		LotCode:     "L1",
		Quantity:    testutil.Dec("1"),
	})
	assert.ErrorIs(t, err, shared.ErrDuplicateLot)

	restored, err := h.Stock.Restore(ctx, appinv.RestoreRequest{
		ProductID:   product,
		WarehouseID: h.WarehouseID,
		LotCode:     "L1",
		Quantity:    testutil.Dec("3"),
	})
	require.NoError(t, err)
	assert.Equal(t, batch.ID, restored.ID)
	assert.True(t, testutil.Dec("5").Equal(restored.Quantity))

	created, err := h.Stock.Restore(ctx, appinv.RestoreRequest{
		ProductID:   product,
		WarehouseID: h.WarehouseID,
		LotCode:     "GONE",
		Quantity:    testutil.Dec("1"),
		Options:     appinv.RestoreOptions{ExpiryDate: testutil.DatePtr(2026, 1, 1)},
	})
	require.NoError(t, err)
	assert.NotEqual(t, batch.ID, created.ID)
	require.NotNil(t, created.ExpiryDate)

	movements, err := h.Stock.Movements(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, inventory.ReasonReceive, movements[0].Reason)
	assert.Equal(t, inventory.ReasonRestore, movements[1].Reason)
	assert.Equal(t, inventory.DirectionIn, movements[1].Direction)
	assert.True(t, testutil.Dec("5").Equal(movements[1].BalanceAfter))
}
