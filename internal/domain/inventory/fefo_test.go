package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lotSpec struct {
	lot    string
	qty    int64
	expiry *time.Time
}

func batchesFor(product, warehouse uuid.UUID, specs ...lotSpec) []Batch {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Batch, 0, len(specs))
	for i, s := range specs {
		out = append(out, Batch{
			BaseAggregateRoot: shared.NewBaseAggregateRoot(),
			ProductID:         product,
			WarehouseID:       warehouse,
			LotCode:           s.lot,
			Quantity:          decimal.NewFromInt(s.qty),
			ExpiryDate:        s.expiry,
			ReceivedAt:        base.Add(time.Duration(i) * time.Hour),
		})
	}
	return out
}

func TestSelectFEFO(t *testing.T) {
	p, w := uuid.New(), uuid.New()

	t.Run("picks earliest expiry among covering lots", func(t *testing.T) {
		batches := batchesFor(p, w,
			lotSpec{"JUN", 10, date(2025, 6, 1)},
			lotSpec{"JAN", 5, date(2025, 1, 1)},
		)

		chosen, err := SelectFEFO(batches, qty(5))

		require.NoError(t, err)
		assert.Equal(t, "JAN", chosen.LotCode)
	})

	t.Run("skips lots that cannot cover the request", func(t *testing.T) {
		batches := batchesFor(p, w,
			lotSpec{"JAN", 5, date(2025, 1, 1)},
			lotSpec{"JUN", 10, date(2025, 6, 1)},
		)

		chosen, err := SelectFEFO(batches, qty(6))

		require.NoError(t, err)
		assert.Equal(t, "JUN", chosen.LotCode)
	})

	t.Run("nil expiry sorts last", func(t *testing.T) {
		batches := batchesFor(p, w,
			lotSpec{"NONE", 10, nil},
			lotSpec{"DEC", 10, date(2030, 12, 1)},
		)

		chosen, err := SelectFEFO(batches, qty(1))

		require.NoError(t, err)
		assert.Equal(t, "DEC", chosen.LotCode)
	})

	t.Run("ties broken by receipt time", func(t *testing.T) {
		batches := batchesFor(p, w,
			lotSpec{"FIRST", 10, date(2025, 3, 1)},
			lotSpec{"SECOND", 10, date(2025, 3, 1)},
		)
		batches[0], batches[1] = batches[1], batches[0]

		chosen, err := SelectFEFO(batches, qty(1))

		require.NoError(t, err)
		assert.Equal(t, "FIRST", chosen.LotCode)
	})

	t.Run("no single lot covers", func(t *testing.T) {
		batches := batchesFor(p, w,
			lotSpec{"A", 3, date(2025, 1, 1)},
			lotSpec{"B", 3, date(2025, 2, 1)},
		)

		_, err := SelectFEFO(batches, qty(5))

		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	})

	t.Run("does not mutate input order", func(t *testing.T) {
		batches := batchesFor(p, w,
			lotSpec{"JUN", 10, date(2025, 6, 1)},
			lotSpec{"JAN", 10, date(2025, 1, 1)},
		)
		_, err := SelectFEFO(batches, qty(1))
		require.NoError(t, err)
		assert.Equal(t, "JUN", batches[0].LotCode)
	})
}

func TestPlanSplit(t *testing.T) {
	p, w := uuid.New(), uuid.New()

	t.Run("draws across lots in FEFO order", func(t *testing.T) {
		batches := batchesFor(p, w,
			lotSpec{"B", 4, date(2025, 2, 1)},
			lotSpec{"A", 3, date(2025, 1, 1)},
			lotSpec{"C", 9, nil},
		)

		draws, err := PlanSplit(batches, qty(8))

		require.NoError(t, err)
		require.Len(t, draws, 3)
		assert.Equal(t, "A", draws[0].Key.LotCode)
		assert.True(t, qty(3).Equal(draws[0].Quantity))
		assert.Equal(t, "B", draws[1].Key.LotCode)
		assert.True(t, qty(4).Equal(draws[1].Quantity))
		assert.Equal(t, "C", draws[2].Key.LotCode)
		assert.True(t, qty(1).Equal(draws[2].Quantity))
	})

	t.Run("single lot when it suffices", func(t *testing.T) {
		batches := batchesFor(p, w, lotSpec{"A", 30, date(2025, 1, 1)})
		draws, err := PlanSplit(batches, qty(8))
		require.NoError(t, err)
		assert.Len(t, draws, 1)
	})

	t.Run("fails when total stock is short", func(t *testing.T) {
		batches := batchesFor(p, w,
			lotSpec{"A", 3, date(2025, 1, 1)},
			lotSpec{"B", 0, date(2025, 2, 1)},
		)

		_, err := PlanSplit(batches, qty(4))

		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	})
}

func TestFEFOPolicy_IsValid(t *testing.T) {
	assert.True(t, FEFOPolicySingleLot.IsValid())
	assert.True(t, FEFOPolicySplit.IsValid())
	assert.False(t, FEFOPolicy("lifo").IsValid())
}
