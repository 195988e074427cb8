//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	appfinance "github.com/erp/ledgerflow/internal/application/finance"
	apphr "github.com/erp/ledgerflow/internal/application/hr"
	appinv "github.com/erp/ledgerflow/internal/application/inventory"
	appledger "github.com/erp/ledgerflow/internal/application/ledger"
	"github.com/erp/ledgerflow/internal/application/trade"
	"github.com/erp/ledgerflow/internal/domain/finance"
	"github.com/erp/ledgerflow/internal/domain/hr"
	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/shared"
	domaintrade "github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/erp/ledgerflow/internal/infrastructure/lock"
	"github.com/erp/ledgerflow/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

func newHarness(t *testing.T) *testutil.Harness {
	t.Helper()
	tdb := NewTestDB(t)
	return testutil.NewHarness(t,
		testutil.WithDB(tdb.DB),
		testutil.WithLocker(lock.NewLocalLocker(10*time.Second)),
	)
}

// run calls fn n times concurrently and returns the errors in call order
func run(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = fn(i)
		}(i)
	}
	wg.Wait()
	return errs
}

func countNil(errs []error) int {
	n := 0
	for _, err := range errs {
		if err == nil {
			n++
		}
	}
	return n
}

func TestPostgres_SaleToSettlement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customer := h.Customer(t, "C-1")
	product := uuid.New()
	h.ReceiveLot(t, product, "L-1", "5", testutil.DatePtr(2025, 6, 1))
	h.ReceiveLot(t, product, "L-2", "5", testutil.DatePtr(2025, 4, 1))

	inv, err := h.Invoices.Create(ctx, trade.CreateInvoiceInput{
		Type:           domaintrade.DocumentTypeSaleInvoice,
		Date:           testutil.Date(2025, 3, 1),
		CounterpartyID: customer.ID,
		WarehouseID:    h.WarehouseID,
		Lines: []trade.LineInput{
			{ProductID: product, Quantity: testutil.Dec("4"), UnitPrice: testutil.Dec("25")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "SINV-1", inv.Number)

	_, err = h.Invoices.Confirm(ctx, inv.ID)
	require.NoError(t, err)
	_, err = h.Invoices.DeliverAll(ctx, inv.ID)
	require.NoError(t, err)

	// earliest expiry first
	early, err := h.Stock.Lot(ctx, product, h.WarehouseID, "L-2")
	require.NoError(t, err)
	assert.True(t, testutil.Dec("1").Equal(early.Quantity), "L-2 has %s", early.Quantity)

	settled, err := h.Settlements.SplitSettle(ctx, appfinance.SplitSettleInput{
		DocumentType: domaintrade.DocumentTypeSaleInvoice,
		DocumentID:   inv.ID,
		Pay:          testutil.Dec("60"),
		Credit:       testutil.Dec("40"),
	})
	require.NoError(t, err)
	assert.Equal(t, domaintrade.PaymentStatusPaid, settled.Invoice.PaymentStatus)

	assert.Equal(t, "0.00", h.Balance(t, testutil.ReceivableCode))
	assert.Equal(t, "60.00", h.Balance(t, testutil.CashCode))
	assert.True(t, testutil.Dec("40").Equal(h.CounterpartyBalance(t, customer.ID)), "credit does not move the balance")
}

func TestPostgres_ConcurrentConsumeNeverOversells(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := uuid.New()
	h.ReceiveLot(t, product, "L-1", "10", nil)

	errs := run(25, func(int) error {
		_, err := h.Stock.ConsumeFEFO(ctx, appinv.ConsumeFEFORequest{
			ProductID:   product,
			WarehouseID: h.WarehouseID,
			Quantity:    testutil.Dec("1"),
			Source:      inventory.SourceRef{Type: "manual"},
		})
		return err
	})

	assert.Equal(t, 10, countNil(errs))
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		}
	}

	onHand, err := h.Stock.OnHand(ctx, product, h.WarehouseID)
	require.NoError(t, err)
	assert.True(t, onHand.IsZero(), "on hand %s", onHand)

	lot, err := h.Stock.Lot(ctx, product, h.WarehouseID, "L-1")
	require.NoError(t, err)
	movements, err := h.Stock.Movements(ctx, lot.ID)
	require.NoError(t, err)
	assert.Len(t, movements, 11, "one receipt and ten consumptions")
}

func TestPostgres_ConcurrentAllocationsStopAtOutstanding(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customer := h.Customer(t, "C-1")

	inv, err := h.Invoices.Create(ctx, trade.CreateInvoiceInput{
		Type:           domaintrade.DocumentTypeSaleInvoice,
		CounterpartyID: customer.ID,
		WarehouseID:    h.WarehouseID,
		Lines: []trade.LineInput{
			{ProductID: uuid.New(), Quantity: testutil.Dec("5"), UnitPrice: testutil.Dec("100")},
		},
	})
	require.NoError(t, err)
	_, err = h.Invoices.Confirm(ctx, inv.ID)
	require.NoError(t, err)

	receipt, err := h.Settlements.RecordReceipt(ctx, appfinance.RecordReceiptInput{
		Kind:           finance.ReceiptKindCustomer,
		CounterpartyID: customer.ID,
		WarehouseID:    h.WarehouseID,
		Amount:         testutil.Dec("1000"),
	})
	require.NoError(t, err)

	errs := run(10, func(int) error {
		_, err := h.Settlements.Allocate(ctx, receipt.ID, domaintrade.DocumentTypeSaleInvoice, inv.ID, testutil.Dec("100"))
		return err
	})
	assert.Equal(t, 5, countNil(errs))
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, shared.ErrExceedsOutstanding)
		}
	}

	got, err := h.Invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.Outstanding().IsZero())

	r, err := h.Settlements.Get(ctx, receipt.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("500").Equal(r.UnallocatedAmount), "unallocated %s", r.UnallocatedAmount)
}

func TestPostgres_ConcurrentReversalAppliesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tx, err := h.Ledger.Post(ctx, appledger.PostRequest{
		Description: "owner contribution",
		Legs: []ledger.LegSpec{
			ledger.Debit(h.Account(testutil.BankCode).ID, testutil.USD("250")),
			ledger.Credit(h.Account(testutil.OpeningEquityCode).ID, testutil.USD("250")),
		},
	})
	require.NoError(t, err)

	errs := run(5, func(int) error {
		_, err := h.Ledger.Reverse(ctx, tx.ID, "duplicate entry")
		return err
	})
	assert.Equal(t, 1, countNil(errs))
	for _, err := range errs {
		if err != nil {
			assert.True(t, errors.Is(err, shared.ErrAlreadyReversed) || errors.Is(err, shared.ErrAlreadyExists), "got %v", err)
		}
	}
	assert.Equal(t, "0.00", h.Balance(t, testutil.BankCode))
}

func TestPostgres_OneActiveSlipPerPeriod(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := uuid.New()

	in := apphr.CreateSlipInput{
		EmployeeID:   employee,
		EmployeeName: "Grace",
		Period:       "2025-02",
		WarehouseID:  h.WarehouseID,
		BaseSalary:   testutil.Dec("2800"),
		Attendance:   hr.Attendance{PresentDays: 28},
	}
	errs := run(4, func(int) error {
		_, err := h.Payroll.Create(ctx, in)
		return err
	})
	assert.Equal(t, 1, countNil(errs))
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		}
	}
}
