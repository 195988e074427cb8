package finance_test

import (
	"context"
	"testing"

	"github.com/erp/ledgerflow/internal/application/finance"
	"github.com/erp/ledgerflow/internal/application/trade"
	domainfinance "github.com/erp/ledgerflow/internal/domain/finance"
	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/erp/ledgerflow/internal/domain/shared"
	domaintrade "github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/erp/ledgerflow/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// confirmedSale returns a confirmed sale of 1000 plus 100 tax
func confirmedSale(t *testing.T, h *testutil.Harness, customer *partner.Counterparty) *domaintrade.Invoice {
	t.Helper()

	ctx := context.Background()
	inv, err := h.Invoices.Create(ctx, trade.CreateInvoiceInput{
		Type:           domaintrade.DocumentTypeSaleInvoice,
		Date:           testutil.Date(2025, 4, 1),
		CounterpartyID: customer.ID,
		WarehouseID:    h.WarehouseID,
		Lines: []trade.LineInput{
			{ProductID: uuid.New(), Quantity: testutil.Dec("10"), UnitPrice: testutil.Dec("100")},
		},
		Tax: testutil.Dec("100"),
	})
	require.NoError(t, err)
	inv, err = h.Invoices.Confirm(ctx, inv.ID)
	require.NoError(t, err)
	return inv
}

func receiptFrom(t *testing.T, h *testutil.Harness, cp *partner.Counterparty, amount string) *domainfinance.Receipt {
	t.Helper()

	r, err := h.Settlements.RecordReceipt(context.Background(), finance.RecordReceiptInput{
		Kind:           domainfinance.ReceiptKindCustomer,
		CounterpartyID: cp.ID,
		WarehouseID:    h.WarehouseID,
		Amount:         testutil.Dec(amount),
		Date:           testutil.Date(2025, 4, 2),
	})
	require.NoError(t, err)
	return r
}

func TestSettlementService_ReceiptAndAllocate(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()
	customer := h.Customer(t, "C-1")
	inv := confirmedSale(t, h, customer)

	receipt := receiptFrom(t, h, customer, "1500")
	assert.Equal(t, "RCPT-1", receipt.Number)
	assert.True(t, testutil.Dec("1500").Equal(receipt.UnallocatedAmount))
	assert.Equal(t, "1500.00", h.Balance(t, testutil.CashCode))
	assert.Equal(t, "-400.00", h.Balance(t, testutil.ReceivableCode))

	_, err := h.Settlements.Allocate(ctx, receipt.ID, domaintrade.DocumentTypeSaleInvoice, inv.ID, testutil.Dec("1200"))
	assert.ErrorIs(t, err, shared.ErrExceedsOutstanding)

	alloc, err := h.Settlements.Allocate(ctx, receipt.ID, domaintrade.DocumentTypeSaleInvoice, inv.ID, testutil.Dec("1100"))
	require.NoError(t, err)
	assert.Equal(t, inv.ID, alloc.DocumentID)

	paid, err := h.Invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domaintrade.PaymentStatusPaid, paid.PaymentStatus)
	assert.True(t, paid.Outstanding().IsZero())

	after, err := h.Settlements.Get(ctx, receipt.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("400").Equal(after.UnallocatedAmount))

	second := confirmedSale(t, h, customer)
	_, err = h.Settlements.Allocate(ctx, receipt.ID, domaintrade.DocumentTypeSaleInvoice, second.ID, testutil.Dec("500"))
	assert.ErrorIs(t, err, shared.ErrExceedsUnallocated)

	_, err = h.Settlements.Allocate(ctx, receipt.ID, domaintrade.DocumentTypePurchaseInvoice, second.ID, testutil.Dec("1"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	assert.Equal(t, "700.00", h.Balance(t, testutil.ReceivableCode), "allocation posts nothing")
}

func TestSettlementService_AllocateOtherCounterparty(t *testing.T) {
	h := testutil.NewHarness(t)
	inv := confirmedSale(t, h, h.Customer(t, "C-1"))
	receipt := receiptFrom(t, h, h.Customer(t, "C-2"), "100")

	_, err := h.Settlements.Allocate(context.Background(), receipt.ID, domaintrade.DocumentTypeSaleInvoice, inv.ID, testutil.Dec("100"))
	assert.ErrorIs(t, err, shared.ErrCounterpartyMismatch)
}

func TestSettlementService_SplitSettle(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()
	customer := h.Customer(t, "C-1")
	inv := confirmedSale(t, h, customer)

	_, err := h.Settlements.SplitSettle(ctx, finance.SplitSettleInput{
		DocumentType: domaintrade.DocumentTypeSaleInvoice,
		DocumentID:   inv.ID,
		Pay:          testutil.Dec("600"),
		Credit:       testutil.Dec("600"),
	})
	assert.ErrorIs(t, err, shared.ErrAmountMismatch)

	_, err = h.Settlements.SplitSettle(ctx, finance.SplitSettleInput{
		DocumentType: domaintrade.DocumentTypeSaleInvoice,
		DocumentID:   inv.ID,
		Pay:          testutil.Dec("-1"),
		Credit:       testutil.Dec("1101"),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	result, err := h.Settlements.SplitSettle(ctx, finance.SplitSettleInput{
		DocumentType: domaintrade.DocumentTypeSaleInvoice,
		DocumentID:   inv.ID,
		Pay:          testutil.Dec("600"),
		Credit:       testutil.Dec("500"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Receipt)
	assert.True(t, result.Receipt.UnallocatedAmount.IsZero())
	assert.True(t, testutil.Dec("600").Equal(result.Invoice.PaidAmount))
	assert.True(t, testutil.Dec("500").Equal(result.Invoice.CreditedAmount))
	assert.Equal(t, domaintrade.PaymentStatusPaid, result.Invoice.PaymentStatus)

	assert.Equal(t, "600.00", h.Balance(t, testutil.CashCode))
	assert.True(t, testutil.Dec("500").Equal(h.CounterpartyBalance(t, customer.ID)), "credit does not move the balance")

	_, err = h.Settlements.SplitSettle(ctx, finance.SplitSettleInput{
		DocumentType: domaintrade.DocumentTypeSaleInvoice,
		DocumentID:   inv.ID,
		Pay:          testutil.Dec("1"),
	})
	assert.ErrorIs(t, err, shared.ErrAmountMismatch, "nothing is outstanding")
}

func TestSettlementService_SplitSettleCreditOnly(t *testing.T) {
	h := testutil.NewHarness(t)
	inv := confirmedSale(t, h, h.Customer(t, "C-1"))

	result, err := h.Settlements.SplitSettle(context.Background(), finance.SplitSettleInput{
		DocumentType: domaintrade.DocumentTypeSaleInvoice,
		DocumentID:   inv.ID,
		Credit:       testutil.Dec("1100"),
	})
	require.NoError(t, err)
	assert.Nil(t, result.Receipt)
	assert.Equal(t, "0.00", h.Balance(t, testutil.CashCode))
}

func TestSettlementService_SupplierPayment(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()
	supplier := h.Supplier(t, "S-1")

	_, err := h.Settlements.RecordReceipt(ctx, finance.RecordReceiptInput{
		Kind:           domainfinance.ReceiptKindCustomer,
		CounterpartyID: supplier.ID,
		WarehouseID:    h.WarehouseID,
		Amount:         testutil.Dec("10"),
	})
	assert.ErrorIs(t, err, shared.ErrCounterpartyMismatch)

	payment, err := h.Settlements.RecordReceipt(ctx, finance.RecordReceiptInput{
		Kind:           domainfinance.ReceiptKindSupplier,
		CounterpartyID: supplier.ID,
		WarehouseID:    h.WarehouseID,
		Amount:         testutil.Dec("250"),
	})
	require.NoError(t, err)
	assert.Equal(t, domainfinance.ReceiptKindSupplier, payment.Kind)
	assert.Equal(t, "-250.00", h.Balance(t, testutil.CashCode))
	assert.Equal(t, "250.00", h.Balance(t, testutil.PayableCode))
	assert.True(t, testutil.Dec("-250").Equal(h.CounterpartyBalance(t, supplier.ID)))
}

func TestSettlementService_OpeningBalance(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()
	customer := h.Customer(t, "C-1")

	_, err := h.Settlements.PostOpeningBalance(ctx, finance.OpeningBalanceInput{
		CounterpartyID: customer.ID,
		WarehouseID:    h.WarehouseID,
		Amount:         testutil.Dec("0"),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	txn, err := h.Settlements.PostOpeningBalance(ctx, finance.OpeningBalanceInput{
		CounterpartyID: customer.ID,
		WarehouseID:    h.WarehouseID,
		Amount:         testutil.Dec("75"),
		Date:           testutil.Date(2024, 12, 31),
	})
	require.NoError(t, err)
	assert.True(t, txn.IsBalanced())
	assert.Equal(t, "75.00", h.Balance(t, testutil.ReceivableCode))
	assert.Equal(t, "-75.00", h.Balance(t, testutil.OpeningEquityCode))
	assert.True(t, testutil.Dec("75").Equal(h.CounterpartyBalance(t, customer.ID)))
}
