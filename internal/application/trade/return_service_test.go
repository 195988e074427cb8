package trade_test

import (
	"context"
	"testing"

	"github.com/erp/ledgerflow/internal/application/trade"
	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/erp/ledgerflow/internal/domain/shared"
	domaintrade "github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/erp/ledgerflow/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deliveredSale struct {
	h        *testutil.Harness
	customer *partner.Counterparty
	product  uuid.UUID
	invoice  *domaintrade.Invoice
}

// newDeliveredSale confirms and delivers ten units of lot L1 at 100 each
func newDeliveredSale(t *testing.T) *deliveredSale {
	t.Helper()

	h := testutil.NewHarness(t)
	s := &deliveredSale{h: h, customer: h.Customer(t, "C-1"), product: uuid.New()}
	h.ReceiveLot(t, s.product, "L1", "10", testutil.DatePtr(2026, 1, 1))

	inv := saleOf(t, h, s.customer, s.product, "10", "100", "0")
	_, err := h.Invoices.Confirm(context.Background(), inv.ID)
	require.NoError(t, err)
	s.invoice, err = h.Invoices.DeliverAll(context.Background(), inv.ID)
	require.NoError(t, err)
	return s
}

func (s *deliveredSale) returnOf(t *testing.T, qty string) (*domaintrade.Return, error) {
	t.Helper()

	id := s.invoice.ID
	return s.h.Returns.Create(context.Background(), trade.CreateReturnInput{
		Type:           domaintrade.DocumentTypeSaleReturn,
		Date:           testutil.Date(2025, 3, 5),
		CounterpartyID: s.customer.ID,
		WarehouseID:    s.h.WarehouseID,
		InvoiceID:      &id,
		Lines: []trade.LineInput{
			{ProductID: s.product, LotCode: "L1", Quantity: testutil.Dec(qty), UnitPrice: testutil.Dec("100")},
		},
		Reason: "damaged",
	})
}

func TestReturnService_ConfirmReturnCredit(t *testing.T) {
	s := newDeliveredSale(t)
	h, ctx := s.h, context.Background()

	ret, err := s.returnOf(t, "4")
	require.NoError(t, err)
	assert.Equal(t, "SRET-1", ret.Number)
	assert.Equal(t, domaintrade.ReturnStatusDraft, ret.Status)

	confirmed, err := h.Returns.Confirm(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, domaintrade.ReturnStatusConfirmed, confirmed.Status)
	assert.Equal(t, "400.00", h.Balance(t, testutil.SalesReturnCode))
	assert.Equal(t, "600.00", h.Balance(t, testutil.ReceivableCode))
	assert.True(t, testutil.Dec("600").Equal(h.CounterpartyBalance(t, s.customer.ID)))

	again, err := h.Returns.Confirm(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, *confirmed.PostingID, *again.PostingID, "confirm is idempotent")

	_, err = h.Returns.Credit(ctx, ret.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition, "goods must come back first")

	returned, err := h.Returns.Return(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, domaintrade.ReturnStatusReturned, returned.Status)

	lot, err := h.Stock.Lot(ctx, s.product, h.WarehouseID, "L1")
	require.NoError(t, err)
	assert.True(t, testutil.Dec("4").Equal(lot.Quantity))

	credited, err := h.Returns.Credit(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, domaintrade.ReturnStatusCredited, credited.Status)
	assert.True(t, credited.Refundable().IsZero())

	inv, err := h.Invoices.Get(ctx, s.invoice.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("400").Equal(inv.CreditedAmount))
	assert.True(t, testutil.Dec("600").Equal(inv.Outstanding()))
	assert.Equal(t, domaintrade.PaymentStatusPartial, inv.PaymentStatus)

	_, err = h.Invoices.Cancel(ctx, s.invoice.ID, trade.CancelInput{Reason: "undo"})
	assert.ErrorIs(t, err, shared.ErrDependentDocumentsExist)
}

func TestReturnService_Refund(t *testing.T) {
	s := newDeliveredSale(t)
	h, ctx := s.h, context.Background()

	ret, err := s.returnOf(t, "2")
	require.NoError(t, err)
	_, err = h.Returns.Confirm(ctx, ret.ID)
	require.NoError(t, err)
	_, err = h.Returns.Return(ctx, ret.ID)
	require.NoError(t, err)

	refunded, err := h.Returns.Refund(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, domaintrade.ReturnStatusRefunded, refunded.Status)
	assert.True(t, testutil.Dec("200").Equal(refunded.RefundedAmount))

	assert.Equal(t, "-200.00", h.Balance(t, testutil.CashCode))
	assert.Equal(t, "1000.00", h.Balance(t, testutil.ReceivableCode))
	assert.True(t, testutil.Dec("1000").Equal(h.CounterpartyBalance(t, s.customer.ID)))

	_, err = h.Returns.Refund(ctx, ret.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestReturnService_ExceedsReturnable(t *testing.T) {
	s := newDeliveredSale(t)
	ctx := context.Background()

	_, err := s.returnOf(t, "11")
	assert.ErrorIs(t, err, shared.ErrExceedsReturnable)

	first, err := s.returnOf(t, "6")
	require.NoError(t, err)
	second, err := s.returnOf(t, "6")
	require.NoError(t, err, "drafts do not hold quantity")

	_, err = s.h.Returns.Confirm(ctx, first.ID)
	require.NoError(t, err)
	_, err = s.h.Returns.Confirm(ctx, second.ID)
	assert.ErrorIs(t, err, shared.ErrExceedsReturnable, "re-checked at confirm")
}

func TestReturnService_Cancel(t *testing.T) {
	s := newDeliveredSale(t)
	h, ctx := s.h, context.Background()

	draft, err := s.returnOf(t, "1")
	require.NoError(t, err)
	cancelled, err := h.Returns.Cancel(ctx, draft.ID, "typo")
	require.NoError(t, err)
	assert.Equal(t, domaintrade.ReturnStatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.PostingID)

	ret, err := s.returnOf(t, "3")
	require.NoError(t, err)
	_, err = h.Returns.Confirm(ctx, ret.ID)
	require.NoError(t, err)

	withdrawn, err := h.Returns.Cancel(ctx, ret.ID, "customer kept it")
	require.NoError(t, err)
	assert.Equal(t, domaintrade.ReturnStatusCancelled, withdrawn.Status)
	assert.Len(t, withdrawn.ReversalIDs, 1)
	assert.Equal(t, "0.00", h.Balance(t, testutil.SalesReturnCode))
	assert.True(t, testutil.Dec("1000").Equal(h.CounterpartyBalance(t, s.customer.ID)))

	_, err = h.Returns.Cancel(ctx, ret.ID, "again")
	require.NoError(t, err, "cancelling twice is a no-op")

	_, err = h.Invoices.Cancel(ctx, s.invoice.ID, trade.CancelInput{Reason: "no returns left"})
	require.NoError(t, err)
}

func TestReturnService_PurchaseReturn(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()
	supplier := h.Supplier(t, "S-1")
	product := uuid.New()

	input := trade.CreateReturnInput{
		Type:           domaintrade.DocumentTypePurchaseReturn,
		CounterpartyID: supplier.ID,
		WarehouseID:    h.WarehouseID,
		Lines: []trade.LineInput{
			{ProductID: product, Quantity: testutil.Dec("1"), UnitPrice: testutil.Dec("5")},
		},
	}
	_, err := h.Returns.Create(ctx, input)
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "return lines must name a lot")

	input.Lines[0].LotCode = "P9"
	ret, err := h.Returns.Create(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "PRET-1", ret.Number)

	_, err = h.Returns.Confirm(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, "5.00", h.Balance(t, testutil.PayableCode))
	assert.Equal(t, "-5.00", h.Balance(t, testutil.PurchaseReturnCode))
	assert.True(t, testutil.Dec("-5").Equal(h.CounterpartyBalance(t, supplier.ID)))

	_, err = h.Returns.Return(ctx, ret.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "lot P9 was never received")

	h.ReceiveLot(t, product, "P9", "3", nil)
	returned, err := h.Returns.Return(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, domaintrade.ReturnStatusReturned, returned.Status)

	lot, err := h.Stock.Lot(ctx, product, h.WarehouseID, "P9")
	require.NoError(t, err)
	assert.True(t, testutil.Dec("2").Equal(lot.Quantity))
}
