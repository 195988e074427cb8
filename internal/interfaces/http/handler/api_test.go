package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/interfaces/http/dto"
	"github.com/erp/ledgerflow/internal/interfaces/http/handler"
	"github.com/erp/ledgerflow/internal/interfaces/http/middleware"
	"github.com/erp/ledgerflow/internal/interfaces/http/router"
	"github.com/erp/ledgerflow/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const maxBody = 64 * 1024

type api struct {
	h      *testutil.Harness
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()

	h := testutil.NewHarness(t)
	engine, err := router.NewEngine(router.EngineConfig{
		MaxBodySize: maxBody,
		Tracing:     middleware.TracingConfig{Enabled: false},
	}, zap.NewNop())
	require.NoError(t, err)

	router.NewRouter(engine).
		RegisterRoot(handler.NewHealthHandler(map[string]handler.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := h.DB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		})).
		Register(
			handler.NewLedgerHandler(h.Ledger),
			handler.NewCounterpartyHandler(h.Counterparties),
			handler.NewStockHandler(h.Stock),
			handler.NewSaleInvoiceHandler(h.Invoices),
			handler.NewPurchaseInvoiceHandler(h.Invoices),
			handler.NewSaleReturnHandler(h.Returns),
			handler.NewPurchaseReturnHandler(h.Returns),
			handler.NewSettlementHandler(h.Settlements),
			handler.NewPayrollHandler(h.Payroll),
			handler.NewExpenseHandler(h.Expenses),
		).
		Setup()

	return &api{h: h, engine: engine}
}

func (a *api) do(t *testing.T, method, path string, body any) *testutil.JSONResponse {
	t.Helper()
	return testutil.DoJSON(t, a.engine, method, "/api/v1"+path, body)
}

func (a *api) customer(t *testing.T, code string) handler.CounterpartyResponse {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/counterparties", gin.H{
		"code": code, "name": "Customer " + code, "kind": "CUSTOMER", "account_code": testutil.ReceivableCode,
	})
	testutil.AssertSuccess(t, resp, http.StatusCreated)
	return testutil.DataAs[handler.CounterpartyResponse](t, resp)
}

func (a *api) sale(t *testing.T, customerID, productID string, qty, price, tax string) handler.InvoiceResponse {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/sale-invoices", gin.H{
		"date":            "2025-03-01",
		"counterparty_id": customerID,
		"warehouse_id":    a.h.WarehouseID,
		"lines":           []gin.H{{"product_id": productID, "quantity": qty, "unit_price": price}},
		"tax":             tax,
	})
	testutil.AssertSuccess(t, resp, http.StatusCreated)
	return testutil.DataAs[handler.InvoiceResponse](t, resp)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	resp := testutil.DoJSON(t, a.engine, http.MethodGet, "/health", nil)
	testutil.AssertSuccess(t, resp, http.StatusOK)
	health := testutil.DataAs[handler.HealthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.Checks["database"])

	engine := gin.New()
	router.NewRouter(engine).RegisterRoot(handler.NewHealthHandler(map[string]handler.HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})).Setup()
	resp = testutil.DoJSON(t, engine, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	degraded := testutil.DataAs[handler.HealthResponse](t, resp)
	assert.Equal(t, "degraded", degraded.Status)
	assert.Equal(t, "connection refused", degraded.Checks["redis"])
}

func TestLedgerAPI(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodPost, "/ledger/accounts", gin.H{
		"code": "1020", "name": "Petty cash", "type": "ASSET", "currency": "USD",
	})
	testutil.AssertSuccess(t, resp, http.StatusCreated)
	petty := testutil.DataAs[handler.AccountResponse](t, resp)
	assert.True(t, petty.IsLeaf)

	resp = a.do(t, http.MethodPost, "/ledger/accounts", gin.H{
		"code": "1020", "name": "Again", "type": "ASSET", "currency": "USD",
	})
	testutil.AssertError(t, resp, http.StatusConflict, shared.CodeAlreadyExists)

	resp = a.do(t, http.MethodPost, "/ledger/accounts", gin.H{
		"code": "1030", "name": "Odd", "type": "CONTRA", "currency": "USD",
	})
	testutil.AssertError(t, resp, http.StatusBadRequest, dto.ErrCodeValidation)

	equity := a.h.Account(testutil.OpeningEquityCode).ID
	resp = a.do(t, http.MethodPost, "/ledger/transactions", gin.H{
		"currency": "USD",
		"legs": []gin.H{
			{"account_id": petty.ID, "side": "DEBIT", "amount": "50"},
			{"account_id": equity, "side": "CREDIT", "amount": "40"},
		},
	})
	testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeUnbalancedEntry)

	resp = a.do(t, http.MethodPost, "/ledger/transactions", gin.H{
		"date":        "2025-01-02",
		"description": "Float",
		"currency":    "USD",
		"legs": []gin.H{
			{"account_id": petty.ID, "side": "DEBIT", "amount": "50"},
			{"account_id": equity, "side": "CREDIT", "amount": "50"},
		},
	})
	testutil.AssertSuccess(t, resp, http.StatusCreated)
	txn := testutil.DataAs[handler.TransactionResponse](t, resp)
	assert.True(t, testutil.Dec("50").Equal(txn.Total))
	assert.Len(t, txn.Legs, 2)

	resp = a.do(t, http.MethodGet, "/ledger/accounts/1020/balance", nil)
	testutil.AssertSuccess(t, resp, http.StatusOK)
	balance := testutil.DataAs[handler.AccountBalanceResponse](t, resp)
	assert.True(t, testutil.Dec("50").Equal(balance.Balance))

	resp = a.do(t, http.MethodPost, "/ledger/transactions/"+txn.ID+"/reverse", gin.H{"memo": "oops"})
	testutil.AssertSuccess(t, resp, http.StatusCreated)
	reversal := testutil.DataAs[handler.TransactionResponse](t, resp)
	assert.Equal(t, txn.ID, reversal.ReversesID)

	resp = a.do(t, http.MethodPost, "/ledger/transactions/"+txn.ID+"/reverse", nil)
	testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeAlreadyReversed)

	resp = a.do(t, http.MethodGet, "/ledger/transactions/"+txn.ID, nil)
	testutil.AssertSuccess(t, resp, http.StatusOK)
	assert.Equal(t, []string{reversal.ID}, testutil.DataAs[handler.TransactionResponse](t, resp).ReversedBy)

	resp = a.do(t, http.MethodGet, "/ledger/transactions/"+uuid.NewString(), nil)
	testutil.AssertError(t, resp, http.StatusNotFound, shared.CodeNotFound)

	resp = a.do(t, http.MethodGet, "/ledger/transactions/abc", nil)
	testutil.AssertError(t, resp, http.StatusBadRequest, dto.ErrCodeBadRequest)
}

func TestSaleFlowAPI(t *testing.T) {
	a := newAPI(t)
	customer := a.customer(t, "C-1")
	product := uuid.NewString()

	resp := a.do(t, http.MethodPost, "/stock/receive", gin.H{
		"product_id": product, "warehouse_id": a.h.WarehouseID, "lot_code": "L1",
		"quantity": "10", "unit_cost": "40", "expiry_date": "2026-01-31",
	})
	testutil.AssertSuccess(t, resp, http.StatusCreated)
	lot := testutil.DataAs[handler.BatchResponse](t, resp)
	assert.Equal(t, "2026-01-31", lot.ExpiryDate)

	inv := a.sale(t, customer.ID, product, "10", "100", "100")
	assert.Equal(t, "SINV-1", inv.Number)
	assert.Equal(t, "DRAFT", inv.Status)

	resp = a.do(t, http.MethodPost, "/sale-invoices/"+inv.ID+"/deliver", nil)
	testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeInvalidTransition)

	resp = a.do(t, http.MethodPost, "/sale-invoices/"+inv.ID+"/confirm", nil)
	testutil.AssertSuccess(t, resp, http.StatusOK)
	inv = testutil.DataAs[handler.InvoiceResponse](t, resp)
	assert.Equal(t, "CONFIRMED", inv.Status)
	assert.True(t, testutil.Dec("1100").Equal(inv.Outstanding))
	assert.NotEmpty(t, inv.PostingID)

	resp = a.do(t, http.MethodPost, "/sale-invoices/"+inv.ID+"/deliver", nil)
	testutil.AssertSuccess(t, resp, http.StatusOK)
	inv = testutil.DataAs[handler.InvoiceResponse](t, resp)
	assert.Equal(t, "DELIVERED", inv.Status)
	assert.Empty(t, inv.Lines[0].LotCode, "the line named no lot")
	require.Len(t, inv.Fulfillments, 1)
	assert.Equal(t, inv.Lines[0].ID, inv.Fulfillments[0].LineID)
	assert.Equal(t, "L1", inv.Fulfillments[0].LotCode)
	assert.True(t, testutil.Dec("10").Equal(inv.Fulfillments[0].Quantity))

	resp = a.do(t, http.MethodGet, fmt.Sprintf("/stock/on-hand?product_id=%s&warehouse_id=%s", product, a.h.WarehouseID), nil)
	testutil.AssertSuccess(t, resp, http.StatusOK)
	assert.True(t, testutil.DataAs[handler.OnHandResponse](t, resp).Quantity.IsZero())

	resp = a.do(t, http.MethodPost, "/receipts", gin.H{
		"kind": "CUSTOMER_RECEIPT", "counterparty_id": customer.ID, "warehouse_id": a.h.WarehouseID,
		"amount": "1500", "date": "2025-03-05",
	})
	testutil.AssertSuccess(t, resp, http.StatusCreated)
	receipt := testutil.DataAs[handler.ReceiptResponse](t, resp)
	assert.Equal(t, "RCPT-1", receipt.Number)

	resp = a.do(t, http.MethodPost, "/receipts/"+receipt.ID+"/allocate", gin.H{
		"document_type": "sale_invoice", "document_id": inv.ID, "amount": "1200",
	})
	testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeExceedsOutstanding)

	resp = a.do(t, http.MethodPost, "/receipts/"+receipt.ID+"/allocate", gin.H{
		"document_type": "sale_invoice", "document_id": inv.ID, "amount": "1100",
	})
	testutil.AssertSuccess(t, resp, http.StatusCreated)
	alloc := testutil.DataAs[handler.AllocationResponse](t, resp)
	assert.Equal(t, "SINV-1", alloc.DocumentNumber)

	resp = a.do(t, http.MethodGet, "/receipts/"+receipt.ID, nil)
	testutil.AssertSuccess(t, resp, http.StatusOK)
	receipt = testutil.DataAs[handler.ReceiptResponse](t, resp)
	assert.True(t, testutil.Dec("400").Equal(receipt.UnallocatedAmount))
	assert.Len(t, receipt.Allocations, 1)

	resp = a.do(t, http.MethodGet, "/sale-invoices/"+inv.ID, nil)
	testutil.AssertSuccess(t, resp, http.StatusOK)
	inv = testutil.DataAs[handler.InvoiceResponse](t, resp)
	assert.Equal(t, "PAID", inv.PaymentStatus)
	assert.True(t, inv.Outstanding.IsZero())

	resp = a.do(t, http.MethodGet, "/purchase-invoices/"+inv.ID, nil)
	testutil.AssertError(t, resp, http.StatusNotFound, shared.CodeNotFound)

	resp = a.do(t, http.MethodGet, "/counterparties/"+customer.ID+"/history", nil)
	testutil.AssertSuccess(t, resp, http.StatusOK)
	history := testutil.DataAs[[]handler.BalanceEntryResponse](t, resp)
	require.Len(t, history, 2)
	assert.Equal(t, "INVOICE_CONFIRM", history[0].Reason)
	assert.Equal(t, "RECEIPT", history[1].Reason)

	resp = a.do(t, http.MethodPost, "/sale-invoices/"+inv.ID+"/cancel", gin.H{"reason": "customer dispute"})
	testutil.AssertSuccess(t, resp, http.StatusOK)
	inv = testutil.DataAs[handler.InvoiceResponse](t, resp)
	assert.Equal(t, "CANCELLED", inv.Status)
	assert.Len(t, inv.ReversalIDs, 2)

	resp = a.do(t, http.MethodGet, "/counterparties/"+customer.ID, nil)
	testutil.AssertSuccess(t, resp, http.StatusOK)
	// the unallocated part of the receipt stays with the customer
	balance := testutil.DataAs[handler.CounterpartyResponse](t, resp).CurrentBalance
	assert.True(t, testutil.Dec("-400").Equal(balance), "balance %s", balance)
}

func TestSplitSettleAPI(t *testing.T) {
	a := newAPI(t)
	customer := a.customer(t, "C-1")

	inv := a.sale(t, customer.ID, uuid.NewString(), "10", "100", "100")
	resp := a.do(t, http.MethodPost, "/sale-invoices/"+inv.ID+"/confirm", nil)
	testutil.AssertSuccess(t, resp, http.StatusOK)

	resp = a.do(t, http.MethodPost, "/settlements", gin.H{
		"document_type": "sale_invoice", "document_id": inv.ID, "pay": "600", "credit": "600",
	})
	testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeAmountMismatch)

	resp = a.do(t, http.MethodPost, "/settlements", gin.H{
		"document_type": "sale_invoice", "document_id": inv.ID, "pay": "600", "credit": "500",
	})
	testutil.AssertSuccess(t, resp, http.StatusOK)
	settled := testutil.DataAs[handler.SplitSettlementResponse](t, resp)
	assert.Equal(t, "PAID", settled.Invoice.PaymentStatus)
	require.NotNil(t, settled.Receipt)
	assert.True(t, settled.Receipt.UnallocatedAmount.IsZero())
}

func TestReturnFlowAPI(t *testing.T) {
	a := newAPI(t)
	customer := a.customer(t, "C-1")
	product := uuid.NewString()
	a.h.ReceiveLot(t, uuid.MustParse(product), "L1", "10", nil)

	inv := a.sale(t, customer.ID, product, "10", "100", "0")
	for _, step := range []string{"confirm", "deliver"} {
		resp := a.do(t, http.MethodPost, "/sale-invoices/"+inv.ID+"/"+step, nil)
		testutil.AssertSuccess(t, resp, http.StatusOK)
	}

	resp := a.do(t, http.MethodPost, "/sale-returns", gin.H{
		"date": "2025-03-10", "counterparty_id": customer.ID, "warehouse_id": a.h.WarehouseID,
		"invoice_id": inv.ID,
		"lines":      []gin.H{{"product_id": product, "lot_code": "L1", "quantity": "11", "unit_price": "100"}},
	})
	testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeExceedsReturnable)

	resp = a.do(t, http.MethodPost, "/sale-returns", gin.H{
		"date": "2025-03-10", "counterparty_id": customer.ID, "warehouse_id": a.h.WarehouseID,
		"invoice_id": inv.ID, "reason": "damaged",
		"lines": []gin.H{{"product_id": product, "lot_code": "L1", "quantity": "4", "unit_price": "100"}},
	})
	testutil.AssertSuccess(t, resp, http.StatusCreated)
	ret := testutil.DataAs[handler.ReturnResponse](t, resp)
	assert.Equal(t, "SRET-1", ret.Number)

	resp = a.do(t, http.MethodPost, "/sale-returns/"+ret.ID+"/credit", nil)
	testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeInvalidTransition)

	for _, step := range []string{"confirm", "return", "credit"} {
		resp = a.do(t, http.MethodPost, "/sale-returns/"+ret.ID+"/"+step, nil)
		testutil.AssertSuccess(t, resp, http.StatusOK)
	}
	ret = testutil.DataAs[handler.ReturnResponse](t, resp)
	assert.Equal(t, "CREDITED", ret.Status)
	assert.True(t, testutil.Dec("400").Equal(ret.CreditedAmount))

	resp = a.do(t, http.MethodPost, "/sale-invoices/"+inv.ID+"/cancel", nil)
	testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeDependentDocumentsExist)

	resp = a.do(t, http.MethodGet, "/purchase-returns/"+ret.ID, nil)
	testutil.AssertError(t, resp, http.StatusNotFound, shared.CodeNotFound)
}

func TestPayrollAPI(t *testing.T) {
	a := newAPI(t)
	employee := uuid.NewString()
	body := gin.H{
		"employee_id": employee, "employee_name": "Ada", "period": "2025-01",
		"warehouse_id": a.h.WarehouseID, "base_salary": "3000",
		"present_days": 28, "absent_days": 2, "leaves_paid": 1, "deductions": "50",
	}

	resp := a.do(t, http.MethodPost, "/payroll-slips", body)
	testutil.AssertSuccess(t, resp, http.StatusCreated)
	slip := testutil.DataAs[handler.PayrollSlipResponse](t, resp)
	assert.Equal(t, "PSLIP-1", slip.Number)
	assert.True(t, testutil.Dec("2850").Equal(slip.NetSalary))

	resp = a.do(t, http.MethodPost, "/payroll-slips", body)
	testutil.AssertError(t, resp, http.StatusConflict, shared.CodeAlreadyExists)

	resp = a.do(t, http.MethodPost, "/payroll-slips/"+slip.ID+"/pay", nil)
	testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeInvalidTransition)

	for _, step := range []string{"confirm", "pay"} {
		resp = a.do(t, http.MethodPost, "/payroll-slips/"+slip.ID+"/"+step, nil)
		testutil.AssertSuccess(t, resp, http.StatusOK)
	}
	slip = testutil.DataAs[handler.PayrollSlipResponse](t, resp)
	assert.Equal(t, "PAID", slip.Status)
	assert.NotEmpty(t, slip.PaymentPostingID)
	assert.Equal(t, "-2850.00", a.h.Balance(t, testutil.CashCode))

	resp = a.do(t, http.MethodPost, "/payroll-slips/"+slip.ID+"/cancel", gin.H{"reason": "late"})
	testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeInvalidTransition)

	bad := gin.H{}
	for k, v := range body {
		bad[k] = v
	}
	bad["period"] = "January"
	resp = a.do(t, http.MethodPost, "/payroll-slips", bad)
	testutil.AssertError(t, resp, http.StatusBadRequest, dto.ErrCodeValidation)
}

func TestExpenseAPI(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodPost, "/expense-categories", gin.H{"name": "Rent", "account_code": testutil.CashCode})
	testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeInvalidAccount)

	resp = a.do(t, http.MethodPost, "/expense-categories", gin.H{"name": "Rent", "account_code": testutil.RentExpenseCode})
	testutil.AssertSuccess(t, resp, http.StatusCreated)
	category := testutil.DataAs[handler.ExpenseCategoryResponse](t, resp)

	resp = a.do(t, http.MethodPost, "/expenses", gin.H{
		"category_id": category.ID, "warehouse_id": a.h.WarehouseID,
		"date": "2025-03-01", "amount": "250", "description": "March rent",
	})
	testutil.AssertSuccess(t, resp, http.StatusCreated)
	expense := testutil.DataAs[handler.ExpenseResponse](t, resp)
	assert.Equal(t, "EXP-1", expense.Number)
	assert.Equal(t, "DRAFT", expense.Status)
	assert.Equal(t, "2025-03-01", expense.Date)

	resp = a.do(t, http.MethodPost, "/expenses/"+expense.ID+"/cancel", nil)
	testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeInvalidTransition)

	resp = a.do(t, http.MethodPost, "/expenses/"+expense.ID+"/post", nil)
	testutil.AssertSuccess(t, resp, http.StatusOK)
	expense = testutil.DataAs[handler.ExpenseResponse](t, resp)
	assert.Equal(t, "POSTED", expense.Status)
	assert.NotEmpty(t, expense.PostingID)
	assert.Equal(t, "250.00", a.h.Balance(t, testutil.RentExpenseCode))
	assert.Equal(t, "-250.00", a.h.Balance(t, testutil.CashCode))

	resp = a.do(t, http.MethodPost, "/expenses/"+expense.ID+"/cancel", gin.H{"reason": "duplicate bill"})
	testutil.AssertSuccess(t, resp, http.StatusOK)
	expense = testutil.DataAs[handler.ExpenseResponse](t, resp)
	assert.Equal(t, "CANCELLED", expense.Status)
	assert.Equal(t, "duplicate bill", expense.CancelReason)
	assert.Equal(t, "0.00", a.h.Balance(t, testutil.RentExpenseCode))

	resp = a.do(t, http.MethodPost, "/expenses/"+expense.ID+"/cancel", nil)
	testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeAlreadyReversed)

	resp = a.do(t, http.MethodGet, "/expenses/"+expense.ID, nil)
	testutil.AssertSuccess(t, resp, http.StatusOK)

	resp = a.do(t, http.MethodPost, "/expenses", gin.H{"category_id": category.ID, "amount": "-1"})
	testutil.AssertError(t, resp, http.StatusBadRequest, dto.ErrCodeValidation)
}

func TestRequestErrors(t *testing.T) {
	a := newAPI(t)

	t.Run("malformed json", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sale-invoices", strings.NewReader(`{"lines":`))
		req.Header.Set("Content-Type", "application/json")
		a.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing lines", func(t *testing.T) {
		resp := a.do(t, http.MethodPost, "/sale-invoices", gin.H{
			"counterparty_id": uuid.NewString(), "warehouse_id": a.h.WarehouseID,
		})
		testutil.AssertError(t, resp, http.StatusBadRequest, dto.ErrCodeValidation)
		assert.NotEmpty(t, resp.Error.Details)
	})

	t.Run("unknown counterparty", func(t *testing.T) {
		resp := a.do(t, http.MethodPost, "/sale-invoices", gin.H{
			"counterparty_id": uuid.NewString(), "warehouse_id": a.h.WarehouseID,
			"lines": []gin.H{{"product_id": uuid.NewString(), "quantity": "1", "unit_price": "1"}},
		})
		testutil.AssertError(t, resp, http.StatusNotFound, shared.CodeNotFound)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		resp := a.do(t, http.MethodPost, "/stock/consume-fefo", gin.H{
			"product_id": uuid.NewString(), "warehouse_id": a.h.WarehouseID, "quantity": "1",
		})
		testutil.AssertError(t, resp, http.StatusUnprocessableEntity, shared.CodeInsufficientStock)
	})

	t.Run("body too large", func(t *testing.T) {
		resp := a.do(t, http.MethodPost, "/counterparties", gin.H{
			"code": "C-1", "name": strings.Repeat("x", maxBody), "kind": "CUSTOMER", "account_code": "1100",
		})
		testutil.AssertError(t, resp, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge)
	})

	t.Run("request id is returned on errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sale-invoices/"+uuid.NewString(), nil)
		req.Header.Set("X-Request-ID", "req-42")
		a.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
		assert.Contains(t, w.Body.String(), `"request_id":"req-42"`)
	})
}
