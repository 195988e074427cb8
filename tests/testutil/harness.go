package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledgerflow/internal/application/event"
	"github.com/erp/ledgerflow/internal/application/finance"
	"github.com/erp/ledgerflow/internal/application/hr"
	appinv "github.com/erp/ledgerflow/internal/application/inventory"
	appledger "github.com/erp/ledgerflow/internal/application/ledger"
	apppartner "github.com/erp/ledgerflow/internal/application/partner"
	"github.com/erp/ledgerflow/internal/application/trade"
	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	infraevent "github.com/erp/ledgerflow/internal/infrastructure/event"
	"github.com/erp/ledgerflow/internal/infrastructure/lock"
	"github.com/erp/ledgerflow/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Account codes of the seeded chart
const (
	CashCode           = "1000"
	BankCode           = "1010"
	ReceivableCode     = "1100"
	TaxReceivableCode  = "1300"
	PayableCode        = "2000"
	TaxPayableCode     = "2100"
	PayrollPayableCode = "2200"
	OpeningEquityCode  = "3000"
	SalesCode          = "4000"
	SalesReturnCode    = "4100"
	PurchaseCode       = "5000"
	PurchaseReturnCode = "5100"
	PayrollExpenseCode = "6000"
	RentExpenseCode    = "6100"
)

var chart = []appledger.CreateAccountInput{
	{Code: CashCode, Name: "Cash", Type: ledger.AccountTypeAsset},
	{Code: BankCode, Name: "Bank", Type: ledger.AccountTypeAsset},
	{Code: ReceivableCode, Name: "Accounts Receivable", Type: ledger.AccountTypeAsset},
	{Code: TaxReceivableCode, Name: "Tax Receivable", Type: ledger.AccountTypeAsset},
	{Code: PayableCode, Name: "Accounts Payable", Type: ledger.AccountTypeLiability},
	{Code: TaxPayableCode, Name: "Tax Payable", Type: ledger.AccountTypeLiability},
	{Code: PayrollPayableCode, Name: "Payroll Payable", Type: ledger.AccountTypeLiability},
	{Code: OpeningEquityCode, Name: "Opening Balance Equity", Type: ledger.AccountTypeEquity},
	{Code: SalesCode, Name: "Sales", Type: ledger.AccountTypeIncome},
	{Code: SalesReturnCode, Name: "Sales Returns", Type: ledger.AccountTypeIncome},
	{Code: PurchaseCode, Name: "Purchases", Type: ledger.AccountTypeExpense},
	{Code: PurchaseReturnCode, Name: "Purchase Returns", Type: ledger.AccountTypeExpense},
	{Code: PayrollExpenseCode, Name: "Payroll Expense", Type: ledger.AccountTypeExpense},
	{Code: RentExpenseCode, Name: "Rent Expense", Type: ledger.AccountTypeExpense},
}

// Harness is every service wired over one in-memory database with a
// seeded chart of accounts, the way cmd/server wires them over PostgreSQL
type Harness struct {
	DB          *gorm.DB
	Scope       *persistence.GormTransactionScope
	Plan        *ledger.AccountPlan
	Accounts    map[string]*ledger.Account
	WarehouseID uuid.UUID

	Engine      *appledger.Engine
	StockLedger *appinv.StockLedger
	Bus         *infraevent.InMemoryEventBus
	Events      *MockEventHandler

	Ledger         *appledger.Service
	Stock          *appinv.StockService
	Invoices       *trade.InvoiceService
	Returns        *trade.ReturnService
	Settlements    *finance.SettlementService
	Expenses       *finance.ExpenseService
	Payroll        *hr.PayrollService
	Counterparties *apppartner.CounterpartyService
}

type harnessConfig struct {
	policy inventory.FEFOPolicy
	logger *zap.Logger
	db     *gorm.DB
	locker inventory.KeyLocker
}

// HarnessOption configures NewHarness
type HarnessOption func(*harnessConfig)

// WithFEFOPolicy selects how deliveries without a lot pick stock
func WithFEFOPolicy(p inventory.FEFOPolicy) HarnessOption {
	return func(c *harnessConfig) {
		c.policy = p
	}
}

// WithLogger replaces the no-op logger, typically with an observer core
func WithLogger(l *zap.Logger) HarnessOption {
	return func(c *harnessConfig) {
		c.logger = l
	}
}

// WithDB runs the harness over an already migrated database instead of a
// fresh in-memory SQLite one
func WithDB(db *gorm.DB) HarnessOption {
	return func(c *harnessConfig) {
		c.db = db
	}
}

// WithLocker replaces the in-process key locker
func WithLocker(l inventory.KeyLocker) HarnessOption {
	return func(c *harnessConfig) {
		c.locker = l
	}
}

// NewHarness builds the services over a fresh database
func NewHarness(t *testing.T, opts ...HarnessOption) *Harness {
	t.Helper()

	cfg := harnessConfig{policy: inventory.FEFOPolicySingleLot, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.logger
	ctx := context.Background()

	db := cfg.db
	if db == nil {
		db = NewSQLiteDB(t)
	}
	locker := cfg.locker
	if locker == nil {
		locker = lock.NewLocalLocker(time.Second)
	}
	scope := persistence.NewGormTransactionScope(db, persistence.WithScopeLogger(log))
	engine := appledger.NewEngine(log)

	h := &Harness{
		DB:          db,
		Scope:       scope,
		Accounts:    make(map[string]*ledger.Account, len(chart)),
		WarehouseID: uuid.New(),
		Engine:      engine,
		Bus:         infraevent.NewInMemoryEventBus(log),
		Events:      NewMockEventHandler(),
	}
	h.Bus.Subscribe(h.Events)
	h.Ledger = appledger.NewService(scope, engine, log)

	for _, in := range chart {
		in.Currency = valueobject.USD
		account, err := h.Ledger.CreateAccount(ctx, in)
		require.NoError(t, err, "Failed to seed account %s", in.Code)
		h.Accounts[in.Code] = account
	}

	plan, err := appledger.ResolveAccountPlan(ctx, persistence.NewGormAccountRepository(db), appledger.PlanCodes{
		Currency: "USD",
		Defaults: appledger.WarehouseCodes{
			Cash:           CashCode,
			Bank:           BankCode,
			Sales:          SalesCode,
			Purchase:       PurchaseCode,
			SalesReturn:    SalesReturnCode,
			PurchaseReturn: PurchaseReturnCode,
		},
		TaxPayable:     TaxPayableCode,
		TaxReceivable:  TaxReceivableCode,
		OpeningEquity:  OpeningEquityCode,
		PayrollExpense: PayrollExpenseCode,
		PayrollPayable: PayrollPayableCode,
	})
	require.NoError(t, err, "Failed to resolve account plan")
	h.Plan = plan

	h.StockLedger = appinv.NewStockLedger(locker, appinv.Config{FEFOPolicy: cfg.policy}, log)
	dispatcher := event.NewDispatcher(h.Bus, log)

	h.Stock = appinv.NewStockService(scope, h.StockLedger)
	h.Invoices = trade.NewInvoiceService(scope, engine, h.StockLedger, plan, dispatcher, log)
	h.Returns = trade.NewReturnService(scope, engine, h.StockLedger, plan, dispatcher, log)
	h.Settlements = finance.NewSettlementService(scope, engine, plan, dispatcher, log)
	h.Expenses = finance.NewExpenseService(scope, engine, plan, dispatcher, log)
	h.Payroll = hr.NewPayrollService(scope, engine, plan, dispatcher, log)
	h.Counterparties = apppartner.NewCounterpartyService(scope, log)
	return h
}

// Account returns the seeded account with the given code
func (h *Harness) Account(code string) *ledger.Account {
	return h.Accounts[code]
}

// Balance returns debits minus credits of the account with the given code
func (h *Harness) Balance(t *testing.T, code string) string {
	t.Helper()

	b, err := h.Ledger.Balance(context.Background(), code)
	require.NoError(t, err)
	return b.Balance.StringFixed(2)
}

// CounterpartyBalance returns the running balance of a counterparty
func (h *Harness) CounterpartyBalance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()

	cp, err := h.Counterparties.Get(context.Background(), id)
	require.NoError(t, err)
	return cp.CurrentBalance
}

// Customer registers a customer on the receivable account
func (h *Harness) Customer(t *testing.T, code string) *partner.Counterparty {
	t.Helper()
	return h.counterparty(t, code, partner.KindCustomer, ReceivableCode)
}

// Supplier registers a supplier on the payable account
func (h *Harness) Supplier(t *testing.T, code string) *partner.Counterparty {
	t.Helper()
	return h.counterparty(t, code, partner.KindSupplier, PayableCode)
}

func (h *Harness) counterparty(t *testing.T, code string, kind partner.Kind, accountCode string) *partner.Counterparty {
	cp, err := h.Counterparties.Register(context.Background(), apppartner.RegisterInput{
		Code:        code,
		Name:        code,
		Kind:        kind,
		AccountCode: accountCode,
	})
	require.NoError(t, err, "Failed to register counterparty %s", code)
	return cp
}

// ReceiveLot puts a lot on hand in the harness warehouse
func (h *Harness) ReceiveLot(t *testing.T, productID uuid.UUID, lot, qty string, expiry *time.Time) *inventory.Batch {
	t.Helper()

	batch, err := h.Stock.Receive(context.Background(), appinv.ReceiveRequest{
		ProductID:   productID,
		WarehouseID: h.WarehouseID,
		LotCode:     lot,
		Quantity:    Dec(qty),
		UnitCost:    Dec("1"),
		ExpiryDate:  expiry,
		Source:      inventory.SourceRef{Type: "manual"},
	})
	require.NoError(t, err, "Failed to receive lot %s", lot)
	return batch
}
