package ledger_test

import (
	"context"
	"testing"

	appledger "github.com/erp/ledgerflow/internal/application/ledger"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/erp/ledgerflow/internal/infrastructure/persistence"
	"github.com/erp/ledgerflow/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAccountPlan(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()
	accounts := persistence.NewGormAccountRepository(h.DB)

	eastCash, err := h.Ledger.CreateAccount(ctx, appledger.CreateAccountInput{
		Code: "1020", Name: "East till", Type: ledger.AccountTypeAsset, Currency: valueobject.USD,
	})
	require.NoError(t, err)
	east := uuid.New()

	plan, err := appledger.ResolveAccountPlan(ctx, accounts, appledger.PlanCodes{
		Currency: "usd",
		Defaults: appledger.WarehouseCodes{
			Bank:  testutil.BankCode,
			Sales: testutil.SalesCode,
		},
		Warehouses: map[string]appledger.WarehouseCodes{
			east.String(): {Cash: "1020"},
		},
		TaxPayable: testutil.TaxPayableCode,
	})
	require.NoError(t, err)

	assert.Equal(t, valueobject.USD, plan.Currency)
	assert.Equal(t, h.Account(testutil.TaxPayableCode).ID, plan.TaxPayable)
	assert.Equal(t, uuid.Nil, plan.OpeningEquity, "unset codes stay unset")

	t.Run("defaults fall back to bank", func(t *testing.T) {
		b := plan.Bindings(uuid.New())
		assert.Equal(t, h.Account(testutil.BankCode).ID, b[ledger.RoleCash])
		assert.Equal(t, h.Account(testutil.SalesCode).ID, b[ledger.RoleSalesReturn], "sales return falls back to sales")
	})

	t.Run("warehouse override is overlaid", func(t *testing.T) {
		w := plan.ForWarehouse(east)
		assert.Equal(t, eastCash.ID, w.Cash)
		assert.Equal(t, h.Account(testutil.BankCode).ID, w.Bank)
		assert.Equal(t, h.Account(testutil.SalesCode).ID, w.Sales)
		assert.Equal(t, eastCash.ID, plan.Bindings(east)[ledger.RoleCash])
	})
}

func TestResolveAccountPlan_Errors(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()
	accounts := persistence.NewGormAccountRepository(h.DB)

	t.Run("unknown code", func(t *testing.T) {
		_, err := appledger.ResolveAccountPlan(ctx, accounts, appledger.PlanCodes{
			Currency:   "USD",
			Defaults:   appledger.WarehouseCodes{Cash: testutil.CashCode},
			TaxPayable: "2999",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrAccountNotConfigured)
		assert.Contains(t, err.Error(), "2999")
	})

	t.Run("bad warehouse id", func(t *testing.T) {
		_, err := appledger.ResolveAccountPlan(ctx, accounts, appledger.PlanCodes{
			Currency:   "USD",
			Warehouses: map[string]appledger.WarehouseCodes{"east": {Cash: testutil.CashCode}},
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("bad currency", func(t *testing.T) {
		_, err := appledger.ResolveAccountPlan(ctx, accounts, appledger.PlanCodes{Currency: "dollars"})
		assert.Error(t, err)
	})
}
