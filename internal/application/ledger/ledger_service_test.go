package ledger_test

import (
	"context"
	"testing"

	appledger "github.com/erp/ledgerflow/internal/application/ledger"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/erp/ledgerflow/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_CreateAccount(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	t.Run("duplicate code", func(t *testing.T) {
		_, err := h.Ledger.CreateAccount(ctx, appledger.CreateAccountInput{
			Code: testutil.CashCode, Name: "Petty cash", Type: ledger.AccountTypeAsset, Currency: valueobject.USD,
		})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("parent stops being a leaf", func(t *testing.T) {
		child, err := h.Ledger.CreateAccount(ctx, appledger.CreateAccountInput{
			Code: "1001", Name: "Till", Type: ledger.AccountTypeAsset, Currency: valueobject.USD, ParentCode: testutil.CashCode,
		})
		require.NoError(t, err)
		assert.True(t, child.IsLeaf)

		parent, err := h.Ledger.Balance(ctx, testutil.CashCode)
		require.NoError(t, err)
		assert.False(t, parent.Account.IsLeaf)

		_, err = h.Ledger.Post(ctx, appledger.PostRequest{
			Description: "into a parent",
			Legs: []ledger.LegSpec{
				ledger.Debit(parent.Account.ID, testutil.USD("10")),
				ledger.Credit(h.Account(testutil.OpeningEquityCode).ID, testutil.USD("10")),
			},
		})
		assert.ErrorIs(t, err, shared.ErrInvalidAccount)
	})

	t.Run("unknown parent", func(t *testing.T) {
		_, err := h.Ledger.CreateAccount(ctx, appledger.CreateAccountInput{
			Code: "9999", Name: "Orphan", Type: ledger.AccountTypeExpense, Currency: valueobject.USD, ParentCode: "0000",
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestService_PostAndBalance(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()
	bank := h.Account(testutil.BankCode).ID
	equity := h.Account(testutil.OpeningEquityCode).ID

	source := &ledger.Source{Type: "manual", ID: uuid.New()}
	txn, err := h.Ledger.Post(ctx, appledger.PostRequest{
		Date:        testutil.Date(2025, 1, 2),
		Description: "capital",
		Source:      source,
		Legs: []ledger.LegSpec{
			ledger.Debit(bank, testutil.USD("500")),
			ledger.Credit(equity, testutil.USD("500")),
		},
	})
	require.NoError(t, err)
	assert.True(t, txn.IsBalanced())
	assert.Len(t, txn.Legs, 2)

	assert.Equal(t, "500.00", h.Balance(t, testutil.BankCode))
	assert.Equal(t, "-500.00", h.Balance(t, testutil.OpeningEquityCode))

	bySource, err := h.Ledger.BySource(ctx, source.Type, source.ID)
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, txn.ID, bySource[0].ID)

	t.Run("unbalanced is rejected and nothing is stored", func(t *testing.T) {
		_, err := h.Ledger.Post(ctx, appledger.PostRequest{
			Description: "bad",
			Legs: []ledger.LegSpec{
				ledger.Debit(bank, testutil.USD("10")),
				ledger.Credit(equity, testutil.USD("9")),
			},
		})
		assert.ErrorIs(t, err, shared.ErrUnbalancedEntry)
		assert.Equal(t, "500.00", h.Balance(t, testutil.BankCode))
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := h.Ledger.Post(ctx, appledger.PostRequest{
			Description: "ghost",
			Legs: []ledger.LegSpec{
				ledger.Debit(uuid.New(), testutil.USD("1")),
				ledger.Credit(equity, testutil.USD("1")),
			},
		})
		assert.ErrorIs(t, err, shared.ErrInvalidAccount)
	})
}

func TestService_Reverse(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	txn, err := h.Ledger.Post(ctx, appledger.PostRequest{
		Description: "cash sale",
		Legs: []ledger.LegSpec{
			ledger.Debit(h.Account(testutil.CashCode).ID, testutil.USD("80")),
			ledger.Credit(h.Account(testutil.SalesCode).ID, testutil.USD("80")),
		},
	})
	require.NoError(t, err)

	reversal, err := h.Ledger.Reverse(ctx, txn.ID, "keyed twice")
	require.NoError(t, err)
	require.NotNil(t, reversal.ReversesID)
	assert.Equal(t, txn.ID, *reversal.ReversesID)
	assert.Equal(t, "0.00", h.Balance(t, testutil.CashCode))
	assert.Equal(t, "0.00", h.Balance(t, testutil.SalesCode))

	original, err := h.Ledger.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{reversal.ID}, original.ReversedBy)

	_, err = h.Ledger.Reverse(ctx, txn.ID, "again")
	assert.ErrorIs(t, err, shared.ErrAlreadyReversed)

	_, err = h.Ledger.Reverse(ctx, reversal.ID, "reverse the reversal")
	assert.ErrorIs(t, err, shared.ErrAlreadyReversed)

	_, err = h.Ledger.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
