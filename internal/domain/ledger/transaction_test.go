package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pkr(amount int64) valueobject.Money {
	return valueobject.MustMoney(decimal.NewFromInt(amount), valueobject.PKR)
}

func TestNewTransaction(t *testing.T) {
	cash := uuid.New()
	sales := uuid.New()
	tax := uuid.New()
	today := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("creates balanced transaction", func(t *testing.T) {
		txn, err := NewTransaction(today, " Sale INV-1 ", []LegSpec{
			Debit(cash, pkr(1150)),
			Credit(sales, pkr(1000)),
			Credit(tax, pkr(150)),
		})

		require.NoError(t, err)
		assert.Equal(t, "Sale INV-1", txn.Description)
		assert.Equal(t, valueobject.PKR, txn.Currency)
		assert.Len(t, txn.Legs, 3)
		assert.True(t, txn.IsBalanced())
		assert.True(t, decimal.NewFromInt(1150).Equal(txn.TotalDebit()))
		assert.True(t, decimal.NewFromInt(1150).Equal(txn.TotalCredit()))
		for i, leg := range txn.Legs {
			assert.Equal(t, txn.ID, leg.TransactionID)
			assert.Equal(t, i+1, leg.LineNo)
		}

		events := txn.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeTransactionPosted, events[0].EventType())
	})

	t.Run("rejects unbalanced legs", func(t *testing.T) {
		txn, err := NewTransaction(today, "bad", []LegSpec{
			Debit(cash, pkr(100)),
			Credit(sales, pkr(99)),
		})

		assert.Nil(t, txn)
		assert.True(t, errors.Is(err, shared.ErrUnbalancedEntry))
	})

	t.Run("rejects empty legs", func(t *testing.T) {
		_, err := NewTransaction(today, "empty", nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		_, err := NewTransaction(today, "zero", []LegSpec{
			Debit(cash, pkr(0)),
			Credit(sales, pkr(0)),
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("rejects mixed currency", func(t *testing.T) {
		usd := valueobject.MustMoney(decimal.NewFromInt(100), valueobject.USD)
		_, err := NewTransaction(today, "fx", []LegSpec{
			Debit(cash, pkr(100)),
			Credit(sales, usd),
		})
		assert.True(t, errors.Is(err, shared.ErrMixedCurrency))
	})

	t.Run("rejects missing account", func(t *testing.T) {
		_, err := NewTransaction(today, "nil account", []LegSpec{
			Debit(uuid.Nil, pkr(100)),
			Credit(sales, pkr(100)),
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidAccount))
	})
}

func TestTransaction_Reverse(t *testing.T) {
	cash := uuid.New()
	receivable := uuid.New()
	now := time.Now()

	newTxn := func(t *testing.T) *Transaction {
		txn, err := NewTransaction(now, "Receipt R-1", []LegSpec{
			Debit(cash, pkr(500)),
			Credit(receivable, pkr(500)),
		})
		require.NoError(t, err)
		return txn.WithSource("receipt", uuid.New())
	}

	t.Run("flips every leg", func(t *testing.T) {
		original := newTxn(t)

		reversal, err := original.Reverse(now, "")

		require.NoError(t, err)
		require.NotNil(t, reversal.ReversesID)
		assert.Equal(t, original.ID, *reversal.ReversesID)
		assert.Equal(t, "Reversal of Receipt R-1", reversal.Description)
		assert.Equal(t, original.Source, reversal.Source)
		require.Len(t, reversal.Legs, 2)
		assert.Equal(t, SideCredit, reversal.Legs[0].Side)
		assert.Equal(t, cash, reversal.Legs[0].AccountID)
		assert.Equal(t, SideDebit, reversal.Legs[1].Side)
		assert.Equal(t, receivable, reversal.Legs[1].AccountID)
		assert.True(t, reversal.IsBalanced())
		assert.Equal(t, []uuid.UUID{reversal.ID}, original.ReversedBy)

		events := reversal.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeTransactionReversed, events[0].EventType())
	})

	t.Run("keeps custom memo", func(t *testing.T) {
		reversal, err := newTxn(t).Reverse(now, "Cancelled")
		require.NoError(t, err)
		assert.Equal(t, "Cancelled", reversal.Description)
	})

	t.Run("refuses second reversal", func(t *testing.T) {
		original := newTxn(t)
		_, err := original.Reverse(now, "")
		require.NoError(t, err)

		_, err = original.Reverse(now, "")
		assert.True(t, errors.Is(err, shared.ErrAlreadyReversed))
		assert.Len(t, original.ReversedBy, 1)
	})

	t.Run("refuses to reverse a reversal", func(t *testing.T) {
		reversal, err := newTxn(t).Reverse(now, "")
		require.NoError(t, err)

		_, err = reversal.Reverse(now, "")
		assert.True(t, errors.Is(err, shared.ErrAlreadyReversed))
	})
}

func TestTransaction_AccountIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	txn, err := NewTransaction(time.Now(), "split", []LegSpec{
		Debit(a, pkr(30)),
		Debit(a, pkr(70)),
		Credit(b, pkr(100)),
	})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{a, b}, txn.AccountIDs())
}

func TestAccount_CanPost(t *testing.T) {
	t.Run("leaf account in same currency", func(t *testing.T) {
		acc, err := NewAccount("1000", "Cash", AccountTypeAsset, valueobject.PKR, nil)
		require.NoError(t, err)
		assert.NoError(t, acc.CanPost(valueobject.PKR))
	})

	t.Run("parent account", func(t *testing.T) {
		acc, err := NewAccount("1", "Assets", AccountTypeAsset, valueobject.PKR, nil)
		require.NoError(t, err)
		acc.MarkAsParent()
		assert.True(t, errors.Is(acc.CanPost(valueobject.PKR), shared.ErrInvalidAccount))
	})

	t.Run("different currency", func(t *testing.T) {
		acc, err := NewAccount("1001", "USD Bank", AccountTypeAsset, valueobject.USD, nil)
		require.NoError(t, err)
		assert.True(t, errors.Is(acc.CanPost(valueobject.PKR), shared.ErrMixedCurrency))
	})
}
