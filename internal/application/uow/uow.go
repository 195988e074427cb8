// Package uow defines the unit of work every engine command runs in.
package uow

import (
	"context"
	"fmt"

	"github.com/erp/ledgerflow/internal/domain/finance"
	"github.com/erp/ledgerflow/internal/domain/hr"
	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/erp/ledgerflow/internal/domain/trade"
)

// TransactionScope runs a function inside one database transaction.
// All repository writes made through repos commit together or not at all.
type TransactionScope interface {
	// Execute runs fn in a transaction. If fn returns an error the
	// transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
	// ExecuteWithRetry is Execute, retried wholesale while the failure is
	// transient (serialization failure, deadlock, lock timeout).
	ExecuteWithRetry(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to every repository within the
// current transaction.
type TransactionalRepositories interface {
	Accounts() ledger.AccountRepository
	Transactions() ledger.TransactionRepository
	Batches() inventory.BatchRepository
	Movements() inventory.MovementRepository
	Counterparties() partner.CounterpartyRepository
	BalanceEntries() partner.BalanceEntryRepository
	Invoices() trade.InvoiceRepository
	Returns() trade.ReturnRepository
	Receipts() finance.ReceiptRepository
	PayrollSlips() hr.PayrollSlipRepository
	Expenses() finance.ExpenseRepository
	ExpenseCategories() finance.ExpenseCategoryRepository
	Sequences() SequenceRepository
	// Defer registers fn to run once the transaction has committed or
	// rolled back.
	Defer(fn func())
	// HoldsLock reports whether this unit already owns the key lock
	HoldsLock(key string) bool
	// HoldLock records a key lock owned by this unit. release runs when
	// the unit ends.
	HoldLock(key string, release func())
}

// AcquireKey takes a key lock for the rest of the unit. Taking a key the
// unit already holds is a no-op, so one command may touch the same lot
// twice.
func AcquireKey(ctx context.Context, repos TransactionalRepositories, locker inventory.KeyLocker, key string) error {
	if repos.HoldsLock(key) {
		return nil
	}
	release, err := locker.Lock(ctx, key)
	if err != nil {
		return err
	}
	repos.HoldLock(key, release)
	return nil
}

// SequenceRepository hands out gap-tolerant document numbers
type SequenceRepository interface {
	// Next increments and returns the counter for prefix
	Next(ctx context.Context, prefix string) (int64, error)
}

// NextNumber draws the next number for prefix and formats it as PREFIX-n
func NextNumber(ctx context.Context, seq SequenceRepository, prefix string) (string, error) {
	n, err := seq.Next(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to allocate %s number: %w", prefix, err)
	}
	return FormatNumber(prefix, n), nil
}

// FormatNumber renders a document number
func FormatNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%d", prefix, n)
}
