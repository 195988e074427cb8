package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/finance"
	"github.com/erp/ledgerflow/internal/domain/hr"
	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/erp/ledgerflow/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ScopeOption configures a GormTransactionScope
type ScopeOption func(*GormTransactionScope)

// WithLockTimeout bounds how long a unit waits for a row lock on PostgreSQL
func WithLockTimeout(d time.Duration) ScopeOption {
	return func(s *GormTransactionScope) {
		s.lockTimeout = d
	}
}

// WithRetryPolicy sets the policy ExecuteWithRetry uses
func WithRetryPolicy(p uow.RetryPolicy) ScopeOption {
	return func(s *GormTransactionScope) {
		s.retry = p
	}
}

// WithScopeMetrics records unit duration and retries
func WithScopeMetrics(m *telemetry.LedgerMetrics) ScopeOption {
	return func(s *GormTransactionScope) {
		s.metrics = m
	}
}

// WithScopeLogger sets the logger used for retry warnings
func WithScopeLogger(l *zap.Logger) ScopeOption {
	return func(s *GormTransactionScope) {
		if l != nil {
			s.logger = l
		}
	}
}

// GormTransactionScope implements uow.TransactionScope using GORM transactions.
// Every repository handed to fn shares the one database transaction.
type GormTransactionScope struct {
	db          *gorm.DB
	lockTimeout time.Duration
	retry       uow.RetryPolicy
	metrics     *telemetry.LedgerMetrics
	logger      *zap.Logger
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, opts ...ScopeOption) *GormTransactionScope {
	s := &GormTransactionScope{
		db:     db,
		retry:  uow.DefaultRetryPolicy(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs fn within a database transaction. If fn returns an error the
// transaction is rolled back. Deferred functions and held key locks are
// released after commit or rollback, never before.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos uow.TransactionalRepositories) error) error {
	ctx, span := telemetry.StartSpan(ctx, "uow.execute")
	defer span.End()

	start := time.Now()
	repos := &gormTransactionalRepositories{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.applyLockTimeout(tx); err != nil {
			return err
		}
		repos.tx = tx
		return fn(repos)
	})
	repos.finish()

	err = translateError(err)
	s.metrics.RecordUnit(ctx, time.Since(start), err == nil)
	telemetry.RecordError(span, err)
	return err
}

// ExecuteWithRetry runs Execute again while it fails transiently
func (s *GormTransactionScope) ExecuteWithRetry(ctx context.Context, fn func(repos uow.TransactionalRepositories) error) error {
	attempt := 0
	return uow.Retry(ctx, s.retry, func() error {
		attempt++
		if attempt > 1 {
			s.metrics.RecordRetry(ctx)
			s.logger.Warn("retrying unit of work after transient failure",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", s.retry.MaxAttempts),
			)
		}
		return s.Execute(ctx, fn)
	})
}

// applyLockTimeout issues SET LOCAL so the timeout dies with the transaction
func (s *GormTransactionScope) applyLockTimeout(tx *gorm.DB) error {
	if s.lockTimeout <= 0 || tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())).Error
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB

	mu       sync.Mutex
	deferred []func()
	locks    map[string]func()
	order    []string
}

func (r *gormTransactionalRepositories) Accounts() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) Transactions() ledger.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) Batches() inventory.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

func (r *gormTransactionalRepositories) Movements() inventory.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

func (r *gormTransactionalRepositories) Counterparties() partner.CounterpartyRepository {
	return NewGormCounterpartyRepository(r.tx)
}

func (r *gormTransactionalRepositories) BalanceEntries() partner.BalanceEntryRepository {
	return NewGormBalanceEntryRepository(r.tx)
}

func (r *gormTransactionalRepositories) Invoices() trade.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) Returns() trade.ReturnRepository {
	return NewGormReturnRepository(r.tx)
}

func (r *gormTransactionalRepositories) Receipts() finance.ReceiptRepository {
	return NewGormReceiptRepository(r.tx)
}

func (r *gormTransactionalRepositories) PayrollSlips() hr.PayrollSlipRepository {
	return NewGormPayrollSlipRepository(r.tx)
}

func (r *gormTransactionalRepositories) Expenses() finance.ExpenseRepository {
	return NewGormExpenseRepository(r.tx)
}

func (r *gormTransactionalRepositories) ExpenseCategories() finance.ExpenseCategoryRepository {
	return NewGormExpenseCategoryRepository(r.tx)
}

func (r *gormTransactionalRepositories) Sequences() uow.SequenceRepository {
	return NewGormSequenceRepository(r.tx)
}

// Defer registers fn to run once the transaction has ended
func (r *gormTransactionalRepositories) Defer(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deferred = append(r.deferred, fn)
}

// HoldsLock reports whether this unit already owns key
func (r *gormTransactionalRepositories) HoldsLock(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.locks[key]
	return ok
}

// HoldLock records a key lock owned by this unit
func (r *gormTransactionalRepositories) HoldLock(key string, release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks == nil {
		r.locks = make(map[string]func())
	}
	if _, ok := r.locks[key]; ok {
		release()
		return
	}
	r.locks[key] = release
	r.order = append(r.order, key)
}

// finish releases key locks in reverse acquisition order, then runs
// deferred functions last-in first-out
func (r *gormTransactionalRepositories) finish() {
	r.mu.Lock()
	locks, order, deferred := r.locks, r.order, r.deferred
	r.locks, r.order, r.deferred = nil, nil, nil
	r.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		locks[order[i]]()
	}
	for i := len(deferred) - 1; i >= 0; i-- {
		deferred[i]()
	}
}

var (
	_ uow.TransactionScope          = (*GormTransactionScope)(nil)
	_ uow.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
