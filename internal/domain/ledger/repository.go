package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository looks up chart-of-accounts nodes
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Account, error)
	FindByCode(ctx context.Context, code string) (*Account, error)
	Save(ctx context.Context, account *Account) error
}

// TransactionRepository persists ledger transactions. Transactions and legs
// are append-only; Create is the only write.
type TransactionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// FindByIDForUpdate loads the transaction and row-locks it until the
	// surrounding unit of work ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Transaction, error)
	FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]Transaction, error)
	Create(ctx context.Context, txn *Transaction) error
	// AccountBalance returns debits minus credits posted to the account
	AccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}
