package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateAccountInput adds a node to the chart of accounts
type CreateAccountInput struct {
	Code       string
	Name       string
	Type       ledger.AccountType
	Currency   valueobject.Currency
	ParentCode string
}

// AccountBalance is an account with its derived balance
type AccountBalance struct {
	Account *ledger.Account
	// Balance is debits minus credits
	Balance decimal.Decimal
}

// Service exposes the engine as standalone commands, each in its own unit
// of work, and maintains the chart of accounts
type Service struct {
	scope  uow.TransactionScope
	engine *Engine
	logger *zap.Logger
}

// NewService creates a new ledger Service
func NewService(scope uow.TransactionScope, engine *Engine, logger *zap.Logger) *Service {
	return &Service{scope: scope, engine: engine, logger: logger}
}

// CreateAccount adds a leaf account. A parent, when given, stops being a
// leaf and can no longer receive postings.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (*ledger.Account, error) {
	var account *ledger.Account
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		if existing, err := repos.Accounts().FindByCode(ctx, in.Code); err == nil && existing != nil {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Account code already exists: "+in.Code)
		} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to check account code: %w", err)
		}

		var parentID *uuid.UUID
		if in.ParentCode != "" {
			parent, err := repos.Accounts().FindByCode(ctx, in.ParentCode)
			if err != nil {
				return err
			}
			parent.MarkAsParent()
			if err := repos.Accounts().Save(ctx, parent); err != nil {
				return fmt.Errorf("failed to save parent account: %w", err)
			}
			parentID = &parent.ID
		}

		var err error
		account, err = ledger.NewAccount(in.Code, in.Name, in.Type, in.Currency, parentID)
		if err != nil {
			return err
		}
		return repos.Accounts().Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account created",
		zap.String("code", account.Code),
		zap.String("type", string(account.Type)),
	)
	return account, nil
}

// Balance returns an account with debits minus credits posted to it
func (s *Service) Balance(ctx context.Context, code string) (*AccountBalance, error) {
	var out *AccountBalance
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		account, err := repos.Accounts().FindByCode(ctx, code)
		if err != nil {
			return err
		}
		balance, err := repos.Transactions().AccountBalance(ctx, account.ID)
		if err != nil {
			return err
		}
		out = &AccountBalance{Account: account, Balance: balance}
		return nil
	})
	return out, err
}

// Post records a manual balanced transaction
func (s *Service) Post(ctx context.Context, req PostRequest) (*ledger.Transaction, error) {
	var txn *ledger.Transaction
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		txn, err = s.engine.Post(ctx, repos, req)
		return err
	})
	return txn, err
}

// Reverse posts the mirror image of a transaction
func (s *Service) Reverse(ctx context.Context, id uuid.UUID, memo string) (*ledger.Transaction, error) {
	var txn *ledger.Transaction
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		txn, err = s.engine.Reverse(ctx, repos, id, memo)
		return err
	})
	return txn, err
}

// Get returns a transaction with its legs
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var txn *ledger.Transaction
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		found, err := repos.Transactions().FindByID(ctx, id)
		txn = found
		return err
	})
	return txn, err
}

// BySource lists the transactions a document caused, oldest first
func (s *Service) BySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]ledger.Transaction, error) {
	var txns []ledger.Transaction
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		found, err := repos.Transactions().FindBySource(ctx, sourceType, sourceID)
		txns = found
		return err
	})
	return txns, err
}
