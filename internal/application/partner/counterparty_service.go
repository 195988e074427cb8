package partner

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterInput creates a counterparty bound to an existing ledger account
type RegisterInput struct {
	Code        string
	Name        string
	Kind        partner.Kind
	AccountCode string
}

// CounterpartyService registers customers and suppliers and reports their
// running balances
type CounterpartyService struct {
	scope  uow.TransactionScope
	logger *zap.Logger
}

// NewCounterpartyService creates a new CounterpartyService
func NewCounterpartyService(scope uow.TransactionScope, logger *zap.Logger) *CounterpartyService {
	return &CounterpartyService{scope: scope, logger: logger}
}

// Register creates a counterparty. The code must be unused and the account
// code must name an existing leaf account.
func (s *CounterpartyService) Register(ctx context.Context, in RegisterInput) (*partner.Counterparty, error) {
	var out *partner.Counterparty
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		if existing, err := repos.Counterparties().FindByCode(ctx, in.Code); err == nil && existing != nil {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Counterparty code already exists: "+in.Code)
		} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to check counterparty code: %w", err)
		}

		account, err := repos.Accounts().FindByCode(ctx, in.AccountCode)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError(shared.CodeAccountNotConfigured, "Account code "+in.AccountCode+" does not exist")
			}
			return err
		}
		if !account.IsLeaf {
			return shared.NewDomainError(shared.CodeInvalidAccount, "Account "+account.Code+" is not a leaf account")
		}

		cp, err := partner.NewCounterparty(in.Code, in.Name, in.Kind, account.ID)
		if err != nil {
			return err
		}
		if err := repos.Counterparties().Save(ctx, cp); err != nil {
			return fmt.Errorf("failed to save counterparty: %w", err)
		}
		out = cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("counterparty registered",
		zap.String("code", out.Code),
		zap.String("kind", string(out.Kind)),
	)
	return out, nil
}

// Get returns a counterparty
func (s *CounterpartyService) Get(ctx context.Context, id uuid.UUID) (*partner.Counterparty, error) {
	var out *partner.Counterparty
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		cp, err := repos.Counterparties().FindByID(ctx, id)
		out = cp
		return err
	})
	return out, err
}

// History returns the balance audit trail, oldest first
func (s *CounterpartyService) History(ctx context.Context, id uuid.UUID) ([]partner.BalanceEntry, error) {
	var out []partner.BalanceEntry
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		entries, err := repos.BalanceEntries().FindByCounterparty(ctx, id)
		out = entries
		return err
	})
	return out, err
}
