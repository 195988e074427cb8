package partner

import (
	"context"
	"fmt"

	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lock loads and row-locks a counterparty and checks its kind
func Lock(ctx context.Context, repos uow.TransactionalRepositories, id uuid.UUID, kind partner.Kind) (*partner.Counterparty, error) {
	cp, err := repos.Counterparties().FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if cp.Kind != kind {
		return nil, shared.NewDomainError(shared.CodeCounterpartyMismatch,
			fmt.Sprintf("Counterparty %s is a %s, expected %s", cp.Code, cp.Kind, kind))
	}
	return cp, nil
}

// Adjust moves a locked counterparty's running balance and appends the
// audit entry. A zero delta writes nothing.
func Adjust(ctx context.Context, repos uow.TransactionalRepositories, cp *partner.Counterparty, delta decimal.Decimal, reason partner.BalanceReason, source partner.Source) error {
	entry := cp.Adjust(delta, reason, source)
	if entry == nil {
		return nil
	}
	if err := repos.Counterparties().Save(ctx, cp); err != nil {
		return fmt.Errorf("failed to save counterparty %s: %w", cp.Code, err)
	}
	if err := repos.BalanceEntries().Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record balance entry: %w", err)
	}
	return nil
}
