package partner

import (
	"context"

	"github.com/google/uuid"
)

// CounterpartyRepository persists customers and suppliers
type CounterpartyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Counterparty, error)
	// FindByIDForUpdate row-locks the counterparty for the rest of the unit
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Counterparty, error)
	FindByCode(ctx context.Context, code string) (*Counterparty, error)
	Save(ctx context.Context, c *Counterparty) error
}

// BalanceEntryRepository appends and reads balance audit rows
type BalanceEntryRepository interface {
	Create(ctx context.Context, entry *BalanceEntry) error
	FindByCounterparty(ctx context.Context, counterpartyID uuid.UUID) ([]BalanceEntry, error)
}
