package partner

import (
	"strings"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind distinguishes customers from suppliers
type Kind string

const (
	KindCustomer Kind = "CUSTOMER"
	KindSupplier Kind = "SUPPLIER"
)

// IsValid checks if the kind is known
func (k Kind) IsValid() bool {
	return k == KindCustomer || k == KindSupplier
}

// Counterparty is a customer or supplier with a dedicated ledger account.
// CurrentBalance is a running figure kept alongside the ledger: what the
// customer owes us, or what we owe the supplier.
type Counterparty struct {
	shared.BaseAggregateRoot
	Code           string
	Name           string
	Kind           Kind
	AccountID      uuid.UUID
	CurrentBalance decimal.Decimal
}

// NewCounterparty creates a counterparty bound to its ledger account
func NewCounterparty(code, name string, kind Kind, accountID uuid.UUID) (*Counterparty, error) {
	if err := validateCode(code); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Counterparty name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Counterparty name cannot exceed 200 characters")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Counterparty kind must be CUSTOMER or SUPPLIER")
	}
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeAccountNotConfigured, "Counterparty "+code+" has no ledger account")
	}

	return &Counterparty{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.TrimSpace(code),
		Name:              name,
		Kind:              kind,
		AccountID:         accountID,
		CurrentBalance:    decimal.Zero,
	}, nil
}

// IsCustomer returns true for customers
func (c *Counterparty) IsCustomer() bool {
	return c.Kind == KindCustomer
}

// IsSupplier returns true for suppliers
func (c *Counterparty) IsSupplier() bool {
	return c.Kind == KindSupplier
}

// Adjust moves the running balance by delta and returns the audit entry.
// A zero delta changes nothing and returns nil.
func (c *Counterparty) Adjust(delta decimal.Decimal, reason BalanceReason, source Source) *BalanceEntry {
	if delta.IsZero() {
		return nil
	}
	before := c.CurrentBalance
	c.CurrentBalance = before.Add(delta)
	c.Touch()
	c.IncrementVersion()

	entry := newBalanceEntry(c.ID, delta, before, c.CurrentBalance, reason, source)
	c.AddDomainEvent(NewBalanceChangedEvent(c, entry))
	return entry
}

func validateCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Counterparty code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Counterparty code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError(shared.CodeInvalidInput, "Counterparty code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}
