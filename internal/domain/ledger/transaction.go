package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the debit/credit side of a leg
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// IsValid checks if the side is known
func (s Side) IsValid() bool {
	return s == SideDebit || s == SideCredit
}

// Opposite returns the other side
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// LegSpec is a requested leg before it is validated into a transaction
type LegSpec struct {
	AccountID uuid.UUID
	Side      Side
	Amount    valueobject.Money
}

// Debit builds a debit leg request
func Debit(accountID uuid.UUID, amount valueobject.Money) LegSpec {
	return LegSpec{AccountID: accountID, Side: SideDebit, Amount: amount}
}

// Credit builds a credit leg request
func Credit(accountID uuid.UUID, amount valueobject.Money) LegSpec {
	return LegSpec{AccountID: accountID, Side: SideCredit, Amount: amount}
}

// Leg is one debit or credit entry within a transaction
type Leg struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	Side          Side
	Amount        decimal.Decimal
	LineNo        int
}

// Source identifies the document a transaction was posted for
type Source struct {
	Type string
	ID   uuid.UUID
}

// Transaction is a balanced set of legs. Once posted it is never mutated;
// a reversal produces a new transaction pointing back via ReversesID.
type Transaction struct {
	shared.BaseAggregateRoot
	Date        time.Time
	Description string
	Currency    valueobject.Currency
	Legs        []Leg
	Source      *Source
	ReversesID  *uuid.UUID
	// ReversedBy lists transactions that reverse this one. The ledger only
	// ever allows a single entry; it is modelled as a list so storage does
	// not silently overwrite an earlier reference.
	ReversedBy []uuid.UUID
}

// NewTransaction validates the requested legs and builds a transaction.
// It fails when there are no legs, when any amount is not positive, when
// the legs mix currencies, or when debits and credits differ.
func NewTransaction(date time.Time, description string, specs []LegSpec) (*Transaction, error) {
	if len(specs) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Transaction must have at least one leg")
	}

	currency := specs[0].Amount.Currency()
	debits := decimal.Zero
	credits := decimal.Zero

	txn := &Transaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Date:              date,
		Description:       strings.TrimSpace(description),
		Currency:          currency,
		Legs:              make([]Leg, 0, len(specs)),
	}

	for i, spec := range specs {
		if spec.AccountID == uuid.Nil {
			return nil, shared.NewDomainError(shared.CodeInvalidAccount, fmt.Sprintf("Leg %d has no account", i+1))
		}
		if !spec.Side.IsValid() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Leg %d has invalid side %q", i+1, spec.Side))
		}
		if spec.Amount.Currency() != currency {
			return nil, shared.NewDomainError(shared.CodeMixedCurrency,
				fmt.Sprintf("Leg %d is in %s, transaction is in %s", i+1, spec.Amount.Currency(), currency))
		}
		if !spec.Amount.IsPositive() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Leg %d amount must be positive", i+1))
		}

		if spec.Side == SideDebit {
			debits = debits.Add(spec.Amount.Amount())
		} else {
			credits = credits.Add(spec.Amount.Amount())
		}

		txn.Legs = append(txn.Legs, Leg{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			AccountID:     spec.AccountID,
			Side:          spec.Side,
			Amount:        spec.Amount.Amount(),
			LineNo:        i + 1,
		})
	}

	if !debits.Equal(credits) {
		return nil, shared.NewDomainError(shared.CodeUnbalancedEntry,
			fmt.Sprintf("Debits %s do not equal credits %s", debits.String(), credits.String()))
	}

	txn.AddDomainEvent(NewTransactionPostedEvent(txn))
	return txn, nil
}

// WithSource tags the transaction with the document that produced it
func (t *Transaction) WithSource(sourceType string, sourceID uuid.UUID) *Transaction {
	t.Source = &Source{Type: sourceType, ID: sourceID}
	return t
}

// TotalDebit sums debit legs
func (t *Transaction) TotalDebit() decimal.Decimal {
	return t.sum(SideDebit)
}

// TotalCredit sums credit legs
func (t *Transaction) TotalCredit() decimal.Decimal {
	return t.sum(SideCredit)
}

func (t *Transaction) sum(side Side) decimal.Decimal {
	total := decimal.Zero
	for _, leg := range t.Legs {
		if leg.Side == side {
			total = total.Add(leg.Amount)
		}
	}
	return total
}

// IsBalanced reports whether debits equal credits
func (t *Transaction) IsBalanced() bool {
	return len(t.Legs) > 0 && t.TotalDebit().Equal(t.TotalCredit())
}

// IsReversal reports whether this transaction reverses another
func (t *Transaction) IsReversal() bool {
	return t.ReversesID != nil
}

// IsReversed reports whether a reversal of this transaction exists
func (t *Transaction) IsReversed() bool {
	return len(t.ReversedBy) > 0
}

// AccountIDs returns the distinct accounts touched by the transaction
func (t *Transaction) AccountIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(t.Legs))
	ids := make([]uuid.UUID, 0, len(t.Legs))
	for _, leg := range t.Legs {
		if _, ok := seen[leg.AccountID]; ok {
			continue
		}
		seen[leg.AccountID] = struct{}{}
		ids = append(ids, leg.AccountID)
	}
	return ids
}

// Reverse builds the mirror-image transaction: every leg flipped, same
// accounts and amounts. It refuses to reverse a reversal or a transaction
// that already has one.
func (t *Transaction) Reverse(at time.Time, memo string) (*Transaction, error) {
	if t.IsReversal() {
		return nil, shared.NewDomainError(shared.CodeAlreadyReversed, "Transaction "+t.ID.String()+" is itself a reversal")
	}
	if t.IsReversed() {
		return nil, shared.NewDomainError(shared.CodeAlreadyReversed, "Transaction "+t.ID.String()+" has already been reversed")
	}

	if strings.TrimSpace(memo) == "" {
		memo = "Reversal of " + t.Description
	}

	specs := make([]LegSpec, 0, len(t.Legs))
	for _, leg := range t.Legs {
		specs = append(specs, LegSpec{
			AccountID: leg.AccountID,
			Side:      leg.Side.Opposite(),
			Amount:    valueobject.MustMoney(leg.Amount, t.Currency),
		})
	}

	reversal, err := NewTransaction(at, memo, specs)
	if err != nil {
		return nil, err
	}
	originalID := t.ID
	reversal.ReversesID = &originalID
	reversal.Source = t.Source
	reversal.ClearDomainEvents()
	reversal.AddDomainEvent(NewTransactionReversedEvent(t.ID, reversal.ID))

	t.ReversedBy = append(t.ReversedBy, reversal.ID)
	return reversal, nil
}
