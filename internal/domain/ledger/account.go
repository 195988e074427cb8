package ledger

import (
	"strings"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AccountType classifies a chart-of-accounts node
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is known
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// Account is a node in the chart of accounts. Only leaf accounts receive
// legs; balances are always derived from legs.
type Account struct {
	shared.BaseAggregateRoot
	Code     string
	Name     string
	Type     AccountType
	ParentID *uuid.UUID
	Currency valueobject.Currency
	IsLeaf   bool
}

// NewAccount creates a leaf account
func NewAccount(code, name string, accountType AccountType, currency valueobject.Currency, parentID *uuid.UUID) (*Account, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account code cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account name cannot be empty")
	}
	if !accountType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid account type: "+string(accountType))
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid account currency: "+string(currency))
	}
	return &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              strings.TrimSpace(name),
		Type:              accountType,
		ParentID:          parentID,
		Currency:          currency,
		IsLeaf:            true,
	}, nil
}

// MarkAsParent records that the account has children and can no longer
// receive postings directly.
func (a *Account) MarkAsParent() {
	if !a.IsLeaf {
		return
	}
	a.IsLeaf = false
	a.Touch()
	a.IncrementVersion()
}

// CanPost reports whether a leg in the given currency may target this account
func (a *Account) CanPost(currency valueobject.Currency) error {
	if !a.IsLeaf {
		return shared.NewDomainError(shared.CodeInvalidAccount, "Account "+a.Code+" is not a leaf account")
	}
	if a.Currency != currency {
		return shared.NewDomainError(shared.CodeMixedCurrency,
			"Account "+a.Code+" is kept in "+a.Currency.String()+", leg is in "+currency.String())
	}
	return nil
}
