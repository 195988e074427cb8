package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// WarehouseCodes are account codes for one warehouse. Empty means unset.
type WarehouseCodes struct {
	Cash           string
	Bank           string
	Sales          string
	Purchase       string
	SalesReturn    string
	PurchaseReturn string
}

// PlanCodes is the account plan as configured, by account code
type PlanCodes struct {
	Currency       string
	Defaults       WarehouseCodes
	Warehouses     map[string]WarehouseCodes
	TaxPayable     string
	TaxReceivable  string
	OpeningEquity  string
	PayrollExpense string
	PayrollPayable string
}

// ResolveAccountPlan looks every configured code up once and returns the
// plan services post against. An unknown code is a configuration error.
func ResolveAccountPlan(ctx context.Context, accounts ledger.AccountRepository, codes PlanCodes) (*ledger.AccountPlan, error) {
	currency, err := valueobject.ParseCurrency(codes.Currency)
	if err != nil {
		return nil, err
	}
	r := &resolver{ctx: ctx, accounts: accounts}

	plan := &ledger.AccountPlan{
		Currency:       currency,
		Defaults:       r.warehouse(codes.Defaults),
		Warehouses:     make(map[uuid.UUID]ledger.WarehouseAccounts, len(codes.Warehouses)),
		TaxPayable:     r.code(codes.TaxPayable),
		TaxReceivable:  r.code(codes.TaxReceivable),
		OpeningEquity:  r.code(codes.OpeningEquity),
		PayrollExpense: r.code(codes.PayrollExpense),
		PayrollPayable: r.code(codes.PayrollPayable),
	}
	for key, wc := range codes.Warehouses {
		warehouseID, err := uuid.Parse(key)
		if err != nil {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid warehouse ID in account plan: "+key)
		}
		plan.Warehouses[warehouseID] = r.warehouse(wc)
	}
	if r.err != nil {
		return nil, r.err
	}
	return plan, nil
}

// resolver keeps the first lookup error so the plan reads as one block
type resolver struct {
	ctx      context.Context
	accounts ledger.AccountRepository
	err      error
}

func (r *resolver) code(code string) uuid.UUID {
	if code == "" || r.err != nil {
		return uuid.Nil
	}
	account, err := r.accounts.FindByCode(r.ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			r.err = shared.NewDomainError(shared.CodeAccountNotConfigured, "Account code "+code+" does not exist")
		} else {
			r.err = fmt.Errorf("failed to resolve account %s: %w", code, err)
		}
		return uuid.Nil
	}
	return account.ID
}

func (r *resolver) warehouse(wc WarehouseCodes) ledger.WarehouseAccounts {
	return ledger.WarehouseAccounts{
		Cash:           r.code(wc.Cash),
		Bank:           r.code(wc.Bank),
		Sales:          r.code(wc.Sales),
		Purchase:       r.code(wc.Purchase),
		SalesReturn:    r.code(wc.SalesReturn),
		PurchaseReturn: r.code(wc.PurchaseReturn),
	}
}
