package ledger

import (
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// WarehouseAccounts are the default accounts a warehouse posts to.
// uuid.Nil means "not set".
type WarehouseAccounts struct {
	Cash           uuid.UUID
	Bank           uuid.UUID
	Sales          uuid.UUID
	Purchase       uuid.UUID
	SalesReturn    uuid.UUID
	PurchaseReturn uuid.UUID
}

// overlay returns w with every set field of o applied on top
func (w WarehouseAccounts) overlay(o WarehouseAccounts) WarehouseAccounts {
	pick := func(base, over uuid.UUID) uuid.UUID {
		if over != uuid.Nil {
			return over
		}
		return base
	}
	return WarehouseAccounts{
		Cash:           pick(w.Cash, o.Cash),
		Bank:           pick(w.Bank, o.Bank),
		Sales:          pick(w.Sales, o.Sales),
		Purchase:       pick(w.Purchase, o.Purchase),
		SalesReturn:    pick(w.SalesReturn, o.SalesReturn),
		PurchaseReturn: pick(w.PurchaseReturn, o.PurchaseReturn),
	}
}

// CashOrBank prefers the cash account and falls back to bank
func (w WarehouseAccounts) CashOrBank() uuid.UUID {
	if w.Cash != uuid.Nil {
		return w.Cash
	}
	return w.Bank
}

// AccountPlan is the resolved account configuration handed to services.
// It is built once at startup from configured account codes.
type AccountPlan struct {
	Currency       valueobject.Currency
	Defaults       WarehouseAccounts
	Warehouses     map[uuid.UUID]WarehouseAccounts
	TaxPayable     uuid.UUID
	TaxReceivable  uuid.UUID
	OpeningEquity  uuid.UUID
	PayrollExpense uuid.UUID
	PayrollPayable uuid.UUID
}

// ForWarehouse returns the defaults overlaid with the warehouse override
func (p *AccountPlan) ForWarehouse(warehouseID uuid.UUID) WarehouseAccounts {
	accounts := p.Defaults
	if override, ok := p.Warehouses[warehouseID]; ok {
		accounts = accounts.overlay(override)
	}
	return accounts
}

// Bindings returns the role bindings for postings made from a warehouse.
// Counterparty roles (receivable, payable) are bound by the caller.
func (p *AccountPlan) Bindings(warehouseID uuid.UUID) Bindings {
	w := p.ForWarehouse(warehouseID)

	salesReturn := w.SalesReturn
	if salesReturn == uuid.Nil {
		salesReturn = w.Sales
	}
	purchaseReturn := w.PurchaseReturn
	if purchaseReturn == uuid.Nil {
		purchaseReturn = w.Purchase
	}

	return Bindings{
		RoleCash:           w.CashOrBank(),
		RoleSales:          w.Sales,
		RolePurchase:       w.Purchase,
		RoleSalesReturn:    salesReturn,
		RolePurchaseReturn: purchaseReturn,
		RoleTaxPayable:     p.TaxPayable,
		RoleTaxReceivable:  p.TaxReceivable,
		RoleOpeningEquity:  p.OpeningEquity,
		RolePayrollExpense: p.PayrollExpense,
		RolePayrollPayable: p.PayrollPayable,
	}
}
