package trade

import (
	"fmt"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ValidateAgainstInvoice checks that a return may be raised against an
// invoice: same counterparty and warehouse, a matching invoice kind, and
// no product/lot returned beyond what was delivered or received less what
// other active returns already claim.
func (r *Return) ValidateAgainstInvoice(inv *Invoice, others []Return) error {
	if inv.Type != r.InvoiceType() {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("%s cannot reference a %s", r.Type, inv.Type))
	}
	if inv.CounterpartyID != r.CounterpartyID {
		return shared.NewDomainError(shared.CodeCounterpartyMismatch,
			fmt.Sprintf("Return %s and invoice %s belong to different counterparties", r.Number, inv.Number))
	}
	if inv.WarehouseID != r.WarehouseID {
		return shared.NewDomainError(shared.CodeCounterpartyMismatch,
			fmt.Sprintf("Return %s and invoice %s use different warehouses", r.Number, inv.Number))
	}
	if !inv.IsPosted() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Invoice %s is %s", inv.Number, inv.Status))
	}

	returnable := inv.FulfilledByLot()
	for _, other := range others {
		if other.ID == r.ID || !other.Status.IsActive() {
			continue
		}
		for key, q := range other.QuantitiesByLot() {
			returnable[key] = returnable[key].Sub(q)
		}
	}

	for key, requested := range r.QuantitiesByLot() {
		left := returnable[key]
		if left.IsNegative() {
			left = decimal.Zero
		}
		if requested.GreaterThan(left) {
			return shared.NewDomainError(shared.CodeExceedsReturnable,
				fmt.Sprintf("Lot %s: requested %s, returnable %s", key.LotCode, requested.String(), left.String()))
		}
	}
	return nil
}

// HasActiveReturns reports whether any return blocks cancelling its invoice
func HasActiveReturns(returns []Return) bool {
	for _, r := range returns {
		if r.Status.IsActive() {
			return true
		}
	}
	return false
}
