package trade

import (
	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/google/uuid"
)

var numberPrefixes = map[trade.DocumentType]string{
	trade.DocumentTypeSaleInvoice:     "SINV",
	trade.DocumentTypePurchaseInvoice: "PINV",
	trade.DocumentTypeSaleReturn:      "SRET",
	trade.DocumentTypePurchaseReturn:  "PRET",
}

func isSaleSide(docType trade.DocumentType) bool {
	return docType == trade.DocumentTypeSaleInvoice || docType == trade.DocumentTypeSaleReturn
}

// counterpartyKind is the kind of counterparty a document is raised for
func counterpartyKind(docType trade.DocumentType) partner.Kind {
	if isSaleSide(docType) {
		return partner.KindCustomer
	}
	return partner.KindSupplier
}

// counterpartyRole is the template role the counterparty's account binds to
func counterpartyRole(docType trade.DocumentType) ledger.AccountRole {
	if isSaleSide(docType) {
		return ledger.RoleReceivable
	}
	return ledger.RolePayable
}

func postingSource(docType trade.DocumentType, id uuid.UUID) *ledger.Source {
	return &ledger.Source{Type: docType.String(), ID: id}
}

func stockSource(docType trade.DocumentType, id uuid.UUID) inventory.SourceRef {
	return inventory.SourceRef{Type: docType.String(), ID: id}
}

func balanceSource(docType trade.DocumentType, id uuid.UUID) partner.Source {
	return partner.Source{Type: docType.String(), ID: id}
}

// bindingsFor returns the plan bindings for the document's warehouse with
// the counterparty's own account bound in
func bindingsFor(plan *ledger.AccountPlan, docType trade.DocumentType, warehouseID uuid.UUID, cp *partner.Counterparty) ledger.Bindings {
	return plan.Bindings(warehouseID).With(counterpartyRole(docType), cp.AccountID)
}
