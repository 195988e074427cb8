package ledger

import (
	"fmt"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AccountRole names the purpose an account plays in a posting template
type AccountRole string

const (
	RoleCash           AccountRole = "cash"
	RoleReceivable     AccountRole = "receivable"
	RolePayable        AccountRole = "payable"
	RoleSales          AccountRole = "sales"
	RolePurchase       AccountRole = "purchase"
	RoleSalesReturn    AccountRole = "sales_return"
	RolePurchaseReturn AccountRole = "purchase_return"
	RoleTaxPayable     AccountRole = "tax_payable"
	RoleTaxReceivable  AccountRole = "tax_receivable"
	RoleOpeningEquity  AccountRole = "opening_equity"
	RolePayrollExpense AccountRole = "payroll_expense"
	RolePayrollPayable AccountRole = "payroll_payable"
	RoleExpense        AccountRole = "expense"
)

// AmountKey names a figure supplied by the caller of a template
type AmountKey string

const (
	AmountPaid        AmountKey = "paid"
	AmountOutstanding AmountKey = "outstanding"
	AmountNet         AmountKey = "net"
	AmountTax         AmountKey = "tax"
	AmountBase        AmountKey = "base"
	AmountTotal       AmountKey = "amount"
)

// TemplateKind identifies a posting template
type TemplateKind string

const (
	TemplateSaleConfirm             TemplateKind = "sale.confirm"
	TemplatePurchaseConfirm         TemplateKind = "purchase.confirm"
	TemplateSaleReturnConfirm       TemplateKind = "sale_return.confirm"
	TemplateSaleReturnRefund        TemplateKind = "sale_return.refund"
	TemplatePurchaseReturnConfirm   TemplateKind = "purchase_return.confirm"
	TemplatePurchaseReturnRefund    TemplateKind = "purchase_return.refund"
	TemplateCustomerReceipt         TemplateKind = "receipt.customer"
	TemplateCustomerReceiptReversal TemplateKind = "receipt.customer_reversal"
	TemplateSupplierPayment         TemplateKind = "payment.supplier"
	TemplateSupplierPaymentReversal TemplateKind = "payment.supplier_reversal"
	TemplateOpeningReceivable       TemplateKind = "opening.receivable"
	TemplateOpeningPayable          TemplateKind = "opening.payable"
	TemplatePayrollAccrual          TemplateKind = "payroll.accrual"
	TemplatePayrollPayment          TemplateKind = "payroll.payment"
	TemplateExpensePost             TemplateKind = "expense.post"
)

// Rule is one row of a template: which account role receives which side
// of which caller-supplied amount.
type Rule struct {
	Role   AccountRole
	Side   Side
	Amount AmountKey
}

// Template is a posting policy expressed as data
type Template struct {
	Kind  TemplateKind
	Rules []Rule
}

func dr(role AccountRole, amount AmountKey) Rule {
	return Rule{Role: role, Side: SideDebit, Amount: amount}
}

func cr(role AccountRole, amount AmountKey) Rule {
	return Rule{Role: role, Side: SideCredit, Amount: amount}
}

// Templates is the posting policy table
var Templates = map[TemplateKind]Template{
	TemplateSaleConfirm: {Kind: TemplateSaleConfirm, Rules: []Rule{
		dr(RoleCash, AmountPaid),
		dr(RoleReceivable, AmountOutstanding),
		cr(RoleSales, AmountNet),
		cr(RoleTaxPayable, AmountTax),
	}},
	TemplatePurchaseConfirm: {Kind: TemplatePurchaseConfirm, Rules: []Rule{
		dr(RolePurchase, AmountNet),
		dr(RoleTaxReceivable, AmountTax),
		cr(RoleCash, AmountPaid),
		cr(RolePayable, AmountOutstanding),
	}},
	TemplateSaleReturnConfirm: {Kind: TemplateSaleReturnConfirm, Rules: []Rule{
		dr(RoleSalesReturn, AmountBase),
		dr(RoleTaxPayable, AmountTax),
		cr(RoleReceivable, AmountTotal),
	}},
	TemplateSaleReturnRefund: {Kind: TemplateSaleReturnRefund, Rules: []Rule{
		dr(RoleReceivable, AmountTotal),
		cr(RoleCash, AmountTotal),
	}},
	TemplatePurchaseReturnConfirm: {Kind: TemplatePurchaseReturnConfirm, Rules: []Rule{
		dr(RolePayable, AmountTotal),
		cr(RolePurchaseReturn, AmountTotal),
	}},
	TemplatePurchaseReturnRefund: {Kind: TemplatePurchaseReturnRefund, Rules: []Rule{
		dr(RoleCash, AmountTotal),
		cr(RolePayable, AmountTotal),
	}},
	TemplateCustomerReceipt: {Kind: TemplateCustomerReceipt, Rules: []Rule{
		dr(RoleCash, AmountTotal),
		cr(RoleReceivable, AmountTotal),
	}},
	TemplateCustomerReceiptReversal: {Kind: TemplateCustomerReceiptReversal, Rules: []Rule{
		dr(RoleReceivable, AmountTotal),
		cr(RoleCash, AmountTotal),
	}},
	TemplateSupplierPayment: {Kind: TemplateSupplierPayment, Rules: []Rule{
		dr(RolePayable, AmountTotal),
		cr(RoleCash, AmountTotal),
	}},
	TemplateSupplierPaymentReversal: {Kind: TemplateSupplierPaymentReversal, Rules: []Rule{
		dr(RoleCash, AmountTotal),
		cr(RolePayable, AmountTotal),
	}},
	TemplateOpeningReceivable: {Kind: TemplateOpeningReceivable, Rules: []Rule{
		dr(RoleReceivable, AmountTotal),
		cr(RoleOpeningEquity, AmountTotal),
	}},
	TemplateOpeningPayable: {Kind: TemplateOpeningPayable, Rules: []Rule{
		dr(RoleOpeningEquity, AmountTotal),
		cr(RolePayable, AmountTotal),
	}},
	TemplatePayrollAccrual: {Kind: TemplatePayrollAccrual, Rules: []Rule{
		dr(RolePayrollExpense, AmountTotal),
		cr(RolePayrollPayable, AmountTotal),
	}},
	TemplatePayrollPayment: {Kind: TemplatePayrollPayment, Rules: []Rule{
		dr(RolePayrollPayable, AmountTotal),
		cr(RoleCash, AmountTotal),
	}},
	TemplateExpensePost: {Kind: TemplateExpensePost, Rules: []Rule{
		dr(RoleExpense, AmountTotal),
		cr(RoleCash, AmountTotal),
	}},
}

// LookupTemplate returns the template registered under kind
func LookupTemplate(kind TemplateKind) (Template, error) {
	t, ok := Templates[kind]
	if !ok {
		return Template{}, shared.NewDomainError(shared.CodeInvalidInput, "Unknown posting template: "+string(kind))
	}
	return t, nil
}

// Bindings maps roles to concrete account IDs for one posting
type Bindings map[AccountRole]uuid.UUID

// With returns a copy of the bindings with role bound to accountID
func (b Bindings) With(role AccountRole, accountID uuid.UUID) Bindings {
	out := make(Bindings, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	out[role] = accountID
	return out
}

// Amounts maps template amount keys to values
type Amounts map[AmountKey]valueobject.Money

// Build expands the template into leg requests. Rules whose amount is
// absent or zero are skipped; a non-zero rule without a bound account is a
// configuration error.
func (t Template) Build(bindings Bindings, amounts Amounts) ([]LegSpec, error) {
	legs := make([]LegSpec, 0, len(t.Rules))
	for _, rule := range t.Rules {
		amount, ok := amounts[rule.Amount]
		if !ok || amount.IsZero() {
			continue
		}
		if amount.IsNegative() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("%s: amount %q cannot be negative", t.Kind, rule.Amount))
		}
		accountID := bindings[rule.Role]
		if accountID == uuid.Nil {
			return nil, shared.NewDomainError(shared.CodeAccountNotConfigured,
				fmt.Sprintf("%s: no account bound to role %q", t.Kind, rule.Role))
		}
		legs = append(legs, LegSpec{AccountID: accountID, Side: rule.Side, Amount: amount})
	}
	return legs, nil
}
