package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusConfirmed InvoiceStatus = "CONFIRMED"
	InvoiceStatusDelivered InvoiceStatus = "DELIVERED"
	InvoiceStatusReceived  InvoiceStatus = "RECEIVED"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusConfirmed, InvoiceStatusDelivered, InvoiceStatusReceived, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// FulfillmentProgress summarises delivery or receipt of an invoice
type FulfillmentProgress string

const (
	FulfillmentNone    FulfillmentProgress = "NONE"
	FulfillmentPartial FulfillmentProgress = "PARTIAL"
	FulfillmentFull    FulfillmentProgress = "FULL"
)

// Invoice is a sale or purchase invoice. The two kinds share one state
// machine; they differ in their completed status (DELIVERED vs RECEIVED)
// and in the direction their stock and postings flow.
type Invoice struct {
	shared.BaseAggregateRoot
	Type           DocumentType
	Number         string
	Date           time.Time
	CounterpartyID uuid.UUID
	WarehouseID    uuid.UUID
	Currency       valueobject.Currency
	Lines          []Line
	Fulfillments   []Fulfillment
	Subtotal       decimal.Decimal
	Discount       decimal.Decimal
	Tax            decimal.Decimal
	GrandTotal     decimal.Decimal
	PaidAmount     decimal.Decimal
	CreditedAmount decimal.Decimal
	Status         InvoiceStatus
	PaymentStatus  PaymentStatus
	PostingID      *uuid.UUID
	ReversalIDs    []uuid.UUID
	Remark         string
	CancelReason   string
	ConfirmedAt    *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
}

// NewSaleInvoice creates a draft sale invoice
func NewSaleInvoice(number string, date time.Time, customerID, warehouseID uuid.UUID, currency valueobject.Currency) (*Invoice, error) {
	return newInvoice(DocumentTypeSaleInvoice, number, date, customerID, warehouseID, currency)
}

// NewPurchaseInvoice creates a draft purchase invoice
func NewPurchaseInvoice(number string, date time.Time, supplierID, warehouseID uuid.UUID, currency valueobject.Currency) (*Invoice, error) {
	return newInvoice(DocumentTypePurchaseInvoice, number, date, supplierID, warehouseID, currency)
}

func newInvoice(docType DocumentType, number string, date time.Time, counterpartyID, warehouseID uuid.UUID, currency valueobject.Currency) (*Invoice, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invoice number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invoice number cannot exceed 50 characters")
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Counterparty ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Warehouse ID cannot be empty")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid currency: "+string(currency))
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              docType,
		Number:            number,
		Date:              date,
		CounterpartyID:    counterpartyID,
		WarehouseID:       warehouseID,
		Currency:          currency,
		Lines:             make([]Line, 0),
		Fulfillments:      make([]Fulfillment, 0),
		Subtotal:          decimal.Zero,
		Discount:          decimal.Zero,
		Tax:               decimal.Zero,
		GrandTotal:        decimal.Zero,
		PaidAmount:        decimal.Zero,
		CreditedAmount:    decimal.Zero,
		Status:            InvoiceStatusDraft,
		PaymentStatus:     PaymentStatusUnpaid,
		ReversalIDs:       make([]uuid.UUID, 0),
	}
	inv.AddDomainEvent(NewInvoiceEvent(EventTypeInvoiceCreated, inv, ""))
	return inv, nil
}

// IsSale returns true for sale invoices
func (i *Invoice) IsSale() bool {
	return i.Type == DocumentTypeSaleInvoice
}

// CompletedStatus is DELIVERED for sales and RECEIVED for purchases
func (i *Invoice) CompletedStatus() InvoiceStatus {
	if i.IsSale() {
		return InvoiceStatusDelivered
	}
	return InvoiceStatusReceived
}

// canTransitionTo encodes the invoice graph:
// DRAFT->CONFIRMED->completed, CONFIRMED|completed->CANCELLED
func (i *Invoice) canTransitionTo(target InvoiceStatus) bool {
	switch i.Status {
	case InvoiceStatusDraft:
		return target == InvoiceStatusConfirmed
	case InvoiceStatusConfirmed:
		return target == i.CompletedStatus() || target == InvoiceStatusCancelled
	case InvoiceStatusDelivered, InvoiceStatusReceived:
		return target == InvoiceStatusCancelled
	}
	return false
}

func (i *Invoice) transitionError(target InvoiceStatus) error {
	return shared.NewDomainError(shared.CodeInvalidTransition,
		fmt.Sprintf("%s %s cannot move from %s to %s", i.Type, i.Number, i.Status, target))
}

// IsPosted reports whether the invoice has reached CONFIRMED or beyond
func (i *Invoice) IsPosted() bool {
	return i.Status == InvoiceStatusConfirmed || i.Status == i.CompletedStatus()
}

// IsCancelled returns true if the invoice is cancelled
func (i *Invoice) IsCancelled() bool {
	return i.Status == InvoiceStatusCancelled
}

// AddLine adds a product line. Only allowed in DRAFT status.
func (i *Invoice) AddLine(productID uuid.UUID, lotCode string, expiry *time.Time, qty, unitPrice decimal.Decimal) (*Line, error) {
	if i.Status != InvoiceStatusDraft {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Cannot add lines to a non-draft invoice")
	}
	line, err := newLine(i.ID, len(i.Lines)+1, productID, lotCode, expiry, qty, unitPrice)
	if err != nil {
		return nil, err
	}
	i.Lines = append(i.Lines, *line)
	i.recalculateTotals()
	i.Touch()
	return line, nil
}

// SetDiscount sets the invoice-level discount. Only allowed in DRAFT status.
func (i *Invoice) SetDiscount(discount decimal.Decimal) error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot change discount on a non-draft invoice")
	}
	if discount.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Discount cannot be negative")
	}
	i.Discount = discount
	i.recalculateTotals()
	i.Touch()
	return nil
}

// SetTax sets the tax amount. Tax rates are the caller's concern.
func (i *Invoice) SetTax(tax decimal.Decimal) error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot change tax on a non-draft invoice")
	}
	if tax.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Tax cannot be negative")
	}
	i.Tax = tax
	i.recalculateTotals()
	i.Touch()
	return nil
}

func (i *Invoice) recalculateTotals() {
	subtotal := decimal.Zero
	for _, l := range i.Lines {
		subtotal = subtotal.Add(l.Amount)
	}
	i.Subtotal = subtotal
	i.GrandTotal = subtotal.Sub(i.Discount).Add(i.Tax)
}

// NetAmount is subtotal less discount, the revenue or cost figure posted
func (i *Invoice) NetAmount() decimal.Decimal {
	return i.Subtotal.Sub(i.Discount)
}

// Settled returns paid plus credited
func (i *Invoice) Settled() decimal.Decimal {
	return i.PaidAmount.Add(i.CreditedAmount)
}

// Outstanding returns max(grand - paid - credited, 0). Cancelled invoices
// owe nothing.
func (i *Invoice) Outstanding() decimal.Decimal {
	if i.IsCancelled() {
		return decimal.Zero
	}
	out := i.GrandTotal.Sub(i.Settled())
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// Money wraps an amount in the invoice currency
func (i *Invoice) Money(amount decimal.Decimal) valueobject.Money {
	return valueobject.MustMoney(amount, i.Currency)
}

// Confirm moves a draft to CONFIRMED after recomputing totals
func (i *Invoice) Confirm() error {
	if !i.canTransitionTo(InvoiceStatusConfirmed) {
		return i.transitionError(InvoiceStatusConfirmed)
	}
	if len(i.Lines) == 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Cannot confirm invoice without lines")
	}
	i.recalculateTotals()
	if i.Discount.GreaterThan(i.Subtotal) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Discount cannot exceed subtotal")
	}
	if !i.GrandTotal.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Invoice grand total must be positive")
	}

	now := time.Now()
	from := i.Status
	i.Status = InvoiceStatusConfirmed
	i.PaymentStatus = ComputePaymentStatus(i.Settled(), i.GrandTotal)
	i.ConfirmedAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceEvent(EventTypeInvoiceConfirmed, i, from))
	return nil
}

// AttachPosting records the primary ledger transaction
func (i *Invoice) AttachPosting(transactionID uuid.UUID) {
	id := transactionID
	i.PostingID = &id
}

// AddReversal records a reversing transaction caused by this invoice
func (i *Invoice) AddReversal(transactionID uuid.UUID) {
	i.ReversalIDs = append(i.ReversalIDs, transactionID)
}

// Line returns the line with the given ID
func (i *Invoice) Line(lineID uuid.UUID) *Line {
	for idx := range i.Lines {
		if i.Lines[idx].ID == lineID {
			return &i.Lines[idx]
		}
	}
	return nil
}

// ValidateFulfillment checks a delivery or receipt request against the
// line's remaining quantity without changing anything.
func (i *Invoice) ValidateFulfillment(req LineRequest) (*Line, error) {
	if i.Status != InvoiceStatusConfirmed {
		return nil, i.transitionError(i.CompletedStatus())
	}
	line := i.Line(req.LineID)
	if line == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Invoice line not found: "+req.LineID.String())
	}
	if !req.Quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	if req.Quantity.GreaterThan(line.Remaining()) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Line %d has %s remaining, requested %s", line.LineNo, line.Remaining().String(), req.Quantity.String()))
	}
	return line, nil
}

// RecordFulfillment books qty of a lot against a line
func (i *Invoice) RecordFulfillment(lineID uuid.UUID, lotCode string, qty decimal.Decimal) error {
	line := i.Line(lineID)
	if line == nil {
		return shared.NewDomainError(shared.CodeNotFound, "Invoice line not found: "+lineID.String())
	}
	if qty.GreaterThan(line.Remaining()) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Fulfilled quantity cannot exceed line quantity")
	}
	line.FulfilledQty = line.FulfilledQty.Add(qty)
	i.Fulfillments = append(i.Fulfillments, Fulfillment{
		ID:         uuid.New(),
		DocumentID: i.ID,
		LineID:     lineID,
		ProductID:  line.ProductID,
		LotCode:    lotCode,
		Quantity:   qty,
		CreatedAt:  time.Now(),
	})
	i.Touch()
	return nil
}

// Progress reports how much of the invoice has been delivered or received
func (i *Invoice) Progress() FulfillmentProgress {
	started, all := false, len(i.Lines) > 0
	for idx := range i.Lines {
		if i.Lines[idx].FulfilledQty.IsPositive() {
			started = true
		}
		if !i.Lines[idx].IsFulfilled() {
			all = false
		}
	}
	switch {
	case all:
		return FulfillmentFull
	case started:
		return FulfillmentPartial
	default:
		return FulfillmentNone
	}
}

// CompleteIfFulfilled moves the invoice to its completed status once every
// line is fully fulfilled. It reports whether the status changed.
func (i *Invoice) CompleteIfFulfilled() bool {
	if i.Progress() != FulfillmentFull || !i.canTransitionTo(i.CompletedStatus()) {
		return false
	}
	now := time.Now()
	from := i.Status
	i.Status = i.CompletedStatus()
	i.CompletedAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoiceEvent(EventTypeInvoiceCompleted, i, from))
	return true
}

// FulfilledByLot sums fulfilled quantities per product and lot
func (i *Invoice) FulfilledByLot() map[ProductLot]decimal.Decimal {
	out := make(map[ProductLot]decimal.Decimal)
	for _, f := range i.Fulfillments {
		key := ProductLot{ProductID: f.ProductID, LotCode: f.LotCode}
		out[key] = out[key].Add(f.Quantity)
	}
	return out
}

func (i *Invoice) ensureSettleable() error {
	if !i.IsPosted() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("%s %s cannot be settled in %s status", i.Type, i.Number, i.Status))
	}
	return nil
}

// ApplyPayment records an allocated receipt or payment
func (i *Invoice) ApplyPayment(amount decimal.Decimal) error {
	if err := i.checkSettlement(amount); err != nil {
		return err
	}
	i.PaidAmount = i.PaidAmount.Add(amount)
	i.PaymentStatus = ComputePaymentStatus(i.Settled(), i.GrandTotal)
	i.Touch()
	i.IncrementVersion()
	return nil
}

// ApplyCredit records a non-cash credit against the invoice
func (i *Invoice) ApplyCredit(amount decimal.Decimal) error {
	if err := i.checkSettlement(amount); err != nil {
		return err
	}
	i.CreditedAmount = i.CreditedAmount.Add(amount)
	i.PaymentStatus = ComputePaymentStatus(i.Settled(), i.GrandTotal)
	i.Touch()
	i.IncrementVersion()
	return nil
}

func (i *Invoice) checkSettlement(amount decimal.Decimal) error {
	if err := i.ensureSettleable(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Amount must be positive")
	}
	if amount.GreaterThan(i.Outstanding()) {
		return shared.NewDomainError(shared.CodeExceedsOutstanding,
			fmt.Sprintf("Amount %s exceeds outstanding %s on %s", amount.String(), i.Outstanding().String(), i.Number))
	}
	return nil
}

// EnsureCancellable checks the CANCELLED edge without changing anything
func (i *Invoice) EnsureCancellable() error {
	if !i.canTransitionTo(InvoiceStatusCancelled) {
		return i.transitionError(InvoiceStatusCancelled)
	}
	return nil
}

// Cancel moves the invoice to CANCELLED and clears its settlement figures.
// Stock, allocations and postings are unwound by the caller first.
func (i *Invoice) Cancel(reason string) error {
	if err := i.EnsureCancellable(); err != nil {
		return err
	}
	now := time.Now()
	from := i.Status
	i.Status = InvoiceStatusCancelled
	i.CancelReason = strings.TrimSpace(reason)
	i.PaidAmount = decimal.Zero
	i.CreditedAmount = decimal.Zero
	i.PaymentStatus = PaymentStatusUnpaid
	i.CancelledAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoiceEvent(EventTypeInvoiceCancelled, i, from))
	return nil
}
