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

// ReturnStatus represents the lifecycle of a sale or purchase return
type ReturnStatus string

const (
	ReturnStatusDraft     ReturnStatus = "DRAFT"
	ReturnStatusConfirmed ReturnStatus = "CONFIRMED"
	ReturnStatusReturned  ReturnStatus = "RETURNED"
	ReturnStatusRefunded  ReturnStatus = "REFUNDED"
	ReturnStatusCredited  ReturnStatus = "CREDITED"
	ReturnStatusCancelled ReturnStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ReturnStatus
func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnStatusDraft, ReturnStatusConfirmed, ReturnStatusReturned,
		ReturnStatusRefunded, ReturnStatusCredited, ReturnStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ReturnStatus
func (s ReturnStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	switch s {
	case ReturnStatusDraft:
		return target == ReturnStatusConfirmed || target == ReturnStatusCancelled
	case ReturnStatusConfirmed:
		return target == ReturnStatusReturned || target == ReturnStatusCancelled
	case ReturnStatusReturned:
		return target == ReturnStatusRefunded || target == ReturnStatusCredited
	case ReturnStatusRefunded, ReturnStatusCredited, ReturnStatusCancelled:
		return false // Terminal states
	}
	return false
}

// IsActive reports whether a return in this status holds quantity against
// its invoice. Active returns block invoice cancellation.
func (s ReturnStatus) IsActive() bool {
	switch s {
	case ReturnStatusConfirmed, ReturnStatusReturned, ReturnStatusRefunded, ReturnStatusCredited:
		return true
	}
	return false
}

// Return is a sale return (goods back from a customer) or a purchase
// return (goods back to a supplier).
type Return struct {
	shared.BaseAggregateRoot
	Type           DocumentType
	Number         string
	Date           time.Time
	CounterpartyID uuid.UUID
	WarehouseID    uuid.UUID
	Currency       valueobject.Currency
	InvoiceID      *uuid.UUID
	Lines          []Line
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	RefundedAmount decimal.Decimal
	CreditedAmount decimal.Decimal
	Status         ReturnStatus
	PaymentStatus  PaymentStatus
	PostingID      *uuid.UUID
	RefundID       *uuid.UUID
	ReversalIDs    []uuid.UUID
	Reason         string
	ConfirmedAt    *time.Time
	ReturnedAt     *time.Time
	SettledAt      *time.Time
	CancelledAt    *time.Time
}

// NewSaleReturn creates a draft sale return
func NewSaleReturn(number string, date time.Time, customerID, warehouseID uuid.UUID, currency valueobject.Currency, invoiceID *uuid.UUID) (*Return, error) {
	return newReturn(DocumentTypeSaleReturn, number, date, customerID, warehouseID, currency, invoiceID)
}

// NewPurchaseReturn creates a draft purchase return
func NewPurchaseReturn(number string, date time.Time, supplierID, warehouseID uuid.UUID, currency valueobject.Currency, invoiceID *uuid.UUID) (*Return, error) {
	return newReturn(DocumentTypePurchaseReturn, number, date, supplierID, warehouseID, currency, invoiceID)
}

func newReturn(docType DocumentType, number string, date time.Time, counterpartyID, warehouseID uuid.UUID, currency valueobject.Currency, invoiceID *uuid.UUID) (*Return, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Return number cannot be empty")
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

	r := &Return{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              docType,
		Number:            number,
		Date:              date,
		CounterpartyID:    counterpartyID,
		WarehouseID:       warehouseID,
		Currency:          currency,
		InvoiceID:         invoiceID,
		Lines:             make([]Line, 0),
		Subtotal:          decimal.Zero,
		Tax:               decimal.Zero,
		Total:             decimal.Zero,
		RefundedAmount:    decimal.Zero,
		CreditedAmount:    decimal.Zero,
		Status:            ReturnStatusDraft,
		PaymentStatus:     PaymentStatusUnpaid,
		ReversalIDs:       make([]uuid.UUID, 0),
	}
	r.AddDomainEvent(NewReturnEvent(EventTypeReturnCreated, r, ""))
	return r, nil
}

// IsSale returns true for sale returns
func (r *Return) IsSale() bool {
	return r.Type == DocumentTypeSaleReturn
}

// InvoiceType is the type of invoice this return may reference
func (r *Return) InvoiceType() DocumentType {
	if r.IsSale() {
		return DocumentTypeSaleInvoice
	}
	return DocumentTypePurchaseInvoice
}

func (r *Return) transitionError(target ReturnStatus) error {
	return shared.NewDomainError(shared.CodeInvalidTransition,
		fmt.Sprintf("%s %s cannot move from %s to %s", r.Type, r.Number, r.Status, target))
}

func (r *Return) moveTo(target ReturnStatus, eventType string) error {
	if !r.Status.CanTransitionTo(target) {
		return r.transitionError(target)
	}
	from := r.Status
	r.Status = target
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewReturnEvent(eventType, r, from))
	return nil
}

// AddLine adds a returned product line. Returns always name their lot.
func (r *Return) AddLine(productID uuid.UUID, lotCode string, expiry *time.Time, qty, unitPrice decimal.Decimal) (*Line, error) {
	if r.Status != ReturnStatusDraft {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Cannot add lines to a non-draft return")
	}
	if strings.TrimSpace(lotCode) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Return lines must name a lot")
	}
	line, err := newLine(r.ID, len(r.Lines)+1, productID, lotCode, expiry, qty, unitPrice)
	if err != nil {
		return nil, err
	}
	r.Lines = append(r.Lines, *line)
	r.recalculateTotals()
	r.Touch()
	return line, nil
}

// SetTax sets the tax part of the return total
func (r *Return) SetTax(tax decimal.Decimal) error {
	if r.Status != ReturnStatusDraft {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot change tax on a non-draft return")
	}
	if tax.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Tax cannot be negative")
	}
	r.Tax = tax
	r.recalculateTotals()
	r.Touch()
	return nil
}

func (r *Return) recalculateTotals() {
	subtotal := decimal.Zero
	for _, l := range r.Lines {
		subtotal = subtotal.Add(l.Amount)
	}
	r.Subtotal = subtotal
	r.Total = subtotal.Add(r.Tax)
}

// QuantitiesByLot sums line quantities per product and lot
func (r *Return) QuantitiesByLot() map[ProductLot]decimal.Decimal {
	out := make(map[ProductLot]decimal.Decimal)
	for _, l := range r.Lines {
		key := ProductLot{ProductID: l.ProductID, LotCode: l.LotCode}
		out[key] = out[key].Add(l.Quantity)
	}
	return out
}

// Settled returns refunded plus credited
func (r *Return) Settled() decimal.Decimal {
	return r.RefundedAmount.Add(r.CreditedAmount)
}

// Refundable returns what is left to refund or credit
func (r *Return) Refundable() decimal.Decimal {
	left := r.Total.Sub(r.Settled())
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// Money wraps an amount in the return currency
func (r *Return) Money(amount decimal.Decimal) valueobject.Money {
	return valueobject.MustMoney(amount, r.Currency)
}

// IsConfirmedOrBeyond reports whether confirm has already happened
func (r *Return) IsConfirmedOrBeyond() bool {
	return r.Status != ReturnStatusDraft && r.Status != ReturnStatusCancelled
}

// Confirm moves a draft to CONFIRMED
func (r *Return) Confirm() error {
	if len(r.Lines) == 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Cannot confirm return without lines")
	}
	r.recalculateTotals()
	if !r.Total.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Return total must be positive")
	}
	if err := r.moveTo(ReturnStatusConfirmed, EventTypeReturnConfirmed); err != nil {
		return err
	}
	now := time.Now()
	r.ConfirmedAt = &now
	return nil
}

// AttachPosting records the credit-note transaction
func (r *Return) AttachPosting(transactionID uuid.UUID) {
	id := transactionID
	r.PostingID = &id
}

// AddReversal records a reversing transaction caused by this return
func (r *Return) AddReversal(transactionID uuid.UUID) {
	r.ReversalIDs = append(r.ReversalIDs, transactionID)
}

// EnsureCanReturn checks the RETURNED edge without changing anything
func (r *Return) EnsureCanReturn() error {
	if !r.Status.CanTransitionTo(ReturnStatusReturned) {
		return r.transitionError(ReturnStatusReturned)
	}
	return nil
}

// MarkReturned records that the goods have moved
func (r *Return) MarkReturned() error {
	if err := r.moveTo(ReturnStatusReturned, EventTypeReturnReturned); err != nil {
		return err
	}
	now := time.Now()
	r.ReturnedAt = &now
	return nil
}

// EnsureCanSettle checks that the return may be refunded or credited
func (r *Return) EnsureCanSettle(target ReturnStatus) error {
	if !r.Status.CanTransitionTo(target) {
		return r.transitionError(target)
	}
	return nil
}

// Refund settles the return in cash. It returns the amount refunded,
// which is whatever had not been settled yet.
func (r *Return) Refund(refundTransactionID *uuid.UUID) (decimal.Decimal, error) {
	amount := r.Refundable()
	if err := r.moveTo(ReturnStatusRefunded, EventTypeReturnRefunded); err != nil {
		return decimal.Zero, err
	}
	now := time.Now()
	r.RefundedAmount = r.RefundedAmount.Add(amount)
	r.RefundID = refundTransactionID
	r.PaymentStatus = ComputePaymentStatus(r.Settled(), r.Total)
	r.SettledAt = &now
	return amount, nil
}

// Credit settles the return as a non-cash credit
func (r *Return) Credit() error {
	amount := r.Refundable()
	if err := r.moveTo(ReturnStatusCredited, EventTypeReturnCredited); err != nil {
		return err
	}
	now := time.Now()
	r.CreditedAmount = r.CreditedAmount.Add(amount)
	r.PaymentStatus = ComputePaymentStatus(r.Settled(), r.Total)
	r.SettledAt = &now
	return nil
}

// Cancel discards a draft or withdraws a confirmed return. Undoing the
// confirm posting is the caller's job.
func (r *Return) Cancel(reason string) error {
	if err := r.moveTo(ReturnStatusCancelled, EventTypeReturnCancelled); err != nil {
		return err
	}
	now := time.Now()
	r.Reason = strings.TrimSpace(reason)
	r.CancelledAt = &now
	return nil
}
