package hr

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SlipStatus represents the status of a payroll slip
type SlipStatus string

const (
	SlipStatusDraft     SlipStatus = "DRAFT"
	SlipStatusConfirmed SlipStatus = "CONFIRMED"
	SlipStatusPaid      SlipStatus = "PAID"
	SlipStatusCancelled SlipStatus = "CANCELLED"
)

// IsValid checks if the status is a known value
func (s SlipStatus) IsValid() bool {
	switch s {
	case SlipStatusDraft, SlipStatusConfirmed, SlipStatusPaid, SlipStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s SlipStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the slip graph has an edge to target
func (s SlipStatus) CanTransitionTo(target SlipStatus) bool {
	switch s {
	case SlipStatusDraft:
		return target == SlipStatusConfirmed || target == SlipStatusCancelled
	case SlipStatusConfirmed:
		return target == SlipStatusPaid || target == SlipStatusCancelled
	}
	return false
}

// PeriodLayout is the format of a payroll month, e.g. "2025-01"
const PeriodLayout = "2006-01"

// Attendance holds the figures the net salary is computed from
type Attendance struct {
	PresentDays int
	AbsentDays  int
	LeavesPaid  int
}

// Validate checks the attendance figures
func (a Attendance) Validate() error {
	if a.PresentDays < 0 || a.AbsentDays < 0 || a.LeavesPaid < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Attendance days cannot be negative")
	}
	if a.PresentDays+a.AbsentDays == 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Attendance must cover at least one day")
	}
	return nil
}

// UnpaidDays are absences not covered by paid leave
func (a Attendance) UnpaidDays() int {
	unpaid := a.AbsentDays - a.LeavesPaid
	if unpaid < 0 {
		return 0
	}
	return unpaid
}

// ComputeNetSalary applies the per-day absence deduction and flat
// deductions to the base salary, rounded to two places.
func ComputeNetSalary(base decimal.Decimal, att Attendance, deductions decimal.Decimal) (decimal.Decimal, error) {
	if err := att.Validate(); err != nil {
		return decimal.Zero, err
	}
	if base.IsNegative() || deductions.IsNegative() {
		return decimal.Zero, shared.NewDomainError(shared.CodeInvalidInput, "Salary figures cannot be negative")
	}
	days := decimal.NewFromInt(int64(att.PresentDays + att.AbsentDays))
	perDay := base.Div(days)
	unpaid := perDay.Mul(decimal.NewFromInt(int64(att.UnpaidDays())))
	net := base.Sub(unpaid).Sub(deductions).Round(2)
	if !net.IsPositive() {
		return decimal.Zero, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Net salary must be positive, got %s", net.String()))
	}
	return net, nil
}

// AccountOverrides replace plan accounts for a single slip. uuid.Nil keeps
// the plan account.
type AccountOverrides struct {
	Expense uuid.UUID
	Payable uuid.UUID
	Payment uuid.UUID
}

// PayrollSlip is one employee's salary for one month
type PayrollSlip struct {
	shared.BaseAggregateRoot
	Number           string
	EmployeeID       uuid.UUID
	EmployeeName     string
	Period           string
	WarehouseID      uuid.UUID
	Currency         valueobject.Currency
	BaseSalary       decimal.Decimal
	Attendance       Attendance
	Deductions       decimal.Decimal
	NetSalary        decimal.Decimal
	Accounts         AccountOverrides
	Status           SlipStatus
	PostingID        *uuid.UUID
	PaymentPostingID *uuid.UUID
	ReversalIDs      []uuid.UUID
	CancelReason     string
	ConfirmedAt      *time.Time
	PaidAt           *time.Time
	CancelledAt      *time.Time
}

// NewPayrollSlip creates a draft slip and computes its net salary
func NewPayrollSlip(number string, employeeID uuid.UUID, employeeName, period string, warehouseID uuid.UUID,
	base valueobject.Money, att Attendance, deductions decimal.Decimal) (*PayrollSlip, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Slip number cannot be empty")
	}
	if employeeID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Employee ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Warehouse ID cannot be empty")
	}
	period, err := NormalizePeriod(period)
	if err != nil {
		return nil, err
	}
	net, err := ComputeNetSalary(base.Amount(), att, deductions)
	if err != nil {
		return nil, err
	}

	slip := &PayrollSlip{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		EmployeeID:        employeeID,
		EmployeeName:      strings.TrimSpace(employeeName),
		Period:            period,
		WarehouseID:       warehouseID,
		Currency:          base.Currency(),
		BaseSalary:        base.Amount(),
		Attendance:        att,
		Deductions:        deductions,
		NetSalary:         net,
		Status:            SlipStatusDraft,
		ReversalIDs:       make([]uuid.UUID, 0),
	}
	slip.AddDomainEvent(NewSlipEvent(EventTypeSlipCreated, slip, ""))
	return slip, nil
}

// NormalizePeriod parses a YYYY-MM month and returns it canonicalised
func NormalizePeriod(period string) (string, error) {
	t, err := time.Parse(PeriodLayout, strings.TrimSpace(period))
	if err != nil {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Payroll period must be YYYY-MM: "+period)
	}
	return t.Format(PeriodLayout), nil
}

// Net returns the net salary as money
func (p *PayrollSlip) Net() valueobject.Money {
	return valueobject.MustMoney(p.NetSalary, p.Currency)
}

// SetAccountOverrides sets per-slip accounts. Only drafts may change.
func (p *PayrollSlip) SetAccountOverrides(o AccountOverrides) error {
	if p.Status != SlipStatusDraft {
		return shared.NewDomainError(shared.CodeInvalidState, "Accounts can only be changed on a draft slip")
	}
	p.Accounts = o
	p.Touch()
	return nil
}

// Bindings applies the slip's overrides on top of the plan bindings
func (p *PayrollSlip) Bindings(plan ledger.Bindings) ledger.Bindings {
	b := plan
	if p.Accounts.Expense != uuid.Nil {
		b = b.With(ledger.RolePayrollExpense, p.Accounts.Expense)
	}
	if p.Accounts.Payable != uuid.Nil {
		b = b.With(ledger.RolePayrollPayable, p.Accounts.Payable)
	}
	if p.Accounts.Payment != uuid.Nil {
		b = b.With(ledger.RoleCash, p.Accounts.Payment)
	}
	return b
}

func (p *PayrollSlip) moveTo(target SlipStatus, eventType string) error {
	if !p.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot move payroll slip %s from %s to %s", p.Number, p.Status, target))
	}
	from := p.Status
	p.Status = target
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewSlipEvent(eventType, p, from))
	return nil
}

// Confirm accrues the slip. The caller posts the accrual and attaches it.
func (p *PayrollSlip) Confirm() error {
	if err := p.moveTo(SlipStatusConfirmed, EventTypeSlipConfirmed); err != nil {
		return err
	}
	now := time.Now()
	p.ConfirmedAt = &now
	return nil
}

// AttachPosting records the accrual transaction
func (p *PayrollSlip) AttachPosting(transactionID uuid.UUID) {
	id := transactionID
	p.PostingID = &id
}

// MarkPaid records the payment transaction
func (p *PayrollSlip) MarkPaid(paymentTransactionID uuid.UUID) error {
	if err := p.moveTo(SlipStatusPaid, EventTypeSlipPaid); err != nil {
		return err
	}
	id := paymentTransactionID
	now := time.Now()
	p.PaymentPostingID = &id
	p.PaidAt = &now
	return nil
}

// AddReversal appends a reversal transaction reference
func (p *PayrollSlip) AddReversal(transactionID uuid.UUID) {
	p.ReversalIDs = append(p.ReversalIDs, transactionID)
}

// Cancel moves a draft or confirmed slip to CANCELLED. Reversing a
// confirmed slip's accrual is the caller's job.
func (p *PayrollSlip) Cancel(reason string) error {
	if err := p.moveTo(SlipStatusCancelled, EventTypeSlipCancelled); err != nil {
		return err
	}
	now := time.Now()
	p.CancelReason = reason
	p.CancelledAt = &now
	return nil
}
