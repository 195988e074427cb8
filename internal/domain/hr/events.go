package hr

import (
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateTypePayrollSlip = "PayrollSlip"

const (
	EventTypeSlipCreated   = "PayrollSlipCreated"
	EventTypeSlipConfirmed = "PayrollSlipConfirmed"
	EventTypeSlipPaid      = "PayrollSlipPaid"
	EventTypeSlipCancelled = "PayrollSlipCancelled"
)

// SlipEvent carries a payroll slip status change
type SlipEvent struct {
	shared.BaseDomainEvent
	Number     string          `json:"number"`
	EmployeeID uuid.UUID       `json:"employee_id"`
	Period     string          `json:"period"`
	NetSalary  decimal.Decimal `json:"net_salary"`
	FromStatus SlipStatus      `json:"from_status,omitempty"`
	ToStatus   SlipStatus      `json:"to_status"`
}

// NewSlipEvent creates a SlipEvent of the given type
func NewSlipEvent(eventType string, p *PayrollSlip, from SlipStatus) *SlipEvent {
	return &SlipEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypePayrollSlip, p.ID),
		Number:          p.Number,
		EmployeeID:      p.EmployeeID,
		Period:          p.Period,
		NetSalary:       p.NetSalary,
		FromStatus:      from,
		ToStatus:        p.Status,
	}
}
