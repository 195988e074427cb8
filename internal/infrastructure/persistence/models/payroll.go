package models

import (
	"time"

	"github.com/erp/ledgerflow/internal/domain/hr"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayrollSlipModel is the persistence model for a monthly salary slip.
type PayrollSlipModel struct {
	AggregateModel
	Number           string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	EmployeeID       uuid.UUID            `gorm:"type:uuid;not null;index:idx_payroll_employee_period,priority:1"`
	EmployeeName     string               `gorm:"type:varchar(200)"`
	Period           string               `gorm:"type:varchar(7);not null;index:idx_payroll_employee_period,priority:2"`
	WarehouseID      uuid.UUID            `gorm:"type:uuid;not null"`
	Currency         valueobject.Currency `gorm:"type:varchar(3);not null"`
	BaseSalary       decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PresentDays      int                  `gorm:"not null;default:0"`
	AbsentDays       int                  `gorm:"not null;default:0"`
	LeavesPaid       int                  `gorm:"not null;default:0"`
	Deductions       decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	NetSalary        decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	ExpenseAccountID uuid.UUID            `gorm:"type:uuid"`
	PayableAccountID uuid.UUID            `gorm:"type:uuid"`
	PaymentAccountID uuid.UUID            `gorm:"type:uuid"`
	Status           hr.SlipStatus        `gorm:"type:varchar(20);not null;index"`
	PostingID        *uuid.UUID           `gorm:"type:uuid"`
	PaymentPostingID *uuid.UUID           `gorm:"type:uuid"`
	ReversalIDs      UUIDList             `gorm:"type:text;serializer:json"`
	CancelReason     string               `gorm:"type:varchar(500)"`
	ConfirmedAt      *time.Time
	PaidAt           *time.Time
	CancelledAt      *time.Time
}

// TableName returns the table name for GORM
func (PayrollSlipModel) TableName() string {
	return "payroll_slips"
}

// ToDomain converts the persistence model to a domain PayrollSlip.
func (m *PayrollSlipModel) ToDomain() *hr.PayrollSlip {
	return &hr.PayrollSlip{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Number:            m.Number,
		EmployeeID:        m.EmployeeID,
		EmployeeName:      m.EmployeeName,
		Period:            m.Period,
		WarehouseID:       m.WarehouseID,
		Currency:          m.Currency,
		BaseSalary:        m.BaseSalary,
		Attendance: hr.Attendance{
			PresentDays: m.PresentDays,
			AbsentDays:  m.AbsentDays,
			LeavesPaid:  m.LeavesPaid,
		},
		Deductions: m.Deductions,
		NetSalary:  m.NetSalary,
		Accounts: hr.AccountOverrides{
			Expense: m.ExpenseAccountID,
			Payable: m.PayableAccountID,
			Payment: m.PaymentAccountID,
		},
		Status:           m.Status,
		PostingID:        m.PostingID,
		PaymentPostingID: m.PaymentPostingID,
		ReversalIDs:      m.ReversalIDs.Clone(),
		CancelReason:     m.CancelReason,
		ConfirmedAt:      m.ConfirmedAt,
		PaidAt:           m.PaidAt,
		CancelledAt:      m.CancelledAt,
	}
}

// PayrollSlipModelFromDomain creates a persistence model from a domain PayrollSlip.
func PayrollSlipModelFromDomain(s *hr.PayrollSlip) *PayrollSlipModel {
	m := &PayrollSlipModel{
		Number:           s.Number,
		EmployeeID:       s.EmployeeID,
		EmployeeName:     s.EmployeeName,
		Period:           s.Period,
		WarehouseID:      s.WarehouseID,
		Currency:         s.Currency,
		BaseSalary:       s.BaseSalary,
		PresentDays:      s.Attendance.PresentDays,
		AbsentDays:       s.Attendance.AbsentDays,
		LeavesPaid:       s.Attendance.LeavesPaid,
		Deductions:       s.Deductions,
		NetSalary:        s.NetSalary,
		ExpenseAccountID: s.Accounts.Expense,
		PayableAccountID: s.Accounts.Payable,
		PaymentAccountID: s.Accounts.Payment,
		Status:           s.Status,
		PostingID:        s.PostingID,
		PaymentPostingID: s.PaymentPostingID,
		ReversalIDs:      UUIDList(s.ReversalIDs).Clone(),
		CancelReason:     s.CancelReason,
		ConfirmedAt:      s.ConfirmedAt,
		PaidAt:           s.PaidAt,
		CancelledAt:      s.CancelledAt,
	}
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	return m
}
