// Package hr accrues and pays payroll slips through the ledger.
package hr

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledgerflow/internal/application/event"
	appledger "github.com/erp/ledgerflow/internal/application/ledger"
	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/hr"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/erp/ledgerflow/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const slipPrefix = "PSLIP"

const sourceTypePayroll = "payroll_slip"

// CreateSlipInput creates a draft payroll slip
type CreateSlipInput struct {
	EmployeeID   uuid.UUID
	EmployeeName string
	// Period is the month, YYYY-MM
	Period      string
	WarehouseID uuid.UUID
	BaseSalary  decimal.Decimal
	// Currency defaults to the account plan currency
	Currency   valueobject.Currency
	Attendance hr.Attendance
	Deductions decimal.Decimal
	Accounts   hr.AccountOverrides
}

// PayrollService drives payroll slips: accrual on confirm, payment on pay
type PayrollService struct {
	scope      uow.TransactionScope
	engine     *appledger.Engine
	plan       *ledger.AccountPlan
	dispatcher *event.Dispatcher
	logger     *zap.Logger
}

// NewPayrollService creates a new PayrollService
func NewPayrollService(
	scope uow.TransactionScope,
	engine *appledger.Engine,
	plan *ledger.AccountPlan,
	dispatcher *event.Dispatcher,
	logger *zap.Logger,
) *PayrollService {
	return &PayrollService{
		scope:      scope,
		engine:     engine,
		plan:       plan,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Create stores a draft slip. An employee gets at most one live slip per
// month.
func (s *PayrollService) Create(ctx context.Context, in CreateSlipInput) (*hr.PayrollSlip, error) {
	currency := in.Currency
	if currency == "" {
		currency = s.plan.Currency
	}
	base, err := valueobject.NewMoney(in.BaseSalary, currency)
	if err != nil {
		return nil, err
	}
	period, err := hr.NormalizePeriod(in.Period)
	if err != nil {
		return nil, err
	}

	var slip *hr.PayrollSlip
	err = s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		exists, err := repos.PayrollSlips().ExistsForPeriod(ctx, in.EmployeeID, period)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("Employee %s already has a payroll slip for %s", in.EmployeeID, period))
		}

		number, err := uow.NextNumber(ctx, repos.Sequences(), slipPrefix)
		if err != nil {
			return err
		}
		slip, err = hr.NewPayrollSlip(number, in.EmployeeID, in.EmployeeName, period, in.WarehouseID, base, in.Attendance, in.Deductions)
		if err != nil {
			return err
		}
		if err := slip.SetAccountOverrides(in.Accounts); err != nil {
			return err
		}
		return repos.PayrollSlips().Save(ctx, slip)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payroll slip created",
		zap.String("number", slip.Number),
		zap.String("period", slip.Period),
		zap.String("net_salary", slip.NetSalary.String()),
	)
	s.dispatcher.Dispatch(ctx, slip)
	return slip, nil
}

// Get returns a payroll slip
func (s *PayrollService) Get(ctx context.Context, id uuid.UUID) (*hr.PayrollSlip, error) {
	var slip *hr.PayrollSlip
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		found, err := repos.PayrollSlips().FindByID(ctx, id)
		slip = found
		return err
	})
	return slip, err
}

// Confirm posts the accrual for the net salary. A slip that already has an
// accrual is returned unchanged.
func (s *PayrollService) Confirm(ctx context.Context, id uuid.UUID) (*hr.PayrollSlip, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payroll", "confirm",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()))
	defer span.End()

	var slip *hr.PayrollSlip
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		slip, err = repos.PayrollSlips().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if slip.PostingID != nil {
			return nil
		}
		if err := slip.Confirm(); err != nil {
			return err
		}
		txn, err := s.post(ctx, repos, slip, ledger.TemplatePayrollAccrual, "Payroll accrual")
		if err != nil {
			return err
		}
		slip.AttachPosting(txn.ID)
		return repos.PayrollSlips().Save(ctx, slip)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("payroll slip confirmed", zap.String("number", slip.Number))
	s.dispatcher.Dispatch(ctx, slip)
	return slip, nil
}

// Pay posts the salary payment out of the payment account
func (s *PayrollService) Pay(ctx context.Context, id uuid.UUID) (*hr.PayrollSlip, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payroll", "pay",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()))
	defer span.End()

	var slip *hr.PayrollSlip
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		slip, err = repos.PayrollSlips().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !slip.Status.CanTransitionTo(hr.SlipStatusPaid) {
			return shared.NewDomainError(shared.CodeInvalidTransition,
				fmt.Sprintf("Cannot pay payroll slip %s in %s status", slip.Number, slip.Status))
		}
		txn, err := s.post(ctx, repos, slip, ledger.TemplatePayrollPayment, "Payroll payment")
		if err != nil {
			return err
		}
		if err := slip.MarkPaid(txn.ID); err != nil {
			return err
		}
		return repos.PayrollSlips().Save(ctx, slip)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("payroll slip paid", zap.String("number", slip.Number))
	s.dispatcher.Dispatch(ctx, slip)
	return slip, nil
}

// Cancel withdraws a draft or confirmed slip, reversing the accrual of a
// confirmed one
func (s *PayrollService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*hr.PayrollSlip, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payroll", "cancel",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()))
	defer span.End()

	var slip *hr.PayrollSlip
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		slip, err = repos.PayrollSlips().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if slip.Status == hr.SlipStatusCancelled {
			return nil
		}
		if !slip.Status.CanTransitionTo(hr.SlipStatusCancelled) {
			return shared.NewDomainError(shared.CodeInvalidTransition,
				fmt.Sprintf("Cannot cancel payroll slip %s in %s status", slip.Number, slip.Status))
		}
		if slip.PostingID != nil {
			txn, err := s.engine.Reverse(ctx, repos, *slip.PostingID, "Cancel "+slip.Number)
			if err != nil {
				return err
			}
			slip.AddReversal(txn.ID)
		}
		if err := slip.Cancel(reason); err != nil {
			return err
		}
		return repos.PayrollSlips().Save(ctx, slip)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("payroll slip cancelled", zap.String("number", slip.Number))
	s.dispatcher.Dispatch(ctx, slip)
	return slip, nil
}

func (s *PayrollService) post(ctx context.Context, repos uow.TransactionalRepositories, slip *hr.PayrollSlip, kind ledger.TemplateKind, what string) (*ledger.Transaction, error) {
	return s.engine.PostTemplate(ctx, repos, appledger.TemplateRequest{
		Kind:        kind,
		Date:        time.Now(),
		Description: fmt.Sprintf("%s %s %s %s", what, slip.Number, slip.EmployeeName, slip.Period),
		Source:      &ledger.Source{Type: sourceTypePayroll, ID: slip.ID},
		Bindings:    slip.Bindings(s.plan.Bindings(slip.WarehouseID)),
		Amounts:     ledger.Amounts{ledger.AmountTotal: slip.Net()},
	})
}
