package hr_test

import (
	"context"
	"testing"

	apphr "github.com/erp/ledgerflow/internal/application/hr"
	"github.com/erp/ledgerflow/internal/domain/hr"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slipInput(h *testutil.Harness, employee uuid.UUID, period string) apphr.CreateSlipInput {
	return apphr.CreateSlipInput{
		EmployeeID:   employee,
		EmployeeName: "Ada",
		Period:       period,
		WarehouseID:  h.WarehouseID,
		BaseSalary:   testutil.Dec("3000"),
		Attendance:   hr.Attendance{PresentDays: 28, AbsentDays: 2, LeavesPaid: 1},
		Deductions:   testutil.Dec("50"),
	}
}

func TestPayrollService_Lifecycle(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	slip, err := h.Payroll.Create(ctx, slipInput(h, uuid.New(), "2025-01"))
	require.NoError(t, err)
	assert.Equal(t, hr.SlipStatusDraft, slip.Status)
	// one unpaid day of thirty: 3000 - 100 - 50
	assert.True(t, testutil.Dec("2850").Equal(slip.NetSalary), "net %s", slip.NetSalary)

	_, err = h.Payroll.Pay(ctx, slip.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition, "drafts cannot be paid")

	confirmed, err := h.Payroll.Confirm(ctx, slip.ID)
	require.NoError(t, err)
	assert.Equal(t, hr.SlipStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.PostingID)
	assert.Equal(t, "2850.00", h.Balance(t, testutil.PayrollExpenseCode))
	assert.Equal(t, "-2850.00", h.Balance(t, testutil.PayrollPayableCode))

	again, err := h.Payroll.Confirm(ctx, slip.ID)
	require.NoError(t, err)
	assert.Equal(t, *confirmed.PostingID, *again.PostingID)

	paid, err := h.Payroll.Pay(ctx, slip.ID)
	require.NoError(t, err)
	assert.Equal(t, hr.SlipStatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentPostingID)
	assert.Equal(t, "0.00", h.Balance(t, testutil.PayrollPayableCode))
	assert.Equal(t, "-2850.00", h.Balance(t, testutil.CashCode))

	_, err = h.Payroll.Cancel(ctx, slip.ID, "too late")
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)

	assert.Equal(t, 1, h.Events.Count(hr.EventTypeSlipPaid))
}

func TestPayrollService_OneSlipPerPeriod(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()
	employee := uuid.New()

	slip, err := h.Payroll.Create(ctx, slipInput(h, employee, "2025-02"))
	require.NoError(t, err)

	_, err = h.Payroll.Create(ctx, slipInput(h, employee, "2025-02"))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	_, err = h.Payroll.Create(ctx, slipInput(h, uuid.New(), "2025-02"))
	require.NoError(t, err, "another employee")

	_, err = h.Payroll.Cancel(ctx, slip.ID, "duplicate")
	require.NoError(t, err)
	_, err = h.Payroll.Create(ctx, slipInput(h, employee, "2025-02"))
	require.NoError(t, err, "a cancelled slip frees the period")
}

func TestPayrollService_CancelConfirmedReversesAccrual(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	slip, err := h.Payroll.Create(ctx, slipInput(h, uuid.New(), "2025-03"))
	require.NoError(t, err)
	_, err = h.Payroll.Confirm(ctx, slip.ID)
	require.NoError(t, err)

	cancelled, err := h.Payroll.Cancel(ctx, slip.ID, "left the company")
	require.NoError(t, err)
	assert.Equal(t, hr.SlipStatusCancelled, cancelled.Status)
	assert.Len(t, cancelled.ReversalIDs, 1)
	assert.Equal(t, "0.00", h.Balance(t, testutil.PayrollExpenseCode))
	assert.Equal(t, "0.00", h.Balance(t, testutil.PayrollPayableCode))

	again, err := h.Payroll.Cancel(ctx, slip.ID, "again")
	require.NoError(t, err)
	assert.Len(t, again.ReversalIDs, 1)
}

func TestPayrollService_AccountOverrides(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	in := slipInput(h, uuid.New(), "2025-04")
	in.Accounts = hr.AccountOverrides{Payment: h.Account(testutil.BankCode).ID}
	slip, err := h.Payroll.Create(ctx, in)
	require.NoError(t, err)

	_, err = h.Payroll.Confirm(ctx, slip.ID)
	require.NoError(t, err)
	_, err = h.Payroll.Pay(ctx, slip.ID)
	require.NoError(t, err)

	assert.Equal(t, "-2850.00", h.Balance(t, testutil.BankCode))
	assert.Equal(t, "0.00", h.Balance(t, testutil.CashCode))
}

func TestPayrollService_CreateValidation(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	bad := slipInput(h, uuid.New(), "2025-13")
	_, err := h.Payroll.Create(ctx, bad)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	bad = slipInput(h, uuid.New(), "2025-05")
	bad.Attendance = hr.Attendance{}
	_, err = h.Payroll.Create(ctx, bad)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	bad = slipInput(h, uuid.New(), "2025-05")
	bad.Deductions = testutil.Dec("5000")
	_, err = h.Payroll.Create(ctx, bad)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
