package hr

import (
	"errors"
	"testing"

	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestSlip(t *testing.T) *PayrollSlip {
	t.Helper()
	base := valueobject.MustMoney(decimal.NewFromInt(30000), valueobject.PKR)
	slip, err := NewPayrollSlip("PSLIP-1", uuid.New(), "Ayesha", "2025-01", uuid.New(),
		base, Attendance{PresentDays: 28, AbsentDays: 2, LeavesPaid: 1}, decimal.NewFromInt(500))
	require.NoError(t, err)
	return slip
}

func TestComputeNetSalary(t *testing.T) {
	tests := []struct {
		name       string
		base       int64
		att        Attendance
		deductions int64
		want       string
		wantErr    error
	}{
		{"no absences", 30000, Attendance{PresentDays: 30}, 0, "30000", nil},
		{"unpaid absence", 30000, Attendance{PresentDays: 28, AbsentDays: 2, LeavesPaid: 1}, 500, "28500", nil},
		{"leave covers absence", 30000, Attendance{PresentDays: 29, AbsentDays: 1, LeavesPaid: 3}, 0, "30000", nil},
		{"rounds to cents", 10000, Attendance{PresentDays: 29, AbsentDays: 2}, 0, "9354.84", nil},
		{"zero days", 30000, Attendance{}, 0, "", shared.ErrInvalidInput},
		{"negative days", 30000, Attendance{PresentDays: -1, AbsentDays: 3}, 0, "", shared.ErrInvalidInput},
		{"deductions wipe out salary", 1000, Attendance{PresentDays: 30}, 1000, "", shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, err := ComputeNetSalary(decimal.NewFromInt(tt.base), tt.att, decimal.NewFromInt(tt.deductions))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, net.String())
		})
	}
}

func TestNormalizePeriod(t *testing.T) {
	p, err := NormalizePeriod(" 2025-03 ")
	require.NoError(t, err)
	assert.Equal(t, "2025-03", p)

	_, err = NormalizePeriod("March 2025")
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestPayrollSlip_Lifecycle(t *testing.T) {
	t.Run("confirm then pay", func(t *testing.T) {
		slip := createTestSlip(t)
		assert.Equal(t, "28500", slip.NetSalary.String())

		require.NoError(t, slip.Confirm())
		assert.Equal(t, SlipStatusConfirmed, slip.Status)
		assert.NotNil(t, slip.ConfirmedAt)

		paymentID := uuid.New()
		require.NoError(t, slip.MarkPaid(paymentID))
		assert.Equal(t, SlipStatusPaid, slip.Status)
		assert.Equal(t, paymentID, *slip.PaymentPostingID)

		assert.True(t, errors.Is(slip.Cancel("late"), shared.ErrInvalidTransition))
	})

	t.Run("pay requires confirm", func(t *testing.T) {
		slip := createTestSlip(t)
		assert.True(t, errors.Is(slip.MarkPaid(uuid.New()), shared.ErrInvalidTransition))
	})

	t.Run("cancel confirmed", func(t *testing.T) {
		slip := createTestSlip(t)
		require.NoError(t, slip.Confirm())
		require.NoError(t, slip.Cancel("duplicate"))
		assert.Equal(t, SlipStatusCancelled, slip.Status)
		assert.Equal(t, "duplicate", slip.CancelReason)
	})
}

func TestPayrollSlip_Bindings(t *testing.T) {
	planExpense, planPayable, planCash := uuid.New(), uuid.New(), uuid.New()
	plan := ledger.Bindings{
		ledger.RolePayrollExpense: planExpense,
		ledger.RolePayrollPayable: planPayable,
		ledger.RoleCash:           planCash,
	}

	slip := createTestSlip(t)
	b := slip.Bindings(plan)
	assert.Equal(t, planExpense, b[ledger.RolePayrollExpense])

	override := uuid.New()
	require.NoError(t, slip.SetAccountOverrides(AccountOverrides{Payment: override}))
	b = slip.Bindings(plan)
	assert.Equal(t, override, b[ledger.RoleCash])
	assert.Equal(t, planPayable, b[ledger.RolePayrollPayable])
	assert.Equal(t, planCash, plan[ledger.RoleCash])

	require.NoError(t, slip.Confirm())
	assert.True(t, errors.Is(slip.SetAccountOverrides(AccountOverrides{}), shared.ErrInvalidState))
}
