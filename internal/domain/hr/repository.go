package hr

import (
	"context"

	"github.com/google/uuid"
)

// PayrollSlipRepository persists payroll slips
type PayrollSlipRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PayrollSlip, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PayrollSlip, error)
	// ExistsForPeriod reports whether a non-cancelled slip exists for the
	// employee and month
	ExistsForPeriod(ctx context.Context, employeeID uuid.UUID, period string) (bool, error)
	Save(ctx context.Context, slip *PayrollSlip) error
}
