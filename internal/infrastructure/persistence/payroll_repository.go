package persistence

import (
	"context"

	"github.com/erp/ledgerflow/internal/domain/hr"
	"github.com/erp/ledgerflow/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPayrollSlipRepository implements hr.PayrollSlipRepository using GORM
type GormPayrollSlipRepository struct {
	db *gorm.DB
}

// NewGormPayrollSlipRepository creates a new GormPayrollSlipRepository
func NewGormPayrollSlipRepository(db *gorm.DB) *GormPayrollSlipRepository {
	return &GormPayrollSlipRepository{db: db}
}

// FindByID finds a payroll slip by its ID
func (r *GormPayrollSlipRepository) FindByID(ctx context.Context, id uuid.UUID) (*hr.PayrollSlip, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a payroll slip and locks its row
func (r *GormPayrollSlipRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*hr.PayrollSlip, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormPayrollSlipRepository) find(q *gorm.DB, id uuid.UUID) (*hr.PayrollSlip, error) {
	var model models.PayrollSlipModel
	if err := q.First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// ExistsForPeriod reports whether a non-cancelled slip exists for the
// employee and month
func (r *GormPayrollSlipRepository) ExistsForPeriod(ctx context.Context, employeeID uuid.UUID, period string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PayrollSlipModel{}).
		Where("employee_id = ? AND period = ? AND status <> ?", employeeID, period, hr.SlipStatusCancelled).
		Count(&count).Error; err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// Save creates or updates a payroll slip
func (r *GormPayrollSlipRepository) Save(ctx context.Context, slip *hr.PayrollSlip) error {
	return translateError(r.db.WithContext(ctx).Save(models.PayrollSlipModelFromDomain(slip)).Error)
}

var _ hr.PayrollSlipRepository = (*GormPayrollSlipRepository)(nil)
