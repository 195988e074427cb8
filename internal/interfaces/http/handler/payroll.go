package handler

import (
	"context"

	hrapp "github.com/erp/ledgerflow/internal/application/hr"
	"github.com/erp/ledgerflow/internal/domain/hr"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePayrollSlipRequest creates a draft payroll slip
type CreatePayrollSlipRequest struct {
	EmployeeID   uuid.UUID       `json:"employee_id" binding:"required"`
	EmployeeName string          `json:"employee_name" binding:"required,max=128"`
	Period       string          `json:"period" binding:"required,datetime=2006-01"`
	WarehouseID  uuid.UUID       `json:"warehouse_id" binding:"required"`
	BaseSalary   decimal.Decimal `json:"base_salary" binding:"gt=0"`
	Currency     string          `json:"currency" binding:"omitempty,len=3"`
	PresentDays  int             `json:"present_days" binding:"gte=0"`
	AbsentDays   int             `json:"absent_days" binding:"gte=0"`
	LeavesPaid   int             `json:"leaves_paid" binding:"gte=0"`
	Deductions   decimal.Decimal `json:"deductions" binding:"gte=0"`
	// Optional account overrides; zero means the account plan default
	ExpenseAccountID uuid.UUID `json:"expense_account_id"`
	PayableAccountID uuid.UUID `json:"payable_account_id"`
	PaymentAccountID uuid.UUID `json:"payment_account_id"`
}

// PayrollSlipResponse represents a payroll slip
type PayrollSlipResponse struct {
	ID               string          `json:"id"`
	Number           string          `json:"number"`
	EmployeeID       string          `json:"employee_id"`
	EmployeeName     string          `json:"employee_name"`
	Period           string          `json:"period"`
	WarehouseID      string          `json:"warehouse_id"`
	Currency         string          `json:"currency"`
	BaseSalary       decimal.Decimal `json:"base_salary"`
	PresentDays      int             `json:"present_days"`
	AbsentDays       int             `json:"absent_days"`
	LeavesPaid       int             `json:"leaves_paid"`
	Deductions       decimal.Decimal `json:"deductions"`
	NetSalary        decimal.Decimal `json:"net_salary"`
	Status           string          `json:"status"`
	PostingID        string          `json:"posting_id,omitempty"`
	PaymentPostingID string          `json:"payment_posting_id,omitempty"`
	ReversalIDs      []string        `json:"reversal_ids,omitempty"`
	CancelReason     string          `json:"cancel_reason,omitempty"`
}

func toPayrollSlipResponse(s *hr.PayrollSlip) PayrollSlipResponse {
	return PayrollSlipResponse{
		ID:               s.ID.String(),
		Number:           s.Number,
		EmployeeID:       s.EmployeeID.String(),
		EmployeeName:     s.EmployeeName,
		Period:           s.Period,
		WarehouseID:      s.WarehouseID.String(),
		Currency:         s.Currency.String(),
		BaseSalary:       s.BaseSalary,
		PresentDays:      s.Attendance.PresentDays,
		AbsentDays:       s.Attendance.AbsentDays,
		LeavesPaid:       s.Attendance.LeavesPaid,
		Deductions:       s.Deductions,
		NetSalary:        s.NetSalary,
		Status:           string(s.Status),
		PostingID:        optionalUUID(s.PostingID),
		PaymentPostingID: optionalUUID(s.PaymentPostingID),
		ReversalIDs:      uuidStrings(s.ReversalIDs),
		CancelReason:     s.CancelReason,
	}
}

// PayrollHandler handles payroll slips
type PayrollHandler struct {
	BaseHandler
	service *hrapp.PayrollService
}

// NewPayrollHandler creates a new PayrollHandler
func NewPayrollHandler(service *hrapp.PayrollService) *PayrollHandler {
	return &PayrollHandler{service: service}
}

// RegisterRoutes registers the payroll routes
func (h *PayrollHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/payroll-slips")
	g.POST("", h.Create)
	g.GET("/:id", h.step(h.service.Get))
	g.POST("/:id/confirm", h.step(h.service.Confirm))
	g.POST("/:id/pay", h.step(h.service.Pay))
	g.POST("/:id/cancel", h.Cancel)
}

// Create creates a draft slip
func (h *PayrollHandler) Create(c *gin.Context) {
	var req CreatePayrollSlipRequest
	if !h.BindJSON(c, &req) {
		return
	}
	currency, ok := h.parseCurrency(c, req.Currency)
	if !ok {
		return
	}

	slip, err := h.service.Create(c.Request.Context(), hrapp.CreateSlipInput{
		EmployeeID:   req.EmployeeID,
		EmployeeName: req.EmployeeName,
		Period:       req.Period,
		WarehouseID:  req.WarehouseID,
		BaseSalary:   req.BaseSalary,
		Currency:     currency,
		Attendance: hr.Attendance{
			PresentDays: req.PresentDays,
			AbsentDays:  req.AbsentDays,
			LeavesPaid:  req.LeavesPaid,
		},
		Deductions: req.Deductions,
		Accounts: hr.AccountOverrides{
			Expense: req.ExpenseAccountID,
			Payable: req.PayableAccountID,
			Payment: req.PaymentAccountID,
		},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toPayrollSlipResponse(slip))
}

func (h *PayrollHandler) step(fn func(context.Context, uuid.UUID) (*hr.PayrollSlip, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.parseID(c)
		if !ok {
			return
		}

		slip, err := fn(c.Request.Context(), id)
		if err != nil {
			h.HandleError(c, err)
			return
		}

		h.Success(c, toPayrollSlipResponse(slip))
	}
}

// Cancel reverses whatever the slip posted
func (h *PayrollHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req CancelRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	slip, err := h.service.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPayrollSlipResponse(slip))
}
