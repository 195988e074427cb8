package handler

import (
	"context"

	financeapp "github.com/erp/ledgerflow/internal/application/finance"
	"github.com/erp/ledgerflow/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateExpenseCategoryRequest creates an expense category
type CreateExpenseCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	AccountCode string `json:"account_code" binding:"required,max=50"`
}

// ExpenseCategoryResponse represents an expense category
type ExpenseCategoryResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ExpenseAccountID string `json:"expense_account_id"`
}

// CreateExpenseRequest creates a draft expense
type CreateExpenseRequest struct {
	CategoryID  uuid.UUID       `json:"category_id" binding:"required"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	Date        string          `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Amount      decimal.Decimal `json:"amount" binding:"gte=0"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	Description string          `json:"description" binding:"max=2000"`
	// Zero means the warehouse cash-or-bank account
	PaymentAccountID uuid.UUID `json:"payment_account_id"`
}

// ExpenseResponse represents an expense
type ExpenseResponse struct {
	ID               string          `json:"id"`
	Number           string          `json:"number"`
	Date             string          `json:"date"`
	CategoryID       string          `json:"category_id"`
	WarehouseID      string          `json:"warehouse_id,omitempty"`
	Description      string          `json:"description,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	PaymentAccountID string          `json:"payment_account_id,omitempty"`
	ExpenseAccountID string          `json:"expense_account_id,omitempty"`
	Status           string          `json:"status"`
	PostingID        string          `json:"posting_id,omitempty"`
	ReversalID       string          `json:"reversal_id,omitempty"`
	CancelReason     string          `json:"cancel_reason,omitempty"`
	Version          int             `json:"version"`
}

func toExpenseResponse(e *finance.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:               e.ID.String(),
		Number:           e.Number,
		Date:             e.Date.Format(dateLayout),
		CategoryID:       e.CategoryID.String(),
		WarehouseID:      nonNilUUID(e.WarehouseID),
		Description:      e.Description,
		Amount:           e.Amount,
		Currency:         e.Currency.String(),
		PaymentAccountID: nonNilUUID(e.PaymentAccountID),
		ExpenseAccountID: nonNilUUID(e.ExpenseAccountID),
		Status:           e.Status.String(),
		PostingID:        optionalUUID(e.PostingID),
		ReversalID:       optionalUUID(e.ReversalID),
		CancelReason:     e.CancelReason,
		Version:          e.Version,
	}
}

func nonNilUUID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// ExpenseHandler handles expenses and their categories
type ExpenseHandler struct {
	BaseHandler
	service *financeapp.ExpenseService
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(service *financeapp.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{service: service}
}

// RegisterRoutes registers the expense routes
func (h *ExpenseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/expense-categories", h.CreateCategory)

	g := rg.Group("/expenses")
	g.POST("", h.Create)
	g.GET("/:id", h.step(h.service.Get))
	g.POST("/:id/post", h.step(h.service.Post))
	g.POST("/:id/cancel", h.Cancel)
}

// CreateCategory creates a category charging an expense account
func (h *ExpenseHandler) CreateCategory(c *gin.Context) {
	var req CreateExpenseCategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	category, err := h.service.CreateCategory(c.Request.Context(), financeapp.CreateCategoryInput{
		Name:        req.Name,
		AccountCode: req.AccountCode,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, ExpenseCategoryResponse{
		ID:               category.ID.String(),
		Name:             category.Name,
		ExpenseAccountID: category.ExpenseAccountID.String(),
	})
}

// Create creates a draft expense
func (h *ExpenseHandler) Create(c *gin.Context) {
	var req CreateExpenseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	currency, ok := h.parseCurrency(c, req.Currency)
	if !ok {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	expense, err := h.service.Create(c.Request.Context(), financeapp.CreateExpenseInput{
		CategoryID:       req.CategoryID,
		WarehouseID:      req.WarehouseID,
		Date:             date,
		Amount:           req.Amount,
		Currency:         currency,
		Description:      req.Description,
		PaymentAccountID: req.PaymentAccountID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toExpenseResponse(expense))
}

func (h *ExpenseHandler) step(fn func(context.Context, uuid.UUID) (*finance.Expense, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.parseID(c)
		if !ok {
			return
		}

		expense, err := fn(c.Request.Context(), id)
		if err != nil {
			h.HandleError(c, err)
			return
		}

		h.Success(c, toExpenseResponse(expense))
	}
}

// Cancel reverses a posted expense
func (h *ExpenseHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req CancelRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	expense, err := h.service.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toExpenseResponse(expense))
}
