package handler

import (
	partnerapp "github.com/erp/ledgerflow/internal/application/partner"
	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RegisterCounterpartyRequest registers a customer or supplier
type RegisterCounterpartyRequest struct {
	Code        string `json:"code" binding:"required,max=32"`
	Name        string `json:"name" binding:"required,max=128"`
	Kind        string `json:"kind" binding:"required,oneof=CUSTOMER SUPPLIER"`
	AccountCode string `json:"account_code" binding:"required"`
}

// CounterpartyResponse represents a counterparty with its running balance
type CounterpartyResponse struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Kind           string          `json:"kind"`
	AccountID      string          `json:"account_id"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

// BalanceEntryResponse is one change of a counterparty balance
type BalanceEntryResponse struct {
	ID            string          `json:"id"`
	Delta         decimal.Decimal `json:"delta"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reason        string          `json:"reason"`
	SourceType    string          `json:"source_type"`
	SourceID      string          `json:"source_id"`
	CreatedAt     string          `json:"created_at"`
}

func toCounterpartyResponse(cp *partner.Counterparty) CounterpartyResponse {
	return CounterpartyResponse{
		ID:             cp.ID.String(),
		Code:           cp.Code,
		Name:           cp.Name,
		Kind:           string(cp.Kind),
		AccountID:      cp.AccountID.String(),
		CurrentBalance: cp.CurrentBalance,
	}
}

// CounterpartyHandler handles customers and suppliers
type CounterpartyHandler struct {
	BaseHandler
	service *partnerapp.CounterpartyService
}

// NewCounterpartyHandler creates a new CounterpartyHandler
func NewCounterpartyHandler(service *partnerapp.CounterpartyService) *CounterpartyHandler {
	return &CounterpartyHandler{service: service}
}

// RegisterRoutes registers the counterparty routes
func (h *CounterpartyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/counterparties")
	g.POST("", h.Register)
	g.GET("/:id", h.Get)
	g.GET("/:id/history", h.History)
}

// Register creates a counterparty
func (h *CounterpartyHandler) Register(c *gin.Context) {
	var req RegisterCounterpartyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cp, err := h.service.Register(c.Request.Context(), partnerapp.RegisterInput{
		Code:        req.Code,
		Name:        req.Name,
		Kind:        partner.Kind(req.Kind),
		AccountCode: req.AccountCode,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toCounterpartyResponse(cp))
}

// Get returns a counterparty
func (h *CounterpartyHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	cp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toCounterpartyResponse(cp))
}

// History lists every change of the counterparty balance, oldest first
func (h *CounterpartyHandler) History(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	entries, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]BalanceEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, BalanceEntryResponse{
			ID:            e.ID.String(),
			Delta:         e.Delta,
			BalanceBefore: e.BalanceBefore,
			BalanceAfter:  e.BalanceAfter,
			Reason:        string(e.Reason),
			SourceType:    e.SourceType,
			SourceID:      e.SourceID.String(),
			CreatedAt:     e.CreatedAt.Format(timeLayout),
		})
	}
	h.Success(c, resp)
}
