package handler

import (
	"context"
	"net/http"

	tradeapp "github.com/erp/ledgerflow/internal/application/trade"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReturnHandler handles one kind of return document
type ReturnHandler struct {
	BaseHandler
	docType trade.DocumentType
	service *tradeapp.ReturnService
}

// NewSaleReturnHandler creates the handler mounted at /sale-returns
func NewSaleReturnHandler(service *tradeapp.ReturnService) *ReturnHandler {
	return &ReturnHandler{docType: trade.DocumentTypeSaleReturn, service: service}
}

// NewPurchaseReturnHandler creates the handler mounted at /purchase-returns
func NewPurchaseReturnHandler(service *tradeapp.ReturnService) *ReturnHandler {
	return &ReturnHandler{docType: trade.DocumentTypePurchaseReturn, service: service}
}

// RegisterRoutes registers the return routes
func (h *ReturnHandler) RegisterRoutes(rg *gin.RouterGroup) {
	prefix := "/sale-returns"
	if h.docType == trade.DocumentTypePurchaseReturn {
		prefix = "/purchase-returns"
	}

	g := rg.Group(prefix)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.POST("/:id/confirm", h.step(h.service.Confirm))
	g.POST("/:id/return", h.step(h.service.Return))
	g.POST("/:id/refund", h.step(h.service.Refund))
	g.POST("/:id/credit", h.step(h.service.Credit))
	g.POST("/:id/cancel", h.Cancel)
}

// Create creates a draft return
func (h *ReturnHandler) Create(c *gin.Context) {
	var req CreateReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	currency, ok := h.parseCurrency(c, req.Currency)
	if !ok {
		return
	}
	lines, err := toLineInputs(req.Lines)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ret, err := h.service.Create(c.Request.Context(), tradeapp.CreateReturnInput{
		Type:           h.docType,
		Date:           date,
		CounterpartyID: req.CounterpartyID,
		WarehouseID:    req.WarehouseID,
		Currency:       currency,
		InvoiceID:      req.InvoiceID,
		Lines:          lines,
		Tax:            req.Tax,
		Reason:         req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toReturnResponse(ret))
}

// Get returns a return document
func (h *ReturnHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	ret, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if ret.Type != h.docType {
		h.Error(c, http.StatusNotFound, shared.CodeNotFound, "Return not found")
		return
	}

	h.Success(c, toReturnResponse(ret))
}

// step adapts a bodyless transition (confirm, return, refund, credit)
func (h *ReturnHandler) step(fn func(context.Context, uuid.UUID) (*trade.Return, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.parseID(c)
		if !ok {
			return
		}

		ret, err := fn(c.Request.Context(), id)
		if err != nil {
			h.HandleError(c, err)
			return
		}

		h.Success(c, toReturnResponse(ret))
	}
}

// Cancel unwinds a return
func (h *ReturnHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req CancelRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	ret, err := h.service.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toReturnResponse(ret))
}
