package handler

import (
	"net/http"

	tradeapp "github.com/erp/ledgerflow/internal/application/trade"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/gin-gonic/gin"
)

// InvoiceHandler handles one kind of invoice. Sale invoices are delivered,
// purchase invoices are received.
type InvoiceHandler struct {
	BaseHandler
	docType trade.DocumentType
	service *tradeapp.InvoiceService
}

// NewSaleInvoiceHandler creates the handler mounted at /sale-invoices
func NewSaleInvoiceHandler(service *tradeapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{docType: trade.DocumentTypeSaleInvoice, service: service}
}

// NewPurchaseInvoiceHandler creates the handler mounted at /purchase-invoices
func NewPurchaseInvoiceHandler(service *tradeapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{docType: trade.DocumentTypePurchaseInvoice, service: service}
}

// RegisterRoutes registers the invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	prefix, fulfil := "/sale-invoices", "/:id/deliver"
	if h.docType == trade.DocumentTypePurchaseInvoice {
		prefix, fulfil = "/purchase-invoices", "/:id/receive"
	}

	g := rg.Group(prefix)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.POST("/:id/confirm", h.Confirm)
	g.POST(fulfil, h.Fulfill)
	g.POST("/:id/cancel", h.Cancel)
}

// Create creates a draft invoice
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req CreateInvoiceRequest
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

	inv, err := h.service.Create(c.Request.Context(), tradeapp.CreateInvoiceInput{
		Type:           h.docType,
		Date:           date,
		CounterpartyID: req.CounterpartyID,
		WarehouseID:    req.WarehouseID,
		Currency:       currency,
		Lines:          lines,
		Discount:       req.Discount,
		Tax:            req.Tax,
		Remark:         req.Remark,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toInvoiceResponse(inv))
}

// Get returns an invoice
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	inv, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if inv.Type != h.docType {
		h.Error(c, http.StatusNotFound, shared.CodeNotFound, "Invoice not found")
		return
	}

	h.Success(c, toInvoiceResponse(inv))
}

// Confirm posts the invoice to the ledger
func (h *InvoiceHandler) Confirm(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	inv, err := h.service.Confirm(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(inv))
}

// Fulfill delivers a sale invoice or receives a purchase invoice
func (h *InvoiceHandler) Fulfill(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req FulfillRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	lines, err := toLineRequests(req.Lines)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var inv *trade.Invoice
	switch {
	case h.docType == trade.DocumentTypeSaleInvoice && len(lines) == 0:
		inv, err = h.service.DeliverAll(ctx, id)
	case h.docType == trade.DocumentTypeSaleInvoice:
		inv, err = h.service.Deliver(ctx, id, lines)
	case len(lines) == 0:
		inv, err = h.service.ReceiveAll(ctx, id)
	default:
		inv, err = h.service.Receive(ctx, id, lines)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(inv))
}

// Cancel unwinds a confirmed invoice
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req CancelInvoiceRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	inv, err := h.service.Cancel(c.Request.Context(), id, tradeapp.CancelInput{
		Reason: req.Reason,
		Force:  req.Force,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(inv))
}
