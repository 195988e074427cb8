package handler

import (
	financeapp "github.com/erp/ledgerflow/internal/application/finance"
	"github.com/erp/ledgerflow/internal/domain/finance"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/gin-gonic/gin"
)

// SettlementHandler handles receipts, payments and invoice settlement
type SettlementHandler struct {
	BaseHandler
	service *financeapp.SettlementService
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(service *financeapp.SettlementService) *SettlementHandler {
	return &SettlementHandler{service: service}
}

// RegisterRoutes registers the settlement routes
func (h *SettlementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	receipts := rg.Group("/receipts")
	receipts.POST("", h.RecordReceipt)
	receipts.GET("/:id", h.GetReceipt)
	receipts.POST("/:id/allocate", h.Allocate)

	rg.POST("/settlements", h.SplitSettle)
	rg.POST("/opening-balances", h.OpeningBalance)
}

// RecordReceipt records and posts a receipt or payment
func (h *SettlementHandler) RecordReceipt(c *gin.Context) {
	var req RecordReceiptRequest
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

	receipt, err := h.service.RecordReceipt(c.Request.Context(), financeapp.RecordReceiptInput{
		Kind:           finance.ReceiptKind(req.Kind),
		CounterpartyID: req.CounterpartyID,
		WarehouseID:    req.WarehouseID,
		Amount:         req.Amount,
		Currency:       currency,
		Date:           date,
		Remark:         req.Remark,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toReceiptResponse(receipt))
}

// GetReceipt returns a receipt with its allocations
func (h *SettlementHandler) GetReceipt(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	receipt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toReceiptResponse(receipt))
}

// Allocate applies part of a receipt to an invoice
func (h *SettlementHandler) Allocate(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req AllocateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	alloc, err := h.service.Allocate(c.Request.Context(), id, trade.DocumentType(req.DocumentType), req.DocumentID, req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toAllocationResponse(alloc))
}

// SplitSettle settles an invoice's outstanding amount with cash and credit
func (h *SettlementHandler) SplitSettle(c *gin.Context) {
	var req SplitSettleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SplitSettle(c.Request.Context(), financeapp.SplitSettleInput{
		DocumentType: trade.DocumentType(req.DocumentType),
		DocumentID:   req.DocumentID,
		Pay:          req.Pay,
		Credit:       req.Credit,
		Date:         date,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := SplitSettlementResponse{Invoice: toInvoiceResponse(result.Invoice)}
	if result.Receipt != nil {
		receipt := toReceiptResponse(result.Receipt)
		resp.Receipt = &receipt
	}
	h.Success(c, resp)
}

// OpeningBalance posts a balance carried over from an earlier system
func (h *SettlementHandler) OpeningBalance(c *gin.Context) {
	var req OpeningBalanceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	txn, err := h.service.PostOpeningBalance(c.Request.Context(), financeapp.OpeningBalanceInput{
		CounterpartyID: req.CounterpartyID,
		WarehouseID:    req.WarehouseID,
		Amount:         req.Amount,
		Date:           date,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toTransactionResponse(txn))
}
