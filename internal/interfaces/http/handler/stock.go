package handler

import (
	appinv "github.com/erp/ledgerflow/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StockHandler exposes the stock ledger operations directly
type StockHandler struct {
	BaseHandler
	service *appinv.StockService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(service *appinv.StockService) *StockHandler {
	return &StockHandler{service: service}
}

// RegisterRoutes registers the stock routes
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/stock")
	g.POST("/receive", h.Receive)
	g.POST("/consume-fefo", h.ConsumeFEFO)
	g.POST("/consume-exact", h.ConsumeExact)
	g.POST("/restore", h.Restore)
	g.GET("/lots", h.Lot)
	g.GET("/on-hand", h.OnHand)
	g.GET("/lots/:id/movements", h.Movements)
}

// Receive creates a lot
func (h *StockHandler) Receive(c *gin.Context) {
	var req ReceiveStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	expiry, err := parseOptionalDate(req.ExpiryDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	batch, err := h.service.Receive(c.Request.Context(), appinv.ReceiveRequest{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		LotCode:     req.LotCode,
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		ExpiryDate:  expiry,
		Source:      req.Source.stockSource(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toBatchResponse(batch))
}

// ConsumeFEFO draws stock from the earliest-expiring lots
func (h *StockHandler) ConsumeFEFO(c *gin.Context) {
	var req ConsumeFEFORequest
	if !h.BindJSON(c, &req) {
		return
	}

	taken, err := h.service.ConsumeFEFO(c.Request.Context(), appinv.ConsumeFEFORequest{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
		Source:      req.Source.stockSource(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]ConsumptionResponse, 0, len(taken))
	for _, consumption := range taken {
		resp = append(resp, toConsumptionResponse(consumption))
	}
	h.Success(c, resp)
}

// ConsumeExact draws stock from one lot
func (h *StockHandler) ConsumeExact(c *gin.Context) {
	var req ConsumeExactRequest
	if !h.BindJSON(c, &req) {
		return
	}

	taken, err := h.service.ConsumeExact(c.Request.Context(), appinv.ConsumeExactRequest{
		ProductID:      req.ProductID,
		WarehouseID:    req.WarehouseID,
		LotCode:        req.LotCode,
		Quantity:       req.Quantity,
		AllowUnderflow: req.AllowUnderflow,
		Source:         req.Source.stockSource(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toConsumptionResponse(*taken))
}

// Restore puts stock back into a lot, creating it when needed
func (h *StockHandler) Restore(c *gin.Context) {
	var req RestoreStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	expiry, err := parseOptionalDate(req.ExpiryDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	batch, err := h.service.Restore(c.Request.Context(), appinv.RestoreRequest{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		LotCode:     req.LotCode,
		Quantity:    req.Quantity,
		Options: appinv.RestoreOptions{
			ExpiryDate: expiry,
			UnitCost:   req.UnitCost,
			Source:     req.Source.stockSource(),
		},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toBatchResponse(batch))
}

// Lot returns one lot by product, warehouse and lot code
func (h *StockHandler) Lot(c *gin.Context) {
	var q LotQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, "product_id and warehouse_id must be UUIDs")
		return
	}

	batch, err := h.service.Lot(c.Request.Context(), uuid.MustParse(q.ProductID), uuid.MustParse(q.WarehouseID), q.LotCode)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toBatchResponse(batch))
}

// OnHand sums the lots of a product in a warehouse
func (h *StockHandler) OnHand(c *gin.Context) {
	var q LotQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, "product_id and warehouse_id must be UUIDs")
		return
	}
	productID := uuid.MustParse(q.ProductID)
	warehouseID := uuid.MustParse(q.WarehouseID)

	total, err := h.service.OnHand(c.Request.Context(), productID, warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, OnHandResponse{
		ProductID:   productID.String(),
		WarehouseID: warehouseID.String(),
		Quantity:    total,
	})
}

// Movements returns a lot's audit trail
func (h *StockHandler) Movements(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	movements, err := h.service.Movements(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		resp = append(resp, toMovementResponse(m))
	}
	h.Success(c, resp)
}
