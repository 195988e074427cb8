package handler

import (
	tradeapp "github.com/erp/ledgerflow/internal/application/trade"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentLineRequest is one product line of an invoice or return
type DocumentLineRequest struct {
	ProductID  uuid.UUID       `json:"product_id" binding:"required"`
	LotCode    string          `json:"lot_code" binding:"max=64"`
	ExpiryDate string          `json:"expiry_date" binding:"omitempty,datetime=2006-01-02"`
	Quantity   decimal.Decimal `json:"quantity" binding:"gt=0"`
	UnitPrice  decimal.Decimal `json:"unit_price" binding:"gte=0"`
}

// CreateInvoiceRequest creates a draft sale or purchase invoice
type CreateInvoiceRequest struct {
	Date           string                `json:"date" binding:"omitempty,datetime=2006-01-02"`
	CounterpartyID uuid.UUID             `json:"counterparty_id" binding:"required"`
	WarehouseID    uuid.UUID             `json:"warehouse_id" binding:"required"`
	Currency       string                `json:"currency" binding:"omitempty,len=3"`
	Lines          []DocumentLineRequest `json:"lines" binding:"required,min=1,dive"`
	Discount       decimal.Decimal       `json:"discount" binding:"gte=0"`
	Tax            decimal.Decimal       `json:"tax" binding:"gte=0"`
	Remark         string                `json:"remark" binding:"max=500"`
}

// FulfillRequest delivers or receives invoice lines. Without lines every
// line is fulfilled for its remaining quantity.
type FulfillRequest struct {
	Lines []FulfillLineRequest `json:"lines" binding:"dive"`
}

// FulfillLineRequest fulfils part of one invoice line
type FulfillLineRequest struct {
	LineID     uuid.UUID        `json:"line_id" binding:"required"`
	Quantity   decimal.Decimal  `json:"quantity" binding:"gt=0"`
	LotCode    string           `json:"lot_code" binding:"max=64"`
	ExpiryDate string           `json:"expiry_date" binding:"omitempty,datetime=2006-01-02"`
	UnitCost   *decimal.Decimal `json:"unit_cost"`
}

// CancelInvoiceRequest cancels an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"max=500"`
	// Force lets stock go negative when delivered goods cannot be found
	Force bool `json:"force"`
}

// CreateReturnRequest creates a draft sale or purchase return
type CreateReturnRequest struct {
	Date           string                `json:"date" binding:"omitempty,datetime=2006-01-02"`
	CounterpartyID uuid.UUID             `json:"counterparty_id" binding:"required"`
	WarehouseID    uuid.UUID             `json:"warehouse_id" binding:"required"`
	Currency       string                `json:"currency" binding:"omitempty,len=3"`
	InvoiceID      *uuid.UUID            `json:"invoice_id"`
	Lines          []DocumentLineRequest `json:"lines" binding:"required,min=1,dive"`
	Tax            decimal.Decimal       `json:"tax" binding:"gte=0"`
	Reason         string                `json:"reason" binding:"max=500"`
}

// CancelRequest carries the reason of a cancellation
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// DocumentLineResponse is one line of an invoice or return
type DocumentLineResponse struct {
	ID           string          `json:"id"`
	LineNo       int             `json:"line_no"`
	ProductID    string          `json:"product_id"`
	LotCode      string          `json:"lot_code,omitempty"`
	ExpiryDate   string          `json:"expiry_date,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Amount       decimal.Decimal `json:"amount"`
	FulfilledQty decimal.Decimal `json:"fulfilled_qty"`
}

// FulfillmentResponse is one delivered or received lot of an invoice line.
// Returns name these lots.
type FulfillmentResponse struct {
	LineID    string          `json:"line_id"`
	ProductID string          `json:"product_id"`
	LotCode   string          `json:"lot_code"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// InvoiceResponse represents a sale or purchase invoice
type InvoiceResponse struct {
	ID             string                 `json:"id"`
	Type           string                 `json:"type"`
	Number         string                 `json:"number"`
	Date           string                 `json:"date"`
	CounterpartyID string                 `json:"counterparty_id"`
	WarehouseID    string                 `json:"warehouse_id"`
	Currency       string                 `json:"currency"`
	Lines          []DocumentLineResponse `json:"lines"`
	Fulfillments   []FulfillmentResponse  `json:"fulfillments"`
	Subtotal       decimal.Decimal        `json:"subtotal"`
	Discount       decimal.Decimal        `json:"discount"`
	Tax            decimal.Decimal        `json:"tax"`
	GrandTotal     decimal.Decimal        `json:"grand_total"`
	PaidAmount     decimal.Decimal        `json:"paid_amount"`
	CreditedAmount decimal.Decimal        `json:"credited_amount"`
	Outstanding    decimal.Decimal        `json:"outstanding"`
	Status         string                 `json:"status"`
	PaymentStatus  string                 `json:"payment_status"`
	Fulfillment    string                 `json:"fulfillment"`
	PostingID      string                 `json:"posting_id,omitempty"`
	ReversalIDs    []string               `json:"reversal_ids,omitempty"`
	Remark         string                 `json:"remark,omitempty"`
	CancelReason   string                 `json:"cancel_reason,omitempty"`
	Version        int                    `json:"version"`
}

// ReturnResponse represents a sale or purchase return
type ReturnResponse struct {
	ID             string                 `json:"id"`
	Type           string                 `json:"type"`
	Number         string                 `json:"number"`
	Date           string                 `json:"date"`
	CounterpartyID string                 `json:"counterparty_id"`
	WarehouseID    string                 `json:"warehouse_id"`
	Currency       string                 `json:"currency"`
	InvoiceID      string                 `json:"invoice_id,omitempty"`
	Lines          []DocumentLineResponse `json:"lines"`
	Subtotal       decimal.Decimal        `json:"subtotal"`
	Tax            decimal.Decimal        `json:"tax"`
	Total          decimal.Decimal        `json:"total"`
	RefundedAmount decimal.Decimal        `json:"refunded_amount"`
	CreditedAmount decimal.Decimal        `json:"credited_amount"`
	Refundable     decimal.Decimal        `json:"refundable"`
	Status         string                 `json:"status"`
	PaymentStatus  string                 `json:"payment_status"`
	PostingID      string                 `json:"posting_id,omitempty"`
	RefundID       string                 `json:"refund_id,omitempty"`
	ReversalIDs    []string               `json:"reversal_ids,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
	Version        int                    `json:"version"`
}

// toLineInputs converts request lines, failing on a bad expiry date
func toLineInputs(lines []DocumentLineRequest) ([]tradeapp.LineInput, error) {
	out := make([]tradeapp.LineInput, 0, len(lines))
	for _, l := range lines {
		expiry, err := parseOptionalDate(l.ExpiryDate)
		if err != nil {
			return nil, err
		}
		out = append(out, tradeapp.LineInput{
			ProductID:  l.ProductID,
			LotCode:    l.LotCode,
			ExpiryDate: expiry,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
		})
	}
	return out, nil
}

func toLineRequests(lines []FulfillLineRequest) ([]trade.LineRequest, error) {
	out := make([]trade.LineRequest, 0, len(lines))
	for _, l := range lines {
		expiry, err := parseOptionalDate(l.ExpiryDate)
		if err != nil {
			return nil, err
		}
		out = append(out, trade.LineRequest{
			LineID:     l.LineID,
			Quantity:   l.Quantity,
			LotCode:    l.LotCode,
			ExpiryDate: expiry,
			UnitCost:   l.UnitCost,
		})
	}
	return out, nil
}

func toDocumentLines(lines []trade.Line) []DocumentLineResponse {
	out := make([]DocumentLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, DocumentLineResponse{
			ID:           l.ID.String(),
			LineNo:       l.LineNo,
			ProductID:    l.ProductID.String(),
			LotCode:      l.LotCode,
			ExpiryDate:   formatDate(l.ExpiryDate),
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			Amount:       l.Amount,
			FulfilledQty: l.FulfilledQty,
		})
	}
	return out
}

func toInvoiceResponse(inv *trade.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:             inv.ID.String(),
		Type:           inv.Type.String(),
		Number:         inv.Number,
		Date:           inv.Date.Format(dateLayout),
		CounterpartyID: inv.CounterpartyID.String(),
		WarehouseID:    inv.WarehouseID.String(),
		Currency:       inv.Currency.String(),
		Lines:          toDocumentLines(inv.Lines),
		Fulfillments:   toFulfillments(inv.Fulfillments),
		Subtotal:       inv.Subtotal,
		Discount:       inv.Discount,
		Tax:            inv.Tax,
		GrandTotal:     inv.GrandTotal,
		PaidAmount:     inv.PaidAmount,
		CreditedAmount: inv.CreditedAmount,
		Outstanding:    inv.Outstanding(),
		Status:         string(inv.Status),
		PaymentStatus:  string(inv.PaymentStatus),
		Fulfillment:    string(inv.Progress()),
		PostingID:      optionalUUID(inv.PostingID),
		ReversalIDs:    uuidStrings(inv.ReversalIDs),
		Remark:         inv.Remark,
		CancelReason:   inv.CancelReason,
		Version:        inv.Version,
	}
}

func toFulfillments(fs []trade.Fulfillment) []FulfillmentResponse {
	out := make([]FulfillmentResponse, 0, len(fs))
	for _, f := range fs {
		out = append(out, FulfillmentResponse{
			LineID:    f.LineID.String(),
			ProductID: f.ProductID.String(),
			LotCode:   f.LotCode,
			Quantity:  f.Quantity,
		})
	}
	return out
}

func toReturnResponse(ret *trade.Return) ReturnResponse {
	return ReturnResponse{
		ID:             ret.ID.String(),
		Type:           ret.Type.String(),
		Number:         ret.Number,
		Date:           ret.Date.Format(dateLayout),
		CounterpartyID: ret.CounterpartyID.String(),
		WarehouseID:    ret.WarehouseID.String(),
		Currency:       ret.Currency.String(),
		InvoiceID:      optionalUUID(ret.InvoiceID),
		Lines:          toDocumentLines(ret.Lines),
		Subtotal:       ret.Subtotal,
		Tax:            ret.Tax,
		Total:          ret.Total,
		RefundedAmount: ret.RefundedAmount,
		CreditedAmount: ret.CreditedAmount,
		Refundable:     ret.Refundable(),
		Status:         string(ret.Status),
		PaymentStatus:  string(ret.PaymentStatus),
		PostingID:      optionalUUID(ret.PostingID),
		RefundID:       optionalUUID(ret.RefundID),
		ReversalIDs:    uuidStrings(ret.ReversalIDs),
		Reason:         ret.Reason,
		Version:        ret.Version,
	}
}
