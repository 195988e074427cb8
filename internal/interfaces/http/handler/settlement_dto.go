package handler

import (
	"github.com/erp/ledgerflow/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordReceiptRequest records money received or paid
type RecordReceiptRequest struct {
	Kind           string          `json:"kind" binding:"required,oneof=CUSTOMER_RECEIPT SUPPLIER_PAYMENT"`
	CounterpartyID uuid.UUID       `json:"counterparty_id" binding:"required"`
	WarehouseID    uuid.UUID       `json:"warehouse_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"gt=0"`
	Currency       string          `json:"currency" binding:"omitempty,len=3"`
	Date           string          `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Remark         string          `json:"remark" binding:"max=500"`
}

// AllocateRequest applies part of a receipt to an invoice
type AllocateRequest struct {
	DocumentType string          `json:"document_type" binding:"required,oneof=sale_invoice purchase_invoice"`
	DocumentID   uuid.UUID       `json:"document_id" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"gt=0"`
}

// SplitSettleRequest settles an invoice with cash and credit
type SplitSettleRequest struct {
	DocumentType string          `json:"document_type" binding:"required,oneof=sale_invoice purchase_invoice"`
	DocumentID   uuid.UUID       `json:"document_id" binding:"required"`
	Pay          decimal.Decimal `json:"pay" binding:"gte=0"`
	Credit       decimal.Decimal `json:"credit" binding:"gte=0"`
	Date         string          `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// OpeningBalanceRequest seeds a counterparty balance
type OpeningBalanceRequest struct {
	CounterpartyID uuid.UUID       `json:"counterparty_id" binding:"required"`
	WarehouseID    uuid.UUID       `json:"warehouse_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"gt=0"`
	Date           string          `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// AllocationResponse is one application of a receipt to an invoice
type AllocationResponse struct {
	ID             string          `json:"id"`
	ReceiptID      string          `json:"receipt_id"`
	DocumentType   string          `json:"document_type"`
	DocumentID     string          `json:"document_id"`
	DocumentNumber string          `json:"document_number"`
	Amount         decimal.Decimal `json:"amount"`
	AllocatedAt    string          `json:"allocated_at"`
	ReversedAt     string          `json:"reversed_at,omitempty"`
}

// ReceiptResponse represents a receipt or payment
type ReceiptResponse struct {
	ID                string               `json:"id"`
	Kind              string               `json:"kind"`
	Number            string               `json:"number"`
	Date              string               `json:"date"`
	CounterpartyID    string               `json:"counterparty_id"`
	WarehouseID       string               `json:"warehouse_id"`
	Currency          string               `json:"currency"`
	Amount            decimal.Decimal      `json:"amount"`
	UnallocatedAmount decimal.Decimal      `json:"unallocated_amount"`
	PostingID         string               `json:"posting_id,omitempty"`
	ReversalIDs       []string             `json:"reversal_ids,omitempty"`
	Allocations       []AllocationResponse `json:"allocations"`
	Remark            string               `json:"remark,omitempty"`
}

// SplitSettlementResponse is the invoice after settlement and the receipt
// recorded for the cash part, if any
type SplitSettlementResponse struct {
	Invoice InvoiceResponse  `json:"invoice"`
	Receipt *ReceiptResponse `json:"receipt,omitempty"`
}

func toAllocationResponse(a *finance.Allocation) AllocationResponse {
	resp := AllocationResponse{
		ID:             a.ID.String(),
		ReceiptID:      a.ReceiptID.String(),
		DocumentType:   a.DocumentType.String(),
		DocumentID:     a.DocumentID.String(),
		DocumentNumber: a.DocumentNumber,
		Amount:         a.Amount,
		AllocatedAt:    a.AllocatedAt.Format(timeLayout),
	}
	if a.ReversedAt != nil {
		resp.ReversedAt = a.ReversedAt.Format(timeLayout)
	}
	return resp
}

func toReceiptResponse(r *finance.Receipt) ReceiptResponse {
	resp := ReceiptResponse{
		ID:                r.ID.String(),
		Kind:              string(r.Kind),
		Number:            r.Number,
		Date:              r.Date.Format(dateLayout),
		CounterpartyID:    r.CounterpartyID.String(),
		WarehouseID:       r.WarehouseID.String(),
		Currency:          r.Currency.String(),
		Amount:            r.Amount,
		UnallocatedAmount: r.UnallocatedAmount,
		PostingID:         optionalUUID(r.PostingID),
		ReversalIDs:       uuidStrings(r.ReversalIDs),
		Allocations:       make([]AllocationResponse, 0, len(r.Allocations)),
		Remark:            r.Remark,
	}
	for i := range r.Allocations {
		resp.Allocations = append(resp.Allocations, toAllocationResponse(&r.Allocations[i]))
	}
	return resp
}
