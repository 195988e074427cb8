package handler

import (
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest adds an account to the chart
type CreateAccountRequest struct {
	Code       string `json:"code" binding:"required,max=32"`
	Name       string `json:"name" binding:"required,max=128"`
	Type       string `json:"type" binding:"required,oneof=ASSET LIABILITY EQUITY INCOME EXPENSE"`
	Currency   string `json:"currency" binding:"required,len=3"`
	ParentCode string `json:"parent_code"`
}

// PostTransactionRequest posts a manual journal entry
type PostTransactionRequest struct {
	Date        string           `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Description string           `json:"description" binding:"max=255"`
	Currency    string           `json:"currency" binding:"required,len=3"`
	Legs        []LegRequest     `json:"legs" binding:"required,min=1,dive"`
	Source      *SourceReference `json:"source"`
}

// LegRequest is one side of a journal entry
type LegRequest struct {
	AccountID uuid.UUID       `json:"account_id" binding:"required"`
	Side      string          `json:"side" binding:"required,oneof=DEBIT CREDIT"`
	Amount    decimal.Decimal `json:"amount" binding:"gt=0"`
}

// SourceReference names the document a manual entry belongs to
type SourceReference struct {
	Type string    `json:"type" binding:"required"`
	ID   uuid.UUID `json:"id" binding:"required"`
}

// ReverseTransactionRequest carries the memo of a reversal
type ReverseTransactionRequest struct {
	Memo string `json:"memo" binding:"max=255"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
	ParentID string `json:"parent_id,omitempty"`
	IsLeaf   bool   `json:"is_leaf"`
}

// AccountBalanceResponse is an account with its derived balance
type AccountBalanceResponse struct {
	AccountResponse
	Balance decimal.Decimal `json:"balance"`
}

// TransactionResponse represents a posted transaction
type TransactionResponse struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Currency    string          `json:"currency"`
	Legs        []LegResponse   `json:"legs"`
	SourceType  string          `json:"source_type,omitempty"`
	SourceID    string          `json:"source_id,omitempty"`
	ReversesID  string          `json:"reverses_id,omitempty"`
	ReversedBy  []string        `json:"reversed_by,omitempty"`
	Total       decimal.Decimal `json:"total"`
}

// LegResponse is one leg of a posted transaction
type LegResponse struct {
	LineNo    int             `json:"line_no"`
	AccountID string          `json:"account_id"`
	Side      string          `json:"side"`
	Amount    decimal.Decimal `json:"amount"`
}

func toAccountResponse(a *ledger.Account) AccountResponse {
	resp := AccountResponse{
		ID:       a.ID.String(),
		Code:     a.Code,
		Name:     a.Name,
		Type:     string(a.Type),
		Currency: a.Currency.String(),
		IsLeaf:   a.IsLeaf,
	}
	if a.ParentID != nil {
		resp.ParentID = a.ParentID.String()
	}
	return resp
}

func toTransactionResponse(txn *ledger.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          txn.ID.String(),
		Date:        txn.Date.Format(dateLayout),
		Description: txn.Description,
		Currency:    txn.Currency.String(),
		Legs:        make([]LegResponse, 0, len(txn.Legs)),
		ReversedBy:  uuidStrings(txn.ReversedBy),
		Total:       decimal.Zero,
	}
	for _, leg := range txn.Legs {
		resp.Legs = append(resp.Legs, LegResponse{
			LineNo:    leg.LineNo,
			AccountID: leg.AccountID.String(),
			Side:      string(leg.Side),
			Amount:    leg.Amount,
		})
		if leg.Side == ledger.SideDebit {
			resp.Total = resp.Total.Add(leg.Amount)
		}
	}
	if txn.Source != nil {
		resp.SourceType = txn.Source.Type
		resp.SourceID = txn.Source.ID.String()
	}
	resp.ReversesID = optionalUUID(txn.ReversesID)
	return resp
}

func optionalUUID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func uuidStrings(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
