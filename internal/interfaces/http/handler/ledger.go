package handler

import (
	appledger "github.com/erp/ledgerflow/internal/application/ledger"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
)

// LedgerHandler handles the chart of accounts and manual postings
type LedgerHandler struct {
	BaseHandler
	service *appledger.Service
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(service *appledger.Service) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// RegisterRoutes registers the ledger routes
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/ledger")
	g.POST("/accounts", h.CreateAccount)
	g.GET("/accounts/:code/balance", h.Balance)
	g.POST("/transactions", h.Post)
	g.GET("/transactions/:id", h.Get)
	g.POST("/transactions/:id/reverse", h.Reverse)
}

// CreateAccount adds a leaf account
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	currency, ok := h.parseCurrency(c, req.Currency)
	if !ok {
		return
	}

	account, err := h.service.CreateAccount(c.Request.Context(), appledger.CreateAccountInput{
		Code:       req.Code,
		Name:       req.Name,
		Type:       ledger.AccountType(req.Type),
		Currency:   currency,
		ParentCode: req.ParentCode,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toAccountResponse(account))
}

// Balance returns an account with its balance
func (h *LedgerHandler) Balance(c *gin.Context) {
	balance, err := h.service.Balance(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, AccountBalanceResponse{
		AccountResponse: toAccountResponse(balance.Account),
		Balance:         balance.Balance,
	})
}

// Post posts a manual transaction
func (h *LedgerHandler) Post(c *gin.Context) {
	var req PostTransactionRequest
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

	legs := make([]ledger.LegSpec, 0, len(req.Legs))
	for _, leg := range req.Legs {
		amount, err := valueobject.NewMoney(leg.Amount, currency)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		legs = append(legs, ledger.LegSpec{
			AccountID: leg.AccountID,
			Side:      ledger.Side(leg.Side),
			Amount:    amount,
		})
	}

	postReq := appledger.PostRequest{
		Date:        date,
		Description: req.Description,
		Legs:        legs,
	}
	if req.Source != nil {
		postReq.Source = &ledger.Source{Type: req.Source.Type, ID: req.Source.ID}
	}

	txn, err := h.service.Post(c.Request.Context(), postReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toTransactionResponse(txn))
}

// Get returns a posted transaction
func (h *LedgerHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	txn, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTransactionResponse(txn))
}

// Reverse posts the mirror of a transaction
func (h *LedgerHandler) Reverse(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req ReverseTransactionRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	reversal, err := h.service.Reverse(c.Request.Context(), id, req.Memo)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toTransactionResponse(reversal))
}
