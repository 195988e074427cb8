package trade

import (
	"time"

	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineInput is one requested document line
type LineInput struct {
	ProductID  uuid.UUID
	LotCode    string
	ExpiryDate *time.Time
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
}

// CreateInvoiceInput creates a draft invoice
type CreateInvoiceInput struct {
	Type           trade.DocumentType
	Date           time.Time
	CounterpartyID uuid.UUID
	WarehouseID    uuid.UUID
	// Currency defaults to the account plan currency
	Currency valueobject.Currency
	Lines    []LineInput
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Remark   string
}

// CreateReturnInput creates a draft return
type CreateReturnInput struct {
	Type           trade.DocumentType
	Date           time.Time
	CounterpartyID uuid.UUID
	WarehouseID    uuid.UUID
	Currency       valueobject.Currency
	InvoiceID      *uuid.UUID
	Lines          []LineInput
	Tax            decimal.Decimal
	Reason         string
}

// CancelInput cancels an invoice
type CancelInput struct {
	Reason string
	// Force cancels despite active returns and lets purchase stock removal
	// floor lots at zero
	Force bool
}
