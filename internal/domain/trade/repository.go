package trade

import (
	"context"

	"github.com/google/uuid"
)

// InvoiceRepository persists sale and purchase invoices with their lines
// and fulfillments
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindByIDForUpdate row-locks the invoice header for the rest of the unit
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, docType DocumentType, number string) (*Invoice, error)
	Save(ctx context.Context, inv *Invoice) error
}

// ReturnRepository persists sale and purchase returns
type ReturnRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Return, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Return, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Return, error)
	Save(ctx context.Context, r *Return) error
}
