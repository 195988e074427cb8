package persistence

import (
	"context"

	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/erp/ledgerflow/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements trade.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

func orderedFulfillments(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// FindByID finds an invoice with its lines and fulfillments
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Invoice, error) {
	return r.find(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUpdate finds an invoice and locks its header row
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.Invoice, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)).Where("id = ?", id))
}

// FindByNumber finds an invoice by document type and number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, docType trade.DocumentType, number string) (*trade.Invoice, error) {
	return r.find(r.db.WithContext(ctx).Where("type = ? AND number = ?", docType, number))
}

func (r *GormInvoiceRepository) find(q *gorm.DB) (*trade.Invoice, error) {
	var model models.InvoiceModel
	if err := q.Preload("Lines", orderedLines).
		Preload("Fulfillments", orderedFulfillments).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save writes the invoice header, then syncs lines and fulfillments:
// rows no longer on the aggregate are deleted, the rest are upserted.
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *trade.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveAggregate(tx, model); err != nil {
			return err
		}
		if err := saveLines(tx, model.ID, model.Lines); err != nil {
			return err
		}

		keep := make([]uuid.UUID, len(model.Fulfillments))
		for i := range model.Fulfillments {
			keep[i] = model.Fulfillments[i].ID
		}
		if err := pruneChildren(tx, &models.FulfillmentModel{}, "document_id", model.ID, keep); err != nil {
			return err
		}
		for i := range model.Fulfillments {
			if err := tx.Save(&model.Fulfillments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translateError(err)
}

// saveLines syncs the line rows of a document
func saveLines(tx *gorm.DB, documentID uuid.UUID, lines []models.DocumentLineModel) error {
	keep := make([]uuid.UUID, len(lines))
	for i := range lines {
		keep[i] = lines[i].ID
	}
	if err := pruneChildren(tx, &models.DocumentLineModel{}, "document_id", documentID, keep); err != nil {
		return err
	}
	for i := range lines {
		if err := tx.Save(&lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// GormReturnRepository implements trade.ReturnRepository using GORM
type GormReturnRepository struct {
	db *gorm.DB
}

// NewGormReturnRepository creates a new GormReturnRepository
func NewGormReturnRepository(db *gorm.DB) *GormReturnRepository {
	return &GormReturnRepository{db: db}
}

// FindByID finds a return with its lines
func (r *GormReturnRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Return, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a return and locks its header row
func (r *GormReturnRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.Return, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormReturnRepository) find(q *gorm.DB, id uuid.UUID) (*trade.Return, error) {
	var model models.ReturnModel
	if err := q.Preload("Lines", orderedLines).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByInvoice returns every return raised against an invoice
func (r *GormReturnRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]trade.Return, error) {
	var rows []models.ReturnModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	out := make([]trade.Return, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save writes the return header and syncs its lines
func (r *GormReturnRepository) Save(ctx context.Context, ret *trade.Return) error {
	model := models.ReturnModelFromDomain(ret)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveAggregate(tx, model); err != nil {
			return err
		}
		return saveLines(tx, model.ID, model.Lines)
	})
	return translateError(err)
}

var (
	_ trade.InvoiceRepository = (*GormInvoiceRepository)(nil)
	_ trade.ReturnRepository  = (*GormReturnRepository)(nil)
)
