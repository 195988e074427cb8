package persistence

import (
	"context"

	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBatchRepository implements inventory.BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// fefoOrder sorts lots earliest expiry first, lots without expiry last,
// then by receipt time and lot code
func fefoOrder(db *gorm.DB) *gorm.DB {
	return db.Order("CASE WHEN expiry_date IS NULL THEN 1 ELSE 0 END ASC").
		Order("expiry_date ASC").
		Order("received_at ASC").
		Order("lot_code ASC")
}

// FindByID finds a lot by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	var model models.BatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByKey finds a lot by product, warehouse and lot code
func (r *GormBatchRepository) FindByKey(ctx context.Context, key inventory.BatchKey) (*inventory.Batch, error) {
	return r.findByKey(r.db.WithContext(ctx), key)
}

// FindByKeyForUpdate finds a lot and locks its row
func (r *GormBatchRepository) FindByKeyForUpdate(ctx context.Context, key inventory.BatchKey) (*inventory.Batch, error) {
	return r.findByKey(forUpdate(r.db.WithContext(ctx)), key)
}

func (r *GormBatchRepository) findByKey(q *gorm.DB, key inventory.BatchKey) (*inventory.Batch, error) {
	var model models.BatchModel
	if err := q.Where("product_id = ? AND warehouse_id = ? AND lot_code = ?",
		key.ProductID, key.WarehouseID, key.LotCode).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindWithStock returns lots holding at least minQty in FEFO order
func (r *GormBatchRepository) FindWithStock(ctx context.Context, productID, warehouseID uuid.UUID, minQty decimal.Decimal) ([]inventory.Batch, error) {
	var rows []models.BatchModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Where("quantity > 0 AND quantity >= ?", minQty).
		Scopes(fefoOrder).
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	return batchesToDomain(rows), nil
}

// FindByProduct returns every lot of a product in a warehouse in FEFO order
func (r *GormBatchRepository) FindByProduct(ctx context.Context, productID, warehouseID uuid.UUID) ([]inventory.Batch, error) {
	var rows []models.BatchModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Scopes(fefoOrder).
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	return batchesToDomain(rows), nil
}

// Create inserts a new lot. A duplicate key maps to ALREADY_EXISTS.
func (r *GormBatchRepository) Create(ctx context.Context, batch *inventory.Batch) error {
	return translateError(r.db.WithContext(ctx).Create(models.BatchModelFromDomain(batch)).Error)
}

// Save updates an existing lot
func (r *GormBatchRepository) Save(ctx context.Context, batch *inventory.Batch) error {
	return translateError(r.db.WithContext(ctx).Save(models.BatchModelFromDomain(batch)).Error)
}

func batchesToDomain(rows []models.BatchModel) []inventory.Batch {
	out := make([]inventory.Batch, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// GormMovementRepository implements inventory.MovementRepository using GORM.
// Movements are append-only.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Create appends a stock movement
func (r *GormMovementRepository) Create(ctx context.Context, movement *inventory.StockMovement) error {
	return translateError(r.db.WithContext(ctx).Create(models.StockMovementModelFromDomain(movement)).Error)
}

// FindByBatch returns the movements of a lot, oldest first
func (r *GormMovementRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]inventory.StockMovement, error) {
	return r.find(r.db.WithContext(ctx).Where("batch_id = ?", batchID))
}

// FindBySource returns the movements a document caused, oldest first
func (r *GormMovementRepository) FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]inventory.StockMovement, error) {
	return r.find(r.db.WithContext(ctx).Where("source_type = ? AND source_id = ?", sourceType, sourceID))
}

func (r *GormMovementRepository) find(q *gorm.DB) ([]inventory.StockMovement, error) {
	var rows []models.StockMovementModel
	if err := q.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	out := make([]inventory.StockMovement, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

var (
	_ inventory.BatchRepository    = (*GormBatchRepository)(nil)
	_ inventory.MovementRepository = (*GormMovementRepository)(nil)
)
