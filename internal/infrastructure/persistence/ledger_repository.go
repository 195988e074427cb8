package persistence

import (
	"context"

	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by its ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs loads every account in ids. Missing IDs are simply absent.
func (r *GormAccountRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]ledger.Account, error) {
	if len(ids) == 0 {
		return []ledger.Account{}, nil
	}
	var rows []models.AccountModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	accounts := make([]ledger.Account, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, nil
}

// FindByCode finds an account by its code
func (r *GormAccountRepository) FindByCode(ctx context.Context, code string) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	return translateError(r.db.WithContext(ctx).Save(models.AccountModelFromDomain(account)).Error)
}

// GormTransactionRepository implements ledger.TransactionRepository using GORM.
// Transactions are written once and never updated.
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

func orderedLegs(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// FindByID finds a transaction with its legs
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return r.find(ctx, r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a transaction and locks its row
func (r *GormTransactionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return r.find(ctx, forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormTransactionRepository) find(ctx context.Context, q *gorm.DB, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := q.Preload("Legs", orderedLegs).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	reversedBy, err := r.reversals(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	return model.ToDomain(reversedBy[id]), nil
}

// FindBySource returns every transaction posted for a source document,
// oldest first
func (r *GormTransactionRepository) FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]ledger.Transaction, error) {
	var rows []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Preload("Legs", orderedLegs).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	reversedBy, err := r.reversals(ctx, ids)
	if err != nil {
		return nil, err
	}

	txns := make([]ledger.Transaction, len(rows))
	for i := range rows {
		txns[i] = *rows[i].ToDomain(reversedBy[rows[i].ID])
	}
	return txns, nil
}

// reversals maps each ID to the transactions that reverse it
func (r *GormTransactionRepository) reversals(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	out := make(map[uuid.UUID][]uuid.UUID, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID         uuid.UUID
		ReversesID uuid.UUID
	}
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Select("id, reverses_id").
		Where("reverses_id IN ?", ids).
		Order("created_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	for _, row := range rows {
		out[row.ReversesID] = append(out[row.ReversesID], row.ID)
	}
	return out, nil
}

// Create inserts the transaction and its legs. A second reversal of the
// same transaction violates the unique reverses_id index.
func (r *GormTransactionRepository) Create(ctx context.Context, txn *ledger.Transaction) error {
	return translateError(r.db.WithContext(ctx).Create(models.TransactionModelFromDomain(txn)).Error)
}

// AccountBalance returns debits minus credits posted to the account
func (r *GormTransactionRepository) AccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.LegModel{}).
		Select("SUM(CASE WHEN side = ? THEN amount ELSE -amount END)", ledger.SideDebit).
		Where("account_id = ?", accountID).
		Row().Scan(&balance)
	if err != nil {
		return decimal.Zero, translateError(err)
	}
	if !balance.Valid {
		return decimal.Zero, nil
	}
	return balance.Decimal, nil
}

var (
	_ ledger.AccountRepository     = (*GormAccountRepository)(nil)
	_ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
)
