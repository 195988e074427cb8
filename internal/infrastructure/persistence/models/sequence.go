package models

import "time"

// SequenceModel holds the last number issued for a document prefix.
type SequenceModel struct {
	Prefix    string    `gorm:"type:varchar(20);primary_key"`
	Value     int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SequenceModel) TableName() string {
	return "document_sequences"
}

// AllModels lists every model in migration order
func AllModels() []any {
	return []any{
		&AccountModel{},
		&TransactionModel{},
		&LegModel{},
		&BatchModel{},
		&StockMovementModel{},
		&CounterpartyModel{},
		&BalanceEntryModel{},
		&InvoiceModel{},
		&DocumentLineModel{},
		&FulfillmentModel{},
		&ReturnModel{},
		&ReceiptModel{},
		&AllocationModel{},
		&PayrollSlipModel{},
		&ExpenseCategoryModel{},
		&ExpenseModel{},
		&SequenceModel{},
	}
}
