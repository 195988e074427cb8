package persistence

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds a row lock held until the surrounding transaction ends.
// The sqlite dialector drops the clause; sqlite serializes writers instead.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// pruneChildren deletes child rows of parentID whose IDs are not in keep
func pruneChildren(tx *gorm.DB, model any, foreignKey string, parentID uuid.UUID, keep []uuid.UUID) error {
	q := tx.Where(foreignKey+" = ?", parentID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	return q.Delete(model).Error
}

// saveAggregate writes the header row without touching associations
func saveAggregate(tx *gorm.DB, header any) error {
	return tx.Omit(clause.Associations).Save(header).Error
}
