// Package testutil provides shared fixtures for tests: an in-memory
// database, a fully wired set of services over it and HTTP helpers.
package testutil

import (
	"testing"
	"time"

	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/erp/ledgerflow/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewSQLiteDB opens a private in-memory SQLite database with every table
// migrated. It is closed when the test ends.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := persistence.OpenSQLite("file::memory:")
	require.NoError(t, err, "Failed to open sqlite")
	require.NoError(t, db.AutoMigrate(), "Failed to migrate sqlite")
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

// Dec parses a decimal literal and panics on a typo
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// USD builds a dollar amount
func USD(s string) valueobject.Money {
	return valueobject.MustMoney(Dec(s), valueobject.USD)
}

// Date returns midnight UTC of the given day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DatePtr is Date for optional fields such as expiry
func DatePtr(year int, month time.Month, day int) *time.Time {
	d := Date(year, month, day)
	return &d
}
