package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledgerflow/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type tracedLot struct {
	ID       uint `gorm:"primaryKey"`
	LotCode  string
	Quantity int
}

func newTracedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedLot{}))
	return db
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := telemetry.DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := newTracedDB(t)
	plugin := telemetry.NewDBTracingPlugin(telemetry.DefaultDBTracingConfig(), zaptest.NewLogger(t))

	require.NoError(t, plugin.RegisterOtelGorm(db))
	assert.Nil(t, db.Callback().Query().Get("otel_timing:after_query"))
}

func TestDBTracingPlugin_AnnotatesSpans(t *testing.T) {
	sr := setupTestTracer(t)
	db := newTracedDB(t)

	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:  true,
		DBSystem: "sqlite",
	}, zaptest.NewLogger(t))
	require.NoError(t, plugin.RegisterOtelGorm(db))

	ctx, parent := telemetry.StartSpan(context.Background(), "uow.execute")
	require.NoError(t, db.WithContext(ctx).Create(&tracedLot{LotCode: "LOT-A", Quantity: 5}).Error)

	var lot tracedLot
	require.NoError(t, db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("lot_code = ?", "LOT-A").
		First(&lot).Error)
	parent.End()

	var sawInsert, sawLock bool
	for _, span := range sr.Ended() {
		attrs := attrMap(span)
		if attrs["db.sql.table"] != "traced_lots" {
			continue
		}
		if attrs["db.rows_affected"] == "1" {
			sawInsert = true
		}
		if attrs["db.row_lock"] == "true" {
			sawLock = true
		}
	}
	assert.True(t, sawInsert, "insert span should carry rows affected")
	assert.True(t, sawLock, "locking read should be marked")
}

func TestDBTracingPlugin_DoubleRegistrationFails(t *testing.T) {
	db := newTracedDB(t)
	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{Enabled: true}, zaptest.NewLogger(t))

	require.NoError(t, plugin.RegisterOtelGorm(db))
	assert.Error(t, plugin.RegisterOtelGorm(db))
}
