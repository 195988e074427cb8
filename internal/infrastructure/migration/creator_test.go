package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/erp/ledgerflow/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add allocations index", "add_allocations_index"},
		{"Add-Payroll-Slips", "add_payroll_slips"},
		{"CREATE_LEDGER", "create_ledger"},
		{"stock__batches", "stock_batches"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersSequentially(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create ledger", "")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_create_ledger.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_create_ledger.down.sql"), first.DownPath)

	body, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- create ledger")

	second, err := CreateMigration(dir, "Add Stock", "Lots and movements")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	body, err = os.ReadFile(second.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- Lots and movements")

	_, err = CreateMigration(dir, "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000002_b.up.sql", "000002_b.down.sql",
		"000001_a.up.sql", "000001_a.down.sql",
		"README.md", "notes.up.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	list, err := ListMigrations(os.DirFS(dir))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint(1), list[0].Version)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "000002_b.down.sql", list[1].DownPath)

	missing, err := ListMigrations(os.DirFS(filepath.Join(dir, "nope")))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestEmbeddedSchemaIsComplete(t *testing.T) {
	list, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	for i, m := range list {
		assert.Equal(t, uint(i+1), m.Version, "versions have no gaps")
		_, err := migrations.FS.Open(m.DownPath)
		assert.NoError(t, err, "%s has a rollback", m.UpPath)
	}
}
