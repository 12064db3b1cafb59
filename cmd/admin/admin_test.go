package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
)

func setAdminEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")
}

func runAdmin(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedSuperAdmin(t *testing.T) {
	setAdminEnv(t)
	t.Setenv("SUPERADMIN_PASSWORD", "change-me-now")

	out, err := runAdmin(t, "seed-superadmin", "--email", "root@hotel.test")
	require.NoError(t, err)
	assert.Contains(t, out, "superadmin root@hotel.test created")
}

func TestSeedSuperAdminNeedsPassword(t *testing.T) {
	setAdminEnv(t)
	t.Setenv("SUPERADMIN_PASSWORD", "")

	_, err := runAdmin(t, "seed-superadmin", "--email", "root@hotel.test")
	require.Error(t, err)
}

func TestExportLeakageToFile(t *testing.T) {
	setAdminEnv(t)
	path := filepath.Join(t.TempDir(), "leakage.xlsx")

	out, err := runAdmin(t, "export-leakage", "--from", "2026-03-01", "--to", "2026-03-31", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	title, err := f.GetCellValue("Leakage", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Leakage by hotel 2026-03-01 to 2026-03-31", title)
}

func TestExportLeakageToSheetsWithoutConfig(t *testing.T) {
	setAdminEnv(t)
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "")
	t.Setenv("GOOGLE_SHEET_REPORTS_ID", "")

	_, err := runAdmin(t, "export-leakage", "--sheets")
	require.Error(t, err)
}

func TestLeakageQuery(t *testing.T) {
	q, err := leakageQuery("2026-03-01", "2026-03-01", "item", "", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, models.GroupByItem, q.GroupBy)
	assert.True(t, q.To.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, q.HotelID)

	_, err = leakageQuery("01/03/2026", "", "hotel", "", time.UTC)
	require.Error(t, err)

	_, err = leakageQuery("", "", "hotel", "nope", time.UTC)
	require.Error(t, err)
}
