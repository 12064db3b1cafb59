package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_PORT", "STORAGE_DRIVER", "JWT_TTL", "WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID",
		"GOOGLE_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEET_REPORTS_ID", "GCS_BUCKET", "REDIS_ADDR", "TIMEZONE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://md.example.com, https://store.example.com,")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"https://md.example.com", "https://store.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "mongodb", cfg.Storage.Driver)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.Bills.Enabled())
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.EqualError(t, err, "JWT_SECRET must be provided")
}

func TestValidateRejectsPartialIntegrations(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8080"},
			Storage:   StorageConfig{Driver: "memory"},
			Auth:      AuthConfig{JWTSecret: "s", TokenTTL: time.Hour},
			Bills:     BillsConfig{MaxUploadBytes: 1},
			Reporting: ReportingConfig{CronSchedule: "0 1 * * *", Timezone: "UTC"},
		}
	}
	require.NoError(t, base().Validate())

	cfg := base()
	cfg.WhatsApp.AccessToken = "token"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Sheets.SpreadsheetID = "sheet"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Driver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Reporting.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}
