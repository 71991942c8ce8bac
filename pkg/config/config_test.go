package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "SCAN_START", cfg.Scanner.TriggerBarcode)
	assert.Equal(t, 24, cfg.Alerts.ThresholdHours)
	assert.Equal(t, time.Hour, cfg.Alerts.CheckInterval)
	assert.Equal(t, 50*time.Millisecond, cfg.Scanner.SerialPollInterval)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SCANTRACK_DB_DRIVER", "postgres")
	t.Setenv("SCANTRACK_DB_DSN", "postgres://localhost/scantrack")
	t.Setenv("SCANTRACK_ALERT_THRESHOLD_HOURS", "48")
	t.Setenv("SCANTRACK_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, 48, cfg.Alerts.ThresholdHours)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("SCANTRACK_DB_DRIVER", "oracle")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveThreshold(t *testing.T) {
	t.Setenv("SCANTRACK_ALERT_THRESHOLD_HOURS", "0")
	_, err := Load()
	assert.Error(t, err)
}
