package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	os.Setenv("BOT_TOKEN", "123:test-token")
	os.Setenv("PRIVATE_CHANNEL_ID", "-1001234567890")
	os.Setenv("DATABASE_URL", "postgres://localhost/channelpass_test")
	defer func() {
		os.Unsetenv("BOT_TOKEN")
		os.Unsetenv("PRIVATE_CHANNEL_ID")
		os.Unsetenv("DATABASE_URL")
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:test-token", cfg.BotToken)
	assert.Equal(t, int64(-1001234567890), cfg.ChannelID)
	assert.Equal(t, 30, cfg.SubDays)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.OpsEnabled())
}

func TestLoadOverrides(t *testing.T) {
	os.Setenv("BOT_TOKEN", "123:test-token")
	os.Setenv("PRIVATE_CHANNEL_ID", "-100555")
	os.Setenv("DATABASE_URL", "postgres://localhost/channelpass_test")
	os.Setenv("SUB_DAYS", "7")
	os.Setenv("SWEEP_INTERVAL", "1m")
	os.Setenv("ADMIN_ID", "42")
	os.Setenv("JWT_SECRET", "secret")
	os.Setenv("OPS_USER", "admin")
	os.Setenv("OPS_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	defer func() {
		for _, k := range []string{
			"BOT_TOKEN", "PRIVATE_CHANNEL_ID", "DATABASE_URL", "SUB_DAYS",
			"SWEEP_INTERVAL", "ADMIN_ID", "JWT_SECRET", "OPS_USER", "OPS_PASSWORD_HASH",
		} {
			os.Unsetenv(k)
		}
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.SubDays)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, int64(42), cfg.AdminID)
	assert.True(t, cfg.OpsEnabled())
}

func TestLoadMissingRequired(t *testing.T) {
	os.Unsetenv("BOT_TOKEN")
	os.Setenv("PRIVATE_CHANNEL_ID", "-100555")
	os.Setenv("DATABASE_URL", "postgres://localhost/channelpass_test")
	defer func() {
		os.Unsetenv("PRIVATE_CHANNEL_ID")
		os.Unsetenv("DATABASE_URL")
	}()

	_, err := Load()
	assert.Error(t, err)
}
