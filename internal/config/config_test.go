package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_NAME", "shop")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.snippe.sh", cfg.Snippe.BaseURL)
	assert.Equal(t, "WC-", cfg.Snippe.OrderPrefix)
	assert.Equal(t, "mobile", cfg.Snippe.PaymentType)
	assert.Equal(t, 30*time.Second, cfg.Snippe.Timeout)
	assert.Equal(t, "255", cfg.Store.CountryCode)
	assert.True(t, cfg.Snippe.Logging)
}

func TestLoad_APIKeyFollowsMode(t *testing.T) {
	t.Setenv("SNIPPE_TEST_API_KEY", "test_key")
	t.Setenv("SNIPPE_LIVE_API_KEY", "live_key")

	t.Setenv("SNIPPE_TEST_MODE", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test_key", cfg.Snippe.APIKey())

	t.Setenv("SNIPPE_TEST_MODE", "false")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "live_key", cfg.Snippe.APIKey())
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("SNIPPE_TIMEOUT", "soon")
	t.Setenv("SNIPPE_SYNC_MIN_AGE", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Snippe.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Sync.MinAge)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "3306", Name: "shop", User: "u", Pass: "p", Charset: "utf8mb4"}
	assert.Equal(t, "u:p@tcp(db:3306)/shop?charset=utf8mb4&parseTime=True&loc=Local", d.DSN())
}
