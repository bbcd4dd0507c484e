package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("METRICS_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.MetricsToken, "metrics endpoint off unless a scrape token is set")
	assert.Equal(t, "guarderia.db", cfg.DatabaseURL)
	assert.Equal(t, "admin", cfg.BootstrapAdminUsername)
	assert.Equal(t, int64(0), cfg.AccessTTLSeconds)
	assert.Equal(t, 7, cfg.LogRetentionDays)
	assert.Nil(t, cfg.CorsOrigins)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("LOG_RETENTION_DAYS", "30")
	t.Setenv("ACCESS_TTL_SECONDS", "not-a-number")
	t.Setenv("METRICS_TOKEN", "scrape-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CorsOrigins)
	assert.Equal(t, 7, cfg.LogRetentionDays)
	assert.Equal(t, int64(0), cfg.AccessTTLSeconds)
	assert.Equal(t, "scrape-secret", cfg.MetricsToken)
}
