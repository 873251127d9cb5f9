package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 10, cfg.RateLimit.LoginLimit)
	assert.Equal(t, "0 3 * * *", cfg.Maintenance.TokenPurgeSchedule)
	assert.True(t, cfg.Migrations.AutoRun)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	v.Set("CACHE_TTL", "not-a-duration")
	v.Set("RATE_LIMIT_WINDOW", "30s")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestProductionRequiresSecret(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ENV", EnvProduction)

	_, err := fromViper(v)
	require.Error(t, err)

	v.Set("JWT_SECRET", "a-real-secret")
	_, err = fromViper(v)
	require.NoError(t, err)
}
