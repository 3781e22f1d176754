package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.TypingTTL)
	assert.Equal(t, 15*time.Second, cfg.FacilitatorMaxDelay)
	assert.Equal(t, 0.3, cfg.FacilitatorSummaryChance)
	assert.Empty(t, cfg.DatabaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CIRCLES_PORT", "9000")
	t.Setenv("CIRCLES_TYPING_TTL", "2s")
	t.Setenv("CIRCLES_REDIS_URL", "redis://localhost:6379/1")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.TypingTTL)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
}

func TestFromEnv_BadDuration(t *testing.T) {
	t.Setenv("CIRCLES_TYPING_TTL", "soon")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := FromEnv()
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Environment = "production"
	assert.ErrorContains(t, cfg.Validate(), "JWT secret")

	cfg.JWTSecret = "s3cret"
	assert.ErrorContains(t, cfg.Validate(), "database URL")

	cfg.DatabaseURL = "postgres://localhost/circles"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsProduction())

	cfg = base()
	cfg.FacilitatorMaxDelay = time.Second
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.FacilitatorSummaryChance = 1.5
	assert.Error(t, cfg.Validate())
}
