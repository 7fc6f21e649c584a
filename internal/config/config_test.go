package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "UPSTREAM_TIMEOUT", "BACKEND_URL", "CORS_ALLOW_ORIGINS", "JWT_SECRET",
		"DATABASE_URL", "RUN_MIGRATIONS", "RABBITMQ_URL", "GATEWAY", "SIGN_IN_PATH"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "http://localhost:8090/api/v1/", cfg.BackendURL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.Equal(t, GatewayFake, cfg.Gateway)
	assert.Equal(t, "/login", cfg.SignInPath)
	assert.True(t, cfg.RunMigrations)
	assert.Empty(t, cfg.DatabaseDSN)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("BACKEND_URL", "http://backend:8090/api/v1/")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("GATEWAY", "Stripe")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "http://backend:8090/api/v1/", cfg.BackendURL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowOrigins)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, GatewayStripe, cfg.Gateway)
	assert.Equal(t, "sk_test_123", cfg.StripeSecretKey)
}

func TestParseDurationFallsBack(t *testing.T) {
	assert.Equal(t, time.Second, parseDuration("soon", time.Second))
}
