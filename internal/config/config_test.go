package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Backend.BaseURL)
	assert.Equal(t, "/auth/verify-email", cfg.Backend.VerifyPath)
	assert.Equal(t, 2*time.Second, cfg.RedirectDelay)
	assert.Equal(t, "/login", cfg.LoginRoute)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://crm.example.com/")
	t.Setenv("REDIRECT_DELAY_MS", "500")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_RPS", "0.5")

	cfg := Load()
	assert.Equal(t, "https://crm.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.RedirectDelay)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 0.5, cfg.RateLimitRPS)
}

func TestLoad_BadNumberFallsBack(t *testing.T) {
	t.Setenv("REDIRECT_DELAY_MS", "soon")
	assert.Equal(t, 2*time.Second, Load().RedirectDelay)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Load()
	cfg.Backend.BaseURL = "not a url"
	cfg.LoginRoute = "login"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Backend.BaseURL")
	assert.Contains(t, err.Error(), "Config.LoginRoute")
}
