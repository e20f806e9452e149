package csrf

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)

	assert.Equal(t, "csrf_token", p.cfg.CookieName)
	assert.Equal(t, "X-CSRF-Token", p.cfg.HeaderName)
	assert.Equal(t, "csrf_token", p.cfg.FormField)
	assert.Equal(t, "/", p.cfg.CookiePath)
	assert.Equal(t, 32, p.cfg.TokenBytes)
	assert.Equal(t, http.SameSiteLaxMode, p.cfg.CookieSameSite)
	assert.Equal(t, NewFormOrHeaderPolicy("X-CSRF-Token", "csrf_token"), p.policy)

	store, ok := p.Storage().(*Store)
	require.True(t, ok)
	assert.IsType(t, SimpleTokenGenerator{}, store.generator)
	assert.IsType(t, &CookieBackend{}, store.Backend())
}

func TestNewWithSecretUsesHashedTokens(t *testing.T) {
	p, err := New(Config{Secret: "s3cr3t"})
	require.NoError(t, err)

	store, ok := p.Storage().(*Store)
	require.True(t, ok)
	assert.IsType(t, &HashedTokenGenerator{}, store.generator)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CSRF_COOKIE_NAME", "xsrf")
	t.Setenv("CSRF_COOKIE_SECURE", "true")
	t.Setenv("CSRF_COOKIE_SAMESITE", "strict")
	t.Setenv("CSRF_COOKIE_MAX_AGE", "600")
	t.Setenv("CSRF_HEADER_NAME", "X-XSRF-Token")
	t.Setenv("CSRF_ENFORCE_ORIGIN_CHECK", "true")
	t.Setenv("CSRF_ALLOWED_ORIGIN", "app.example.com")
	t.Setenv("CSRF_SECRET", "s3cr3t")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "xsrf", cfg.CookieName)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, http.SameSiteStrictMode, cfg.CookieSameSite)
	assert.Equal(t, 600, cfg.CookieMaxAge)
	assert.Equal(t, "X-XSRF-Token", cfg.HeaderName)
	assert.True(t, cfg.EnforceOriginCheck)
	assert.Equal(t, "app.example.com", cfg.AllowedOrigin)
	assert.Equal(t, "s3cr3t", cfg.Secret)
	assert.Empty(t, cfg.FormField)
}

func TestConfigFromEnvRejectsBadSameSite(t *testing.T) {
	t.Setenv("CSRF_COOKIE_SAMESITE", "sometimes")

	_, err := ConfigFromEnv()
	require.Error(t, err)
}

func TestConfigStringRedactsSecret(t *testing.T) {
	cfg := Config{CookieName: "csrf_token", Secret: "s3cr3t"}
	out := fmt.Sprint(cfg)
	assert.NotContains(t, out, "s3cr3t")
	assert.Contains(t, out, "csrf_token")
	assert.Equal(t, "s3cr3t", cfg.Secret)
}
