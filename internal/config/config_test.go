package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerodha-risk/internal/errors"
)

func TestLoad_CreatesTemplatesWithDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "zerodha-risk")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "config.toml"))
	info, err := os.Stat(filepath.Join(dir, "credentials.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	assert.Equal(t, 15.0, cfg.Analytics.DefaultVolatility)
	assert.InDelta(t, 0.15, cfg.Volatility(), 1e-15)
	assert.Equal(t, 12*time.Hour, cfg.Broker.InstrumentCacheTTL)
	assert.Equal(t, 3, cfg.Broker.RetryAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "riskdesk.db"), cfg.StorePath())
	assert.Equal(t, filepath.Join(dir, "session.json"), cfg.SessionPath())
	assert.Equal(t, filepath.Join(dir, "logs", "riskdesk.log"), cfg.LogPath())

	// Second load reads the templates back.
	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.Analytics, again.Analytics)
	assert.Equal(t, cfg.Broker, again.Broker)
}

func TestLoad_ReadsFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[analytics]
default_volatility = 22.5
workers = 4

[broker]
instrument_cache_ttl = "30m"
retry_attempts = 5

[store]
path = "/var/lib/riskdesk/history.db"

[log]
level = "debug"
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.toml"), []byte(`
[zerodha]
api_key = "kitekey"
api_secret = "kitesecret"
user_id = "AB1234"
`), 0600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 22.5, cfg.Analytics.DefaultVolatility)
	assert.Equal(t, 4, cfg.Analytics.Workers)
	assert.Equal(t, 30*time.Minute, cfg.Broker.InstrumentCacheTTL)
	assert.Equal(t, 5, cfg.Broker.RetryAttempts)
	assert.Equal(t, 10.0, cfg.Broker.RequestsPerSecond, "unset keys keep defaults")
	assert.Equal(t, "/var/lib/riskdesk/history.db", cfg.StorePath())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.HasCredentials())
	assert.Equal(t, "AB1234", cfg.Credentials.Zerodha.UserID)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ZERODHA_API_KEY", "envkey")
	t.Setenv("ZERODHA_API_SECRET", "envsecret")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "envkey", cfg.Credentials.Zerodha.APIKey)
	assert.Equal(t, "envsecret", cfg.Credentials.Zerodha.APISecret)
	assert.True(t, cfg.HasCredentials())
}

func TestLoad_DotEnvInConfigDir(t *testing.T) {
	if _, set := os.LookupEnv("ZERODHA_USER_ID"); set {
		t.Skip("ZERODHA_USER_ID already set in the environment")
	}
	t.Cleanup(func() { os.Unsetenv("ZERODHA_USER_ID") })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ZERODHA_USER_ID=XY9876\n"), 0600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "XY9876", cfg.Credentials.Zerodha.UserID)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[analytics]
default_volatility = -5
`), 0644))

	_, err := Load(dir)
	assert.True(t, errors.Is(err, errors.ErrConfigInvalid))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Analytics: AnalyticsConfig{DefaultVolatility: 18},
			Log:       LogConfig{Level: "info"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(*Config){
		"zero volatility":  func(c *Config) { c.Analytics.DefaultVolatility = 0 },
		"huge volatility":  func(c *Config) { c.Analytics.DefaultVolatility = 900 },
		"negative workers": func(c *Config) { c.Analytics.Workers = -1 },
		"negative ttl":     func(c *Config) { c.Broker.InstrumentCacheTTL = -time.Second },
		"negative retries": func(c *Config) { c.Broker.RetryAttempts = -1 },
		"negative rate":    func(c *Config) { c.Broker.RequestsPerSecond = -1 },
		"bad log level":    func(c *Config) { c.Log.Level = "chatty" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.True(t, errors.Is(c.Validate(), errors.ErrConfigInvalid))
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "risk", "db.sqlite"), expandHome("~/risk/db.sqlite"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
}
