// Package config provides configuration management for the risk desk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"zerodha-risk/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Analytics   AnalyticsConfig `mapstructure:"analytics"`
	Broker      BrokerConfig    `mapstructure:"broker"`
	Store       StoreConfig     `mapstructure:"store"`
	Log         LogConfig       `mapstructure:"log"`
	UI          UIConfig        `mapstructure:"ui"`
	Credentials Credentials     `mapstructure:"-" json:"-"` // Loaded separately
	Dir         string          `mapstructure:"-"`
}

// AnalyticsConfig holds analysis defaults.
type AnalyticsConfig struct {
	DefaultVolatility float64 `mapstructure:"default_volatility"` // annualised, percent
	Workers           int     `mapstructure:"workers"`            // batch concurrency, 0 = NumCPU
}

// BrokerConfig holds Kite Connect client settings.
type BrokerConfig struct {
	InstrumentCacheTTL time.Duration `mapstructure:"instrument_cache_ttl"`
	RetryAttempts      int           `mapstructure:"retry_attempts"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second"`
	SessionPath        string        `mapstructure:"session_path"`
}

// StoreConfig holds report history settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	File    bool   `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
	Path    string `mapstructure:"path"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool `mapstructure:"color_enabled"`
}

// Credentials holds API credentials.
type Credentials struct {
	Zerodha ZerodhaCredentials `mapstructure:"zerodha"`
}

// ZerodhaCredentials holds Zerodha API credentials.
type ZerodhaCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	UserID    string `mapstructure:"user_id"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/zerodha-risk"
	}
	return filepath.Join(home, ".config", "zerodha-risk")
}

// Load loads configuration from the specified directory, writing templates
// for any missing file. If configDir is empty, uses the default config
// directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// .env files only fill variables that are not already set.
	_ = godotenv.Load()
	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	cfg := &Config{Dir: configDir}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("analytics.default_volatility", 15.0)
	v.SetDefault("analytics.workers", 0)
	v.SetDefault("broker.instrument_cache_ttl", "12h")
	v.SetDefault("broker.retry_attempts", 3)
	v.SetDefault("broker.requests_per_second", 10.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", true)
	v.SetDefault("log.console", false)
	v.SetDefault("ui.color_enabled", true)
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplate(configDir, "config.toml", configTemplate, 0644); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Restricted permissions for the credentials file.
		return createTemplate(configDir, "credentials.toml", credentialsTemplate, 0600)
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZERODHA_API_KEY"); v != "" {
		cfg.Credentials.Zerodha.APIKey = v
	}
	if v := os.Getenv("ZERODHA_API_SECRET"); v != "" {
		cfg.Credentials.Zerodha.APISecret = v
	}
	if v := os.Getenv("ZERODHA_USER_ID"); v != "" {
		cfg.Credentials.Zerodha.UserID = v
	}
	if v := os.Getenv("RISKDESK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Analytics.DefaultVolatility <= 0 || c.Analytics.DefaultVolatility > 500 {
		return errors.Wrapf(errors.ErrConfigInvalid, "default_volatility must be in (0, 500] percent, got %g", c.Analytics.DefaultVolatility)
	}
	if c.Analytics.Workers < 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "workers must be non-negative")
	}
	if c.Broker.InstrumentCacheTTL < 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "instrument_cache_ttl must be non-negative")
	}
	if c.Broker.RetryAttempts < 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "retry_attempts must be non-negative")
	}
	if c.Broker.RequestsPerSecond < 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "requests_per_second must be non-negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return errors.Wrapf(errors.ErrConfigInvalid, "invalid log level: %s", c.Log.Level)
	}
	return nil
}

// HasCredentials reports whether Kite API credentials are configured.
func (c *Config) HasCredentials() bool {
	return c.Credentials.Zerodha.APIKey != "" && c.Credentials.Zerodha.APISecret != ""
}

// Volatility returns the default volatility as a fraction.
func (c *Config) Volatility() float64 {
	return c.Analytics.DefaultVolatility / 100
}

// StorePath returns the report database path.
func (c *Config) StorePath() string {
	return c.pathOr(c.Store.Path, "riskdesk.db")
}

// SessionPath returns where the Kite session token is kept.
func (c *Config) SessionPath() string {
	return c.pathOr(c.Broker.SessionPath, "session.json")
}

// LogPath returns the rotating log file path.
func (c *Config) LogPath() string {
	return c.pathOr(c.Log.Path, filepath.Join("logs", "riskdesk.log"))
}

func (c *Config) pathOr(configured, name string) string {
	if configured != "" {
		return expandHome(configured)
	}
	dir := c.Dir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return filepath.Join(dir, name)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
