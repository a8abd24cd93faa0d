// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading     TradingConfig  `mapstructure:"trading"`
	Polling     PollingConfig  `mapstructure:"polling"`
	Snapshot    SnapshotConfig `mapstructure:"snapshot"`
	UI          UIConfig       `mapstructure:"ui"`
	Credentials Credentials    `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode            string `mapstructure:"mode"`             // "live", "paper"
	DefaultExchange string `mapstructure:"default_exchange"` // NSE, BSE
	Overnight       bool   `mapstructure:"overnight"`        // Carry positions overnight
}

// PollingConfig holds order-status polling configuration. The defaults
// match the broker's observed fill latency; changing them changes the
// order lifecycle contract.
type PollingConfig struct {
	MaxPolls int           `mapstructure:"max_polls"`
	Interval time.Duration `mapstructure:"interval"`
}

// SnapshotConfig holds instrument snapshot configuration.
type SnapshotConfig struct {
	CacheDir string        `mapstructure:"cache_dir"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	Fyers FyersCredentials `mapstructure:"fyers"`
}

// FyersCredentials holds Fyers API credentials.
type FyersCredentials struct {
	AppID       string `mapstructure:"app_id"`
	AppSecret   string `mapstructure:"app_secret"`
	ClientID    string `mapstructure:"client_id"`    // fy_id, for auto-login
	PIN         string `mapstructure:"pin"`          // For auto-login
	TOTPSecret  string `mapstructure:"totp_secret"`  // For auto-login with 2FA
	RedirectURI string `mapstructure:"redirect_uri"` // OAuth callback
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/fyers-trader"
	}
	return filepath.Join(home, ".config", "fyers-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	// Load main config
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)
	applyDefaults(cfg, configDir)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("trading.mode", "paper")
	v.SetDefault("trading.default_exchange", "NSE")
	v.SetDefault("polling.max_polls", 3)
	v.SetDefault("polling.interval", 500*time.Millisecond)
	v.SetDefault("snapshot.max_age", 24*time.Hour)
	v.SetDefault("ui.color_enabled", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template and keep defaults
			if terr := createTemplateConfig(configDir, name); terr != nil {
				return terr
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	// Fyers credentials
	if v := os.Getenv("FYERS_APP_ID"); v != "" {
		cfg.Credentials.Fyers.AppID = v
	}
	if v := os.Getenv("FYERS_APP_SECRET"); v != "" {
		cfg.Credentials.Fyers.AppSecret = v
	}
	if v := os.Getenv("FYERS_CLIENT_ID"); v != "" {
		cfg.Credentials.Fyers.ClientID = v
	}
	if v := os.Getenv("FYERS_REDIRECT_URI"); v != "" {
		cfg.Credentials.Fyers.RedirectURI = v
	}

	// Trading mode
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

func applyDefaults(cfg *Config, configDir string) {
	if cfg.Snapshot.CacheDir == "" {
		cfg.Snapshot.CacheDir = filepath.Join(configDir, "instruments")
	}
	if cfg.Polling.MaxPolls <= 0 {
		cfg.Polling.MaxPolls = 3
	}
	if cfg.Polling.Interval <= 0 {
		cfg.Polling.Interval = 500 * time.Millisecond
	}
	if cfg.UI.DateFormat == "" {
		cfg.UI.DateFormat = "02-Jan-2006"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.Mode != "" && c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'paper')", c.Trading.Mode)
	}

	if c.Polling.MaxPolls < 0 {
		return fmt.Errorf("polling max_polls must be non-negative")
	}
	if c.Polling.Interval < 0 {
		return fmt.Errorf("polling interval must be non-negative")
	}

	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode == "paper"
}
