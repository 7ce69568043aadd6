package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all externally supplied settings for the surveillance
// service. Window durations and retry/cache limits are validated at load
// time; components receive already-validated values.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Detection   DetectionConfig   `mapstructure:"detection"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Store       StoreConfig       `mapstructure:"store"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DetectionConfig configures the pattern detectors
type DetectionConfig struct {
	OrdersWindow        time.Duration `mapstructure:"orders_window"`
	CancelWindow        time.Duration `mapstructure:"cancel_window"`
	OppositeTradeWindow time.Duration `mapstructure:"opposite_trade_window"`
	WashWindow          time.Duration `mapstructure:"wash_window"`
}

// CoordinatorConfig configures retry, timeout and idempotency caching
type CoordinatorConfig struct {
	MaxRetries    int           `mapstructure:"max_retries"`
	CallTimeout   time.Duration `mapstructure:"call_timeout"`
	BackoffBase   time.Duration `mapstructure:"backoff_base"`
	CacheCapacity int           `mapstructure:"cache_capacity"`
}

// StoreConfig configures the optional detection writer
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from an optional YAML file plus environment
// variables prefixed with TRADEWATCH_, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("TRADEWATCH")

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8085)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("detection.orders_window", 10*time.Second)
	v.SetDefault("detection.cancel_window", 30*time.Second)
	v.SetDefault("detection.opposite_trade_window", 60*time.Second)
	v.SetDefault("detection.wash_window", 30*time.Minute)

	v.SetDefault("coordinator.max_retries", 3)
	v.SetDefault("coordinator.call_timeout", 30*time.Second)
	v.SetDefault("coordinator.backoff_base", time.Second)
	v.SetDefault("coordinator.cache_capacity", 1024)

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "tradewatch.db")
}

// Validate enforces that every duration and limit is strictly positive
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	durations := map[string]time.Duration{
		"detection.orders_window":         c.Detection.OrdersWindow,
		"detection.cancel_window":         c.Detection.CancelWindow,
		"detection.opposite_trade_window": c.Detection.OppositeTradeWindow,
		"detection.wash_window":           c.Detection.WashWindow,
		"coordinator.call_timeout":        c.Coordinator.CallTimeout,
		"coordinator.backoff_base":        c.Coordinator.BackoffBase,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be strictly positive, got %s", name, d)
		}
	}
	if c.Coordinator.MaxRetries < 0 {
		return fmt.Errorf("coordinator.max_retries must be non-negative, got %d", c.Coordinator.MaxRetries)
	}
	if c.Coordinator.CacheCapacity <= 0 {
		return fmt.Errorf("coordinator.cache_capacity must be positive, got %d", c.Coordinator.CacheCapacity)
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path must be set when store is enabled")
	}
	return nil
}
