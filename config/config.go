// Package config loads server configuration from an optional YAML file and
// the environment. Environment variables use the LEDGER_ prefix
// (LEDGER_STORAGE_MODE, LEDGER_DSN, ...) and override file values.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// StorageMode selects the backend once at startup. Mutation logic never
// branches on it.
type StorageMode string

const (
	ModeGuest  StorageMode = "guest"  // device-local JSON document
	ModeRemote StorageMode = "remote" // relational store
)

type Config struct {
	Mode StorageMode `mapstructure:"storage_mode"`

	// Remote mode
	Driver string `mapstructure:"driver"` // sqlite3 or postgres
	DSN    string `mapstructure:"dsn"`

	// Guest mode
	DataFile string `mapstructure:"data_file"`

	// Identity handed to the engine. Remote mode requires it; guest mode
	// falls back to the guest sentinel.
	UserID string `mapstructure:"user_id"`

	Port int `mapstructure:"port"`
}

// Load reads path (optional, "" skips the file) plus the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("storage_mode", string(ModeGuest))
	v.SetDefault("driver", "sqlite3")
	v.SetDefault("data_file", "ledger.json")
	v.SetDefault("port", 8080)

	v.SetEnvPrefix("LEDGER")
	v.AutomaticEnv()
	// Unmarshal only sees keys that are bound or defaulted; bind the
	// env-only ones explicitly.
	for _, key := range []string{"storage_mode", "driver", "dsn", "data_file", "user_id", "port"} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeGuest:
	case ModeRemote:
		if c.DSN == "" {
			return fmt.Errorf("remote mode requires dsn")
		}
		if c.Driver != "sqlite3" && c.Driver != "postgres" {
			return fmt.Errorf("unsupported driver %q", c.Driver)
		}
		if c.UserID == "" {
			return fmt.Errorf("remote mode requires user_id")
		}
	default:
		return fmt.Errorf("unknown storage_mode %q", c.Mode)
	}
	return nil
}
