/*
Package config loads application configuration and initializes logging.

Sources, in precedence order: environment (PAYROLL_ prefix), an optional
config.yaml in the working directory, then defaults. The fiscal anchor here
is only the boot-time default; the live value is read from the store's
settings table at call time so admins can move it without a redeploy.
*/
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Payroll PayrollConfig `yaml:"payroll" mapstructure:"payroll"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// StoreConfig configures the backing database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PayrollConfig configures the payroll pipeline.
type PayrollConfig struct {
	// FiscalWeek1Ending is the default week-1 anchor date (ISO date).
	FiscalWeek1Ending string `yaml:"fiscal_week1_ending" mapstructure:"fiscal_week1_ending"`

	// ExportToken guards the mark-paid endpoint. Empty disables the guard.
	ExportToken string `yaml:"export_token" mapstructure:"export_token"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from env, optional config.yaml, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PAYROLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.path", "payroll.db")
	v.SetDefault("payroll.fiscal_week1_ending", "2025-04-06")
	v.SetDefault("payroll.export_token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger builds the zap logger described by cfg and installs it as the
// global logger.
func InitLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrapf(err, "config: bad log level %q", cfg.Level)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
