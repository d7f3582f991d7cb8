// Package config loads rustysec settings from defaults, an optional YAML
// file, RUSTYSEC_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "rustysec"
	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "RUSTYSEC"
	// DefaultConfigFile is looked up in the working directory.
	DefaultConfigFile = ".rustysec.yaml"
)

// Config holds the CLI settings
type Config struct {
	MaxInputBytes int64         `mapstructure:"max_input_bytes"`
	Output        string        `mapstructure:"output"`
	Debug         bool          `mapstructure:"debug"`
	LogFormat     string        `mapstructure:"log_format"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	InsecureTLS   bool          `mapstructure:"insecure_tls"`
	SkipRules     []string      `mapstructure:"skip_rules"`
}

// DefaultConfig returns the built-in settings
func DefaultConfig() *Config {
	return &Config{
		MaxInputBytes: 10 << 20,
		LogFormat:     "text",
		HTTPTimeout:   10 * time.Second,
		SkipRules:     []string{},
	}
}

// flagKeys maps flag names to config keys
var flagKeys = map[string]string{
	"max-bytes":  "max_input_bytes",
	"output":     "output",
	"debug":      "debug",
	"log-format": "log_format",
	"timeout":    "http_timeout",
	"insecure":   "insecure_tls",
	"skip":       "skip_rules",
}

// Load resolves the configuration. path names an explicit config file and
// may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("max_input_bytes", defaults.MaxInputBytes)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("http_timeout", defaults.HTTPTimeout)
	v.SetDefault("insecure_tls", defaults.InsecureTLS)
	v.SetDefault("skip_rules", defaults.SkipRules)

	v.SetConfigType("yaml")
	switch {
	case path != "":
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	case fileExists(DefaultConfigFile):
		v.SetConfigFile(DefaultConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", DefaultConfigFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error
	if c.MaxInputBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_input_bytes must be positive, got %d", c.MaxInputBytes))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout))
	}
	return errors.Join(errs...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
