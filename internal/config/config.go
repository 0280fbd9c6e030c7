// Package config loads normativ settings from normativ.yaml, NORMATIV_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/normativ/internal/engine"
	"github.com/roach88/normativ/internal/store"
)

const (
	configFileName = "normativ"
	configFileType = "yaml"
	envPrefix      = "NORMATIV"

	IsolationReadCommitted = "read_committed"
	IsolationSerializable  = "serializable"
)

// Config is the resolved configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Compose  ComposeConfig  `mapstructure:"compose"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ComposeConfig struct {
	ConflictPolicy string        `mapstructure:"conflict_policy"`
	Isolation      string        `mapstructure:"isolation"`
	MaxRetries     int           `mapstructure:"max_retries"`
	MaxEntries     int           `mapstructure:"max_entries"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	// Textfile, when set, receives the Prometheus text exposition after
	// each command.
	Textfile string `mapstructure:"textfile"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"db":     "database.dsn",
	"driver": "database.driver",
	"policy": "compose.conflict_policy",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", store.SQLite.Driver)
	v.SetDefault("database.dsn", "normativ.db")
	v.SetDefault("compose.conflict_policy", string(engine.PolicyReject))
	v.SetDefault("compose.isolation", IsolationReadCommitted)
	v.SetDefault("compose.max_retries", engine.DefaultMaxRetries)
	v.SetDefault("compose.max_entries", engine.DefaultMaxEntries)
	v.SetDefault("compose.timeout", engine.DefaultTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.textfile", "")
}

// Load resolves the configuration.
//
// path names an explicit config file, which must exist. When path is empty,
// normativ.yaml in the working directory is read if present. flags may be
// nil; only flags the user actually set override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown drivers, policies, isolation levels and log
// settings, and negative limits.
func (c *Config) Validate() error {
	var errs []error
	if _, err := store.DialectFor(c.Database.Driver); err != nil {
		errs = append(errs, fmt.Errorf("database.driver: %w", err))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn: must not be empty"))
	}
	if _, err := engine.ParseConflictPolicy(c.Compose.ConflictPolicy); err != nil {
		errs = append(errs, fmt.Errorf("compose.conflict_policy: %w", err))
	}
	switch c.Compose.Isolation {
	case IsolationReadCommitted, IsolationSerializable:
	default:
		errs = append(errs, fmt.Errorf("compose.isolation: unknown level %q (want %s or %s)",
			c.Compose.Isolation, IsolationReadCommitted, IsolationSerializable))
	}
	if c.Compose.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("compose.max_retries: must not be negative, got %d", c.Compose.MaxRetries))
	}
	if c.Compose.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("compose.max_entries: must not be negative, got %d", c.Compose.MaxEntries))
	}
	if c.Compose.Timeout < 0 {
		errs = append(errs, fmt.Errorf("compose.timeout: must not be negative, got %s", c.Compose.Timeout))
	}
	if _, err := c.level(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q (want text or json)", c.Log.Format))
	}
	return errors.Join(errs...)
}

func (c *Config) level() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(c.Log.Level))
	return lvl, err
}

// Logger builds the configured slog logger writing to w. verbose forces
// debug level.
func (c *Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	lvl, err := c.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// OpenStore opens the configured database.
func (c *Config) OpenStore(ctx context.Context) (*store.Store, error) {
	d, err := store.DialectFor(c.Database.Driver)
	if err != nil {
		return nil, err
	}
	return store.OpenDialect(ctx, d, c.Database.DSN)
}

// EngineOptions translates the compose settings into engine options.
func (c *Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithConflictPolicy(engine.ConflictPolicy(c.Compose.ConflictPolicy)),
		engine.WithSerializable(c.Compose.Isolation == IsolationSerializable),
		engine.WithMaxRetries(c.Compose.MaxRetries),
		engine.WithMaxEntries(c.Compose.MaxEntries),
		engine.WithTimeout(c.Compose.Timeout),
	}
}
