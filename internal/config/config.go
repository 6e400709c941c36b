package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPath = "/config/container-copier.toml"
	EnvPrefix   = "COPIER"
)

type TargetConfig struct {
	Source string `mapstructure:"source"`
	Target string `mapstructure:"target"`
}

type CopysetConfig struct {
	Name    string         `mapstructure:"name"`
	Source  string         `mapstructure:"source"`
	Target  string         `mapstructure:"target"`
	Targets []TargetConfig `mapstructure:"targets"`
}

type Config struct {
	Debounce         time.Duration   `mapstructure:"debounce"`
	Workers          int             `mapstructure:"workers"`
	QueueSize        int             `mapstructure:"queue_size"`
	EventBuffer      int             `mapstructure:"event_buffer"`
	RetryAttempts    int             `mapstructure:"retry_attempts"`
	RetryInitial     time.Duration   `mapstructure:"retry_initial"`
	RetryMax         time.Duration   `mapstructure:"retry_max"`
	GracePeriod      time.Duration   `mapstructure:"grace_period"`
	CreateTargetDirs bool            `mapstructure:"create_target_dirs"`
	SkipUnchanged    bool            `mapstructure:"skip_unchanged"`
	StatusAddr       string          `mapstructure:"status_addr"`
	DBPath           string          `mapstructure:"db_path"`
	Copysets         []CopysetConfig `mapstructure:"copysets"`

	// Path is the file the configuration was read from.
	Path string `mapstructure:"-"`
}

var Default = Config{
	Debounce:         200 * time.Millisecond,
	Workers:          4,
	QueueSize:        64,
	EventBuffer:      256,
	RetryAttempts:    5,
	RetryInitial:     50 * time.Millisecond,
	RetryMax:         2 * time.Second,
	GracePeriod:      5 * time.Second,
	CreateTargetDirs: false,
	SkipUnchanged:    true,
	StatusAddr:       "127.0.0.1:9301",
	DBPath:           "",
}

// Load reads the configuration file at path. Runtime settings may be
// overridden with COPIER_* environment variables; copysets come only from the
// file.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("debounce", Default.Debounce)
	v.SetDefault("workers", Default.Workers)
	v.SetDefault("queue_size", Default.QueueSize)
	v.SetDefault("event_buffer", Default.EventBuffer)
	v.SetDefault("retry_attempts", Default.RetryAttempts)
	v.SetDefault("retry_initial", Default.RetryInitial)
	v.SetDefault("retry_max", Default.RetryMax)
	v.SetDefault("grace_period", Default.GracePeriod)
	v.SetDefault("create_target_dirs", Default.CreateTargetDirs)
	v.SetDefault("skip_unchanged", Default.SkipUnchanged)
	v.SetDefault("status_addr", Default.StatusAddr)
	v.SetDefault("db_path", Default.DBPath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("toml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Path = path

	if err := cfg.validateSettings(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateSettings() error {
	switch {
	case c.Debounce < 0:
		return fmt.Errorf("%w: debounce must not be negative", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	case c.QueueSize < 0:
		return fmt.Errorf("%w: queue_size must not be negative", ErrInvalidConfig)
	case c.EventBuffer < 1:
		return fmt.Errorf("%w: event_buffer must be at least 1", ErrInvalidConfig)
	case c.RetryAttempts < 1:
		return fmt.Errorf("%w: retry_attempts must be at least 1", ErrInvalidConfig)
	case c.RetryInitial <= 0 || c.RetryMax < c.RetryInitial:
		return fmt.Errorf("%w: retry_initial must be positive and not above retry_max", ErrInvalidConfig)
	case c.GracePeriod < 0:
		return fmt.Errorf("%w: grace_period must not be negative", ErrInvalidConfig)
	}

	return nil
}
