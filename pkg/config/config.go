// Package config loads panscan settings from a YAML file, PANSCAN_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/praetorian-inc/panscan/pkg/enum"
)

// EnvPrefix prefixes environment overrides, e.g. PANSCAN_SCAN_LIMIT.
const EnvPrefix = "PANSCAN"

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = ".panscan.yaml"

// Config is the full panscan configuration.
type Config struct {
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Scan   ScanConfig   `mapstructure:"scan" yaml:"scan"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ScanConfig holds the scan defaults that flags may override.
type ScanConfig struct {
	Track             string   `mapstructure:"track" yaml:"track"`
	Mask              bool     `mapstructure:"mask" yaml:"mask"`
	ASCIIOnly         bool     `mapstructure:"ascii_only" yaml:"ascii_only"`
	Limit             int      `mapstructure:"limit" yaml:"limit"`
	IgnoreFile        string   `mapstructure:"ignore_file" yaml:"ignore_file"`
	ExcludeExtensions []string `mapstructure:"exclude_extensions" yaml:"exclude_extensions"`
	ExcludeGlobs      []string `mapstructure:"exclude_globs" yaml:"exclude_globs"`
	Workers           int      `mapstructure:"workers" yaml:"workers"`
	MaxFileSize       int64    `mapstructure:"max_file_size" yaml:"max_file_size"`
	IncludeHidden     bool     `mapstructure:"include_hidden" yaml:"include_hidden"`
	RespectGitignore  bool     `mapstructure:"respect_gitignore" yaml:"respect_gitignore"`
	Extract           string   `mapstructure:"extract" yaml:"extract"`
}

// Values accepted by scan.track. An empty value or "0" disables the track
// checks.
const (
	TrackOne  = "1"
	TrackTwo  = "2"
	TrackBoth = "both"
)

// SetDefaults initializes default values for every key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Scan --
	v.SetDefault("scan.track", "")
	v.SetDefault("scan.mask", false)
	v.SetDefault("scan.ascii_only", false)
	v.SetDefault("scan.limit", 0)
	v.SetDefault("scan.ignore_file", "")
	v.SetDefault("scan.exclude_extensions", []string{})
	v.SetDefault("scan.exclude_globs", []string{})
	v.SetDefault("scan.workers", 0)
	v.SetDefault("scan.max_file_size", int64(0))
	v.SetDefault("scan.include_hidden", true)
	v.SetDefault("scan.respect_gitignore", false)
	v.SetDefault("scan.extract", "")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Init prepares v: defaults, environment binding and the config file.
// An explicit path must exist; the default file is optional.
func Init(v *viper.Viper, path string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// FromViper unmarshals and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logger.level %q must be debug, info, warn or error", c.Logger.Level)
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format %q must be console or json", c.Logger.Format)
	}
	return c.Scan.Validate()
}

// Validate checks the scan settings.
func (s *ScanConfig) Validate() error {
	switch strings.ToLower(s.Track) {
	case "", "0", TrackOne, TrackTwo, TrackBoth:
	default:
		return fmt.Errorf("scan.track %q must be 1, 2 or both", s.Track)
	}
	if s.Limit < 0 {
		return fmt.Errorf("scan.limit must not be negative")
	}
	if s.Workers < 0 {
		return fmt.Errorf("scan.workers must not be negative")
	}
	if s.MaxFileSize < 0 {
		return fmt.Errorf("scan.max_file_size must not be negative")
	}
	if s.Extract != "" && s.Extract != "all" {
		for _, f := range strings.Split(s.Extract, ",") {
			f = strings.TrimSpace(f)
			if !enum.IsExtractable("x." + f) {
				return fmt.Errorf("scan.extract: unsupported format %q", f)
			}
		}
	}
	return nil
}

// Track1 reports whether track 1 framing is checked.
func (s *ScanConfig) Track1() bool {
	t := strings.ToLower(s.Track)
	return t == TrackOne || t == TrackBoth
}

// Track2 reports whether track 2 framing is checked.
func (s *ScanConfig) Track2() bool {
	t := strings.ToLower(s.Track)
	return t == TrackTwo || t == TrackBoth
}

// Tracks reports whether any track check is enabled.
func (s *ScanConfig) Tracks() bool {
	return s.Track1() || s.Track2()
}

// Extensions returns the excluded extensions, splitting comma lists so
// "-n .dll,.exe" and a YAML list behave the same.
func (s *ScanConfig) Extensions() []string {
	var out []string
	for _, e := range s.ExcludeExtensions {
		for _, part := range strings.Split(e, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
