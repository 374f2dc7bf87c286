// Package config loads flowbox settings from a YAML file, FLOWBOX_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "FLOWBOX"

type Config struct {
	Server   ServerConfig `mapstructure:"server" yaml:"server"`
	Fetch    FetchConfig  `mapstructure:"fetch" yaml:"fetch"`
	JS       JSConfig     `mapstructure:"js" yaml:"js"`
	Cache    CacheConfig  `mapstructure:"cache" yaml:"cache"`
	SitesDir string       `mapstructure:"sites_dir" yaml:"sites_dir"`
	Logger   LoggerConfig `mapstructure:"logger" yaml:"logger"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	// MaxBodyBytes caps documents posted to /boxes.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// FetchConfig controls upstream requests made by /fetch.
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBytes  int64         `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// JSConfig controls headless browser rendering.
type JSConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// WaitNetworkIdle is how long the network must stay quiet before the
	// document is read back. Zero skips the wait.
	WaitNetworkIdle time.Duration `mapstructure:"wait_network_idle" yaml:"wait_network_idle"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8081")
	v.SetDefault("server.read_header_timeout", "5s")
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.max_body_bytes", 8<<20)

	v.SetDefault("fetch.timeout", "8s")
	v.SetDefault("fetch.user_agent", "flowbox/1.0")
	v.SetDefault("fetch.max_bytes", 4<<20)

	v.SetDefault("js.enabled", false)
	v.SetDefault("js.timeout", "25s")
	v.SetDefault("js.wait_network_idle", "500ms")

	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("sites_dir", "config/sites")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
}

// NewViper returns a viper instance with defaults and environment lookup
// set up. When file is empty ./flowbox.yaml is used if present.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("flowbox")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return v, nil
}

// Load decodes the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration made of default values only.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.JS.Enabled && c.JS.Timeout <= 0 {
		return fmt.Errorf("js.timeout must be positive, got %s", c.JS.Timeout)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	return nil
}
