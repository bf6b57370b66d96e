// Package config loads journey settings from defaults, an optional YAML file,
// JOURNEY_* environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AppName is the base name of the config file searched for.
	AppName = "journey"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "JOURNEY"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config holds the application configuration.
type Config struct {
	WorkflowsDir string `mapstructure:"workflows_dir"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`

	Store struct {
		Driver string `mapstructure:"driver"`
		Dir    string `mapstructure:"dir"`
		Redis  struct {
			Addr     string        `mapstructure:"addr"`
			Password string        `mapstructure:"password"`
			DB       int           `mapstructure:"db"`
			Prefix   string        `mapstructure:"prefix"`
			TTL      time.Duration `mapstructure:"ttl"`
		} `mapstructure:"redis"`

		// EncryptionKey is a base64 AES-256 key. When set, sessions are
		// stored encrypted; FallbackKeys still decrypt older sessions.
		EncryptionKey string   `mapstructure:"encryption_key"`
		FallbackKeys  []string `mapstructure:"fallback_keys"`

		// MaskVariables lists regular expressions of variable names that are
		// never persisted in clear.
		MaskVariables []string `mapstructure:"mask_variables"`
	} `mapstructure:"store"`

	Engine struct {
		MaxIterationsFactor int `mapstructure:"max_iterations_factor"`
	} `mapstructure:"engine"`

	Actions struct {
		Builtin     bool          `mapstructure:"builtin"`
		HTTPTimeout time.Duration `mapstructure:"http_timeout"`

		// ToolsFile lists local commands exposed as actions.
		ToolsFile      string        `mapstructure:"tools_file"`
		ProcessTimeout time.Duration `mapstructure:"process_timeout"`
	} `mapstructure:"actions"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workflows_dir", "workflows")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.dir", ".journey/sessions")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "journey:session:")
	v.SetDefault("store.redis.ttl", 24*time.Hour)
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.fallback_keys", []string{})
	v.SetDefault("store.mask_variables", []string{})
	v.SetDefault("engine.max_iterations_factor", 4)
	v.SetDefault("actions.builtin", true)
	v.SetDefault("actions.http_timeout", 10*time.Second)
	v.SetDefault("actions.tools_file", "")
	v.SetDefault("actions.process_timeout", 30*time.Second)
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds command-line flags to config keys. Unknown flag names are ignored.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads cfgFile (or searches for journey.yaml in the working directory and
// $HOME/.journey when cfgFile is empty) and decodes the result.
// A missing default config file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.journey")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("invalid store.driver %q: expected memory, file or redis", c.Store.Driver)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q: expected text or json", c.Log.Format)
	}
	if c.Engine.MaxIterationsFactor < 1 {
		return fmt.Errorf("engine.max_iterations_factor must be positive, got %d", c.Engine.MaxIterationsFactor)
	}
	return nil
}
