// Package config loads server and CLI settings from an optional YAML file and
// FORMFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. FORMFLOW_SERVER_ADDR.
const EnvPrefix = "FORMFLOW"

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Wizard     WizardConfig     `mapstructure:"wizard"`
	Uniqueness UniquenessConfig `mapstructure:"uniqueness"`
	Schemas    SchemasConfig    `mapstructure:"schemas"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required,hostname_port"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	AssetsPath      string        `mapstructure:"assets_path" validate:"required,startswith=/"`
	CookieSecure    bool          `mapstructure:"cookie_secure"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json console"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Addr          string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db" validate:"gte=0"`
	SessionPrefix string `mapstructure:"session_prefix"`
	EmailKey      string `mapstructure:"email_key"`
}

type WizardConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl" validate:"gt=0"`
	PendingTTL time.Duration `mapstructure:"pending_ttl" validate:"gt=0"`
}

// UniquenessConfig configures the email availability checker. With Redis
// disabled the in-process stub answers, after Delay.
type UniquenessConfig struct {
	Delay         time.Duration `mapstructure:"delay" validate:"gte=0"`
	Taken         []string      `mapstructure:"taken" validate:"dive,required"`
	RatePerSecond float64       `mapstructure:"rate_per_second" validate:"gte=0"`
	Burst         int           `mapstructure:"burst" validate:"gte=0"`
}

// SchemasConfig points at extra schema documents loaded next to the built-in
// forms.
type SchemasConfig struct {
	Dir string `mapstructure:"dir"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AssetsPath:      "/assets",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			SessionPrefix: "formflow:wizard:",
			EmailKey:      "formflow:registered:email",
		},
		Wizard: WizardConfig{
			SessionTTL: 24 * time.Hour,
			PendingTTL: 30 * time.Second,
		},
		Uniqueness: UniquenessConfig{
			Delay:         time.Second,
			Taken:         []string{"test@example.com"},
			RatePerSecond: 20,
			Burst:         5,
		},
	}
}

// Load reads path (when non-empty) and the environment on top of Defaults
// and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
	}
	return fmt.Errorf("config: invalid %s", strings.Join(problems, ", "))
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.assets_path", d.Server.AssetsPath)
	v.SetDefault("server.cookie_secure", d.Server.CookieSecure)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.session_prefix", d.Redis.SessionPrefix)
	v.SetDefault("redis.email_key", d.Redis.EmailKey)

	v.SetDefault("wizard.session_ttl", d.Wizard.SessionTTL)
	v.SetDefault("wizard.pending_ttl", d.Wizard.PendingTTL)

	v.SetDefault("uniqueness.delay", d.Uniqueness.Delay)
	v.SetDefault("uniqueness.taken", d.Uniqueness.Taken)
	v.SetDefault("uniqueness.rate_per_second", d.Uniqueness.RatePerSecond)
	v.SetDefault("uniqueness.burst", d.Uniqueness.Burst)

	v.SetDefault("schemas.dir", d.Schemas.Dir)
}
