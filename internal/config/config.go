// Package config provides configuration loading, validation, and management
// for the RoastMe service. It handles reading from YAML files and environment
// variables, setting default values, and validating configuration parameters.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// ROASTME_AUTH_JWT_SECRET overrides auth.jwt_secret.
const EnvPrefix = "ROASTME"

// Config defines the application configuration parameters for all components
// of the service.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Generation GenerationConfig `mapstructure:"generation"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Corpus     CorpusConfig     `mapstructure:"corpus"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

// LoggerConfig controls log verbosity and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"             validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"required,min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,min=1s"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// AuthConfig configures session token issuance and verification.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	Issuer    string        `mapstructure:"issuer"     validate:"required"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"  validate:"required,min=1m"`
}

// GenerationConfig configures the generative backends used for roasts.
type GenerationConfig struct {
	Endpoint        string             `mapstructure:"endpoint"          validate:"required,url"`
	Model           string             `mapstructure:"model"             validate:"required"`
	Timeout         time.Duration      `mapstructure:"timeout"           validate:"required,min=100ms,max=2m"`
	Temperature     float32            `mapstructure:"temperature"       validate:"min=0,max=2"`
	MaxTokens       int                `mapstructure:"max_tokens"        validate:"required,min=1,max=1024"`
	MinAcceptLength int                `mapstructure:"min_accept_length" validate:"min=0"`
	APIKeys         []string           `mapstructure:"api_keys"          validate:"dive,required"`
	Credentials     []CredentialConfig `mapstructure:"credentials"       validate:"dive"`
}

// CredentialConfig describes one backend credential. Credentials are tried in
// the order they are listed.
type CredentialConfig struct {
	Name     string `mapstructure:"name"     validate:"required"`
	Provider string `mapstructure:"provider" validate:"required,oneof=openai gemini"`
	APIKey   string `mapstructure:"api_key"  validate:"required"`
	Model    string `mapstructure:"model"`
}

// BreakerConfig tunes the per-credential circuit breakers.
type BreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures" validate:"required,min=1"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" validate:"required,min=1s"`
}

// CorpusConfig tunes the stored roast corpus accessor.
type CorpusConfig struct {
	CountCacheTTL time.Duration `mapstructure:"count_cache_ttl" validate:"min=0"`
}

// RateLimitConfig configures Redis-backed rate limiting of the roast endpoint.
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"     validate:"required_if=Enabled true"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"       validate:"min=0"`
	Requests      int           `mapstructure:"requests"       validate:"required,min=1"`
	Window        time.Duration `mapstructure:"window"         validate:"required,min=1s"`
}

// TelegramConfig enables feedback notifications to an admin chat.
type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	AdminChatID int64  `mapstructure:"admin_chat_id" validate:"required_with=Token"`
}

// Enabled reports whether Telegram notifications are configured.
func (t TelegramConfig) Enabled() bool {
	return t.Token != ""
}

// SchedulerConfig holds the configuration for all scheduled tasks.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// LoadConfig reads configuration from the given YAML file (optional), applies
// ROASTME_* environment overrides on top of the defaults, and validates the
// result. A missing config file is not an error.
func LoadConfig(path string) (*Config, error) {
	startTime := time.Now()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
			}
			slog.Info("Configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded",
		"db_path", cfg.Database.Path,
		"model", cfg.Generation.Model,
		"credentials", len(cfg.Credentials()),
		"duration_ms", time.Since(startTime).Milliseconds())

	return cfg, nil
}
