package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration
const (
	// Log defaults
	DefaultLogLevel = "info"

	// Server defaults
	DefaultServerPort            = 5000
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second

	// Database defaults
	DefaultDBPath = "roastme.db"

	// Auth defaults
	DefaultAuthIssuer   = "roastme"
	DefaultAuthTokenTTL = 7 * 24 * time.Hour

	// Generation defaults (Groq's OpenAI-compatible chat endpoint)
	DefaultGenerationEndpoint    = "https://api.groq.com/openai/v1"
	DefaultGenerationModel       = "llama-3.1-8b-instant"
	DefaultGeminiModel           = "gemini-2.0-flash"
	DefaultGenerationTimeout     = 15 * time.Second
	DefaultGenerationTemperature = 0.9
	DefaultGenerationMaxTokens   = 60
	DefaultMinAcceptLength       = 10

	// Breaker defaults
	DefaultBreakerMaxFailures = 3
	DefaultBreakerOpenTimeout = 30 * time.Second

	// Corpus defaults
	DefaultCorpusCountCacheTTL = time.Minute

	// Rate limit defaults
	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = time.Minute

	// Scheduler task names
	TaskSQLMaintenance = "sql_maintenance"
	TaskCorpusRefresh  = "corpus_refresh"
)

// setDefaults registers every key with viper so that environment overrides
// apply even when the key is absent from the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	v.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", DefaultAuthIssuer)
	v.SetDefault("auth.token_ttl", DefaultAuthTokenTTL)

	v.SetDefault("generation.endpoint", DefaultGenerationEndpoint)
	v.SetDefault("generation.model", DefaultGenerationModel)
	v.SetDefault("generation.timeout", DefaultGenerationTimeout)
	v.SetDefault("generation.temperature", DefaultGenerationTemperature)
	v.SetDefault("generation.max_tokens", DefaultGenerationMaxTokens)
	v.SetDefault("generation.min_accept_length", DefaultMinAcceptLength)
	v.SetDefault("generation.api_keys", []string{})
	v.SetDefault("generation.credentials", []map[string]any{})

	v.SetDefault("breaker.max_failures", DefaultBreakerMaxFailures)
	v.SetDefault("breaker.open_timeout", DefaultBreakerOpenTimeout)

	v.SetDefault("corpus.count_cache_ttl", DefaultCorpusCountCacheTTL)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.redis_addr", "")
	v.SetDefault("ratelimit.redis_password", "")
	v.SetDefault("ratelimit.redis_db", 0)
	v.SetDefault("ratelimit.requests", DefaultRateLimitRequests)
	v.SetDefault("ratelimit.window", DefaultRateLimitWindow)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_chat_id", 0)

	v.SetDefault("scheduler.tasks", map[string]any{
		TaskSQLMaintenance: map[string]any{"enabled": true, "schedule": "0 3 * * 0"},
		TaskCorpusRefresh:  map[string]any{"enabled": true, "schedule": "*/15 * * * *"},
	})
}
