package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ROASTME_AUTH_JWT_SECRET", testSecret)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Logger.Level)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultDBPath, cfg.Database.Path)
	assert.Equal(t, DefaultGenerationEndpoint, cfg.Generation.Endpoint)
	assert.Equal(t, DefaultMinAcceptLength, cfg.Generation.MinAcceptLength)
	assert.Equal(t, 15*time.Second, cfg.Generation.Timeout)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.Telegram.Enabled())
	assert.Empty(t, cfg.Credentials())

	require.Contains(t, cfg.Scheduler.Tasks, TaskSQLMaintenance)
	assert.True(t, cfg.Scheduler.Tasks[TaskSQLMaintenance].Enabled)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  json: true
server:
  port: 8080
auth:
  jwt_secret: `+testSecret+`
generation:
  model: llama-3.3-70b-versatile
  timeout: 5s
  min_accept_length: 20
  credentials:
    - name: gemini-main
      provider: gemini
      api_key: g-key
  api_keys:
    - first
    - second
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Logger.JSON)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 20, cfg.Generation.MinAcceptLength)

	creds := cfg.Credentials()
	require.Len(t, creds, 3)
	assert.Equal(t, Credential{Name: "gemini-main", Provider: ProviderGemini, APIKey: "g-key", Model: DefaultGeminiModel}, creds[0])
	assert.Equal(t, Credential{Name: "key-1", Provider: ProviderOpenAI, APIKey: "first", Model: "llama-3.3-70b-versatile"}, creds[1])
	assert.Equal(t, "key-2", creds[2].Name)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")
	t.Setenv("ROASTME_AUTH_JWT_SECRET", testSecret)
	t.Setenv("ROASTME_SERVER_PORT", "9090")
	t.Setenv("ROASTME_GENERATION_API_KEYS", "alpha,beta")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Generation.APIKeys)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing secret",
			body: "logger:\n  level: info\n",
		},
		{
			name: "short secret",
			body: "auth:\n  jwt_secret: short\n",
		},
		{
			name: "bad log level",
			body: "auth:\n  jwt_secret: " + testSecret + "\nlogger:\n  level: verbose\n",
		},
		{
			name: "unknown provider",
			body: "auth:\n  jwt_secret: " + testSecret + "\ngeneration:\n  credentials:\n    - name: x\n      provider: claude\n      api_key: k\n",
		},
		{
			name: "duplicate credential names",
			body: "auth:\n  jwt_secret: " + testSecret + "\ngeneration:\n  credentials:\n    - name: x\n      provider: openai\n      api_key: k\n    - name: x\n      provider: openai\n      api_key: j\n",
		},
		{
			name: "rate limit without redis",
			body: "auth:\n  jwt_secret: " + testSecret + "\nratelimit:\n  enabled: true\n",
		},
		{
			name: "telegram without chat",
			body: "auth:\n  jwt_secret: " + testSecret + "\ntelegram:\n  token: abc\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
