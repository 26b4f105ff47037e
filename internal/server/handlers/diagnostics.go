package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	statusSet     = "Set ✅"
	statusMissing = "Missing ❌"
)

// NewHealthHandler serves the health endpoints.
func NewHealthHandler(deps HandlerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "Server is running!",
			"uptime":    time.Since(deps.StartedAt).Seconds(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   deps.Version,
		})
	}
}

// NewEnvHandler serves GET /api/test/env. It reports which settings are
// present without revealing their values.
func NewEnvHandler(deps HandlerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := deps.Config
		env := gin.H{
			"generation_credentials": presence(len(cfg.Credentials()) > 0),
			"generation_model":       cfg.Generation.Model,
			"generation_timeout":     cfg.Generation.Timeout.String(),
			"database_path":          presence(cfg.Database.Path != ""),
			"jwt_secret":             presence(cfg.Auth.JWTSecret != ""),
			"telegram":               presence(cfg.Telegram.Enabled()),
			"ratelimit_enabled":      cfg.RateLimit.Enabled,
			"port":                   cfg.Server.Port,
		}

		database := "reachable"
		if err := deps.Store.Ping(c.Request.Context()); err != nil {
			database = "unreachable"
		}

		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"message":     "Environment variables check",
			"environment": env,
			"database":    database,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func presence(ok bool) string {
	if ok {
		return statusSet
	}
	return statusMissing
}
