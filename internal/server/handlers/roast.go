package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edgard/roastme/internal/auth"
	"github.com/edgard/roastme/internal/roast"
)

type roastRequest struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

type roastResponse struct {
	Roast        string `json:"roast"`
	Source       string `json:"source"`
	RoastType    string `json:"roastType"`
	Personalized bool   `json:"personalized"`
	UserID       string `json:"userId,omitempty"`
	PersonID     string `json:"personId,omitempty"`
	Category     string `json:"category"`
}

// NewRoastHandler serves POST /api/roast. It always answers 200: a malformed
// body is treated as an empty request.
func NewRoastHandler(deps HandlerDeps) gin.HandlerFunc {
	log := deps.Logger.With("handler", "roast")

	return func(c *gin.Context) {
		var req roastRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.DebugContext(c.Request.Context(), "Ignoring unreadable roast request body", "error", err)
		}

		// Attempts run to their own timeouts even if the client goes away.
		ctx := context.WithoutCancel(c.Request.Context())
		res := deps.Roaster.Generate(ctx, roast.Request{
			Name:        req.Name,
			Mode:        req.Mode,
			CallerToken: auth.BearerToken(c.GetHeader("Authorization")),
		})

		c.JSON(http.StatusOK, roastResponse{
			Roast:        res.Text,
			Source:       string(res.Provenance),
			RoastType:    string(res.RoastType),
			Personalized: res.Personalized,
			UserID:       res.CallerID,
			PersonID:     res.PersonID,
			Category:     res.Tone.String(),
		})
	}
}

// NewCategoriesHandler serves GET /api/roast/categories.
func NewCategoriesHandler(HandlerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"categories": roast.ToneNames(),
		})
	}
}

// NewProbeHandler serves GET /api/test/generation, a direct call to the
// primary credential.
func NewProbeHandler(deps HandlerDeps) gin.HandlerFunc {
	log := deps.Logger.With("handler", "probe")

	return func(c *gin.Context) {
		res, err := deps.Roaster.Probe(c.Request.Context())
		if err != nil {
			log.WarnContext(c.Request.Context(), "Generation probe failed", "error", err)
			status := http.StatusInternalServerError
			if errors.Is(err, roast.ErrNoCredentials) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{
				"success":   false,
				"message":   "Generation backend test failed",
				"error":     err.Error(),
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"message":    "Generation backend is working!",
			"credential": res.Credential,
			"model":      res.Model,
			"testPrompt": res.Prompt,
			"response":   res.Response,
			"durationMs": res.Duration.Milliseconds(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		})
	}
}
