// Package handlers implements the HTTP API of the service.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/edgard/roastme/internal/auth"
	"github.com/edgard/roastme/internal/config"
	"github.com/edgard/roastme/internal/database"
	"github.com/edgard/roastme/internal/ratelimit"
	"github.com/edgard/roastme/internal/roast"
)

// Roaster is the roast pipeline used by the roast endpoints.
type Roaster interface {
	Generate(ctx context.Context, req roast.Request) roast.Result
	Probe(ctx context.Context) (roast.ProbeResult, error)
}

// FeedbackNotifier is told about every stored feedback entry.
type FeedbackNotifier interface {
	NotifyFeedback(ctx context.Context, fb *database.Feedback) error
}

// HandlerDeps provides dependencies for the HTTP handlers. Notifier, Limiter
// and Metrics are optional.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	Roaster   Roaster
	Tokens    *auth.TokenManager
	Notifier  FeedbackNotifier
	Limiter   *ratelimit.Limiter
	Metrics   http.Handler
	StartedAt time.Time
	Version   string
}
