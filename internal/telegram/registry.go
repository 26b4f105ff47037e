package telegram

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"

	"github.com/edgard/roastme/internal/logger"
	"github.com/edgard/roastme/internal/roast"
)

// Roaster produces roasts for the /roast command.
type Roaster interface {
	Generate(ctx context.Context, req roast.Request) roast.Result
}

// CorpusCounter reports the number of stored roasts.
type CorpusCounter interface {
	Count(ctx context.Context) (int, error)
}

// HandlerDeps provides dependencies for the chat command handlers.
type HandlerDeps struct {
	Logger      *slog.Logger
	Roaster     Roaster
	Corpus      CorpusCounter
	AdminChatID int64
}

func (d HandlerDeps) log() *slog.Logger {
	if d.Logger == nil {
		return logger.Discard()
	}
	return d.Logger
}

// RegisteredHandler is a command handler with the middleware that guards it.
type RegisteredHandler struct {
	Pattern    string
	Handler    bot.HandlerFunc
	Middleware []bot.Middleware
}

// RegisterAllCommands returns every chat command keyed by its slash name.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/roast"] = RegisteredHandler{
		Pattern: "roast",
		Handler: NewRoastHandler(deps),
	}
	handlers["/stats"] = RegisteredHandler{
		Pattern:    "stats",
		Handler:    NewStatsHandler(deps),
		Middleware: []bot.Middleware{AdminOnly(deps)},
	}

	return handlers
}
