package auth

import (
	"context"
	"log/slog"

	"github.com/edgard/roastme/internal/database"
	"github.com/edgard/roastme/internal/logger"
)

// Directory is the part of the store the resolver reads.
type Directory interface {
	GetUserByID(ctx context.Context, id string) (*database.User, error)
	FindPersonByName(ctx context.Context, ownerID, query string) (*database.Person, error)
}

// Resolver turns an optional session token into a caller identity and finds
// the caller's person profile for a name. Every failure resolves to "none".
type Resolver struct {
	tokens *TokenManager
	dir    Directory
	log    *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(tokens *TokenManager, dir Directory, log *slog.Logger) *Resolver {
	if log == nil {
		log = logger.Discard()
	}
	return &Resolver{tokens: tokens, dir: dir, log: log.With("component", "resolver")}
}

// ResolveCaller returns the id of the user the token was issued to. A blank,
// invalid or expired token, or one for a user that no longer exists,
// resolves to ok=false.
func (r *Resolver) ResolveCaller(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}

	claims, err := r.tokens.Verify(token)
	if err != nil {
		r.log.DebugContext(ctx, "Ignoring invalid caller token", "error", err)
		return "", false
	}

	user, err := r.dir.GetUserByID(ctx, claims.Subject)
	if err != nil {
		r.log.WarnContext(ctx, "Failed to look up caller, continuing unauthenticated", "user_id", claims.Subject, "error", err)
		return "", false
	}
	if user == nil {
		r.log.DebugContext(ctx, "Token subject no longer exists", "user_id", claims.Subject)
		return "", false
	}
	return user.ID, true
}

// ResolvePerson finds the caller's person whose name matches name.
func (r *Resolver) ResolvePerson(ctx context.Context, callerID, name string) (*database.Person, bool) {
	if callerID == "" || name == "" {
		return nil, false
	}

	person, err := r.dir.FindPersonByName(ctx, callerID, name)
	if err != nil {
		r.log.WarnContext(ctx, "Person lookup failed, using generic prompt", "user_id", callerID, "error", err)
		return nil, false
	}
	if person == nil {
		return nil, false
	}
	return person, true
}
