package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/edgard/roastme/internal/logger"
)

// BreakerConfig holds configuration for a credential's circuit breaker.
type BreakerConfig struct {
	MaxFailures   int
	OpenTimeout   time.Duration
	HalfOpenLimit int
	OnStateChange func(name string, from, to gobreaker.State)
}

// Breaker wraps a Backend with a circuit breaker. One Breaker guards one
// credential, so a failing key does not slow down requests while it is open.
type Breaker struct {
	next Backend
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next in a circuit breaker called name.
func NewBreaker(name string, next Backend, cfg BreakerConfig, log *slog.Logger) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenLimit <= 0 {
		cfg.HalfOpenLimit = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	log = log.With("component", "breaker", "credential", name)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(cfg.HalfOpenLimit), //nolint:gosec // small positive config value
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures) //nolint:gosec // small positive config value
		},
		// Caller cancellation is not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("Circuit breaker state changed", "from", from.String(), "to", to.String())
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	}

	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Generate implements Backend.
func (b *Breaker) Generate(ctx context.Context, attempt Attempt) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, attempt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrCircuitOpen
		}
		return "", err
	}
	text, _ := out.(string)
	return text, nil
}

// State reports the breaker's current state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
