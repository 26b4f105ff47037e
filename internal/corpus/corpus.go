// Package corpus samples stored roast texts uniformly at random.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/edgard/roastme/internal/logger"
)

// ErrStoreUnavailable wraps any failure of the underlying store.
var ErrStoreUnavailable = errors.New("roast store unavailable")

const countKey = "roasts"

// Source is the slice of the store the accessor reads from.
type Source interface {
	CountRoasts(ctx context.Context) (int, error)
	RoastAt(ctx context.Context, offset int) (string, bool, error)
}

// Accessor draws random entries from the corpus. The corpus size is cached
// for a short TTL so a sample usually costs a single query.
type Accessor struct {
	source Source
	counts *expirable.LRU[string, int]
	intn   func(n int) int
	log    *slog.Logger
}

// Option customizes an Accessor.
type Option func(*Accessor)

// WithIntn replaces the random source used to draw offsets. intn must return
// a value in [0, n).
func WithIntn(intn func(n int) int) Option {
	return func(a *Accessor) {
		if intn != nil {
			a.intn = intn
		}
	}
}

// New creates an Accessor over source. A zero countTTL disables count caching.
func New(source Source, countTTL time.Duration, log *slog.Logger, opts ...Option) *Accessor {
	if log == nil {
		log = logger.Discard()
	}
	a := &Accessor{
		source: source,
		intn:   rand.IntN,
		log:    log.With("component", "corpus"),
	}
	if countTTL > 0 {
		a.counts = expirable.NewLRU[string, int](1, nil, countTTL)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sample returns one stored roast chosen uniformly at random. ok is false
// when the corpus is empty; that is not an error.
func (a *Accessor) Sample(ctx context.Context) (string, bool, error) {
	count, err := a.Count(ctx)
	if err != nil {
		return "", false, err
	}
	if count <= 0 {
		a.log.DebugContext(ctx, "Roast corpus is empty")
		return "", false, nil
	}

	offset := a.intn(count)
	text, ok, err := a.source.RoastAt(ctx, offset)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok || text == "" {
		// The corpus shrank since the count was cached.
		a.Invalidate()
		a.log.DebugContext(ctx, "No roast at drawn offset", "offset", offset, "count", count)
		return "", false, nil
	}
	return text, true, nil
}

// Count returns the corpus size, from cache when fresh.
func (a *Accessor) Count(ctx context.Context) (int, error) {
	if a.counts != nil {
		if count, ok := a.counts.Get(countKey); ok {
			return count, nil
		}
	}

	count, err := a.source.CountRoasts(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if a.counts != nil {
		a.counts.Add(countKey, count)
	}
	return count, nil
}

// Refresh drops the cached count and reloads it from the store.
func (a *Accessor) Refresh(ctx context.Context) (int, error) {
	a.Invalidate()
	return a.Count(ctx)
}

// Invalidate drops the cached count.
func (a *Accessor) Invalidate() {
	if a.counts != nil {
		a.counts.Remove(countKey)
	}
}
