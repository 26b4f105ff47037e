// Package tasks implements the scheduled maintenance tasks of the service.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/roastme/internal/logger"
)

// Maintainer runs database housekeeping.
type Maintainer interface {
	RunSQLMaintenance(ctx context.Context) error
}

// CorpusRefresher re-reads the corpus size from the store.
type CorpusRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// CorpusGauge records the corpus size.
type CorpusGauge interface {
	SetCorpusSize(n int)
}

// TaskDeps contains the dependencies of the scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  Maintainer
	Corpus CorpusRefresher
	Gauge  CorpusGauge
}

func (d TaskDeps) log() *slog.Logger {
	if d.Logger == nil {
		return logger.Discard()
	}
	return d.Logger
}
