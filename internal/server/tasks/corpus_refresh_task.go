package tasks

import (
	"context"
	"fmt"
)

// newCorpusRefreshTask re-reads the corpus size so the cached count and the
// exported gauge follow inserts made outside the service.
func newCorpusRefreshTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.log().With("task", "corpus_refresh")

	return func(ctx context.Context) error {
		n, err := deps.Corpus.Refresh(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Corpus refresh failed", "error", err)
			return fmt.Errorf("corpus refresh failed: %w", err)
		}

		if deps.Gauge != nil {
			deps.Gauge.SetCorpusSize(n)
		}
		if n == 0 {
			log.WarnContext(ctx, "Corpus is empty, roasts will use the local bank when generation fails")
		} else {
			log.InfoContext(ctx, "Corpus refreshed", "size", n)
		}
		return nil
	}
}
