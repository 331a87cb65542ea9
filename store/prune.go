package store

import (
	"context"
	"log/slog"
	"time"
)

// Pruner is implemented by the history store.
type Pruner interface {
	Prune(before time.Time) (int64, error)
}

// StartPruneLoop runs a goroutine that deletes history older than retention
// every interval, until ctx is cancelled. One pass runs immediately.
func StartPruneLoop(ctx context.Context, p Pruner, interval, retention time.Duration, log *slog.Logger) {
	go pruneLoop(ctx, p, interval, retention, log)
}

func pruneLoop(ctx context.Context, p Pruner, interval, retention time.Duration, log *slog.Logger) {
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pruneOnce(p, retention, log)

		select {
		case <-ctx.Done():
			log.Info("prune loop stopped")
			return
		case <-ticker.C:
		}
	}
}

func pruneOnce(p Pruner, retention time.Duration, log *slog.Logger) {
	cutoff := time.Now().Add(-retention)
	n, err := p.Prune(cutoff)
	if err != nil {
		log.Warn("history prune failed", "error", err)
		return
	}
	if n > 0 {
		log.Info("history pruned", "removed", n, "cutoff", cutoff.Format(time.RFC3339))
	}
}
