package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openclaw/qrgen/store"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (f *fakePruner) Prune(before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, before)
	return 1, f.err
}

func (f *fakePruner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestStartPruneLoopRunsImmediately(t *testing.T) {
	t.Parallel()

	p := &fakePruner{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	start := time.Now()
	store.StartPruneLoop(ctx, p, time.Hour, 24*time.Hour, log)

	assert.Eventually(t, func() bool { return p.calls() >= 1 }, 2*time.Second, 10*time.Millisecond)

	p.mu.Lock()
	cutoff := p.cutoffs[0]
	p.mu.Unlock()
	assert.WithinDuration(t, start.Add(-24*time.Hour), cutoff, time.Minute)
}

func TestStartPruneLoopSurvivesErrors(t *testing.T) {
	t.Parallel()

	p := &fakePruner{err: errors.New("disk on fire")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store.StartPruneLoop(ctx, p, time.Second, time.Hour, log)

	assert.Eventually(t, func() bool { return p.calls() >= 2 }, 5*time.Second, 50*time.Millisecond)
}
