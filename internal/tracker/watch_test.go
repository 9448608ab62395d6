package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

func TestWatcherSweepsUntilCancelled(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		mu      sync.Mutex
		results []SweepResult
	)
	w := NewWatcher(f.engine, f.store, WatchOptions{
		Interval: 10 * time.Millisecond,
		Import:   true,
		OnSweep: func(res SweepResult, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				return
			}
			results = append(results, res)
			if len(results) == 2 {
				cancel()
			}
		},
	})

	require.NoError(t, w.Run(ctx, []string{f.collection.ID, f.collection.ID}))

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(results), 2)
	assert.Equal(t, Summary{Added: 1}, results[0].Summary)
	assert.Equal(t, Summary{Confirmed: 1}, results[1].Summary, "imported between sweeps")

	c, err := f.store.LoadCollection(context.Background(), f.collection.ID)
	require.NoError(t, err)
	assert.False(t, c.LastSweepAt.IsZero())
}

func TestWatcherUnknownCollection(t *testing.T) {
	f := newFixture(t)
	w := NewWatcher(f.engine, f.store, WatchOptions{})
	err := w.Run(context.Background(), []string{"missing"})
	assert.ErrorIs(t, err, status.ErrNotFound)
	assert.Equal(t, DefaultWatchInterval, w.opts.Interval)
}
