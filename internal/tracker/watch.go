package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/metrics"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
	"github.com/dl-alexandre/medialib/internal/tracker/walker"
)

// DefaultWatchInterval separates two sweeps of the same collection.
const DefaultWatchInterval = 5 * time.Minute

type WatchOptions struct {
	Interval time.Duration
	// MaxConcurrent bounds how many collections sweep at the same time.
	// Zero means one task per collection.
	MaxConcurrent int
	// Import runs ImportPending after every finished sweep.
	Import bool
	Sweep SweepOptions
	// OnSweep is called from the collection's task after every sweep and
	// must be safe for concurrent use.
	OnSweep func(SweepResult, error)
}

// Watcher sweeps a set of collections periodically until its context ends.
type Watcher struct {
	engine      *Engine
	collections status.CollectionStore
	logger      logging.Logger
	opts        WatchOptions
}

func NewWatcher(engine *Engine, collections status.CollectionStore, opts WatchOptions) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultWatchInterval
	}
	return &Watcher{
		engine:      engine,
		collections: collections,
		logger:      engine.logger,
		opts:        opts,
	}
}

// Run loads the collections named by ids (all collections when empty) and
// runs one task per collection. A failed sweep is logged and retried on the
// next tick; Run returns nil when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, ids []string) error {
	targets, err := w.resolve(ctx, ids)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no collections to watch: %w", status.ErrNotFound)
	}

	g, ctx := errgroup.WithContext(ctx)
	if w.opts.MaxConcurrent > 0 {
		g.SetLimit(w.opts.MaxConcurrent)
	}
	for _, c := range targets {
		c := c
		g.Go(func() error {
			return w.watch(ctx, c)
		})
	}
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Watcher) resolve(ctx context.Context, ids []string) ([]status.Collection, error) {
	if len(ids) == 0 {
		return w.collections.ListCollections(ctx)
	}
	seen := make(map[string]bool, len(ids))
	targets := make([]status.Collection, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, err := w.collections.LoadCollection(ctx, id)
		if err != nil {
			return nil, err
		}
		targets = append(targets, *c)
	}
	return targets, nil
}

func (w *Watcher) watch(ctx context.Context, c status.Collection) error {
	logger := w.logger.WithContext(ctx)
	logger.Info("watching collection",
		logging.String("collection", c.ID),
		logging.Duration("interval", w.opts.Interval))

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()
	for {
		w.SweepOnce(ctx, c)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SweepOnce runs one sweep of c, records its time and optionally imports.
func (w *Watcher) SweepOnce(ctx context.Context, c status.Collection) {
	logger := w.logger.WithContext(ctx)
	res, err := w.engine.Sweep(ctx, c, w.opts.Sweep)
	if err == nil && res.Completion == walker.Finished {
		if touchErr := w.collections.TouchLastSweep(ctx, c.ID, res.Finished); touchErr != nil {
			logger.Warn("last sweep time not stored", logging.String("collection", c.ID), logging.Err(touchErr))
		}
		metrics.SetLastSweep(c.ID, res.Finished)

		if w.opts.Import {
			if _, importErr := w.engine.ImportPending(ctx, c, ImportOptions{Prefix: w.opts.Sweep.Prefix}); importErr != nil {
				logger.Warn("import after sweep failed", logging.String("collection", c.ID), logging.Err(importErr))
			}
		}
	}
	if err != nil && ctx.Err() == nil {
		logger.Error("sweep failed", logging.String("collection", c.ID), logging.Err(err))
	}
	if w.opts.OnSweep != nil {
		w.opts.OnSweep(res, err)
	}
}
