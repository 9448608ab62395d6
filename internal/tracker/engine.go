// Package tracker runs sweeps over media collections and keeps the persisted
// per-directory tracking status in step with the filesystem.
//
// A sweep has three phases over a collection or a path prefix of it:
//
//  1. every Current record is marked Outdated;
//  2. the tree is walked and every finished directory's digest is compared
//     and stored;
//  3. records still Outdated were not seen again and become Orphaned.
//
// Phase 3 only runs when phase 2 finished. An aborted sweep keeps every update
// it committed and orphans nothing.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/metrics"
	"github.com/dl-alexandre/medialib/internal/tracker/exclude"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
	"github.com/dl-alexandre/medialib/internal/tracker/walker"
)

// Repository is the storage the engine needs.
type Repository interface {
	status.Store
	status.SourceStore
}

// Engine runs sweeps, imports and purges against one tracking store.
type Engine struct {
	store  Repository
	logger logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine returns an Engine over store. A nil logger discards output.
func NewEngine(store Repository, logger logging.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logging.OrNoOp(logger),
		locks:  make(map[string]*sync.Mutex),
	}
}

// lock serializes sweeps, imports and purges of one collection in this process.
func (e *Engine) lock(collectionID string) func() {
	e.mu.Lock()
	l, ok := e.locks[collectionID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[collectionID] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// SweepOptions narrows and instruments a single sweep.
type SweepOptions struct {
	// Prefix restricts the sweep to a collection-relative directory.
	Prefix string
	// Exclude adds patterns to those stored on the collection.
	Exclude []string
	// MaxDepth overrides the collection's depth bound when positive.
	MaxDepth         int
	ProgressInterval time.Duration
	OnProgress       func(walker.Progress)
}

// Summary counts how directories were classified during one sweep.
type Summary struct {
	// Confirmed were unchanged and went from Outdated back to Current.
	Confirmed uint64 `json:"confirmed"`
	Added     uint64 `json:"added"`
	Modified  uint64 `json:"modified"`
	// Rejected lost a race with a concurrent writer and are retried next sweep.
	Rejected uint64 `json:"rejected"`
	// Skipped could not be read and are retried next sweep.
	Skipped uint64 `json:"skipped"`
	// Untracked were not found again and became Orphaned.
	Untracked uint64 `json:"untracked"`
}

// SweepResult reports how a sweep ended and what it classified.
type SweepResult struct {
	CollectionID string            `json:"collectionId"`
	Prefix       string            `json:"prefix"`
	Completion   walker.Completion `json:"completion"`
	Progress     walker.Progress   `json:"progress"`
	Summary      Summary           `json:"summary"`
	Duration     time.Duration     `json:"duration"`
	Finished     time.Time         `json:"finished"`
	// Outdated is the number of Current records marked before the walk.
	Outdated int64 `json:"outdated"`
}

// Incomplete reports whether the sweep should be presented as completed with issues.
func (r SweepResult) Incomplete() bool {
	return r.Completion == walker.Aborted || r.Summary.Skipped > 0 || r.Summary.Rejected > 0
}

func newMatcher(c status.Collection, extra []string) *exclude.Matcher {
	patterns := append(append([]string{}, c.ExcludePatterns...), extra...)
	return exclude.New(patterns)
}

// Sweep runs the three sweep phases over c, or over opts.Prefix within c.
//
// A missing or unreadable collection root fails before anything is written.
// A missing prefix directory is a finished walk that saw nothing, so
// everything below the prefix is orphaned.
func (e *Engine) Sweep(ctx context.Context, c status.Collection, opts SweepOptions) (res SweepResult, err error) {
	started := time.Now()
	prefix, err := status.NormalizePrefix(opts.Prefix)
	if err != nil {
		return res, err
	}
	res.CollectionID = c.ID
	res.Prefix = prefix

	defer func() {
		res.Duration = time.Since(started)
		res.Finished = time.Now().UTC()
		completion := res.Completion.String()
		if err != nil {
			completion = "failed"
		}
		metrics.RecordSweep(completion, res.Duration)
		metrics.AddSweepDirectories("confirmed", res.Summary.Confirmed)
		metrics.AddSweepDirectories("added", res.Summary.Added)
		metrics.AddSweepDirectories("modified", res.Summary.Modified)
		metrics.AddSweepDirectories("rejected", res.Summary.Rejected)
		metrics.AddSweepDirectories("skipped", res.Summary.Skipped)
		metrics.AddSweepDirectories("untracked", res.Summary.Untracked)
		metrics.AddWalkEntries(res.Progress.EntriesFinished, res.Progress.EntriesSkipped)
	}()

	unlock := e.lock(c.ID)
	defer unlock()

	logger := e.logger.WithContext(ctx)
	rootPath, err := resolveRoot(c.RootPath)
	if err != nil {
		return res, err
	}
	maxDepth, err := sweepDepth(c.MaxDepth, opts.MaxDepth, prefix)
	if err != nil {
		return res, err
	}
	walkRoot := filepath.Join(rootPath, filepath.FromSlash(prefix))
	walkInfo, statErr := os.Stat(walkRoot)
	prefixMissing := prefix != "" && errors.Is(statErr, os.ErrNotExist)
	switch {
	case prefixMissing:
	case statErr != nil:
		return res, fmt.Errorf("sweep root: %w", statErr)
	case !walkInfo.IsDir():
		return res, fmt.Errorf("sweep root %s: %w", walkRoot, status.ErrInvalidPath)
	}

	outdated := status.Outdated
	current := status.Current
	res.Outdated, err = e.store.UpdateDirectoriesStatus(ctx, c.ID, prefix, &current, outdated)
	if err != nil {
		return res, fmt.Errorf("mark outdated: %w", err)
	}
	logger.Info("sweep started",
		logging.String("collection", c.ID),
		logging.String("prefix", prefix),
		logging.Int64("outdated", res.Outdated))

	if prefixMissing {
		logger.Info("sweep prefix no longer exists", logging.String("prefix", prefix))
		res.Completion = walker.Finished
		res.Progress.Status = walker.Done
	} else {
		w := walker.New(walker.Options{
			Matcher:          newMatcher(c, opts.Exclude),
			MaxDepth:         maxDepth,
			ProgressInterval: opts.ProgressInterval,
			OnProgress:       opts.OnProgress,
			Logger:           logger,
		})
		v := &sweepVisitor{store: e.store, collectionID: c.ID, logger: logger, summary: &res.Summary}
		outcome, walkErr := w.Walk(ctx, walkRoot, prefix, v)
		res.Completion = outcome.Completion
		res.Progress = outcome.Progress
		res.Summary.Skipped += outcome.EntriesFailed
		if walkErr != nil {
			logger.Error("sweep failed, orphan marking skipped", logging.String("collection", c.ID), logging.Err(walkErr))
			return res, fmt.Errorf("digest pass: %w", walkErr)
		}
	}

	if res.Completion == walker.Aborted {
		logger.Warn("sweep aborted, orphan marking skipped",
			logging.String("collection", c.ID),
			logging.Uint64("directories", res.Progress.DirectoriesFinished))
		return res, nil
	}

	orphaned := status.Orphaned
	n, err := e.store.UpdateDirectoriesStatus(ctx, c.ID, prefix, &outdated, orphaned)
	if err != nil {
		return res, fmt.Errorf("mark orphaned: %w", err)
	}
	res.Summary.Untracked = uint64(n)

	logger.Info("sweep finished",
		logging.String("collection", c.ID),
		logging.String("prefix", prefix),
		logging.Uint64("confirmed", res.Summary.Confirmed),
		logging.Uint64("added", res.Summary.Added),
		logging.Uint64("modified", res.Summary.Modified),
		logging.Uint64("rejected", res.Summary.Rejected),
		logging.Uint64("skipped", res.Summary.Skipped),
		logging.Uint64("untracked", res.Summary.Untracked))
	return res, nil
}

// resolveRoot follows symlinks in the collection root so that a collection
// mounted through a link walks the same tree, with the same digests, as its
// target.
func resolveRoot(root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("collection root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("collection root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("collection root %s: %w", root, status.ErrInvalidPath)
	}
	return resolved, nil
}

// sweepDepth converts the collection depth bound into a bound relative to
// the prefix directory, where the walk starts.
func sweepDepth(collectionDepth, override int, prefix string) (int, error) {
	bound := collectionDepth
	if override > 0 {
		bound = override
	}
	if bound <= 0 {
		return 0, nil
	}
	remaining := bound - strings.Count(prefix, "/")
	switch {
	case remaining < 0:
		return 0, fmt.Errorf("%w: %q lies below the depth bound %d", status.ErrInvalidPath, prefix, bound)
	case remaining == 0:
		return -1, nil
	default:
		return remaining, nil
	}
}

// sweepVisitor stores the digest of every finished directory that directly
// contains at least one file. Directories holding only sub-directories are
// folded into their parent's digest but get no record of their own.
type sweepVisitor struct {
	store        status.Store
	collectionID string
	logger       logging.Logger
	summary      *Summary
}

func (v *sweepVisitor) AncestorFinished(ctx context.Context, dir walker.FinishedDirectory) (walker.Decision, error) {
	if dir.FileCount == 0 {
		return walker.Continue, nil
	}

	outcome, err := v.store.UpdateDirectoryDigest(ctx, v.collectionID, dir.Path, dir.Digest)
	if err != nil {
		switch status.KindOf(err) {
		case status.KindStorageConflict:
			v.summary.Rejected++
			v.logger.Warn("directory changed concurrently, retried next sweep", logging.String("path", dir.Path), logging.Err(err))
			return walker.Continue, nil
		case status.KindAborted:
			return walker.Abort, nil
		default:
			return walker.Abort, err
		}
	}

	switch outcome {
	case status.OutcomeInserted:
		v.summary.Added++
	case status.OutcomeUpdated:
		v.summary.Modified++
	case status.OutcomeCurrent:
		v.summary.Confirmed++
	case status.OutcomeSkipped:
		v.summary.Rejected++
	}
	v.logger.Debug("directory digested",
		logging.String("path", dir.Path),
		logging.String("outcome", outcome.String()),
		logging.String("digest", dir.Digest.String()))
	return walker.Continue, nil
}

// DirectoriesStatus aggregates the stored status of c below prefix.
func (e *Engine) DirectoriesStatus(ctx context.Context, collectionID, prefix string) (status.DirectoriesStatus, error) {
	prefix, err := status.NormalizePrefix(prefix)
	if err != nil {
		return status.DirectoriesStatus{}, err
	}
	return e.store.AggregateDirectoriesTrackingStatus(ctx, collectionID, prefix)
}

// PendingDirectories lists directories waiting for an importer.
func (e *Engine) PendingDirectories(ctx context.Context, collectionID, prefix string, page status.Pagination) ([]status.TrackedDirectory, error) {
	prefix, err := status.NormalizePrefix(prefix)
	if err != nil {
		return nil, err
	}
	return e.store.LoadDirectoriesRequiringConfirmation(ctx, collectionID, prefix, page)
}
