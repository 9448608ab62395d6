package tracker

import (
	"context"
	"fmt"

	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/metrics"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

type PurgeSummary struct {
	UntrackedDirectories int64 `json:"untrackedDirectories"`
	RelinkedSources      int   `json:"relinkedSources"`
	DanglingSources      int   `json:"danglingSources"`
	// Dangling lists the sources left without a tracked directory.
	Dangling []status.SourceID `json:"dangling,omitempty"`
}

// PurgeOrphaned deletes the Orphaned records under prefix, then moves the
// user data of every source that lost its directory onto a source with the
// same file name and fingerprint in a tracked directory, if one exists.
//
// Running it twice has the same effect as running it once.
func (e *Engine) PurgeOrphaned(ctx context.Context, collectionID, prefix string) (PurgeSummary, error) {
	var sum PurgeSummary
	prefix, err := status.NormalizePrefix(prefix)
	if err != nil {
		return sum, err
	}

	unlock := e.lock(collectionID)
	defer unlock()
	logger := e.logger.WithContext(ctx)

	orphaned := status.Orphaned
	sum.UntrackedDirectories, err = e.store.UntrackDirectories(ctx, collectionID, prefix, &orphaned)
	if err != nil {
		return sum, fmt.Errorf("untrack orphaned directories: %w", err)
	}

	sources, err := e.store.FindUntrackedSources(ctx, collectionID, prefix)
	if err != nil {
		return sum, fmt.Errorf("find untracked sources: %w", err)
	}
	for _, old := range sources {
		candidate, found, err := e.store.FindRelinkCandidate(ctx, collectionID, old)
		if err != nil {
			return sum, fmt.Errorf("find relink candidate of %d: %w", old, err)
		}
		if !found {
			sum.DanglingSources++
			sum.Dangling = append(sum.Dangling, old)
			continue
		}
		ok, err := e.store.RelinkSource(ctx, old, candidate)
		if err != nil {
			return sum, fmt.Errorf("relink %d: %w", old, err)
		}
		if ok {
			sum.RelinkedSources++
			logger.Debug("source relinked", logging.Int64("old", int64(old)), logging.Int64("new", int64(candidate)))
		}
	}
	metrics.RecordPurge(sum.RelinkedSources, sum.DanglingSources)

	logger.Info("orphaned directories purged",
		logging.String("collection", collectionID),
		logging.String("prefix", prefix),
		logging.Int64("directories", sum.UntrackedDirectories),
		logging.Int("relinked", sum.RelinkedSources),
		logging.Int("dangling", sum.DanglingSources))
	return sum, nil
}
