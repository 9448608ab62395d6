package tracker

import (
	"context"

	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/metrics"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

// Confirm marks dirPath Current if its stored digest still equals observed,
// the digest the caller saw when it loaded the directory for import.
//
// false means a sweep changed the directory in the meantime, or the record is
// no longer pending (a sweep has pre-marked it, or it is already Current).
// The import is stale and the directory is left as it is. It is not an error.
func (e *Engine) Confirm(ctx context.Context, collectionID, dirPath string, observed status.Digest) (bool, error) {
	dirPath, err := status.NormalizeDirPath(dirPath)
	if err != nil {
		return false, err
	}
	ok, err := e.store.ConfirmDirectory(ctx, collectionID, dirPath, observed)
	if err != nil {
		return false, err
	}
	metrics.RecordConfirmation(ok)
	if !ok {
		e.logger.WithContext(ctx).Info("confirmation rejected, directory changed since it was loaded",
			logging.String("collection", collectionID),
			logging.String("path", dirPath),
			logging.String("digest", observed.String()))
	}
	return ok, nil
}
