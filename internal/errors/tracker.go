// Package errors maps tracker and storage failures onto stable CLI errors.
package errors

import (
	"context"
	stderrors "errors"
	"io/fs"

	"github.com/lib/pq"
	"modernc.org/sqlite"

	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
	"github.com/dl-alexandre/medialib/internal/utils"
)

// SQLite primary result codes that clear up on retry.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// ClassifyTrackerError converts err into an AppError. Errors that already are
// AppErrors pass through unchanged.
func ClassifyTrackerError(command string, err error, logger logging.Logger) *utils.AppError {
	var appErr *utils.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	logger = logging.OrNoOp(logger)

	var (
		code      string
		retryable bool
		pqErr     *pq.Error
		liteErr   *sqlite.Error
	)
	switch {
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, status.ErrAborted):
		code = utils.ErrCodeCancelled
	case stderrors.Is(err, status.ErrNotFound):
		code = utils.ErrCodeNotFound
	case stderrors.Is(err, status.ErrInvalidPath):
		code = utils.ErrCodeInvalidPath
	case stderrors.Is(err, status.ErrInvalidURL):
		code = utils.ErrCodeInvalidURL
	case stderrors.Is(err, status.ErrStorageConflict):
		code = utils.ErrCodeStorageConflict
		retryable = true
	case stderrors.Is(err, fs.ErrPermission):
		code = utils.ErrCodePermissionDenied
	case status.KindOf(err) == status.KindIo:
		code = utils.ErrCodeRootUnavailable
	case stderrors.As(err, &pqErr):
		code = utils.ErrCodeStorageError
		// 08: connection exception, 40: transaction rollback, 53: insufficient resources
		switch pqErr.Code.Class() {
		case "08", "40", "53":
			retryable = true
		}
	case stderrors.As(err, &liteErr):
		code = utils.ErrCodeStorageError
		switch liteErr.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			retryable = true
		}
	default:
		code = utils.ErrCodeInternalError
	}

	logger.Error("command failed",
		logging.String("command", command),
		logging.String("errorCode", code),
		logging.F("retryable", retryable),
		logging.Err(err))

	builder := utils.NewCLIError(code, err.Error()).
		WithRetryable(retryable).
		WithContext("command", command)

	switch code {
	case utils.ErrCodeStorageConflict:
		builder.WithContext("suggestedAction", "run the sweep again")
	case utils.ErrCodeRootUnavailable:
		builder.WithContext("suggestedAction", "check that the collection root is mounted and readable")
	case utils.ErrCodeStorageError:
		if pqErr != nil {
			builder.WithContext("sqlState", string(pqErr.Code))
		}
		if liteErr != nil {
			builder.WithContext("sqliteCode", liteErr.Code())
		}
		if retryable {
			builder.WithContext("suggestedAction", "database busy, retry shortly")
		}
	}
	return utils.NewAppError(builder.Build())
}

// CollectionNotFound is returned when a collection id does not resolve.
func CollectionNotFound(id string) *utils.AppError {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeCollectionNotFound, "collection "+id+" does not exist").
		WithContext("collectionId", id).
		WithContext("suggestedAction", "list collections with 'medialib collection list'").
		Build())
}
