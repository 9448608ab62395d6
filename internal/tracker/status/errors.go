package status

import (
	"context"
	"errors"
	"io/fs"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrStorageConflict = errors.New("storage conflict")
	ErrInvalidPath     = errors.New("invalid path")
	ErrInvalidURL      = errors.New("invalid url")
	ErrAborted         = errors.New("aborted")
)

// ErrorKind classifies tracker errors by how callers should react to them.
type ErrorKind int

const (
	// KindOther is fatal to the current sweep.
	KindOther ErrorKind = iota
	// KindIo is recorded per entry and skipped.
	KindIo
	// KindStorageConflict is recoverable by retrying the directory.
	KindStorageConflict
	// KindAborted is a completion mode, not a failure.
	KindAborted
)

func (k ErrorKind) String() string {
	switch k {
	case KindIo:
		return "io"
	case KindStorageConflict:
		return "storage-conflict"
	case KindAborted:
		return "aborted"
	default:
		return "other"
	}
}

// KindOf classifies err.
func KindOf(err error) ErrorKind {
	var pathErr *fs.PathError
	switch {
	case err == nil:
		return KindOther
	case errors.Is(err, ErrAborted), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindAborted
	case errors.Is(err, ErrStorageConflict):
		return KindStorageConflict
	case errors.As(err, &pathErr), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return KindIo
	default:
		return KindOther
	}
}
