package status

import (
	"context"
	"time"
)

// Store persists directory tracking records. Implementations must serialize
// concurrent mutations of the same (collection, path) and update status and
// digest of a record atomically.
//
// Path prefixes are collection-relative directory paths with a trailing slash.
// The empty prefix selects the whole collection.
type Store interface {
	// UpdateDirectoriesStatus moves every record under prefix whose status equals
	// oldStatus (any status if nil) to newStatus and returns the number of records changed.
	UpdateDirectoriesStatus(ctx context.Context, collectionID, prefix string, oldStatus *Status, newStatus Status) (int64, error)

	// UpdateDirectoryDigest is the compare-and-set step of a sweep.
	UpdateDirectoryDigest(ctx context.Context, collectionID, path string, digest Digest) (UpdateOutcome, error)

	// UntrackDirectories deletes records under prefix, restricted to status if non-nil.
	UntrackDirectories(ctx context.Context, collectionID, prefix string, status *Status) (int64, error)

	LoadDirectoriesRequiringConfirmation(ctx context.Context, collectionID, prefix string, page Pagination) ([]TrackedDirectory, error)

	// ConfirmDirectory marks an Added or Modified record Current only if its
	// digest still equals digest.
	ConfirmDirectory(ctx context.Context, collectionID, path string, digest Digest) (bool, error)

	// LoadDirectoryTrackingStatus returns ErrNotFound for unknown paths.
	LoadDirectoryTrackingStatus(ctx context.Context, collectionID, path string) (Status, error)

	AggregateDirectoriesTrackingStatus(ctx context.Context, collectionID, prefix string) (DirectoriesStatus, error)

	// FindUntrackedSources returns sources under prefix whose directory is not
	// tracked any longer or is Orphaned.
	FindUntrackedSources(ctx context.Context, collectionID, prefix string) ([]SourceID, error)

	// RelinkSource moves the user data of oldID onto newID and removes oldID.
	RelinkSource(ctx context.Context, oldID, newID SourceID) (bool, error)
}

// SourceStore manages imported media sources and the user data attached to them.
type SourceStore interface {
	RegisterMediaSource(ctx context.Context, collectionID, contentPath string, fingerprint Digest) (SourceID, bool, error)
	LoadMediaSourceByPath(ctx context.Context, collectionID, contentPath string) (*MediaSource, error)
	LoadMediaSource(ctx context.Context, id SourceID) (*MediaSource, error)
	// FindRelinkCandidate looks for another source with the same file name and
	// fingerprint in a directory that is still tracked and not orphaned.
	FindRelinkCandidate(ctx context.Context, collectionID string, old SourceID) (SourceID, bool, error)
	UpdateTrackUserData(ctx context.Context, id SourceID, data TrackUserData) error
	LoadTrackUserData(ctx context.Context, id SourceID) (TrackUserData, error)
}

// CollectionStore manages collection definitions.
type CollectionStore interface {
	CreateCollection(ctx context.Context, c Collection) error
	LoadCollection(ctx context.Context, id string) (*Collection, error)
	ListCollections(ctx context.Context) ([]Collection, error)
	DeleteCollection(ctx context.Context, id string) error
	TouchLastSweep(ctx context.Context, id string, at time.Time) error
}

// Repository is the complete storage surface used by the tracker.
type Repository interface {
	Store
	SourceStore
	CollectionStore
	Close() error
}
