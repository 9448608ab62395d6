package mocks

import (
	"context"

	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

// Store is a configurable tracker store for tests. Every call goes to the
// matching Func field when set, otherwise to Base. With neither, calls
// return zero values.
type Store struct {
	Base interface {
		status.Store
		status.SourceStore
	}

	UpdateDirectoriesStatusFunc func(ctx context.Context, collectionID, prefix string, oldStatus *status.Status, newStatus status.Status) (int64, error)
	UpdateDirectoryDigestFunc   func(ctx context.Context, collectionID, path string, d status.Digest) (status.UpdateOutcome, error)
	UntrackDirectoriesFunc      func(ctx context.Context, collectionID, prefix string, st *status.Status) (int64, error)
	LoadPendingFunc             func(ctx context.Context, collectionID, prefix string, page status.Pagination) ([]status.TrackedDirectory, error)
	ConfirmDirectoryFunc        func(ctx context.Context, collectionID, path string, d status.Digest) (bool, error)
	LoadStatusFunc              func(ctx context.Context, collectionID, path string) (status.Status, error)
	AggregateFunc               func(ctx context.Context, collectionID, prefix string) (status.DirectoriesStatus, error)
	FindUntrackedSourcesFunc    func(ctx context.Context, collectionID, prefix string) ([]status.SourceID, error)
	RelinkSourceFunc            func(ctx context.Context, oldID, newID status.SourceID) (bool, error)
	RegisterMediaSourceFunc     func(ctx context.Context, collectionID, contentPath string, fingerprint status.Digest) (status.SourceID, bool, error)
	LoadMediaSourceByPathFunc   func(ctx context.Context, collectionID, contentPath string) (*status.MediaSource, error)
	FindRelinkCandidateFunc     func(ctx context.Context, collectionID string, old status.SourceID) (status.SourceID, bool, error)

	// Calls counts invocations per method name.
	Calls map[string]int
}

func (m *Store) record(name string) {
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[name]++
}

func (m *Store) UpdateDirectoriesStatus(ctx context.Context, collectionID, prefix string, oldStatus *status.Status, newStatus status.Status) (int64, error) {
	m.record("UpdateDirectoriesStatus")
	if m.UpdateDirectoriesStatusFunc != nil {
		return m.UpdateDirectoriesStatusFunc(ctx, collectionID, prefix, oldStatus, newStatus)
	}
	if m.Base != nil {
		return m.Base.UpdateDirectoriesStatus(ctx, collectionID, prefix, oldStatus, newStatus)
	}
	return 0, nil
}

func (m *Store) UpdateDirectoryDigest(ctx context.Context, collectionID, path string, d status.Digest) (status.UpdateOutcome, error) {
	m.record("UpdateDirectoryDigest")
	if m.UpdateDirectoryDigestFunc != nil {
		return m.UpdateDirectoryDigestFunc(ctx, collectionID, path, d)
	}
	if m.Base != nil {
		return m.Base.UpdateDirectoryDigest(ctx, collectionID, path, d)
	}
	return status.OutcomeInserted, nil
}

func (m *Store) UntrackDirectories(ctx context.Context, collectionID, prefix string, st *status.Status) (int64, error) {
	m.record("UntrackDirectories")
	if m.UntrackDirectoriesFunc != nil {
		return m.UntrackDirectoriesFunc(ctx, collectionID, prefix, st)
	}
	if m.Base != nil {
		return m.Base.UntrackDirectories(ctx, collectionID, prefix, st)
	}
	return 0, nil
}

func (m *Store) LoadDirectoriesRequiringConfirmation(ctx context.Context, collectionID, prefix string, page status.Pagination) ([]status.TrackedDirectory, error) {
	m.record("LoadDirectoriesRequiringConfirmation")
	if m.LoadPendingFunc != nil {
		return m.LoadPendingFunc(ctx, collectionID, prefix, page)
	}
	if m.Base != nil {
		return m.Base.LoadDirectoriesRequiringConfirmation(ctx, collectionID, prefix, page)
	}
	return nil, nil
}

func (m *Store) ConfirmDirectory(ctx context.Context, collectionID, path string, d status.Digest) (bool, error) {
	m.record("ConfirmDirectory")
	if m.ConfirmDirectoryFunc != nil {
		return m.ConfirmDirectoryFunc(ctx, collectionID, path, d)
	}
	if m.Base != nil {
		return m.Base.ConfirmDirectory(ctx, collectionID, path, d)
	}
	return true, nil
}

func (m *Store) LoadDirectoryTrackingStatus(ctx context.Context, collectionID, path string) (status.Status, error) {
	m.record("LoadDirectoryTrackingStatus")
	if m.LoadStatusFunc != nil {
		return m.LoadStatusFunc(ctx, collectionID, path)
	}
	if m.Base != nil {
		return m.Base.LoadDirectoryTrackingStatus(ctx, collectionID, path)
	}
	return 0, status.ErrNotFound
}

func (m *Store) AggregateDirectoriesTrackingStatus(ctx context.Context, collectionID, prefix string) (status.DirectoriesStatus, error) {
	m.record("AggregateDirectoriesTrackingStatus")
	if m.AggregateFunc != nil {
		return m.AggregateFunc(ctx, collectionID, prefix)
	}
	if m.Base != nil {
		return m.Base.AggregateDirectoriesTrackingStatus(ctx, collectionID, prefix)
	}
	return status.DirectoriesStatus{}, nil
}

func (m *Store) FindUntrackedSources(ctx context.Context, collectionID, prefix string) ([]status.SourceID, error) {
	m.record("FindUntrackedSources")
	if m.FindUntrackedSourcesFunc != nil {
		return m.FindUntrackedSourcesFunc(ctx, collectionID, prefix)
	}
	if m.Base != nil {
		return m.Base.FindUntrackedSources(ctx, collectionID, prefix)
	}
	return nil, nil
}

func (m *Store) RelinkSource(ctx context.Context, oldID, newID status.SourceID) (bool, error) {
	m.record("RelinkSource")
	if m.RelinkSourceFunc != nil {
		return m.RelinkSourceFunc(ctx, oldID, newID)
	}
	if m.Base != nil {
		return m.Base.RelinkSource(ctx, oldID, newID)
	}
	return false, nil
}

func (m *Store) RegisterMediaSource(ctx context.Context, collectionID, contentPath string, fingerprint status.Digest) (status.SourceID, bool, error) {
	m.record("RegisterMediaSource")
	if m.RegisterMediaSourceFunc != nil {
		return m.RegisterMediaSourceFunc(ctx, collectionID, contentPath, fingerprint)
	}
	if m.Base != nil {
		return m.Base.RegisterMediaSource(ctx, collectionID, contentPath, fingerprint)
	}
	return 0, true, nil
}

func (m *Store) LoadMediaSourceByPath(ctx context.Context, collectionID, contentPath string) (*status.MediaSource, error) {
	m.record("LoadMediaSourceByPath")
	if m.LoadMediaSourceByPathFunc != nil {
		return m.LoadMediaSourceByPathFunc(ctx, collectionID, contentPath)
	}
	if m.Base != nil {
		return m.Base.LoadMediaSourceByPath(ctx, collectionID, contentPath)
	}
	return nil, status.ErrNotFound
}

func (m *Store) LoadMediaSource(ctx context.Context, id status.SourceID) (*status.MediaSource, error) {
	m.record("LoadMediaSource")
	if m.Base != nil {
		return m.Base.LoadMediaSource(ctx, id)
	}
	return nil, status.ErrNotFound
}

func (m *Store) FindRelinkCandidate(ctx context.Context, collectionID string, old status.SourceID) (status.SourceID, bool, error) {
	m.record("FindRelinkCandidate")
	if m.FindRelinkCandidateFunc != nil {
		return m.FindRelinkCandidateFunc(ctx, collectionID, old)
	}
	if m.Base != nil {
		return m.Base.FindRelinkCandidate(ctx, collectionID, old)
	}
	return 0, false, nil
}

func (m *Store) UpdateTrackUserData(ctx context.Context, id status.SourceID, data status.TrackUserData) error {
	m.record("UpdateTrackUserData")
	if m.Base != nil {
		return m.Base.UpdateTrackUserData(ctx, id, data)
	}
	return nil
}

func (m *Store) LoadTrackUserData(ctx context.Context, id status.SourceID) (status.TrackUserData, error) {
	m.record("LoadTrackUserData")
	if m.Base != nil {
		return m.Base.LoadTrackUserData(ctx, id)
	}
	return status.TrackUserData{}, nil
}
