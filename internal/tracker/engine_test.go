package tracker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testhelpers "github.com/dl-alexandre/medialib/internal/testing"
	"github.com/dl-alexandre/medialib/internal/testing/mocks"
	"github.com/dl-alexandre/medialib/internal/tracker/index"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
	"github.com/dl-alexandre/medialib/internal/tracker/walker"
)

type fixture struct {
	engine     *Engine
	store      *index.Store
	tree       *testhelpers.MediaTree
	collection status.Collection
}

func newFixture(t *testing.T, files ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	tree := testhelpers.NewMediaTree(t, files...)
	store, err := index.Open(ctx, index.DriverSQLite, filepath.Join(t.TempDir(), "medialib.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := status.Collection{
		ID:       uuid.NewString(),
		Title:    "Music",
		RootPath: tree.Root,
	}
	require.NoError(t, store.CreateCollection(ctx, c))
	return &fixture{
		engine:     NewEngine(store, nil),
		store:      store,
		tree:       tree,
		collection: c,
	}
}

func (f *fixture) sweep(t *testing.T, prefix string) SweepResult {
	t.Helper()
	res, err := f.engine.Sweep(context.Background(), f.collection, SweepOptions{Prefix: prefix})
	require.NoError(t, err)
	require.Equal(t, walker.Finished, res.Completion)
	return res
}

func (f *fixture) importAll(t *testing.T) ImportSummary {
	t.Helper()
	sum, err := f.engine.ImportPending(context.Background(), f.collection, ImportOptions{})
	require.NoError(t, err)
	return sum
}

func (f *fixture) status(t *testing.T, path string) status.Status {
	t.Helper()
	st, err := f.store.LoadDirectoryTrackingStatus(context.Background(), f.collection.ID, path)
	require.NoError(t, err)
	return st
}

func isRoot() bool {
	return os.Geteuid() == 0
}

func chmod(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.Chmod(path, mode))
	t.Cleanup(func() { _ = os.Chmod(path, 0755) })
}

func TestSweepFirstVisitAddsDirectoriesWithFiles(t *testing.T) {
	f := newFixture(t, "jazz/miles/so_what.mp3", "jazz/coltrane/naima.flac", "rock/a.mp3")

	res := f.sweep(t, "")
	assert.Equal(t, Summary{Added: 3}, res.Summary)
	assert.Equal(t, status.Added, f.status(t, "jazz/miles/"))
	assert.Equal(t, status.Added, f.status(t, "jazz/coltrane/"))
	assert.Equal(t, status.Added, f.status(t, "rock/"))

	// directories holding only sub-directories get no record
	_, err := f.store.LoadDirectoryTrackingStatus(context.Background(), f.collection.ID, "jazz/")
	assert.ErrorIs(t, err, status.ErrNotFound)
	assert.Equal(t, walker.Done, res.Progress.Status)
	assert.False(t, res.Incomplete())
}

func TestSweepIdempotent(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3", "jazz/b.mp3", "rock/c.mp3", "rock/live/d.mp3")
	f.sweep(t, "")
	f.importAll(t)

	before, err := f.store.ListDirectories(context.Background(), f.collection.ID, "", nil, status.Pagination{})
	require.NoError(t, err)

	res := f.sweep(t, "")
	assert.Equal(t, Summary{Confirmed: 3}, res.Summary)

	after, err := f.store.ListDirectories(context.Background(), f.collection.ID, "", nil, status.Pagination{})
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Digest, after[i].Digest, before[i].Path)
		assert.Equal(t, status.Current, after[i].Status, after[i].Path)
	}
}

func TestSweepDetectsChangeAndPropagates(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3", "jazz/miles/so_what.mp3", "rock/c.mp3")
	f.sweep(t, "")
	f.importAll(t)

	f.tree.Touch("jazz/miles/so_what.mp3")
	res := f.sweep(t, "")

	assert.Equal(t, Summary{Confirmed: 1, Modified: 2}, res.Summary)
	assert.Equal(t, status.Modified, f.status(t, "jazz/miles/"))
	assert.Equal(t, status.Modified, f.status(t, "jazz/"))
	assert.Equal(t, status.Current, f.status(t, "rock/"))
}

func TestSweepSizeChangeIsDetected(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3")
	f.sweep(t, "")
	f.importAll(t)

	f.tree.WriteFile("jazz/a.mp3", 4096)
	res := f.sweep(t, "")
	assert.Equal(t, uint64(1), res.Summary.Modified)
}

func TestSweepAbortNeverOrphans(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3", "rock/b.mp3", "pop/c.mp3")
	f.sweep(t, "")
	f.importAll(t)
	f.tree.Remove("rock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	res, err := f.engine.Sweep(ctx, f.collection, SweepOptions{
		ProgressInterval: -1,
		OnProgress: func(p walker.Progress) {
			if p.Status == walker.InProgress {
				cancel()
			}
		},
	})
	require.NoError(t, err)
	assert.Equal(t, walker.Aborted, res.Completion)
	assert.True(t, res.Incomplete())
	assert.Zero(t, res.Summary.Untracked)
	assert.Equal(t, status.Outdated, f.status(t, "rock/"))

	res = f.sweep(t, "")
	assert.Equal(t, uint64(1), res.Summary.Untracked)
	assert.Equal(t, uint64(2), res.Summary.Confirmed)
	assert.Equal(t, status.Orphaned, f.status(t, "rock/"))
	assert.Equal(t, status.Current, f.status(t, "jazz/"))
}

func TestSweepPrefixScope(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3", "rock/b.mp3")
	f.sweep(t, "")
	f.importAll(t)

	res := f.sweep(t, "jazz")
	assert.Equal(t, "jazz/", res.Prefix)
	assert.Equal(t, Summary{Confirmed: 1}, res.Summary, "prefix digest matches the full sweep digest")

	f.tree.Remove("rock")
	f.tree.Touch("jazz/a.mp3")
	res = f.sweep(t, "jazz/")
	assert.Equal(t, Summary{Modified: 1}, res.Summary)
	assert.Equal(t, status.Current, f.status(t, "rock/"), "records outside the prefix are untouched")
}

func TestSweepMissingPrefixOrphansIt(t *testing.T) {
	f := newFixture(t, "jazz/miles/a.mp3", "jazz/b.mp3", "rock/c.mp3")
	f.sweep(t, "")
	f.importAll(t)

	f.tree.Remove("jazz")
	res := f.sweep(t, "jazz/")
	assert.Equal(t, uint64(2), res.Summary.Untracked)
	assert.Equal(t, status.Orphaned, f.status(t, "jazz/miles/"))
	assert.Equal(t, status.Current, f.status(t, "rock/"))
}

func TestSweepPrefixIsCaseSensitive(t *testing.T) {
	f := newFixture(t, "Jazz/a.mp3", "jazz/b.mp3")
	f.sweep(t, "")
	f.importAll(t)

	res := f.sweep(t, "jazz/")
	assert.EqualValues(t, 1, res.Outdated)
	assert.Equal(t, Summary{Confirmed: 1}, res.Summary)
	assert.Equal(t, status.Current, f.status(t, "Jazz/"))
	assert.Equal(t, status.Current, f.status(t, "jazz/"))
}

func TestSweepThroughSymlinkedRoot(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3", "rock/b.mp3")
	f.sweep(t, "")
	f.importAll(t)

	link := filepath.Join(t.TempDir(), "music")
	require.NoError(t, os.Symlink(f.tree.Root, link))
	c := f.collection
	c.RootPath = link

	res, err := f.engine.Sweep(context.Background(), c, SweepOptions{})
	require.NoError(t, err)
	assert.Equal(t, walker.Finished, res.Completion)
	assert.Equal(t, Summary{Confirmed: 2}, res.Summary, "digests match the sweep over the target")
	assert.Equal(t, status.Current, f.status(t, "jazz/"))
}

func TestSweepPrefixNamingFileFailsWithoutWriting(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3")
	f.sweep(t, "")
	f.importAll(t)
	m := &mocks.Store{Base: f.store}
	engine := NewEngine(m, nil)

	_, err := engine.Sweep(context.Background(), f.collection, SweepOptions{Prefix: "jazz/a.mp3"})
	assert.ErrorIs(t, err, status.ErrInvalidPath)
	assert.Zero(t, m.Calls["UpdateDirectoriesStatus"])
	assert.Equal(t, status.Current, f.status(t, "jazz/"))
}

func TestSweepMissingRootFailsWithoutWriting(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3")
	m := &mocks.Store{Base: f.store}
	engine := NewEngine(m, nil)

	c := f.collection
	c.RootPath = filepath.Join(f.tree.Root, "does-not-exist")
	_, err := engine.Sweep(context.Background(), c, SweepOptions{})
	require.Error(t, err)
	assert.Equal(t, status.KindIo, status.KindOf(err))
	assert.Zero(t, m.Calls["UpdateDirectoriesStatus"])
}

func TestSweepRejectsPathEscape(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3")
	_, err := f.engine.Sweep(context.Background(), f.collection, SweepOptions{Prefix: "../etc"})
	assert.ErrorIs(t, err, status.ErrInvalidPath)
}

func TestSweepStorageConflictCountsAsRejected(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3", "rock/b.mp3")
	m := &mocks.Store{
		Base: f.store,
		UpdateDirectoryDigestFunc: func(ctx context.Context, collectionID, path string, d status.Digest) (status.UpdateOutcome, error) {
			if path == "rock/" {
				return 0, status.ErrStorageConflict
			}
			return f.store.UpdateDirectoryDigest(ctx, collectionID, path, d)
		},
	}
	res, err := NewEngine(m, nil).Sweep(context.Background(), f.collection, SweepOptions{})
	require.NoError(t, err)
	assert.Equal(t, walker.Finished, res.Completion)
	assert.Equal(t, Summary{Added: 1, Rejected: 1}, res.Summary)
	assert.True(t, res.Incomplete())
}

func TestSweepSkippedStatusCountsAsRejected(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3")
	f.sweep(t, "")

	// still Added: nothing confirmed it in between
	res := f.sweep(t, "")
	assert.Equal(t, Summary{Rejected: 1}, res.Summary)
	assert.Equal(t, status.Added, f.status(t, "jazz/"))
}

func TestSweepStoreFailureIsFatalAndSkipsOrphaning(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3")
	f.sweep(t, "")
	f.importAll(t)

	m := &mocks.Store{
		Base: f.store,
		UpdateDirectoryDigestFunc: func(context.Context, string, string, status.Digest) (status.UpdateOutcome, error) {
			return 0, errors.New("disk I/O error")
		},
	}
	_, err := NewEngine(m, nil).Sweep(context.Background(), f.collection, SweepOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, m.Calls["UpdateDirectoriesStatus"], "only the pre-mark ran")
	assert.Equal(t, status.Outdated, f.status(t, "jazz/"))
}

func TestSweepUnreadableDirectoryIsSkipped(t *testing.T) {
	if isRoot() {
		t.Skip("permissions are not enforced for root")
	}
	f := newFixture(t, "jazz/a.mp3", "locked/b.mp3")
	chmod(t, f.tree.Path("locked"), 0)

	res := f.sweep(t, "")
	assert.Equal(t, uint64(1), res.Summary.Skipped)
	assert.Equal(t, uint64(1), res.Summary.Added)
	assert.True(t, res.Incomplete())
}

func TestSweepExcludePatterns(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3", "jazz/@eaDir/thumb.jpg", "scratch/b.mp3")
	f.collection.ExcludePatterns = []string{"scratch/"}

	res := f.sweep(t, "")
	assert.Equal(t, Summary{Added: 1}, res.Summary)
	assert.Equal(t, uint64(2), res.Progress.EntriesSkipped)
}

func TestConfirmationRace(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3")
	ctx := context.Background()
	f.sweep(t, "")

	pending, err := f.engine.PendingDirectories(ctx, f.collection.ID, "", status.Pagination{})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	observed := pending[0].Digest

	f.tree.WriteFile("jazz/b.mp3", 256)
	f.sweep(t, "")
	require.Equal(t, status.Modified, f.status(t, "jazz/"))

	ok, err := f.engine.Confirm(ctx, f.collection.ID, "jazz", observed)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, status.Modified, f.status(t, "jazz/"))

	pending, err = f.engine.PendingDirectories(ctx, f.collection.ID, "", status.Pagination{})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	ok, err = f.engine.Confirm(ctx, f.collection.ID, "jazz/", pending[0].Digest)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, status.Current, f.status(t, "jazz/"))
}

func TestImportRejectsDirectoryChangedDuringImport(t *testing.T) {
	f := newFixture(t, "jazz/a.mp3")
	ctx := context.Background()
	f.sweep(t, "")

	sweeper := NewEngine(f.store, nil)
	m := &mocks.Store{
		Base: f.store,
		ConfirmDirectoryFunc: func(ctx context.Context, collectionID, path string, d status.Digest) (bool, error) {
			f.tree.WriteFile("jazz/late.flac", 64)
			_, err := sweeper.Sweep(ctx, f.collection, SweepOptions{})
			require.NoError(t, err)
			return f.store.ConfirmDirectory(ctx, collectionID, path, d)
		},
	}
	sum, err := NewEngine(m, nil).ImportPending(ctx, f.collection, ImportOptions{PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sum.Rejected)
	assert.Zero(t, sum.Confirmed)
	assert.Equal(t, uint64(1), sum.SourcesRegistered)
	assert.True(t, f.status(t, "jazz/").RequiresConfirmation())

	sum = f.importAll(t)
	assert.Equal(t, uint64(1), sum.Confirmed)
	assert.Equal(t, uint64(1), sum.SourcesRegistered, "late.flac")
}

func TestImportPagesThroughPendingDirectories(t *testing.T) {
	f := newFixture(t, "a/1.mp3", "b/2.mp3", "c/3.mp3", "d/4.mp3", "e/5.mp3", "e/cover.jpg")
	f.sweep(t, "")

	sum, err := f.engine.ImportPending(context.Background(), f.collection, ImportOptions{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), sum.Directories)
	assert.Equal(t, uint64(5), sum.Confirmed)
	assert.Equal(t, uint64(5), sum.SourcesRegistered)

	agg, err := f.engine.DirectoriesStatus(context.Background(), f.collection.ID, "")
	require.NoError(t, err)
	assert.Equal(t, status.DirectoriesStatus{Current: 5}, agg)
	assert.False(t, agg.IsPending())
}

func TestImportSkipsVanishedDirectory(t *testing.T) {
	f := newFixture(t, "a/1.mp3", "b/2.mp3")
	f.sweep(t, "")
	f.tree.Remove("a")

	sum := f.importAll(t)
	assert.Equal(t, uint64(1), sum.Failed)
	assert.Equal(t, uint64(1), sum.Confirmed)
	assert.Equal(t, status.Added, f.status(t, "a/"))
}

func TestScenario(t *testing.T) {
	f := newFixture(t, "a/1.mp3")
	ctx := context.Background()

	res := f.sweep(t, "")
	assert.Equal(t, Summary{Added: 1}, res.Summary)
	assert.Equal(t, status.Added, f.status(t, "a/"))

	f.importAll(t)
	res = f.sweep(t, "")
	assert.Equal(t, Summary{Confirmed: 1}, res.Summary)
	assert.Equal(t, status.Current, f.status(t, "a/"))

	f.tree.Remove("a")
	res = f.sweep(t, "")
	assert.Equal(t, Summary{Untracked: 1}, res.Summary)
	assert.Equal(t, status.Orphaned, f.status(t, "a/"))

	purge, err := f.engine.PurgeOrphaned(ctx, f.collection.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), purge.UntrackedDirectories)
	assert.Equal(t, 0, purge.RelinkedSources)
	assert.Equal(t, 1, purge.DanglingSources)

	_, err = f.store.LoadDirectoryTrackingStatus(ctx, f.collection.ID, "a/")
	assert.ErrorIs(t, err, status.ErrNotFound)

	again, err := f.engine.PurgeOrphaned(ctx, f.collection.ID, "")
	require.NoError(t, err)
	assert.Zero(t, again.UntrackedDirectories)
	assert.Zero(t, again.RelinkedSources)
}

func TestScenarioRenamedDirectoryKeepsUserData(t *testing.T) {
	f := newFixture(t, "a/1.mp3")
	ctx := context.Background()
	f.sweep(t, "")
	f.importAll(t)

	src, err := f.store.LoadMediaSourceByPath(ctx, f.collection.ID, "a/1.mp3")
	require.NoError(t, err)
	rating := 80
	require.NoError(t, f.store.UpdateTrackUserData(ctx, src.ID, status.TrackUserData{Rating: &rating, PlayCount: 12}))

	f.tree.Rename("a", "b")
	res := f.sweep(t, "")
	assert.Equal(t, Summary{Added: 1, Untracked: 1}, res.Summary)
	f.importAll(t)

	purge, err := f.engine.PurgeOrphaned(ctx, f.collection.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, purge.RelinkedSources)
	assert.Equal(t, 0, purge.DanglingSources)

	_, err = f.store.LoadMediaSource(ctx, src.ID)
	assert.ErrorIs(t, err, status.ErrNotFound)
	moved, err := f.store.LoadMediaSourceByPath(ctx, f.collection.ID, "b/1.mp3")
	require.NoError(t, err)
	data, err := f.store.LoadTrackUserData(ctx, moved.ID)
	require.NoError(t, err)
	require.NotNil(t, data.Rating)
	assert.Equal(t, 80, *data.Rating)
	assert.Equal(t, int64(12), data.PlayCount)
}

func TestFindUntrackedFiles(t *testing.T) {
	f := newFixture(t, "a/1.mp3", "a/cover.jpg", "b/my song #1.mp3")
	ctx := context.Background()
	f.sweep(t, "")
	f.importAll(t)
	f.tree.WriteFile("a/2.flac", 64)

	res, err := f.engine.FindUntrackedFiles(ctx, f.collection, UntrackedOptions{})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "a/2.flac", res.Files[0].Path)
	assert.Equal(t, uint64(64), res.Files[0].Size)
	assert.Equal(t, "file://"+filepath.ToSlash(f.tree.Root)+"/a/2.flac", res.Files[0].URL)

	res, err = f.engine.FindUntrackedFiles(ctx, f.collection, UntrackedOptions{AllFiles: true, Prefix: "a/"})
	require.NoError(t, err)
	var paths []string
	for _, u := range res.Files {
		paths = append(paths, u.Path)
	}
	assert.Equal(t, []string{"a/2.flac", "a/cover.jpg"}, paths)
}

func TestSweepDepthBound(t *testing.T) {
	tests := []struct {
		name       string
		collection int
		override   int
		prefix     string
		want       int
		wantErr    bool
	}{
		{"unbounded", 0, 0, "a/", 0, false},
		{"collection bound at root", 3, 0, "", 3, false},
		{"override wins", 3, 5, "", 5, false},
		{"relative to prefix", 3, 0, "a/b/", 1, false},
		{"prefix at the bound", 2, 0, "a/b/", -1, false},
		{"prefix below the bound", 1, 0, "a/b/", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sweepDepth(tt.collection, tt.override, tt.prefix)
			if tt.wantErr {
				assert.ErrorIs(t, err, status.ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsMediaFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.mp3", true},
		{"B.FLAC", true},
		{"track.opus", true},
		{"cover.jpg", false},
		{"notes", false},
		{"mp3", false},
	}
	for _, tt := range tests {
		if got := IsMediaFile(tt.name); got != tt.want {
			t.Errorf("IsMediaFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
