package types

import (
	"testing"
	"time"

	"github.com/dl-alexandre/medialib/internal/tracker"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
	"github.com/dl-alexandre/medialib/internal/tracker/walker"
)

func TestTruncateID(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghijklmnopqrstuvwxyz", 20, "abcdefghijklmnopq..."},
		{"abcdef", 3, "abc"},
	}
	for _, tc := range cases {
		if got := truncateID(tc.in, tc.max); got != tc.want {
			t.Errorf("truncateID(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestCollectionListRows(t *testing.T) {
	list := CollectionList{{
		ID:       "c1",
		Title:    "Music",
		RootPath: "/srv/music",
	}, {
		ID:          "c2",
		Title:       "Audiobooks",
		RootPath:    "/srv/books",
		MaxDepth:    4,
		LastSweepAt: time.Now().Add(-2 * time.Hour),
	}}
	rows := list.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][3] != "-" || rows[0][4] != "never" {
		t.Errorf("unexpected first row: %#v", rows[0])
	}
	if rows[1][3] != "4" || rows[1][4] != "2 hours ago" {
		t.Errorf("unexpected second row: %#v", rows[1])
	}
	if len(CollectionList{}.Rows()) != 0 {
		t.Error("empty list should render no rows")
	}
}

func TestSweepReportRows(t *testing.T) {
	r := &SweepReport{SweepResult: tracker.SweepResult{
		Completion: walker.Aborted,
		Summary:    tracker.Summary{Confirmed: 12345, Skipped: 2},
		Progress:   walker.Progress{EntriesFinished: 1000000},
		Duration:   1500 * time.Millisecond,
	}}
	row := r.Rows()[0]
	want := []string{"aborted", "12,345", "0", "0", "0", "2", "0", "1,000,000", "1.5s"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %s = %q, want %q", r.Headers()[i], row[i], want[i])
		}
	}
}

func TestStatusReport(t *testing.T) {
	r := NewStatusReport("c1", "", status.DirectoriesStatus{Current: 3, Orphaned: 1})
	if r.InSync {
		t.Error("orphaned directories mean the collection is not in sync")
	}
	rows := r.Rows()
	if last := rows[len(rows)-1]; last[0] != "total" || last[1] != "4" {
		t.Errorf("unexpected total row: %#v", last)
	}
	if !NewStatusReport("c1", "", status.DirectoriesStatus{Current: 3}).InSync {
		t.Error("only current directories should be in sync")
	}
}

func TestDirectoryListRootPath(t *testing.T) {
	rows := DirectoryList{{Path: "", Status: status.Added}}.Rows()
	if rows[0][0] != "/" || rows[0][1] != "added" {
		t.Errorf("unexpected row: %#v", rows[0])
	}
}

func TestUntrackedListSizes(t *testing.T) {
	l := &UntrackedList{tracker.UntrackedResult{Files: []tracker.UntrackedFile{{Path: "a/1.flac", Size: 31457280}}}}
	if got := l.Rows()[0][1]; got != "30 MiB" {
		t.Errorf("size = %q, want 30 MiB", got)
	}
}
