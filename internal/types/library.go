package types

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dl-alexandre/medialib/internal/tracker"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

// CollectionList renders collections.
type CollectionList []status.Collection

func (l CollectionList) Headers() []string {
	return []string{"ID", "Title", "Root", "Max Depth", "Last Sweep"}
}

func (l CollectionList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, c := range l {
		depth := "-"
		if c.MaxDepth > 0 {
			depth = strconv.Itoa(c.MaxDepth)
		}
		rows = append(rows, []string{
			c.ID,
			truncateID(c.Title, 30),
			c.RootPath,
			depth,
			formatWhen(c.LastSweepAt),
		})
	}
	return rows
}

func (l CollectionList) EmptyMessage() string {
	return "No collections. Add one with: medialib collection add <root>"
}

// SweepReport renders the outcome of one sweep.
type SweepReport struct {
	tracker.SweepResult
	Status status.DirectoriesStatus `json:"status"`
}

func (r *SweepReport) Headers() []string {
	return []string{"Completion", "Confirmed", "Added", "Modified", "Rejected", "Skipped", "Untracked", "Entries", "Elapsed"}
}

func (r *SweepReport) Rows() [][]string {
	s := r.Summary
	return [][]string{{
		r.Completion.String(),
		humanize.Comma(int64(s.Confirmed)),
		humanize.Comma(int64(s.Added)),
		humanize.Comma(int64(s.Modified)),
		humanize.Comma(int64(s.Rejected)),
		humanize.Comma(int64(s.Skipped)),
		humanize.Comma(int64(s.Untracked)),
		humanize.Comma(int64(r.Progress.EntriesFinished)),
		r.Duration.Round(time.Millisecond).String(),
	}}
}

func (r *SweepReport) EmptyMessage() string {
	return "Nothing swept"
}

// StatusReport renders the per-status directory counts of a collection.
type StatusReport struct {
	CollectionID string                   `json:"collectionId"`
	Prefix       string                   `json:"prefix"`
	Status       status.DirectoriesStatus `json:"status"`
	InSync       bool                     `json:"inSync"`
}

func NewStatusReport(collectionID, prefix string, st status.DirectoriesStatus) *StatusReport {
	return &StatusReport{
		CollectionID: collectionID,
		Prefix:       prefix,
		Status:       st,
		InSync:       !st.IsPending(),
	}
}

func (r *StatusReport) Headers() []string {
	return []string{"Status", "Directories"}
}

func (r *StatusReport) Rows() [][]string {
	s := r.Status
	return [][]string{
		{status.Current.String(), humanize.Comma(int64(s.Current))},
		{status.Outdated.String(), humanize.Comma(int64(s.Outdated))},
		{status.Added.String(), humanize.Comma(int64(s.Added))},
		{status.Modified.String(), humanize.Comma(int64(s.Modified))},
		{status.Orphaned.String(), humanize.Comma(int64(s.Orphaned))},
		{"total", humanize.Comma(int64(s.Total()))},
	}
}

func (r *StatusReport) EmptyMessage() string {
	return "No tracked directories"
}

// DirectoryList renders tracked directories.
type DirectoryList []status.TrackedDirectory

func (l DirectoryList) Headers() []string {
	return []string{"Path", "Status", "Digest", "Updated"}
}

func (l DirectoryList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, d := range l {
		path := d.Path
		if path == "" {
			path = "/"
		}
		rows = append(rows, []string{
			path,
			d.Status.String(),
			d.Digest.String(),
			formatWhen(d.UpdatedAt),
		})
	}
	return rows
}

func (l DirectoryList) EmptyMessage() string {
	return "No directories pending"
}

// UntrackedList renders files that have not been imported.
type UntrackedList struct {
	tracker.UntrackedResult
}

func (l *UntrackedList) Headers() []string {
	return []string{"Path", "Size", "Modified"}
}

func (l *UntrackedList) Rows() [][]string {
	rows := make([][]string, 0, len(l.Files))
	for _, f := range l.Files {
		rows = append(rows, []string{
			f.Path,
			humanize.IBytes(f.Size),
			formatWhen(f.Modified),
		})
	}
	return rows
}

func (l *UntrackedList) EmptyMessage() string {
	return "All files are imported"
}

// ImportReport renders an import run.
type ImportReport struct {
	tracker.ImportSummary
}

func (r *ImportReport) Headers() []string {
	return []string{"Directories", "Confirmed", "Rejected", "Failed", "Registered", "Refreshed"}
}

func (r *ImportReport) Rows() [][]string {
	return [][]string{{
		humanize.Comma(int64(r.Directories)),
		humanize.Comma(int64(r.Confirmed)),
		humanize.Comma(int64(r.Rejected)),
		humanize.Comma(int64(r.Failed)),
		humanize.Comma(int64(r.SourcesRegistered)),
		humanize.Comma(int64(r.SourcesRefreshed)),
	}}
}

func (r *ImportReport) EmptyMessage() string {
	return "Nothing to import"
}

// PurgeReport renders a purge run.
type PurgeReport struct {
	tracker.PurgeSummary
}

func (r *PurgeReport) Headers() []string {
	return []string{"Untracked Directories", "Relinked Sources", "Dangling Sources"}
}

func (r *PurgeReport) Rows() [][]string {
	return [][]string{{
		humanize.Comma(r.UntrackedDirectories),
		strconv.Itoa(r.RelinkedSources),
		strconv.Itoa(r.DanglingSources),
	}}
}

func (r *PurgeReport) EmptyMessage() string {
	return "Nothing purged"
}

// ConfirmResult is the outcome of a manual confirmation.
type ConfirmResult struct {
	CollectionID string `json:"collectionId"`
	Path         string `json:"path"`
	Digest       string `json:"digest"`
	Confirmed    bool   `json:"confirmed"`
}

func (r *ConfirmResult) Headers() []string {
	return []string{"Path", "Digest", "Confirmed"}
}

func (r *ConfirmResult) Rows() [][]string {
	return [][]string{{r.Path, truncateID(r.Digest, 19), fmt.Sprintf("%t", r.Confirmed)}}
}

func (r *ConfirmResult) EmptyMessage() string {
	return ""
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func truncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	if maxLen <= 3 {
		return id[:maxLen]
	}
	return id[:maxLen-3] + "..."
}
