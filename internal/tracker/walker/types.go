package walker

import (
	"context"
	"time"

	"github.com/dl-alexandre/medialib/internal/tracker/digest"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

// Completion tells how a walk ended.
type Completion int

const (
	Finished Completion = iota
	Aborted
)

func (c Completion) String() string {
	if c == Aborted {
		return "aborted"
	}
	return "finished"
}

// MarshalText implements encoding.TextMarshaler.
func (c Completion) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Decision is returned by callbacks to continue or stop the walk early.
type Decision int

const (
	Continue Decision = iota
	Abort
)

// ProgressStatus distinguishes intermediate from final progress events.
type ProgressStatus int

const (
	InProgress ProgressStatus = iota
	Done
)

func (s ProgressStatus) String() string {
	if s == Done {
		return "finished"
	}
	return "in-progress"
}

// MarshalText implements encoding.TextMarshaler.
func (s ProgressStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Progress counts what a walk has done so far.
type Progress struct {
	Started             time.Time      `json:"started"`
	Elapsed             time.Duration  `json:"elapsed"`
	Status              ProgressStatus `json:"status"`
	DirectoriesFinished uint64         `json:"directoriesFinished"`
	EntriesSkipped      uint64         `json:"entriesSkipped"`
	EntriesFinished     uint64         `json:"entriesFinished"`
}

// Outcome is returned by Walk in every termination mode, including partial counts.
type Outcome struct {
	Completion Completion `json:"completion"`
	Progress   Progress   `json:"progress"`
	// EntriesFailed is the part of EntriesSkipped caused by I/O errors
	// rather than exclusion.
	EntriesFailed uint64 `json:"entriesFailed"`
}

// FinishedDirectory is handed to the ancestor-finished callback once all
// children of a directory have been folded.
type FinishedDirectory struct {
	Path      string
	AbsPath   string
	Depth     int
	Digest    status.Digest
	FileCount int
}

// FileEntry is a visited non-directory entry.
type FileEntry struct {
	Path    string
	AbsPath string
	Input   digest.Input
	Digest  status.Digest
}

// Visitor receives finished directories in post-order.
type Visitor interface {
	AncestorFinished(ctx context.Context, dir FinishedDirectory) (Decision, error)
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc func(ctx context.Context, dir FinishedDirectory) (Decision, error)

func (f VisitorFunc) AncestorFinished(ctx context.Context, dir FinishedDirectory) (Decision, error) {
	return f(ctx, dir)
}

// FileVisitor is optionally implemented by visitors that also want file entries.
type FileVisitor interface {
	VisitFile(ctx context.Context, file FileEntry) (Decision, error)
}
