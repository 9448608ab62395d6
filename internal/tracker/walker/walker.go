// Package walker drives a depth-bounded, cancellable, post-order traversal of a
// directory tree and folds every directory into a metadata digest.
//
// The traversal keeps an explicit stack with one open AncestorVisitor per
// ancestor level, so memory is proportional to depth and not to tree size.
// Children are visited in name order.
package walker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/tracker/digest"
	"github.com/dl-alexandre/medialib/internal/tracker/exclude"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

// DefaultProgressInterval is used when Options.ProgressInterval is zero.
const DefaultProgressInterval = 250 * time.Millisecond

// Options configures a Walker.
type Options struct {
	// Matcher skips excluded entries entirely. Paths passed to it are
	// collection-relative.
	Matcher *exclude.Matcher
	// MaxDepth bounds the descent. The walk root has depth 0; directories
	// deeper than MaxDepth are folded into their parent as plain entries.
	// Zero means unlimited; a negative value descends into nothing.
	MaxDepth int
	// ProgressInterval is the minimum time between two InProgress events.
	// A negative value emits an event after every entry.
	ProgressInterval time.Duration
	OnProgress       func(Progress)
	Logger           logging.Logger
}

// Walker runs traversals. It holds no per-walk state and may be reused.
type Walker struct {
	opts   Options
	logger logging.Logger
}

// New returns a Walker configured by opts.
func New(opts Options) *Walker {
	if opts.ProgressInterval == 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	return &Walker{opts: opts, logger: logging.OrNoOp(opts.Logger)}
}

type frame struct {
	name    string
	entries []os.DirEntry
	next    int
	visitor *AncestorVisitor
}

type walk struct {
	*Walker
	ctx          context.Context
	visitor      Visitor
	fileVisitor  FileVisitor
	progress     Progress
	lastProgress time.Time
	failed       uint64
	stack        []*frame
}

// Walk traverses rootAbs, whose collection-relative directory path is
// basePath ("" for the collection root, otherwise with a trailing slash).
//
// visitor is called once per directory in post-order. If it also implements
// FileVisitor, it receives every regular file as well.
//
// The returned Outcome always carries the counts gathered so far. A cancelled
// ctx or an Abort decision ends the walk with Completion Aborted and a nil
// error. Failing to read the root, or an error returned by the visitor, is
// returned as an error.
func (w *Walker) Walk(ctx context.Context, rootAbs, basePath string, visitor Visitor) (Outcome, error) {
	wk := &walk{
		Walker:  w,
		ctx:     ctx,
		visitor: visitor,
	}
	wk.fileVisitor, _ = visitor.(FileVisitor)
	wk.progress.Started = time.Now()
	wk.progress.Status = InProgress
	wk.lastProgress = wk.progress.Started

	completion, err := wk.run(rootAbs, basePath)

	wk.progress.Elapsed = time.Since(wk.progress.Started)
	wk.progress.Status = Done
	if w.opts.OnProgress != nil {
		w.opts.OnProgress(wk.progress)
	}
	return Outcome{Completion: completion, Progress: wk.progress, EntriesFailed: wk.failed}, err
}

func (wk *walk) run(rootAbs, basePath string) (Completion, error) {
	// the root itself may be a symlink; links below it are never followed
	info, err := os.Stat(rootAbs)
	if err != nil {
		return Finished, fmt.Errorf("stat walk root: %w", err)
	}
	if !info.IsDir() {
		return Finished, fmt.Errorf("walk root %s: %w", rootAbs, status.ErrInvalidPath)
	}
	entries, err := os.ReadDir(rootAbs)
	if err != nil {
		return Finished, fmt.Errorf("read walk root: %w", err)
	}

	self := digest.InputFromFileInfo(filepath.Base(rootAbs), info, digest.CreationTime(rootAbs))
	wk.stack = append(wk.stack, &frame{
		name:    self.Name,
		entries: entries,
		visitor: newAncestorVisitor(basePath, rootAbs, 0, self),
	})

	for len(wk.stack) > 0 {
		if err := wk.ctx.Err(); err != nil {
			wk.logger.Info("walk cancelled", logging.String("root", rootAbs), logging.Err(err))
			return Aborted, nil
		}
		wk.maybeReportProgress()

		top := wk.stack[len(wk.stack)-1]
		if top.next >= len(top.entries) {
			decision, err := wk.finishTop()
			if err != nil {
				return Finished, err
			}
			if decision == Abort {
				return Aborted, nil
			}
			continue
		}

		entry := top.entries[top.next]
		top.next++
		decision, err := wk.visitEntry(top, entry)
		if err != nil {
			return Finished, err
		}
		if decision == Abort {
			return Aborted, nil
		}
	}
	return Finished, nil
}

// finishTop pops the innermost directory, reports it and folds it into its parent.
func (wk *walk) finishTop() (Decision, error) {
	top := wk.stack[len(wk.stack)-1]
	wk.stack = wk.stack[:len(wk.stack)-1]

	finished := top.visitor.Finish()
	wk.progress.DirectoriesFinished++

	decision, err := wk.visitor.AncestorFinished(wk.ctx, finished)
	if err != nil {
		return Abort, fmt.Errorf("directory %q: %w", finished.Path, err)
	}
	if len(wk.stack) > 0 {
		wk.stack[len(wk.stack)-1].visitor.VisitDirectory(top.name, finished.Digest)
	}
	return decision, nil
}

func (wk *walk) visitEntry(parent *frame, entry os.DirEntry) (Decision, error) {
	name := entry.Name()
	isDir := entry.IsDir()
	var rel string
	if isDir {
		rel = status.JoinDir(parent.visitor.path, name)
	} else {
		rel = status.JoinFile(parent.visitor.path, name)
	}

	if wk.opts.Matcher.IsExcluded(rel, isDir) {
		wk.progress.EntriesSkipped++
		wk.logger.Debug("entry excluded", logging.String("path", rel))
		return Continue, nil
	}

	abs := filepath.Join(parent.visitor.absPath, name)
	info, err := entry.Info()
	if err != nil {
		wk.skip(rel, err)
		return Continue, nil
	}
	in := digest.InputFromFileInfo(name, info, digest.CreationTime(abs))

	switch {
	case in.Kind == digest.KindDir:
		depth := parent.visitor.depth + 1
		if wk.opts.MaxDepth != 0 && depth > wk.opts.MaxDepth {
			parent.visitor.VisitEntry(in)
			wk.progress.EntriesFinished++
			return Continue, nil
		}
		children, err := os.ReadDir(abs)
		if err != nil {
			wk.skip(rel, err)
			return Continue, nil
		}
		wk.stack = append(wk.stack, &frame{
			name:    name,
			entries: children,
			visitor: newAncestorVisitor(rel, abs, depth, in),
		})
		return Continue, nil

	case in.Kind == digest.KindSymlink:
		parent.visitor.VisitEntry(in)
		wk.progress.EntriesFinished++
		return Continue, nil

	case !info.Mode().IsRegular():
		wk.progress.EntriesSkipped++
		wk.logger.Debug("irregular entry skipped", logging.String("path", rel), logging.String("mode", info.Mode().String()))
		return Continue, nil
	}

	d := parent.visitor.VisitEntry(in)
	wk.progress.EntriesFinished++
	if wk.fileVisitor == nil {
		return Continue, nil
	}
	decision, err := wk.fileVisitor.VisitFile(wk.ctx, FileEntry{
		Path:    rel,
		AbsPath: abs,
		Input:   in,
		Digest:  d,
	})
	if err != nil {
		return Abort, fmt.Errorf("file %q: %w", rel, err)
	}
	return decision, nil
}

func (wk *walk) skip(rel string, err error) {
	wk.progress.EntriesSkipped++
	wk.failed++
	wk.logger.Warn("entry skipped", logging.String("path", rel), logging.Err(err))
}

func (wk *walk) maybeReportProgress() {
	if wk.opts.OnProgress == nil {
		return
	}
	now := time.Now()
	if wk.opts.ProgressInterval > 0 && now.Sub(wk.lastProgress) < wk.opts.ProgressInterval {
		return
	}
	wk.lastProgress = now
	wk.progress.Elapsed = now.Sub(wk.progress.Started)
	wk.opts.OnProgress(wk.progress)
}
