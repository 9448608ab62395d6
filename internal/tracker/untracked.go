package tracker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/source"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
	"github.com/dl-alexandre/medialib/internal/tracker/walker"
)

type UntrackedOptions struct {
	Prefix  string
	Exclude []string
	// AllFiles reports every file, not only media files.
	AllFiles         bool
	ProgressInterval time.Duration
	OnProgress       func(walker.Progress)
}

// UntrackedFile is a file on disk with no registered media source.
type UntrackedFile struct {
	Path     string    `json:"path"`
	AbsPath  string    `json:"absPath"`
	URL      string    `json:"url"`
	Size     uint64    `json:"size"`
	Modified time.Time `json:"modified"`
}

type UntrackedResult struct {
	Files      []UntrackedFile   `json:"files"`
	Completion walker.Completion `json:"completion"`
	Progress   walker.Progress   `json:"progress"`
}

// FindUntrackedFiles walks c below opts.Prefix and reports every file whose
// locator has no media source in the store. It only reads from the store, so
// it needs no collection lock and may run next to a sweep.
func (e *Engine) FindUntrackedFiles(ctx context.Context, c status.Collection, opts UntrackedOptions) (UntrackedResult, error) {
	var res UntrackedResult
	prefix, err := status.NormalizePrefix(opts.Prefix)
	if err != nil {
		return res, err
	}
	resolver, err := collectionResolver(c)
	if err != nil {
		return res, err
	}
	maxDepth, err := sweepDepth(c.MaxDepth, 0, prefix)
	if err != nil {
		return res, err
	}

	w := walker.New(walker.Options{
		Matcher:          newMatcher(c, opts.Exclude),
		MaxDepth:         maxDepth,
		ProgressInterval: opts.ProgressInterval,
		OnProgress:       opts.OnProgress,
		Logger:           e.logger,
	})
	v := &untrackedVisitor{
		store:        e.store,
		resolver:     resolver,
		collectionID: c.ID,
		allFiles:     opts.AllFiles,
	}
	outcome, err := w.Walk(ctx, filepath.Join(c.RootPath, filepath.FromSlash(prefix)), prefix, v)
	res.Files = v.found
	res.Completion = outcome.Completion
	res.Progress = outcome.Progress
	if err != nil {
		return res, fmt.Errorf("find untracked files: %w", err)
	}
	e.logger.WithContext(ctx).Info("untracked files listed",
		logging.String("collection", c.ID),
		logging.String("prefix", prefix),
		logging.Int("untracked", len(res.Files)))
	return res, nil
}

func collectionResolver(c status.Collection) (*source.Resolver, error) {
	if c.RootPath == "" && c.RootURL != "" {
		return source.NewResolverFromURL(c.RootURL)
	}
	return source.NewResolver(c.RootPath)
}

type untrackedVisitor struct {
	store        status.SourceStore
	resolver     *source.Resolver
	collectionID string
	allFiles     bool
	found        []UntrackedFile
}

func (v *untrackedVisitor) AncestorFinished(context.Context, walker.FinishedDirectory) (walker.Decision, error) {
	return walker.Continue, nil
}

func (v *untrackedVisitor) VisitFile(ctx context.Context, f walker.FileEntry) (walker.Decision, error) {
	if !v.allFiles && !IsMediaFile(f.Path) {
		return walker.Continue, nil
	}
	locator, err := v.resolver.ResolveURLFromPath(f.Path)
	if err != nil {
		return walker.Abort, err
	}
	contentPath, err := v.resolver.ResolvePathFromURL(locator)
	if err != nil {
		return walker.Abort, err
	}
	_, err = v.store.LoadMediaSourceByPath(ctx, v.collectionID, contentPath)
	switch {
	case err == nil:
		return walker.Continue, nil
	case errors.Is(err, status.ErrNotFound):
		v.found = append(v.found, UntrackedFile{
			Path:     contentPath,
			AbsPath:  f.AbsPath,
			URL:      locator,
			Size:     f.Input.Size,
			Modified: f.Input.Modified,
		})
		return walker.Continue, nil
	case status.KindOf(err) == status.KindAborted:
		return walker.Abort, nil
	default:
		return walker.Abort, err
	}
}
