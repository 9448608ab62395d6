package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/metrics"
	"github.com/dl-alexandre/medialib/internal/tracker/digest"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

// DefaultImportPageSize is used when ImportOptions.PageSize is not positive.
const DefaultImportPageSize = 100

type ImportOptions struct {
	Prefix   string
	PageSize int
}

type ImportSummary struct {
	Directories uint64 `json:"directories"`
	Confirmed   uint64 `json:"confirmed"`
	// Rejected directories changed after they were read and stay pending.
	Rejected uint64 `json:"rejected"`
	// Failed directories could not be listed and stay pending.
	Failed            uint64 `json:"failed"`
	SourcesRegistered uint64 `json:"sourcesRegistered"`
	SourcesRefreshed  uint64 `json:"sourcesRefreshed"`
}

// ImportPending registers the media files of every Added or Modified
// directory under opts.Prefix and confirms each directory with the digest it
// was loaded with.
//
// The importer does not take the collection lock: a sweep running at the same
// time makes the confirmation fail and the directory is picked up again by
// the next import.
func (e *Engine) ImportPending(ctx context.Context, c status.Collection, opts ImportOptions) (ImportSummary, error) {
	var sum ImportSummary
	prefix, err := status.NormalizePrefix(opts.Prefix)
	if err != nil {
		return sum, err
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultImportPageSize
	}
	resolver, err := collectionResolver(c)
	if err != nil {
		return sum, err
	}
	logger := e.logger.WithContext(ctx)

	// confirmed directories leave the result set, so the offset only
	// advances past the ones that stay pending
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		page, err := e.store.LoadDirectoriesRequiringConfirmation(ctx, c.ID, prefix, status.Pagination{Limit: pageSize, Offset: offset})
		if err != nil {
			return sum, fmt.Errorf("load pending directories: %w", err)
		}
		for _, dir := range page {
			sum.Directories++
			abs, err := resolver.AbsPath(dir.Path)
			if err != nil {
				return sum, err
			}
			registered, refreshed, err := e.importDirectory(ctx, c.ID, dir.Path, abs)
			sum.SourcesRegistered += registered
			sum.SourcesRefreshed += refreshed
			if err != nil {
				if status.KindOf(err) != status.KindIo {
					return sum, err
				}
				sum.Failed++
				offset++
				logger.Warn("directory not imported", logging.String("path", dir.Path), logging.Err(err))
				continue
			}

			ok, err := e.Confirm(ctx, c.ID, dir.Path, dir.Digest)
			if err != nil {
				return sum, fmt.Errorf("confirm %s: %w", dir.Path, err)
			}
			if ok {
				sum.Confirmed++
			} else {
				sum.Rejected++
				offset++
			}
		}
		if len(page) < pageSize {
			break
		}
	}

	logger.Info("import finished",
		logging.String("collection", c.ID),
		logging.String("prefix", prefix),
		logging.Uint64("confirmed", sum.Confirmed),
		logging.Uint64("rejected", sum.Rejected),
		logging.Uint64("failed", sum.Failed),
		logging.Uint64("registered", sum.SourcesRegistered))
	return sum, nil
}

// importDirectory registers the immediate media files of one directory.
func (e *Engine) importDirectory(ctx context.Context, collectionID, dirPath, abs string) (registered, refreshed uint64, err error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return 0, 0, err
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsMediaFile(entry.Name()) {
			continue
		}
		fileAbs := filepath.Join(abs, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return registered, refreshed, err
		}
		fingerprint := digest.Entry(digest.InputFromFileInfo(entry.Name(), info, digest.CreationTime(fileAbs)))
		contentPath := status.JoinFile(dirPath, entry.Name())

		existing, err := e.store.LoadMediaSourceByPath(ctx, collectionID, contentPath)
		if err != nil && !errors.Is(err, status.ErrNotFound) {
			return registered, refreshed, err
		}
		_, created, err := e.store.RegisterMediaSource(ctx, collectionID, contentPath, fingerprint)
		if err != nil {
			return registered, refreshed, fmt.Errorf("register %s: %w", contentPath, err)
		}
		switch {
		case created:
			registered++
			metrics.RecordSourceRegistered()
		case existing != nil && existing.Fingerprint != fingerprint:
			refreshed++
		}
	}
	return registered, refreshed, nil
}
