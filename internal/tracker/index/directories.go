package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

func (s *Store) UpdateDirectoriesStatus(ctx context.Context, collectionID, prefix string, oldStatus *status.Status, newStatus status.Status) (n int64, err error) {
	defer s.observe("update_directories_status", time.Now(), &err)

	clause, prefixArgs := prefixMatch("path", prefix)
	query := `UPDATE tracked_directories SET status = ?, updated_at = ? WHERE collection_id = ?` + clause
	args := append([]interface{}{newStatus.String(), toMillis(s.now()), collectionID}, prefixArgs...)
	if oldStatus != nil {
		query += ` AND status = ?`
		args = append(args, oldStatus.String())
	}

	res, err := s.exec(ctx, s.db, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update directories status: %w", err)
	}
	return rowsAffected(res)
}

// UpdateDirectoryDigest looks up the record and applies the sweep transition
// in one transaction. Every write is conditional on the values read, so a
// concurrent writer makes it fail with ErrStorageConflict instead of
// overwriting.
func (s *Store) UpdateDirectoryDigest(ctx context.Context, collectionID, path string, digest status.Digest) (outcome status.UpdateOutcome, err error) {
	defer s.observe("update_directory_digest", time.Now(), &err)

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			storedStatus string
			storedDigest []byte
		)
		row := s.queryRow(ctx, tx, `SELECT status, digest FROM tracked_directories WHERE collection_id = ? AND path = ?`, collectionID, path)
		scanErr := row.Scan(&storedStatus, &storedDigest)
		now := toMillis(s.now())

		if errors.Is(scanErr, sql.ErrNoRows) {
			res, err := s.exec(ctx, tx, `
				INSERT INTO tracked_directories (collection_id, path, status, digest, updated_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (collection_id, path) DO NOTHING
			`, collectionID, path, status.Added.String(), digest[:], now)
			if err != nil {
				return fmt.Errorf("insert directory: %w", err)
			}
			if err := expectOne(res, path); err != nil {
				return err
			}
			outcome = status.OutcomeInserted
			return nil
		}
		if scanErr != nil {
			return fmt.Errorf("load directory: %w", scanErr)
		}

		current, err := status.ParseStatus(storedStatus)
		if err != nil {
			return err
		}

		if string(storedDigest) != string(digest[:]) {
			res, err := s.exec(ctx, tx, `
				UPDATE tracked_directories SET status = ?, digest = ?, updated_at = ?
				WHERE collection_id = ? AND path = ? AND status = ? AND digest = ?
			`, status.Modified.String(), digest[:], now, collectionID, path, storedStatus, storedDigest)
			if err != nil {
				return fmt.Errorf("update directory digest: %w", err)
			}
			if err := expectOne(res, path); err != nil {
				return err
			}
			outcome = status.OutcomeUpdated
			return nil
		}

		switch current {
		case status.Outdated, status.Orphaned:
			res, err := s.exec(ctx, tx, `
				UPDATE tracked_directories SET status = ?, updated_at = ?
				WHERE collection_id = ? AND path = ? AND status = ? AND digest = ?
			`, status.Current.String(), now, collectionID, path, storedStatus, storedDigest)
			if err != nil {
				return fmt.Errorf("update directory status: %w", err)
			}
			if err := expectOne(res, path); err != nil {
				return err
			}
			outcome = status.OutcomeCurrent
		default:
			outcome = status.OutcomeSkipped
		}
		return nil
	})
	if err != nil {
		return status.OutcomeSkipped, err
	}
	return outcome, nil
}

func expectOne(res sql.Result, path string) error {
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("directory %q changed concurrently: %w", path, status.ErrStorageConflict)
	}
	return nil
}

func (s *Store) UntrackDirectories(ctx context.Context, collectionID, prefix string, st *status.Status) (n int64, err error) {
	defer s.observe("untrack_directories", time.Now(), &err)

	clause, prefixArgs := prefixMatch("path", prefix)
	query := `DELETE FROM tracked_directories WHERE collection_id = ?` + clause
	args := append([]interface{}{collectionID}, prefixArgs...)
	if st != nil {
		query += ` AND status = ?`
		args = append(args, st.String())
	}
	res, err := s.exec(ctx, s.db, query, args...)
	if err != nil {
		return 0, fmt.Errorf("untrack directories: %w", err)
	}
	return rowsAffected(res)
}

func (s *Store) LoadDirectoriesRequiringConfirmation(ctx context.Context, collectionID, prefix string, page status.Pagination) (dirs []status.TrackedDirectory, err error) {
	defer s.observe("load_directories_requiring_confirmation", time.Now(), &err)

	clause, prefixArgs := prefixMatch("path", prefix)
	query := `
		SELECT path, status, digest, updated_at FROM tracked_directories
		WHERE collection_id = ? AND status IN (?, ?)` + clause + `
		ORDER BY path`
	args := append([]interface{}{collectionID, status.Added.String(), status.Modified.String()}, prefixArgs...)
	if page.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Offset)
	}
	return s.loadDirectories(ctx, query, args...)
}

// ListDirectories returns every record under prefix, optionally restricted to one status.
func (s *Store) ListDirectories(ctx context.Context, collectionID, prefix string, st *status.Status, page status.Pagination) (dirs []status.TrackedDirectory, err error) {
	defer s.observe("list_directories", time.Now(), &err)

	clause, prefixArgs := prefixMatch("path", prefix)
	query := `SELECT path, status, digest, updated_at FROM tracked_directories WHERE collection_id = ?` + clause
	args := append([]interface{}{collectionID}, prefixArgs...)
	if st != nil {
		query += ` AND status = ?`
		args = append(args, st.String())
	}
	query += ` ORDER BY path`
	if page.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Offset)
	}
	return s.loadDirectories(ctx, query, args...)
}

func (s *Store) loadDirectories(ctx context.Context, query string, args ...interface{}) (dirs []status.TrackedDirectory, err error) {
	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query directories: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		dir, err := scanDirectory(rows)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dirs, nil
}

func scanDirectory(scanner interface {
	Scan(dest ...interface{}) error
}) (status.TrackedDirectory, error) {
	var (
		dir       status.TrackedDirectory
		st        string
		raw       []byte
		updatedAt int64
	)
	if err := scanner.Scan(&dir.Path, &st, &raw, &updatedAt); err != nil {
		return status.TrackedDirectory{}, err
	}
	parsed, err := status.ParseStatus(st)
	if err != nil {
		return status.TrackedDirectory{}, err
	}
	d, err := status.DigestFromBytes(raw)
	if err != nil {
		return status.TrackedDirectory{}, err
	}
	dir.Status = parsed
	dir.Digest = d
	dir.UpdatedAt = fromMillis(updatedAt)
	return dir, nil
}

// ConfirmDirectory is a single conditional UPDATE, so the digest comparison
// and the status change commit atomically. Only Added and Modified records
// can be confirmed.
func (s *Store) ConfirmDirectory(ctx context.Context, collectionID, path string, digest status.Digest) (ok bool, err error) {
	defer s.observe("confirm_directory", time.Now(), &err)

	res, err := s.exec(ctx, s.db, `
		UPDATE tracked_directories SET status = ?, updated_at = ?
		WHERE collection_id = ? AND path = ? AND digest = ? AND status IN (?, ?)
	`, status.Current.String(), toMillis(s.now()), collectionID, path, digest[:],
		status.Added.String(), status.Modified.String())
	if err != nil {
		return false, fmt.Errorf("confirm directory: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	if n == 0 {
		s.logger.Debug("confirmation rejected", logging.String("path", path), logging.String("digest", digest.String()))
	}
	return n == 1, nil
}

func (s *Store) LoadDirectoryTrackingStatus(ctx context.Context, collectionID, path string) (st status.Status, err error) {
	defer s.observe("load_directory_tracking_status", time.Now(), &err)

	dir, err := s.LoadTrackedDirectory(ctx, collectionID, path)
	if err != nil {
		return 0, err
	}
	return dir.Status, nil
}

// LoadTrackedDirectory returns the full record, or ErrNotFound.
func (s *Store) LoadTrackedDirectory(ctx context.Context, collectionID, path string) (*status.TrackedDirectory, error) {
	row := s.queryRow(ctx, s.db, `
		SELECT path, status, digest, updated_at FROM tracked_directories
		WHERE collection_id = ? AND path = ?
	`, collectionID, path)
	dir, err := scanDirectory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("directory %q: %w", path, status.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load directory: %w", err)
	}
	return &dir, nil
}

func (s *Store) AggregateDirectoriesTrackingStatus(ctx context.Context, collectionID, prefix string) (agg status.DirectoriesStatus, err error) {
	defer s.observe("aggregate_directories_tracking_status", time.Now(), &err)

	clause, prefixArgs := prefixMatch("path", prefix)
	rows, err := s.query(ctx, s.db, `
		SELECT status, COUNT(*) FROM tracked_directories
		WHERE collection_id = ?`+clause+`
		GROUP BY status
	`, append([]interface{}{collectionID}, prefixArgs...)...)
	if err != nil {
		return agg, fmt.Errorf("aggregate directories: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var (
			name  string
			count int64
		)
		if err := rows.Scan(&name, &count); err != nil {
			return agg, err
		}
		st, err := status.ParseStatus(name)
		if err != nil {
			return agg, err
		}
		agg.Add(st, uint64(count))
	}
	return agg, rows.Err()
}
