package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

// RegisterMediaSource inserts a source with an empty track, or refreshes the
// fingerprint of an existing one. created reports whether a row was inserted.
func (s *Store) RegisterMediaSource(ctx context.Context, collectionID, contentPath string, fingerprint status.Digest) (id status.SourceID, created bool, err error) {
	defer s.observe("register_media_source", time.Now(), &err)

	dirPath := status.DirOfFile(contentPath)
	fileName := path.Base(contentPath)

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			existing int64
			stored   []byte
		)
		row := s.queryRow(ctx, tx, `SELECT id, fingerprint FROM media_sources WHERE collection_id = ? AND content_path = ?`, collectionID, contentPath)
		switch scanErr := row.Scan(&existing, &stored); {
		case scanErr == nil:
			id = status.SourceID(existing)
			if string(stored) == string(fingerprint[:]) {
				return nil
			}
			_, err := s.exec(ctx, tx, `UPDATE media_sources SET fingerprint = ? WHERE id = ?`, fingerprint[:], existing)
			if err != nil {
				return fmt.Errorf("update fingerprint: %w", err)
			}
			return nil
		case !errors.Is(scanErr, sql.ErrNoRows):
			return fmt.Errorf("load media source: %w", scanErr)
		}

		var inserted int64
		err := s.queryRow(ctx, tx, `
			INSERT INTO media_sources (collection_id, content_path, dir_path, file_name, fingerprint, registered_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id
		`, collectionID, contentPath, dirPath, fileName, fingerprint[:], toMillis(s.now())).Scan(&inserted)
		if err != nil {
			return fmt.Errorf("insert media source: %w", err)
		}
		if _, err := s.exec(ctx, tx, `INSERT INTO tracks (source_id, play_count) VALUES (?, 0)`, inserted); err != nil {
			return fmt.Errorf("insert track: %w", err)
		}
		id = status.SourceID(inserted)
		created = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return id, created, nil
}

const sourceColumns = `id, content_path, dir_path, fingerprint, registered_at`

func scanSource(scanner interface {
	Scan(dest ...interface{}) error
}) (*status.MediaSource, error) {
	var (
		src          status.MediaSource
		id           int64
		raw          []byte
		registeredAt int64
	)
	if err := scanner.Scan(&id, &src.ContentPath, &src.DirPath, &raw, &registeredAt); err != nil {
		return nil, err
	}
	d, err := status.DigestFromBytes(raw)
	if err != nil {
		return nil, err
	}
	src.ID = status.SourceID(id)
	src.Fingerprint = d
	src.RegisteredAt = fromMillis(registeredAt)
	return &src, nil
}

func (s *Store) LoadMediaSourceByPath(ctx context.Context, collectionID, contentPath string) (src *status.MediaSource, err error) {
	defer s.observe("load_media_source_by_path", time.Now(), &err)

	row := s.queryRow(ctx, s.db, `SELECT `+sourceColumns+` FROM media_sources WHERE collection_id = ? AND content_path = ?`, collectionID, contentPath)
	src, err = scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("media source %q: %w", contentPath, status.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load media source: %w", err)
	}
	return src, nil
}

func (s *Store) LoadMediaSource(ctx context.Context, id status.SourceID) (src *status.MediaSource, err error) {
	defer s.observe("load_media_source", time.Now(), &err)

	row := s.queryRow(ctx, s.db, `SELECT `+sourceColumns+` FROM media_sources WHERE id = ?`, int64(id))
	src, err = scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("media source %d: %w", id, status.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load media source: %w", err)
	}
	return src, nil
}

// ListMediaSources returns the sources under prefix ordered by path.
func (s *Store) ListMediaSources(ctx context.Context, collectionID, prefix string) (sources []status.MediaSource, err error) {
	defer s.observe("list_media_sources", time.Now(), &err)

	clause, prefixArgs := prefixMatch("dir_path", prefix)
	rows, err := s.query(ctx, s.db, `
		SELECT `+sourceColumns+` FROM media_sources
		WHERE collection_id = ?`+clause+`
		ORDER BY content_path
	`, append([]interface{}{collectionID}, prefixArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list media sources: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	return sources, rows.Err()
}

// FindUntrackedSources returns sources whose directory has no record or an
// Orphaned one.
func (s *Store) FindUntrackedSources(ctx context.Context, collectionID, prefix string) (ids []status.SourceID, err error) {
	defer s.observe("find_untracked_sources", time.Now(), &err)

	clause, prefixArgs := prefixMatch("s.dir_path", prefix)
	args := append([]interface{}{collectionID}, prefixArgs...)
	rows, err := s.query(ctx, s.db, `
		SELECT s.id FROM media_sources s
		LEFT JOIN tracked_directories d ON d.collection_id = s.collection_id AND d.path = s.dir_path
		WHERE s.collection_id = ?`+clause+`
		AND (d.path IS NULL OR d.status = ?)
		ORDER BY s.id
	`, append(args, status.Orphaned.String())...)
	if err != nil {
		return nil, fmt.Errorf("find untracked sources: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, status.SourceID(id))
	}
	return ids, rows.Err()
}

func (s *Store) FindRelinkCandidate(ctx context.Context, collectionID string, old status.SourceID) (id status.SourceID, found bool, err error) {
	defer s.observe("find_relink_candidate", time.Now(), &err)

	var candidate int64
	err = s.queryRow(ctx, s.db, `
		SELECT n.id FROM media_sources o
		JOIN media_sources n ON n.collection_id = o.collection_id
			AND n.file_name = o.file_name AND n.fingerprint = o.fingerprint AND n.id <> o.id
		JOIN tracked_directories d ON d.collection_id = n.collection_id AND d.path = n.dir_path
		WHERE o.id = ? AND o.collection_id = ? AND d.status <> ?
		ORDER BY n.id
		LIMIT 1
	`, int64(old), collectionID, status.Orphaned.String()).Scan(&candidate)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find relink candidate: %w", err)
	}
	return status.SourceID(candidate), true, nil
}

// RelinkSource replaces the track of newID with the track of oldID and
// deletes oldID, all in one transaction.
func (s *Store) RelinkSource(ctx context.Context, oldID, newID status.SourceID) (ok bool, err error) {
	defer s.observe("relink_source", time.Now(), &err)

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var oldCollection, newCollection string
		err := s.queryRow(ctx, tx, `SELECT collection_id FROM media_sources WHERE id = ?`, int64(oldID)).Scan(&oldCollection)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load old source: %w", err)
		}
		err = s.queryRow(ctx, tx, `SELECT collection_id FROM media_sources WHERE id = ?`, int64(newID)).Scan(&newCollection)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("relink target %d: %w", newID, status.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load new source: %w", err)
		}
		if oldCollection != newCollection {
			return fmt.Errorf("relink %d -> %d crosses collections: %w", oldID, newID, status.ErrInvalidPath)
		}

		if _, err := s.exec(ctx, tx, `DELETE FROM tracks WHERE source_id = ?`, int64(newID)); err != nil {
			return fmt.Errorf("drop new track: %w", err)
		}
		if _, err := s.exec(ctx, tx, `UPDATE tracks SET source_id = ? WHERE source_id = ?`, int64(newID), int64(oldID)); err != nil {
			return fmt.Errorf("move track: %w", err)
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM media_sources WHERE id = ?`, int64(oldID)); err != nil {
			return fmt.Errorf("delete old source: %w", err)
		}
		ok = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.Debug("media source relinked", logging.Int64("old", int64(oldID)), logging.Int64("new", int64(newID)))
	}
	return ok, nil
}

func (s *Store) UpdateTrackUserData(ctx context.Context, id status.SourceID, data status.TrackUserData) (err error) {
	defer s.observe("update_track_user_data", time.Now(), &err)

	if data.Rating != nil && (*data.Rating < 0 || *data.Rating > 100) {
		return fmt.Errorf("rating %d out of range 0-100", *data.Rating)
	}
	var rating interface{}
	if data.Rating != nil {
		rating = *data.Rating
	}
	res, err := s.exec(ctx, s.db, `UPDATE tracks SET rating = ?, play_count = ? WHERE source_id = ?`, rating, data.PlayCount, int64(id))
	if err != nil {
		return fmt.Errorf("update track: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("track of source %d: %w", id, status.ErrNotFound)
	}
	return nil
}

func (s *Store) LoadTrackUserData(ctx context.Context, id status.SourceID) (data status.TrackUserData, err error) {
	defer s.observe("load_track_user_data", time.Now(), &err)

	var rating sql.NullInt64
	err = s.queryRow(ctx, s.db, `SELECT rating, play_count FROM tracks WHERE source_id = ?`, int64(id)).Scan(&rating, &data.PlayCount)
	if errors.Is(err, sql.ErrNoRows) {
		return data, fmt.Errorf("track of source %d: %w", id, status.ErrNotFound)
	}
	if err != nil {
		return data, fmt.Errorf("load track: %w", err)
	}
	if rating.Valid {
		r := int(rating.Int64)
		data.Rating = &r
	}
	return data, nil
}
