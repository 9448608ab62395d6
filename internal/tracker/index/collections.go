package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

const collectionColumns = `id, title, root_path, root_url, exclude_patterns, max_depth, created_at, last_sweep_at`

func (s *Store) CreateCollection(ctx context.Context, c status.Collection) (err error) {
	defer s.observe("create_collection", time.Now(), &err)

	patterns, err := json.Marshal(c.ExcludePatterns)
	if err != nil {
		return err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	_, err = s.exec(ctx, s.db, `
		INSERT INTO collections (`+collectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Title, c.RootPath, c.RootURL, string(patterns), c.MaxDepth, toMillis(c.CreatedAt), toMillis(c.LastSweepAt))
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

func scanCollection(scanner interface {
	Scan(dest ...interface{}) error
}) (*status.Collection, error) {
	var (
		c         status.Collection
		patterns  sql.NullString
		createdAt int64
		lastSweep int64
	)
	if err := scanner.Scan(&c.ID, &c.Title, &c.RootPath, &c.RootURL, &patterns, &c.MaxDepth, &createdAt, &lastSweep); err != nil {
		return nil, err
	}
	if patterns.Valid && patterns.String != "" {
		if err := json.Unmarshal([]byte(patterns.String), &c.ExcludePatterns); err != nil {
			return nil, fmt.Errorf("decode exclude patterns of %s: %w", c.ID, err)
		}
	}
	c.CreatedAt = fromMillis(createdAt)
	c.LastSweepAt = fromMillis(lastSweep)
	return &c, nil
}

func (s *Store) LoadCollection(ctx context.Context, id string) (c *status.Collection, err error) {
	defer s.observe("load_collection", time.Now(), &err)

	row := s.queryRow(ctx, s.db, `SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)
	c, err = scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %s: %w", id, status.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	return c, nil
}

func (s *Store) ListCollections(ctx context.Context) (collections []status.Collection, err error) {
	defer s.observe("list_collections", time.Now(), &err)

	rows, err := s.query(ctx, s.db, `SELECT `+collectionColumns+` FROM collections ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, *c)
	}
	return collections, rows.Err()
}

// DeleteCollection removes the collection with its directories, sources and tracks.
func (s *Store) DeleteCollection(ctx context.Context, id string) (err error) {
	defer s.observe("delete_collection", time.Now(), &err)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		steps := []string{
			`DELETE FROM tracks WHERE source_id IN (SELECT id FROM media_sources WHERE collection_id = ?)`,
			`DELETE FROM media_sources WHERE collection_id = ?`,
			`DELETE FROM tracked_directories WHERE collection_id = ?`,
		}
		for _, q := range steps {
			if _, err := s.exec(ctx, tx, q, id); err != nil {
				return fmt.Errorf("delete collection: %w", err)
			}
		}
		res, err := s.exec(ctx, tx, `DELETE FROM collections WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("collection %s: %w", id, status.ErrNotFound)
		}
		return nil
	})
}

func (s *Store) TouchLastSweep(ctx context.Context, id string, at time.Time) (err error) {
	defer s.observe("touch_last_sweep", time.Now(), &err)

	res, err := s.exec(ctx, s.db, `UPDATE collections SET last_sweep_at = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("touch last sweep: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("collection %s: %w", id, status.ErrNotFound)
	}
	return nil
}
