// Package sqlbackend implements backend.IBackend on a SQLite database.
//
// All paths live in one table. Directories are rows with is_dir set and no
// value; every write materializes its parent directories so listing only has
// to look at direct children.
package sqlbackend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
	CREATE TABLE IF NOT EXISTS entries (
		path   TEXT PRIMARY KEY,
		value  BLOB,
		is_dir INTEGER NOT NULL DEFAULT 0
	);
`

type sqlBackend struct {
	db *sql.DB
}

// NewSQLBackend opens (or creates) the database at dbPath.
// Use ":memory:" for a database that lives as long as the backend.
func NewSQLBackend(dbPath string) (backend.IBackend, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &sqlBackend{db: db}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend.IBackend)
// --------------------------------------------------------------------------

func (s *sqlBackend) Read(ctx context.Context, path string) ([]byte, bool, error) {
	p, err := backend.CleanPath(path)
	if err != nil {
		return nil, false, err
	}
	var value []byte
	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM entries WHERE path = ? AND is_dir = 0`, p,
	).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (s *sqlBackend) Write(ctx context.Context, path string, value []byte) error {
	p, err := backend.CleanPath(path)
	if err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertDirs(ctx, tx, backend.Parents(p)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entries (path, value, is_dir) VALUES (?, ?, 0)
			ON CONFLICT(path) DO UPDATE SET value = excluded.value, is_dir = 0`,
			p, value,
		)
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	})
}

func (s *sqlBackend) Delete(ctx context.Context, path string) error {
	p, err := backend.CleanPath(path)
	if err != nil {
		return err
	}
	lo, hi := childRange(p)
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE path = ? OR (path >= ? AND path < ?)`,
		p, lo, hi,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *sqlBackend) Mkdir(ctx context.Context, path string) error {
	p, err := backend.CleanPath(path)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertDirs(ctx, tx, append(backend.Parents(p), p))
	})
}

func (s *sqlBackend) List(ctx context.Context, path string) ([]string, error) {
	p, err := backend.CleanPath(path)
	if err != nil {
		return nil, err
	}
	lo, hi := childRange(p)
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM entries WHERE path >= ? AND path < ?`,
		lo, hi,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var full string
		if err := rows.Scan(&full); err != nil {
			return nil, fmt.Errorf("list %s: %w", path, err)
		}
		if name := backend.ChildName(p, full); name != "" {
			seen[name] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *sqlBackend) Close() error {
	return s.db.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *sqlBackend) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// childRange returns the bounds of all paths below dir. TEXT compares
// byte-wise, and '0' is the byte after '/', so [dir/, dir0) holds exactly the
// descendants regardless of the characters in dir.
func childRange(dir string) (lo, hi string) {
	return dir + "/", dir + "0"
}

func insertDirs(ctx context.Context, tx *sql.Tx, dirs []string) error {
	for _, dir := range dirs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO entries (path, value, is_dir) VALUES (?, NULL, 1)`, dir,
		); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return nil
}
