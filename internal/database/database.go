// Package database opens and configures the local SQLite database backing
// the deployment history store.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Options control how the database is opened.
type Options struct {
	// Path is the SQLite database file path.
	Path string
	// BusyTimeoutMs is the SQLite busy timeout in milliseconds.
	BusyTimeoutMs int
}

// Open opens the database, creating parent directories as needed, and
// applies the standard pragmas (WAL, foreign keys, busy timeout).
func Open(opts Options) (*sql.DB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := ensureDir(opts.Path); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", buildDSN(opts))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	return db, nil
}

func buildDSN(opts Options) string {
	q := url.Values{}
	if opts.BusyTimeoutMs > 0 {
		q.Set("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeoutMs))
	}
	dsn := "file:" + opts.Path
	if encoded := q.Encode(); encoded != "" {
		dsn += "?" + encoded
	}
	return dsn
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
