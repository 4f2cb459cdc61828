// Package database opens the libSQL file that backs the playground document.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/go-libsql"
)

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

// Open opens the database at path, creating its directory first. A memory
// database is pinned to one connection so every query sees the same data.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	memory := path == Memory
	if !memory {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}

	for _, p := range pragmas(memory) {
		if err := pragma(ctx, db, p); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// The document is rewritten whole on every flush, so a lost last write
// after a power cut is acceptable and synchronous=NORMAL is enough.
func pragmas(memory bool) []string {
	ps := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	if !memory {
		ps = append(ps, "PRAGMA journal_mode=WAL")
	}
	return ps
}

// pragma runs p as a query. libSQL refuses Exec for statements that return
// rows and some PRAGMAs do.
func pragma(ctx context.Context, db *sql.DB, p string) error {
	rows, err := db.QueryContext(ctx, p)
	if err != nil {
		return fmt.Errorf("executing %s: %w", p, err)
	}
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("executing %s: %w", p, err)
	}
	return rows.Close()
}
