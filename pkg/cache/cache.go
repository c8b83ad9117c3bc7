// Package cache provides a sqlite-backed metadata index for the Caching
// test-case generator, so it can decide overwrite-vs-load without re-reading
// a potentially huge cache file. The actual test-case payload still lives in
// the plain streamed JSON file spec.md §6 names; this index only tracks
// bookkeeping about that file (hash, size, write history).
package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver, no cgo
)

// Entry is one row of cache bookkeeping for a given cachePath.
type Entry struct {
	CachePath   string
	ContentHash string
	SizeBytes   int64
	Overwritten bool
	WrittenAt   time.Time
}

// Index is a small sqlite-backed store of cache metadata, safe for
// concurrent use via the standard library's *sql.DB connection pool.
type Index struct {
	db *sql.DB
}

// Open creates (or opens) a sqlite database at dbPath and ensures its
// schema exists.
func Open(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache index: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	cache_path   TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	size_bytes   INTEGER NOT NULL,
	overwritten  INTEGER NOT NULL DEFAULT 0,
	written_at   TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &Index{db: db}, nil
}

// Close releases the underlying database handle.
func (i *Index) Close() error {
	return i.db.Close()
}

// Record upserts bookkeeping for cachePath after a write.
func (i *Index) Record(entry Entry) error {
	const stmt = `
INSERT INTO cache_entries (cache_path, content_hash, size_bytes, overwritten, written_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(cache_path) DO UPDATE SET
	content_hash = excluded.content_hash,
	size_bytes   = excluded.size_bytes,
	overwritten  = excluded.overwritten,
	written_at   = excluded.written_at;`

	overwritten := 0
	if entry.Overwritten {
		overwritten = 1
	}

	_, err := i.db.Exec(stmt, entry.CachePath, entry.ContentHash, entry.SizeBytes, overwritten, entry.WrittenAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording cache entry: %w", err)
	}
	return nil
}

// Lookup returns bookkeeping for cachePath, or ok=false if nothing is
// recorded yet.
func (i *Index) Lookup(cachePath string) (Entry, bool, error) {
	const q = `SELECT content_hash, size_bytes, overwritten, written_at FROM cache_entries WHERE cache_path = ?`

	row := i.db.QueryRow(q, cachePath)

	var entry Entry
	var overwritten int
	var writtenAt string
	entry.CachePath = cachePath

	err := row.Scan(&entry.ContentHash, &entry.SizeBytes, &overwritten, &writtenAt)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("looking up cache entry: %w", err)
	}

	entry.Overwritten = overwritten != 0
	if t, err := time.Parse(time.RFC3339, writtenAt); err == nil {
		entry.WrittenAt = t
	}

	return entry, true, nil
}
