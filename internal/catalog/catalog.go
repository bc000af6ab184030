// Package catalog persists the set of known dictionary source archives in
// a small SQLite database: where to download each archive, which language
// direction it carries, and how the last import of it went.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Source is one known dictionary source archive.
type Source struct {
	Name       string
	URL        string
	Language   string
	BaseName   string
	LastImport *int64
	LastStatus *string
	LastError  *string
	EntryCount int64
	UpdatedAt  int64
}

// Defaults returns the sources seeded on first open. URLs can be
// overridden later with SetURL and survive restarts.
func Defaults() []Source {
	return []Source{
		{
			Name:     "freedict-eng-deu",
			URL:      "https://download.freedict.org/dictionaries/eng-deu/1.9-fd1/freedict-eng-deu-1.9-fd1.dictd.tar.xz",
			Language: "en-de",
			BaseName: "eng-deu",
		},
		{
			Name:     "freedict-deu-eng",
			URL:      "https://download.freedict.org/dictionaries/deu-eng/1.9-fd1/freedict-deu-eng-1.9-fd1.dictd.tar.xz",
			Language: "de-en",
			BaseName: "deu-eng",
		},
	}
}

// DB wraps the sources table.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the catalog database at path, ensures the
// sources table exists and seeds the default rows.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS sources (
		name         TEXT PRIMARY KEY,
		url          TEXT NOT NULL,
		language     TEXT NOT NULL,
		base_name    TEXT NOT NULL,
		last_import  INTEGER,
		last_status  TEXT,
		last_error   TEXT,
		entry_count  INTEGER NOT NULL DEFAULT 0,
		updated_at   INTEGER NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sources table: %w", err)
	}

	c := &DB{db: db}
	if err := c.seed(Defaults()); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database.
func (c *DB) Close() error {
	return c.db.Close()
}

// seed inserts default rows, leaving existing rows untouched so manual URL
// overrides survive restarts.
func (c *DB) seed(sources []Source) error {
	const q = `INSERT OR IGNORE INTO sources
		(name, url, language, base_name, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	now := time.Now().Unix()
	for _, s := range sources {
		if _, err := c.db.Exec(q, s.Name, s.URL, s.Language, s.BaseName, now); err != nil {
			return fmt.Errorf("seed %s: %w", s.Name, err)
		}
	}
	return nil
}

// Get returns the source with the given name.
func (c *DB) Get(name string) (Source, error) {
	row := c.db.QueryRow(`SELECT name, url, language, base_name,
		last_import, last_status, last_error, entry_count, updated_at
		FROM sources WHERE name = ?`, name)
	var s Source
	err := row.Scan(&s.Name, &s.URL, &s.Language, &s.BaseName,
		&s.LastImport, &s.LastStatus, &s.LastError, &s.EntryCount, &s.UpdatedAt)
	if err != nil {
		return Source{}, fmt.Errorf("get source %s: %w", name, err)
	}
	return s, nil
}

// List returns all sources ordered by name.
func (c *DB) List() ([]Source, error) {
	rows, err := c.db.Query(`SELECT name, url, language, base_name,
		last_import, last_status, last_error, entry_count, updated_at
		FROM sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.Name, &s.URL, &s.Language, &s.BaseName,
			&s.LastImport, &s.LastStatus, &s.LastError, &s.EntryCount, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// SetURL overrides the download URL for a source.
func (c *DB) SetURL(name, url string) error {
	res, err := c.db.Exec(
		`UPDATE sources SET url = ?, updated_at = ? WHERE name = ?`,
		url, time.Now().Unix(), name)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("source %s not found", name)
	}
	return nil
}

// RecordImport persists the outcome of an import of the named source.
func (c *DB) RecordImport(name string, entryCount int, importErr error) error {
	now := time.Now().Unix()
	status := "ok"
	var errText *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errText = &msg
	}
	_, err := c.db.Exec(
		`UPDATE sources SET last_import = ?, last_status = ?, last_error = ?,
			entry_count = ?, updated_at = ? WHERE name = ?`,
		now, status, errText, entryCount, now, name)
	if err != nil {
		return fmt.Errorf("record import for %s: %w", name, err)
	}
	return nil
}
