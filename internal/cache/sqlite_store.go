package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitepack/internal/model"
)

// SQLiteStore keeps cache entries in a SQLite table.
// Save replaces the table contents inside one transaction, which makes the
// read-modify-write cycle atomic with respect to other readers.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// SQLiteOptions configures SQLiteStore behavior.
type SQLiteOptions struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultSQLiteOptions returns the default database options.
func DefaultSQLiteOptions() SQLiteOptions {
	return SQLiteOptions{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// OpenSQLite opens or creates the cache database at dbPath.
// If CreateIfNotExists is false and the file doesn't exist, an error is returned.
func OpenSQLite(dbPath string, opts SQLiteOptions) (*SQLiteStore, error) {
	var dsn string
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else {
		if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cache database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawl_cache (
		cache_key TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		options TEXT NOT NULL,
		pages_count INTEGER DEFAULT 0,
		assets_count INTEGER DEFAULT 0,
		crawl_depth INTEGER DEFAULT 0,
		max_pages INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_crawl_cache_timestamp ON crawl_cache(timestamp);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Load reads every entry.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]model.CacheEntry, error) {
	query := `
	SELECT cache_key, url, timestamp, options, pages_count, assets_count, crawl_depth, max_pages
	FROM crawl_cache
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]model.CacheEntry)
	for rows.Next() {
		var e model.CacheEntry
		var timestamp, optionsJSON string
		if err := rows.Scan(
			&e.CacheKey,
			&e.URL,
			&timestamp,
			&optionsJSON,
			&e.Metadata.PagesCount,
			&e.Metadata.AssetsCount,
			&e.Metadata.CrawlDepth,
			&e.Metadata.MaxPages,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		e.Timestamp = parseTimestamp(timestamp)
		if err := json.Unmarshal([]byte(optionsJSON), &e.Options); err != nil {
			return nil, fmt.Errorf("failed to parse options of %s: %w", e.CacheKey, err)
		}
		entries[e.CacheKey] = e
	}
	return entries, rows.Err()
}

// Save replaces the stored entries with entries.
func (s *SQLiteStore) Save(ctx context.Context, entries map[string]model.CacheEntry) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM crawl_cache"); err != nil {
		return fmt.Errorf("failed to clear cache entries: %w", err)
	}

	query := `
	INSERT INTO crawl_cache (cache_key, url, timestamp, options, pages_count, assets_count, crawl_depth, max_pages)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(cache_key) DO UPDATE SET
		url = excluded.url,
		timestamp = excluded.timestamp,
		options = excluded.options,
		pages_count = excluded.pages_count,
		assets_count = excluded.assets_count,
		crawl_depth = excluded.crawl_depth,
		max_pages = excluded.max_pages
	`
	for key, e := range entries {
		optionsJSON, mErr := json.Marshal(e.Options)
		if mErr != nil {
			err = fmt.Errorf("failed to serialize options: %w", mErr)
			return err
		}
		if _, err = tx.ExecContext(ctx, query,
			key,
			e.URL,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			string(optionsJSON),
			e.Metadata.PagesCount,
			e.Metadata.AssetsCount,
			e.Metadata.CrawlDepth,
			e.Metadata.MaxPages,
		); err != nil {
			return fmt.Errorf("failed to insert cache entry: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache entries: %w", err)
	}
	return nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns zero time when none
// matches. A zero timestamp makes the entry stale.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
