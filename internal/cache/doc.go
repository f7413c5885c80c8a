// Package cache remembers recent crawls so that a seed crawled with the
// same options within the max-age window is not crawled again.
//
// Entries are keyed by the normalized seed URL joined with a fingerprint of
// the crawl options, so changing any option (even MaxPages alone) forces a
// fresh crawl. The cache is an optimization only: a store that cannot be
// read is treated as empty and a failed write is reported to the caller
// without invalidating the crawl result.
//
// Two Store backends are provided:
//   - JSONFileStore: a single JSON file mapping cache key to entry (default)
//   - SQLiteStore: a table in a SQLite database (modernc.org/sqlite)
package cache
