// Package schema maps crawled pages into the canonical site document and
// validates it.
//
// Normalization is deterministic: the same pages and assets always produce
// the same document. Validation is all-or-nothing and must pass before a
// document is handed to an emitter. The package also builds the flat
// legacy crawl document consumed by template renderers.
package schema
