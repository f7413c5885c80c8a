// Package model defines the core data structures shared across sitepack.
//
// This package contains the following main types:
//   - CrawlOptions: the depth and page bounds of one crawl invocation
//   - PageRecord: a fetched page plus the content primitives extracted from it
//   - AssetRecord: a downloaded content image
//   - CanonicalDocument: the versioned, validated schema handed to renderers
//   - CacheEntry: metadata about a completed crawl, used to skip recrawls
//   - LegacyDocument: the flat crawl JSON consumed by template rendering
//
// The models live in their own package so that the crawler, extractor,
// normalizer and cache can share them without import cycles. All types are
// serializable to JSON; field names are part of the output compatibility
// surface and must not be renamed.
package model
