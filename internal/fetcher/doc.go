// Package fetcher loads single pages for the crawler.
//
// A Fetcher returns the final HTML of a URL together with its head-level
// metadata and the same-host links it contains. Three implementations are
// provided:
//   - HTTPFetcher: plain HTTP with transparent gzip/deflate/brotli and
//     charset decoding
//   - RodRenderer: a headless Chrome context driven by go-rod, for pages
//     that build their content with JavaScript
//   - Composite: uses the renderer and falls back to HTTP when rendering
//     fails
//
// Every failure is reported as a *FetchError carrying the URL, so callers
// can log it and move on to the next page.
package fetcher
