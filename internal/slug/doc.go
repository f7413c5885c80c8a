// Package slug derives deterministic, filesystem-safe relative paths from
// page and asset URLs.
//
// Only the hostname-relative path of a URL contributes to its slug, so the
// same URL always yields the same path and query strings or fragments can
// never leak into file names.
package slug
