// Package asset downloads the content images referenced by extracted pages.
//
// Only images are fetched: stylesheets, scripts and fonts are never
// requested. Each downloaded image is keyed by a sanitized path under
// "assets/" derived from its source URL. Downloads run concurrently with a
// bounded worker count and a failed download only drops that one asset.
package asset
