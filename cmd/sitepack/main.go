// Package main provides the entry point for the sitepack CLI.
//
// sitepack crawls a website, extracts its content, normalizes it into a
// canonical site document and writes a bundle for a rendering front-end.
//
// Usage:
//
//	sitepack crawl <url> [url...]
//	sitepack cache stats
//
// See --help for all available options.
package main

func main() {
	Execute()
}
