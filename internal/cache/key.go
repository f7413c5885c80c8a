package cache

import (
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/sitepack/internal/model"
)

// fingerprintLen is the number of hex characters of the options digest
// kept in a key.
const fingerprintLen = 16

// Key returns the deterministic cache key for a seed URL and its options.
// Equivalent URLs (scheme and host case, trailing slash) with equal options
// always produce the same key.
func Key(rawURL string, opts model.CrawlOptions) string {
	return NormalizeURL(rawURL) + "#" + fingerprint(opts)
}

// NormalizeURL lowercases the scheme and host and strips trailing slashes.
// Strings that do not parse as URLs are only trimmed and lowercased.
func NormalizeURL(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(s), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/")
}

// fingerprint hashes the JSON form of the options. Struct fields marshal in
// declaration order, so the digest is stable across runs.
func fingerprint(opts model.CrawlOptions) string {
	data, err := json.Marshal(opts)
	if err != nil {
		// CrawlOptions only holds ints.
		panic(err)
	}
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}
