package slug

import (
	"net/url"
	"path"
	"strconv"
	"strings"
)

const (
	// IndexPage is the path of the site root.
	IndexPage = "index.html"

	// AssetDir is the directory every asset path is rooted at.
	AssetDir = "assets"

	htmlExt = ".html"
)

// PagePath converts a page URL into a relative file path.
// The root maps to "index.html" and paths whose last segment has no
// extension get ".html" appended. A query is folded into the last segment
// before the extension, so "/event?id=1" becomes "event_id_1.html".
// Characters outside [A-Za-z0-9._/-] are replaced with "_". The result
// never contains '?', '&' or spaces.
func PagePath(rawURL string) string {
	p, query := splitURL(rawURL)
	p = cleanPath(p)
	if p == "" {
		p = IndexPage
	} else if path.Ext(path.Base(p)) == "" {
		p += htmlExt
	}

	if q := sanitize(query); q != "" {
		ext := path.Ext(p)
		p = strings.TrimSuffix(p, ext) + "_" + q + ext
	}
	return p
}

// Unique returns p, or p with a "-2", "-3", ... suffix before its
// extension when p is already in used. The returned path is added to used.
func Unique(p string, used map[string]struct{}) string {
	if _, taken := used[p]; taken {
		ext := path.Ext(p)
		stem := strings.TrimSuffix(p, ext)
		for n := 2; ; n++ {
			candidate := stem + "-" + strconv.Itoa(n) + ext
			if _, taken := used[candidate]; !taken {
				p = candidate
				break
			}
		}
	}
	used[p] = struct{}{}
	return p
}

// AssetPath converts an asset URL into a relative file path under "assets/".
// Unlike PagePath it never rewrites the extension.
func AssetPath(rawURL string) string {
	raw, _ := splitURL(rawURL)
	p := cleanPath(raw)
	if p == "" {
		p = "asset"
	}
	return AssetDir + "/" + p
}

// PageSlug returns the page path without its ".html" suffix.
// The root page's slug is "index".
func PageSlug(pagePath string) string {
	s := strings.TrimSuffix(pagePath, htmlExt)
	if s == "" {
		return "index"
	}
	return s
}

// splitURL returns the unescaped path and query of rawURL. Inputs that do
// not parse are split by hand at '?' and '#'.
func splitURL(rawURL string) (string, string) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err == nil {
		query, qerr := url.QueryUnescape(u.RawQuery)
		if qerr != nil {
			query = u.RawQuery
		}
		return u.Path, query
	}

	s := rawURL
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// cleanPath sanitizes every segment and drops empty, "." and ".." segments
// so the result cannot escape the output directory.
func cleanPath(p string) string {
	segments := strings.Split(p, "/")
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = sanitize(seg)
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, "/")
}

func sanitize(seg string) string {
	var b strings.Builder
	b.Grow(len(seg))
	for _, r := range seg {
		if isAllowed(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.':
		return true
	default:
		return false
	}
}
