package metadata

import "strings"

// Path is a canonical identifier for a linked resource: either a site-local
// path beginning with "/", or an absolute external URL.
type Path string

// Canonicalize strips the site's own absolute URL prefix down to a leading
// "/" and removes a leading "./". The fragment is kept, since it is part of
// the Path's display form; callers that need to key a map use
// WithoutFragment.
func Canonicalize(raw, siteURL string) Path {
	s := strings.TrimSpace(raw)
	if siteURL != "" && strings.HasPrefix(s, siteURL) {
		s = strings.TrimPrefix(s, siteURL)
		if !strings.HasPrefix(s, "/") {
			s = "/" + s
		}
	}
	s = strings.TrimPrefix(s, "./")
	return Path(s)
}

// WithoutFragment returns the Path with any "#..." suffix removed, for use
// as a map key or hash input.
func (p Path) WithoutFragment() Path {
	s := string(p)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return Path(s[:i])
	}
	return p
}

// Fragment returns the "#..." suffix, if any, without the leading "#".
func (p Path) Fragment() string {
	s := string(p)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return s[i+1:]
	}
	return ""
}

// IsLocal reports whether the Path refers to a site-local resource (a
// leading "/") rather than an external URL.
func (p Path) IsLocal() bool {
	return strings.HasPrefix(string(p), "/")
}

// IsExternal reports whether the Path is an absolute http(s) URL.
func (p Path) IsExternal() bool {
	s := string(p)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsSpecial reports whether the Path is a "?"-prefixed in-place definition,
// per the curated-record URL shape invariant.
func (p Path) IsSpecial() bool {
	return strings.HasPrefix(string(p), "?")
}
