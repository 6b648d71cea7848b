// Package identify generates deterministic citation identifiers from a
// link's (url, author, date) triple.
package identify

import (
	"path"
	"regexp"
	"strings"
)

// SuffixMode controls how a trailing numeric disambiguation suffix on the
// URL basename (e.g. "...-2.pdf") is handled. The source carried two copies
// of the generator that disagreed on whether "-1" is emitted or dropped;
// DropSuffixOne matches the behavior documented as canonical ("-1 is
// dropped") and is the default.
type SuffixMode int

const (
	// DropSuffixOne drops a "-1" disambiguation suffix but keeps "-2" and
	// higher. This is the default and matches the documented canonical
	// behavior.
	DropSuffixOne SuffixMode = iota
	// KeepAllSuffixes emits every numeric suffix found, including "-1".
	KeepAllSuffixes
)

// selfAuthor is the site author's name; links it authors get the "gwern-"
// identifier form instead of an author/year citation key.
const selfAuthor = "Gwern Branwen"

const defaultYear = "2020"

var (
	basenameSuffixRe = regexp.MustCompile(`-([0-9]+)(\.[a-zA-Z0-9]+)?$`)
	affiliationRe    = regexp.MustCompile(`\([^)]*\)`)
	nonAlphaTailRe   = regexp.MustCompile(`[^A-Za-z]+$`)
	siteSlugRe       = regexp.MustCompile(`[.\-/#:]+`)
)

// Generate produces the stable fragment ID for a citation link. Empty
// author or date, or a Wikipedia URL, yields the empty string (no ID).
func Generate(url, author, date string, mode SuffixMode) string {
	if author == "" || date == "" {
		return ""
	}
	if isWikipedia(url) {
		return ""
	}
	if strings.TrimSpace(author) == selfAuthor {
		return "gwern-" + selfSlug(url)
	}

	surnames := authorSurnames(author)
	if len(surnames) == 0 {
		return ""
	}
	year := yearOf(date)

	var base string
	switch {
	case len(surnames) >= 3:
		base = surnames[0] + "-et-al-" + year
	case len(surnames) == 2:
		base = surnames[0] + "-" + surnames[1] + "-" + year
	default:
		base = surnames[0] + "-" + year
	}

	if suffix := basenameSuffix(url, mode); suffix != "" {
		base += suffix
	}

	return strings.ToLower(strings.ReplaceAll(base, ".", ""))
}

func isWikipedia(url string) bool {
	return strings.Contains(url, "wikipedia.org/wiki/")
}

// selfSlug turns a self-authored URL into the part of an ID after "gwern-":
// the scheme and host are dropped, and runs of ".", "-", "/", "#" and ":"
// become single dashes.
func selfSlug(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		rest := url[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			url = rest[j:]
		} else {
			url = ""
		}
	}
	slug := strings.ToLower(url)
	slug = siteSlugRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// authorSurnames splits a joined author string ("Alice Johnson, Bob Quux")
// into surnames, stripping parenthesized affiliations and taking the
// alphabetic tail of each comma-separated author's name.
func authorSurnames(author string) []string {
	parts := strings.Split(author, ",")
	var surnames []string
	for _, p := range parts {
		p = affiliationRe.ReplaceAllString(p, "")
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.Fields(p)
		if len(fields) == 0 {
			continue
		}
		last := fields[len(fields)-1]
		last = nonAlphaTailRe.ReplaceAllString(last, "")
		last = alphabeticTail(last)
		if last == "" {
			continue
		}
		surnames = append(surnames, last)
	}
	return surnames
}

func alphabeticTail(s string) string {
	for i, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			continue
		}
		return s[i:]
	}
	return s
}

func yearOf(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return defaultYear
}

func basenameSuffix(url string, mode SuffixMode) string {
	base := path.Base(url)
	m := basenameSuffixRe.FindStringSubmatch(base)
	if m == nil {
		return ""
	}
	n := m[1]
	if n == "1" && mode == DropSuffixOne {
		return ""
	}
	return "-" + n
}
