package scrape

import "regexp"

var (
	spacedInitialRe = regexp.MustCompile(`([A-Z])\.([A-Z][a-z])`)
	doubleInitialRe = regexp.MustCompile(`([A-Z])\.([A-Z])\.`)
	andRe           = regexp.MustCompile(`\s+and\s+|,\s*&\s*|,\s*and\s+`)
	bareInitialRe   = regexp.MustCompile(`\b([A-Z]) ([A-Za-z]{2,})`)
)

// NormalizeAuthors standardizes a raw author string the way the cleaner
// expects: spaced initials ("A.Smith" -> "A. Smith", "A.B. Smith" ->
// "A. B. Smith"), "and"/"&" joiners normalized to ", ", and a period
// inserted after a single capital letter followed by a space and a word.
func NormalizeAuthors(raw string) string {
	s := raw
	s = doubleInitialRe.ReplaceAllString(s, "$1. $2.")
	s = spacedInitialRe.ReplaceAllString(s, "$1. $2")
	s = andRe.ReplaceAllString(s, ", ")
	s = bareInitialRe.ReplaceAllString(s, "$1. $2")
	return s
}
