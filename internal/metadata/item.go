package metadata

import (
	"strings"
	"unicode/utf8"
)

// Item is an annotation record: the bibliographic metadata attached to a
// Path. All fields are strings per the source record shape; Date, when
// present, is ISO "YYYY-MM-DD".
type Item struct {
	Title        string
	Author       string
	Date         string
	DOI          string
	Tags         []string
	AbstractHTML string
}

// IsNegativeCache reports whether this Item represents "we tried, nothing is
// available": all three mandatory fields (title, author, abstract) are
// empty.
func (it Item) IsNegativeCache() bool {
	return it.Title == "" && it.Author == "" && it.AbstractHTML == ""
}

// DefaultMinAnnotationLength is the documented default threshold (§4.4.5,
// §4.7): an abstract shorter than this, with HTML tags stripped, does not
// warrant its own annotation fragment or inline has-annotation marking.
const DefaultMinAnnotationLength = 180

// HasLongAbstract reports whether the abstract is at least minLength
// characters long once HTML tags are stripped. Callers pass the build's
// configured threshold (rewrite.Config.MinAnnotationLength); pass
// DefaultMinAnnotationLength to use the documented default directly.
func (it Item) HasLongAbstract(minLength int) bool {
	return utf8.RuneCountInString(stripTags(it.AbstractHTML)) >= minLength
}

func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
