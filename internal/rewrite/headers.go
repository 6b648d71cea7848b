package rewrite

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/gwern/gwernbuild/internal/astdoc"
)

// forbiddenHeaderIDChars may never appear in a header id. An id the author
// wrote explicitly (e.g. "## Intro {#sec.1}") that contains one is a fatal
// build error (§6: "emission of any other character is a build error"), not
// a silent strip-and-continue: stripping it could produce an id the author
// didn't intend, or collide with another header's id. An id derived from
// the header's own text is slugified instead, which never produces one of
// these characters in the first place, so the fatal path is unreachable
// for auto-derived ids.
const forbiddenHeaderIDChars = ".#:"

// HeaderLinker gives every header a sanitized, non-empty id and replaces its
// visible children with a single self-link to "#<id>" whose text is the
// title-cased rendering of the header's original content.
type HeaderLinker struct {
	cfg Config
}

// NewHeaderLinker constructs the header self-link pass.
func NewHeaderLinker(cfg Config) *HeaderLinker { return &HeaderLinker{cfg: cfg} }

// Transform implements parser.ASTTransformer.
func (p *HeaderLinker) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	sink := issuesFrom(pc)
	path := astdoc.PathFromContext(pc)
	source := reader.Source()

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if !p.rewriteHeading(heading, source, sink, path) {
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})
}

func (p *HeaderLinker) rewriteHeading(heading *ast.Heading, source []byte, sink *IssueSink, path string) bool {
	plain := plainText(heading, source)

	var id string
	if explicit, ok := explicitHeaderID(heading); ok {
		if sanitizeHeaderID(explicit) != explicit {
			sink.ReportFatal("headers", fmt.Sprintf(
				"%s: header id %q contains a forbidden character (%q)",
				path, explicit, forbiddenHeaderIDChars,
			))
			return false
		}
		id = explicit
	} else {
		id = slugify(plain)
		if id == "" {
			sink.ReportFatal("headers", fmt.Sprintf(
				"%s: header %q has an empty id after slugification",
				path, plain,
			))
			return false
		}
		heading.SetAttributeString("id", []byte(id))
		sink.Warn("headers", fmt.Sprintf("%s: header id derived from text as %q", path, id))
	}

	link := ast.NewLink()
	link.Destination = []byte("#" + id)
	link.Title = []byte(fmt.Sprintf("Link to section: § '%s'", plain))
	link.AppendChild(link, ast.NewString([]byte(titleCase(plain))))

	for child := heading.FirstChild(); child != nil; {
		next := child.NextSibling()
		heading.RemoveChild(heading, child)
		child = next
	}
	heading.AppendChild(heading, link)
	return true
}

// explicitHeaderID returns the id the author wrote explicitly (e.g. an
// attribute attached by goldmark's attribute syntax), if any. It never
// falls back to the plain text — that is the caller's job when this
// returns ok == false — because an explicit id is validated differently
// from an auto-derived one (see forbiddenHeaderIDChars).
func explicitHeaderID(heading *ast.Heading) (string, bool) {
	if raw, ok := heading.AttributeString("id"); ok {
		if b, ok := raw.([]byte); ok && len(b) > 0 {
			return string(b), true
		}
	}
	return "", false
}

func sanitizeHeaderID(id string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(forbiddenHeaderIDChars, r) {
			return -1
		}
		return r
	}, id)
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// titleCase title-cases s using a small stoplist of words that stay
// lowercase unless they are the first word, matching conventional
// English title-casing.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		lower := strings.ToLower(w)
		if i != 0 && titleCaseStopwords[lower] {
			words[i] = lower
			continue
		}
		words[i] = capitalizeWord(w)
	}
	return strings.Join(words, " ")
}

func capitalizeWord(w string) string {
	r := []rune(w)
	if len(r) == 0 {
		return w
	}
	r[0] = unicode.ToUpper(r[0])
	for i := 1; i < len(r); i++ {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}

var titleCaseStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "but": true,
	"by": true, "for": true, "in": true, "nor": true, "of": true, "on": true,
	"or": true, "so": true, "the": true, "to": true, "up": true, "yet": true,
}
