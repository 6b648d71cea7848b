package rewrite

import (
	"testing"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// transformHeaders parses src with attribute parsing enabled (so explicit
// "{#id}" header attributes are recognized) and runs HeaderLinker over the
// result, returning the sink it reported into.
func transformHeaders(t *testing.T, src string) *IssueSink {
	t.Helper()
	reader := text.NewReader([]byte(src))
	md := goldmark.New(goldmark.WithParserOptions(parser.WithAttribute()))
	pc := parser.NewContext()
	doc, ok := md.Parser().Parse(reader, parser.WithContext(pc)).(*ast.Document)
	if !ok {
		t.Fatal("parser did not return *ast.Document")
	}

	sink := NewIssueSink()
	pc.Set(issuesKey, sink)
	NewHeaderLinker(Config{}).Transform(doc, reader, pc)
	return sink
}

func TestHeaderLinker_ExplicitIDWithForbiddenCharIsFatal(t *testing.T) {
	sink := transformHeaders(t, "## Intro {#sec.1}\n")
	if sink.Fatal() == nil {
		t.Error("expected a fatal error for an explicit header id containing '.'")
	}
}

func TestHeaderLinker_AutoDerivedIDNeverFatal(t *testing.T) {
	sink := transformHeaders(t, "## Section: One.\n")
	if sink.Fatal() != nil {
		t.Errorf("auto-derived header id should never be fatal, got %v", sink.Fatal())
	}
}

func TestHeaderLinker_ValidExplicitIDIsAccepted(t *testing.T) {
	sink := transformHeaders(t, "## Intro {#sec-1}\n")
	if sink.Fatal() != nil {
		t.Errorf("valid explicit header id should not be fatal, got %v", sink.Fatal())
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hello World", "hello-world"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Punctuation! Matters?", "punctuation-matters"},
		{"Multiple   Spaces", "multiple-spaces"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeHeaderID_StripsForbiddenChars(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain-id", "plain-id"},
		{"has.dots", "hasdots"},
		{"has#hash", "hashash"},
		{"has:colon", "hascolon"},
		{"...", ""},
	}
	for _, tc := range cases {
		if got := sanitizeHeaderID(tc.in); got != tc.want {
			t.Errorf("sanitizeHeaderID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTitleCase(t *testing.T) {
	cases := []struct{ in, want string }{
		{"the lord of the rings", "The Lord of the Rings"},
		{"a tale of two cities", "A Tale of Two Cities"},
		{"ALREADY UPPER", "Already Upper"},
	}
	for _, tc := range cases {
		if got := titleCase(tc.in); got != tc.want {
			t.Errorf("titleCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
