package fragment

import (
	"net/url"
	"strings"
	"testing"

	"github.com/gwern/gwernbuild/internal/metadata"
)

func TestFragmentFilename_Roundtrips(t *testing.T) {
	p := metadata.Path("/doc/ai/scaling-laws.html")
	name := fragmentFilename(p)
	if !strings.HasSuffix(name, ".html") {
		t.Errorf("fragmentFilename(%q) = %q, want .html suffix", p, name)
	}
	decoded, err := url.QueryUnescape(strings.TrimSuffix(name, ".html"))
	if err != nil {
		t.Fatalf("QueryUnescape error = %v", err)
	}
	if decoded != string(p) {
		t.Errorf("fragmentFilename round-trip = %q, want %q", decoded, p)
	}
}

func TestFragmentFilename_TruncatesLongPaths(t *testing.T) {
	longPath := metadata.Path("/doc/" + strings.Repeat("a", 400) + ".html")
	name := fragmentFilename(longPath)
	if len(name) > maxFilenameBytes {
		t.Errorf("fragmentFilename length = %d, want <= %d", len(name), maxFilenameBytes)
	}
	if !strings.HasSuffix(name, ".html") {
		t.Errorf("truncated fragmentFilename = %q, want .html suffix", name)
	}
}

func TestCitationMarkdown_IncludesCitationFields(t *testing.T) {
	item := metadata.Item{
		Title:  "A Great Paper",
		Author: "Jane Smith",
		Date:   "2021-04-01",
		DOI:    "10.1000/xyz123",
	}
	got := citationMarkdown("https://example.com/paper", item)
	for _, want := range []string{"A Great Paper", "https://example.com/paper", "Jane Smith", "2021-04-01", "doi.org", "10.1000", "xyz123"} {
		if !strings.Contains(got, want) {
			t.Errorf("citationMarkdown() = %q, expected to contain %q", got, want)
		}
	}
}

func TestCitationMarkdown_EscapesBracketsInTitle(t *testing.T) {
	item := metadata.Item{Title: "A [bracketed] title", Author: "Jane Smith"}
	got := citationMarkdown("https://example.com/p", item)
	if strings.Contains(got, "[bracketed]") {
		t.Errorf("citationMarkdown() = %q, expected brackets in title to be escaped", got)
	}
}

func TestRewriteRelativeAnchors(t *testing.T) {
	in := `See <a href="#section-2">this</a> for details.`
	got := rewriteRelativeAnchors(in, "/doc/paper.html")
	want := `See <a href="/doc/paper.html#section-2">this</a> for details.`
	if got != want {
		t.Errorf("rewriteRelativeAnchors() = %q, want %q", got, want)
	}
}
