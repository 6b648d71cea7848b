package rewrite

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/gwern/gwernbuild/internal/astdoc"
)

// minFootnoteTextLength is the shortest plain-text content a footnote may
// contain before it is considered malformed: a footnote whose body is just a
// few characters with no spaces is almost always a mis-escaped citation
// marker, not a real note.
const minFootnoteTextLength = 4

// FootnoteChecker detects malformed footnote anchors: bodies short enough,
// and spaceless enough, to indicate the source author meant something else
// (a citation key, a stray caret) rather than an actual footnote. It runs
// after interwiki expansion. The driver's annotation-creation pre-pass runs
// before any document pass, so scraping may already have happened when a
// fatal diagnostic here aborts the build.
type FootnoteChecker struct {
	cfg Config
}

// NewFootnoteChecker constructs the footnote-sanity pass.
func NewFootnoteChecker(cfg Config) *FootnoteChecker { return &FootnoteChecker{cfg: cfg} }

// Transform implements parser.ASTTransformer.
func (p *FootnoteChecker) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	sink := issuesFrom(pc)
	path := astdoc.PathFromContext(pc)
	source := reader.Source()

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		note, ok := n.(*extast.Footnote)
		if !ok {
			return ast.WalkContinue, nil
		}
		text := strings.TrimSpace(plainText(note, source))
		if len(text) < minFootnoteTextLength && !strings.Contains(text, " ") {
			sink.ReportFatal("footnote", fmt.Sprintf(
				"%s: malformed footnote anchor %q (too short and spaceless to be a real note)",
				path, text,
			))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
}

// plainText concatenates every Text and String leaf under n; String leaves
// are the synthetic text that earlier passes put in place of Text nodes.
func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
