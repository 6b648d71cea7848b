package rewrite

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// AutoLinker scans text nodes for known phrases (recurring citations,
// Wikipedia titles) and links, in each text node outside a link, the first
// match of the longest phrase found there. At most one phrase is linked per
// text node, and nothing is tracked across nodes, so a phrase that appears
// in several paragraphs is linked in each. It runs first among the document
// passes, before has-annotation marking, so the links it introduces are
// marked like authored ones, and before the typography pass, so its phrase
// matching sees unbroken words.
type AutoLinker struct {
	cfg Config
}

// NewAutoLinker constructs the auto-linker pass.
func NewAutoLinker(cfg Config) *AutoLinker { return &AutoLinker{cfg: cfg} }

// Transform implements parser.ASTTransformer.
func (p *AutoLinker) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	if len(p.cfg.AutoLinkPhrases) == 0 {
		return
	}
	phrases := sortedPhrasesByLength(p.cfg.AutoLinkPhrases)
	source := reader.Source()

	forEachTextChild(doc, source, func(parent ast.Node, node *ast.Text, value string) {
		if insideLink(node) {
			return
		}
		for _, phrase := range phrases {
			idx := strings.Index(value, phrase)
			if idx < 0 {
				continue
			}
			url := p.cfg.AutoLinkPhrases[phrase]
			replaceTextWithLink(parent, node, value, idx, idx+len(phrase), url)
			return
		}
	})
}

func sortedPhrasesByLength(phrases map[string]string) []string {
	out := make([]string, 0, len(phrases))
	for k := range phrases {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// forEachTextChild walks the AST calling fn for every *ast.Text leaf, with
// its already-decoded string value sliced from source. The leaves are
// collected first and fn runs after the walk, so fn may replace a node
// without cutting the walk short.
func forEachTextChild(parent ast.Node, source []byte, fn func(parent ast.Node, node *ast.Text, value string)) {
	var texts []*ast.Text
	_ = ast.Walk(parent, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok && n.Parent() != nil {
			texts = append(texts, t)
		}
		return ast.WalkContinue, nil
	})
	for _, t := range texts {
		fn(t.Parent(), t, string(t.Segment.Value(source)))
	}
}

// replaceTextWithLink splits a text node at [start,end) and replaces that
// span with a Link node wrapping an ast.String, preserving the text before
// and after as sibling Text nodes built from synthetic strings (since the
// original segment can no longer be sliced once split across new nodes).
func replaceTextWithLink(parent ast.Node, node *ast.Text, value string, start, end int, url string) {
	before := value[:start]
	matched := value[start:end]
	after := value[end:]

	link := ast.NewLink()
	link.Destination = []byte(url)
	link.AppendChild(link, ast.NewString([]byte(matched)))

	var nodes []ast.Node
	if before != "" {
		nodes = append(nodes, ast.NewString([]byte(before)))
	}
	nodes = append(nodes, link)
	if after != "" {
		nodes = append(nodes, ast.NewString([]byte(after)))
	}

	anchor := node
	for _, n := range nodes {
		parent.InsertAfter(parent, anchor, n)
		anchor = n
	}
	parent.RemoveChild(parent, node)
}
