package rewrite

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// LooseBlockNormalizer promotes every top-level TextBlock (goldmark's
// unwrapped "plain" block, produced for e.g. a tight list item's lone line)
// to a Paragraph, so the renderer always wraps top-level prose in a <p>
// rather than leaving it bare. It runs last, after every other pass has
// had a chance to rely on node identity/type of the original blocks.
type LooseBlockNormalizer struct {
	cfg Config
}

// NewLooseBlockNormalizer constructs the loose-block-normalization pass.
func NewLooseBlockNormalizer(cfg Config) *LooseBlockNormalizer {
	return &LooseBlockNormalizer{cfg: cfg}
}

// Transform implements parser.ASTTransformer.
func (p *LooseBlockNormalizer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	for child := doc.FirstChild(); child != nil; {
		next := child.NextSibling()
		if tb, ok := child.(*ast.TextBlock); ok {
			promoteToParagraph(doc, tb)
		}
		child = next
	}
}

func promoteToParagraph(parent ast.Node, tb *ast.TextBlock) {
	para := ast.NewParagraph()
	if attrs := tb.Attributes(); attrs != nil {
		for _, attr := range attrs {
			para.SetAttribute(attr.Name, attr.Value)
		}
	}
	for child := tb.FirstChild(); child != nil; {
		next := child.NextSibling()
		tb.RemoveChild(tb, child)
		para.AppendChild(para, child)
		child = next
	}
	parent.ReplaceChild(parent, tb, para)
}
