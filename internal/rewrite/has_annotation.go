package rewrite

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/gwern/gwernbuild/internal/identify"
	"github.com/gwern/gwernbuild/internal/metadata"
)

// noAnnotationIDClass is the author-facing opt-out: a link written with
// this class (e.g. `[x](url){.no-annotation-id}`) keeps its own id/markup
// even when its target has a qualifying annotation.
const noAnnotationIDClass = "no-annotation-id"

// HasAnnotationMarker walks inline links and, for any whose target carries
// a long-enough annotation (or is a Wikipedia article, marked
// unconditionally), adds the docMetadata class and a freshly generated
// identifier. It runs after annotation creation has populated the metadata
// store and reads that store read-only, matching the concurrency model.
type HasAnnotationMarker struct {
	cfg Config
}

// NewHasAnnotationMarker constructs the has-annotation pass.
func NewHasAnnotationMarker(cfg Config) *HasAnnotationMarker { return &HasAnnotationMarker{cfg: cfg} }

// Transform implements parser.ASTTransformer.
func (p *HasAnnotationMarker) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	if p.cfg.Metadata == nil {
		return
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		p.markIfAnnotated(link)
		return ast.WalkContinue, nil
	})
}

func (p *HasAnnotationMarker) markIfAnnotated(link *ast.Link) {
	if hasClass(link, noAnnotationIDClass) {
		return
	}
	url := string(link.Destination)
	path := metadata.Canonicalize(url, p.cfg.SiteURL)
	wikipedia := isWikipediaURL(url)
	item, ok := p.cfg.Metadata.LookupPath(path)
	if !ok && !wikipedia {
		return
	}

	if item.IsNegativeCache() && !wikipedia {
		return
	}
	if !wikipedia && !item.HasLongAbstract(p.cfg.MinAnnotationLength) {
		return
	}

	addClass(link, "docMetadata")
	id := identify.Generate(url, item.Author, item.Date, p.cfg.SuffixMode)
	if id != "" {
		link.SetAttributeString("id", []byte(id))
	}
}

func hasClass(n ast.Node, class string) bool {
	v, ok := n.AttributeString("class")
	if !ok {
		return false
	}
	classes, ok := v.([]byte)
	if !ok {
		return false
	}
	for _, tok := range strings.Fields(string(classes)) {
		if tok == class {
			return true
		}
	}
	return false
}

func addClass(n ast.Node, class string) {
	existing, ok := n.AttributeString("class")
	if !ok {
		n.SetAttributeString("class", []byte(class))
		return
	}
	current, ok := existing.([]byte)
	if !ok || len(current) == 0 {
		n.SetAttributeString("class", []byte(class))
		return
	}
	for _, tok := range strings.Fields(string(current)) {
		if tok == class {
			return
		}
	}
	n.SetAttributeString("class", []byte(string(current)+" "+class))
}

func isWikipediaURL(url string) bool {
	return strings.Contains(url, "wikipedia.org/wiki/")
}
