package rewrite

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/gwern/gwernbuild/internal/metadata"
)

// PageLinkWalker propagates page-level metadata — whether the target has
// backlinks, whether it has similar-links, and its tag list — onto classes
// and data attributes of links pointing at it, so the client script knows
// which auxiliary popup sections to offer without a separate request.
type PageLinkWalker struct {
	cfg Config
}

// NewPageLinkWalker constructs the page-link-walker pass.
func NewPageLinkWalker(cfg Config) *PageLinkWalker { return &PageLinkWalker{cfg: cfg} }

// Transform implements parser.ASTTransformer.
func (p *PageLinkWalker) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	if !isLocalPathLink(p.cfg) {
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
		p.annotate(link)
		return ast.WalkContinue, nil
	})
}

func isLocalPathLink(cfg Config) bool {
	return cfg.BacklinksIndex != nil || cfg.SimilarLinksIndex != nil || cfg.TagsIndex != nil
}

func (p *PageLinkWalker) annotate(link *ast.Link) {
	url := string(link.Destination)
	path := metadata.Canonicalize(url, p.cfg.SiteURL)
	if !path.IsLocal() {
		return
	}
	key := string(path.WithoutFragment())

	if p.cfg.BacklinksIndex[key] {
		addClass(link, "backlinks-available")
	}
	if p.cfg.SimilarLinksIndex[key] {
		addClass(link, "similar-links-available")
	}
	if tags := p.cfg.TagsIndex[key]; len(tags) > 0 {
		link.SetAttributeString("data-tags", []byte(strings.Join(tags, " ")))
	}
}
