package rewrite

import (
	"path"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// excludedLocalLinkPrefixes are local paths that are assets, not site
// pages, and so never get the link-local styling class.
var excludedLocalLinkPrefixes = []string{"/static/", "/images/"}

// LocalLinkClassifier marks a link pointing to a local, extensionless path
// (a site page, as opposed to a downloadable asset) with the link-local
// class, for client-side styling.
type LocalLinkClassifier struct {
	cfg Config
}

// NewLocalLinkClassifier constructs the local-link-classifier pass.
func NewLocalLinkClassifier(cfg Config) *LocalLinkClassifier { return &LocalLinkClassifier{cfg: cfg} }

// Transform implements parser.ASTTransformer.
func (p *LocalLinkClassifier) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		if isLocalPageLink(string(link.Destination)) {
			addClass(link, "link-local")
		}
		return ast.WalkContinue, nil
	})
}

func isLocalPageLink(url string) bool {
	if !strings.HasPrefix(url, "/") {
		return false
	}
	for _, prefix := range excludedLocalLinkPrefixes {
		if strings.HasPrefix(url, prefix) {
			return false
		}
	}
	withoutFragment := url
	if idx := strings.IndexByte(withoutFragment, '#'); idx >= 0 {
		withoutFragment = withoutFragment[:idx]
	}
	if withoutFragment == "" {
		return false
	}
	return path.Ext(withoutFragment) == ""
}
