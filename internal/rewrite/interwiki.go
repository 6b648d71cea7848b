package rewrite

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// InterwikiExpander expands "!PREFIX" link destinations into their full URL
// using Config.InterwikiBase, the wiki-shorthand convention for linking
// Wikipedia and sibling wikis without spelling out the whole URL every
// time: "[Einstein](!W)" expands from the link's own visible text, not
// from anything embedded in the destination. It runs before identifier
// generation so the expanded URL is what gets hashed and annotated, not
// the shorthand.
type InterwikiExpander struct {
	cfg Config
}

// NewInterwikiExpander constructs the interwiki-expansion pass.
func NewInterwikiExpander(cfg Config) *InterwikiExpander { return &InterwikiExpander{cfg: cfg} }

// Transform implements parser.ASTTransformer.
func (p *InterwikiExpander) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	if len(p.cfg.InterwikiBase) == 0 {
		return
	}
	source := reader.Source()
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		title := strings.TrimSpace(plainText(link, source))
		expanded, ok := p.expand(string(link.Destination), title)
		if !ok {
			return ast.WalkContinue, nil
		}
		link.Destination = []byte(expanded)
		return ast.WalkContinue, nil
	})
}

// expand recognizes "!PREFIX" (optionally followed by an embedded
// "!PREFIX Title" for a title override) and returns the prefix's base
// template with the title URL-escaped and substituted for "%s". When the
// destination carries no embedded title, linkText — the link's visible
// text, e.g. "Einstein" in "[Einstein](!W)" — is used instead.
func (p *InterwikiExpander) expand(dest, linkText string) (string, bool) {
	if !strings.HasPrefix(dest, "!") {
		return "", false
	}
	rest := dest[1:]
	prefix := rest
	title := linkText
	if parts := strings.SplitN(rest, " ", 2); len(parts) == 2 {
		prefix = parts[0]
		title = parts[1]
	}
	base, ok := p.cfg.InterwikiBase[prefix]
	if !ok {
		return "", false
	}
	if title == "" {
		return "", false
	}
	title = strings.ReplaceAll(title, " ", "_")
	return fmt.Sprintf(base, url.PathEscape(title)), true
}
