package rewrite

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

const (
	zeroWidthSpace = "​"
	hairSpace      = " "
)

var equalsRe = regexp.MustCompile(`([=≠])([A-Za-z0-9])`)

// Typography composes the five sub-passes the design groups as one unit:
// slash line-breaking, equals line-breaking, link-live classification,
// link-icon classification, and the horizontal-rule cycler. They share a
// single AST walk; text nodes are collected during it and rewritten after
// it, so replacing a text node never cuts the walk short.
type Typography struct {
	cfg Config
}

// NewTypography constructs the typography pass.
func NewTypography(cfg Config) *Typography { return &Typography{cfg: cfg} }

// Transform implements parser.ASTTransformer.
func (p *Typography) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	cycle := hrCycleFrom(pc)
	source := reader.Source()

	var texts []*ast.Text
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			texts = append(texts, v)
		case *ast.Link:
			p.classifyLink(v)
		case *ast.ThematicBreak:
			p.cycleHR(v, cycle)
		}
		return ast.WalkContinue, nil
	})
	for _, t := range texts {
		p.rewriteText(t, source)
	}
}

// rewriteText replaces a text node's segment with a synthetic string that
// has slash and equals breakpoints inserted; it only ever widens the text,
// so the visible content survives strip-zero-width-space/strip-hair-space
// unchanged, per the slash-break-preservation invariant. Inside a link's
// display text it also pads slashes with hair spaces, to keep the
// underline from colliding with the glyph's kerning.
func (p *Typography) rewriteText(node *ast.Text, source []byte) {
	parent := node.Parent()
	if parent == nil {
		return
	}
	original := string(node.Segment.Value(source))
	rewritten := breakEquals(breakSlashes(original))
	if insideLink(node) {
		rewritten = padLinkText(rewritten)
	}
	if rewritten == original {
		return
	}

	newNode := ast.NewString([]byte(rewritten))
	parent.InsertAfter(parent, node, newNode)
	parent.RemoveChild(parent, node)
}

func insideLink(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := p.(*ast.Link); ok {
			return true
		}
	}
	return false
}

func (p *Typography) classifyLink(link *ast.Link) {
	url := string(link.Destination)
	if url == "" {
		return
	}
	if liveDomainMatches(p.cfg.LinkLiveDomains, url) {
		addClass(link, "link-live")
	}
	if class := linkIconClass(p.cfg.LinkIconRules, url); class != "" {
		addClass(link, class)
	}
}

func liveDomainMatches(domains map[string]bool, rawURL string) bool {
	if len(domains) == 0 {
		return false
	}
	host := hostOf(rawURL)
	for domain := range domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func linkIconClass(rules []LinkIconRule, rawURL string) string {
	lower := strings.ToLower(rawURL)
	for _, rule := range rules {
		if strings.Contains(lower, strings.ToLower(rule.Suffix)) {
			return rule.Class
		}
	}
	return ""
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func (p *Typography) cycleHR(hr *ast.ThematicBreak, cycle *hrCycle) {
	n := cycle.next()
	hr.SetAttributeString("class", []byte(fmt.Sprintf("horizontalRule-nth-%d", n)))
}

// breakSlashes inserts a zero-width space after every "/" not followed by a
// space or another "/", so long URLs and paths can wrap in narrow columns.
// Slashes between "<" and ">" are left alone, so HTML tag syntax is not
// broken; no visible character is changed.
func breakSlashes(s string) string {
	var b strings.Builder
	inTag := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		b.WriteByte(c)
		switch {
		case c == '<':
			inTag = true
		case c == '>':
			inTag = false
		case c == '/' && !inTag && i+1 < len(s) && s[i+1] != ' ' && s[i+1] != '/':
			b.WriteString(zeroWidthSpace)
		}
	}
	return b.String()
}

// breakEquals adds spacing around "=" and "≠" followed directly by an
// alphanumeric character, so e.g. "n=10" reads as "n = 10"; an "=" or "≠"
// followed by a space or by another "=" is left untouched, so "a == b"
// keeps its form.
func breakEquals(s string) string {
	return equalsRe.ReplaceAllString(s, " $1 $2")
}

// padLinkText adds hair-space padding around slashes inside link display
// text, so the underline under a link does not visually collide with the
// slash glyph's kerning.
func padLinkText(s string) string {
	return strings.ReplaceAll(s, "/", hairSpace+"/"+hairSpace)
}

// ApplyTextTypography runs the slash- and equals-line-breaking rewrites
// against a raw string rather than an AST text node, for callers (the
// annotation fragment writer) that need the same breakpoints inserted into
// an abstract's already-rendered HTML, outside of a document walk.
func ApplyTextTypography(s string) string {
	return breakEquals(breakSlashes(s))
}

