package rewrite

import (
	"testing"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

func parseForAutoLink(t *testing.T, src string) (*ast.Document, text.Reader) {
	t.Helper()
	reader := text.NewReader([]byte(src))
	node := goldmark.New().Parser().Parse(reader)
	doc, ok := node.(*ast.Document)
	if !ok {
		t.Fatalf("parser returned %T, want *ast.Document", node)
	}
	return doc, reader
}

func TestAutoLinker_LinksFirstOccurrenceOfKnownPhrase(t *testing.T) {
	doc, reader := parseForAutoLink(t, "See Attention Is All You Need for details.")

	cfg := Config{AutoLinkPhrases: map[string]string{
		"Attention Is All You Need": "https://arxiv.org/abs/1706.03762",
	}}
	NewAutoLinker(cfg).Transform(doc, reader, parser.NewContext())

	var link *ast.Link
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if l, ok := n.(*ast.Link); ok {
				link = l
			}
		}
		return ast.WalkContinue, nil
	})
	if link == nil {
		t.Fatal("expected AutoLinker to introduce a link for the known phrase")
	}
	if got := string(link.Destination); got != "https://arxiv.org/abs/1706.03762" {
		t.Errorf("link destination = %q, want arxiv URL", got)
	}

	source := reader.Source()
	if got := plainText(doc, source); got != "See Attention Is All You Need for details." {
		t.Errorf("visible text changed: got %q", got)
	}
}

func TestAutoLinker_SkipsTextAlreadyInsideALink(t *testing.T) {
	doc, reader := parseForAutoLink(t, "[Attention Is All You Need](https://example.com/paper)")

	cfg := Config{AutoLinkPhrases: map[string]string{
		"Attention Is All You Need": "https://arxiv.org/abs/1706.03762",
	}}
	NewAutoLinker(cfg).Transform(doc, reader, parser.NewContext())

	var links []*ast.Link
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if l, ok := n.(*ast.Link); ok {
				links = append(links, l)
			}
		}
		return ast.WalkContinue, nil
	})
	if len(links) != 1 {
		t.Fatalf("expected exactly one link (no nested auto-link), got %d", len(links))
	}
	if got := string(links[0].Destination); got != "https://example.com/paper" {
		t.Errorf("existing link destination changed: got %q", got)
	}
}

func TestAutoLinker_NoOpWithoutPhrases(t *testing.T) {
	doc, reader := parseForAutoLink(t, "Nothing to link here.")
	NewAutoLinker(Config{}).Transform(doc, reader, parser.NewContext())

	var found bool
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if _, ok := n.(*ast.Link); ok {
				found = true
			}
		}
		return ast.WalkContinue, nil
	})
	if found {
		t.Error("expected no links introduced when AutoLinkPhrases is empty")
	}
}
