// Package astdoc parses source documents into a goldmark AST and renders the
// fully rewritten AST back to HTML. Parsing and rendering are kept as two
// separate steps so the rewrite pipeline can mutate the AST in between:
// mutation happens only inside registered parser.ASTTransformers, keeping
// the pure rewrite phase (§4.4) cleanly separated from the scrape/archive
// phase's I/O, the way the design calls for.
package astdoc

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	goldmarkmeta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Metadata captures a document's frontmatter.
type Metadata struct {
	Raw         map[string]any
	Title       string
	Description string
	Tags        []string
}

// Doc is a parsed document: an AST ready for the rewrite pipeline, plus the
// source bytes the AST's text.Segments reference.
type Doc struct {
	Path     string
	Node     ast.Node
	Source   []byte
	Metadata Metadata
	Modified time.Time
	Context  parser.Context
}

// Service parses source documents into an AST and renders a mutated AST back
// to HTML, sharing one goldmark configuration (extensions, highlighting,
// raw-HTML handling) across both steps.
type Service struct {
	md     goldmark.Markdown
	logger *slog.Logger
}

// docPathKey lets rewrite passes recover the document's own Path from the
// parser.Context they are handed, the same pattern the teacher used for
// wiki-relative link resolution.
var docPathKey = parser.NewContextKey()

// NewService constructs a parser/renderer pair. extraTransformers are the
// rewrite package's numbered passes, each a parser.ASTTransformer at a
// distinct priority matching its position in the pass order (§4.4); the
// fragment writer registers only a subset of them (§4.7 step 3).
func NewService(logger *slog.Logger, extraTransformers ...util.PrioritizedValue) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	highlight := highlighting.NewHighlighting(
		highlighting.WithStyle("github-dark"),
		highlighting.WithFormatOptions(
			chromahtml.WithLineNumbers(false),
			chromahtml.WithClasses(true),
		),
	)

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote, goldmarkmeta.Meta, highlight),
		goldmark.WithParserOptions(
			parser.WithAttribute(),
			parser.WithASTTransformers(extraTransformers...),
		),
		goldmark.WithRendererOptions(
			htmlrenderer.WithUnsafe(),
			htmlrenderer.WithXHTML(),
		),
	)

	return &Service{md: md, logger: logger.With("component", "astdoc")}
}

// Parse runs the configured goldmark pipeline (including every registered
// rewrite pass) over content and returns the resulting Doc. The AST handed
// back has already been fully rewritten; Render only serializes it.
//
// prepare, if non-nil, is called with the fresh parser.Context before
// parsing begins, so a caller (the rewrite Pipeline) can stash per-document
// state — an issue sink, a horizontal-rule counter — that its passes will
// read back out of the same context during the walk.
func (s *Service) Parse(path string, modTime time.Time, content []byte, prepare func(parser.Context)) (*Doc, error) {
	reader := text.NewReader(content)
	pctx := parser.NewContext()
	pctx.Set(docPathKey, path)
	if prepare != nil {
		prepare(pctx)
	}

	node := s.md.Parser().Parse(reader, parser.WithContext(pctx))

	return &Doc{
		Path:     path,
		Node:     node,
		Source:   content,
		Metadata: extractMetadata(pctx),
		Modified: modTime,
		Context:  pctx,
	}, nil
}

// Render serializes doc's (possibly rewrite-mutated) AST to HTML.
func (s *Service) Render(doc *Doc) (string, error) {
	buf := bytes.NewBuffer(nil)
	if err := s.md.Renderer().Render(buf, doc.Source, doc.Node); err != nil {
		return "", fmt.Errorf("render document %s: %w", doc.Path, err)
	}
	return buf.String(), nil
}

// PathFromContext recovers the document path a rewrite pass is operating on.
func PathFromContext(pc parser.Context) string {
	if v := pc.Get(docPathKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func extractMetadata(ctx parser.Context) Metadata {
	raw := goldmarkmeta.Get(ctx)
	var meta Metadata
	if raw == nil {
		return meta
	}

	meta.Raw = make(map[string]any)
	for k, v := range raw {
		meta.Raw[k] = v
		switch k {
		case "title":
			if str, ok := toString(v); ok {
				meta.Title = str
			}
		case "description", "summary":
			if str, ok := toString(v); ok {
				meta.Description = str
			}
		case "tags", "keywords":
			meta.Tags = toStringSlice(v)
		}
	}
	if len(meta.Raw) == 0 {
		meta.Raw = nil
	}
	return meta
}

func toString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	default:
		return "", false
	}
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if str, ok := toString(item); ok {
				out = append(out, str)
			}
		}
		return out
	case []string:
		return append([]string(nil), vv...)
	default:
		if str, ok := toString(v); ok {
			return []string{str}
		}
		return nil
	}
}
