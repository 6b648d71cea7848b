package rewrite

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// ArchiveLinker replaces or annotates every external link with its local
// snapshot path, via the archive store (§4.5). The store itself dedupes
// concurrent fetches of the same URL and is linearizable, so this pass can
// call it inline during the AST walk without violating the "no pass blocks
// on another pass" rule — the blocking, if any, is on the archive store's
// own in-flight-fetch lock, not on sibling rewrite passes.
type ArchiveLinker struct {
	cfg Config
}

// NewArchiveLinker constructs the local-link-archiver pass.
func NewArchiveLinker(cfg Config) *ArchiveLinker { return &ArchiveLinker{cfg: cfg} }

// Transform implements parser.ASTTransformer.
func (p *ArchiveLinker) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	if p.cfg.Archive == nil {
		return
	}
	sink := issuesFrom(pc)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		p.archive(link, sink)
		return ast.WalkContinue, nil
	})
}

func (p *ArchiveLinker) archive(link *ast.Link, sink *IssueSink) {
	url := string(link.Destination)
	if !isExternalLink(url, p.cfg.SiteURL) {
		return
	}

	localPath, err := p.cfg.Archive.Archive(p.cfg.Ctx, url)
	if err != nil {
		// A failed archive attempt is not fatal to the build: the link
		// simply keeps pointing at the live URL and the archive store
		// remembers the failure for next time.
		sink.Warn("archive", "could not archive "+url+": "+err.Error())
		return
	}
	if localPath == "" {
		return
	}

	link.SetAttributeString("data-url-original", []byte(url))
	link.Destination = []byte(localPath)
}

func isExternalLink(url, siteURL string) bool {
	if url == "" || strings.HasPrefix(url, "#") || strings.HasPrefix(url, "!") {
		return false
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return false
	}
	if siteURL != "" && strings.HasPrefix(url, siteURL) {
		return false
	}
	return true
}
