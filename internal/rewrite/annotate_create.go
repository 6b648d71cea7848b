package rewrite

import (
	"context"
	"fmt"
	"sync"

	"github.com/yuin/goldmark/ast"

	"github.com/gwern/gwernbuild/internal/metadata"
	"github.com/gwern/gwernbuild/internal/scrape"
)

// ExtractLinks collects every link and image destination in node's subtree,
// in source order, deduplicated. The driver calls this against a document's
// freshly-parsed, not-yet-rewritten AST before any write to the metadata
// store happens, per the data flow: links are discovered, then annotations
// are ensured, then (and only then) the document is walked by the pure
// rewrite passes.
func ExtractLinks(node ast.Node) []string {
	seen := make(map[string]bool)
	var out []string
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var dest []byte
		switch v := n.(type) {
		case *ast.Link:
			dest = v.Destination
		case *ast.Image:
			dest = v.Destination
		default:
			return ast.WalkContinue, nil
		}
		url := string(dest)
		if url == "" || seen[url] {
			return ast.WalkContinue, nil
		}
		seen[url] = true
		out = append(out, url)
		return ast.WalkContinue, nil
	})
	return out
}

// EnsureAnnotations is the effectful pre-pass (§5: "for every link found in
// any document, dispatcher ensures an annotation exists"). It is explicitly
// not a parser.ASTTransformer: the rewrite passes that read the metadata
// store must see it as a read-only, already-complete snapshot, so all of
// this I/O happens before any document's AST transformers run. Fetches for
// distinct links run concurrently; writes to the auto file are serialized
// by the metadata.Store itself.
//
// A fatal scrape result (§7: a Wikipedia disambiguation page reached where
// a specific article was expected) aborts the build — it is returned, not
// swallowed, even though other links' fetches are still allowed to finish.
func EnsureAnnotations(ctx context.Context, cfg Config, links []string) error {
	if cfg.Metadata == nil || cfg.Dispatcher == nil {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fatalErr error
	)
	for _, raw := range links {
		path := metadata.Canonicalize(raw, cfg.SiteURL)
		if _, ok := cfg.Metadata.LookupPath(path); ok {
			continue
		}
		wg.Add(1)
		go func(raw string, path metadata.Path) {
			defer wg.Done()
			if err := ensureOne(ctx, cfg, raw, path); err != nil {
				mu.Lock()
				if fatalErr == nil {
					fatalErr = err
				}
				mu.Unlock()
			}
		}(raw, path)
	}
	wg.Wait()
	return fatalErr
}

// ensureOne dispatches one link's scrape and records the result. It returns
// a non-nil error only for a fatal scrape condition; permanent and temporary
// failures are handled per §7 and never propagated to the caller.
func ensureOne(ctx context.Context, cfg Config, raw string, path metadata.Path) error {
	item, err := cfg.Dispatcher.Dispatch(ctx, raw)
	if err != nil {
		if scrape.IsFatal(err) {
			return fmt.Errorf("%s: %w", raw, err)
		}
		if scrape.IsPermanent(err) {
			if werr := cfg.Metadata.AppendAuto(path, metadata.Item{}); werr != nil {
				cfg.Logger.Error("failed to record negative cache entry", "url", raw, "error", werr)
			}
		}
		// Temporary failures are deliberately left uncached: retried next build.
		return nil
	}
	if werr := cfg.Metadata.AppendAuto(path, item); werr != nil {
		cfg.Logger.Error("failed to append scraped annotation", "url", raw, "error", werr)
	}
	return nil
}
