// Package fragment implements the annotation fragment writer (§4.7): it
// renders each qualifying metadata.Item to a standalone HTML fragment
// consumed by the client-side popup script, and writes it atomically only
// when the content actually changed.
package fragment

import (
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gwern/gwernbuild/internal/astdoc"
	"github.com/gwern/gwernbuild/internal/atomicfile"
	"github.com/gwern/gwernbuild/internal/metadata"
	"github.com/gwern/gwernbuild/internal/rewrite"
)

// maxFilenameBytes is the hard cap on a fragment's on-disk filename; past
// this, some hosts' filesystems or the web server's path limits choke, so
// the name is truncated and the truncation logged.
const maxFilenameBytes = 274

// relativeAnchorRe matches a same-page anchor href inside an abstract's raw
// HTML, the only kind of link the abstract can contain that needs rewriting
// to be meaningful once the abstract is hoisted into its own fragment page.
var relativeAnchorRe = regexp.MustCompile(`href="#`)

// Writer renders metadata.Items to annotation fragment files.
type Writer struct {
	dir    string
	astSvc *astdoc.Service
	cfg    rewrite.Config
	logger *slog.Logger
}

// New constructs a Writer. dir is the output directory (conventionally
// "metadata/annotation"); astSvc must be built with the fragment
// transformers (rewrite.Pipeline.FragmentTransformers) so links nested
// inside an abstract receive the same has-annotation/archive decoration a
// normal document's links would, per §4.7 step 3.
func New(dir string, astSvc *astdoc.Service, cfg rewrite.Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, astSvc: astSvc, cfg: cfg, logger: logger.With("component", "fragment")}
}

// Write renders path/item to its fragment file and writes it only if the
// content differs from what's already on disk. Items whose abstract is
// shorter than the qualifying length (§4.1 "Item.HasLongAbstract") produce
// no fragment and are reported as unchanged.
func (w *Writer) Write(path metadata.Path, item metadata.Item) (bool, error) {
	if !item.HasLongAbstract(w.cfg.MinAnnotationLength) {
		return false, nil
	}

	rendered, err := w.render(path, item)
	if err != nil {
		return false, fmt.Errorf("render fragment for %s: %w", path, err)
	}

	name := fragmentFilename(path)
	if untruncated := url.QueryEscape(string(path)) + ".html"; untruncated != name {
		w.logger.Warn("fragment filename truncated", "path", path, "filename", name)
	}
	full := filepath.Join(w.dir, name)
	return atomicfile.WriteIfChanged(full, []byte(rendered))
}

// render builds the synthetic document described in §4.7 step 2 — a
// citation paragraph followed by a blockquote of the abstract — and runs it
// through the same parse/render path a normal document takes, so the
// fragment transformers registered on w.astSvc decorate any links nested in
// the abstract.
func (w *Writer) render(path metadata.Path, item metadata.Item) (string, error) {
	citation := citationMarkdown(string(path), item)
	abstract := rewrite.ApplyTextTypography(item.AbstractHTML)
	abstract = rewriteRelativeAnchors(abstract, string(path))

	var src strings.Builder
	src.WriteString(citation)
	src.WriteString("\n\n")
	src.WriteString(abstract)
	src.WriteString("\n")

	doc, err := w.astSvc.Parse(string(path), time.Time{}, []byte(src.String()), nil)
	if err != nil {
		return "", err
	}
	return w.astSvc.Render(doc)
}

// citationMarkdown builds the paragraph linking to the annotation's source,
// decorated with author/date spans and an optional DOI link, matching the
// shape the has-annotation pass expects to find and mark.
func citationMarkdown(path string, item metadata.Item) string {
	title := item.Title
	if title == "" {
		title = path
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s](%s)", escapeMarkdownLinkText(title), path)
	if item.Author != "" {
		fmt.Fprintf(&b, " <span class=\"author\">%s</span>", html.EscapeString(item.Author))
	}
	if item.Date != "" {
		fmt.Fprintf(&b, " <span class=\"date\">%s</span>", html.EscapeString(item.Date))
	}
	if item.DOI != "" {
		fmt.Fprintf(&b, " [DOI](https://doi.org/%s)", url.PathEscape(item.DOI))
	}
	return b.String()
}

func escapeMarkdownLinkText(s string) string {
	replacer := strings.NewReplacer("[", "\\[", "]", "\\]")
	return replacer.Replace(s)
}

// rewriteRelativeAnchors rewrites every same-page "#fragment" href inside
// abstract HTML to be absolute to the annotation's own page, since the
// abstract is being hoisted out of its source page into a standalone
// fragment file.
func rewriteRelativeAnchors(abstractHTML, path string) string {
	return relativeAnchorRe.ReplaceAllString(abstractHTML, `href="`+path+`#`)
}

// fragmentFilename computes the on-disk filename for path's fragment:
// URL-encoded, ".html"-suffixed, truncated to maxFilenameBytes. Truncation
// changes the name, which risks two distinct paths colliding on one file;
// this function does not log, and Write reports the truncation as a
// warning.
func fragmentFilename(path metadata.Path) string {
	encoded := url.QueryEscape(string(path)) + ".html"
	if len(encoded) <= maxFilenameBytes {
		return encoded
	}
	return encoded[:maxFilenameBytes-5] + ".html"
}
