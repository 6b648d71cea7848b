// Package rewrite implements the thirteen ordered AST rewrite passes and the
// Pipeline that wires them into a goldmark parser at the priorities that
// encode the pass order from the design.
package rewrite

import (
	"context"
	"log/slog"

	"github.com/gwern/gwernbuild/internal/archive"
	"github.com/gwern/gwernbuild/internal/identify"
	"github.com/gwern/gwernbuild/internal/imgcolor"
	"github.com/gwern/gwernbuild/internal/metadata"
	"github.com/gwern/gwernbuild/internal/netutil"
	"github.com/gwern/gwernbuild/internal/scrape"
)

// SelfAuthor is the site author's name. Nothing in this package reads it;
// the identifier generator keeps its own copy of the name.
const SelfAuthor = "Gwern Branwen"

// Config is the build-wide state every pass needs: the metadata store and
// archive store (both safe for concurrent read during the rewrite phase,
// per the concurrency model), the scraper dispatcher, and tunables for the
// open questions the design flagged for configuration.
//
//nolint:govet // field order grouped by concern, not memory layout
type Config struct {
	Metadata   *metadata.Store
	Archive    *archive.Store
	Dispatcher *scrape.Dispatcher
	HTTPClient netutil.Doer
	Logger     *slog.Logger

	// Ctx bounds the network calls the archive pass makes while walking a
	// document. The rewrite passes otherwise run as pure AST transforms;
	// archiving is the one pass the design keeps inline with the walk
	// rather than hoisting into the pre-pass, since the archive store
	// already serializes and dedupes its own fetches per URL.
	Ctx context.Context

	SiteURL string

	// SuffixMode resolves the generator's "-1" open question.
	SuffixMode identify.SuffixMode

	// AutoLinkPhrases maps a recognized phrase (Wikipedia title, recurring
	// citation) to the URL the auto-linker should point it at.
	AutoLinkPhrases map[string]string

	// InterwikiBase maps an interwiki prefix (e.g. "W" for "!W") to the URL
	// template its shorthand expands into; %s is replaced with the link
	// text, URL-escaped.
	InterwikiBase map[string]string

	// MinAnnotationLength is the abstract-length threshold (runes, tags
	// stripped) below which has-annotation marking and fragment writing are
	// skipped; defaults to 180 per the design.
	MinAnnotationLength int

	// LinkLiveDomains are domains known to permit iframe embedding for
	// richer link-live popups.
	LinkLiveDomains map[string]bool

	// LinkIconRules maps a domain or extension to the sprite class that
	// should mark it.
	LinkIconRules []LinkIconRule

	// BacklinksIndex and SimilarLinksIndex mark the local Paths whose links
	// get the backlinks / similar-links classes; they are read-only here.
	// The driver fills BacklinksIndex before any document's rewrite passes
	// run, with one key per corpus document ("/" plus its source path
	// relative to the root, extension included); it does not compute which
	// pages link to which, and it leaves SimilarLinksIndex nil.
	BacklinksIndex    map[string]bool
	SimilarLinksIndex map[string]bool

	// TagsIndex maps a local Path to its own tag list, for propagating tag
	// classes onto links pointing at other pages in the corpus.
	TagsIndex map[string][]string

	// InvertCache memoizes the image-invertibility pass's decisions across
	// builds. Nil disables memoization (every remote image is re-fetched).
	InvertCache *imgcolor.Cache

	// SourceRoot resolves a local image path to a file for the
	// invertibility check; empty disables local-file lookups.
	SourceRoot string
}

// LinkIconRule maps a URL predicate to the icon class to apply.
type LinkIconRule struct {
	Suffix string // e.g. ".pdf", or a bare domain substring
	Class  string
}

// WithDefaults fills unset tunables with the design's documented defaults.
func (c Config) WithDefaults() Config {
	if c.Ctx == nil {
		c.Ctx = context.Background()
	}
	if c.MinAnnotationLength == 0 {
		c.MinAnnotationLength = metadata.DefaultMinAnnotationLength
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.LinkLiveDomains == nil {
		c.LinkLiveDomains = map[string]bool{
			"youtube.com":   true,
			"vimeo.com":     true,
			"wikipedia.org": true,
		}
	}
	if c.InterwikiBase == nil {
		c.InterwikiBase = map[string]string{
			"W":  "https://en.wikipedia.org/wiki/%s",
			"WP": "https://en.wikipedia.org/wiki/%s",
		}
	}
	if c.LinkIconRules == nil {
		c.LinkIconRules = []LinkIconRule{
			{Suffix: ".pdf", Class: "link-icon-pdf"},
			{Suffix: "github.com", Class: "link-icon-github"},
			{Suffix: "wikipedia.org", Class: "link-icon-wikipedia"},
			{Suffix: "arxiv.org", Class: "link-icon-arxiv"},
		}
	}
	return c
}
