// Package scrape implements the scraper dispatcher: URL-based routing to a
// per-source fetcher, and the permanent/temporary failure classification the
// metadata store relies on to decide whether a failure is cached.
package scrape

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gwern/gwernbuild/internal/htmlclean"
	"github.com/gwern/gwernbuild/internal/metadata"
	"github.com/gwern/gwernbuild/internal/netutil"
)

// Config controls dispatcher behavior that the source left ambiguous or
// configuration-driven.
type Config struct {
	// SiteURL is this site's own absolute URL prefix, used to recognize
	// self-links that never need scraping.
	SiteURL string
	// WikipediaClientSide, when true (the default), routes Wikipedia
	// article URLs to the in-browser popup script instead of scraping them
	// server-side: rule 1 applies and the dispatcher returns a temporary
	// failure without caching. When false, the Wikipedia REST scraper runs
	// server-side instead. This resolves the open question about where
	// Wikipedia classification happens.
	WikipediaClientSide bool
	// PDFMetadataCommand is the external metadata-extraction executable
	// (exiftool) used by the local PDF scraper; defaults to "exiftool".
	PDFMetadataCommand string
	// PubmedHelperCommand is the external helper invoked for NCBI
	// PMC/PLOS URLs; defaults to "pubmed-helper".
	PubmedHelperCommand string
}

// Dispatcher routes a canonical Path to the scraper responsible for it.
type Dispatcher struct {
	cfg       Config
	client    netutil.Doer
	logger    *slog.Logger
	arxiv     *arxivScraper
	biorxiv   *biorxivScraper
	pubmed    *pubmedScraper
	pdf       *pdfScraper
	wikipedia *wikipediaScraper
}

// New constructs a Dispatcher. client is typically *http.Client; passing a
// fake satisfies tests without touching the network.
func New(cfg Config, client netutil.Doer, logger *slog.Logger) *Dispatcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scrape")
	if cfg.PDFMetadataCommand == "" {
		cfg.PDFMetadataCommand = "exiftool"
	}
	if cfg.PubmedHelperCommand == "" {
		cfg.PubmedHelperCommand = "pubmed-helper"
	}

	return &Dispatcher{
		cfg:       cfg,
		client:    client,
		logger:    logger,
		arxiv:     newArxivScraper(client, logger),
		biorxiv:   newBiorxivScraper(client, logger),
		pubmed:    newPubmedScraper(cfg.PubmedHelperCommand, logger),
		pdf:       newPDFScraper(cfg.PDFMetadataCommand, client, logger),
		wikipedia: newWikipediaScraper(client, logger),
	}
}

// Dispatch routes url to the appropriate scraper and returns its Item, a
// *scrape.Error classified Permanent (cache a negative entry) or Temporary
// (do not cache), per the routing rules in the design.
func (d *Dispatcher) Dispatch(ctx context.Context, url string) (metadata.Item, error) {
	switch {
	case url == "":
		return metadata.Item{}, permanent("empty URL")

	case isWikipediaArticle(url):
		if d.cfg.WikipediaClientSide {
			return metadata.Item{}, temporary("wikipedia article handled client-side: %s", url)
		}
		item, err := d.wikipedia.Scrape(ctx, url)
		return d.cleaned(item, err)

	case isArxiv(url):
		item, err := d.arxiv.Scrape(ctx, url)
		return d.cleaned(item, err)

	case isBiorxiv(url):
		item, err := d.biorxiv.Scrape(ctx, url)
		return d.cleaned(item, err)

	case isPubmedDomain(url):
		item, err := d.pubmed.Scrape(ctx, url)
		return d.cleaned(item, err)

	case strings.HasSuffix(strings.ToLower(url), ".pdf") && metadata.Path(url).IsLocal():
		item, err := d.pdf.Scrape(ctx, url)
		return d.cleaned(item, err)

	case metadata.Path(url).IsLocal(), isSelfURL(url, d.cfg.SiteURL):
		return metadata.Item{}, permanent("self-page handles itself at read time: %s", url)

	default:
		return metadata.Item{}, permanent("no scraper routes this URL: %s", url)
	}
}

// cleaned runs the HTML cleaner over a successful scrape's abstract before
// returning it, matching "all scrapers pass output through the HTML cleaner".
func (d *Dispatcher) cleaned(item metadata.Item, err error) (metadata.Item, error) {
	if err != nil {
		return metadata.Item{}, err
	}
	item.AbstractHTML = htmlclean.Clean(item.AbstractHTML)
	return item, nil
}

func isWikipediaArticle(url string) bool {
	return strings.Contains(url, "wikipedia.org/wiki/")
}

func isArxiv(url string) bool {
	return strings.Contains(url, "arxiv.org/abs/") || strings.Contains(url, "arxiv.org/pdf/")
}

func isBiorxiv(url string) bool {
	return strings.Contains(url, "biorxiv.org/content/") || strings.Contains(url, "medrxiv.org/content/")
}

var plosDomains = []string{
	"journals.plos.org",
	"journals.plosone.org",
}

func isPubmedDomain(url string) bool {
	if strings.Contains(url, "ncbi.nlm.nih.gov/pmc/") {
		return true
	}
	for _, d := range plosDomains {
		if strings.Contains(url, d) {
			return true
		}
	}
	return false
}

func isSelfURL(url, siteURL string) bool {
	return siteURL != "" && strings.HasPrefix(url, siteURL)
}
