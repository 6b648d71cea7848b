package scrape

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gwern/gwernbuild/internal/metadata"
	"github.com/gwern/gwernbuild/internal/netutil"
)

type biorxivScraper struct {
	client netutil.Doer
	logger *slog.Logger
}

func newBiorxivScraper(client netutil.Doer, logger *slog.Logger) *biorxivScraper {
	return &biorxivScraper{client: client, logger: logger.With("scraper", "biorxiv")}
}

// Scrape fetches the bioRxiv/medRxiv landing page and reads its Highwire
// Press <meta> tags (the same convention Google Scholar indexes against).
func (s *biorxivScraper) Scrape(ctx context.Context, url string) (metadata.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return metadata.Item{}, temporary("build request: %v", err)
	}
	netutil.SetUA(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return metadata.Item{}, temporary("fetch: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
		return metadata.Item{}, permanent("biorxiv returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return metadata.Item{}, temporary("biorxiv returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return metadata.Item{}, permanent("parse biorxiv html: %v", err)
	}

	title := metaContent(doc, "DC.Title")
	if title == "" {
		return metadata.Item{}, permanent("biorxiv page has no DC.Title")
	}

	var authors []string
	doc.Find(`meta[name="DC.Contributor"]`).Each(func(_ int, sel *goquery.Selection) {
		if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
			authors = append(authors, strings.TrimSpace(v))
		}
	})

	date := metaContent(doc, "DC.Date")
	doi := metaContent(doc, "citation_doi")
	abstract := metaContent(doc, "citation_abstract")

	return metadata.Item{
		Title:        title,
		Author:       NormalizeAuthors(strings.Join(authors, ", ")),
		Date:         date,
		DOI:          doi,
		AbstractHTML: abstract,
	}, nil
}

func metaContent(doc *goquery.Document, name string) string {
	sel := doc.Find(`meta[name="` + name + `"]`).First()
	v, _ := sel.Attr("content")
	return strings.TrimSpace(v)
}
