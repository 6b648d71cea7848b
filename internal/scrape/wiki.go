package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gwern/gwernbuild/internal/imgcolor"
	"github.com/gwern/gwernbuild/internal/metadata"
	"github.com/gwern/gwernbuild/internal/netutil"
)

type wikipediaScraper struct {
	client netutil.Doer
	logger *slog.Logger
}

func newWikipediaScraper(client netutil.Doer, logger *slog.Logger) *wikipediaScraper {
	return &wikipediaScraper{client: client, logger: logger.With("scraper", "wikipedia")}
}

type wikiSummary struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	ExtractHTML string `json:"extract_html"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
}

// Scrape fetches the Wikipedia REST summary endpoint. Only used when the
// dispatcher is configured for server-side Wikipedia scraping; a
// disambiguation page is a fatal error, since a human must link to a
// specific article.
func (s *wikipediaScraper) Scrape(ctx context.Context, url string) (metadata.Item, error) {
	title, err := wikipediaTitleFromURL(url)
	if err != nil {
		return metadata.Item{}, permanent("%v", err)
	}

	apiURL := fmt.Sprintf("https://en.wikipedia.org/api/rest_v1/page/summary/%s", title)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return metadata.Item{}, temporary("build request: %v", err)
	}
	netutil.SetUA(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return metadata.Item{}, temporary("fetch wikipedia summary: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return metadata.Item{}, permanent("wikipedia article not found: %s", title)
	}
	if resp.StatusCode != http.StatusOK {
		return metadata.Item{}, temporary("wikipedia summary returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return metadata.Item{}, temporary("read wikipedia response: %v", err)
	}

	var summary wikiSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return metadata.Item{}, permanent("malformed wikipedia summary: %v", err)
	}
	if summary.Type == "disambiguation" {
		// Reaching a disambiguation page means the source document must
		// link to a specific article instead; this is a corpus defect, not
		// a transient condition.
		return metadata.Item{}, fmt.Errorf("%w: wikipedia disambiguation page %q: %s", errFatal, title, url)
	}

	abstract := summary.ExtractHTML
	if summary.Thumbnail != nil && summary.Thumbnail.Source != "" {
		invertible, err := imgcolor.FetchAndCheck(ctx, s.client, summary.Thumbnail.Source)
		if err != nil {
			s.logger.Warn("wikipedia: thumbnail color check failed", "url", summary.Thumbnail.Source, "err", err)
		}
		class := ""
		if invertible {
			class = " invertible-auto"
		}
		abstract = fmt.Sprintf(`<figure><img src=%q class="wikipedia-thumbnail%s"></figure>%s`,
			summary.Thumbnail.Source, class, abstract)
	}

	return metadata.Item{
		Title:        summary.Title,
		AbstractHTML: abstract,
	}, nil
}

func wikipediaTitleFromURL(url string) (string, error) {
	const marker = "wikipedia.org/wiki/"
	idx := strings.Index(url, marker)
	if idx < 0 {
		return "", fmt.Errorf("not a wikipedia article URL: %s", url)
	}
	return url[idx+len(marker):], nil
}
