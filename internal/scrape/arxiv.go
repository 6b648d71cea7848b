package scrape

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gwern/gwernbuild/internal/metadata"
	"github.com/gwern/gwernbuild/internal/netutil"
)

// arxivRateLimit honors arxiv's polite-crawling request: at most one call
// every ~15 seconds.
const arxivRateLimit = 15 * time.Second

var arxivIDRe = regexp.MustCompile(`arxiv\.org/(?:abs|pdf)/([^/?#]+?)(?:v\d+)?(?:\.pdf)?$`)

type arxivScraper struct {
	client  netutil.Doer
	logger  *slog.Logger
	limiter *netutil.Limiter
}

func newArxivScraper(client netutil.Doer, logger *slog.Logger) *arxivScraper {
	return &arxivScraper{
		client:  client,
		logger:  logger.With("scraper", "arxiv"),
		limiter: netutil.NewLimiter(arxivRateLimit),
	}
}

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title     string         `xml:"title"`
	Summary   string         `xml:"summary"`
	Published string         `xml:"published"`
	Authors   []arxivAuthor  `xml:"author"`
	DOI       string         `xml:"doi"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// Scrape fetches the arXiv Atom entry for url's identifier and converts it
// into an Item. The abstract is LaTeX-flavored and is normalized (%-escapes,
// paragraph breaks) before the HTML cleaner sees it.
func (s *arxivScraper) Scrape(ctx context.Context, url string) (metadata.Item, error) {
	id := arxivIDRe.FindStringSubmatch(url)
	if id == nil {
		return metadata.Item{}, permanent("could not extract arxiv id from %s", url)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return metadata.Item{}, temporary("rate limit wait: %v", err)
	}

	queryURL := fmt.Sprintf("https://export.arxiv.org/api/query?id_list=%s", id[1])
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return metadata.Item{}, temporary("build request: %v", err)
	}
	netutil.SetUA(req)

	resp, err := netutil.DoWithRetry(ctx, s.client, req, 3)
	if err != nil {
		return metadata.Item{}, temporary("fetch arxiv api: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return metadata.Item{}, permanent("arxiv id not found: %s", id[1])
	}
	if resp.StatusCode != http.StatusOK {
		return metadata.Item{}, temporary("arxiv api returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return metadata.Item{}, temporary("read arxiv response: %v", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return metadata.Item{}, permanent("malformed arxiv atom feed: %v", err)
	}
	if len(feed.Entries) == 0 {
		return metadata.Item{}, permanent("arxiv feed has no entries for %s", id[1])
	}
	entry := feed.Entries[0]

	names := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		names = append(names, a.Name)
	}
	author := NormalizeAuthors(strings.Join(names, ", "))

	date := strings.TrimSpace(entry.Published)
	if len(date) >= 10 {
		date = date[:10]
	}

	return metadata.Item{
		Title:        strings.TrimSpace(collapseWhitespace(entry.Title)),
		Author:       author,
		Date:         date,
		DOI:          strings.TrimSpace(entry.DOI),
		AbstractHTML: normalizeArxivSummary(entry.Summary),
	}, nil
}

var percentEscapeRe = regexp.MustCompile(`%([0-9A-Fa-f]{2})`)

// normalizeArxivSummary converts an arxiv abstract's LaTeX-flavored summary
// into paragraph-broken HTML: %-escapes are decoded, and "\n  " sequences
// (arxiv's paragraph separator) become paragraph breaks.
func normalizeArxivSummary(summary string) string {
	s := percentEscapeRe.ReplaceAllStringFunc(summary, func(m string) string {
		var code int
		fmt.Sscanf(m[1:], "%02X", &code)
		return string(rune(code))
	})
	s = strings.TrimSpace(s)
	paragraphs := strings.Split(s, "\n  ")
	for i, p := range paragraphs {
		paragraphs[i] = "<p>" + strings.TrimSpace(collapseWhitespace(p)) + "</p>"
	}
	return strings.Join(paragraphs, "\n")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
