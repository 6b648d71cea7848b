package scrape

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gwern/gwernbuild/internal/netutil"
)

// crossrefRateLimit honors Crossref's polite-crawling request.
const crossrefRateLimit = 1 * time.Second

var crossrefLimiter = netutil.NewLimiter(crossrefRateLimit)

type crossrefMessage struct {
	Message struct {
		Abstract string `json:"abstract"`
	} `json:"message"`
}

// fetchAbstractByDOI calls Crossref's works API for doi and returns the
// abstract, or "" if Crossref has none on file.
func fetchAbstractByDOI(ctx context.Context, client netutil.Doer, logger *slog.Logger, doi string) (string, error) {
	if doi == "" {
		return "", nil
	}
	if err := crossrefLimiter.Wait(ctx); err != nil {
		return "", temporary("rate limit wait: %v", err)
	}

	url := "https://api.crossref.org/works/" + doi
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", temporary("build request: %v", err)
	}
	netutil.SetUA(req)

	resp, err := client.Do(req)
	if err != nil {
		return "", temporary("fetch crossref: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", temporary("crossref returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", temporary("read crossref response: %v", err)
	}
	if strings.Contains(string(body), "Resource not found.") {
		return "", nil
	}

	var msg crossrefMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		logger.Warn("crossref: malformed response", "doi", doi, "err", err)
		return "", nil
	}
	return msg.Message.Abstract, nil
}
