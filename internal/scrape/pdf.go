package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/gwern/gwernbuild/internal/metadata"
	"github.com/gwern/gwernbuild/internal/netutil"
)

type pdfScraper struct {
	command string
	client  netutil.Doer
	logger  *slog.Logger
}

func newPDFScraper(command string, client netutil.Doer, logger *slog.Logger) *pdfScraper {
	return &pdfScraper{command: command, client: client, logger: logger.With("scraper", "pdf")}
}

// creatorSoftwareNames are tools that sometimes populate the Author field of
// a PDF's metadata instead of (or alongside) Creator; when Author looks like
// one of these, Creator is the more trustworthy field.
var creatorSoftwareNames = []string{
	"Adobe", "Acrobat", "LaTeX", "pdfTeX", "XeTeX", "LuaTeX",
	"Microsoft", "Word", "OCR", "ABBYY", "Tesseract", "Ghostscript",
}

type exifEntry struct {
	Title   string `json:"Title"`
	Author  string `json:"Author"`
	Creator string `json:"Creator"`
	Date    string `json:"CreateDate"`
	DOI     string `json:"DOI"`
}

// Scrape runs the external metadata extractor (exiftool -json) against a
// local PDF, applies the Creator/Author heuristic, and attempts a
// DOI-to-abstract lookup via Crossref.
func (s *pdfScraper) Scrape(ctx context.Context, localPath string) (metadata.Item, error) {
	if _, err := exec.LookPath(s.command); err != nil {
		return metadata.Item{}, temporary("pdf metadata command %q not found in PATH: %v", s.command, err)
	}

	cmd := exec.CommandContext(ctx, s.command, "-json", "-Title", "-Author", "-Creator", "-CreateDate", "-DOI", localPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return metadata.Item{}, temporary("pdf metadata extraction failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	var entries []exifEntry
	dec := json.NewDecoder(&stdout)
	if err := dec.Decode(&entries); err != nil {
		return metadata.Item{}, permanent("malformed metadata JSON: %v", err)
	}
	if len(entries) == 0 {
		return metadata.Item{}, permanent("no metadata entries for %s", localPath)
	}
	entry := entries[0]

	author := entry.Author
	if len(entry.Creator) > len(author) || authorLooksLikeSoftware(author) {
		if entry.Creator != "" {
			author = entry.Creator
			s.logger.Warn("pdf: preferred Creator over Author", "path", localPath)
		}
	}

	item := metadata.Item{
		Title:  strings.TrimSpace(entry.Title),
		Author: NormalizeAuthors(strings.TrimSpace(author)),
		Date:   normalizeExifDate(entry.Date),
		DOI:    strings.TrimSpace(entry.DOI),
	}

	if item.DOI != "" {
		abstract, err := fetchAbstractByDOI(ctx, s.client, s.logger, item.DOI)
		if err != nil && !IsPermanent(err) {
			return metadata.Item{}, err
		}
		item.AbstractHTML = abstract
	}

	return item, nil
}

func authorLooksLikeSoftware(author string) bool {
	for _, name := range creatorSoftwareNames {
		if strings.Contains(author, name) {
			return true
		}
	}
	return false
}

// normalizeExifDate converts exiftool's "YYYY:MM:DD HH:MM:SS" form into ISO
// "YYYY-MM-DD", leaving already-ISO or empty input untouched.
func normalizeExifDate(d string) string {
	d = strings.TrimSpace(d)
	if len(d) < 10 {
		return d
	}
	if d[4] == ':' && d[7] == ':' {
		return fmt.Sprintf("%s-%s-%s", d[0:4], d[5:7], d[8:10])
	}
	return d[:10]
}
