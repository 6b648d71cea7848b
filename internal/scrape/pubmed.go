package scrape

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/gwern/gwernbuild/internal/metadata"
)

type pubmedScraper struct {
	command string
	logger  *slog.Logger
}

func newPubmedScraper(command string, logger *slog.Logger) *pubmedScraper {
	return &pubmedScraper{command: command, logger: logger.With("scraper", "pubmed")}
}

// Scrape shells out to the external pubmed helper, which emits exactly five
// lines on success: title, author, date, doi, abstract. Fewer than five
// lines is a permanent failure.
func (s *pubmedScraper) Scrape(ctx context.Context, url string) (metadata.Item, error) {
	if _, err := exec.LookPath(s.command); err != nil {
		return metadata.Item{}, temporary("pubmed helper %q not found in PATH: %v", s.command, err)
	}

	cmd := exec.CommandContext(ctx, s.command, url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return metadata.Item{}, temporary("pubmed helper failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	lines, err := readLines(&stdout)
	if err != nil {
		return metadata.Item{}, temporary("read pubmed helper output: %v", err)
	}
	if len(lines) < 5 {
		return metadata.Item{}, permanent("pubmed helper emitted %d lines, expected 5", len(lines))
	}

	return metadata.Item{
		Title:        lines[0],
		Author:       NormalizeAuthors(lines[1]),
		Date:         lines[2],
		DOI:          lines[3],
		AbstractHTML: lines[4],
	}, nil
}

func readLines(r *bytes.Buffer) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return lines, nil
}
