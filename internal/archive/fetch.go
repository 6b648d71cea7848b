package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gwern/gwernbuild/internal/netutil"
)

// probe issues a full GET (never HEAD: some hosts lie on HEAD) and returns
// the status code, content type, and body so the caller can decide between
// the PDF and HTML-snapshot code paths without a second round trip.
func (s *Store) probe(ctx context.Context, fetchURL string) (status int, contentType string, body []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return 0, "", nil, fmt.Errorf("build request: %w", err)
	}
	netutil.SetUA(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 128<<20))
	if err != nil {
		return resp.StatusCode, resp.Header.Get("Content-Type"), nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), data, nil
}

// archivePDF verifies body looks like a PDF (by magic bytes, since content
// type headers lie) and moves it into place at target.
func (s *Store) archivePDF(ctx context.Context, fetchURL, target string, body []byte) (string, error) {
	_ = ctx
	if len(body) < 5 || !bytes.HasPrefix(body, []byte("%PDF-")) {
		return "", fmt.Errorf("downloaded content from %s does not look like a PDF", fetchURL)
	}

	pdfTarget := withExt(target, "pdf")
	if err := os.MkdirAll(filepath.Dir(pdfTarget), 0o755); err != nil { //nolint:gosec // standard directory permissions
		return "", fmt.Errorf("ensure directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(pdfTarget), ".gwernbuild-pdf-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close pdf: %w", err)
	}
	if err := os.Rename(tmpName, pdfTarget); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("move pdf into place: %w", err)
	}

	// Post-compression (OS-level PDF shrinking) is an external collaborator
	// step and out of scope here; the snapshot is stored uncompressed.
	return pdfTarget, nil
}

// substackMarker fingerprints pages served by Substack, whose snapshots
// break unless single-file removes their scripts; detecting it lets
// archiveSnapshot apply script removal to those pages only.
const substackMarker = "substackcdn.com"

// archiveSnapshot shells out to the external single-file-page archiver,
// scans the result for known error-page text, and deletes+fails on a match
// rather than caching a captured rate-limit or access-denied page as a
// snapshot.
func (s *Store) archiveSnapshot(ctx context.Context, fetchURL, domain, target string) (string, error) {
	if _, err := exec.LookPath(s.opts.SingleFileCommand); err != nil {
		return "", fmt.Errorf("single-file archiver %q not found in PATH: %w", s.opts.SingleFileCommand, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil { //nolint:gosec // standard directory permissions
		return "", fmt.Errorf("ensure directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	args := []string{
		fetchURL,
		target,
		"--compress-css",
		"--browser-wait-until", "networkidle0",
		"--browser-load-max-time", "60000",
	}

	probeBody, _, _, probeErr := s.probe(ctx, fetchURL)
	if probeErr == nil && bytes.Contains(probeBody, []byte(substackMarker)) {
		args = append(args, "--remove-scripts")
	}

	cmd := exec.CommandContext(ctx, s.opts.SingleFileCommand, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("single-file archiver failed for %s: %w: %s", fetchURL, err, strings.TrimSpace(stderr.String()))
	}

	snapshot, err := os.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}
	for _, marker := range errorPageMarkers {
		if bytes.Contains(snapshot, []byte(marker)) {
			_ = os.Remove(target)
			return "", fmt.Errorf("snapshot of %s contains error-page marker %q", fetchURL, marker)
		}
	}

	return target, nil
}
