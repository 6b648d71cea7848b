// Package archive implements the link archiver: it snapshots external URLs
// to a local HTML or PDF copy and maintains the URL→(state, localPath)
// database that makes a repeat archive call return the existing path
// without re-fetching.
package archive

import (
	"context"
	"crypto/sha1" //nolint:gosec // content-addressing hash, not security-sensitive
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gwern/gwernbuild/internal/atomicfile"
	"github.com/gwern/gwernbuild/internal/netutil"
)

// State is a URL's position in the archive's lifecycle.
type State int

const (
	// PendingNever means no attempt has ever been made.
	PendingNever State = iota
	// PendingRetry means a prior attempt failed temporarily and will be
	// retried.
	PendingRetry
	// Succeeded means a local snapshot exists and is current.
	Succeeded
	// PermanentFailure means this URL will never be retried.
	PermanentFailure
)

func (s State) String() string {
	switch s {
	case PendingNever:
		return "pending-never"
	case PendingRetry:
		return "pending-retry"
	case Succeeded:
		return "succeeded"
	case PermanentFailure:
		return "permanent-failure"
	default:
		return "unknown"
	}
}

// Entry is one row of the archive database.
type Entry struct {
	URL         string    `yaml:"url"`
	State       State     `yaml:"state"`
	LocalPath   string    `yaml:"localPath"`
	LastAttempt time.Time `yaml:"lastAttempt,omitempty"`
}

// Options configures archiver behavior.
type Options struct {
	// Root is the directory snapshots are stored under (doc/www/...).
	Root string
	// CheckMode, when true, never fetches: a miss returns an error instead
	// of archiving.
	CheckMode bool
	// NoPreview suppresses the Info log line that announces a new snapshot
	// as ready for review. No viewer is opened, whether it is set or not.
	NoPreview bool
	// MaxNewArchives caps the number of new (non-cached) archives performed
	// in a single build; zero means unlimited.
	MaxNewArchives int
	// SingleFileCommand is the external single-file-page archiver
	// executable.
	SingleFileCommand string
	// FetchTimeout bounds a single PDF download or HTML snapshot.
	FetchTimeout time.Duration
}

// errorPageMarkers are strings that indicate a "successful" snapshot
// actually captured a host's rate-limit or access-denied page.
var errorPageMarkers = []string{
	"403 Forbidden",
	"404 Not Found",
	"Download Limit Exceeded",
	"Access Denied",
	"Instance has been rate limited",
}

// Store is the archive database plus the single-flight in-flight-fetch
// guard: at most one fetch per URL is ever in progress at a time, and
// concurrent callers observe the same result.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry
	path    string
	opts    Options
	client  netutil.Doer
	logger  *slog.Logger
	group   singleflight.Group
	newCount int
}

// Load reads the archive database file (absent is equivalent to empty) and
// constructs a Store.
func Load(dbPath string, opts Options, client netutil.Doer, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	if opts.SingleFileCommand == "" {
		opts.SingleFileCommand = "single-file"
	}
	if opts.FetchTimeout == 0 {
		opts.FetchTimeout = 16 * time.Minute
	}

	entries, err := loadEntries(dbPath)
	if err != nil {
		return nil, err
	}

	return &Store{
		entries: entries,
		path:    dbPath,
		opts:    opts,
		client:  client,
		logger:  logger.With("component", "archive"),
	}, nil
}

// Archive returns the local snapshot path for rawURL, fetching it if
// necessary. A second concurrent call for the same URL waits for the first
// and observes its result, rather than fetching twice.
func (s *Store) Archive(ctx context.Context, rawURL string) (string, error) {
	key := withoutFragment(rawURL)

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.archiveOnce(ctx, rawURL)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Store) archiveOnce(ctx context.Context, rawURL string) (string, error) {
	target, domain, anchor, err := s.expectedPath(rawURL)
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", rawURL, err)
	}

	if existing, ok := s.lookup(rawURL); ok && existing.State == Succeeded {
		if _, statErr := os.Stat(filepath.Join(s.opts.Root, existing.LocalPath)); statErr == nil {
			return withAnchor(existing.LocalPath, anchor), nil
		}
	}
	if _, statErr := os.Stat(target); statErr == nil {
		rel := s.relativize(target)
		s.record(Entry{URL: rawURL, State: Succeeded, LocalPath: rel, LastAttempt: time.Now()})
		return withAnchor(rel, anchor), nil
	}

	if s.opts.CheckMode {
		return "", fmt.Errorf("archive %s: check mode, no local snapshot present", rawURL)
	}
	if s.opts.MaxNewArchives > 0 {
		s.mu.Lock()
		overCap := s.newCount >= s.opts.MaxNewArchives
		if !overCap {
			s.newCount++
		}
		s.mu.Unlock()
		if overCap {
			return "", fmt.Errorf("archive %s: per-build new-archive cap reached", rawURL)
		}
	}

	fetchURL := rewriteArxivHost(rawURL)

	status, contentType, body, err := s.probe(ctx, fetchURL)
	if err != nil {
		s.record(Entry{URL: rawURL, State: PendingRetry, LastAttempt: time.Now()})
		return "", fmt.Errorf("archive %s: probe failed: %w", rawURL, err)
	}
	if status == http.StatusForbidden || status == http.StatusNotFound {
		s.record(Entry{URL: rawURL, State: PermanentFailure, LastAttempt: time.Now()})
		return "", fmt.Errorf("archive %s: permanent failure: HTTP %d", rawURL, status)
	}

	var localPath string
	if isPDF(contentType, fetchURL) {
		localPath, err = s.archivePDF(ctx, fetchURL, target, body)
	} else {
		localPath, err = s.archiveSnapshot(ctx, fetchURL, domain, target)
	}
	if err != nil {
		s.record(Entry{URL: rawURL, State: PendingRetry, LastAttempt: time.Now()})
		return "", fmt.Errorf("archive %s: %w", rawURL, err)
	}

	rel := s.relativize(localPath)
	s.record(Entry{URL: rawURL, State: Succeeded, LocalPath: rel, LastAttempt: time.Now()})

	if !s.opts.NoPreview {
		s.logger.Info("archive: new snapshot ready for review", "url", rawURL, "path", rel)
	}

	return withAnchor(rel, anchor), nil
}

// expectedPath computes the storage-layout path doc/www/<domain>/<sha1>.<ext>
// for rawURL: the .pdf path when the URL's path ends in ".pdf", the .html
// path otherwise. A PDF found only by the content-type probe is stored at
// withExt(target, "pdf").
func (s *Store) expectedPath(rawURL string) (target, domain, anchor string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", fmt.Errorf("parse url: %w", err)
	}
	anchor = u.Fragment
	u.Fragment = ""
	withoutFrag := u.String()

	domain = strings.ToLower(u.Host)
	sum := sha1.Sum([]byte(withoutFrag)) //nolint:gosec // content-addressing, not security-sensitive
	hash := hex.EncodeToString(sum[:])

	ext := "html"
	if strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		ext = "pdf"
	}
	target = filepath.Join(s.opts.Root, domain, hash+"."+ext)
	return target, domain, anchor, nil
}

func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + ext
}

func (s *Store) relativize(target string) string {
	rel, err := filepath.Rel(s.opts.Root, target)
	if err != nil {
		return target
	}
	return rel
}

func withAnchor(localPath, anchor string) string {
	if anchor == "" {
		return localPath
	}
	return localPath + "#" + anchor
}

func withoutFragment(rawURL string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func rewriteArxivHost(rawURL string) string {
	return strings.Replace(rawURL, "://arxiv.org", "://export.arxiv.org", 1)
}

func isPDF(contentType, fetchURL string) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(fetchURL), ".pdf")
}

func (s *Store) lookup(rawURL string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[withoutFragment(rawURL)]
	return e, ok
}

func (s *Store) record(e Entry) {
	s.mu.Lock()
	s.entries[withoutFragment(e.URL)] = e
	s.mu.Unlock()
	if err := s.persist(); err != nil {
		s.logger.Warn("archive: failed to persist database", "err", err)
	}
}

func (s *Store) persist() error {
	s.mu.Lock()
	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	data, err := marshalEntries(entries)
	if err != nil {
		return err
	}
	return atomicfile.Write(s.path, data)
}
