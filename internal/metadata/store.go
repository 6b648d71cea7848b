// Package metadata implements the annotation store: the curated and auto
// YAML backings, their invariants, and the in-memory Path→Item map built
// from their left-biased union.
package metadata

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/gwern/gwernbuild/internal/atomicfile"
)

// Store is the in-memory Path→Item map, backed by a curated (read-only
// during a build) and an auto (single-writer, append-only) YAML file.
type Store struct {
	mu          sync.RWMutex
	items       map[Path]Item
	curatedPath string
	autoPath    string
	siteURL     string
	writeMu     sync.Mutex
	logger      *slog.Logger
}

// Load reads curatedPath (required) and autoPath (optional; treated as empty
// if absent), checks curated invariants, compacts the auto log on disk, and
// returns a Store holding their left-biased union (curated wins ties).
//
// Any invariant breach or malformed YAML in curatedPath is fatal, matching
// the source's "garbage in the corpus must be fixed by the author" design.
func Load(curatedPath, autoPath, siteURL string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "metadata")

	curatedRecords, err := loadRecords(curatedPath, true)
	if err != nil {
		return nil, err
	}
	if err := checkInvariants(curatedRecords); err != nil {
		return nil, err
	}

	autoRecords, err := loadRecords(autoPath, false)
	if err != nil {
		return nil, err
	}
	compacted := compact(autoRecords)
	if autoPath != "" && len(compacted) != len(autoRecords) {
		if err := rewriteAuto(autoPath, compacted); err != nil {
			return nil, fmt.Errorf("compact auto metadata: %w", err)
		}
		logger.Info("compacted auto metadata", "before", len(autoRecords), "after", len(compacted))
	}

	items := make(map[Path]Item, len(curatedRecords)+len(compacted))
	for _, r := range compacted {
		items[r.path(siteURL)] = r.item()
	}
	for _, r := range curatedRecords {
		items[r.path(siteURL)] = r.item()
	}

	return &Store{
		items:       items,
		curatedPath: curatedPath,
		autoPath:    autoPath,
		siteURL:     siteURL,
		logger:      logger,
	}, nil
}

func loadRecords(path string, required bool) ([]record, error) {
	if path == "" {
		if required {
			return nil, fatalf("", "curated metadata path is required")
		}
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if required {
				return nil, fatalf(path, "curated metadata file is required and does not exist")
			}
			return nil, nil
		}
		return nil, fmt.Errorf("read metadata file %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var records []record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fatalf(path, "malformed YAML: %v", err)
	}
	return records, nil
}

// compact dedupes an append-only log by URL, last-write-wins, preserving the
// order of first appearance so diffs stay stable.
func compact(records []record) []record {
	seen := make(map[string]int, len(records))
	out := make([]record, 0, len(records))
	for _, r := range records {
		if idx, ok := seen[r.URL]; ok {
			out[idx] = r
			continue
		}
		seen[r.URL] = len(out)
		out = append(out, r)
	}
	return out
}

func rewriteAuto(path string, records []record) error {
	data, err := yaml.Marshal(records)
	if err != nil {
		return err
	}
	return atomicfile.Write(path, data)
}

// checkInvariants enforces the curated-file invariants from the data model:
// URL/title/abstract uniqueness, URL shape, and non-empty mandatory fields.
func checkInvariants(records []record) error {
	urls := make(map[string]bool, len(records))
	titles := make(map[string]bool, len(records))
	abstracts := make(map[string]bool, len(records))

	for _, r := range records {
		if r.URL == "" || r.Title == "" || r.Author == "" || r.Abstract == "" {
			return fatalf(r.URL, "mandatory field empty (url/title/author/abstract)")
		}
		if strings.ContainsAny(r.URL, " \t\n") {
			return fatalf(r.URL, "URL contains whitespace")
		}
		if !validURLShape(r.URL) {
			return fatalf(r.URL, "URL must start with 'h' (http/https), '/' (local), or '?' (in-place definition)")
		}
		if urls[r.URL] {
			return fatalf(r.URL, "duplicate URL")
		}
		urls[r.URL] = true
		if titles[r.Title] {
			return fatalf(r.Title, "duplicate title")
		}
		titles[r.Title] = true
		if abstracts[r.Abstract] {
			return fatalf(r.URL, "duplicate abstract")
		}
		abstracts[r.Abstract] = true
	}
	return nil
}

func validURLShape(url string) bool {
	if url == "" {
		return false
	}
	switch url[0] {
	case 'h', '/', '?':
		return true
	default:
		return false
	}
}

// Lookup canonicalizes raw and returns the matching Item, if any.
func (s *Store) Lookup(raw string) (Item, bool) {
	p := Canonicalize(raw, s.siteURL).WithoutFragment()
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[p]
	return it, ok
}

// LookupPath is Lookup for an already-canonical Path.
func (s *Store) LookupPath(p Path) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[p.WithoutFragment()]
	return it, ok
}

// AppendAuto atomically appends a record to the auto YAML file and refreshes
// the in-memory map. Callers must not call AppendAuto concurrently for
// differing paths without relying on the Store's own serialization: it holds
// a single writer lock internally, matching the single-writer discipline in
// the concurrency model.
func (s *Store) AppendAuto(p Path, it Item) error {
	if s.autoPath == "" {
		return fatalf(string(p), "no auto metadata path configured")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec := itemRecord(p, it)
	line, err := yaml.Marshal([]record{rec})
	if err != nil {
		return fmt.Errorf("marshal auto record: %w", err)
	}
	if err := atomicfile.AppendLine(s.autoPath, line); err != nil {
		return fmt.Errorf("append auto metadata: %w", err)
	}

	s.mu.Lock()
	s.items[p.WithoutFragment()] = it
	s.mu.Unlock()
	return nil
}

// InjectFunc rewrites an abstract's HTML given a lookup function, as used by
// the annotation-injection rewrite pass.
type InjectFunc func(html string, lookup func(string) (Item, bool)) (string, error)

// RecurseInline runs inject over every Item's abstract using the Store
// itself as the lookup source, producing one level of inlining: annotations
// that link to other annotations gain a nested rendering. This is
// deliberately not iterated to a fixed point; the source popups load further
// levels lazily at read time, so a single pass is sufficient.
func (s *Store) RecurseInline(inject InjectFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for p, it := range s.items {
		if it.AbstractHTML == "" {
			continue
		}
		rewritten, err := inject(it.AbstractHTML, s.lookupLocked)
		if err != nil {
			return fmt.Errorf("recurse inline %s: %w", p, err)
		}
		it.AbstractHTML = rewritten
		s.items[p] = it
	}
	return nil
}

func (s *Store) lookupLocked(raw string) (Item, bool) {
	p := Canonicalize(raw, s.siteURL).WithoutFragment()
	it, ok := s.items[p]
	return it, ok
}

// Snapshot returns a read-only copy of the current Path→Item map, for
// callers (such as the rewrite pipeline) that need a consistent view across
// an entire document walk.
func (s *Store) Snapshot() map[Path]Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Path]Item, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out
}
