package archive

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
)

// fakeDoer returns a canned response on every call and counts how many
// times it was invoked, standing in for the real network the way the
// corpus's scraper tests fake netutil.Doer.
type fakeDoer struct {
	calls      int32
	statusCode int
	body       []byte
	header     http.Header
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	atomic.AddInt32(&f.calls, 1)
	h := f.header
	if h == nil {
		h = http.Header{}
	}
	return &http.Response{
		StatusCode: f.statusCode,
		Header:     h,
		Body:       io.NopCloser(bytes.NewReader(f.body)),
	}, nil
}

func TestArchive_FetchOncePerURL(t *testing.T) {
	dir := t.TempDir()
	doer := &fakeDoer{statusCode: http.StatusOK, body: []byte("%PDF-1.4 fake pdf body")}

	store, err := Load("", Options{Root: dir}, doer, slog.Default())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	path1, err := store.Archive(context.Background(), "https://example.com/paper.pdf")
	if err != nil {
		t.Fatalf("first Archive() error = %v", err)
	}
	if path1 == "" {
		t.Fatal("expected a non-empty local path")
	}

	path2, err := store.Archive(context.Background(), "https://example.com/paper.pdf")
	if err != nil {
		t.Fatalf("second Archive() error = %v", err)
	}
	if path2 != path1 {
		t.Errorf("second Archive() returned a different path: %q vs %q", path2, path1)
	}
	if calls := atomic.LoadInt32(&doer.calls); calls != 1 {
		t.Errorf("expected exactly one fetch across two Archive() calls, got %d", calls)
	}
}

func TestArchive_CheckModeFailsOnMiss(t *testing.T) {
	dir := t.TempDir()
	doer := &fakeDoer{statusCode: http.StatusOK, body: []byte("%PDF-1.4 fake pdf body")}

	store, err := Load("", Options{Root: dir, CheckMode: true}, doer, slog.Default())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := store.Archive(context.Background(), "https://example.com/nope.pdf"); err == nil {
		t.Fatal("expected Archive() to fail in check mode on a cache miss")
	}
	if calls := atomic.LoadInt32(&doer.calls); calls != 0 {
		t.Errorf("check mode must never fetch, got %d calls", calls)
	}
}

func TestArchive_PermanentFailureOn404(t *testing.T) {
	dir := t.TempDir()
	doer := &fakeDoer{statusCode: http.StatusNotFound, body: []byte("not found")}

	store, err := Load("", Options{Root: dir}, doer, slog.Default())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := store.Archive(context.Background(), "https://example.com/gone.pdf"); err == nil {
		t.Fatal("expected Archive() to fail on a 404")
	}

	entry, ok := store.lookup("https://example.com/gone.pdf")
	if !ok {
		t.Fatal("expected a recorded entry after a 404")
	}
	if entry.State != PermanentFailure {
		t.Errorf("entry.State = %v, want PermanentFailure", entry.State)
	}
}

func TestArchive_MaxNewArchivesCap(t *testing.T) {
	dir := t.TempDir()
	doer := &fakeDoer{statusCode: http.StatusOK, body: []byte("%PDF-1.4 fake pdf body")}

	store, err := Load("", Options{Root: dir, MaxNewArchives: 1}, doer, slog.Default())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := store.Archive(context.Background(), "https://example.com/one.pdf"); err != nil {
		t.Fatalf("first Archive() under the cap should succeed: %v", err)
	}
	if _, err := store.Archive(context.Background(), "https://example.com/two.pdf"); err == nil {
		t.Fatal("expected the second distinct URL to hit the per-build cap")
	}
}

func TestLoad_PersistedDatabaseRoundTrips(t *testing.T) {
	dir := t.TempDir()
	dbPath := dir + "/archive.yaml"
	doer := &fakeDoer{statusCode: http.StatusOK, body: []byte("%PDF-1.4 fake pdf body")}

	store, err := Load(dbPath, Options{Root: dir}, doer, slog.Default())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := store.Archive(context.Background(), "https://example.com/paper.pdf"); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected archive database to be persisted: %v", err)
	}

	reloaded, err := Load(dbPath, Options{Root: dir}, doer, slog.Default())
	if err != nil {
		t.Fatalf("reload Load() error = %v", err)
	}
	if _, ok := reloaded.lookup("https://example.com/paper.pdf"); !ok {
		t.Fatal("expected the reloaded store to recall the persisted entry")
	}
}
