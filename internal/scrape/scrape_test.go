package scrape

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
)

type fakeDoer struct {
	statusCode int
	body       []byte
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: f.statusCode,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader(f.body)),
	}, nil
}

const arxivFeedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Attention Is All You Need</title>
    <summary>We propose a new architecture.
  It relies entirely on attention.</summary>
    <published>2017-06-12T00:00:00Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
    <doi>10.48550/arXiv.1706.03762</doi>
  </entry>
</feed>`

func TestDispatch_RoutesArxiv(t *testing.T) {
	doer := &fakeDoer{statusCode: http.StatusOK, body: []byte(arxivFeedFixture)}
	d := New(Config{}, doer, slog.Default())

	item, err := d.Dispatch(context.Background(), "https://arxiv.org/abs/1706.03762")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if item.Title != "Attention Is All You Need" {
		t.Errorf("item.Title = %q, want %q", item.Title, "Attention Is All You Need")
	}
	if item.Date != "2017-06-12" {
		t.Errorf("item.Date = %q, want %q", item.Date, "2017-06-12")
	}
	if item.AbstractHTML == "" {
		t.Error("expected a non-empty abstract")
	}
}

func TestDispatch_ArxivNotFoundIsPermanent(t *testing.T) {
	doer := &fakeDoer{statusCode: http.StatusNotFound, body: []byte("")}
	d := New(Config{}, doer, slog.Default())

	_, err := d.Dispatch(context.Background(), "https://arxiv.org/abs/9999.99999")
	if err == nil {
		t.Fatal("expected an error for a missing arxiv id")
	}
	if !IsPermanent(err) {
		t.Errorf("expected a permanent failure, got %v", err)
	}
}

func TestDispatch_WikipediaClientSideIsTemporary(t *testing.T) {
	d := New(Config{WikipediaClientSide: true}, &fakeDoer{}, slog.Default())

	_, err := d.Dispatch(context.Background(), "https://en.wikipedia.org/wiki/Go_(programming_language)")
	if err == nil {
		t.Fatal("expected client-side wikipedia handling to return an error (not scraped server-side)")
	}
	if IsPermanent(err) {
		t.Error("client-side wikipedia handling must be temporary, not permanent (never cached)")
	}
}

func TestDispatch_SelfPageIsPermanent(t *testing.T) {
	d := New(Config{SiteURL: "https://example.net"}, &fakeDoer{}, slog.Default())

	_, err := d.Dispatch(context.Background(), "/doc/foo.html")
	if err == nil {
		t.Fatal("expected an error for a local self-page")
	}
	if !IsPermanent(err) {
		t.Errorf("expected a permanent failure for a local page, got %v", err)
	}
}

func TestDispatch_UnroutableURLIsPermanent(t *testing.T) {
	d := New(Config{}, &fakeDoer{}, slog.Default())

	_, err := d.Dispatch(context.Background(), "https://some-random-unhandled-host.example/page")
	if err == nil {
		t.Fatal("expected an error for a URL with no matching scraper")
	}
	if !IsPermanent(err) {
		t.Errorf("expected a permanent failure, got %v", err)
	}
}

func TestNormalizeAuthors(t *testing.T) {
	cases := []struct{ in, want string }{
		{"A.Smith", "A. Smith"},
		{"A.B. Smith", "A. B. Smith"},
		{"Jane Smith and Bob Jones", "Jane Smith, Bob Jones"},
		{"Jane Smith, & Bob Jones", "Jane Smith, Bob Jones"},
	}
	for _, tc := range cases {
		if got := NormalizeAuthors(tc.in); got != tc.want {
			t.Errorf("NormalizeAuthors(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
