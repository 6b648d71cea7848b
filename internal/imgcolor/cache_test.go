package imgcolor

import (
	"path/filepath"
	"testing"
)

func TestCache_SetGetForget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invert-cache.json")
	c, err := LoadCache(path)
	if err != nil {
		t.Fatalf("LoadCache() error = %v", err)
	}

	if _, ok := c.Get("https://example.com/a.png"); ok {
		t.Fatal("expected empty cache to have no entry")
	}

	if err := c.Set("https://example.com/a.png", true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok := c.Get("https://example.com/a.png")
	if !ok || !v {
		t.Errorf("Get() = (%v, %v), want (true, true)", v, ok)
	}

	c.Forget("https://example.com/a.png")
	if _, ok := c.Get("https://example.com/a.png"); ok {
		t.Error("expected Forget() to invalidate the entry")
	}
}

func TestCache_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invert-cache.json")
	c, err := LoadCache(path)
	if err != nil {
		t.Fatalf("LoadCache() error = %v", err)
	}
	if err := c.Set("https://example.com/b.png", false); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	reloaded, err := LoadCache(path)
	if err != nil {
		t.Fatalf("reload LoadCache() error = %v", err)
	}
	v, ok := reloaded.Get("https://example.com/b.png")
	if !ok || v {
		t.Errorf("reloaded Get() = (%v, %v), want (false, true)", v, ok)
	}
}

func TestIsInvertible_Threshold(t *testing.T) {
	if InvertibleThreshold <= 0 || InvertibleThreshold >= 1 {
		t.Fatalf("InvertibleThreshold = %v, expected a fraction in (0, 1)", InvertibleThreshold)
	}
}
