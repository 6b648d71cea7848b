package rewrite

import (
	"strings"
	"testing"

	"github.com/yuin/goldmark/parser"
)

func TestHRCycle_DeterministicModulo3(t *testing.T) {
	pc := parser.NewContext()
	cycle := hrCycleFrom(pc)

	want := []int{0, 1, 2, 0, 1, 2, 0}
	for i, w := range want {
		if got := cycle.next(); got != w {
			t.Errorf("cycle.next() call %d = %d, want %d", i, got, w)
		}
	}
}

func TestHRCycle_SharedAcrossContextLookups(t *testing.T) {
	pc := parser.NewContext()
	first := hrCycleFrom(pc)
	first.next()
	second := hrCycleFrom(pc)
	if second.next() != 1 {
		t.Error("hrCycleFrom should return the same counter for a given parser.Context")
	}
}

func TestBreakSlashes_PreservesVisibleText(t *testing.T) {
	inputs := []string{
		"https://example.com/a/b/c",
		"no/slashes/at/end/",
		"plain text",
		"a//b",
	}
	for _, in := range inputs {
		broken := breakSlashes(in)
		stripped := strings.ReplaceAll(broken, zeroWidthSpace, "")
		if stripped != in {
			t.Errorf("breakSlashes(%q) = %q; after stripping zero-width spaces got %q, want %q", in, broken, stripped, in)
		}
	}
}

func TestBreakEquals(t *testing.T) {
	cases := []struct{ in, want string }{
		{"n=10", "n = 10"},
		{"a == b", "a == b"},
		{"x ≠ y", "x ≠ y"},
		{"x≠5", "x ≠ 5"},
	}
	for _, tc := range cases {
		if got := breakEquals(tc.in); got != tc.want {
			t.Errorf("breakEquals(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestApplyTextTypography(t *testing.T) {
	got := ApplyTextTypography("see n=10 at https://example.com/a/b")
	if strings.Contains(got, zeroWidthSpace) == false {
		t.Error("expected ApplyTextTypography to insert slash breakpoints")
	}
	if !strings.Contains(got, "n = 10") {
		t.Errorf("expected ApplyTextTypography to space out '=': got %q", got)
	}
}
