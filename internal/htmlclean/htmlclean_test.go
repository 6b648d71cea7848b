package htmlclean

import "testing"

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"<jats:p>Some <jats:italic>text</jats:italic> here.</jats:p>",
		"plain text with no markup",
		"&lt;p&gt;already escaped&lt;/p&gt;",
		"  leading and trailing whitespace  ",
		"",
	}
	for _, in := range inputs {
		once := Clean(in)
		twice := Clean(once)
		if once != twice {
			t.Errorf("Clean not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestClean_JATSTagConversion(t *testing.T) {
	got := Clean("<jats:p><jats:italic>Foo</jats:italic></jats:p>")
	want := "<p><em>Foo</em></p>"
	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestClean_TrimsWhitespace(t *testing.T) {
	got := Clean("   <p>hello</p>   ")
	want := "<p>hello</p>"
	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestLoadRules_ParsesEmbedded(t *testing.T) {
	rules, err := loadRules()
	if err != nil {
		t.Fatalf("loadRules() error = %v", err)
	}
	if len(rules) == 0 {
		t.Fatal("loadRules() returned no rules")
	}
	if len(rules) != len(DefaultRules) {
		t.Errorf("loadRules() len = %d, DefaultRules len = %d", len(rules), len(DefaultRules))
	}
}
