package identify

import "testing"

func TestGenerate_Shape(t *testing.T) {
	cases := []struct {
		name   string
		url    string
		author string
		date   string
		mode   SuffixMode
		want   string
	}{
		{
			name:   "single author",
			url:    "https://example.com/paper.pdf",
			author: "Jane Smith",
			date:   "2021-04-01",
			mode:   DropSuffixOne,
			want:   "smith-2021",
		},
		{
			name:   "two authors",
			url:    "https://example.com/paper.pdf",
			author: "Jane Smith, Bob Quux",
			date:   "2021-04-01",
			mode:   DropSuffixOne,
			want:   "smith-quux-2021",
		},
		{
			name:   "three or more authors use et-al",
			url:    "https://example.com/paper.pdf",
			author: "Jane Smith, Bob Quux, Alice Chen",
			date:   "2021-04-01",
			mode:   DropSuffixOne,
			want:   "smith-et-al-2021",
		},
		{
			name:   "affiliation stripped",
			url:    "https://example.com/paper.pdf",
			author: "Jane Smith (MIT)",
			date:   "2021-04-01",
			mode:   DropSuffixOne,
			want:   "smith-2021",
		},
		{
			name:   "self author gets gwern slug",
			url:    "https://gwern.net/doc/ai/foo.pdf",
			author: "Gwern Branwen",
			date:   "2021-04-01",
			mode:   DropSuffixOne,
			want:   "gwern-doc-ai-foo-pdf",
		},
		{
			name:   "wikipedia yields empty",
			url:    "https://en.wikipedia.org/wiki/Go_(programming_language)",
			author: "Jane Smith",
			date:   "2021-04-01",
			mode:   DropSuffixOne,
			want:   "",
		},
		{
			name:   "missing author yields empty",
			url:    "https://example.com/paper.pdf",
			author: "",
			date:   "2021-04-01",
			mode:   DropSuffixOne,
			want:   "",
		},
		{
			name:   "missing date yields empty",
			url:    "https://example.com/paper.pdf",
			author: "Jane Smith",
			date:   "",
			mode:   DropSuffixOne,
			want:   "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Generate(tc.url, tc.author, tc.date, tc.mode)
			if got != tc.want {
				t.Errorf("Generate(%q, %q, %q) = %q, want %q", tc.url, tc.author, tc.date, got, tc.want)
			}
		})
	}
}

func TestGenerate_SuffixMode(t *testing.T) {
	url1 := "https://example.com/paper-1.pdf"
	url2 := "https://example.com/paper-2.pdf"

	if got := Generate(url1, "Jane Smith", "2021-04-01", DropSuffixOne); got != "smith-2021" {
		t.Errorf("DropSuffixOne on -1: got %q, want %q", got, "smith-2021")
	}
	if got := Generate(url1, "Jane Smith", "2021-04-01", KeepAllSuffixes); got != "smith-2021-1" {
		t.Errorf("KeepAllSuffixes on -1: got %q, want %q", got, "smith-2021-1")
	}
	if got := Generate(url2, "Jane Smith", "2021-04-01", DropSuffixOne); got != "smith-2021-2" {
		t.Errorf("DropSuffixOne on -2: got %q, want %q", got, "smith-2021-2")
	}
}

func TestGenerate_ShapeInvariant(t *testing.T) {
	// Every non-empty identifier must match ^[a-z0-9-]+$ and contain none
	// of the characters header ids forbid.
	inputs := []struct{ url, author, date string }{
		{"https://example.com/x.pdf", "A. Smith, B. Jones", "2019-01-01"},
		{"https://example.com/y-3.pdf", "Q. Zhao", "2020-06-15"},
	}
	for _, in := range inputs {
		got := Generate(in.url, in.author, in.date, DropSuffixOne)
		if got == "" {
			continue
		}
		for _, r := range got {
			ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
			if !ok {
				t.Errorf("Generate(%q) = %q contains forbidden char %q", in.url, got, r)
			}
		}
	}
}
