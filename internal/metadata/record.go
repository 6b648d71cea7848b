package metadata

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// record is the on-disk six-element form of an Item, keyed by URL. Curated
// and auto files are both sequences of records. Modeled after the flexible
// record-node unmarshalling used for bibliography entries in the wider
// corpus: a custom UnmarshalYAML lets us validate shape at decode time
// instead of trusting struct-tag field ordering.
type record struct {
	URL      string
	Title    string
	Author   string
	Date     string
	DOI      string
	Abstract string
}

// UnmarshalYAML implements yaml.Unmarshaler, requiring the node to be a
// six-element sequence: [url, title, author, date, doi, abstract].
func (r *record) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("metadata record at line %d: expected a sequence, got kind %d", node.Line, node.Kind)
	}
	if len(node.Content) != 6 {
		return fmt.Errorf("metadata record at line %d: expected 6 fields [url,title,author,date,doi,abstract], got %d", node.Line, len(node.Content))
	}
	fields := make([]string, 6)
	for i, n := range node.Content {
		if n.Kind != yaml.ScalarNode {
			return fmt.Errorf("metadata record at line %d: field %d is not scalar", node.Line, i)
		}
		fields[i] = n.Value
	}
	r.URL, r.Title, r.Author, r.Date, r.DOI, r.Abstract = fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]
	return nil
}

// MarshalYAML implements yaml.Marshaler, emitting the six-element sequence
// form.
func (r record) MarshalYAML() (any, error) {
	return []string{r.URL, r.Title, r.Author, r.Date, r.DOI, r.Abstract}, nil
}

func (r record) path(siteURL string) Path {
	return Canonicalize(r.URL, siteURL)
}

func (r record) item() Item {
	return Item{
		Title:        r.Title,
		Author:       r.Author,
		Date:         r.Date,
		DOI:          r.DOI,
		AbstractHTML: r.Abstract,
	}
}

func itemRecord(path Path, it Item) record {
	return record{
		URL:      string(path),
		Title:    it.Title,
		Author:   it.Author,
		Date:     it.Date,
		DOI:      it.DOI,
		Abstract: it.AbstractHTML,
	}
}
