package rewrite

import (
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

//go:embed data/cpi.yaml
var cpiFS embed.FS

// historicalAmountRe matches a dollar amount immediately followed by a
// parenthesized four-digit year, e.g. "$100 (1950)".
var historicalAmountRe = regexp.MustCompile(`\$([0-9][0-9,]*(?:\.[0-9]+)?)\s*\(((?:18|19|20)[0-9]{2})\)`)

type cpiTable struct {
	BaselineYear int             `yaml:"baseline_year"`
	Index        map[int]float64 `yaml:"index"`
	years        []int
}

func loadCPITable() (*cpiTable, error) {
	data, err := cpiFS.ReadFile("data/cpi.yaml")
	if err != nil {
		return nil, err
	}
	var t cpiTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse cpi table: %w", err)
	}
	for y := range t.Index {
		t.years = append(t.years, y)
	}
	sort.Ints(t.years)
	return &t, nil
}

func mustLoadCPITable() *cpiTable {
	t, err := loadCPITable()
	if err != nil {
		panic(err)
	}
	return t
}

var defaultCPITable = mustLoadCPITable()

// indexFor linearly interpolates between the two nearest sampled years.
func (t *cpiTable) indexFor(year int) float64 {
	if v, ok := t.Index[year]; ok {
		return v
	}
	if len(t.years) == 0 {
		return 0
	}
	if year <= t.years[0] {
		return t.Index[t.years[0]]
	}
	if year >= t.years[len(t.years)-1] {
		return t.Index[t.years[len(t.years)-1]]
	}
	for i := 1; i < len(t.years); i++ {
		lo, hi := t.years[i-1], t.years[i]
		if year <= hi {
			loV, hiV := t.Index[lo], t.Index[hi]
			frac := float64(year-lo) / float64(hi-lo)
			return loV + frac*(hiV-loV)
		}
	}
	return t.Index[t.years[len(t.years)-1]]
}

// adjust converts amount from year to the table's baseline year.
func (t *cpiTable) adjust(amount float64, year int) float64 {
	from := t.indexFor(year)
	if from == 0 {
		return amount
	}
	to := t.indexFor(t.BaselineYear)
	return amount * to / from
}

// InflationAdjuster finds historical dollar amounts written as "$N (YYYY)"
// in text and appends a present-day equivalent in parentheses, so a reader
// does not have to do the conversion themselves.
type InflationAdjuster struct {
	cfg   Config
	table *cpiTable
}

// NewInflationAdjuster constructs the inflation-adjustment pass.
func NewInflationAdjuster(cfg Config) *InflationAdjuster {
	return &InflationAdjuster{cfg: cfg, table: defaultCPITable}
}

// Transform implements parser.ASTTransformer.
func (p *InflationAdjuster) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	var textNodes []*ast.Text
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			textNodes = append(textNodes, t)
		}
		return ast.WalkContinue, nil
	})

	for _, node := range textNodes {
		value := string(node.Segment.Value(source))
		loc := historicalAmountRe.FindStringSubmatchIndex(value)
		if loc == nil {
			continue
		}
		p.splice(node, value, loc)
	}
}

func (p *InflationAdjuster) splice(node *ast.Text, value string, loc []int) {
	parent := node.Parent()
	if parent == nil {
		return
	}
	matchStart, matchEnd := loc[0], loc[1]
	amountStr := strings.ReplaceAll(value[loc[2]:loc[3]], ",", "")
	yearStr := value[loc[4]:loc[5]]

	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		return
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return
	}
	adjusted := p.table.adjust(amount, year)

	replacement := fmt.Sprintf("%s (%s in %d dollars)", value[matchStart:matchEnd], formatUSD(adjusted), p.table.BaselineYear)
	newValue := value[:matchStart] + replacement + value[matchEnd:]

	anchor := node
	if newValue != "" {
		n := ast.NewString([]byte(newValue))
		parent.InsertAfter(parent, anchor, n)
		anchor = n
	}
	parent.RemoveChild(parent, node)
}

func formatUSD(v float64) string {
	return fmt.Sprintf("$%.0f", v)
}
