package rewrite

import "github.com/yuin/goldmark/parser"

// Per-document state threaded through parser.Context, mirroring the
// document-path key astdoc itself uses: an accumulator parameter in
// everything but name, since goldmark's ASTTransformer interface has no
// other channel back to the driver.
var (
	issuesKey  = parser.NewContextKey()
	hrCycleKey = parser.NewContextKey()
)

func issuesFrom(pc parser.Context) *IssueSink {
	if v := pc.Get(issuesKey); v != nil {
		if sink, ok := v.(*IssueSink); ok {
			return sink
		}
	}
	return NewIssueSink()
}

// hrCycle is the horizontal-rule cycler's explicit accumulator: a pointer to
// an int stored in the per-document context, incremented modulo 3 in source
// order regardless of nesting depth.
type hrCycle struct {
	n int
}

func hrCycleFrom(pc parser.Context) *hrCycle {
	if v := pc.Get(hrCycleKey); v != nil {
		if c, ok := v.(*hrCycle); ok {
			return c
		}
	}
	c := &hrCycle{}
	pc.Set(hrCycleKey, c)
	return c
}

func (c *hrCycle) next() int {
	n := c.n % 3
	c.n++
	return n
}
