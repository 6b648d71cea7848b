package rewrite

import (
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"
)

// The priority constants give each numbered pass a goldmark ASTTransformer
// priority with gaps, so a future pass can be inserted between two existing
// ones without renumbering everything.
const (
	priorityAutoLinker           = 100
	priorityInterwikiExpander    = 200
	priorityFootnoteChecker      = 300
	priorityHasAnnotationMarker  = 500
	priorityInflationAdjuster    = 600
	priorityArchiveLinker        = 700
	priorityLocalLinkClassifier  = 800
	priorityPageLinkWalker       = 900
	priorityTypography           = 1000
	priorityHeaderLinker         = 1100
	priorityImageInverter        = 1200
	priorityLooseBlockNormalizer = 1300
)

// Pipeline wires the rewrite passes (§4.4, minus annotation creation, which
// runs as a pre-pass — see EnsureAnnotations) into the priorities that
// encode their required order, and prepares the per-document context state
// (issue sink, HR cycle) the passes read and write as they walk.
type Pipeline struct {
	cfg Config
}

// NewPipeline constructs a Pipeline from cfg, filling in documented
// defaults for anything the caller left zero.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg.WithDefaults()}
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Transformers returns every pass as a util.PrioritizedValue, ready to hand
// to astdoc.NewService's extraTransformers parameter.
func (p *Pipeline) Transformers() []util.PrioritizedValue {
	return []util.PrioritizedValue{
		util.Prioritized(NewAutoLinker(p.cfg), priorityAutoLinker),
		util.Prioritized(NewInterwikiExpander(p.cfg), priorityInterwikiExpander),
		util.Prioritized(NewFootnoteChecker(p.cfg), priorityFootnoteChecker),
		util.Prioritized(NewHasAnnotationMarker(p.cfg), priorityHasAnnotationMarker),
		util.Prioritized(NewInflationAdjuster(p.cfg), priorityInflationAdjuster),
		util.Prioritized(NewArchiveLinker(p.cfg), priorityArchiveLinker),
		util.Prioritized(NewLocalLinkClassifier(p.cfg), priorityLocalLinkClassifier),
		util.Prioritized(NewPageLinkWalker(p.cfg), priorityPageLinkWalker),
		util.Prioritized(NewTypography(p.cfg), priorityTypography),
		util.Prioritized(NewHeaderLinker(p.cfg), priorityHeaderLinker),
		util.Prioritized(NewImageInverter(p.cfg), priorityImageInverter),
		util.Prioritized(NewLooseBlockNormalizer(p.cfg), priorityLooseBlockNormalizer),
	}
}

// FragmentTransformers returns only the annotation-injection and archive
// passes, at the same relative order as in Transformers. The annotation
// fragment writer (§4.7 step 3) runs these two passes over a fragment's
// synthetic document so links nested inside an abstract get the same
// decoration a normal document's links would.
func (p *Pipeline) FragmentTransformers() []util.PrioritizedValue {
	return []util.PrioritizedValue{
		util.Prioritized(NewHasAnnotationMarker(p.cfg), priorityHasAnnotationMarker),
		util.Prioritized(NewArchiveLinker(p.cfg), priorityArchiveLinker),
	}
}

// Prepare returns the astdoc.Service.Parse "prepare" callback that seeds a
// fresh IssueSink and horizontal-rule cycle into a document's parser
// context before any pass transformer runs. After Parse returns, the
// driver recovers the sink with IssuesFrom(doc.Context).
func (p *Pipeline) Prepare() func(parser.Context) {
	return func(pc parser.Context) {
		pc.Set(issuesKey, NewIssueSink())
		pc.Set(hrCycleKey, &hrCycle{})
	}
}

// IssuesFrom recovers the IssueSink a document's rewrite passes reported
// into, after Parse has returned.
func IssuesFrom(pc parser.Context) *IssueSink {
	return issuesFrom(pc)
}
