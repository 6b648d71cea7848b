// Package pipeline implements the build driver: it orders the metadata
// load, the per-link annotation pre-pass, the per-document rewrite walk,
// and the annotation fragment writer, running documents through a bounded
// worker pool and guarding against the invariant violations the rewrite
// passes can raise.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gwern/gwernbuild/internal/archive"
	"github.com/gwern/gwernbuild/internal/astdoc"
	"github.com/gwern/gwernbuild/internal/docsrc"
	"github.com/gwern/gwernbuild/internal/fragment"
	"github.com/gwern/gwernbuild/internal/identify"
	"github.com/gwern/gwernbuild/internal/imgcolor"
	"github.com/gwern/gwernbuild/internal/metadata"
	"github.com/gwern/gwernbuild/internal/rewrite"
	"github.com/gwern/gwernbuild/internal/scrape"
)

// Config is everything the driver needs to run a build. It is distinct
// from rewrite.Config: this one describes where things live on disk and
// how many workers to run; the driver builds the rewrite.Config the
// passes actually see from it.
type Config struct {
	SourceRoot        string
	OutputDir         string
	CuratedMetadata   string
	AutoMetadata      string
	FragmentOutputDir string
	ArchiveDir        string
	ArchiveDB         string
	InvertCacheFile   string
	SiteURL           string

	Workers             int
	CheckMode           bool
	NoPreview           bool
	MaxNewArchives      int
	WikipediaClientSide bool
	SuffixMode          identify.SuffixMode

	IncludeHidden bool
	ExcludeDirs   []string

	Logger *slog.Logger
}

// Report summarizes one build's outcome.
type Report struct {
	DocumentsProcessed int
	AnnotationsCreated int
	ArchivesCreated    int
	FragmentsWritten   int
	Warnings           []string
}

// Run executes one full build: load stores, ensure annotations for every
// link in the corpus, rewrite and render every document, then write
// annotation fragments for the resulting metadata store.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pipeline")

	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	metaStore, err := metadata.Load(cfg.CuratedMetadata, cfg.AutoMetadata, cfg.SiteURL, logger)
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}

	httpClient := http.DefaultClient

	archiveStore, err := archive.Load(cfg.ArchiveDB, archive.Options{
		Root:           cfg.ArchiveDir,
		CheckMode:      cfg.CheckMode,
		NoPreview:      cfg.NoPreview,
		MaxNewArchives: cfg.MaxNewArchives,
	}, httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("load archive store: %w", err)
	}

	dispatcher := scrape.New(scrape.Config{
		SiteURL:             cfg.SiteURL,
		WikipediaClientSide: cfg.WikipediaClientSide,
	}, httpClient, logger)

	var invertCache *imgcolor.Cache
	if cfg.InvertCacheFile != "" {
		invertCache, err = imgcolor.LoadCache(cfg.InvertCacheFile)
		if err != nil {
			return nil, fmt.Errorf("load image-invertibility cache: %w", err)
		}
	}

	docs, err := docsrc.Collect(ctx, cfg.SourceRoot, docsrc.Options{
		ExcludeDirs:   cfg.ExcludeDirs,
		IncludeHidden: cfg.IncludeHidden,
	})
	if err != nil {
		return nil, fmt.Errorf("collect source documents: %w", err)
	}

	rcfg := rewrite.Config{
		Metadata:        metaStore,
		Archive:         archiveStore,
		Dispatcher:      dispatcher,
		HTTPClient:      httpClient,
		Logger:          logger,
		Ctx:             ctx,
		SiteURL:         cfg.SiteURL,
		SuffixMode:      cfg.SuffixMode,
		InvertCache:     invertCache,
		SourceRoot:      cfg.SourceRoot,
		BacklinksIndex:  buildBacklinksIndex(docs),
		TagsIndex:       map[string][]string{},
		AutoLinkPhrases: buildAutoLinkPhrases(metaStore),
	}.WithDefaults()

	pl := rewrite.NewPipeline(rcfg)

	bareSvc := astdoc.NewService(logger)
	fullSvc := astdoc.NewService(logger, pl.Transformers()...)
	fragmentSvc := astdoc.NewService(logger, pl.FragmentTransformers()...)

	report := &Report{}
	var reportMu sync.Mutex

	if err := ensureAllAnnotations(ctx, cfg, rcfg, bareSvc, docs, report, &reportMu); err != nil {
		return report, err
	}

	if err := metaStore.RecurseInline(func(html string, _ func(string) (metadata.Item, bool)) (string, error) {
		doc, err := fragmentSvc.Parse("<annotation-inline>", time.Time{}, []byte(html), nil)
		if err != nil {
			return "", err
		}
		return fragmentSvc.Render(doc)
	}); err != nil {
		return report, fmt.Errorf("recurse-inline annotations: %w", err)
	}

	if err := renderAllDocuments(ctx, cfg, pl, fullSvc, docs, report, &reportMu); err != nil {
		return report, err
	}

	fw := fragment.New(cfg.FragmentOutputDir, fragmentSvc, rcfg, logger)
	for p, item := range metaStore.Snapshot() {
		changed, err := fw.Write(p, item)
		if err != nil {
			logger.Warn("fragment write failed", "path", p, "error", err)
			continue
		}
		if changed {
			report.FragmentsWritten++
		}
	}

	return report, nil
}

// ensureAllAnnotations runs the link-discovery + annotation-creation
// pre-pass (§4.4 step 4) over every document, bounded by cfg.Workers, before
// any document's rewrite passes run — the has-annotation pass later in the
// same build must see a complete metadata snapshot.
func ensureAllAnnotations(ctx context.Context, cfg Config, rcfg rewrite.Config, bareSvc *astdoc.Service, docs []docsrc.Doc, report *Report, mu *sync.Mutex) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	before := countEntries(rcfg.Metadata)
	for _, d := range docs {
		d := d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := bareSvc.Parse(d.RelPath, d.Modified, d.Raw, nil)
			if err != nil {
				return fmt.Errorf("parse %s: %w", d.RelPath, err)
			}
			links := rewrite.ExtractLinks(doc.Node)
			if err := rewrite.EnsureAnnotations(gctx, rcfg, links); err != nil {
				return fmt.Errorf("ensure annotations for %s: %w", d.RelPath, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	mu.Lock()
	report.AnnotationsCreated += countEntries(rcfg.Metadata) - before
	mu.Unlock()
	return nil
}

// renderAllDocuments runs the twelve document rewrite passes (every pass but
// annotation creation, which the pre-pass already ran) plus rendering over
// every document, bounded by cfg.Workers. A fatal issue raised by any
// pass aborts the whole build, per the design's "garbage in the corpus
// must be fixed by the author" error model.
func renderAllDocuments(ctx context.Context, cfg Config, pl *rewrite.Pipeline, fullSvc *astdoc.Service, docs []docsrc.Doc, report *Report, mu *sync.Mutex) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, d := range docs {
		d := d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return renderOne(cfg, pl, fullSvc, d, report, mu)
		})
	}
	return g.Wait()
}

func renderOne(cfg Config, pl *rewrite.Pipeline, fullSvc *astdoc.Service, d docsrc.Doc, report *Report, mu *sync.Mutex) error {
	doc, err := fullSvc.Parse(d.RelPath, d.Modified, d.Raw, pl.Prepare())
	if err != nil {
		return fmt.Errorf("parse %s: %w", d.RelPath, err)
	}

	sink := rewrite.IssuesFrom(doc.Context)
	if f := sink.Fatal(); f != nil {
		return fmt.Errorf("document %s: %w", d.RelPath, f)
	}
	sink.LogWarnings(cfg.logger())

	out, err := fullSvc.Render(doc)
	if err != nil {
		return fmt.Errorf("render %s: %w", d.RelPath, err)
	}

	if cfg.OutputDir != "" {
		target := filepath.Join(cfg.OutputDir, d.RelPath[:len(d.RelPath)-len(filepath.Ext(d.RelPath))]+".html")
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("ensure output dir for %s: %w", d.RelPath, err)
		}
		if err := os.WriteFile(target, []byte(out), 0o644); err != nil { //nolint:gosec // standard file permissions
			return fmt.Errorf("write %s: %w", target, err)
		}
	}

	mu.Lock()
	report.DocumentsProcessed++
	mu.Unlock()
	return nil
}

// minAutoLinkPhraseLength keeps the auto-linker from matching on short,
// generic titles ("A", "Go") that would fire inside unrelated prose.
const minAutoLinkPhraseLength = 6

// buildAutoLinkPhrases indexes every already-annotated item's title as a
// recognized phrase (§4.4.1: Wikipedia titles, recurring citations),
// pointing back at the Path it annotates, so the auto-linker can turn a
// bare mention of a known title into a link before annotation creation
// sees it.
func buildAutoLinkPhrases(metaStore *metadata.Store) map[string]string {
	phrases := map[string]string{}
	for p, item := range metaStore.Snapshot() {
		if len(item.Title) < minAutoLinkPhraseLength {
			continue
		}
		phrases[item.Title] = string(p)
	}
	return phrases
}

func buildBacklinksIndex(docs []docsrc.Doc) map[string]bool {
	idx := make(map[string]bool, len(docs))
	for _, d := range docs {
		idx["/"+d.RelPath] = true
	}
	return idx
}

func countEntries(m *metadata.Store) int {
	if m == nil {
		return 0
	}
	return len(m.Snapshot())
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
