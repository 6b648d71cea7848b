package rewrite

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/gwern/gwernbuild/internal/imgcolor"
)

// rasterExtensions are the image extensions the invertibility check
// applies to; vector/SVG already carries its own intrinsic colors and is
// handled separately by MeanLightness when encountered directly.
var rasterExtensions = []string{".png", ".jpg", ".jpeg"}

// ImageInverter computes the mean HSL lightness of every image (and every
// link targeting a raster image) and marks near-monochrome ones with the
// invertible-auto class, so client-side dark mode can invert them safely.
// Remote images are fetched once per build and memoized across builds via
// Config.InvertCache.
type ImageInverter struct {
	cfg Config
}

// NewImageInverter constructs the image-invertibility pass.
func NewImageInverter(cfg Config) *ImageInverter { return &ImageInverter{cfg: cfg} }

// Transform implements parser.ASTTransformer.
func (p *ImageInverter) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	sink := issuesFrom(pc)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Image:
			p.check(v, string(v.Destination), sink)
		case *ast.Link:
			dest := string(v.Destination)
			if isRasterImage(dest) {
				p.check(v, dest, sink)
			}
		}
		return ast.WalkContinue, nil
	})
}

func isRasterImage(url string) bool {
	lower := strings.ToLower(url)
	for _, ext := range rasterExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func (p *ImageInverter) check(node ast.Node, url string, sink *IssueSink) {
	if url == "" {
		return
	}

	if p.cfg.InvertCache != nil {
		if invertible, ok := p.cfg.InvertCache.Get(url); ok {
			if invertible {
				addClass(node, "invertible-auto")
			}
			return
		}
	}

	invertible, err := p.resolve(url)
	if err != nil {
		sink.Warn("invert", "could not check invertibility of "+url+": "+err.Error())
		return
	}

	if p.cfg.InvertCache != nil {
		if err := p.cfg.InvertCache.Set(url, invertible); err != nil {
			sink.Warn("invert", "could not persist invertibility cache for "+url+": "+err.Error())
		}
	}
	if invertible {
		addClass(node, "invertible-auto")
	}
}

func (p *ImageInverter) resolve(url string) (bool, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		client := p.cfg.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}
		return imgcolor.FetchAndCheck(p.cfg.Ctx, client, url)
	}

	if p.cfg.SourceRoot == "" {
		return false, nil
	}
	data, err := os.ReadFile(filepath.Join(p.cfg.SourceRoot, filepath.FromSlash(strings.TrimPrefix(url, "/"))))
	if err != nil {
		return false, err
	}
	return imgcolor.IsInvertible(data, "")
}
