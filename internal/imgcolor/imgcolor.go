// Package imgcolor computes the mean HSL lightness of an image, the
// computation the image-invertibility rewrite pass and the Wikipedia
// scraper's thumbnail handling both need to decide whether an image is
// near-monochrome and should be auto-inverted in dark mode.
package imgcolor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/gwern/gwernbuild/internal/netutil"
)

// InvertibleThreshold is the mean-lightness cutoff below which an image is
// considered near-monochrome and should receive the invertible-auto class.
const InvertibleThreshold = 0.09

// FetchTimeout bounds a single remote image fetch.
const FetchTimeout = 20 * time.Second

// MeanLightness decodes an image (PNG, JPEG, GIF, WebP, or SVG) and returns
// the mean lightness in HSL space across a sampled grid of pixels.
func MeanLightness(data []byte, contentType string) (float64, error) {
	if looksLikeSVG(data, contentType) {
		return meanLightnessSVG(data)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode image: %w", err)
	}
	return meanLightnessImage(img), nil
}

// IsInvertible reports whether data's mean lightness falls below
// InvertibleThreshold.
func IsInvertible(data []byte, contentType string) (bool, error) {
	l, err := MeanLightness(data, contentType)
	if err != nil {
		return false, err
	}
	return l < InvertibleThreshold, nil
}

// FetchAndCheck downloads url once and reports whether it is invertible.
// Used for remote images that are not already present locally.
func FetchAndCheck(ctx context.Context, client netutil.Doer, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	netutil.SetUA(req)

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return false, fmt.Errorf("read image body: %w", err)
	}

	return IsInvertible(data, resp.Header.Get("Content-Type"))
}

func looksLikeSVG(data []byte, contentType string) bool {
	if strings.Contains(contentType, "svg") {
		return true
	}
	trimmed := bytes.TrimSpace(data)
	return bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<svg"))
}

// meanLightnessSVG rasterizes an SVG to an RGBA canvas via oksvg/rasterx
// and computes mean lightness over the resulting pixels.
func meanLightnessSVG(svg []byte) (float64, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg))
	if err != nil {
		return 0, fmt.Errorf("parse svg: %w", err)
	}
	viewbox := icon.ViewBox
	width := int(math.Ceil(viewbox.W))
	height := int(math.Ceil(viewbox.H))
	if width <= 0 || height <= 0 {
		width, height = 256, 256
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, canvas, canvas.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)
	icon.Draw(raster, 1.0)

	return meanLightnessImage(canvas), nil
}

// meanLightnessImage samples a grid of pixels (bounded so large images stay
// cheap) and averages their HSL lightness.
func meanLightnessImage(img image.Image) float64 {
	bounds := img.Bounds()
	const maxSamplesPerAxis = 64

	stepX := 1
	if w := bounds.Dx(); w > maxSamplesPerAxis {
		stepX = w / maxSamplesPerAxis
	}
	stepY := 1
	if h := bounds.Dy(); h > maxSamplesPerAxis {
		stepY = h / maxSamplesPerAxis
	}

	var total float64
	var count int
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			c := colorful.Color{R: float64(r) / 65535, G: float64(g) / 65535, B: float64(b) / 65535}
			_, _, l := c.Hsl()
			total += l
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return total / float64(count)
}
