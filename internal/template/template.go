// Package template owns the canonical per-item reference images the matcher
// compares screen regions against. Each catalog entity gets a ladder of
// square variants at the canonical scales, extended at runtime by corpus
// crops captured from real screenshots.
package template

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	"bonk-scanner/internal/screenshot"
	"bonk-scanner/pkg/colorutil"
)

// CanonicalSizes is the scale ladder every template is resampled to. In-game
// icons render between roughly 32 and 72 px depending on resolution, so the
// matcher tries each rung rather than guessing the on-screen size.
var CanonicalSizes = []int{32, 48, 64, 72}

// Variant is one concrete raster of a template at a single scale.
type Variant struct {
	RGBA       *image.RGBA
	Gray       *image.Gray
	Size       int
	Provenance Provenance
}

// Weight returns the variant's provenance weight.
func (v Variant) Weight() float64 {
	return v.Provenance.Weight()
}

// Template holds every variant known for one catalog entity, plus the
// dominant-color bucket used to narrow match candidates.
type Template struct {
	EntityID string
	Variants []Variant
	Bucket   colorutil.Bucket
}

// VariantAt returns the canonical variant closest to the requested size.
func (t *Template) VariantAt(size int) *Variant {
	var best *Variant
	bestDiff := 1 << 30
	for i := range t.Variants {
		v := &t.Variants[i]
		diff := v.Size - size
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff = v, diff
		}
	}
	return best
}

// makeVariant resamples an icon to one square size using Lanczos, the same
// resampling the asset pipeline uses to upscale 32px wiki icons, then splits
// it into the RGBA and grayscale planes the matcher reads.
func makeVariant(src image.Image, size int, prov Provenance) Variant {
	resized := imaging.Resize(src, size, size, imaging.Lanczos)

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(rgba, rgba.Bounds(), resized, image.Point{}, draw.Src)

	gray := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		grow := gray.Pix[y*gray.Stride:]
		for x := 0; x < size; x++ {
			p := row[x*4 : x*4+3]
			grow[x] = screenshot.Luma(p[0], p[1], p[2])
		}
	}

	return Variant{RGBA: rgba, Gray: gray, Size: size, Provenance: prov}
}

// buildLadder produces the full canonical ladder for a source icon.
func buildLadder(src image.Image, prov Provenance) []Variant {
	variants := make([]Variant, 0, len(CanonicalSizes))
	for _, size := range CanonicalSizes {
		variants = append(variants, makeVariant(src, size, prov))
	}
	return variants
}

// newTemplate builds a Template from a source icon. The color bucket is taken
// from the largest canonical variant, where quantization noise is smallest.
func newTemplate(entityID string, src image.Image, prov Provenance) *Template {
	variants := buildLadder(src, prov)
	bucket := colorutil.DominantBucket(variants[len(variants)-1].RGBA)
	return &Template{EntityID: entityID, Variants: variants, Bucket: bucket}
}
