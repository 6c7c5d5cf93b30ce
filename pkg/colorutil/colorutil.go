// Package colorutil provides shared color utilities for the item scanner.
package colorutil

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Common colors used by overlays and debug output.
var (
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Cyan    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// RGBToHSV converts RGB (0-255) to HSV (OpenCV convention: H 0-180, S 0-255, V 0-255).
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255.0
	g /= 255.0
	b /= 255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	v = maxC * 255.0 // V in 0-255

	if maxC == 0 {
		s = 0
	} else {
		s = (diff / maxC) * 255.0 // S in 0-255
	}

	if diff == 0 {
		h = 0
	} else if maxC == r {
		h = 60 * math.Mod((g-b)/diff, 6)
	} else if maxC == g {
		h = 60 * ((b-r)/diff + 2)
	} else {
		h = 60 * ((r-g)/diff + 4)
	}

	if h < 0 {
		h += 360
	}

	h = h / 2 // Convert to OpenCV's 0-180 range

	return h, s, v
}

// Bucket is a coarse dominant-color key used to index templates and narrow
// match candidates. Twelve hue buckets cover the saturated wheel; Dark, Gray
// and Light catch low-saturation colors where hue is meaningless.
type Bucket int

const (
	BucketDark  Bucket = iota // value below darkCutoff
	BucketGray                // low saturation, mid value
	BucketLight               // low saturation, high value
	BucketHue0                // red
	BucketHue1                // orange
	BucketHue2                // yellow
	BucketHue3                // chartreuse
	BucketHue4                // green
	BucketHue5                // spring
	BucketHue6                // cyan
	BucketHue7                // azure
	BucketHue8                // blue
	BucketHue9                // violet
	BucketHue10               // magenta
	BucketHue11               // rose
)

// NumBuckets is the number of distinct color buckets.
const NumBuckets = 15

const (
	satCutoff   = 50.0  // below this S (0-255) the hue is unreliable
	darkCutoff  = 60.0  // below this V (0-255) everything reads as dark
	lightCutoff = 200.0 // above this V a desaturated color reads as light
)

// String returns a short human-readable bucket name.
func (b Bucket) String() string {
	switch b {
	case BucketDark:
		return "dark"
	case BucketGray:
		return "gray"
	case BucketLight:
		return "light"
	}
	names := [...]string{"red", "orange", "yellow", "chartreuse", "green", "spring",
		"cyan", "azure", "blue", "violet", "magenta", "rose"}
	i := int(b - BucketHue0)
	if i >= 0 && i < len(names) {
		return names[i]
	}
	return "unknown"
}

// BucketOf assigns a color bucket to an RGB triple.
func BucketOf(r, g, b uint8) Bucket {
	h, s, v := RGBToHSV(float64(r), float64(g), float64(b))
	if v < darkCutoff {
		return BucketDark
	}
	if s < satCutoff {
		if v > lightCutoff {
			return BucketLight
		}
		return BucketGray
	}
	// h is 0-180; 12 buckets of 15 degrees each.
	idx := int(h / 15.0)
	if idx > 11 {
		idx = 11
	}
	return BucketHue0 + Bucket(idx)
}

// Neighbors returns the bucket plus its adjacent buckets, tolerating hue
// quantization noise near bucket boundaries. Hue buckets wrap around the
// wheel; the achromatic buckets neighbor each other by brightness.
func (b Bucket) Neighbors() []Bucket {
	switch b {
	case BucketDark:
		return []Bucket{BucketDark, BucketGray}
	case BucketGray:
		return []Bucket{BucketGray, BucketDark, BucketLight}
	case BucketLight:
		return []Bucket{BucketLight, BucketGray}
	}
	i := int(b - BucketHue0)
	prev := BucketHue0 + Bucket((i+11)%12)
	next := BucketHue0 + Bucket((i+1)%12)
	return []Bucket{b, prev, next, BucketGray}
}

// DominantRGBA returns the most frequent quantized color within an image,
// along with its share of the sampled pixels. Colors are quantized to 16
// levels per channel before counting so that dithering and sprite noise
// collapse into one key. Fully transparent pixels are skipped.
func DominantRGBA(img *image.RGBA) (color.RGBA, float64) {
	counts := make(map[uint32]int)
	b := img.Bounds()
	total := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			p := row[x*4 : x*4+4]
			if p[3] < 16 {
				continue
			}
			key := uint32(p[0]/16)<<8 | uint32(p[1]/16)<<4 | uint32(p[2]/16)
			counts[key]++
			total++
		}
	}
	if total == 0 {
		return color.RGBA{}, 0
	}
	var bestKey uint32
	bestCount := -1
	for key, n := range counts {
		if n > bestCount {
			bestKey, bestCount = key, n
		}
	}
	// Reconstruct the bucket midpoint.
	c := color.RGBA{
		R: uint8((bestKey>>8)&0xf)*16 + 8,
		G: uint8((bestKey>>4)&0xf)*16 + 8,
		B: uint8(bestKey&0xf)*16 + 8,
		A: 255,
	}
	return c, float64(bestCount) / float64(total)
}

// DominantBucket returns the color bucket of an image's dominant color.
func DominantBucket(img *image.RGBA) Bucket {
	c, _ := DominantRGBA(img)
	return BucketOf(c.R, c.G, c.B)
}

// DistanceLab returns the perceptual distance between two colors in CIE Lab
// space. Roughly, values below 10 read as the same color family and values
// above 30 as clearly different.
func DistanceLab(a, b color.RGBA) float64 {
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	return ca.DistanceLab(cb) * 100
}
