package match

import (
	"image"
	"math"
)

// Score computes the similarity of two equally sized grayscale images in
// [0,1]. Callers resample the region to the template's size first; see
// ResizeGray.
func Score(region, tmpl *image.Gray, algo Algorithm) float64 {
	w := tmpl.Bounds().Dx()
	h := tmpl.Bounds().Dy()
	if region.Bounds().Dx() != w || region.Bounds().Dy() != h || w == 0 || h == 0 {
		return 0
	}
	switch algo {
	case AlgoSSD:
		return scoreSSD(region, tmpl, w, h)
	case AlgoSSIM:
		return scoreSSIM(region, tmpl, w, h)
	default:
		return scoreNCC(region, tmpl, w, h)
	}
}

// scoreNCC computes zero-mean normalized cross-correlation, mapped to [0,1]
// by clamping negative correlation to zero.
func scoreNCC(a, b *image.Gray, w, h int) float64 {
	meanA := grayMean(a, w, h)
	meanB := grayMean(b, w, h)

	var num, denA, denB float64
	for y := 0; y < h; y++ {
		rowA := a.Pix[y*a.Stride:]
		rowB := b.Pix[y*b.Stride:]
		for x := 0; x < w; x++ {
			da := float64(rowA[x]) - meanA
			db := float64(rowB[x]) - meanB
			num += da * db
			denA += da * da
			denB += db * db
		}
	}

	if denA == 0 || denB == 0 {
		// Flat input: identical flat pairs correlate perfectly, anything
		// else not at all.
		if denA == 0 && denB == 0 && math.Abs(meanA-meanB) < 2 {
			return 1
		}
		return 0
	}

	r := num / math.Sqrt(denA*denB)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// scoreSSD computes the inverted normalized sum of squared differences.
func scoreSSD(a, b *image.Gray, w, h int) float64 {
	var sum float64
	for y := 0; y < h; y++ {
		rowA := a.Pix[y*a.Stride:]
		rowB := b.Pix[y*b.Stride:]
		for x := 0; x < w; x++ {
			d := float64(rowA[x]) - float64(rowB[x])
			sum += d * d
		}
	}
	norm := sum / (float64(w*h) * 255 * 255)
	s := 1 - norm
	if s < 0 {
		return 0
	}
	return s
}

// SSIM stabilizers for 8-bit dynamic range.
const (
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)
)

// scoreSSIM computes single-window structural similarity.
func scoreSSIM(a, b *image.Gray, w, h int) float64 {
	meanA := grayMean(a, w, h)
	meanB := grayMean(b, w, h)

	var varA, varB, cov float64
	for y := 0; y < h; y++ {
		rowA := a.Pix[y*a.Stride:]
		rowB := b.Pix[y*b.Stride:]
		for x := 0; x < w; x++ {
			da := float64(rowA[x]) - meanA
			db := float64(rowB[x]) - meanB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	n := float64(w*h) - 1
	if n < 1 {
		n = 1
	}
	varA /= n
	varB /= n
	cov /= n

	s := ((2*meanA*meanB + ssimC1) * (2*cov + ssimC2)) /
		((meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2))
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func grayMean(img *image.Gray, w, h int) float64 {
	var sum float64
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			sum += float64(row[x])
		}
	}
	return sum / float64(w*h)
}

// GrayVariance computes the pixel variance of a grayscale image. Near-zero
// variance means a flat region: an empty slot or open background.
func GrayVariance(img *image.Gray) float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	var sum, sum2 float64
	for y := 0; y < h; y++ {
		row := img.Pix[(y+b.Min.Y)*img.Stride:]
		for x := 0; x < w; x++ {
			f := float64(row[x+b.Min.X])
			sum += f
			sum2 += f * f
		}
	}
	n := float64(w * h)
	v := sum2/n - (sum/n)*(sum/n)
	if v < 0 {
		return 0
	}
	return v
}

// ResizeGray resamples a grayscale image to the given size with bilinear
// interpolation. Kept as a plain loop: this runs once per variant per cell
// and dominates the matcher's budget.
func ResizeGray(src *image.Gray, w, h int) *image.Gray {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if sw == 0 || sh == 0 || w == 0 || h == 0 {
		return out
	}
	if sw == w && sh == h {
		for y := 0; y < h; y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+w], src.Pix[(y+sb.Min.Y)*src.Stride+sb.Min.X:])
		}
		return out
	}

	xRatio := float64(sw-1) / float64(max(w-1, 1))
	yRatio := float64(sh-1) / float64(max(h-1, 1))
	for y := 0; y < h; y++ {
		sy := float64(y) * yRatio
		y0 := int(sy)
		y1 := min(y0+1, sh-1)
		fy := sy - float64(y0)
		row0 := src.Pix[(y0+sb.Min.Y)*src.Stride+sb.Min.X:]
		row1 := src.Pix[(y1+sb.Min.Y)*src.Stride+sb.Min.X:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			sx := float64(x) * xRatio
			x0 := int(sx)
			x1 := min(x0+1, sw-1)
			fx := sx - float64(x0)

			top := float64(row0[x0])*(1-fx) + float64(row0[x1])*fx
			bot := float64(row1[x0])*(1-fx) + float64(row1[x1])*fx
			dst[x] = uint8(top*(1-fy) + bot*fy + 0.5)
		}
	}
	return out
}
