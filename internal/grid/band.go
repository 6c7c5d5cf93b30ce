package grid

import (
	"image"

	"bonk-scanner/pkg/geometry"
)

// Band is the vertical extent of a UI strip within the searched region,
// with a confidence describing how cleanly it separated from the game world
// behind it.
type Band struct {
	Top        int
	Bottom     int
	Confidence float64
}

// Height returns the band height in pixels.
func (b Band) Height() int {
	return b.Bottom - b.Top
}

const minBandHeight = 24

// LocateBand finds the hotbar strip inside a search region by scanning rows
// for elevated color variance and edge density. UI strips are busy (icon art,
// borders, counters) while the world behind them averages out smoother, so
// the two populations separate on a per-row activity score.
func LocateBand(gray *image.Gray, region geometry.ROI) (Band, bool) {
	region = region.ClampTo(gray.Bounds().Dx(), gray.Bounds().Dy())
	if region.Height < minBandHeight {
		return Band{}, false
	}

	scores := make([]float64, region.Height)
	for y := 0; y < region.Height; y++ {
		scores[y] = rowActivity(gray, region.X, region.Y+y, region.Width)
	}

	threshold := gapThreshold(scores)
	if threshold <= 0 {
		return Band{}, false
	}

	// Longest contiguous run of elevated rows, tolerating single-row dips.
	bestStart, bestLen := -1, 0
	runStart, dips := -1, 0
	for y := 0; y < len(scores); y++ {
		if scores[y] > threshold {
			if runStart < 0 {
				runStart = y
				dips = 0
			}
		} else if runStart >= 0 {
			dips++
			if dips > 1 {
				if y-dips-runStart > bestLen {
					bestStart, bestLen = runStart, y-dips-runStart+1
				}
				runStart = -1
			}
		}
	}
	if runStart >= 0 && len(scores)-runStart > bestLen {
		bestStart, bestLen = runStart, len(scores)-runStart
	}

	if bestStart < 0 || bestLen < minBandHeight {
		return Band{}, false
	}

	// Confidence: how much of the run is genuinely elevated, scaled by how
	// much of the searched region the band occupies (a band that swallows
	// the whole region separated nothing).
	elevated := 0
	for y := bestStart; y < bestStart+bestLen; y++ {
		if scores[y] > threshold {
			elevated++
		}
	}
	density := float64(elevated) / float64(bestLen)
	coverage := float64(bestLen) / float64(region.Height)
	conf := density
	if coverage > 0.9 {
		conf *= 0.5
	}
	if conf > 1 {
		conf = 1
	}

	return Band{
		Top:        region.Y + bestStart,
		Bottom:     region.Y + bestStart + bestLen,
		Confidence: conf,
	}, true
}

// rowActivity scores one row by gray variance plus horizontal edge density.
func rowActivity(gray *image.Gray, x0, y, width int) float64 {
	row := gray.Pix[y*gray.Stride:]
	var sum, sum2 float64
	edges := 0
	prev := int(row[x0])
	for x := x0; x < x0+width; x++ {
		v := int(row[x])
		f := float64(v)
		sum += f
		sum2 += f * f
		if d := v - prev; d > 24 || d < -24 {
			edges++
		}
		prev = v
	}
	n := float64(width)
	variance := sum2/n - (sum/n)*(sum/n)
	if variance < 0 {
		variance = 0
	}
	return variance + float64(edges)*8
}

// gapThreshold separates a bimodal score population at the midpoint of the
// widest empty stretch of its histogram, preferring the split that leaves
// the most balanced sides. Returns 0 when the scores never separate.
func gapThreshold(scores []float64) float64 {
	maxScore := 0.0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if maxScore == 0 {
		return 0
	}

	var hist [256]int
	for _, s := range scores {
		q := int(s / maxScore * 255)
		if q > 255 {
			q = 255
		}
		hist[q]++
	}

	bestLo, bestHi := -1, -1
	bestMinSide := 0
	gapStart := -1
	for b := 0; b < 256; b++ {
		if hist[b] == 0 {
			if gapStart < 0 {
				gapStart = b
			}
			continue
		}
		if gapStart >= 0 {
			lo, hi := 0, 0
			for bb := 0; bb < gapStart; bb++ {
				lo += hist[bb]
			}
			for bb := b; bb < 256; bb++ {
				hi += hist[bb]
			}
			minSide := lo
			if hi < minSide {
				minSide = hi
			}
			if lo > 0 && hi > 0 && minSide > bestMinSide {
				bestMinSide = minSide
				bestLo, bestHi = gapStart, b
			}
			gapStart = -1
		}
	}

	if bestLo < 0 {
		return 0
	}
	mid := float64(bestLo+bestHi) / 2
	return mid / 255 * maxScore
}
