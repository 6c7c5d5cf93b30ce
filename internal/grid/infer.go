package grid

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"bonk-scanner/internal/screenshot"
	"bonk-scanner/pkg/geometry"
)

// Detect infers the icon grid within a search region of the frame. It locates
// the UI band, collects vertical edges, and fits a uniform pitch to their
// spacing. The returned parameters may carry any confidence; callers decide
// acceptance via Accepted. ErrNoGrid means there was nothing to fit at all.
func Detect(frame *screenshot.Frame, region geometry.ROI, cfg Config) (*Parameters, error) {
	cfg = cfg.withDefaults()
	region = region.ClampTo(frame.Width, frame.Height)
	if region.Empty() {
		return nil, ErrNoGrid
	}

	band, ok := LocateBand(frame.Gray, region)
	if !ok {
		return nil, ErrNoGrid
	}

	edges := verticalEdges(frame.Gray, region.X, band.Top, region.Width, band.Height(), cfg.MinCell/2)
	if len(edges) < 4 {
		return nil, ErrNoGrid
	}

	return inferPitch(edges, band, region, cfg)
}

// inferPitch fits a uniform column pitch to the detected edge positions.
func inferPitch(edges []int, band Band, region geometry.ROI, cfg Config) (*Parameters, error) {
	gaps := make([]float64, 0, len(edges)-1)
	for i := 1; i < len(edges); i++ {
		g := float64(edges[i] - edges[i-1])
		if g >= float64(cfg.MinCell) && g <= float64(cfg.MaxCell) {
			gaps = append(gaps, g)
		}
	}
	if len(gaps) < 2 {
		return nil, ErrNoGrid
	}

	pitch := modeGap(gaps, 2)
	if pitch <= 0 {
		return nil, ErrNoGrid
	}

	// Spacing regularity over the gaps that agree with the pitch: a clean
	// lattice has near-zero spread around the mode.
	var agreeing []float64
	for _, g := range gaps {
		if math.Abs(g-pitch) <= pitch*0.15 {
			agreeing = append(agreeing, g)
		}
	}
	if len(agreeing) < 2 {
		return nil, ErrNoGrid
	}
	mean, std := stat.MeanStdDev(agreeing, nil)
	regularity := 1 - std/mean
	if regularity < 0 {
		regularity = 0
	}
	// Penalize pitches that only a minority of the gaps support.
	support := float64(len(agreeing)) / float64(len(gaps))
	regularity *= support

	cellW := int(math.Round(mean))
	cellH := cellW
	if band.Height() < cellH {
		cellH = band.Height()
	}

	// Anchor the origin on the first edge that participates in the lattice.
	origin := edges[0]
	for i := 1; i < len(edges); i++ {
		if math.Abs(float64(edges[i]-edges[i-1])-pitch) <= pitch*0.15 {
			origin = edges[i-1]
			break
		}
	}

	columns := (region.X + region.Width - origin) / cellW
	if columns < 1 {
		return nil, ErrNoGrid
	}
	rows := band.Height() / cellH
	if rows < 1 {
		rows = 1
	}

	conf := 0.5*band.Confidence + 0.5*regularity
	if conf > 1 {
		conf = 1
	}

	return &Parameters{
		Columns:    columns,
		Rows:       rows,
		CellW:      cellW,
		CellH:      cellH,
		OriginX:    origin,
		OriginY:    band.Top,
		Confidence: conf,
	}, nil
}

// modeGap buckets gaps with the given pixel tolerance and returns the most
// common one. Each bucket vote also drags the returned value toward the
// bucket's mean so a 47/48/49 spread still yields 48.
func modeGap(gaps []float64, tolerance float64) float64 {
	bestCount := 0
	bestSum := 0.0
	for _, center := range gaps {
		count := 0
		sum := 0.0
		for _, g := range gaps {
			if math.Abs(g-center) <= tolerance {
				count++
				sum += g
			}
		}
		if count > bestCount {
			bestCount = count
			bestSum = sum
		}
	}
	if bestCount == 0 {
		return 0
	}
	return bestSum / float64(bestCount)
}
