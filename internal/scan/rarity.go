package scan

import (
	"image"
	"image/color"

	"bonk-scanner/internal/screenshot"
	"bonk-scanner/pkg/colorutil"
	"bonk-scanner/pkg/geometry"
)

// validateRarity cross-checks each detection's border ring against the color
// of its catalog-declared rarity tier and drops mismatches. It is a pure
// filter: surviving detections keep their confidence unchanged, so running
// it twice over the same frame yields the same list. Detections whose ring
// has no coherent dominant color, or whose entity has no known rarity, pass
// through unchecked.
func (s *Session) validateRarity(frame *screenshot.Frame, dets []Detection) ([]Detection, int, int) {
	kept := make([]Detection, 0, len(dets))
	accepted, rejected := 0, 0
	for _, d := range dets {
		rarity := d.Entity.Rarity
		if !rarity.Valid() {
			kept = append(kept, d)
			continue
		}
		border, ok := borderColor(frame, d.Position)
		if !ok {
			kept = append(kept, d)
			continue
		}
		if dist := colorutil.DistanceLab(border, rarity.BorderColor()); dist > s.cfg.RarityTolerance {
			rejected++
			s.log.Debug("rarity border mismatch, dropping detection",
				"entity", d.Entity.ID, "rarity", string(rarity), "distance", dist)
			continue
		}
		accepted++
		kept = append(kept, d)
	}
	return kept, accepted, rejected
}

const (
	borderInset = 1 // pixels skipped before the ring starts
	borderRing  = 2 // ring thickness sampled
)

// borderColor samples the thin ring just inside the detection rectangle and
// returns its dominant color. The second return is false when the rectangle
// is too small to hold a ring or the ring has no dominant color worth
// comparing against.
func borderColor(frame *screenshot.Frame, pos geometry.ROI) (color.RGBA, bool) {
	pos = pos.ClampTo(frame.Width, frame.Height)
	margin := borderInset + borderRing
	if pos.Width <= 2*margin || pos.Height <= 2*margin {
		return color.RGBA{}, false
	}

	x0, y0 := pos.X, pos.Y
	x1, y1 := pos.X+pos.Width, pos.Y+pos.Height
	var px []color.RGBA
	for b := borderInset; b < margin; b++ {
		for x := x0 + borderInset; x < x1-borderInset; x++ {
			px = append(px, frame.RGBA.RGBAAt(x, y0+b), frame.RGBA.RGBAAt(x, y1-1-b))
		}
		for y := y0 + margin; y < y1-margin; y++ {
			px = append(px, frame.RGBA.RGBAAt(x0+b, y), frame.RGBA.RGBAAt(x1-1-b, y))
		}
	}
	if len(px) == 0 {
		return color.RGBA{}, false
	}

	strip := image.NewRGBA(image.Rect(0, 0, len(px), 1))
	for i, c := range px {
		strip.SetRGBA(i, 0, c)
	}
	dom, share := colorutil.DominantRGBA(strip)
	if share < 0.25 {
		return color.RGBA{}, false
	}
	return dom, true
}
