package scan

import (
	"context"

	"bonk-scanner/internal/screenshot"
	"bonk-scanner/pkg/geometry"
)

// badgeBrightRatio is the fraction of bright pixels the bottom-right corner
// must carry before we bother running OCR on it. Stack badges render light
// digits, so a corner without bright pixels cannot hold one.
const badgeBrightRatio = 0.08

// detectCounts runs OCR over the stack badges of hotbar detections, filling
// StackCount and CountConfidence in place. Failures are per-cell: an
// unreadable badge leaves the detection without a count and never aborts
// the run.
func (s *Session) detectCounts(ctx context.Context, frame *screenshot.Frame, dets []Detection) {
	for i := range dets {
		d := &dets[i]
		// Equipment slots never stack.
		if d.Method == MethodEquipmentScan {
			continue
		}
		badge := badgeRegion(d.Position).ClampTo(frame.Width, frame.Height)
		if badge.Empty() || !hasBadgeCorner(frame, badge) {
			continue
		}
		count, conf, err := s.counter.ReadCount(ctx, screenshot.CropRGBA(frame.RGBA, badge))
		if err != nil {
			s.log.Debug("stack count unreadable", "entity", d.Entity.ID, "error", err)
			continue
		}
		d.StackCount = count
		d.CountConfidence = conf
	}
}

// badgeRegion is the bottom-right quadrant of a detection, where the game
// renders the stack-count badge.
func badgeRegion(pos geometry.ROI) geometry.ROI {
	return geometry.ROI{
		X:      pos.X + pos.Width/2,
		Y:      pos.Y + pos.Height/2,
		Width:  pos.Width - pos.Width/2,
		Height: pos.Height - pos.Height/2,
		Label:  "badge",
	}
}

// hasBadgeCorner reports whether the region holds enough bright pixels to
// plausibly contain badge digits.
func hasBadgeCorner(frame *screenshot.Frame, r geometry.ROI) bool {
	const bright = 200
	if r.Empty() {
		return false
	}
	hits := 0
	for y := r.Y; y < r.Y+r.Height; y++ {
		for x := r.X; x < r.X+r.Width; x++ {
			if frame.Gray.GrayAt(x, y).Y >= bright {
				hits++
			}
		}
	}
	return float64(hits)/float64(r.Area()) >= badgeBrightRatio
}
