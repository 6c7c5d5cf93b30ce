package scan

import (
	"context"

	"bonk-scanner/internal/grid"
	"bonk-scanner/internal/screenshot"
	"bonk-scanner/pkg/geometry"
)

// matchCell scores one candidate region against the catalog and returns a
// detection when the best match clears the confidence threshold.
func (s *Session) matchCell(frame *screenshot.Frame, cell geometry.ROI, threshold float64, method Method) (Detection, bool) {
	cell = cell.ClampTo(frame.Width, frame.Height)
	if cell.Empty() {
		return Detection{}, false
	}
	sub := frame.Crop(cell)
	best, ok := s.matcher.BestCandidate(sub.Gray, sub.RGBA)
	if !ok || best.Score < threshold {
		return Detection{}, false
	}
	return Detection{
		Type:       best.Entity.Kind,
		Entity:     best.Entity,
		Confidence: best.Score,
		Position:   cell,
		Method:     method,
		Scale:      best.Scale,
	}, true
}

// matchCells scores every candidate cell, serially or on the legacy worker
// pool. Both paths produce the same detections in the same order.
func (s *Session) matchCells(ctx context.Context, frame *screenshot.Frame, cells []geometry.ROI, threshold float64, method Method, parallel bool) []Detection {
	if parallel && len(cells) > 1 {
		return s.matchCellsParallel(ctx, frame, cells, threshold, method)
	}
	out := make([]Detection, 0, len(cells))
	for _, cell := range cells {
		if det, ok := s.matchCell(frame, cell, threshold, method); ok {
			out = append(out, det)
		}
	}
	return out
}

// matchGrid scores every cell of an accepted grid.
func (s *Session) matchGrid(ctx context.Context, frame *screenshot.Frame, params *grid.Parameters, threshold float64, parallel bool) []Detection {
	return s.matchCells(ctx, frame, params.Cells(), threshold, MethodTemplateMatch, parallel)
}
