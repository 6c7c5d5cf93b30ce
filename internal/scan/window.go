package scan

import (
	"context"

	"bonk-scanner/internal/screenshot"
	"bonk-scanner/pkg/geometry"
)

// windowScales are the window sizes tried by the exhaustive scanning paths.
// Hotbar icons render between these two sizes at every supported resolution.
var windowScales = []int{48, 64}

// slidingWindow is the fallback when no grid could be inferred: step fixed-
// size windows across the hotbar band at each scale and match every window.
// Overlapping hits on the same icon are collapsed later by NMS.
func (s *Session) slidingWindow(ctx context.Context, frame *screenshot.Frame, band geometry.ROI, threshold float64, parallel bool) []Detection {
	cells := windowCells(band, frame, windowScales, 2)
	return s.matchCells(ctx, frame, cells, threshold, MethodSlidingWindow, parallel)
}

// equipmentScan always runs, independent of hotbar grid success, covering
// the top-left equipment slots with a finer stride than the hotbar fallback.
func (s *Session) equipmentScan(ctx context.Context, frame *screenshot.Frame, threshold float64, parallel bool) []Detection {
	region := s.equipmentRegion(frame)
	cells := windowCells(region, frame, windowScales, 3)
	return s.matchCells(ctx, frame, cells, threshold, MethodEquipmentScan, parallel)
}

// windowCells generates window positions inside region for each scale, with
// a stride of size/strideDiv. Scales larger than the region are skipped.
func windowCells(region geometry.ROI, frame *screenshot.Frame, scales []int, strideDiv int) []geometry.ROI {
	region = region.ClampTo(frame.Width, frame.Height)
	if region.Empty() {
		return nil
	}
	var out []geometry.ROI
	for _, size := range scales {
		if size > region.Width || size > region.Height {
			continue
		}
		stride := size / strideDiv
		if stride < 1 {
			stride = 1
		}
		for y := region.Y; y+size <= region.Y+region.Height; y += stride {
			for x := region.X; x+size <= region.X+region.Width; x += stride {
				out = append(out, geometry.NewROI(x, y, size, size))
			}
		}
	}
	return out
}
