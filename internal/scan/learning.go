package scan

import "bonk-scanner/internal/metrics"

// findUncertain collects detections whose confidence falls in the ambiguous
// band, as candidates for the active-learning review queue.
func findUncertain(dets []Detection, band metrics.Band) []metrics.Uncertain {
	var out []metrics.Uncertain
	for _, d := range dets {
		if band.Contains(d.Confidence) {
			out = append(out, metrics.Uncertain{
				EntityID:   d.Entity.ID,
				Name:       d.Entity.Name,
				Confidence: d.Confidence,
				Position:   d.Position,
			})
		}
	}
	return out
}
