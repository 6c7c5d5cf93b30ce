package scan

import "sort"

// Suppress performs greedy non-max suppression: detections are visited in
// descending confidence order (ties keep insertion order) and any lower-
// ranked detection overlapping an accepted one by more than overlap is
// discarded. Overlap is intersection over the smaller rectangle, so a small
// box sitting inside a larger one is treated as the same icon.
func Suppress(dets []Detection, overlap float64) []Detection {
	if len(dets) <= 1 {
		return dets
	}

	order := make([]int, len(dets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dets[order[a]].Confidence > dets[order[b]].Confidence
	})

	removed := make([]bool, len(dets))
	kept := make([]Detection, 0, len(dets))
	for _, i := range order {
		if removed[i] {
			continue
		}
		kept = append(kept, dets[i])
		for _, j := range order {
			if j == i || removed[j] {
				continue
			}
			if dets[i].Position.OverlapRatio(dets[j].Position) > overlap {
				removed[j] = true
			}
		}
	}
	return kept
}
