package grid

import (
	"image"
	"sort"
)

// verticalEdges finds the x positions of strong vertical edges inside a band:
// columns where the summed horizontal gradient spikes, as icon borders do.
// Peaks closer together than minGap collapse into the strongest one.
func verticalEdges(gray *image.Gray, x0, top, width, height, minGap int) []int {
	if width < 3 || height <= 0 {
		return nil
	}

	// Column gradient profile across the band.
	profile := make([]float64, width)
	for y := top; y < top+height; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 1; x < width; x++ {
			d := int(row[x0+x]) - int(row[x0+x-1])
			if d < 0 {
				d = -d
			}
			profile[x] += float64(d)
		}
	}

	// Light smoothing so a 2px border reads as one peak.
	smoothed := make([]float64, width)
	smoothed[0] = profile[0]
	smoothed[width-1] = profile[width-1]
	for x := 1; x < width-1; x++ {
		smoothed[x] = (profile[x-1] + profile[x] + profile[x+1]) / 3
	}

	threshold := gapThreshold(smoothed)
	if threshold <= 0 {
		return nil
	}

	// Local maxima above threshold, strongest first.
	type peak struct {
		x     int
		score float64
	}
	var peaks []peak
	for x := 1; x < width-1; x++ {
		if smoothed[x] > threshold && smoothed[x] >= smoothed[x-1] && smoothed[x] >= smoothed[x+1] {
			peaks = append(peaks, peak{x: x, score: smoothed[x]})
		}
	}
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].score != peaks[j].score {
			return peaks[i].score > peaks[j].score
		}
		return peaks[i].x < peaks[j].x
	})

	// Greedy min-separation selection.
	var selected []int
	for _, p := range peaks {
		ok := true
		for _, s := range selected {
			d := p.x - s
			if d < 0 {
				d = -d
			}
			if d < minGap {
				ok = false
				break
			}
		}
		if ok {
			selected = append(selected, p.x)
		}
	}
	sort.Ints(selected)

	for i := range selected {
		selected[i] += x0
	}
	return selected
}
