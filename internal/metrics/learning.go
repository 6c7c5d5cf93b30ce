package metrics

import "bonk-scanner/pkg/geometry"

// Band is the confidence range treated as "uncertain": high enough to be a
// plausible detection, low enough that a wrong template could have produced
// it. Low is inclusive, High exclusive.
type Band struct {
	Low  float64
	High float64
}

// Contains reports whether conf falls inside the band.
func (b Band) Contains(conf float64) bool {
	return conf >= b.Low && conf < b.High
}

// Uncertain is one detection flagged for user review.
type Uncertain struct {
	EntityID   string       `json:"entity_id"`
	Name       string       `json:"name"`
	Confidence float64      `json:"confidence"`
	Position   geometry.ROI `json:"position"`
}

// ShouldPromptForLearning decides whether a run produced enough uncertainty
// to bother the user with a correction prompt: at least two uncertain
// detections making up at least a quarter of the run's results. A single
// borderline match on a busy screen is noise, not a learning opportunity.
func ShouldPromptForLearning(uncertain, total int) bool {
	if uncertain < 2 || total == 0 {
		return false
	}
	return float64(uncertain)/float64(total) >= 0.25
}

// Correction is the user's verdict on one uncertain detection.
type Correction struct {
	EntityID  string `json:"entity_id"`
	Confirmed bool   `json:"confirmed"`
	ActualID  string `json:"actual_id,omitempty"`
}
