// Package scan drives the end-to-end recognition pipeline: decode the
// screenshot, find the hotbar grid (or fall back to windowed scanning), match
// cells against the template store, then dedupe, verify, boost, and validate
// the detections before caching the final list.
package scan

import (
	"bonk-scanner/internal/catalog"
	"bonk-scanner/pkg/geometry"
)

// Method records which pipeline path produced a detection.
type Method string

const (
	MethodTemplateMatch Method = "template_match"
	MethodSlidingWindow Method = "sliding_window"
	MethodEquipmentScan Method = "equipment_scan"
	MethodEnsemble      Method = "ensemble"
)

// Detection is one recognized catalog entity in the screenshot. Later
// pipeline stages drop detections rather than rewriting them; only the
// confidence and stack-count fields are filled in after creation.
type Detection struct {
	Type       catalog.Kind   `json:"type"`
	Entity     catalog.Entity `json:"entity"`
	Confidence float64        `json:"confidence"`
	Position   geometry.ROI   `json:"position"`
	Method     Method         `json:"method"`
	Scale      int            `json:"scale,omitempty"`

	// Stack badge, when the OCR pass found one. Zero means no badge read.
	StackCount      int     `json:"stack_count,omitempty"`
	CountConfidence float64 `json:"count_confidence,omitempty"`
}

// Request carries one pipeline invocation's inputs.
type Request struct {
	// ImageData is the screenshot as base64-encoded PNG/JPEG/WebP bytes,
	// with or without a data-URI prefix.
	ImageData string

	// Progress, when set, receives coarse phase updates as the run advances.
	Progress func(percent int, phase string)

	// Parallel enables the legacy worker-pool matching path.
	Parallel bool
}
