// Package match scores screen regions against item templates. Three
// interchangeable pixel-similarity algorithms run over grayscale planes;
// multi-scale and multi-variant handling sit on top of them.
package match

import "fmt"

// Algorithm selects the pixel-similarity measure.
type Algorithm int

const (
	// AlgoNCC is zero-mean normalized cross-correlation. Robust to uniform
	// brightness shifts, the default for in-game captures.
	AlgoNCC Algorithm = iota
	// AlgoSSD is inverted normalized sum of squared differences. Fastest,
	// but sensitive to brightness.
	AlgoSSD
	// AlgoSSIM is structural similarity. Most tolerant of local contrast
	// and texture differences, and the most expensive.
	AlgoSSIM
)

// String returns the algorithm's configuration name.
func (a Algorithm) String() string {
	switch a {
	case AlgoNCC:
		return "ncc"
	case AlgoSSD:
		return "ssd"
	case AlgoSSIM:
		return "ssim"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// ParseAlgorithm maps a configuration name to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "ncc", "":
		return AlgoNCC, nil
	case "ssd":
		return AlgoSSD, nil
	case "ssim":
		return AlgoSSIM, nil
	default:
		return AlgoNCC, fmt.Errorf("unknown match algorithm %q", s)
	}
}
