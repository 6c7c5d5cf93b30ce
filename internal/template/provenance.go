package template

import "strings"

// Provenance records how a template variant was obtained. Variants from
// better-vetted sources weigh more during matching, so a ground-truth crop
// can outvote an auto-scraped icon that happens to score similarly.
type Provenance string

const (
	ProvenanceGroundTruth Provenance = "ground_truth" // hand-labeled crop from a real screenshot
	ProvenanceCorrected   Provenance = "corrected"    // user corrected a wrong detection
	ProvenanceVerified    Provenance = "verified"     // user confirmed an uncertain detection
	ProvenanceUnreviewed  Provenance = "unreviewed"   // auto-captured, never reviewed
	ProvenanceDefault     Provenance = "default"      // catalog icon asset
)

// Weight returns the matching weight for this provenance level.
func (p Provenance) Weight() float64 {
	switch p {
	case ProvenanceGroundTruth:
		return 1.0
	case ProvenanceCorrected:
		return 0.95
	case ProvenanceVerified:
		return 0.9
	case ProvenanceUnreviewed:
		return 0.75
	default:
		return 0.6
	}
}

// ParseProvenance normalizes a provenance string; unknown values map to the
// default level.
func ParseProvenance(s string) Provenance {
	switch Provenance(strings.ToLower(strings.TrimSpace(s))) {
	case ProvenanceGroundTruth:
		return ProvenanceGroundTruth
	case ProvenanceCorrected:
		return ProvenanceCorrected
	case ProvenanceVerified:
		return ProvenanceVerified
	case ProvenanceUnreviewed:
		return ProvenanceUnreviewed
	default:
		return ProvenanceDefault
	}
}
