package match

import (
	"image"

	"bonk-scanner/internal/catalog"
	"bonk-scanner/internal/template"
	"bonk-scanner/pkg/colorutil"
)

// Config tunes a Matcher. Zero values select the defaults.
type Config struct {
	Algorithm     Algorithm
	VarianceFloor float64 // regions flatter than this are treated as empty
	SkipWeak      bool    // skip templates flagged as historically weak
}

const defaultVarianceFloor = 800

// Matcher scores cells against the template store's variants. It holds no
// per-run state and is safe for concurrent use.
type Matcher struct {
	store *template.Store
	cfg   Config
}

// New creates a matcher over a template store.
func New(store *template.Store, cfg Config) *Matcher {
	if cfg.VarianceFloor <= 0 {
		cfg.VarianceFloor = defaultVarianceFloor
	}
	return &Matcher{store: store, cfg: cfg}
}

// Store returns the matcher's template store.
func (m *Matcher) Store() *template.Store {
	return m.store
}

// Algorithm returns the configured similarity algorithm.
func (m *Matcher) Algorithm() Algorithm {
	return m.cfg.Algorithm
}

// PreFilter reports whether a region is worth matching at all. Near-uniform
// regions (empty slots, bare background) fail the variance floor.
func (m *Matcher) PreFilter(region *image.Gray) bool {
	return GrayVariance(region) >= m.cfg.VarianceFloor
}

// scaleBias nudges per-scale scores: heavily pixelated 32px templates
// over-match noise, while the mid scales are where icons actually render.
func scaleBias(size int) float64 {
	switch {
	case size <= 32:
		return -0.05
	case size <= 64:
		return 0.03
	default:
		return 0
	}
}

// ScoreEntity matches a region against every variant of one entity across
// the scale ladder and the training corpus. Provenance-weighted, bias-
// adjusted scores pick the winning variant; the winner's raw similarity is
// returned so confidences stay comparable across entities. The second return
// is the winning variant's scale.
func (m *Matcher) ScoreEntity(region *image.Gray, entityID string) (float64, int) {
	tmpl := m.store.Get(entityID)
	if tmpl == nil {
		return 0, 0
	}

	best := 0.0
	bestWeighted := -1.0
	bestScale := 0

	score := func(v *template.Variant) {
		resized := ResizeGray(region, v.Size, v.Size)
		raw := Score(resized, v.Gray, m.cfg.Algorithm)
		adjusted := raw + scaleBias(v.Size)
		if adjusted < 0 {
			adjusted = 0
		} else if adjusted > 1 {
			adjusted = 1
		}
		weighted := adjusted * v.Weight()
		if weighted > bestWeighted {
			bestWeighted = weighted
			best = raw
			bestScale = v.Size
		}
	}

	for i := range tmpl.Variants {
		score(&tmpl.Variants[i])
	}
	for _, v := range m.store.TrainingVariants(entityID) {
		score(&v)
	}

	return best, bestScale
}

// Best is the strongest entity match found for one region.
type Best struct {
	Entity catalog.Entity
	Score  float64
	Scale  int
}

// BestCandidate finds the best-matching entity for a cell. The RGBA plane
// narrows candidates by dominant color before any pixel comparison; the gray
// plane feeds the variance pre-filter and the scorers. Returns false when
// the cell is empty or nothing scores above zero.
func (m *Matcher) BestCandidate(cellGray *image.Gray, cellRGBA *image.RGBA) (Best, bool) {
	if !m.PreFilter(cellGray) {
		return Best{}, false
	}

	bucket := colorutil.DominantBucket(cellRGBA)
	candidates := m.store.CandidatesByColor(bucket)

	var best Best
	for _, e := range candidates {
		if m.cfg.SkipWeak && m.store.IsWeak(e.ID) {
			continue
		}
		score, scale := m.ScoreEntity(cellGray, e.ID)
		if score > best.Score {
			best = Best{Entity: e, Score: score, Scale: scale}
		}
	}

	if best.Score <= 0 {
		return Best{}, false
	}
	return best, true
}
