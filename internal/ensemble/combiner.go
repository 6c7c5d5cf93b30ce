package ensemble

import (
	"context"
	"image"

	"bonk-scanner/internal/catalog"
	"bonk-scanner/internal/conf"
	"bonk-scanner/internal/grid"
	"bonk-scanner/internal/match"
	"bonk-scanner/internal/scan"
	"bonk-scanner/internal/screenshot"
	"bonk-scanner/internal/template"
	"bonk-scanner/pkg/geometry"
)

// StrategyDetection is one strategy's best match for a cell, with its
// confidence already scaled by the strategy weight. Scoped to a single
// combination call.
type StrategyDetection struct {
	Strategy   Strategy
	Entity     catalog.Entity
	Confidence float64
	Scale      int
}

// Result is the merged verdict for one cell.
type Result struct {
	Entity     catalog.Entity
	Confidence float64
	Scale      int
	Strategy   Strategy // strategy that produced the winning confidence
}

// Combiner runs several strategies per cell and merges their detections.
type Combiner struct {
	store    *template.Store
	matchers map[Strategy]*match.Matcher
	cfg      conf.ScanSettings
}

// NewCombiner builds one matcher per strategy over the shared store.
func NewCombiner(store *template.Store, cfg conf.ScanSettings) *Combiner {
	c := &Combiner{
		store:    store,
		matchers: make(map[Strategy]*match.Matcher, len(allStrategies)),
		cfg:      cfg,
	}
	for _, st := range allStrategies {
		sc := st.Config()
		c.matchers[st] = match.New(store, match.Config{
			Algorithm:     sc.Algorithm,
			VarianceFloor: cfg.VarianceFloor,
			SkipWeak:      sc.SkipWeak,
		})
	}
	return c
}

// ScanCell runs the given strategies over one cell in priority order. Each
// strategy's best confidence is scaled by its weight, and the loop exits
// early once a weighted confidence reaches the configured cutoff.
func (c *Combiner) ScanCell(gray *image.Gray, rgba *image.RGBA, strategies []Strategy) (Result, bool) {
	var per []StrategyDetection
	for _, st := range strategies {
		sc := st.Config()
		best, ok := c.matchers[st].BestCandidate(gray, rgba)
		if !ok || best.Score < sc.Threshold {
			continue
		}
		weighted := best.Score * sc.Weight
		per = append(per, StrategyDetection{
			Strategy:   st,
			Entity:     best.Entity,
			Confidence: weighted,
			Scale:      best.Scale,
		})
		if weighted >= c.cfg.EarlyExit {
			break
		}
	}
	return Combine(per)
}

// Combine merges per-strategy detections for one cell by weighted max. Ties
// keep the earlier (higher-priority) strategy.
func Combine(per []StrategyDetection) (Result, bool) {
	if len(per) == 0 {
		return Result{}, false
	}
	best := per[0]
	for _, sd := range per[1:] {
		if sd.Confidence > best.Confidence {
			best = sd
		}
	}
	return Result{
		Entity:     best.Entity,
		Confidence: best.Confidence,
		Scale:      best.Scale,
		Strategy:   best.Strategy,
	}, true
}

// ScanCells applies the resolution-selected strategies to each candidate
// cell of a frame and returns deduplicated detections tagged with the
// ensemble method.
func (c *Combiner) ScanCells(frame *screenshot.Frame, cells []geometry.ROI) []scan.Detection {
	strategies := SelectStrategies(frame.Width, frame.Height)
	var out []scan.Detection
	for _, cell := range cells {
		cell = cell.ClampTo(frame.Width, frame.Height)
		if cell.Empty() {
			continue
		}
		sub := frame.Crop(cell)
		res, ok := c.ScanCell(sub.Gray, sub.RGBA, strategies)
		if !ok {
			continue
		}
		out = append(out, scan.Detection{
			Type:       res.Entity.Kind,
			Entity:     res.Entity,
			Confidence: res.Confidence,
			Position:   cell,
			Method:     scan.MethodEnsemble,
			Scale:      res.Scale,
		})
	}
	return scan.Suppress(out, c.cfg.NMSOverlap)
}

// Scan runs the ensemble over a frame's hotbar band. It is an alternate
// entry to the session pipeline and shares only the store and matchers:
// no result cache, no run lock. Grid cells are used when the band carries
// an accepted lattice, coarse fixed windows otherwise.
func (c *Combiner) Scan(ctx context.Context, frame *screenshot.Frame) ([]scan.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bandH := int(float64(frame.Height) * c.cfg.BandFraction)
	band := geometry.ROI{X: 0, Y: frame.Height - bandH, Width: frame.Width, Height: bandH, Label: "hotbar"}

	cells := c.bandCells(frame, band)
	return c.ScanCells(frame, cells), nil
}

// bandCells prefers grid cells and falls back to half-cell-stride fixed
// windows across the band.
func (c *Combiner) bandCells(frame *screenshot.Frame, band geometry.ROI) []geometry.ROI {
	params, err := grid.Detect(frame, band, grid.Config{MinCell: c.cfg.MinCell, MaxCell: c.cfg.MaxCell})
	if err == nil && params.Accepted(c.cfg.GridFloor, c.cfg.MinColumns) {
		return params.Cells()
	}

	const size = 64
	var cells []geometry.ROI
	for y := band.Y; y+size <= band.Y+band.Height; y += size / 2 {
		for x := band.X; x+size <= band.X+band.Width; x += size / 2 {
			cells = append(cells, geometry.NewROI(x, y, size, size))
		}
	}
	return cells
}
