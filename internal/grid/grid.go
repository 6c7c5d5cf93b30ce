// Package grid infers the regular icon lattice of an inventory strip from
// pixel statistics. Detection is best-effort: callers gate on the returned
// confidence and fall back to windowed scanning when the grid is unusable.
package grid

import (
	"errors"
	"fmt"

	"bonk-scanner/pkg/geometry"
)

// ErrNoGrid is returned when no icon lattice could be inferred at all. A weak
// but present lattice is returned with a low confidence instead.
var ErrNoGrid = errors.New("grid: no lattice found")

// Parameters describes one inferred icon grid. Derived per run and never
// mutated after creation.
type Parameters struct {
	Columns    int     `json:"columns"`
	Rows       int     `json:"rows"`
	CellW      int     `json:"cell_w"`
	CellH      int     `json:"cell_h"`
	OriginX    int     `json:"origin_x"`
	OriginY    int     `json:"origin_y"`
	Confidence float64 `json:"confidence"`
}

// Accepted reports whether the grid clears the orchestrator's gate: enough
// confidence and at least minColumns columns.
func (p *Parameters) Accepted(minConfidence float64, minColumns int) bool {
	if p == nil {
		return false
	}
	return p.Confidence >= minConfidence && p.Columns >= minColumns
}

// Cells enumerates the grid's cell regions row-major, labeled by position.
func (p *Parameters) Cells() []geometry.ROI {
	cells := make([]geometry.ROI, 0, p.Rows*p.Columns)
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Columns; c++ {
			cells = append(cells, geometry.ROI{
				X:      p.OriginX + c*p.CellW,
				Y:      p.OriginY + r*p.CellH,
				Width:  p.CellW,
				Height: p.CellH,
				Label:  fmt.Sprintf("cell_%d_%d", r, c),
			})
		}
	}
	return cells
}

// Config bounds the lattice search. Zero values select the defaults.
type Config struct {
	MinCell int // smallest plausible icon pitch in px
	MaxCell int // largest plausible icon pitch in px
}

func (c Config) withDefaults() Config {
	if c.MinCell <= 0 {
		c.MinCell = 24
	}
	if c.MaxCell <= 0 {
		c.MaxCell = 128
	}
	return c
}
