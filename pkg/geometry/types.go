// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// PointInt represents a 2D point with integer coordinates.
type PointInt struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ToFloat converts to Point2D.
func (p PointInt) ToFloat() Point2D {
	return Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// ROI is a rectangular region of interest in image-pixel space. The label is
// informational only and takes no part in equality or overlap computations.
type ROI struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Label  string `json:"label,omitempty"`
}

// NewROI creates a new ROI without a label.
func NewROI(x, y, width, height int) ROI {
	return ROI{X: x, Y: y, Width: width, Height: height}
}

// Empty reports whether the region has no area.
func (r ROI) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Area returns the region's area in pixels.
func (r ROI) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Center returns the center point of the region.
func (r ROI) Center() Point2D {
	return Point2D{X: float64(r.X) + float64(r.Width)/2, Y: float64(r.Y) + float64(r.Height)/2}
}

// Contains returns true if the point is inside the region.
func (r ROI) Contains(p PointInt) bool {
	return p.X >= r.X && p.X < r.X+r.Width &&
		p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Intersects returns true if this region intersects with another.
func (r ROI) Intersects(other ROI) bool {
	return r.X < other.X+other.Width && r.X+r.Width > other.X &&
		r.Y < other.Y+other.Height && r.Y+r.Height > other.Y
}

// Intersect returns the overlapping region of two ROIs. The result is empty
// when they do not intersect.
func (r ROI) Intersect(other ROI) ROI {
	x1 := max(r.X, other.X)
	y1 := max(r.Y, other.Y)
	x2 := min(r.X+r.Width, other.X+other.Width)
	y2 := min(r.Y+r.Height, other.Y+other.Height)
	if x2 <= x1 || y2 <= y1 {
		return ROI{}
	}
	return ROI{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Union returns the smallest region containing both ROIs.
func (r ROI) Union(other ROI) ROI {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	x1 := min(r.X, other.X)
	y1 := min(r.Y, other.Y)
	x2 := max(r.X+r.Width, other.X+other.Width)
	y2 := max(r.Y+r.Height, other.Y+other.Height)
	return ROI{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// OverlapRatio returns the intersection area divided by the smaller of the two
// region areas. Two identical regions score 1.0, disjoint regions 0.0. The
// min-area convention makes a small box fully inside a large one count as a
// full overlap, which is what duplicate suppression wants.
func (r ROI) OverlapRatio(other ROI) float64 {
	inter := r.Intersect(other).Area()
	if inter == 0 {
		return 0
	}
	smaller := min(r.Area(), other.Area())
	if smaller == 0 {
		return 0
	}
	return float64(inter) / float64(smaller)
}

// ClampTo restricts the region to lie inside a width×height image, shrinking
// it as needed. Regions entirely outside come back empty.
func (r ROI) ClampTo(width, height int) ROI {
	x1 := max(r.X, 0)
	y1 := max(r.Y, 0)
	x2 := min(r.X+r.Width, width)
	y2 := min(r.Y+r.Height, height)
	if x2 <= x1 || y2 <= y1 {
		return ROI{Label: r.Label}
	}
	return ROI{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1, Label: r.Label}
}

// Scaled returns the region scaled by a factor around its own origin.
func (r ROI) Scaled(factor float64) ROI {
	return ROI{
		X:      int(math.Round(float64(r.X) * factor)),
		Y:      int(math.Round(float64(r.Y) * factor)),
		Width:  int(math.Round(float64(r.Width) * factor)),
		Height: int(math.Round(float64(r.Height) * factor)),
		Label:  r.Label,
	}
}

// BoundingBox computes the axis-aligned bounding box of a set of ROIs.
func BoundingBox(regions []ROI) ROI {
	if len(regions) == 0 {
		return ROI{}
	}
	box := regions[0]
	for _, r := range regions[1:] {
		box = box.Union(r)
	}
	return box
}
