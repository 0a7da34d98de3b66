// Package extent describes the axis-aligned bounding rectangle of a feature
// layer and the operations the grid builder needs on it.
package extent

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
)

var (
	// ErrEmpty is returned when a layer contains no geometry to bound.
	ErrEmpty = errors.New("extent: layer has no features")
	// ErrDegenerate is returned when an extent has zero or negative width or height.
	ErrDegenerate = errors.New("extent: width and height must be positive")
	// ErrNotFinite is returned when a bound is NaN or infinite.
	ErrNotFinite = errors.New("extent: bounds must be finite")
)

// Extent is a bounding rectangle in layer coordinates. Y grows upward.
type Extent struct {
	XMin float64 `json:"xmin" yaml:"xmin"`
	YMin float64 `json:"ymin" yaml:"ymin"`
	XMax float64 `json:"xmax" yaml:"xmax"`
	YMax float64 `json:"ymax" yaml:"ymax"`
}

// Width returns XMax - XMin.
func (e Extent) Width() float64 { return e.XMax - e.XMin }

// Height returns YMax - YMin.
func (e Extent) Height() float64 { return e.YMax - e.YMin }

// UpperLeft returns the grid origin. Cells are laid out right and down from it.
func (e Extent) UpperLeft() geom.Point { return geom.Point{X: e.XMin, Y: e.YMax} }

// Center returns the midpoint of the rectangle.
func (e Extent) Center() geom.Point {
	return geom.Point{X: (e.XMin + e.XMax) / 2, Y: (e.YMin + e.YMax) / 2}
}

// Validate checks that the extent can be divided into cells.
func (e Extent) Validate() error {
	for _, v := range []float64{e.XMin, e.YMin, e.XMax, e.YMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s", ErrNotFinite, e)
		}
	}
	if e.XMax <= e.XMin || e.YMax <= e.YMin {
		return fmt.Errorf("%w: %s", ErrDegenerate, e)
	}
	return nil
}

// Intersects reports whether the two rectangles share any area or edge.
func (e Extent) Intersects(o Extent) bool {
	return e.XMin <= o.XMax && o.XMin <= e.XMax && e.YMin <= o.YMax && o.YMin <= e.YMax
}

// Overlaps reports whether the rectangles share interior area. A zero-area
// rectangle overlaps e when it lies strictly inside it.
func (e Extent) Overlaps(o Extent) bool {
	return e.XMin < o.XMax && o.XMin < e.XMax && e.YMin < o.YMax && o.YMin < e.YMax
}

// Bounds converts the extent to a ctessum geometry bounds.
func (e Extent) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: e.XMin, Y: e.YMin},
		Max: geom.Point{X: e.XMax, Y: e.YMax},
	}
}

// String formats the extent in the same order Parse accepts.
func (e Extent) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", e.XMin, e.YMin, e.XMax, e.YMax)
}

// FromBounds converts geometry bounds to an Extent. Nil bounds yield ErrEmpty.
func FromBounds(b *geom.Bounds) (Extent, error) {
	if b == nil {
		return Extent{}, ErrEmpty
	}
	return Extent{XMin: b.Min.X, YMin: b.Min.Y, XMax: b.Max.X, YMax: b.Max.Y}, nil
}

// Union returns the smallest extent covering both a and b.
func Union(a, b Extent) Extent {
	return Extent{
		XMin: math.Min(a.XMin, b.XMin),
		YMin: math.Min(a.YMin, b.YMin),
		XMax: math.Max(a.XMax, b.XMax),
		YMax: math.Max(a.YMax, b.YMax),
	}
}

// UnionAll folds a slice of extents. An empty slice yields ErrEmpty.
func UnionAll(all []Extent) (Extent, error) {
	if len(all) == 0 {
		return Extent{}, ErrEmpty
	}
	out := all[0]
	for _, e := range all[1:] {
		out = Union(out, e)
	}
	return out, nil
}

// Parse reads "xmin,ymin,xmax,ymax". Whitespace around values is ignored.
func Parse(s string) (Extent, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Extent{}, fmt.Errorf("extent: expected xmin,ymin,xmax,ymax, got %q", s)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Extent{}, fmt.Errorf("extent: value %d: %w", i+1, err)
		}
		vals[i] = v
	}
	e := Extent{XMin: vals[0], YMin: vals[1], XMax: vals[2], YMax: vals[3]}
	if err := e.Validate(); err != nil {
		return Extent{}, err
	}
	return e, nil
}
