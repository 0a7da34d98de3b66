package grid

import (
	"fmt"

	"github.com/ctessum/geom"

	"github.com/banshee-data/gridindex/internal/extent"
)

const (
	// DefaultRows and DefaultColumns give a 10x10 index.
	DefaultRows    = 10
	DefaultColumns = 10

	// MaxCells bounds a single grid so a bad cell size cannot exhaust memory.
	MaxCells = 1 << 22
)

// Spec describes the grid to build.
type Spec struct {
	Rows    int
	Columns int
	Extent  extent.Extent
}

// NewSpec returns a Spec with the default dimensions over ext.
func NewSpec(ext extent.Extent) Spec {
	return Spec{Rows: DefaultRows, Columns: DefaultColumns, Extent: ext}
}

// Validate checks the dimensions and the extent.
func (s Spec) Validate() error {
	if s.Rows < 1 || s.Columns < 1 {
		return fmt.Errorf("%w: got %dx%d", ErrBadDimensions, s.Rows, s.Columns)
	}
	if int64(s.Rows)*int64(s.Columns) > MaxCells {
		return fmt.Errorf("%w: %dx%d exceeds %d", ErrTooManyCells, s.Rows, s.Columns, MaxCells)
	}
	return s.Extent.Validate()
}

// CellSize returns the width and height of a single cell.
func (s Spec) CellSize() (width, height float64, err error) {
	if err := s.Validate(); err != nil {
		return 0, 0, err
	}
	return s.Extent.Width() / float64(s.Columns), s.Extent.Height() / float64(s.Rows), nil
}

// Cell is one rectangle of the index.
type Cell struct {
	Row        int           // 0-based, top row first
	Col        int           // 0-based, left column first
	PageNumber int           // 1-based, row-major
	PageName   string        // row letters + column number, e.g. "B3"
	Bounds     extent.Extent // cell rectangle
}

// Polygon returns the cell as a closed clockwise ring starting at the
// upper-left corner: UL, UR, LR, LL, UL.
func (c Cell) Polygon() geom.Polygon {
	b := c.Bounds
	return geom.Polygon{{
		{X: b.XMin, Y: b.YMax},
		{X: b.XMax, Y: b.YMax},
		{X: b.XMax, Y: b.YMin},
		{X: b.XMin, Y: b.YMin},
		{X: b.XMin, Y: b.YMax},
	}}
}

// Centroid returns the cell centre.
func (c Cell) Centroid() geom.Point { return c.Bounds.Center() }
