package grid

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/gridindex/internal/extent"
)

// sizeEpsilon absorbs float error when dividing an extent by a cell size,
// so 30/10 does not round up to four cells.
const sizeEpsilon = 1e-9

// Build returns every cell of the grid in row-major order.
func Build(s Spec) ([]Cell, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	ext := s.Extent
	// Span pins the first and last edge to the extent so the grid covers it exactly.
	xs := floats.Span(make([]float64, s.Columns+1), ext.XMin, ext.XMax)
	ys := floats.Span(make([]float64, s.Rows+1), ext.YMax, ext.YMin)

	cells := make([]Cell, 0, s.Rows*s.Columns)
	for row := 0; row < s.Rows; row++ {
		for col := 0; col < s.Columns; col++ {
			cells = append(cells, Cell{
				Row:        row,
				Col:        col,
				PageNumber: row*s.Columns + col + 1,
				PageName:   PageName(row, col),
				Bounds: extent.Extent{
					XMin: xs[col],
					XMax: xs[col+1],
					YMin: ys[row+1],
					YMax: ys[row],
				},
			})
		}
	}
	return cells, nil
}

// SpecFromCellSize sizes a grid from a fixed cell width and height. The
// extent is grown right and down to a whole number of cells; the upper-left
// origin does not move.
func SpecFromCellSize(ext extent.Extent, width, height float64) (Spec, error) {
	if err := ext.Validate(); err != nil {
		return Spec{}, err
	}
	for _, v := range []float64{width, height} {
		if !(v > 0) || math.IsInf(v, 0) {
			return Spec{}, fmt.Errorf("%w: %gx%g", ErrBadCellSize, width, height)
		}
	}

	colsF := math.Ceil(ext.Width()/width - sizeEpsilon)
	rowsF := math.Ceil(ext.Height()/height - sizeEpsilon)
	if colsF*rowsF > MaxCells {
		return Spec{}, fmt.Errorf("%w: cell size %gx%g gives %.0fx%.0f", ErrTooManyCells, width, height, rowsF, colsF)
	}
	cols := max(int(colsF), 1)
	rows := max(int(rowsF), 1)

	grown := extent.Extent{
		XMin: ext.XMin,
		YMax: ext.YMax,
		XMax: ext.XMin + float64(cols)*width,
		YMin: ext.YMax - float64(rows)*height,
	}
	return Spec{Rows: rows, Columns: cols, Extent: grown}, nil
}

// PageName labels a cell with spreadsheet-style row letters followed by the
// 1-based column number: (0,0) is "A1", (26,4) is "AA5".
func PageName(row, col int) string {
	return rowLetters(row) + strconv.Itoa(col+1)
}

func rowLetters(row int) string {
	var buf []byte
	for n := row + 1; n > 0; n = (n - 1) / 26 {
		buf = append([]byte{byte('A' + (n-1)%26)}, buf...)
	}
	return string(buf)
}
