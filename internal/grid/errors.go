package grid

import "errors"

var (
	// ErrBadDimensions indicates rows or columns below one.
	ErrBadDimensions = errors.New("grid: rows and columns must be at least 1")
	// ErrTooManyCells indicates a grid larger than MaxCells.
	ErrTooManyCells = errors.New("grid: too many cells")
	// ErrBadCellSize indicates a non-positive or non-finite cell width or height.
	ErrBadCellSize = errors.New("grid: cell width and height must be positive and finite")
)
