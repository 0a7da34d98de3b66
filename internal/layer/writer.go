package layer

import (
	"context"

	"github.com/banshee-data/gridindex/internal/grid"
)

// Writer persists a whole grid as one layer in a single call.
type Writer interface {
	WriteCells(ctx context.Context, name string, cells []grid.Cell) error
}

// NewWriter returns the Writer for path's format.
func NewWriter(path string, opts Options) (Writer, error) {
	f, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatShapefile:
		return &shapefileWriter{path: path, opts: opts}, nil
	case FormatGeoJSON:
		return &geojsonWriter{path: path, opts: opts}, nil
	default:
		return &gpkgWriter{path: path, opts: opts}, nil
	}
}
