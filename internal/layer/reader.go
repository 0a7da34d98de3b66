package layer

import (
	"context"
	"fmt"

	"github.com/banshee-data/gridindex/internal/extent"
)

// ReadExtent scans every feature of the layer at path and returns the
// layer's extent plus the bounding box of each feature. For GeoPackages,
// table selects the layer; empty means the first feature table.
func ReadExtent(ctx context.Context, path, table string) (extent.Extent, []extent.Extent, error) {
	f, err := FormatFor(path)
	if err != nil {
		return extent.Extent{}, nil, err
	}

	var features []extent.Extent
	switch f {
	case FormatShapefile:
		features, err = readShapefileBounds(path)
	case FormatGeoJSON:
		features, err = readGeoJSONBounds(path)
	default:
		features, err = readGeoPackageBounds(ctx, path, table)
	}
	if err != nil {
		return extent.Extent{}, nil, fmt.Errorf("read %s %s: %w", f, path, err)
	}

	ext, err := extent.UnionAll(features)
	if err != nil {
		return extent.Extent{}, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ext, features, nil
}
