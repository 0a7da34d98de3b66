package layer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/gridindex/internal/extent"
	"github.com/banshee-data/gridindex/internal/fsutil"
	"github.com/banshee-data/gridindex/internal/gpkg"
	"github.com/banshee-data/gridindex/internal/grid"
)

type gpkgWriter struct {
	path string
	opts Options
}

// WriteCells adds the layer to the GeoPackage, creating the file if needed.
// Other layers in the file are left alone; overwrite applies to this layer.
func (w *gpkgWriter) WriteCells(ctx context.Context, name string, cells []grid.Cell) error {
	if name == "" {
		name = DefaultLayerName(w.path)
	}
	// The SQLite driver writes through the OS, whatever w.opts.FS is.
	if dir := filepath.Dir(w.path); dir != "." && dir != "" {
		if err := (fsutil.OSFileSystem{}).MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	store, err := gpkg.Open(w.path)
	if err != nil {
		return err
	}
	defer store.Close()

	m := w.opts.Meta
	run := gpkg.Run{
		RunID:      m.RunID,
		Table:      name,
		Source:     m.Source,
		Rows:       m.Rows,
		Columns:    m.Columns,
		CellWidth:  m.CellWidth,
		CellHeight: m.CellHeight,
		Extent:     m.Extent,
	}
	return store.WriteLayer(ctx, run, cells, w.opts.Overwrite)
}

func readGeoPackageBounds(ctx context.Context, path, table string) ([]extent.Extent, error) {
	store, err := gpkg.OpenExisting(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.FeatureBounds(ctx, table)
}
