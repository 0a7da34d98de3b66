package layer

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"

	"github.com/banshee-data/gridindex/internal/extent"
	"github.com/banshee-data/gridindex/internal/fsutil"
	"github.com/banshee-data/gridindex/internal/grid"
)

// cellRecord is the shapefile archetype: the polygon plus the DBF columns.
// DBF column names are limited to 10 characters.
type cellRecord struct {
	Shape      geom.Polygon
	PageName   string
	PageNumber int
	Row        int
	Col        int
}

type shapefileWriter struct {
	path string
	opts Options
}

// WriteCells writes path and its sidecars. The layer name is implied by the
// file name and is ignored. A .prj beside a shapefile source is copied
// unchanged so the grid stays in the source's coordinate system.
func (w *shapefileWriter) WriteCells(ctx context.Context, _ string, cells []grid.Cell) error {
	fsys := w.opts.fs()
	if err := fsutil.PrepareOutput(fsys, w.path, fsutil.ShapefileSidecars, w.opts.Overwrite); err != nil {
		return err
	}

	enc, err := shp.NewEncoder(w.path, cellRecord{})
	if err != nil {
		return fmt.Errorf("create shapefile %s: %w", w.path, err)
	}
	for _, c := range cells {
		if err := ctx.Err(); err != nil {
			enc.Close()
			return err
		}
		rec := cellRecord{
			Shape:      c.Polygon(),
			PageName:   c.PageName,
			PageNumber: c.PageNumber,
			Row:        c.Row,
			Col:        c.Col,
		}
		if err := enc.Encode(rec); err != nil {
			enc.Close()
			return fmt.Errorf("encode cell %s: %w", c.PageName, err)
		}
	}
	enc.Close()

	return copyProjection(fsys, w.opts.Meta.Source, w.path)
}

func copyProjection(fsys fsutil.FileSystem, source, output string) error {
	if !strings.EqualFold(filepath.Ext(source), ".shp") {
		return nil
	}
	srcPrj := fsutil.Siblings(source, []string{".prj"})[0]
	if !fsys.Exists(srcPrj) {
		return nil
	}
	data, err := fsys.ReadFile(srcPrj)
	if err != nil {
		return fmt.Errorf("read projection: %w", err)
	}
	dstPrj := fsutil.Siblings(output, []string{".prj"})[0]
	if err := fsys.WriteFile(dstPrj, data, 0o644); err != nil {
		return fmt.Errorf("write projection: %w", err)
	}
	log.Printf("copied projection %s -> %s", srcPrj, dstPrj)
	return nil
}

func readShapefileBounds(path string) ([]extent.Extent, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []extent.Extent
	for {
		g, _, more := dec.DecodeRowFields()
		if !more {
			break
		}
		if g == nil {
			continue
		}
		b, err := extent.FromBounds(g.Bounds())
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := dec.Error(); err != nil {
		return nil, err
	}
	return out, nil
}
