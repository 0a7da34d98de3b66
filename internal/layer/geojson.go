package layer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ctessum/geom/encoding/geojson"

	"github.com/banshee-data/gridindex/internal/extent"
	"github.com/banshee-data/gridindex/internal/fsutil"
	"github.com/banshee-data/gridindex/internal/grid"
)

type cellProperties struct {
	PageName   string `json:"page_name"`
	PageNumber int    `json:"page_number"`
	Row        int    `json:"row"`
	Col        int    `json:"col"`
}

type featureOut struct {
	Type       string          `json:"type"`
	ID         int             `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties cellProperties  `json:"properties"`
}

// gridMember is a GeoJSON foreign member describing the run.
type gridMember struct {
	RunID      string  `json:"run_id,omitempty"`
	Source     string  `json:"source,omitempty"`
	Rows       int     `json:"rows"`
	Columns    int     `json:"columns"`
	CellWidth  float64 `json:"cell_width"`
	CellHeight float64 `json:"cell_height"`
}

type collectionOut struct {
	Type     string       `json:"type"`
	Name     string       `json:"name,omitempty"`
	BBox     []float64    `json:"bbox,omitempty"`
	Grid     *gridMember  `json:"grid,omitempty"`
	Features []featureOut `json:"features"`
}

type geojsonWriter struct {
	path string
	opts Options
}

// WriteCells writes a FeatureCollection with one Polygon feature per cell.
func (w *geojsonWriter) WriteCells(ctx context.Context, name string, cells []grid.Cell) error {
	fsys := w.opts.fs()
	if err := fsutil.PrepareOutput(fsys, w.path, nil, w.opts.Overwrite); err != nil {
		return err
	}

	meta := w.opts.Meta
	fc := collectionOut{
		Type:     "FeatureCollection",
		Name:     name,
		Features: make([]featureOut, 0, len(cells)),
	}
	if meta.Rows > 0 {
		e := meta.Extent
		fc.BBox = []float64{e.XMin, e.YMin, e.XMax, e.YMax}
		fc.Grid = &gridMember{
			RunID:      meta.RunID,
			Source:     meta.Source,
			Rows:       meta.Rows,
			Columns:    meta.Columns,
			CellWidth:  meta.CellWidth,
			CellHeight: meta.CellHeight,
		}
	}

	for _, c := range cells {
		if err := ctx.Err(); err != nil {
			return err
		}
		g, err := geojson.Encode(c.Polygon())
		if err != nil {
			return fmt.Errorf("encode cell %s: %w", c.PageName, err)
		}
		fc.Features = append(fc.Features, featureOut{
			Type:     "Feature",
			ID:       c.PageNumber,
			Geometry: g,
			Properties: cellProperties{
				PageName:   c.PageName,
				PageNumber: c.PageNumber,
				Row:        c.Row,
				Col:        c.Col,
			},
		})
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal feature collection: %w", err)
	}
	return fsys.WriteFile(w.path, data, 0o644)
}

// geojsonDoc covers the three top-level shapes a GeoJSON file can take.
type geojsonDoc struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
	Geometry json.RawMessage   `json:"geometry"`
}

func readGeoJSONBounds(path string) ([]extent.Extent, error) {
	data, err := fsutil.OSFileSystem{}.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return geojsonBounds(data)
}

func geojsonBounds(data []byte) ([]extent.Extent, error) {
	var doc geojsonDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	var geoms []json.RawMessage
	switch doc.Type {
	case "FeatureCollection":
		for i, raw := range doc.Features {
			var f geojsonDoc
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		geoms = append(geoms, doc.Geometry)
	default:
		geoms = append(geoms, data)
	}

	var out []extent.Extent
	for i, raw := range geoms {
		if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		g, err := geojson.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("geometry %d: %w", i, err)
		}
		b, err := extent.FromBounds(g.Bounds())
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
