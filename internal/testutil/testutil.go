// Package testutil provides shared test fixtures for grid index packages.
//
// Fixtures are written to a caller-supplied directory, usually t.TempDir(),
// so tests never touch the repository tree.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"

	"github.com/banshee-data/gridindex/internal/extent"
)

// ParkBoundary is a small irregular footprint used across tests: two
// rectangles whose union spans x 10..70, y 20..60.
var ParkBoundary = []extent.Extent{
	{XMin: 10, YMin: 30, XMax: 40, YMax: 60},
	{XMin: 35, YMin: 20, XMax: 70, YMax: 45},
}

// ParkExtent is the union of ParkBoundary.
var ParkExtent = extent.Extent{XMin: 10, YMin: 20, XMax: 70, YMax: 60}

// RectPolygon returns e as a closed clockwise ring.
func RectPolygon(e extent.Extent) geom.Polygon {
	return geom.Polygon{{
		{X: e.XMin, Y: e.YMax},
		{X: e.XMax, Y: e.YMax},
		{X: e.XMax, Y: e.YMin},
		{X: e.XMin, Y: e.YMin},
		{X: e.XMin, Y: e.YMax},
	}}
}

// WriteGeoJSONFixture writes a FeatureCollection with one polygon per rect
// plus one feature with a null geometry, and returns its path.
func WriteGeoJSONFixture(t *testing.T, dir, name string, rects ...extent.Extent) string {
	t.Helper()

	features := make([]string, 0, len(rects)+1)
	for i, r := range rects {
		features = append(features, fmt.Sprintf(
			`{"type":"Feature","properties":{"id":%d},"geometry":{"type":"Polygon","coordinates":[[[%g,%g],[%g,%g],[%g,%g],[%g,%g],[%g,%g]]]}}`,
			i, r.XMin, r.YMin, r.XMax, r.YMin, r.XMax, r.YMax, r.XMin, r.YMax, r.XMin, r.YMin))
	}
	features = append(features, `{"type":"Feature","properties":{"id":-1},"geometry":null}`)

	doc := `{"type":"FeatureCollection","features":[` + strings.Join(features, ",") + `]}`
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write geojson fixture: %v", err)
	}
	return path
}

type fixtureRecord struct {
	Shape geom.Polygon
	Name  string
}

// WriteShapefileFixture writes a polygon shapefile with one record per rect
// and returns the .shp path. When prj is non-empty it is written as the
// projection sidecar.
func WriteShapefileFixture(t *testing.T, dir, name, prj string, rects ...extent.Extent) string {
	t.Helper()

	path := filepath.Join(dir, name)
	enc, err := shp.NewEncoder(path, fixtureRecord{})
	if err != nil {
		t.Fatalf("create shapefile fixture: %v", err)
	}
	for i, r := range rects {
		if err := enc.Encode(fixtureRecord{Shape: RectPolygon(r), Name: fmt.Sprintf("feature-%d", i)}); err != nil {
			t.Fatalf("encode fixture record: %v", err)
		}
	}
	enc.Close()

	if prj != "" {
		prjPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
		if err := os.WriteFile(prjPath, []byte(prj), 0o644); err != nil {
			t.Fatalf("write prj fixture: %v", err)
		}
	}
	return path
}

// ReadShapefileFields returns the named DBF fields of every record, with
// padding trimmed.
func ReadShapefileFields(t *testing.T, path string, fields ...string) []map[string]string {
	t.Helper()

	dec, err := shp.NewDecoder(path)
	if err != nil {
		t.Fatalf("open shapefile %s: %v", path, err)
	}
	defer dec.Close()

	var out []map[string]string
	for {
		_, vals, more := dec.DecodeRowFields(fields...)
		if !more {
			break
		}
		row := make(map[string]string, len(vals))
		for k, v := range vals {
			row[k] = strings.Trim(v, "\x00 ")
		}
		out = append(out, row)
	}
	if err := dec.Error(); err != nil {
		t.Fatalf("decode shapefile %s: %v", path, err)
	}
	return out
}
