package layer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gridindex/internal/extent"
	"github.com/banshee-data/gridindex/internal/fsutil"
	"github.com/banshee-data/gridindex/internal/gpkg"
	"github.com/banshee-data/gridindex/internal/grid"
	"github.com/banshee-data/gridindex/internal/testutil"
)

func buildCells(t *testing.T, rows, cols int, ext extent.Extent) []grid.Cell {
	t.Helper()
	cells, err := grid.Build(grid.Spec{Rows: rows, Columns: cols, Extent: ext})
	require.NoError(t, err)
	return cells
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want Format
	}{
		{"roads.shp", FormatShapefile},
		{"ROADS.SHP", FormatShapefile},
		{"a/b/parks.geojson", FormatGeoJSON},
		{"parks.json", FormatGeoJSON},
		{"index.gpkg", FormatGeoPackage},
	}
	for _, tt := range tests {
		got, err := FormatFor(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := FormatFor("parks.kml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, "geopackage", FormatGeoPackage.String())
}

func TestDefaultLayerName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Zion_Grid", DefaultLayerName("out/Zion Grid.gpkg"))
	assert.Equal(t, "_2024_index", DefaultLayerName("2024-index.gpkg"))
	assert.Equal(t, "grid_index", DefaultLayerName(".gpkg"))
}

func TestShapefile_WriteAndReadBack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := testutil.WriteShapefileFixture(t, dir, "park.shp", `LOCAL_CS["park"]`, testutil.ParkBoundary...)

	ext, features, err := ReadExtent(context.Background(), src, "")
	require.NoError(t, err)
	assert.Equal(t, testutil.ParkExtent, ext)
	assert.Len(t, features, 2)

	out := filepath.Join(dir, "out", "grid.shp")
	w, err := NewWriter(out, Options{Overwrite: true, Meta: Meta{Source: src}})
	require.NoError(t, err)
	require.NoError(t, w.WriteCells(context.Background(), "grid", buildCells(t, 2, 3, ext)))

	rows := testutil.ReadShapefileFields(t, out, "PageName", "PageNumber")
	require.Len(t, rows, 6)
	assert.Equal(t, "A1", rows[0]["PageName"])
	assert.Equal(t, "B3", rows[5]["PageName"])
	assert.Equal(t, "6", rows[5]["PageNumber"])

	prj, err := os.ReadFile(filepath.Join(dir, "out", "grid.prj"))
	require.NoError(t, err)
	assert.Equal(t, `LOCAL_CS["park"]`, string(prj))

	gotExt, _, err := ReadExtent(context.Background(), out, "")
	require.NoError(t, err)
	assert.InDelta(t, ext.XMax, gotExt.XMax, 1e-9)
	assert.InDelta(t, ext.YMin, gotExt.YMin, 1e-9)
}

func TestShapefile_NoOverwrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "grid.shp")
	cells := buildCells(t, 1, 1, testutil.ParkExtent)

	w, err := NewWriter(out, Options{Overwrite: true})
	require.NoError(t, err)
	require.NoError(t, w.WriteCells(context.Background(), "", cells))

	w, err = NewWriter(out, Options{Overwrite: false})
	require.NoError(t, err)
	assert.ErrorIs(t, w.WriteCells(context.Background(), "", cells), fsutil.ErrOutputExists)
}

func TestGeoJSON_WriteAndReadBack(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	ext := testutil.ParkExtent
	meta := Meta{RunID: "run-1", Rows: 2, Columns: 2, CellWidth: 30, CellHeight: 20, Extent: ext}

	w, err := NewWriter("out/grid.geojson", Options{Overwrite: true, FS: fsys, Meta: meta})
	require.NoError(t, err)
	require.NoError(t, w.WriteCells(context.Background(), "grid", buildCells(t, 2, 2, ext)))

	data, err := fsys.ReadFile("out/grid.geojson")
	require.NoError(t, err)

	var doc struct {
		Type     string    `json:"type"`
		Name     string    `json:"name"`
		BBox     []float64 `json:"bbox"`
		Grid     struct {
			RunID string `json:"run_id"`
			Rows  int    `json:"rows"`
		} `json:"grid"`
		Features []struct {
			ID         int `json:"id"`
			Properties struct {
				PageName string `json:"page_name"`
			} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	assert.Equal(t, "grid", doc.Name)
	assert.Equal(t, []float64{10, 20, 70, 60}, doc.BBox)
	assert.Equal(t, "run-1", doc.Grid.RunID)
	require.Len(t, doc.Features, 4)
	assert.Equal(t, "B2", doc.Features[3].Properties.PageName)
	assert.Equal(t, 4, doc.Features[3].ID)

	bounds, err := geojsonBounds(data)
	require.NoError(t, err)
	require.Len(t, bounds, 4)
	u, err := extent.UnionAll(bounds)
	require.NoError(t, err)
	assert.Equal(t, ext, u)

	w, err = NewWriter("out/grid.geojson", Options{FS: fsys})
	require.NoError(t, err)
	assert.ErrorIs(t, w.WriteCells(context.Background(), "grid", nil), fsutil.ErrOutputExists)
}

func TestGeoJSONBounds_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want []extent.Extent
	}{
		{
			name: "bare geometry",
			doc:  `{"type":"LineString","coordinates":[[0,0],[4,2]]}`,
			want: []extent.Extent{{XMin: 0, YMin: 0, XMax: 4, YMax: 2}},
		},
		{
			name: "single feature",
			doc:  `{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[3,5]}}`,
			want: []extent.Extent{{XMin: 3, YMin: 5, XMax: 3, YMax: 5}},
		},
		{
			name: "null geometries skipped",
			doc:  `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":null,"properties":{}}]}`,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := geojsonBounds([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := geojsonBounds([]byte(`{not json`))
	assert.Error(t, err)
}

func TestReadExtent_GeoJSONFixture(t *testing.T) {
	t.Parallel()

	path := testutil.WriteGeoJSONFixture(t, t.TempDir(), "park.geojson", testutil.ParkBoundary...)
	ext, features, err := ReadExtent(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, testutil.ParkExtent, ext)
	assert.Len(t, features, 2)
}

func TestReadExtent_Empty(t *testing.T) {
	t.Parallel()

	path := testutil.WriteGeoJSONFixture(t, t.TempDir(), "empty.geojson")
	_, _, err := ReadExtent(context.Background(), path, "")
	assert.ErrorIs(t, err, extent.ErrEmpty)
}

func TestGeoPackage_WriteAndReadBack(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "Park Index.gpkg")
	ext := testutil.ParkExtent
	meta := Meta{Source: "park.geojson", Rows: 3, Columns: 3, CellWidth: 20, CellHeight: 40.0 / 3, Extent: ext}

	w, err := NewWriter(out, Options{Overwrite: true, Meta: meta})
	require.NoError(t, err)
	require.NoError(t, w.WriteCells(context.Background(), "", buildCells(t, 3, 3, ext)))

	got, features, err := ReadExtent(context.Background(), out, "Park_Index")
	require.NoError(t, err)
	assert.Len(t, features, 9)
	assert.InDelta(t, ext.XMin, got.XMin, 1e-9)
	assert.InDelta(t, ext.YMax, got.YMax, 1e-9)

	store, err := gpkg.OpenExisting(out)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Park_Index", runs[0].Table)
	assert.Equal(t, 9, runs[0].CellCount)
	assert.NotEmpty(t, runs[0].RunID)
}
