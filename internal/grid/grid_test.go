package grid

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gridindex/internal/extent"
)

func TestBuild_TwoByThree(t *testing.T) {
	t.Parallel()

	spec := Spec{Rows: 2, Columns: 3, Extent: extent.Extent{XMin: 0, YMin: 0, XMax: 30, YMax: 20}}
	cells, err := Build(spec)
	require.NoError(t, err)

	want := []Cell{
		{Row: 0, Col: 0, PageNumber: 1, PageName: "A1", Bounds: extent.Extent{XMin: 0, YMin: 10, XMax: 10, YMax: 20}},
		{Row: 0, Col: 1, PageNumber: 2, PageName: "A2", Bounds: extent.Extent{XMin: 10, YMin: 10, XMax: 20, YMax: 20}},
		{Row: 0, Col: 2, PageNumber: 3, PageName: "A3", Bounds: extent.Extent{XMin: 20, YMin: 10, XMax: 30, YMax: 20}},
		{Row: 1, Col: 0, PageNumber: 4, PageName: "B1", Bounds: extent.Extent{XMin: 0, YMin: 0, XMax: 10, YMax: 10}},
		{Row: 1, Col: 1, PageNumber: 5, PageName: "B2", Bounds: extent.Extent{XMin: 10, YMin: 0, XMax: 20, YMax: 10}},
		{Row: 1, Col: 2, PageNumber: 6, PageName: "B3", Bounds: extent.Extent{XMin: 20, YMin: 0, XMax: 30, YMax: 10}},
	}
	if diff := cmp.Diff(want, cells, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_CoversExtentExactly(t *testing.T) {
	t.Parallel()

	ext := extent.Extent{XMin: -113.2, YMin: 37.1, XMax: -112.8, YMax: 37.5}
	spec := Spec{Rows: 7, Columns: 3, Extent: ext}
	cells, err := Build(spec)
	require.NoError(t, err)
	require.Len(t, cells, 21)

	first, last := cells[0], cells[len(cells)-1]
	assert.Equal(t, ext.XMin, first.Bounds.XMin)
	assert.Equal(t, ext.YMax, first.Bounds.YMax)
	assert.Equal(t, ext.XMax, last.Bounds.XMax)
	assert.Equal(t, ext.YMin, last.Bounds.YMin)

	w, h, err := spec.CellSize()
	require.NoError(t, err)
	for _, c := range cells {
		assert.InDelta(t, w, c.Bounds.Width(), 1e-12)
		assert.InDelta(t, h, c.Bounds.Height(), 1e-12)
		assert.InDelta(t, ext.XMin+float64(c.Col)*w, c.Bounds.XMin, 1e-12)
		assert.InDelta(t, ext.YMax-float64(c.Row+1)*h, c.Bounds.YMin, 1e-12)
	}
}

func TestBuild_DefaultSpec(t *testing.T) {
	t.Parallel()

	cells, err := Build(NewSpec(extent.Extent{XMin: 0, YMin: 0, XMax: 1, YMax: 1}))
	require.NoError(t, err)
	assert.Len(t, cells, DefaultRows*DefaultColumns)
	assert.Equal(t, "J10", cells[len(cells)-1].PageName)
}

func TestBuild_Invalid(t *testing.T) {
	t.Parallel()

	ok := extent.Extent{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
	tests := []struct {
		name string
		spec Spec
		want error
	}{
		{"zero rows", Spec{Rows: 0, Columns: 2, Extent: ok}, ErrBadDimensions},
		{"negative columns", Spec{Rows: 2, Columns: -1, Extent: ok}, ErrBadDimensions},
		{"too many", Spec{Rows: MaxCells, Columns: 2, Extent: ok}, ErrTooManyCells},
		{"flat extent", Spec{Rows: 2, Columns: 2, Extent: extent.Extent{XMin: 0, YMin: 5, XMax: 1, YMax: 5}}, extent.ErrDegenerate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.spec)
			assert.ErrorIs(t, err, tt.want)
			_, _, err = tt.spec.CellSize()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCellPolygon(t *testing.T) {
	t.Parallel()

	c := Cell{Bounds: extent.Extent{XMin: 1, YMin: 2, XMax: 3, YMax: 4}}
	want := geom.Polygon{{{X: 1, Y: 4}, {X: 3, Y: 4}, {X: 3, Y: 2}, {X: 1, Y: 2}, {X: 1, Y: 4}}}
	assert.Equal(t, want, c.Polygon())
	assert.Equal(t, geom.Point{X: 2, Y: 3}, c.Centroid())
}

func TestPageName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		row, col int
		want     string
	}{
		{0, 0, "A1"},
		{1, 9, "B10"},
		{25, 0, "Z1"},
		{26, 4, "AA5"},
		{27, 0, "AB1"},
		{701, 1, "ZZ2"},
		{702, 0, "AAA1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageName(tt.row, tt.col), "row=%d col=%d", tt.row, tt.col)
	}
}

func TestSpecFromCellSize(t *testing.T) {
	t.Parallel()

	ext := extent.Extent{XMin: 0, YMin: 0, XMax: 25, YMax: 30}
	spec, err := SpecFromCellSize(ext, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, spec.Rows)
	assert.Equal(t, 3, spec.Columns)
	assert.Equal(t, extent.Extent{XMin: 0, YMin: 0, XMax: 30, YMax: 30}, spec.Extent)

	w, h, err := spec.CellSize()
	require.NoError(t, err)
	assert.InDelta(t, 10, w, 1e-12)
	assert.InDelta(t, 10, h, 1e-12)

	// Exact multiples must not gain a sliver row.
	spec, err = SpecFromCellSize(extent.Extent{XMin: 0, YMin: 0, XMax: 0.3, YMax: 0.3}, 0.1, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 3, spec.Rows)
	assert.Equal(t, 3, spec.Columns)

	_, err = SpecFromCellSize(ext, 0, 10)
	assert.ErrorIs(t, err, ErrBadCellSize)
	_, err = SpecFromCellSize(ext, 1e-9, 1e-9)
	assert.ErrorIs(t, err, ErrTooManyCells)
}

func TestFilterIntersecting(t *testing.T) {
	t.Parallel()

	cells, err := Build(Spec{Rows: 2, Columns: 2, Extent: extent.Extent{XMin: 0, YMin: 0, XMax: 20, YMax: 20}})
	require.NoError(t, err)

	features := []extent.Extent{
		{XMin: 2, YMin: 12, XMax: 4, YMax: 14}, // inside A1
		{XMin: 15, YMin: 5, XMax: 15, YMax: 5}, // point inside B2
	}
	kept := FilterIntersecting(cells, features)
	names := make([]string, 0, len(kept))
	for _, c := range kept {
		names = append(names, c.PageName)
	}
	assert.Equal(t, []string{"A1", "B2"}, names)

	// A feature spanning the middle touches all four.
	kept = FilterIntersecting(cells, []extent.Extent{{XMin: 5, YMin: 5, XMax: 15, YMax: 15}})
	assert.Len(t, kept, 4)

	// Sharing an edge with A1 is not an overlap.
	kept = FilterIntersecting(cells, []extent.Extent{{XMin: 10, YMin: 12, XMax: 12, YMax: 14}})
	require.Len(t, kept, 1)
	assert.Equal(t, "A2", kept[0].PageName)

	// A point on the shared edge selects both neighbours.
	kept = FilterIntersecting(cells, []extent.Extent{{XMin: 10, YMin: 15, XMax: 10, YMax: 15}})
	assert.Len(t, kept, 2)

	assert.Empty(t, FilterIntersecting(cells, nil))
}
