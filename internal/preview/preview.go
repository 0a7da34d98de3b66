// Package preview renders a grid index for quick visual checks: a static
// PNG through gonum/plot and an interactive HTML page through go-echarts.
package preview

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/gridindex/internal/extent"
	"github.com/banshee-data/gridindex/internal/fsutil"
	"github.com/banshee-data/gridindex/internal/grid"
)

// MaxLabels is the number of cells above which page labels are left out of
// the PNG; they would overlap beyond legibility.
const MaxLabels = 400

var (
	outlineColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	extentColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// PNGSize is the edge length of the rendered PNG.
var PNGSize = 8 * vg.Inch

// RenderPNG draws the extent, every cell outline and the page labels, and
// writes a PNG to w.
func RenderPNG(w io.Writer, title string, ext extent.Extent, cells []grid.Cell) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	border, err := plotter.NewLine(ring(ext))
	if err != nil {
		return fmt.Errorf("extent outline: %w", err)
	}
	border.Color = extentColor
	border.Width = vg.Points(2)
	p.Add(border)

	labels := plotter.XYLabels{
		XYs:    make(plotter.XYs, 0, len(cells)),
		Labels: make([]string, 0, len(cells)),
	}
	for _, c := range cells {
		l, err := plotter.NewLine(ring(c.Bounds))
		if err != nil {
			return fmt.Errorf("cell %s outline: %w", c.PageName, err)
		}
		l.Color = outlineColor
		l.Width = vg.Points(0.5)
		p.Add(l)

		ctr := c.Centroid()
		labels.XYs = append(labels.XYs, plotter.XY{X: ctr.X, Y: ctr.Y})
		labels.Labels = append(labels.Labels, c.PageName)
	}
	if len(cells) > 0 && len(cells) <= MaxLabels {
		lbl, err := plotter.NewLabels(labels)
		if err != nil {
			return fmt.Errorf("page labels: %w", err)
		}
		p.Add(lbl)
	}

	// Cells grown past the source extent (cell-size mode) must stay visible.
	view := ext
	for _, c := range cells {
		view = extent.Union(view, c.Bounds)
	}
	p.X.Min, p.X.Max = view.XMin, view.XMax
	p.Y.Min, p.Y.Max = view.YMin, view.YMax

	wt, err := p.WriterTo(PNGSize, PNGSize, "png")
	if err != nil {
		return fmt.Errorf("png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func ring(e extent.Extent) plotter.XYs {
	return plotter.XYs{
		{X: e.XMin, Y: e.YMax},
		{X: e.XMax, Y: e.YMax},
		{X: e.XMax, Y: e.YMin},
		{X: e.XMin, Y: e.YMin},
		{X: e.XMin, Y: e.YMax},
	}
}

// RenderHTML writes a standalone page plotting each cell centroid labelled
// with its page name, plus the extent corners.
func RenderHTML(w io.Writer, title string, ext extent.Extent, cells []grid.Cell) error {
	pts := make([]opts.ScatterData, 0, len(cells))
	for _, c := range cells {
		ctr := c.Centroid()
		pts = append(pts, opts.ScatterData{
			Name:  c.PageName,
			Value: []interface{}{ctr.X, ctr.Y, c.PageNumber},
		})
	}
	corners := []opts.ScatterData{
		{Name: "UL", Value: []interface{}{ext.XMin, ext.YMax}},
		{Name: "UR", Value: []interface{}{ext.XMax, ext.YMax}},
		{Name: "LR", Value: []interface{}{ext.XMax, ext.YMin}},
		{Name: "LL", Value: []interface{}{ext.XMin, ext.YMin}},
	}

	view := ext
	for _, c := range cells {
		view = extent.Union(view, c.Bounds)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("cells=%d extent=%s", len(cells), ext)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: view.XMin, Max: view.XMax, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: view.YMin, Max: view.YMax, Name: "Y", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("cells", pts,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(len(cells) <= MaxLabels), Formatter: "{b}"}),
	)
	scatter.AddSeries("extent", corners,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}"}),
	)
	return scatter.Render(w)
}

// SavePNG renders the PNG preview to path.
func SavePNG(fsys fsutil.FileSystem, path, title string, ext extent.Extent, cells []grid.Cell) error {
	var buf bytes.Buffer
	if err := RenderPNG(&buf, title, ext, cells); err != nil {
		return err
	}
	return save(fsys, path, buf.Bytes())
}

// SaveHTML renders the HTML preview to path.
func SaveHTML(fsys fsutil.FileSystem, path, title string, ext extent.Extent, cells []grid.Cell) error {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, title, ext, cells); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return save(fsys, path, buf.Bytes())
}

func save(fsys fsutil.FileSystem, path string, data []byte) error {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if err := fsutil.PrepareOutput(fsys, path, nil, true); err != nil {
		return err
	}
	if err := fsys.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write preview %s: %w", path, err)
	}
	return nil
}
