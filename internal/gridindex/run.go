// Package gridindex runs a grid index job end to end: resolve the extent,
// partition it into cells, optionally keep only cells over source features,
// and write the layer plus any previews.
package gridindex

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/gridindex/internal/extent"
	"github.com/banshee-data/gridindex/internal/fsutil"
	"github.com/banshee-data/gridindex/internal/grid"
	"github.com/banshee-data/gridindex/internal/layer"
	"github.com/banshee-data/gridindex/internal/preview"
)

var (
	ErrNoExtent      = errors.New("gridindex: a source layer or an explicit extent is required")
	ErrNoOutput      = errors.New("gridindex: an output path is required")
	ErrNoFeatures    = errors.New("gridindex: intersecting-only needs a source layer with features")
	ErrOutputClashes = errors.New("gridindex: output path collides with another input or output")
	ErrNoCellsKept   = errors.New("gridindex: no cell overlaps a source feature")
)

// Job is one grid index run.
type Job struct {
	Source      string         // feature layer to cover; optional when Extent is set
	SourceLayer string         // table within a GeoPackage source
	Extent      *extent.Extent // overrides the source extent when set

	Output    string // .shp, .geojson/.json or .gpkg
	LayerName string // GeoPackage table / GeoJSON name; derived from Output when empty
	// Overwrite replaces an existing output (or GeoPackage layer). The zero
	// value refuses to; the CLI and job files default it to true.
	Overwrite bool

	// Rows and Columns default to 10 when zero. A positive CellWidth and
	// CellHeight take precedence and derive the dimensions instead.
	Rows       int
	Columns    int
	CellWidth  float64
	CellHeight float64

	// IntersectingOnly drops cells that overlap no source feature. A run
	// that would keep none fails with ErrNoCellsKept and writes nothing.
	IntersectingOnly bool

	PreviewPNG  string
	PreviewHTML string

	// FS backs output checks and file writes; nil means the OS. Shapefile
	// and GeoPackage encoders always write through the OS.
	FS fsutil.FileSystem
}

// Result summarises a completed run.
type Result struct {
	RunID      string        `json:"run_id"`
	Output     string        `json:"output"`
	Layer      string        `json:"layer"`
	Rows       int           `json:"rows"`
	Columns    int           `json:"columns"`
	CellWidth  float64       `json:"cell_width"`
	CellHeight float64       `json:"cell_height"`
	CellCount  int           `json:"cell_count"`
	Extent     extent.Extent `json:"extent"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Run executes job. Nothing is written unless the grid builds.
func Run(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()
	if err := job.check(); err != nil {
		return nil, err
	}

	ext, features, err := resolveExtent(ctx, job)
	if err != nil {
		return nil, err
	}

	spec, err := job.spec(ext)
	if err != nil {
		return nil, err
	}
	cells, err := grid.Build(spec)
	if err != nil {
		return nil, err
	}
	total := len(cells)

	if job.IntersectingOnly {
		if len(features) == 0 {
			return nil, ErrNoFeatures
		}
		cells = grid.FilterIntersecting(cells, features)
		log.Printf("kept %d of %d cells overlapping %d source features", len(cells), total, len(features))
		if len(cells) == 0 {
			return nil, fmt.Errorf("%w: %d features, %d cells", ErrNoCellsKept, len(features), total)
		}
	}

	cw, ch, err := spec.CellSize()
	if err != nil {
		return nil, err
	}

	name := job.LayerName
	if name == "" {
		name = layer.DefaultLayerName(job.Output)
	}

	res := &Result{
		RunID:      uuid.New().String(),
		Output:     job.Output,
		Layer:      name,
		Rows:       spec.Rows,
		Columns:    spec.Columns,
		CellWidth:  cw,
		CellHeight: ch,
		CellCount:  len(cells),
		Extent:     spec.Extent,
	}

	if err := write(ctx, job, res, cells); err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	log.Printf("grid index %s: %dx%d grid, %d cells of %gx%g over %s written to %s in %v",
		res.RunID, res.Rows, res.Columns, res.CellCount, cw, ch, res.Extent, res.Output, res.Elapsed)
	return res, nil
}

func (job Job) check() error {
	if job.Output == "" {
		return ErrNoOutput
	}
	if job.Source == "" && job.Extent == nil {
		return ErrNoExtent
	}
	format, err := layer.FormatFor(job.Output)
	if err != nil {
		return err
	}

	outputs := fsutil.Siblings(job.Output, []string{filepath.Ext(job.Output)})
	if format == layer.FormatShapefile {
		outputs = fsutil.Siblings(job.Output, fsutil.ShapefileSidecars)
	}
	seen := make(map[string]bool, len(outputs)+2)
	for _, p := range outputs {
		seen[filepath.Clean(p)] = true
	}
	// Adding a layer to the source GeoPackage is allowed; replacing any
	// other source file is not.
	if job.Source != "" && !strings.EqualFold(filepath.Ext(job.Source), ".gpkg") && seen[filepath.Clean(job.Source)] {
		return fmt.Errorf("%w: %s", ErrOutputClashes, job.Source)
	}
	for _, p := range []string{job.PreviewPNG, job.PreviewHTML} {
		if p == "" {
			continue
		}
		clean := filepath.Clean(p)
		if seen[clean] || clean == filepath.Clean(job.Source) {
			return fmt.Errorf("%w: %s", ErrOutputClashes, p)
		}
		seen[clean] = true
	}
	return nil
}

func resolveExtent(ctx context.Context, job Job) (extent.Extent, []extent.Extent, error) {
	var (
		ext      extent.Extent
		features []extent.Extent
		err      error
	)
	if job.Source != "" && (job.Extent == nil || job.IntersectingOnly) {
		ext, features, err = layer.ReadExtent(ctx, job.Source, job.SourceLayer)
		if err != nil {
			return extent.Extent{}, nil, err
		}
		log.Printf("read %d features from %s, extent %s", len(features), job.Source, ext)
	}
	if job.Extent != nil {
		ext = *job.Extent
	}
	if err := ext.Validate(); err != nil {
		return extent.Extent{}, nil, fmt.Errorf("extent %s: %w", ext, err)
	}
	return ext, features, nil
}

func (job Job) spec(ext extent.Extent) (grid.Spec, error) {
	if job.CellWidth > 0 && job.CellHeight > 0 {
		return grid.SpecFromCellSize(ext, job.CellWidth, job.CellHeight)
	}
	s := grid.NewSpec(ext)
	if job.Rows != 0 {
		s.Rows = job.Rows
	}
	if job.Columns != 0 {
		s.Columns = job.Columns
	}
	return s, s.Validate()
}

// write bulk-writes the layer and renders the previews concurrently. The
// first failure cancels the others.
func write(ctx context.Context, job Job, res *Result, cells []grid.Cell) error {
	fsys := job.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}

	w, err := layer.NewWriter(job.Output, layer.Options{
		Overwrite: job.Overwrite,
		FS:        fsys,
		Meta: layer.Meta{
			RunID:      res.RunID,
			Source:     job.Source,
			Rows:       res.Rows,
			Columns:    res.Columns,
			CellWidth:  res.CellWidth,
			CellHeight: res.CellHeight,
			Extent:     res.Extent,
		},
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := w.WriteCells(gctx, res.Layer, cells); err != nil {
			return fmt.Errorf("write %s: %w", job.Output, err)
		}
		return nil
	})
	if job.PreviewPNG != "" {
		g.Go(func() error {
			if err := preview.SavePNG(fsys, job.PreviewPNG, res.Layer, res.Extent, cells); err != nil {
				return fmt.Errorf("png preview: %w", err)
			}
			log.Printf("wrote preview %s", job.PreviewPNG)
			return nil
		})
	}
	if job.PreviewHTML != "" {
		g.Go(func() error {
			if err := preview.SaveHTML(fsys, job.PreviewHTML, res.Layer, res.Extent, cells); err != nil {
				return fmt.Errorf("html preview: %w", err)
			}
			log.Printf("wrote preview %s", job.PreviewHTML)
			return nil
		})
	}
	return g.Wait()
}
