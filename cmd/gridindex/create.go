package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/gridindex/internal/config"
	"github.com/banshee-data/gridindex/internal/gridindex"
)

func handleCreate(ctx context.Context, args []string) error {
	job, err := parseCreate(args, os.Stderr)
	if err != nil {
		return err
	}
	res, err := gridindex.Run(ctx, job)
	if err != nil {
		return err
	}
	return printResult(os.Stdout, res)
}

// parseCreate builds a Job from the job file named by -config, then applies
// any flags given explicitly on the command line.
func parseCreate(args []string, stderr io.Writer) (gridindex.Job, error) {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Job file (.json, .yaml or .yml)")
	source := fs.String("source", "", "Feature layer whose extent the grid covers")
	sourceLayer := fs.String("source-layer", "", "Table to read from a GeoPackage source")
	extentStr := fs.String("extent", "", "Explicit extent xmin,ymin,xmax,ymax")
	output := fs.String("output", "", "Grid layer to write (.shp, .geojson, .json, .gpkg)")
	layerName := fs.String("layer", "", "Output layer name")
	rows := fs.Int("rows", 10, "Number of rows")
	columns := fs.Int("columns", 10, "Number of columns")
	cellWidth := fs.Float64("cell-width", 0, "Fixed cell width")
	cellHeight := fs.Float64("cell-height", 0, "Fixed cell height")
	intersecting := fs.Bool("intersecting", false, "Keep only cells overlapping source features")
	overwrite := fs.Bool("overwrite", true, "Replace an existing output")
	png := fs.String("png", "", "PNG preview path")
	html := fs.String("html", "", "HTML preview path")
	if err := fs.Parse(args); err != nil {
		return gridindex.Job{}, err
	}
	if fs.NArg() > 0 {
		return gridindex.Job{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := &config.JobConfig{}
	if *configPath != "" {
		loaded, err := config.LoadJobConfig(*configPath)
		if err != nil {
			return gridindex.Job{}, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Source = source
		case "source-layer":
			cfg.SourceLayer = sourceLayer
		case "extent":
			cfg.Extent = extentStr
		case "output":
			cfg.Output = output
		case "layer":
			cfg.LayerName = layerName
		case "rows":
			cfg.Rows = rows
		case "columns":
			cfg.Columns = columns
		case "cell-width":
			cfg.CellWidth = cellWidth
		case "cell-height":
			cfg.CellHeight = cellHeight
		case "intersecting":
			cfg.IntersectingOnly = intersecting
		case "overwrite":
			cfg.Overwrite = overwrite
		case "png":
			cfg.PreviewPNG = png
		case "html":
			cfg.PreviewHTML = html
		}
	})
	if err := cfg.Validate(); err != nil {
		return gridindex.Job{}, err
	}
	return jobFromConfig(cfg), nil
}

func jobFromConfig(cfg *config.JobConfig) gridindex.Job {
	return gridindex.Job{
		Source:           cfg.GetSource(),
		SourceLayer:      cfg.GetSourceLayer(),
		Extent:           cfg.GetExtent(),
		Output:           cfg.GetOutput(),
		LayerName:        cfg.GetLayerName(),
		Overwrite:        cfg.GetOverwrite(),
		Rows:             cfg.GetRows(),
		Columns:          cfg.GetColumns(),
		CellWidth:        cfg.GetCellWidth(),
		CellHeight:       cfg.GetCellHeight(),
		IntersectingOnly: cfg.GetIntersectingOnly(),
		PreviewPNG:       cfg.GetPreviewPNG(),
		PreviewHTML:      cfg.GetPreviewHTML(),
	}
}

func printResult(w io.Writer, res *gridindex.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
