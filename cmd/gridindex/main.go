// Command gridindex builds map-book style grid index layers over the extent
// of a feature layer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/gridindex/internal/gpkg"
	"github.com/banshee-data/gridindex/internal/version"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	command := "create"
	if !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case "create":
		err = handleCreate(ctx, args)
	case "migrate":
		err = handleMigrate(args)
	case "serve":
		err = handleServe(ctx, args)
	case "version":
		fmt.Println(version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

func handleMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	path := fs.String("gpkg", "", "GeoPackage to migrate (required)")
	fs.Parse(args)

	if *path == "" {
		fmt.Fprintln(os.Stderr, "Error: -gpkg is required")
		gpkg.PrintMigrateHelp(os.Stderr)
		os.Exit(1)
	}
	return gpkg.RunMigrateCommand(fs.Args(), *path, os.Stdout)
}

func printUsage() {
	fmt.Println(`gridindex - grid index layers for map books

Usage: gridindex [command] [options]

Commands:
  create     Build a grid over a layer's extent and write it out (default)
  migrate    Manage the schema of a grid index GeoPackage
  serve      Browse a GeoPackage's grids and runs over HTTP
  version    Show build information
  help       Show this help message

Create Flags:
  -source <path>       Feature layer to cover (.shp, .geojson, .json, .gpkg)
  -source-layer <name> Table to read from a GeoPackage source
  -extent x0,y0,x1,y1  Explicit extent; overrides the source extent
  -output <path>       Grid layer to write (.shp, .geojson, .json, .gpkg)
  -layer <name>        Layer name (defaults to the output file name)
  -rows <n>            Number of rows (default 10)
  -columns <n>         Number of columns (default 10)
  -cell-width <w>      Fixed cell width; with -cell-height replaces rows/columns
  -cell-height <h>     Fixed cell height
  -intersecting        Keep only cells overlapping source features
  -overwrite           Replace an existing output (default true)
  -png <path>          Also render a PNG preview
  -html <path>         Also render an interactive HTML preview
  -config <file>       Job file (.json, .yaml); flags override its values

Examples:
  # 10x10 index over a shapefile's extent
  gridindex -source parks.shp -output parks_index.shp

  # 250m sheets added to a GeoPackage, with a preview
  gridindex create -source city.gpkg -output city.gpkg -layer sheets \
    -cell-width 250 -cell-height 250 -intersecting -png sheets.png

  # Inspect the result
  gridindex migrate -gpkg city.gpkg status
  gridindex serve -gpkg city.gpkg -layer sheets -listen localhost:8089`)
}
