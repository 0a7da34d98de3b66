package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/banshee-data/gridindex/internal/gpkg"
	"github.com/banshee-data/gridindex/internal/serve"
)

func handleServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	path := fs.String("gpkg", "", "GeoPackage to serve (required)")
	layer := fs.String("layer", "", "Default layer (first feature table if empty)")
	listen := fs.String("listen", "localhost:8089", "HTTP listen address")
	verbose := fs.Bool("v", false, "Log every request")
	fs.Parse(args)

	if *path == "" {
		fmt.Fprintln(os.Stderr, "Error: -gpkg is required")
		fs.Usage()
		os.Exit(1)
	}

	store, err := gpkg.OpenExisting(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	h, err := serve.NewHandler(store, serve.Options{Layer: *layer, LogRequests: *verbose})
	if err != nil {
		return err
	}
	return serve.ListenAndServe(ctx, *listen, h)
}
