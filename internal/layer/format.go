// Package layer reads source feature layers and writes grid index layers in
// the formats the CLI accepts: ESRI shapefile, GeoJSON and GeoPackage.
package layer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/banshee-data/gridindex/internal/extent"
	"github.com/banshee-data/gridindex/internal/fsutil"
)

// Format identifies a feature layer container.
type Format int

const (
	FormatShapefile Format = iota + 1
	FormatGeoJSON
	FormatGeoPackage
)

// ErrUnsupportedFormat is returned for paths whose extension is not recognised.
var ErrUnsupportedFormat = errors.New("layer: unsupported format (want .shp, .geojson, .json or .gpkg)")

func (f Format) String() string {
	switch f {
	case FormatShapefile:
		return "shapefile"
	case FormatGeoJSON:
		return "geojson"
	case FormatGeoPackage:
		return "geopackage"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFor picks the format from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return FormatShapefile, nil
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".gpkg":
		return FormatGeoPackage, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// DefaultLayerName derives a table-safe layer name from an output path:
// "out/Zion Grid.gpkg" becomes "Zion_Grid".
func DefaultLayerName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var b strings.Builder
	for _, r := range base {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" {
		return "grid_index"
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "_" + name
	}
	return name
}

// Meta describes the run that produced a layer. Writers that can store
// metadata record it alongside the cells.
type Meta struct {
	RunID      string
	Source     string
	Rows       int
	Columns    int
	CellWidth  float64
	CellHeight float64
	Extent     extent.Extent
}

// Options configure a Writer.
type Options struct {
	Overwrite bool
	FS        fsutil.FileSystem // defaults to fsutil.OSFileSystem
	Meta      Meta
}

func (o Options) fs() fsutil.FileSystem {
	if o.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return o.FS
}
