package fsutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutputExists is returned when an output is present and overwrite is off.
var ErrOutputExists = errors.New("output already exists")

// ShapefileSidecars are the extensions written alongside a .shp file.
var ShapefileSidecars = []string{".shp", ".shx", ".dbf", ".prj", ".cpg"}

// Siblings returns path with each extension substituted for its own.
func Siblings(path string, exts []string) []string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		out = append(out, base+ext)
	}
	return out
}

// PrepareOutput makes path and its sibling files writable. With overwrite on
// any existing files are removed; with it off an existing path is an error.
// The parent directory is created if missing.
func PrepareOutput(fsys FileSystem, path string, siblingExts []string, overwrite bool) error {
	targets := []string{path}
	if len(siblingExts) > 0 {
		targets = Siblings(path, siblingExts)
	}

	for _, p := range targets {
		if !fsys.Exists(p) {
			continue
		}
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrOutputExists, p)
		}
		if err := fsys.Remove(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return nil
}
