// Package config loads grid index job files.
//
// A job file names the source layer, the output and the grid dimensions so
// a recurring index can be rebuilt without repeating flags. JSON and YAML
// are both accepted; fields left out fall back to the Get* defaults.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/gridindex/internal/extent"
)

// ExampleConfigPath is the annotated sample job shipped with the repository.
const ExampleConfigPath = "config/gridindex.example.yaml"

const maxFileSize = 1 * 1024 * 1024 // 1MB

const (
	defaultRows      = 10
	defaultColumns   = 10
	defaultOverwrite = true
)

// JobConfig is the on-disk form of a grid index job.
type JobConfig struct {
	// Input
	Source      *string `json:"source,omitempty" yaml:"source,omitempty"`
	SourceLayer *string `json:"source_layer,omitempty" yaml:"source_layer,omitempty"`
	Extent      *string `json:"extent,omitempty" yaml:"extent,omitempty"` // "xmin,ymin,xmax,ymax"

	// Output
	Output    *string `json:"output,omitempty" yaml:"output,omitempty"`
	LayerName *string `json:"layer_name,omitempty" yaml:"layer_name,omitempty"`
	Overwrite *bool   `json:"overwrite,omitempty" yaml:"overwrite,omitempty"`

	// Grid
	Rows             *int     `json:"rows,omitempty" yaml:"rows,omitempty"`
	Columns          *int     `json:"columns,omitempty" yaml:"columns,omitempty"`
	CellWidth        *float64 `json:"cell_width,omitempty" yaml:"cell_width,omitempty"`
	CellHeight       *float64 `json:"cell_height,omitempty" yaml:"cell_height,omitempty"`
	IntersectingOnly *bool    `json:"intersecting_only,omitempty" yaml:"intersecting_only,omitempty"`

	// Previews
	PreviewPNG  *string `json:"preview_png,omitempty" yaml:"preview_png,omitempty"`
	PreviewHTML *string `json:"preview_html,omitempty" yaml:"preview_html,omitempty"`
}

// LoadJobConfig reads a job file. The extension selects the decoder
// (.json, .yaml or .yml) and files over 1MB are refused.
func LoadJobConfig(path string) (*JobConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &JobConfig{}
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that are set.
func (c *JobConfig) Validate() error {
	if c.Rows != nil && *c.Rows < 1 {
		return fmt.Errorf("rows must be at least 1, got %d", *c.Rows)
	}
	if c.Columns != nil && *c.Columns < 1 {
		return fmt.Errorf("columns must be at least 1, got %d", *c.Columns)
	}
	for name, v := range map[string]*float64{"cell_width": c.CellWidth, "cell_height": c.CellHeight} {
		if v != nil && (*v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%s must be a finite non-negative number, got %v", name, *v)
		}
	}
	if (c.GetCellWidth() > 0) != (c.GetCellHeight() > 0) {
		return fmt.Errorf("cell_width and cell_height must be set together")
	}
	if c.Extent != nil && *c.Extent != "" {
		if _, err := extent.Parse(*c.Extent); err != nil {
			return fmt.Errorf("invalid extent: %w", err)
		}
	}
	return nil
}

func (c *JobConfig) GetSource() string      { return deref(c.Source) }
func (c *JobConfig) GetSourceLayer() string { return deref(c.SourceLayer) }
func (c *JobConfig) GetOutput() string      { return deref(c.Output) }
func (c *JobConfig) GetLayerName() string   { return deref(c.LayerName) }
func (c *JobConfig) GetPreviewPNG() string  { return deref(c.PreviewPNG) }
func (c *JobConfig) GetPreviewHTML() string { return deref(c.PreviewHTML) }

// GetExtent returns the explicit extent, or nil when the source layer's
// extent should be used.
func (c *JobConfig) GetExtent() *extent.Extent {
	if c.Extent == nil || *c.Extent == "" {
		return nil
	}
	e, err := extent.Parse(*c.Extent)
	if err != nil {
		return nil
	}
	return &e
}

func (c *JobConfig) GetRows() int {
	if c.Rows == nil {
		return defaultRows
	}
	return *c.Rows
}

func (c *JobConfig) GetColumns() int {
	if c.Columns == nil {
		return defaultColumns
	}
	return *c.Columns
}

func (c *JobConfig) GetCellWidth() float64 {
	if c.CellWidth == nil {
		return 0
	}
	return *c.CellWidth
}

func (c *JobConfig) GetCellHeight() float64 {
	if c.CellHeight == nil {
		return 0
	}
	return *c.CellHeight
}

func (c *JobConfig) GetIntersectingOnly() bool {
	return c.IntersectingOnly != nil && *c.IntersectingOnly
}

// GetOverwrite defaults to true: rebuilding an index replaces the old one.
func (c *JobConfig) GetOverwrite() bool {
	if c.Overwrite == nil {
		return defaultOverwrite
	}
	return *c.Overwrite
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
