// Package grid partitions a layer extent into a rows x columns index of
// rectangular cells.
//
// Responsibilities: cell size calculation, cell geometry, page naming and
// the intersecting-cell filter.
// Key types: Spec, Cell.
//
// Layout: cells are emitted row-major starting at the upper-left corner of
// the extent. Columns run along X, rows run down Y. Row 0 is the top row.
//
// No file or database code is allowed in this package; readers and writers
// live in internal/layer and internal/gpkg.
package grid
