package grid

import (
	"github.com/ctessum/geom/index/rtree"

	"github.com/banshee-data/gridindex/internal/extent"
)

// FilterIntersecting keeps the cells whose rectangle overlaps at least one
// feature's bounding box. Boxes that only share an edge do not count, except
// for zero-area boxes (points, axis-aligned lines), which select every cell
// they touch. Cells are kept whole, never clipped. Page names and
// numbers keep their full-grid values so gaps show which cells were dropped.
func FilterIntersecting(cells []Cell, features []extent.Extent) []Cell {
	if len(features) == 0 {
		return nil
	}

	tree := rtree.NewTree(25, 50)
	for _, f := range features {
		tree.Insert(f.Bounds())
	}

	out := make([]Cell, 0, len(cells))
	for _, c := range cells {
		for _, hit := range tree.SearchIntersect(c.Bounds.Bounds()) {
			fb, err := extent.FromBounds(hit.Bounds())
			if err != nil {
				continue
			}
			if c.Bounds.Overlaps(fb) || (zeroArea(fb) && c.Bounds.Intersects(fb)) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func zeroArea(e extent.Extent) bool { return e.Width() == 0 || e.Height() == 0 }
