package geom

import (
	"github.com/tidwall/rtree"
)

// RTreeItem represents an item stored in the RTree
type RTreeItem struct {
	ID int64
}

// RTree wraps tidwall/rtree for spatial indexing of planar geometries by
// their bounding boxes.
type RTree struct {
	tree *rtree.RTreeG[RTreeItem]
}

// NewRTree creates a new RTree
func NewRTree() *RTree {
	return &RTree{
		tree: &rtree.RTreeG[RTreeItem]{},
	}
}

// Insert adds an item to the RTree with the given bounding box
func (r *RTree) Insert(id int64, minX, minY, maxX, maxY float64) {
	r.tree.Insert(
		[2]float64{minX, minY},
		[2]float64{maxX, maxY},
		RTreeItem{ID: id},
	)
}

// InsertBounds adds an item covering the given geometry bounds.
func (r *RTree) InsertBounds(id int64, b *Bounds) {
	r.Insert(id, b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
}

// Search returns all item IDs whose bounding boxes intersect with the query bbox
func (r *RTree) Search(minX, minY, maxX, maxY float64) []int64 {
	result := make([]int64, 0)
	r.tree.Search(
		[2]float64{minX, minY},
		[2]float64{maxX, maxY},
		func(min, max [2]float64, item RTreeItem) bool {
			result = append(result, item.ID)
			return true // continue searching
		},
	)
	return result
}

// SearchBounds returns all item IDs whose bounding boxes intersect b.
func (r *RTree) SearchBounds(b *Bounds) []int64 {
	return r.Search(b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
}

// SearchNearPoint returns all item IDs whose boxes intersect the square
// of the given half-width centered on a point
func (r *RTree) SearchNearPoint(x, y, distance float64) []int64 {
	return r.Search(x-distance, y-distance, x+distance, y+distance)
}

// Size returns the number of items in the RTree
func (r *RTree) Size() int {
	return r.tree.Len()
}
