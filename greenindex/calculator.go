package greenindex

import (
	"log"
	"sort"

	"greenroute/geom"
)

// Calculator computes green indexes for influence zones against a fixed
// set of tree polygons. Construction repairs the polygons once and builds
// a spatial index; a built Calculator is read-only and safe for
// concurrent use.
type Calculator struct {
	trees []geom.Polygon
	index *geom.RTree
}

// NewCalculator prepares a calculator from vectorized tree polygons.
// Polygons that cannot be repaired into valid geometry are logged and
// excluded; a noisy mask must not abort the whole indexing run.
func NewCalculator(trees []geom.Polygon) *Calculator {
	c := &Calculator{
		trees: make([]geom.Polygon, 0, len(trees)),
		index: geom.NewRTree(),
	}
	for i, t := range trees {
		repaired, err := geom.Repair(t)
		if err != nil {
			log.Printf("warning: tree polygon %d skipped: %v", i, err)
			continue
		}
		if len(repaired) == 0 {
			continue
		}
		id := int64(len(c.trees))
		c.trees = append(c.trees, repaired)
		c.index.InsertBounds(id, repaired.Bounds())
	}
	return c
}

// TreeCount returns the number of usable tree polygons.
func (c *Calculator) TreeCount() int { return len(c.trees) }

// ComputeIndex returns the fraction of the zone's area covered by tree
// canopy, in [0,1]. A zone with zero area yields 0. Candidate trees come
// from the spatial index and are merged in a fixed order, so identical
// inputs always produce the identical result.
func (c *Calculator) ComputeIndex(zone geom.Polygon) float64 {
	zoneArea := geom.Area(zone)
	if zoneArea == 0 {
		return 0
	}
	candidates := c.index.SearchBounds(zone.Bounds())
	if len(candidates) == 0 {
		return 0
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	// clip each tree to the zone first, then merge the clips: the
	// union operates on small geometries instead of the whole canopy
	var covered geom.Polygon
	for _, id := range candidates {
		clip := geom.Intersect(c.trees[id], zone)
		if len(clip) == 0 {
			continue
		}
		if covered == nil {
			covered = clip
		} else {
			covered = geom.Union(covered, clip)
		}
	}
	if covered == nil {
		return 0
	}
	idx := geom.Area(covered) / zoneArea
	if idx < 0 {
		return 0
	}
	if idx > 1 {
		return 1
	}
	return idx
}
