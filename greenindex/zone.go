// Package greenindex computes the per-segment green index: the fraction
// of a street segment's buffered influence zone covered by tree canopy.
package greenindex

import (
	"fmt"

	"greenroute/geom"
	"greenroute/osm"
)

// BuildZone buffers a street segment's polyline by radius into its
// influence zone. A degenerate zero-length segment buffers to a disc, not
// an error; a non-positive radius is rejected.
func BuildZone(seg *osm.Segment, radius float64, opts geom.BufferOptions) (geom.Polygon, error) {
	pts := make([]geom.Point, len(seg.Geometry))
	for i, p := range seg.Geometry {
		pts[i] = geom.Point{X: p[0], Y: p[1]}
	}
	zone, err := geom.BufferLine(pts, radius, opts)
	if err != nil {
		return nil, fmt.Errorf("segment %d influence zone: %w", seg.ID, err)
	}
	return zone, nil
}
