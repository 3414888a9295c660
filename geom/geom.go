// Package geom provides the planar geometry layer for the routing engine:
// polygon types and boolean operations (backed by ctessum/geom), polyline
// buffering, WGS84-to-planar projection and a spatial index.
//
// All coordinates in this package are planar ground coordinates (meters)
// unless a function says otherwise.
package geom

import (
	"errors"
	"fmt"
	"math"

	polygeom "github.com/ctessum/geom"
)

// Geometry types are re-exported from ctessum/geom so downstream packages
// only deal with a single geometry vocabulary.
type (
	Point      = polygeom.Point
	Path       = polygeom.Path
	LineString = polygeom.LineString
	Polygon    = polygeom.Polygon
	Polygonal  = polygeom.Polygonal
	Bounds     = polygeom.Bounds
)

var (
	// ErrInvalidGeometry marks a polygon that could not be repaired into a
	// valid shape. Callers are expected to skip the offending polygon.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrInvalidParameter marks an out-of-range caller-supplied parameter.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Repair restores validity of a possibly self-intersecting polygon by
// re-noding it through a union with the empty polygon. Polygons with
// non-finite vertices cannot be repaired and return ErrInvalidGeometry.
func Repair(p Polygon) (Polygon, error) {
	for _, ring := range p {
		for _, pt := range ring {
			if !finite(pt.X) || !finite(pt.Y) {
				return nil, fmt.Errorf("%w: non-finite vertex (%v, %v)", ErrInvalidGeometry, pt.X, pt.Y)
			}
		}
	}
	fixed := Union(p, Polygon{})
	a := fixed.Area()
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return nil, fmt.Errorf("%w: repair produced non-finite area", ErrInvalidGeometry)
	}
	return fixed, nil
}

// Union merges two polygons. The boolean methods on Polygon return the
// Polygonal interface with a Polygon inside; this converts back and cleans
// the rings so the result can feed further boolean operations.
func Union(a, b Polygon) Polygon {
	return normalize(a.Union(b).(Polygon))
}

// Intersect clips a to b.
func Intersect(a, b Polygon) Polygon {
	return normalize(a.Intersection(b).(Polygon))
}

// normalize strips what the clipper emits but cannot consume again:
// the duplicated closing vertex, zero-length edges from tangent pieces,
// and rings collapsed below three distinct vertices. Feeding such rings
// back into a boolean operation makes it return empty results.
func normalize(p Polygon) Polygon {
	out := make(Polygon, 0, len(p))
	for _, ring := range p {
		r := make(Path, 0, len(ring))
		for _, pt := range ring {
			if len(r) > 0 && pt == r[len(r)-1] {
				continue
			}
			r = append(r, pt)
		}
		for len(r) > 1 && r[len(r)-1] == r[0] {
			r = r[:len(r)-1]
		}
		if len(r) >= 3 {
			out = append(out, r)
		}
	}
	return out
}

// Area returns the absolute area of p.
func Area(p Polygon) float64 {
	return math.Abs(p.Area())
}

// LineLength returns the total length of a planar polyline.
func LineLength(pts []Point) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += math.Hypot(pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y)
	}
	return total
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
