package geom

import (
	"fmt"
	"math"
)

// JoinStyle selects how a buffer treats the ends of a polyline. Interior
// vertices always get round joins; JoinFlat squares off the two line ends
// instead of capping them with half-discs. The choice changes the buffer
// area, so it is fixed per deployment through configuration.
type JoinStyle int

const (
	JoinRound JoinStyle = iota
	JoinFlat
)

// BufferOptions controls buffer construction.
type BufferOptions struct {
	Join JoinStyle
	// Segments is the number of segments used to approximate a quarter
	// circle in round joins and caps. Zero means DefaultBufferSegments.
	Segments int
}

// DefaultBufferSegments matches the quad_segs default of common GIS stacks.
const DefaultBufferSegments = 8

// BufferLine returns the Minkowski-style buffer of a polyline by radius:
// one rectangle per segment plus discs at the joins, merged into a single
// polygon. A degenerate zero-length polyline buffers to a disc around its
// point. The radius must be positive.
func BufferLine(pts []Point, radius float64, opts BufferOptions) (Polygon, error) {
	if radius <= 0 || !finite(radius) {
		return nil, fmt.Errorf("%w: buffer radius %v must be > 0", ErrInvalidParameter, radius)
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: empty polyline", ErrInvalidParameter)
	}
	segments := opts.Segments
	if segments <= 0 {
		segments = DefaultBufferSegments
	}

	var pieces []Polygon
	for i := 1; i < len(pts); i++ {
		if q, ok := segmentQuad(pts[i-1], pts[i], radius); ok {
			pieces = append(pieces, q)
		}
	}
	for i, pt := range pts {
		if opts.Join == JoinFlat && (i == 0 || i == len(pts)-1) && len(pieces) > 0 {
			continue
		}
		pieces = append(pieces, disc(pt, radius, segments))
	}

	buf := pieces[0]
	for _, p := range pieces[1:] {
		buf = Union(buf, p)
	}
	return buf, nil
}

// segmentQuad returns the rectangle covering all points within radius of
// the segment ab, measured perpendicular to it. Degenerate segments
// (a == b) produce no quad.
func segmentQuad(a, b Point, radius float64) (Polygon, bool) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return nil, false
	}
	// unit left normal
	nx := -dy / length * radius
	ny := dx / length * radius
	ring := []Point{
		{X: a.X - nx, Y: a.Y - ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: a.X + nx, Y: a.Y + ny},
	}
	return Polygon{ring}, true
}

// disc returns a counterclockwise polygon approximating a circle. The
// sampling is offset by half a step: quad corners sit exactly on the
// circle, and a disc vertex landing on one would make the union ring
// self-tangent there.
func disc(center Point, radius float64, quarterSegments int) Polygon {
	n := 4 * quarterSegments
	ring := make([]Point, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * (float64(i) + 0.5) / float64(n)
		ring[i] = Point{
			X: center.X + radius*math.Cos(theta),
			Y: center.Y + radius*math.Sin(theta),
		}
	}
	return Polygon{ring}
}
