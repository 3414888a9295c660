package routing

import (
	"fmt"

	"greenroute/osm"

	"github.com/paulmach/orb"
)

// Route is a planned path through the routing graph. TotalLength is the
// summed segment length; GreenWeight is the summed green influence
// (green index × length) over the traversed edges. A Route is never
// mutated after planning.
type Route struct {
	Mode        Mode
	Nodes       []osm.NodeID
	Edges       []osm.SegmentID
	TotalLength float64
	GreenWeight float64
}

// Geometry merges the traversed edge polylines, in traversal order and
// orientation, into one continuous planar line. An empty route (source
// equal to target) has no geometry.
func (r *Route) Geometry(g *Graph) (orb.LineString, error) {
	if len(r.Edges) == 0 {
		return nil, nil
	}
	var line orb.LineString
	at := r.Nodes[0]
	for _, id := range r.Edges {
		e, ok := g.EdgeByID(id)
		if !ok {
			return nil, fmt.Errorf("route references unknown segment %d", id)
		}
		pts := e.Geometry
		next := e.To
		if e.To == at {
			pts = reversedLine(pts)
			next = e.From
		} else if e.From != at {
			return nil, fmt.Errorf("route is not contiguous at node %d", at)
		}
		if len(line) > 0 {
			pts = pts[1:] // shared vertex with the previous edge
		}
		line = append(line, pts...)
		at = next
	}
	return line, nil
}

func reversedLine(line orb.LineString) orb.LineString {
	out := make(orb.LineString, len(line))
	for i, p := range line {
		out[len(line)-1-i] = p
	}
	return out
}
