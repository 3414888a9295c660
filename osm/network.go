// Package osm ingests an OpenStreetMap extract and turns its walkable
// ways into the street network the routing engine runs on.
package osm

import (
	"errors"
	"fmt"
	"math"

	"greenroute/geom"

	"github.com/paulmach/orb"
)

type NodeID int64

type SegmentID int64

// Node is a street intersection or way endpoint. X and Y are planar
// working-system coordinates; Lon and Lat are kept for snapping requests
// addressed by geographic coordinates.
type Node struct {
	ID       NodeID
	Lon, Lat float64
	X, Y     float64
}

// Segment is a street edge between two network nodes. Its geometry is the
// full polyline in planar coordinates, ordered From to To, and Length is
// precomputed from that polyline in ground units.
type Segment struct {
	ID       SegmentID
	From, To NodeID
	Geometry orb.LineString
	Length   float64
	// Oneway is false for the walk profile; kept so a directed profile
	// can restrict traversal without changing the graph build.
	Oneway bool
}

// BBox is a geographic (lon/lat) bounding box.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Contains reports whether the box contains the coordinate.
func (b BBox) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// Network is the street network of one AOI: nodes keyed by id, segments
// keyed by id, all geometry in the CRS the network was built with.
// A Network is immutable after loading.
type Network struct {
	CRS      string
	Nodes    map[NodeID]*Node
	Segments map[SegmentID]*Segment

	// nodeIndex holds node lon/lat locations for snap queries.
	nodeIndex *geom.RTree
}

// ErrNodeNotFound is returned when a node id or snap query resolves to
// nothing in the network.
var ErrNodeNotFound = errors.New("node not found")

// minMetersPerDegree is a lower bound on the ground length of one degree
// of latitude, used to turn a great-circle radius into a covering search
// box. Longitude degrees shrink by cos(lat) on top of it.
const minMetersPerDegree = 110000.0

// NearestNode returns the network node closest to a WGS84 coordinate and
// its great-circle distance in meters. Candidates come from the node
// index: the search box grows until it catches one, then is widened to
// cover every node at least as close as the best candidate, since a
// node can sit outside the box yet inside the circle.
func (n *Network) NearestNode(lon, lat float64) (NodeID, float64, error) {
	if n.nodeIndex == nil || n.nodeIndex.Size() == 0 {
		return 0, 0, fmt.Errorf("%w: empty network", ErrNodeNotFound)
	}

	halfWidth := 0.0005 // degrees, ~50m
	var ids []int64
	for {
		ids = n.nodeIndex.SearchNearPoint(lon, lat, halfWidth)
		if len(ids) > 0 || halfWidth > 360 {
			break
		}
		halfWidth *= 2
	}
	if len(ids) == 0 {
		return 0, 0, fmt.Errorf("%w: no node near (%v, %v)", ErrNodeNotFound, lon, lat)
	}
	best, bestDist := n.nearestOf(ids, lon, lat)

	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	cover := bestDist / (minMetersPerDegree * cosLat)
	if cover > halfWidth {
		ids = n.nodeIndex.SearchNearPoint(lon, lat, cover)
		best, bestDist = n.nearestOf(ids, lon, lat)
	}
	return best, bestDist, nil
}

func (n *Network) nearestOf(ids []int64, lon, lat float64) (NodeID, float64) {
	best := NodeID(0)
	bestDist := -1.0
	for _, id := range ids {
		node := n.Nodes[NodeID(id)]
		d := geom.GreatCircleDistance(lon, lat, node.Lon, node.Lat)
		if bestDist < 0 || d < bestDist || (d == bestDist && node.ID < best) {
			best, bestDist = node.ID, d
		}
	}
	return best, bestDist
}
