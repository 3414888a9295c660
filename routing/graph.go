// Package routing builds the weighted routing graph over the street
// network and plans shortest and greenest walking routes on it.
package routing

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"greenroute/osm"

	"github.com/paulmach/orb"
)

// Mode selects what a route optimizes for.
type Mode string

const (
	ModeShortest Mode = "shortest"
	ModeGreenest Mode = "greenest"
)

// ParseMode validates a caller-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeShortest, ModeGreenest:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown routing mode %q (want shortest or greenest)", s)
}

var (
	// ErrNoRoute is returned when source and target are in disconnected
	// components. Expected and reported, never fatal.
	ErrNoRoute = errors.New("no route")

	// ErrInvariant marks a broken internal invariant, such as a green
	// index outside [0,1]. Always indicates an upstream bug.
	ErrInvariant = errors.New("invariant violation")
)

// Edge is a street segment annotated for routing. Length and GreenIndex
// never change after the graph is built.
type Edge struct {
	ID         osm.SegmentID
	From, To   osm.NodeID
	Length     float64
	GreenIndex float64
	Geometry   orb.LineString
}

// Graph is the routing graph of one AOI: nodes from the street network,
// edges with length and green index. It is immutable once built; weights
// live in a WeightedGraph overlay so one graph serves both modes.
type Graph struct {
	Nodes    map[osm.NodeID]*osm.Node
	Edges    []Edge
	edgeByID map[osm.SegmentID]int
	adj      map[osm.NodeID][]int // edge indexes, in edge order
}

// NewGraph assembles the routing graph from a street network and the
// per-segment green indexes. Segments missing from the index map count as
// bare (index 0); self-loop segments are dropped since no optimal path
// traverses one.
func NewGraph(net *osm.Network, indexes map[osm.SegmentID]float64) (*Graph, error) {
	g := &Graph{
		Nodes:    net.Nodes,
		Edges:    make([]Edge, 0, len(net.Segments)),
		edgeByID: make(map[osm.SegmentID]int, len(net.Segments)),
		adj:      make(map[osm.NodeID][]int, len(net.Nodes)),
	}

	ids := make([]osm.SegmentID, 0, len(net.Segments))
	for id := range net.Segments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var loops int
	for _, id := range ids {
		seg := net.Segments[id]
		if seg.From == seg.To {
			loops++
			continue
		}
		gi := indexes[seg.ID]
		if gi < 0 || gi > 1 {
			return nil, fmt.Errorf("%w: segment %d green index %v outside [0,1]", ErrInvariant, seg.ID, gi)
		}
		idx := len(g.Edges)
		g.Edges = append(g.Edges, Edge{
			ID:         seg.ID,
			From:       seg.From,
			To:         seg.To,
			Length:     seg.Length,
			GreenIndex: gi,
			Geometry:   seg.Geometry,
		})
		g.edgeByID[seg.ID] = idx
		g.adj[seg.From] = append(g.adj[seg.From], idx)
		if !seg.Oneway {
			g.adj[seg.To] = append(g.adj[seg.To], idx)
		}
	}
	if loops > 0 {
		log.Printf("Dropped %d self-loop segments from routing graph", loops)
	}
	return g, nil
}

// EdgeByID returns the edge for a segment id.
func (g *Graph) EdgeByID(id osm.SegmentID) (*Edge, bool) {
	idx, ok := g.edgeByID[id]
	if !ok {
		return nil, false
	}
	return &g.Edges[idx], true
}

// neighbors calls fn for every edge leaving node, with the node at the
// far end, in deterministic edge order.
func (g *Graph) neighbors(node osm.NodeID, fn func(edgeIdx int, other osm.NodeID)) {
	for _, idx := range g.adj[node] {
		e := &g.Edges[idx]
		other := e.To
		if other == node {
			other = e.From
		}
		fn(idx, other)
	}
}
