package routing

import (
	"math"
	"testing"

	"greenroute/geom"
	"greenroute/osm"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// netBuilder assembles small synthetic street networks with planar
// coordinates for planner tests.
type netBuilder struct {
	net     *osm.Network
	indexes map[osm.SegmentID]float64
	nextSeg osm.SegmentID
}

func newNetBuilder() *netBuilder {
	return &netBuilder{
		net: &osm.Network{
			Nodes:    make(map[osm.NodeID]*osm.Node),
			Segments: make(map[osm.SegmentID]*osm.Segment),
		},
		indexes: make(map[osm.SegmentID]float64),
		nextSeg: 1,
	}
}

func (b *netBuilder) node(id osm.NodeID, x, y float64) *netBuilder {
	b.net.Nodes[id] = &osm.Node{ID: id, X: x, Y: y}
	return b
}

func (b *netBuilder) edge(from, to osm.NodeID, green float64) *netBuilder {
	f, t := b.net.Nodes[from], b.net.Nodes[to]
	line := orb.LineString{{f.X, f.Y}, {t.X, t.Y}}
	b.net.Segments[b.nextSeg] = &osm.Segment{
		ID: b.nextSeg, From: from, To: to,
		Geometry: line,
		Length:   math.Hypot(t.X-f.X, t.Y-f.Y),
	}
	b.indexes[b.nextSeg] = green
	b.nextSeg++
	return b
}

func (b *netBuilder) graph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewGraph(b.net, b.indexes)
	require.NoError(t, err)
	return g
}

// diamond returns two routes from 1 to 4: up through 2 (length 20) and
// down through 3 (length 30), with the longer side fully green.
func diamond(t *testing.T) *Graph {
	return newNetBuilder().
		node(1, 0, 0).node(2, 10, 10).node(3, 15, -15).node(4, 20, 0).
		edge(1, 2, 0).edge(2, 4, 0).
		edge(1, 3, 1).edge(3, 4, 1).
		graph(t)
}

func pathNodes(t *testing.T, g *Graph, mode Mode, from, to osm.NodeID) []osm.NodeID {
	t.Helper()
	wg, err := g.Weighted(mode, WeightOptions{})
	require.NoError(t, err)
	route, err := PlanRoute(wg, from, to)
	require.NoError(t, err)
	return route.Nodes
}

func TestWeighted_ShortestIsLength(t *testing.T) {
	g := diamond(t)
	wg, err := g.Weighted(ModeShortest, WeightOptions{})
	require.NoError(t, err)
	for i := range g.Edges {
		assert.Equal(t, g.Edges[i].Length, wg.Weight(i))
	}
}

func TestWeighted_GreenestMonotonic(t *testing.T) {
	weightFor := func(green float64) float64 {
		g := newNetBuilder().
			node(1, 0, 0).node(2, 100, 0).
			edge(1, 2, green).
			graph(t)
		wg, err := g.Weighted(ModeGreenest, WeightOptions{})
		require.NoError(t, err)
		return wg.Weight(0)
	}
	prev := math.Inf(1)
	for _, green := range []float64{0, 0.25, 0.5, 0.75, 1} {
		w := weightFor(green)
		assert.Less(t, w, prev, "weight must decrease as green index rises")
		assert.Greater(t, w, 0.0)
		prev = w
	}
}

func TestWeighted_GreenIndexInvariant(t *testing.T) {
	g := diamond(t)
	g.Edges[0].GreenIndex = 1.5
	_, err := g.Weighted(ModeGreenest, WeightOptions{})
	require.ErrorIs(t, err, ErrInvariant)
}

func TestWeighted_NegativeEpsilon(t *testing.T) {
	_, err := diamond(t).Weighted(ModeGreenest, WeightOptions{Epsilon: -0.5})
	require.ErrorIs(t, err, geom.ErrInvalidParameter)
}

func TestWeighted_UnknownMode(t *testing.T) {
	_, err := diamond(t).Weighted(Mode("scenic"), WeightOptions{})
	require.Error(t, err)
}

func TestNewGraph_RejectsOutOfRangeIndex(t *testing.T) {
	b := newNetBuilder().node(1, 0, 0).node(2, 1, 0).edge(1, 2, 2.0)
	_, err := NewGraph(b.net, b.indexes)
	require.ErrorIs(t, err, ErrInvariant)
}

func TestPlanRoute_Deterministic(t *testing.T) {
	g := diamond(t)
	first := pathNodes(t, g, ModeGreenest, 1, 4)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, pathNodes(t, g, ModeGreenest, 1, 4))
	}
}

func TestPlanRoute_BareCanopyModesAgree(t *testing.T) {
	// no canopy anywhere: the greenest route is the shortest route
	g := newNetBuilder().
		node(1, 0, 0).node(2, 10, 10).node(3, 15, -15).node(4, 20, 0).
		edge(1, 2, 0).edge(2, 4, 0).
		edge(1, 3, 0).edge(3, 4, 0).
		graph(t)
	assert.Equal(t, pathNodes(t, g, ModeShortest, 1, 4), pathNodes(t, g, ModeGreenest, 1, 4))
}

func TestPlanRoute_GreenDetour(t *testing.T) {
	g := diamond(t)
	assert.Equal(t, []osm.NodeID{1, 2, 4}, pathNodes(t, g, ModeShortest, 1, 4))
	assert.Equal(t, []osm.NodeID{1, 3, 4}, pathNodes(t, g, ModeGreenest, 1, 4),
		"greenest mode should detour through the canopied side")
}

func TestPlanRoute_SourceEqualsTarget(t *testing.T) {
	wg, err := diamond(t).Weighted(ModeShortest, WeightOptions{})
	require.NoError(t, err)
	route, err := PlanRoute(wg, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []osm.NodeID{2}, route.Nodes)
	assert.Empty(t, route.Edges)
	assert.Zero(t, route.TotalLength)
	assert.Zero(t, route.GreenWeight)
}

func TestPlanRoute_Disconnected(t *testing.T) {
	g := newNetBuilder().
		node(1, 0, 0).node(2, 1, 0).
		node(3, 100, 100).node(4, 101, 100).
		edge(1, 2, 0).edge(3, 4, 0).
		graph(t)
	wg, err := g.Weighted(ModeShortest, WeightOptions{})
	require.NoError(t, err)
	_, err = PlanRoute(wg, 1, 4)
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestPlanRoute_UnknownNode(t *testing.T) {
	wg, err := diamond(t).Weighted(ModeShortest, WeightOptions{})
	require.NoError(t, err)
	_, err = PlanRoute(wg, 99, 1)
	require.ErrorIs(t, err, osm.ErrNodeNotFound)
	_, err = PlanRoute(wg, 1, 99)
	require.ErrorIs(t, err, osm.ErrNodeNotFound)
}

func TestPlanRoute_Metrics(t *testing.T) {
	g := diamond(t)
	wg, err := g.Weighted(ModeGreenest, WeightOptions{})
	require.NoError(t, err)
	route, err := PlanRoute(wg, 1, 4)
	require.NoError(t, err)

	legA := math.Hypot(15, 15)
	legB := math.Hypot(5, 15)
	assert.InDelta(t, legA+legB, route.TotalLength, 1e-9)
	// both traversed edges have green index 1
	assert.InDelta(t, route.TotalLength, route.GreenWeight, 1e-9)
}

func TestPlanRoute_MetricsIgnoreEpsilon(t *testing.T) {
	g := diamond(t)
	for _, eps := range []float64{0.001, 0.5} {
		wg, err := g.Weighted(ModeGreenest, WeightOptions{Epsilon: eps})
		require.NoError(t, err)
		route, err := PlanRoute(wg, 1, 3)
		require.NoError(t, err)
		assert.InDelta(t, math.Hypot(15, 15), route.TotalLength, 1e-9)
		assert.InDelta(t, route.TotalLength, route.GreenWeight, 1e-9)
	}
}

func TestRouteGeometry(t *testing.T) {
	g := diamond(t)
	wg, err := g.Weighted(ModeGreenest, WeightOptions{})
	require.NoError(t, err)
	route, err := PlanRoute(wg, 4, 1) // traverses both edges against storage order
	require.NoError(t, err)

	line, err := route.Geometry(g)
	require.NoError(t, err)
	require.Len(t, line, 3)
	assert.Equal(t, orb.Point{20, 0}, line[0])
	assert.Equal(t, orb.Point{15, -15}, line[1])
	assert.Equal(t, orb.Point{0, 0}, line[2])
}

func TestRouteGeometry_EmptyRoute(t *testing.T) {
	g := diamond(t)
	wg, err := g.Weighted(ModeShortest, WeightOptions{})
	require.NoError(t, err)
	route, err := PlanRoute(wg, 1, 1)
	require.NoError(t, err)
	line, err := route.Geometry(g)
	require.NoError(t, err)
	assert.Empty(t, line)
}
