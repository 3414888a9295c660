package osm

import (
	"testing"

	"greenroute/geom"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProjector(t *testing.T) *geom.Projector {
	t.Helper()
	p, err := geom.NewProjector(geom.DefaultPlanarCRS)
	require.NoError(t, err)
	return p
}

// grid of raw nodes around (-96, 37), spaced ~100m apart
func rawGrid(ids map[int64][2]float64) map[int64]*rawNode {
	nodes := make(map[int64]*rawNode, len(ids))
	for id, offs := range ids {
		nodes[id] = &rawNode{
			id:  id,
			lon: -96.0 + offs[0]*0.001,
			lat: 37.0 + offs[1]*0.001,
		}
	}
	return nodes
}

func TestBuildNetwork_SplitsAtIntersection(t *testing.T) {
	// way 10 runs west-east through node 2, way 20 runs south-north
	// through the same node
	nodes := rawGrid(map[int64][2]float64{
		1: {-1, 0},
		2: {0, 0},
		3: {1, 0},
		4: {0, -1},
		5: {0, 1},
	})
	ways := []*rawWay{
		{id: 10, nodeIDs: []int64{1, 2, 3}},
		{id: 20, nodeIDs: []int64{4, 2, 5}},
	}

	net, err := buildNetwork(nodes, ways, testProjector(t))
	require.NoError(t, err)

	require.Len(t, net.Segments, 4)
	require.Len(t, net.Nodes, 5)

	// segment ids follow way id order
	assert.Equal(t, NodeID(1), net.Segments[1].From)
	assert.Equal(t, NodeID(2), net.Segments[1].To)
	assert.Equal(t, NodeID(2), net.Segments[2].From)
	assert.Equal(t, NodeID(3), net.Segments[2].To)
	assert.Equal(t, NodeID(4), net.Segments[3].From)
	assert.Equal(t, NodeID(2), net.Segments[3].To)
	assert.Equal(t, NodeID(2), net.Segments[4].From)
	assert.Equal(t, NodeID(5), net.Segments[4].To)

	for _, seg := range net.Segments {
		assert.Greater(t, seg.Length, 0.0)
		// spacing is ~0.001 degrees, roughly 90-120m on the ground
		assert.InDelta(t, 100, seg.Length, 30)
		assert.False(t, seg.Oneway)
	}
}

func TestBuildNetwork_KeepsInteriorVertices(t *testing.T) {
	// a lone way with a bend: node 2 is not an intersection, so the way
	// stays one segment with the bend preserved in its geometry
	nodes := rawGrid(map[int64][2]float64{
		1: {0, 0},
		2: {1, 0},
		3: {1, 1},
	})
	ways := []*rawWay{{id: 7, nodeIDs: []int64{1, 2, 3}}}

	net, err := buildNetwork(nodes, ways, testProjector(t))
	require.NoError(t, err)

	require.Len(t, net.Segments, 1)
	seg := net.Segments[1]
	assert.Equal(t, NodeID(1), seg.From)
	assert.Equal(t, NodeID(3), seg.To)
	assert.Len(t, seg.Geometry, 3)

	// interior vertices do not become network nodes
	require.Len(t, net.Nodes, 2)
	assert.Contains(t, net.Nodes, NodeID(1))
	assert.Contains(t, net.Nodes, NodeID(3))
}

func TestBuildNetwork_DeterministicAcrossWayOrder(t *testing.T) {
	nodes := rawGrid(map[int64][2]float64{
		1: {-1, 0},
		2: {0, 0},
		3: {1, 0},
		4: {0, -1},
		5: {0, 1},
	})
	forward := []*rawWay{
		{id: 10, nodeIDs: []int64{1, 2, 3}},
		{id: 20, nodeIDs: []int64{4, 2, 5}},
	}
	reversed := []*rawWay{
		{id: 20, nodeIDs: []int64{4, 2, 5}},
		{id: 10, nodeIDs: []int64{1, 2, 3}},
	}

	a, err := buildNetwork(rawGrid(map[int64][2]float64{
		1: {-1, 0}, 2: {0, 0}, 3: {1, 0}, 4: {0, -1}, 5: {0, 1},
	}), forward, testProjector(t))
	require.NoError(t, err)
	b, err := buildNetwork(nodes, reversed, testProjector(t))
	require.NoError(t, err)

	require.Equal(t, len(a.Segments), len(b.Segments))
	for id, seg := range a.Segments {
		other, ok := b.Segments[id]
		require.True(t, ok)
		assert.Equal(t, seg.From, other.From)
		assert.Equal(t, seg.To, other.To)
	}
}

func TestBuildNetwork_TrimsClippedNodes(t *testing.T) {
	// node 3 was clipped by the AOI filter; the way is trimmed to the
	// surviving run
	nodes := rawGrid(map[int64][2]float64{
		1: {0, 0},
		2: {1, 0},
	})
	ways := []*rawWay{{id: 5, nodeIDs: []int64{1, 2, 3}}}

	net, err := buildNetwork(nodes, ways, testProjector(t))
	require.NoError(t, err)

	require.Len(t, net.Segments, 1)
	assert.Equal(t, NodeID(1), net.Segments[1].From)
	assert.Equal(t, NodeID(2), net.Segments[1].To)
}

func TestBuildNetwork_SplitsAtClippedGap(t *testing.T) {
	// node 3 in the middle of the way was clipped by the AOI: the way is
	// cut at the gap, never spliced into a street bridging the hole
	nodes := rawGrid(map[int64][2]float64{
		1: {0, 0},
		2: {1, 0},
		4: {3, 0},
		5: {4, 0},
	})
	ways := []*rawWay{{id: 5, nodeIDs: []int64{1, 2, 3, 4, 5}}}

	net, err := buildNetwork(nodes, ways, testProjector(t))
	require.NoError(t, err)

	require.Len(t, net.Segments, 2)
	assert.Equal(t, NodeID(1), net.Segments[1].From)
	assert.Equal(t, NodeID(2), net.Segments[1].To)
	assert.Equal(t, NodeID(4), net.Segments[2].From)
	assert.Equal(t, NodeID(5), net.Segments[2].To)

	// each part spans one grid cell; a spliced segment would be ~3x that
	for _, seg := range net.Segments {
		assert.InDelta(t, 100, seg.Length, 30)
	}
}

func TestBuildNetwork_DropsDegenerateWays(t *testing.T) {
	nodes := rawGrid(map[int64][2]float64{
		1: {0, 0},
		2: {0, 0}, // same location as node 1
		3: {1, 1},
	})
	ways := []*rawWay{
		{id: 1, nodeIDs: []int64{1, 2}}, // zero length
		{id: 2, nodeIDs: []int64{3}},    // too short to be an edge
	}

	net, err := buildNetwork(nodes, ways, testProjector(t))
	require.NoError(t, err)
	assert.Empty(t, net.Segments)
}

func TestBBoxContains(t *testing.T) {
	box := BBox{MinLon: -96.1, MinLat: 36.9, MaxLon: -95.9, MaxLat: 37.1}
	assert.True(t, box.Contains(-96, 37))
	assert.True(t, box.Contains(-96.1, 36.9))
	assert.False(t, box.Contains(-96.2, 37))
	assert.False(t, box.Contains(-96, 37.2))
}

func TestNearestNode(t *testing.T) {
	nodes := rawGrid(map[int64][2]float64{
		1: {0, 0},
		2: {5, 0},
	})
	ways := []*rawWay{{id: 1, nodeIDs: []int64{1, 2}}}
	net, err := buildNetwork(nodes, ways, testProjector(t))
	require.NoError(t, err)

	id, dist, err := net.NearestNode(-96.0+0.0001, 37.0)
	require.NoError(t, err)
	assert.Equal(t, NodeID(1), id)
	assert.Less(t, dist, 20.0)

	id, _, err = net.NearestNode(-96.0+0.004, 37.0)
	require.NoError(t, err)
	assert.Equal(t, NodeID(2), id)
}

func TestNearestNode_CircleWiderThanBox(t *testing.T) {
	// node 1 falls inside the first non-empty search box, node 2 just
	// outside it, yet node 2 is closer on the ground because longitude
	// degrees are shorter than latitude degrees
	nodes := rawGrid(map[int64][2]float64{
		1: {0, 0.95},
		2: {1.05, 0},
	})
	ways := []*rawWay{{id: 1, nodeIDs: []int64{1, 2}}}
	net, err := buildNetwork(nodes, ways, testProjector(t))
	require.NoError(t, err)

	id, dist, err := net.NearestNode(-96, 37)
	require.NoError(t, err)
	assert.Equal(t, NodeID(2), id)
	assert.InDelta(t, 93, dist, 3)
}

func TestNearestNode_EmptyNetwork(t *testing.T) {
	net := &Network{Nodes: map[NodeID]*Node{}}
	_, _, err := net.NearestNode(-96, 37)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}
