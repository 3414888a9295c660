package routing

import (
	"container/heap"
	"fmt"

	"greenroute/osm"
)

// queueItem is a node with its tentative distance from the source.
type queueItem struct {
	node osm.NodeID
	dist float64
}

// distQueue is a min-heap over tentative distances. Equal distances break
// ties on node id so traversal order, and therefore tie-broken routes,
// are reproducible for identical graphs.
type distQueue []queueItem

func (q distQueue) Len() int { return len(q) }
func (q distQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}
func (q distQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *distQueue) Push(x any)        { *q = append(*q, x.(queueItem)) }
func (q *distQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// PlanRoute finds the minimum-weight path from source to target on a
// weighted graph and aggregates the route metrics over the traversed
// edges. Unknown endpoints are malformed-graph errors; a disconnected
// target is the expected ErrNoRoute. When source equals target the
// zero route is returned without running the search.
func PlanRoute(wg *WeightedGraph, source, target osm.NodeID) (*Route, error) {
	if _, ok := wg.Nodes[source]; !ok {
		return nil, fmt.Errorf("source %w: %d", osm.ErrNodeNotFound, source)
	}
	if _, ok := wg.Nodes[target]; !ok {
		return nil, fmt.Errorf("target %w: %d", osm.ErrNodeNotFound, target)
	}
	if source == target {
		return &Route{Mode: wg.Mode, Nodes: []osm.NodeID{source}}, nil
	}

	dist := make(map[osm.NodeID]float64, len(wg.Nodes))
	prevEdge := make(map[osm.NodeID]int, len(wg.Nodes))
	prevNode := make(map[osm.NodeID]osm.NodeID, len(wg.Nodes))
	done := make(map[osm.NodeID]bool, len(wg.Nodes))

	q := &distQueue{{node: source, dist: 0}}
	dist[source] = 0

	for q.Len() > 0 {
		item := heap.Pop(q).(queueItem)
		if done[item.node] {
			continue
		}
		done[item.node] = true
		if item.node == target {
			break
		}
		wg.neighbors(item.node, func(edgeIdx int, other osm.NodeID) {
			if done[other] {
				return
			}
			cand := item.dist + wg.Weight(edgeIdx)
			cur, seen := dist[other]
			if !seen || cand < cur {
				dist[other] = cand
				prevEdge[other] = edgeIdx
				prevNode[other] = item.node
				heap.Push(q, queueItem{node: other, dist: cand})
			}
		})
	}

	if !done[target] {
		return nil, fmt.Errorf("%w from %d to %d", ErrNoRoute, source, target)
	}

	// backtrack, then aggregate raw metrics over the traversed edges;
	// the reported green influence never includes the epsilon used for
	// numerical well-posedness
	var nodes []osm.NodeID
	var edges []osm.SegmentID
	route := &Route{Mode: wg.Mode}
	for at := target; ; {
		nodes = append(nodes, at)
		if at == source {
			break
		}
		idx := prevEdge[at]
		e := &wg.Edges[idx]
		edges = append(edges, e.ID)
		route.TotalLength += e.Length
		route.GreenWeight += e.GreenIndex * e.Length
		at = prevNode[at]
	}
	reverseNodes(nodes)
	reverseSegs(edges)
	route.Nodes = nodes
	route.Edges = edges
	return route, nil
}

func reverseNodes(s []osm.NodeID) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseSegs(s []osm.SegmentID) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
