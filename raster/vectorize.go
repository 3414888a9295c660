package raster

import (
	"fmt"
	"math"

	"greenroute/geom"
)

// Connectivity selects which cell neighborhoods form one canopy region.
type Connectivity int

const (
	Connect4 Connectivity = 4
	Connect8 Connectivity = 8
)

// VectorizeOptions tunes the raster-to-vector extraction.
type VectorizeOptions struct {
	// Connectivity defaults to Connect4, matching the usual GIS
	// polygonization default.
	Connectivity Connectivity
	// MinArea drops polygons whose ground area falls below it, to
	// suppress single-cell segmentation noise. Zero keeps everything.
	MinArea float64
}

// Vectorize converts the canopy cells of a binary mask into ground-space
// polygons, one per connected region, with holes preserved. A mask with no
// canopy cells yields an empty slice, not an error.
func Vectorize(mask *TreeMask, opts VectorizeOptions) ([]geom.Polygon, error) {
	if err := mask.check(); err != nil {
		return nil, err
	}
	if opts.MinArea < 0 {
		return nil, fmt.Errorf("%w: minimum area %v must be >= 0", geom.ErrInvalidParameter, opts.MinArea)
	}
	conn := opts.Connectivity
	switch conn {
	case 0:
		conn = Connect4
	case Connect4, Connect8:
	default:
		return nil, fmt.Errorf("%w: connectivity %d", geom.ErrInvalidParameter, conn)
	}

	fg, err := mask.foreground()
	if err != nil {
		return nil, err
	}
	if fg == 0 {
		return []geom.Polygon{}, nil
	}

	labels, ncomp := labelRegions(mask, fg, conn)
	edges := regionEdges(mask, labels, ncomp)

	polys := make([]geom.Polygon, 0, ncomp)
	for comp := 1; comp <= ncomp; comp++ {
		poly, area := assemblePolygon(traceRings(edges[comp]), mask.Transform)
		if opts.MinArea > 0 && area < opts.MinArea {
			continue
		}
		polys = append(polys, poly)
	}
	return polys, nil
}

// labelRegions floods connected canopy cells with component ids, scanning
// row-major so ids (and therefore output order) are reproducible.
func labelRegions(mask *TreeMask, fg uint8, conn Connectivity) ([]int32, int) {
	w, h := mask.Width, mask.Height
	labels := make([]int32, w*h)
	offsets := [][2]int{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}
	if conn == Connect8 {
		offsets = append(offsets, [2]int{-1, -1}, [2]int{1, -1}, [2]int{-1, 1}, [2]int{1, 1})
	}

	var next int32
	queue := make([]int, 0, 64)
	for start := 0; start < w*h; start++ {
		if mask.Data[start] != fg || labels[start] != 0 {
			continue
		}
		next++
		labels[start] = next
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			cell := queue[0]
			queue = queue[1:]
			r, c := cell/w, cell%w
			for _, off := range offsets {
				nc, nr := c+off[0], r+off[1]
				if nc < 0 || nr < 0 || nc >= w || nr >= h {
					continue
				}
				n := nr*w + nc
				if mask.Data[n] == fg && labels[n] == 0 {
					labels[n] = next
					queue = append(queue, n)
				}
			}
		}
	}
	return labels, int(next)
}

// gridEdge is a directed boundary edge between two cell corners, oriented
// so the region interior lies on its left.
type gridEdge struct {
	fx, fy, tx, ty int
}

// regionEdges collects the directed boundary edges of every region. A cell
// side is a boundary where the 4-neighbor across it is background or off
// the grid (two distinct regions are never 4-adjacent).
func regionEdges(mask *TreeMask, labels []int32, ncomp int) [][]gridEdge {
	w, h := mask.Width, mask.Height
	edges := make([][]gridEdge, ncomp+1)
	inside := func(r, c int) bool {
		return c >= 0 && r >= 0 && c < w && r < h && labels[r*w+c] != 0
	}
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			comp := labels[r*w+c]
			if comp == 0 {
				continue
			}
			if !inside(r-1, c) { // top
				edges[comp] = append(edges[comp], gridEdge{c, r, c + 1, r})
			}
			if !inside(r+1, c) { // bottom
				edges[comp] = append(edges[comp], gridEdge{c + 1, r + 1, c, r + 1})
			}
			if !inside(r, c-1) { // left
				edges[comp] = append(edges[comp], gridEdge{c, r + 1, c, r})
			}
			if !inside(r, c+1) { // right
				edges[comp] = append(edges[comp], gridEdge{c + 1, r, c + 1, r + 1})
			}
		}
	}
	return edges
}

type tracedRing struct {
	pts    []geom.Point // cell-space corner coordinates
	signed float64      // cell-space shoelace area; > 0 for outer rings
}

// traceRings chains directed boundary edges into closed rings. Where two
// rings pinch through the same corner, the walk takes the sharpest left
// turn, which keeps every ring simple.
func traceRings(edges []gridEdge) []tracedRing {
	vertexKey := func(x, y int) int64 { return int64(y)<<32 | int64(uint32(x)) }
	byStart := make(map[int64][]int, len(edges))
	for i, e := range edges {
		k := vertexKey(e.fx, e.fy)
		byStart[k] = append(byStart[k], i)
	}
	used := make([]bool, len(edges))

	var rings []tracedRing
	for i := range edges {
		if used[i] {
			continue
		}
		ring := walkRing(edges, byStart, used, i)
		ring = dropCollinear(ring)
		rings = append(rings, tracedRing{pts: ring, signed: shoelace(ring)})
	}
	return rings
}

func walkRing(edges []gridEdge, byStart map[int64][]int, used []bool, start int) []geom.Point {
	vertexKey := func(x, y int) int64 { return int64(y)<<32 | int64(uint32(x)) }
	var pts []geom.Point
	cur := start
	startX, startY := edges[start].fx, edges[start].fy
	for {
		e := edges[cur]
		used[cur] = true
		pts = append(pts, geom.Point{X: float64(e.fx), Y: float64(e.fy)})
		if e.tx == startX && e.ty == startY {
			return pts
		}
		cur = nextEdge(edges, byStart[vertexKey(e.tx, e.ty)], used, e)
	}
}

// nextEdge picks the continuation among unused edges leaving the current
// endpoint, preferring the sharpest left turn.
func nextEdge(edges []gridEdge, candidates []int, used []bool, prev gridEdge) int {
	dx, dy := prev.tx-prev.fx, prev.ty-prev.fy
	best, bestScore := -1, 4
	for _, ci := range candidates {
		if used[ci] {
			continue
		}
		e := edges[ci]
		ex, ey := e.tx-e.fx, e.ty-e.fy
		cross := dx*ey - dy*ex
		dot := dx*ex + dy*ey
		var score int
		switch {
		case cross > 0:
			score = 0 // left turn
		case cross == 0 && dot > 0:
			score = 1 // straight
		case cross < 0:
			score = 2 // right turn
		default:
			score = 3 // reversal, never taken while alternatives exist
		}
		if score < bestScore {
			best, bestScore = ci, score
		}
	}
	return best
}

// dropCollinear removes interior vertices of straight runs, including
// across the ring closure.
func dropCollinear(ring []geom.Point) []geom.Point {
	n := len(ring)
	if n < 4 {
		return ring
	}
	out := make([]geom.Point, 0, n)
	for i := 0; i < n; i++ {
		prev := ring[(i+n-1)%n]
		next := ring[(i+1)%n]
		cur := ring[i]
		cross := (cur.X-prev.X)*(next.Y-cur.Y) - (cur.Y-prev.Y)*(next.X-cur.X)
		if cross != 0 {
			out = append(out, cur)
		}
	}
	return out
}

func shoelace(ring []geom.Point) float64 {
	var sum float64
	for i, p := range ring {
		q := ring[(i+1)%len(ring)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

// assemblePolygon orders rings outer-first, projects every vertex to
// ground coordinates and reports the polygon's ground area (holes
// subtracted).
func assemblePolygon(rings []tracedRing, tr Affine) (geom.Polygon, float64) {
	poly := make(geom.Polygon, 0, len(rings))
	for _, r := range rings {
		if r.signed > 0 {
			poly = append(poly, groundRing(r.pts, tr))
		}
	}
	for _, r := range rings {
		if r.signed <= 0 {
			poly = append(poly, groundRing(r.pts, tr))
		}
	}
	var area float64
	for _, ring := range poly {
		area += shoelace(ring)
	}
	return poly, math.Abs(area)
}

func groundRing(pts []geom.Point, tr Affine) []geom.Point {
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		x, y := tr.Apply(p.X, p.Y)
		out[i] = geom.Point{X: x, Y: y}
	}
	return out
}
