package osm

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sort"

	"greenroute/geom"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/qedus/osmpbf"
)

// WalkHighways is the default whitelist of OSM highway classes a
// pedestrian can use.
var WalkHighways = []string{
	"footway",
	"path",
	"pedestrian",
	"steps",
	"cycleway",
	"living_street",
	"residential",
	"service",
	"track",
	"unclassified",
	"tertiary",
	"tertiary_link",
	"secondary",
	"secondary_link",
	"primary",
	"primary_link",
}

// LoadOptions controls PBF ingestion.
type LoadOptions struct {
	// BBox clips the network to an AOI; nil keeps the whole extract.
	BBox *BBox
	// Highways overrides the walkable highway whitelist.
	Highways []string
	// Projector maps WGS84 into the planar working system. Required.
	Projector *geom.Projector
}

type rawNode struct {
	id       int64
	lon, lat float64
}

type rawWay struct {
	id      int64
	nodeIDs []int64
}

// LoadPBF decodes an OSM PBF extract, keeps walkable ways inside the AOI
// and builds the street network: ways split at intersections and endpoints
// into segments with projected polyline geometry and precomputed lengths.
func LoadPBF(path string, opts LoadOptions) (*Network, error) {
	if opts.Projector == nil {
		return nil, fmt.Errorf("%w: projector is required", geom.ErrInvalidParameter)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open extract: %w", err)
	}
	defer f.Close()

	d := osmpbf.NewDecoder(f)

	// use more memory from the start, it is faster
	d.SetBufferSize(osmpbf.MaxBlobSize)

	// start decoding with several goroutines, it is faster
	if err := d.Start(runtime.GOMAXPROCS(-1)); err != nil {
		return nil, fmt.Errorf("start decoder: %w", err)
	}

	whitelist := opts.Highways
	if whitelist == nil {
		whitelist = WalkHighways
	}
	walkable := make(map[string]struct{}, len(whitelist))
	for _, hw := range whitelist {
		walkable[hw] = struct{}{}
	}

	nodes := make(map[int64]*rawNode)
	var ways []*rawWay
	for {
		v, err := d.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode extract: %w", err)
		}
		switch v := v.(type) {
		case *osmpbf.Node:
			if opts.BBox != nil && !opts.BBox.Contains(v.Lon, v.Lat) {
				continue
			}
			nodes[v.ID] = &rawNode{id: v.ID, lon: v.Lon, lat: v.Lat}
		case *osmpbf.Way:
			if _, ok := walkable[v.Tags["highway"]]; !ok {
				continue
			}
			ids := make([]int64, len(v.NodeIDs))
			copy(ids, v.NodeIDs)
			ways = append(ways, &rawWay{id: v.ID, nodeIDs: ids})
		case *osmpbf.Relation:
			// relations carry nothing the walk network needs
		default:
			return nil, fmt.Errorf("unknown OSM element type %T", v)
		}
	}
	log.Printf("Decoded %d nodes, %d walkable ways", len(nodes), len(ways))

	return buildNetwork(nodes, ways, opts.Projector)
}

// buildNetwork splits ways into segments between breakpoints. A breakpoint
// is a node shared by more than one way position (an intersection) or a
// way endpoint, so dead ends stay routable.
func buildNetwork(nodes map[int64]*rawNode, ways []*rawWay, projector *geom.Projector) (*Network, error) {
	// a way whose interior node was clipped by the AOI is cut at the gap;
	// splicing the surviving runs together would fabricate a street
	// jumping across the excluded region
	var parts []*rawWay
	for _, w := range ways {
		var run []int64
		endRun := func() {
			if len(run) >= 2 {
				parts = append(parts, &rawWay{id: w.id, nodeIDs: run})
			}
			run = nil
		}
		for _, nid := range w.nodeIDs {
			if _, ok := nodes[nid]; ok {
				run = append(run, nid)
			} else {
				endRun()
			}
		}
		endRun()
	}
	ways = parts

	breakpoints := make(map[int64]struct{})
	seen := make(map[int64]int)
	for _, w := range ways {
		breakpoints[w.nodeIDs[0]] = struct{}{}
		breakpoints[w.nodeIDs[len(w.nodeIDs)-1]] = struct{}{}
		for _, nid := range w.nodeIDs {
			seen[nid]++
			if seen[nid] > 1 {
				breakpoints[nid] = struct{}{}
			}
		}
	}

	// deterministic segment ids regardless of decode order; stable so the
	// parts of a cut way keep their along-the-way order
	sort.SliceStable(ways, func(i, j int) bool { return ways[i].id < ways[j].id })

	net := &Network{
		CRS:      projector.CRS(),
		Nodes:    make(map[NodeID]*Node),
		Segments: make(map[SegmentID]*Segment),
	}
	addNode := func(nid int64) error {
		if _, ok := net.Nodes[NodeID(nid)]; ok {
			return nil
		}
		raw := nodes[nid]
		x, y, err := projector.Forward(raw.lon, raw.lat)
		if err != nil {
			return fmt.Errorf("project node %d: %w", nid, err)
		}
		net.Nodes[NodeID(nid)] = &Node{ID: NodeID(nid), Lon: raw.lon, Lat: raw.lat, X: x, Y: y}
		return nil
	}

	var nextSegID SegmentID = 1
	var dropped int
	for _, w := range ways {
		if len(w.nodeIDs) < 2 {
			continue
		}
		segStart := 0
		for i := 1; i < len(w.nodeIDs); i++ {
			if _, isBreak := breakpoints[w.nodeIDs[i]]; !isBreak {
				continue
			}
			run := w.nodeIDs[segStart : i+1]
			segStart = i

			line := make(orb.LineString, 0, len(run))
			for _, nid := range run {
				raw := nodes[nid]
				line = append(line, orb.Point{raw.lon, raw.lat})
			}
			planarLine, err := projector.LineToPlanar(line)
			if err != nil {
				return nil, fmt.Errorf("way %d: %w", w.id, err)
			}
			length := planar.Length(planarLine)
			if length == 0 {
				dropped++
				continue
			}
			if err := addNode(run[0]); err != nil {
				return nil, err
			}
			if err := addNode(run[len(run)-1]); err != nil {
				return nil, err
			}
			net.Segments[nextSegID] = &Segment{
				ID:       nextSegID,
				From:     NodeID(run[0]),
				To:       NodeID(run[len(run)-1]),
				Geometry: planarLine,
				Length:   length,
			}
			nextSegID++
		}
	}
	if dropped > 0 {
		log.Printf("Dropped %d zero-length segments", dropped)
	}

	net.nodeIndex = geom.NewRTree()
	for id, node := range net.Nodes {
		net.nodeIndex.Insert(int64(id), node.Lon, node.Lat, node.Lon, node.Lat)
	}

	log.Printf("Built network: %d nodes, %d segments", len(net.Nodes), len(net.Segments))
	return net, nil
}
