package pipeline

import (
	"fmt"
	"log"

	"greenroute/geom"
	"greenroute/gpkg"
	"greenroute/greenindex"
	"greenroute/osm"
	"greenroute/raster"
	"greenroute/routing"

	"github.com/paulmach/orb"
)

// Result holds the prepared, immutable state of one AOI: everything
// needed to plan any number of routes.
type Result struct {
	Projector *geom.Projector
	Network   *osm.Network
	Trees     []geom.Polygon
	Indexes   map[osm.SegmentID]float64
	Graph     *routing.Graph
}

// Prepare runs the batch stages downstream of the segmenter: vectorize
// the canopy mask, ingest the street network, index every segment and
// assemble the routing graph. Each stage fully consumes its predecessor.
func Prepare(cfg Config, mask *raster.TreeMask) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	projector, err := geom.NewProjector(cfg.PlanarCRS)
	if err != nil {
		return nil, fmt.Errorf("projection stage: %w", err)
	}

	log.Printf("[%s] vectorizing %dx%d canopy mask", cfg.AOIName, mask.Width, mask.Height)
	trees, err := raster.Vectorize(mask, raster.VectorizeOptions{
		Connectivity: cfg.Connectivity,
		MinArea:      cfg.MinTreeArea,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorize stage: %w", err)
	}
	log.Printf("[%s] extracted %d tree polygons", cfg.AOIName, len(trees))

	bbox := cfg.BBox()
	net, err := osm.LoadPBF(cfg.PBFPath, osm.LoadOptions{
		BBox:      &bbox,
		Projector: projector,
	})
	if err != nil {
		return nil, fmt.Errorf("network stage: %w", err)
	}

	calc := greenindex.NewCalculator(trees)
	log.Printf("[%s] indexing %d segments against %d tree polygons",
		cfg.AOIName, len(net.Segments), calc.TreeCount())
	indexes, err := greenindex.IndexSegments(net, calc, greenindex.Options{
		Radius:  cfg.BufferRadius,
		Buffer:  cfg.bufferOptions(),
		Workers: cfg.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("green index stage: %w", err)
	}

	graph, err := routing.NewGraph(net, indexes)
	if err != nil {
		return nil, fmt.Errorf("graph stage: %w", err)
	}

	return &Result{
		Projector: projector,
		Network:   net,
		Trees:     trees,
		Indexes:   indexes,
		Graph:     graph,
	}, nil
}

// RunResult is the outcome of one batch routing run.
type RunResult struct {
	Route *routing.Route
	// Line is the merged route geometry in the planar working CRS.
	Line orb.LineString
}

// Run executes the whole batch: load the mask, prepare the AOI, weight
// the graph for the requested mode, plan the route and, when configured,
// persist it as a GeoPackage layer.
func Run(cfg Config) (*RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mask, err := raster.LoadMask(cfg.MaskPath, cfg.PlanarCRS)
	if err != nil {
		return nil, fmt.Errorf("mask stage: %w", err)
	}
	res, err := Prepare(cfg, mask)
	if err != nil {
		return nil, err
	}

	weighted, err := res.Graph.Weighted(cfg.Mode, routing.WeightOptions{Epsilon: cfg.Epsilon})
	if err != nil {
		return nil, fmt.Errorf("weighting stage: %w", err)
	}
	route, err := routing.PlanRoute(weighted, cfg.Source, cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("planning stage: %w", err)
	}
	line, err := route.Geometry(res.Graph)
	if err != nil {
		return nil, fmt.Errorf("planning stage: %w", err)
	}
	log.Printf("[%s] %s route: %d nodes, length %.1f, green weight %.1f",
		cfg.AOIName, cfg.Mode, len(route.Nodes), route.TotalLength, route.GreenWeight)

	if cfg.OutputPath != "" {
		layer := fmt.Sprintf("%s_route_%s", cfg.AOIName, cfg.Mode)
		err = gpkg.WriteRoute(cfg.OutputPath, layer, gpkg.RouteRecord{
			Geometry:    line,
			Length:      route.TotalLength,
			GreenWeight: route.GreenWeight,
		}, cfg.SRSID, cfg.PlanarCRS)
		if err != nil {
			return nil, fmt.Errorf("output stage: %w", err)
		}
		log.Printf("[%s] wrote layer %s to %s", cfg.AOIName, layer, cfg.OutputPath)
	}
	return &RunResult{Route: route, Line: line}, nil
}
