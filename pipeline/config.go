// Package pipeline wires the green-routing stages together for one AOI
// run: mask vectorization, network ingestion, green indexing, graph build
// and route planning.
package pipeline

import (
	"fmt"

	"greenroute/geom"
	"greenroute/greenindex"
	"greenroute/osm"
	"greenroute/raster"
	"greenroute/routing"
)

// Config carries every user-supplied parameter of an AOI run. It is
// passed explicitly into each stage; nothing in the pipeline reads
// process-wide state.
type Config struct {
	// AOI descriptor.
	AOIName      string
	SWLat, SWLon float64
	NELat, NELon float64

	// Inputs. The mask must already be registered in the planar working
	// CRS (the segmentation collaborator reprojects before handing it
	// over); the PBF extract is WGS84 as usual.
	MaskPath string
	PBFPath  string

	// Working reference system: proj4 definition and the numeric srs id
	// recorded in GeoPackage output.
	PlanarCRS string
	SRSID     int

	// Tunables.
	BufferRadius float64 // influence-zone radius, ground units
	MinTreeArea  float64 // vectorizer noise threshold, ground units²
	Epsilon      float64 // greenest-mode weight floor, 0 = default
	Connectivity raster.Connectivity
	FlatJoins    bool // square off zone ends instead of round caps
	Workers      int

	// Routing request.
	Mode   routing.Mode
	Source osm.NodeID
	Target osm.NodeID

	// OutputPath, when set, receives the route as a GeoPackage layer.
	OutputPath string
}

// DefaultConfig returns a Config with the deployment defaults filled in.
func DefaultConfig() Config {
	return Config{
		PlanarCRS:    geom.DefaultPlanarCRS,
		SRSID:        5070,
		BufferRadius: greenindex.DefaultRadius,
		MinTreeArea:  1.0,
		Connectivity: raster.Connect4,
		Mode:         routing.ModeGreenest,
	}
}

// Validate rejects out-of-range parameters before any stage runs.
func (c *Config) Validate() error {
	if c.AOIName == "" {
		return fmt.Errorf("%w: AOI name is empty", geom.ErrInvalidParameter)
	}
	if c.SWLat >= c.NELat || c.SWLon >= c.NELon {
		return fmt.Errorf("%w: AOI corners SW(%v, %v) NE(%v, %v) do not form a box",
			geom.ErrInvalidParameter, c.SWLon, c.SWLat, c.NELon, c.NELat)
	}
	if c.BufferRadius <= 0 {
		return fmt.Errorf("%w: buffer radius %v must be > 0", geom.ErrInvalidParameter, c.BufferRadius)
	}
	if c.MinTreeArea < 0 {
		return fmt.Errorf("%w: minimum tree area %v must be >= 0", geom.ErrInvalidParameter, c.MinTreeArea)
	}
	if c.Epsilon < 0 {
		return fmt.Errorf("%w: epsilon %v must be >= 0", geom.ErrInvalidParameter, c.Epsilon)
	}
	if _, err := routing.ParseMode(string(c.Mode)); err != nil {
		return err
	}
	return nil
}

// BBox returns the AOI as a geographic bounding box.
func (c *Config) BBox() osm.BBox {
	return osm.BBox{MinLon: c.SWLon, MinLat: c.SWLat, MaxLon: c.NELon, MaxLat: c.NELat}
}

func (c *Config) bufferOptions() geom.BufferOptions {
	opts := geom.BufferOptions{}
	if c.FlatJoins {
		opts.Join = geom.JoinFlat
	}
	return opts
}
