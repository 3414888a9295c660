package geom

import (
	"fmt"

	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
)

// WGS84 is the geographic reference system of everything the engine
// consumes from OSM and of everything it reports back to callers.
const WGS84 = "+proj=longlat +datum=WGS84 +no_defs"

// DefaultPlanarCRS is the working projection used when no other is
// configured: a CONUS Albers equal-area grid in meters, which keeps
// buffer areas and lengths meaningful.
const DefaultPlanarCRS = "+proj=aea +lat_1=29.5 +lat_2=45.5 +lat_0=23 +lon_0=-96 +x_0=0 +y_0=0 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs"

// Projector converts between WGS84 longitude/latitude and a planar
// working reference system. It is safe for concurrent use once built.
type Projector struct {
	crs     string
	forward proj.Transformer
	inverse proj.Transformer
}

// NewProjector builds a Projector for the given proj4 definition of the
// planar working system.
func NewProjector(planarCRS string) (*Projector, error) {
	geoSR, err := proj.Parse(WGS84)
	if err != nil {
		return nil, fmt.Errorf("parse WGS84 definition: %w", err)
	}
	planarSR, err := proj.Parse(planarCRS)
	if err != nil {
		return nil, fmt.Errorf("parse planar CRS %q: %w", planarCRS, err)
	}
	forward, err := geoSR.NewTransform(planarSR)
	if err != nil {
		return nil, fmt.Errorf("build forward transform: %w", err)
	}
	inverse, err := planarSR.NewTransform(geoSR)
	if err != nil {
		return nil, fmt.Errorf("build inverse transform: %w", err)
	}
	return &Projector{crs: planarCRS, forward: forward, inverse: inverse}, nil
}

// CRS returns the proj4 definition of the planar working system.
func (p *Projector) CRS() string { return p.crs }

// Forward projects a WGS84 coordinate into the planar system.
func (p *Projector) Forward(lon, lat float64) (x, y float64, err error) {
	return p.forward(lon, lat)
}

// Inverse projects a planar coordinate back to WGS84.
func (p *Projector) Inverse(x, y float64) (lon, lat float64, err error) {
	return p.inverse(x, y)
}

// LineToPlanar projects a WGS84 polyline into the planar system.
func (p *Projector) LineToPlanar(line orb.LineString) (orb.LineString, error) {
	out := make(orb.LineString, len(line))
	for i, pt := range line {
		x, y, err := p.forward(pt[0], pt[1])
		if err != nil {
			return nil, fmt.Errorf("project point (%v, %v): %w", pt[0], pt[1], err)
		}
		out[i] = orb.Point{x, y}
	}
	return out, nil
}

// LineToGeographic projects a planar polyline back to WGS84.
func (p *Projector) LineToGeographic(line orb.LineString) (orb.LineString, error) {
	out := make(orb.LineString, len(line))
	for i, pt := range line {
		lon, lat, err := p.inverse(pt[0], pt[1])
		if err != nil {
			return nil, fmt.Errorf("unproject point (%v, %v): %w", pt[0], pt[1], err)
		}
		out[i] = orb.Point{lon, lat}
	}
	return out, nil
}
