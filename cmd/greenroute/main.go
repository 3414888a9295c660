package main

import (
	"fmt"
	"os"

	"greenroute/pipeline"
	"greenroute/raster"

	"github.com/spf13/cobra"
)

var (
	flagAOI     string
	flagSWLat   float64
	flagSWLon   float64
	flagNELat   float64
	flagNELon   float64
	flagMask    string
	flagPBF     string
	flagCRS     string
	flagSRSID   int
	flagRadius  float64
	flagMinArea float64
	flagEpsilon float64
	flagConn    int
	flagFlat    bool
	flagWorkers int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "greenroute",
	Short:         "Tree-canopy aware walking routes over an OSM street network",
	Long:          "Greenroute vectorizes a binary tree-canopy mask, scores every street segment by the canopy share of its buffered influence zone, and plans shortest or greenest walking routes over the weighted network.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run — prints help by default.
}

func init() {
	defaults := pipeline.DefaultConfig()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagAOI, "aoi", "", "AOI name, used in layer and log labels")
	pf.Float64Var(&flagSWLat, "sw-lat", 0, "AOI southwest latitude")
	pf.Float64Var(&flagSWLon, "sw-lon", 0, "AOI southwest longitude")
	pf.Float64Var(&flagNELat, "ne-lat", 0, "AOI northeast latitude")
	pf.Float64Var(&flagNELon, "ne-lon", 0, "AOI northeast longitude")
	pf.StringVar(&flagMask, "mask", "", "canopy mask PGM (with .wld world file) in the working CRS")
	pf.StringVar(&flagPBF, "pbf", "", "OSM PBF extract")
	pf.StringVar(&flagCRS, "crs", defaults.PlanarCRS, "proj4 definition of the planar working CRS")
	pf.IntVar(&flagSRSID, "srs-id", defaults.SRSID, "numeric srs id recorded in GeoPackage output")
	pf.Float64Var(&flagRadius, "radius", defaults.BufferRadius, "influence-zone buffer radius in ground units")
	pf.Float64Var(&flagMinArea, "min-tree-area", defaults.MinTreeArea, "minimum tree polygon area kept by the vectorizer")
	pf.Float64Var(&flagEpsilon, "epsilon", 0, "greenest-mode weight floor (0 = default)")
	pf.IntVar(&flagConn, "connectivity", int(defaults.Connectivity), "mask region connectivity: 4 or 8")
	pf.BoolVar(&flagFlat, "flat-joins", false, "square off influence-zone ends instead of round caps")
	pf.IntVar(&flagWorkers, "workers", 0, "green index worker pool size (0 = one per CPU)")

	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(serveCmd)
}

func buildConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.AOIName = flagAOI
	cfg.SWLat, cfg.SWLon = flagSWLat, flagSWLon
	cfg.NELat, cfg.NELon = flagNELat, flagNELon
	cfg.MaskPath = flagMask
	cfg.PBFPath = flagPBF
	cfg.PlanarCRS = flagCRS
	cfg.SRSID = flagSRSID
	cfg.BufferRadius = flagRadius
	cfg.MinTreeArea = flagMinArea
	cfg.Epsilon = flagEpsilon
	cfg.Connectivity = raster.Connectivity(flagConn)
	cfg.FlatJoins = flagFlat
	cfg.Workers = flagWorkers
	return cfg
}
