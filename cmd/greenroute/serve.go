package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"runtime"
	"time"

	"greenroute/osm"
	"greenroute/pipeline"
	"greenroute/raster"
	"greenroute/routing"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Prepare the AOI once and serve routes over HTTP",
	Long:  "Runs the batch stages once, then answers POST /route requests against the immutable weighted graphs. Concurrent requests are safe without locks.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "listen address")
}

// Server holds the prepared AOI state for handling requests
type Server struct {
	result   *pipeline.Result
	shortest *routing.WeightedGraph
	greenest *routing.WeightedGraph
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Printf("greenroute serve starting, preparing AOI %s", cfg.AOIName)
	mask, err := raster.LoadMask(cfg.MaskPath, cfg.PlanarCRS)
	if err != nil {
		return err
	}
	result, err := pipeline.Prepare(cfg, mask)
	if err != nil {
		return err
	}
	wOpts := routing.WeightOptions{Epsilon: cfg.Epsilon}
	shortest, err := result.Graph.Weighted(routing.ModeShortest, wOpts)
	if err != nil {
		return err
	}
	greenest, err := result.Graph.Weighted(routing.ModeGreenest, wOpts)
	if err != nil {
		return err
	}

	server := &Server{result: result, shortest: shortest, greenest: greenest}

	http.HandleFunc("/route", server.handleRoute)

	// Health check endpoint
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Metrics endpoint
	http.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics := getRuntimeMetrics()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(metrics)
	})

	// Background metrics logging (every 30 seconds)
	startMetricsLogger(30 * time.Second)

	log.Printf("Listening on %s", flagAddr)
	return http.ListenAndServe(flagAddr, nil)
}

// routeRequest addresses endpoints either by OSM node id or by WGS84
// coordinate (snapped to the nearest network node).
type routeRequest struct {
	Source int64      `json:"source,omitempty"`
	Target int64      `json:"target,omitempty"`
	From   [2]float64 `json:"from,omitempty"` // lon, lat
	To     [2]float64 `json:"to,omitempty"`
	Mode   string     `json:"mode"`
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	mode, err := routing.ParseMode(req.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	source, err := s.resolveNode(req.Source, req.From)
	if err != nil {
		http.Error(w, "source: "+err.Error(), http.StatusBadRequest)
		return
	}
	target, err := s.resolveNode(req.Target, req.To)
	if err != nil {
		http.Error(w, "target: "+err.Error(), http.StatusBadRequest)
		return
	}

	weighted := s.shortest
	if mode == routing.ModeGreenest {
		weighted = s.greenest
	}
	route, err := routing.PlanRoute(weighted, source, target)
	if errors.Is(err, routing.ErrNoRoute) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	fc, err := s.routeFeature(route)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// resolveNode prefers an explicit node id and falls back to snapping a
// lon/lat coordinate to the nearest network node.
func (s *Server) resolveNode(id int64, coord [2]float64) (osm.NodeID, error) {
	if id != 0 {
		return osm.NodeID(id), nil
	}
	node, dist, err := s.result.Network.NearestNode(coord[0], coord[1])
	if err != nil {
		return 0, err
	}
	log.Printf("Snapped (%v, %v) to node %d (%.1fm away)", coord[0], coord[1], node, dist)
	return node, nil
}

// routeFeature builds the GeoJSON response: the route line back in WGS84
// with the aggregate attribute contract as feature properties.
func (s *Server) routeFeature(route *routing.Route) (*geojson.FeatureCollection, error) {
	line, err := route.Geometry(s.result.Graph)
	if err != nil {
		return nil, err
	}
	geoLine, err := s.result.Projector.LineToGeographic(line)
	if err != nil {
		return nil, err
	}
	f := geojson.NewFeature(geoLine)
	f.Properties = geojson.Properties{
		"mode":         string(route.Mode),
		"length":       route.TotalLength,
		"green_weight": route.GreenWeight,
		"nodes":        len(route.Nodes),
	}
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	return fc, nil
}

// RuntimeMetrics holds memory and goroutine statistics
type RuntimeMetrics struct {
	Goroutines   int     `json:"goroutines"`
	AllocMB      float64 `json:"alloc_mb"`       // currently allocated heap
	TotalAllocMB float64 `json:"total_alloc_mb"` // cumulative allocated (includes freed)
	SysMB        float64 `json:"sys_mb"`         // total memory from OS
	HeapAllocMB  float64 `json:"heap_alloc_mb"`
	HeapSysMB    float64 `json:"heap_sys_mb"`
	HeapObjects  uint64  `json:"heap_objects"`
	NumGC        uint32  `json:"num_gc"`
}

// getRuntimeMetrics collects current runtime statistics
func getRuntimeMetrics() RuntimeMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RuntimeMetrics{
		Goroutines:   runtime.NumGoroutine(),
		AllocMB:      float64(m.Alloc) / 1024 / 1024,
		TotalAllocMB: float64(m.TotalAlloc) / 1024 / 1024,
		SysMB:        float64(m.Sys) / 1024 / 1024,
		HeapAllocMB:  float64(m.HeapAlloc) / 1024 / 1024,
		HeapSysMB:    float64(m.HeapSys) / 1024 / 1024,
		HeapObjects:  m.HeapObjects,
		NumGC:        m.NumGC,
	}
}

// startMetricsLogger starts a background goroutine that logs metrics periodically
func startMetricsLogger(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			m := getRuntimeMetrics()
			log.Printf("[metrics] goroutines=%d alloc=%.2fMB sys=%.2fMB heap_objects=%d gc_cycles=%d",
				m.Goroutines, m.AllocMB, m.SysMB, m.HeapObjects, m.NumGC)
		}
	}()
}
