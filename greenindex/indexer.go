package greenindex

import (
	"fmt"
	"runtime"
	"sync"

	"greenroute/geom"
	"greenroute/osm"
)

// Options controls segment indexing.
type Options struct {
	// Radius is the influence-zone buffer distance in ground units.
	Radius float64
	// Buffer selects the join style and arc resolution of the zones.
	Buffer geom.BufferOptions
	// Workers caps the worker pool; zero means one worker per CPU.
	Workers int
}

// DefaultRadius is the influence-zone buffer distance used when the
// deployment does not configure one.
const DefaultRadius = 2.5

type indexResult struct {
	id    osm.SegmentID
	index float64
	err   error
}

// IndexSegments computes the green index of every segment in the network.
// Segments are independent, so the work fans out over a fixed worker pool
// and results are collected keyed by segment id; the output does not
// depend on worker scheduling.
func IndexSegments(net *osm.Network, calc *Calculator, opts Options) (map[osm.SegmentID]float64, error) {
	if opts.Radius <= 0 {
		return nil, fmt.Errorf("%w: buffer radius %v must be > 0", geom.ErrInvalidParameter, opts.Radius)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(net.Segments) {
		workers = len(net.Segments)
	}
	if workers < 1 {
		workers = 1
	}

	work := make(chan *osm.Segment, workers)
	results := make(chan indexResult, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range work {
				zone, err := BuildZone(seg, opts.Radius, opts.Buffer)
				if err != nil {
					results <- indexResult{id: seg.ID, err: err}
					continue
				}
				results <- indexResult{id: seg.ID, index: calc.ComputeIndex(zone)}
			}
		}()
	}
	go func() {
		for _, seg := range net.Segments {
			work <- seg
		}
		close(work)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	indexes := make(map[osm.SegmentID]float64, len(net.Segments))
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		indexes[res.id] = res.index
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return indexes, nil
}
