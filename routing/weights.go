package routing

import (
	"fmt"
	"math"

	"greenroute/geom"
)

// DefaultEpsilon keeps greenest-mode weights strictly positive even on a
// fully canopied segment.
const DefaultEpsilon = 0.01

// WeightOptions configures the weight function. The greenest-mode mapping
// is
//
//	w = length × ((1 − greenIndex) + ε)
//
// monotonically decreasing in the green index: a fully green segment
// costs length×ε, a bare one length×(1+ε). Epsilon is configuration
// because it decides how much extra distance a green detour may buy.
type WeightOptions struct {
	// Epsilon must be > 0; zero means DefaultEpsilon.
	Epsilon float64
}

// WeightedGraph overlays mode-specific edge weights on an immutable
// Graph. Multiple overlays can share one graph, and a built overlay is
// safe for concurrent planning.
type WeightedGraph struct {
	*Graph
	Mode    Mode
	weights []float64
}

// Weighted assigns a routing weight to every edge for the given mode. The
// underlying graph is not touched. Every produced weight is strictly
// positive and finite; a green index outside [0,1] fails with
// ErrInvariant since it can silently invert the cost ordering.
func (g *Graph) Weighted(mode Mode, opts WeightOptions) (*WeightedGraph, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	eps := opts.Epsilon
	if eps == 0 {
		eps = DefaultEpsilon
	}
	if eps < 0 || math.IsNaN(eps) || math.IsInf(eps, 0) {
		return nil, fmt.Errorf("%w: epsilon %v must be > 0", geom.ErrInvalidParameter, opts.Epsilon)
	}

	weights := make([]float64, len(g.Edges))
	for i := range g.Edges {
		e := &g.Edges[i]
		var w float64
		switch mode {
		case ModeShortest:
			w = e.Length
		case ModeGreenest:
			if e.GreenIndex < 0 || e.GreenIndex > 1 || math.IsNaN(e.GreenIndex) {
				return nil, fmt.Errorf("%w: edge %d green index %v outside [0,1]", ErrInvariant, e.ID, e.GreenIndex)
			}
			w = e.Length * ((1 - e.GreenIndex) + eps)
		}
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: edge %d weight %v is not strictly positive", ErrInvariant, e.ID, w)
		}
		weights[i] = w
	}
	return &WeightedGraph{Graph: g, Mode: mode, weights: weights}, nil
}

// Weight returns the assigned weight of the edge at index i.
func (wg *WeightedGraph) Weight(i int) float64 { return wg.weights[i] }
