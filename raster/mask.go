// Package raster holds the binary tree-canopy mask produced by the
// segmentation collaborator and converts it into vector tree polygons.
package raster

import (
	"errors"
	"fmt"
)

// ErrInvalidRaster marks a mask that violates the binary-cell contract.
var ErrInvalidRaster = errors.New("invalid raster")

// Affine is a six-parameter transform from cell space to ground space:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
//
// For a north-up raster B and D are 0 and E is negative.
type Affine struct {
	A, B, C, D, E, F float64
}

// NorthUp returns the affine transform of a north-up raster whose top-left
// cell corner sits at (originX, originY) with square cells of the given
// ground size.
func NorthUp(originX, originY, cellSize float64) Affine {
	return Affine{A: cellSize, C: originX, E: -cellSize, F: originY}
}

// Apply maps a cell-space coordinate to ground space. Col and row are
// continuous: integer values address cell corners.
func (a Affine) Apply(col, row float64) (x, y float64) {
	return a.A*col + a.B*row + a.C, a.D*col + a.E*row + a.F
}

// TreeMask is a binary canopy raster with its geospatial registration.
// Cells hold 0 for background and a single nonzero value for canopy.
// A TreeMask is immutable once produced by the segmenter.
type TreeMask struct {
	Width, Height int
	Data          []uint8 // row-major, Width*Height cells
	Transform     Affine
	CRS           string
}

// At returns the cell value at (row, col).
func (m *TreeMask) At(row, col int) uint8 {
	return m.Data[row*m.Width+col]
}

func (m *TreeMask) check() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidRaster, m.Width, m.Height)
	}
	if len(m.Data) != m.Width*m.Height {
		return fmt.Errorf("%w: %d cells for %dx%d grid", ErrInvalidRaster, len(m.Data), m.Width, m.Height)
	}
	return nil
}

// foreground returns the single nonzero cell value of a strictly binary
// mask, or 0 if the mask is all background. A mask with two distinct
// nonzero values has ambiguous cell states and fails.
func (m *TreeMask) foreground() (uint8, error) {
	var fg uint8
	for _, v := range m.Data {
		if v == 0 {
			continue
		}
		if fg == 0 {
			fg = v
			continue
		}
		if v != fg {
			return 0, fmt.Errorf("%w: mixed cell values %d and %d", ErrInvalidRaster, fg, v)
		}
	}
	return fg, nil
}
