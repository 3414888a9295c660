package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadMask reads a segmenter-produced canopy mask from a binary PGM file
// with an ESRI world file (.wld) alongside it for the geospatial
// registration. The CRS identifier is supplied by the caller since neither
// format carries one.
func LoadMask(path, crs string) (*TreeMask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mask: %w", err)
	}
	defer f.Close()

	width, height, data, err := readPGM(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read mask %s: %w", path, err)
	}

	wldPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".wld"
	transform, err := readWorldFile(wldPath)
	if err != nil {
		return nil, err
	}

	return &TreeMask{
		Width:     width,
		Height:    height,
		Data:      data,
		Transform: transform,
		CRS:       crs,
	}, nil
}

func readPGM(r *bufio.Reader) (width, height int, data []uint8, err error) {
	magic, err := pgmToken(r)
	if err != nil {
		return 0, 0, nil, err
	}
	if magic != "P5" {
		return 0, 0, nil, fmt.Errorf("%w: not a binary PGM (magic %q)", ErrInvalidRaster, magic)
	}
	dims := [3]int{}
	for i := range dims {
		tok, err := pgmToken(r)
		if err != nil {
			return 0, 0, nil, err
		}
		dims[i], err = strconv.Atoi(tok)
		if err != nil {
			return 0, 0, nil, fmt.Errorf("%w: bad header field %q", ErrInvalidRaster, tok)
		}
	}
	width, height, maxval := dims[0], dims[1], dims[2]
	if width <= 0 || height <= 0 || maxval <= 0 || maxval > 255 {
		return 0, 0, nil, fmt.Errorf("%w: header %dx%d maxval %d", ErrInvalidRaster, width, height, maxval)
	}
	data = make([]uint8, width*height)
	if _, err := io.ReadFull(r, data); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: truncated pixel data", ErrInvalidRaster)
	}
	return width, height, data, nil
}

// pgmToken returns the next whitespace-delimited header token, skipping
// '#' comments.
func pgmToken(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	inComment := false
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("%w: truncated header", ErrInvalidRaster)
		}
		switch {
		case inComment:
			if b == '\n' {
				inComment = false
			}
		case b == '#':
			inComment = true
		case b == ' ' || b == '\t' || b == '\r' || b == '\n':
			if sb.Len() > 0 {
				return sb.String(), nil
			}
		default:
			sb.WriteByte(b)
		}
	}
}

// readWorldFile parses the six-line ESRI world file convention. World
// files register the *center* of the top-left cell, so the transform
// origin is shifted back by half a cell.
func readWorldFile(path string) (Affine, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Affine{}, fmt.Errorf("read world file: %w", err)
	}
	fields := strings.Fields(string(raw))
	if len(fields) != 6 {
		return Affine{}, fmt.Errorf("%w: world file %s has %d values, want 6", ErrInvalidRaster, path, len(fields))
	}
	vals := make([]float64, 6)
	for i, f := range fields {
		vals[i], err = strconv.ParseFloat(f, 64)
		if err != nil {
			return Affine{}, fmt.Errorf("%w: world file value %q", ErrInvalidRaster, f)
		}
	}
	a, d, b, e, cx, cy := vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]
	return Affine{
		A: a, B: b, C: cx - a/2 - b/2,
		D: d, E: e, F: cy - d/2 - e/2,
	}, nil
}
