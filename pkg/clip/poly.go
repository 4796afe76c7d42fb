package clip

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"osmflex/pkg/geo"
)

// simplifyTolerance is the Douglas-Peucker tolerance in degrees.
const simplifyTolerance = 0.01

// WritePoly writes the exterior rings of shapes in the Osmosis polygon filter
// format. The path's extension is replaced by .poly; an existing file is
// never overwritten. It returns the path written.
func WritePoly(shapes []orb.Geometry, path string) (string, error) {
	path = strings.TrimSuffix(path, filepath.Ext(path)) + ".poly"

	var rings []orb.Ring
	for _, s := range shapes {
		switch g := s.(type) {
		case orb.Polygon:
			if len(g) > 0 {
				rings = append(rings, g[0])
			}
		case orb.MultiPolygon:
			for _, p := range g {
				if len(p) > 0 {
					rings = append(rings, p[0])
				}
			}
		default:
			return "", fmt.Errorf("%w: %T is not a polygon", ErrInvalidShape, s)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrDestinationExists, path)
		}
		return "", fmt.Errorf("clip: failed to create poly file: %w", err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "Polygons")
	for i, r := range rings {
		fmt.Fprintln(w, strconv.Itoa(i))
		for _, pt := range r {
			fmt.Fprintf(w, "    %s     %s\n", polyNumber(pt[0]), polyNumber(pt[1]))
		}
		fmt.Fprintln(w, "END")
	}
	fmt.Fprintln(w, "END")

	if err := w.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("clip: failed to write poly file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("clip: failed to close poly file: %w", err)
	}
	return path, nil
}

// polyNumber formats a coordinate with at least one decimal place.
func polyNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// simplifyShapes drops tiny parts and smooths outlines to keep .poly files
// small. The size threshold depends on the total area.
func simplifyShapes(shapes []orb.Geometry) []orb.Geometry {
	total := 0.0
	for _, s := range shapes {
		total += geo.Area(s)
	}
	thresh := 0.01
	if total > 1 {
		thresh = 0.1
	}

	dp := simplify.DouglasPeucker(simplifyTolerance)
	var out []orb.Geometry
	for _, s := range shapes {
		if geo.Area(s) <= thresh {
			continue
		}
		g := dp.Simplify(orb.Clone(s))
		if g == nil || geo.IsEmpty(g) {
			continue
		}
		out = append(out, g)
	}
	return out
}
