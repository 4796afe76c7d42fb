package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	h3 "github.com/uber/h3-go/v4"
)

// ErrInvalidResolution is returned for H3 resolutions outside 0..15.
var ErrInvalidResolution = errors.New("geo: h3 resolution must be within 0..15")

// CellOf returns the H3 index of the cell holding g's centroid at res.
func CellOf(g orb.Geometry, res int) (string, error) {
	if res < 0 || res > 15 {
		return "", fmt.Errorf("%w: %d", ErrInvalidResolution, res)
	}
	if IsEmpty(g) {
		return "", errors.New("geo: empty geometry has no cell")
	}

	pt, ok := g.(orb.Point)
	if !ok {
		pt, _ = planar.CentroidArea(g)
	}
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: pt.Lat(), Lng: pt.Lon()}, res)
	if err != nil {
		return "", fmt.Errorf("h3 index: %w", err)
	}
	return cell.String(), nil
}
