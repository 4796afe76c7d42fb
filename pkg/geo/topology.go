package geo

import (
	"encoding/binary"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulsmith/gogeos/geos"
)

// IsValid reports whether a polygonal geometry is topologically valid in the
// GEOS sense: closed rings of at least four points, no self-intersections,
// holes inside their shell and multipolygon members with disjoint interiors.
// Non-polygonal geometries are valid.
func IsValid(g orb.Geometry) (bool, error) {
	if !IsPolygonal(g) {
		return true, nil
	}
	if !wellFormed(g) {
		return false, nil
	}
	gg, err := toGeos(g)
	if err != nil {
		return false, err
	}
	return gg.IsValid()
}

// MakeValid repairs an invalid polygonal geometry by buffering it with
// Epsilon, which unions overlapping members and splits self-intersecting
// rings. Valid geometries, non-polygonal geometries and geometries that
// enclose no area at all are returned unchanged.
func MakeValid(g orb.Geometry) (orb.Geometry, error) {
	if !IsPolygonal(g) {
		return g, nil
	}
	ok, err := IsValid(g)
	if err != nil {
		return nil, err
	}
	if ok {
		return g, nil
	}

	shape := normalize(g)
	if len(shape) == 0 {
		return g, nil
	}
	gg, err := toGeos(shape)
	if err != nil {
		return nil, err
	}

	core, err := gg.Buffer(0)
	if err != nil {
		return nil, fmt.Errorf("buffer failed: %w", err)
	}
	area, err := core.Area()
	if err != nil {
		return nil, err
	}
	if area == 0 {
		return g, nil
	}

	fixed, err := gg.Buffer(Epsilon)
	if err != nil {
		return nil, fmt.Errorf("buffer failed: %w", err)
	}
	return fromGeos(fixed)
}

// PointWithin reports whether pt lies in the interior of a polygonal
// geometry. Points on a ring are not within.
func PointWithin(g orb.Geometry, pt orb.Point) (bool, error) {
	if !IsPolygonal(g) || !g.Bound().Contains(pt) {
		return false, nil
	}
	gg, err := toGeos(g)
	if err != nil {
		return false, err
	}
	gp, err := toGeos(pt)
	if err != nil {
		return false, err
	}
	return gp.Within(gg)
}

// Contains reports whether polygonal a contains polygonal b: no point of b
// lies in the exterior of a and the interiors meet. Identical polygons
// contain each other.
func Contains(a, b orb.Geometry) (bool, error) {
	if !IsPolygonal(a) || !IsPolygonal(b) || IsEmpty(a) || IsEmpty(b) {
		return false, nil
	}
	if !boundWithin(b.Bound(), a.Bound()) {
		return false, nil
	}
	ga, err := toGeos(a)
	if err != nil {
		return false, err
	}
	gb, err := toGeos(b)
	if err != nil {
		return false, err
	}
	return ga.Contains(gb)
}

func boundWithin(inner, outer orb.Bound) bool {
	o := outer.Pad(Epsilon)
	return o.Contains(inner.Min) && o.Contains(inner.Max)
}

// wellFormed reports whether every ring can be built as a GEOS linear ring.
func wellFormed(g orb.Geometry) bool {
	ps := polygons(g)
	if len(ps) == 0 {
		return false
	}
	for _, p := range ps {
		if len(p) == 0 {
			return false
		}
		for _, r := range p {
			if len(r) < 4 || !r.Closed() {
				return false
			}
		}
	}
	return true
}

// normalize closes open rings and drops rings too short to enclose an area.
// A polygon whose shell is dropped is dropped with all of its holes.
func normalize(g orb.Geometry) orb.MultiPolygon {
	var out orb.MultiPolygon
	for _, p := range polygons(g) {
		var poly orb.Polygon
		for i, r := range p {
			r = closeRing(r)
			if len(r) < 4 {
				if i == 0 {
					break
				}
				continue
			}
			poly = append(poly, r)
		}
		if len(poly) > 0 {
			out = append(out, poly)
		}
	}
	return out
}

func closeRing(r orb.Ring) orb.Ring {
	if len(r) == 0 || r.Closed() {
		return r
	}
	out := make(orb.Ring, 0, len(r)+1)
	out = append(out, r...)
	return append(out, r[0])
}

func toGeos(g orb.Geometry) (*geos.Geometry, error) {
	data, err := wkb.Marshal(g, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wkb: %w", err)
	}
	gg, err := geos.FromWKB(data)
	if err != nil {
		return nil, fmt.Errorf("geos rejected %s: %w", g.GeoJSONType(), err)
	}
	return gg, nil
}

func fromGeos(gg *geos.Geometry) (orb.Geometry, error) {
	data, err := gg.WKB()
	if err != nil {
		return nil, fmt.Errorf("failed to encode wkb: %w", err)
	}
	g, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal wkb: %w", err)
	}
	return g, nil
}
