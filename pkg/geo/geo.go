package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Epsilon is the buffer distance applied to invalid polygons. It also pads
// bounding boxes before containment tests.
const Epsilon = 1e-10

// Kind is the coarse geometry family of a row.
type Kind int

const (
	KindOther Kind = iota
	KindPoint
	KindLine
	KindPolygon
)

// KindOf classifies a geometry.
func KindOf(g orb.Geometry) Kind {
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return KindPoint
	case orb.LineString, orb.MultiLineString:
		return KindLine
	case orb.Polygon, orb.MultiPolygon:
		return KindPolygon
	}
	return KindOther
}

// IsPolygonal reports whether g is a polygon or multipolygon.
func IsPolygonal(g orb.Geometry) bool {
	return KindOf(g) == KindPolygon
}

// IsEmpty reports whether g carries no coordinates.
func IsEmpty(g orb.Geometry) bool {
	switch v := g.(type) {
	case nil:
		return true
	case orb.Point:
		return false
	case orb.MultiPoint:
		return len(v) == 0
	case orb.LineString:
		return len(v) == 0
	case orb.MultiLineString:
		for _, ls := range v {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.Ring:
		return len(v) == 0
	case orb.Polygon:
		return len(v) == 0 || len(v[0]) == 0
	case orb.MultiPolygon:
		for _, p := range v {
			if len(p) > 0 && len(p[0]) > 0 {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, c := range v {
			if !IsEmpty(c) {
				return false
			}
		}
		return true
	}
	return false
}

// Area returns the planar area of a geometry in squared degrees.
// Points and lines have zero area. Holes are subtracted from their shell
// regardless of ring orientation.
func Area(g orb.Geometry) float64 {
	switch v := g.(type) {
	case orb.Polygon:
		return polygonArea(v)
	case orb.MultiPolygon:
		total := 0.0
		for _, p := range v {
			total += polygonArea(p)
		}
		return total
	}
	return 0
}

func polygonArea(p orb.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}
	a := ringArea(p[0])
	for _, hole := range p[1:] {
		a -= ringArea(hole)
	}
	return math.Max(a, 0)
}

func ringArea(r orb.Ring) float64 {
	if len(r) < 3 {
		return 0
	}
	return math.Abs(planar.Area(r))
}

// polygons flattens a polygonal geometry.
func polygons(g orb.Geometry) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{v}
	case orb.MultiPolygon:
		return []orb.Polygon(v)
	}
	return nil
}
