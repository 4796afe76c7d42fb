// Package simplify holds independent post-processing filters for extracted
// collections. Every filter is pure: it returns a new collection with a reset
// row index and never mutates its input. Filters may be composed in any order.
package simplify

import (
	"bytes"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"

	"osmflex/pkg/geo"
	"osmflex/pkg/model"
)

// RemoveSmallPolygons drops polygon rows whose area is below minArea.
// Invalid polygons are repaired first and the repaired geometry is kept, so
// overlapping multipolygon members are measured once. Zero-area polygons,
// points and lines are always kept.
func RemoveSmallPolygons(c *model.Collection, minArea float64) *model.Collection {
	out := model.NewCollection(c.Columns)
	out.CRS = c.CRS

	for _, f := range c.Features {
		row := f.Clone()
		if geo.IsPolygonal(row.Geometry) {
			fixed, err := geo.MakeValid(row.Geometry)
			if err != nil {
				slog.Warn("Simplify: cannot repair polygon, keeping row", "id", f.ID, "error", err)
				out.Features = append(out.Features, row)
				continue
			}
			row.Geometry = fixed
			area := geo.Area(row.Geometry)
			if area > 0 && area < minArea {
				continue
			}
		}
		out.Features = append(out.Features, row)
	}

	slog.Debug("Simplify: small polygons removed",
		"min_area", minArea,
		"removed", c.Len()-out.Len(),
		"remaining", out.Len())
	return out
}

// RemoveContainedPoints drops point rows lying strictly inside any polygon row
// of the same collection. Points on a polygon boundary are kept.
func RemoveContainedPoints(c *model.Collection) *model.Collection {
	var pts []orb.Pointer
	bound := orb.Bound{}
	first := true
	for i, f := range c.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		pts = append(pts, indexedPoint{idx: i, pt: p})
		if first {
			bound = p.Bound()
			first = false
		} else {
			bound = bound.Extend(p)
		}
	}

	drop := make(map[int]bool)
	if len(pts) > 0 {
		qt := quadtree.New(bound.Pad(1))
		for _, p := range pts {
			if err := qt.Add(p); err != nil {
				slog.Warn("Simplify: failed to index point", "error", err)
			}
		}

		var buf []orb.Pointer
		for _, f := range c.Features {
			if !geo.IsPolygonal(f.Geometry) {
				continue
			}
			buf = qt.InBound(buf[:0], f.Geometry.Bound())
			for _, cand := range buf {
				ip := cand.(indexedPoint)
				if drop[ip.idx] {
					continue
				}
				within, err := geo.PointWithin(f.Geometry, ip.pt)
				if err != nil {
					slog.Warn("Simplify: containment test failed", "id", f.ID, "error", err)
					break
				}
				if within {
					drop[ip.idx] = true
				}
			}
		}
	}

	out := c.Filter(func(i int, _ model.Feature) bool { return !drop[i] })
	slog.Debug("Simplify: contained points removed", "removed", len(drop), "remaining", out.Len())
	return out
}

// RemoveContainedPolys drops polygon rows contained in another distinct
// polygon row. A row is removed as soon as any other row contains it, so
// exact duplicates remove each other; run RemoveExactDuplicates first to keep
// one copy. Points and lines are untouched.
func RemoveContainedPolys(c *model.Collection) *model.Collection {
	var centers []orb.Pointer
	bound := orb.Bound{}
	first := true
	for i, f := range c.Features {
		if !geo.IsPolygonal(f.Geometry) || geo.IsEmpty(f.Geometry) {
			continue
		}
		b := f.Geometry.Bound()
		centers = append(centers, indexedPoint{idx: i, pt: b.Center()})
		if first {
			bound = b
			first = false
		} else {
			bound = bound.Union(b)
		}
	}

	drop := make(map[int]bool)
	if len(centers) > 1 {
		qt := quadtree.New(bound.Pad(1))
		for _, p := range centers {
			if err := qt.Add(p); err != nil {
				slog.Warn("Simplify: failed to index polygon", "error", err)
			}
		}

		var buf []orb.Pointer
		for _, container := range centers {
			ci := container.(indexedPoint).idx
			outer := c.Features[ci].Geometry
			buf = qt.InBound(buf[:0], outer.Bound().Pad(geo.Epsilon))
			for _, cand := range buf {
				j := cand.(indexedPoint).idx
				if j == ci || drop[j] {
					continue
				}
				contained, err := geo.Contains(outer, c.Features[j].Geometry)
				if err != nil {
					slog.Warn("Simplify: containment test failed",
						"id", c.Features[ci].ID,
						"other", c.Features[j].ID,
						"error", err)
					continue
				}
				if contained {
					drop[j] = true
				}
			}
		}
	}

	out := c.Filter(func(i int, _ model.Feature) bool { return !drop[i] })
	slog.Debug("Simplify: contained polygons removed", "removed", len(drop), "remaining", out.Len())
	return out
}

// RemoveExactDuplicates keeps the first of every group of rows whose
// geometries serialize to the same WKB. Attribute values are not compared:
// rows differing only in attributes are still duplicates.
func RemoveExactDuplicates(c *model.Collection) *model.Collection {
	seen := make(map[uint64][][]byte)
	drop := make(map[int]bool)

	for i, f := range c.Features {
		key, err := geo.WKB(f.Geometry)
		if err != nil {
			slog.Warn("Simplify: cannot serialize geometry, keeping row", "id", f.ID, "error", err)
			continue
		}
		h := xxhash.Sum64(key)
		dup := false
		for _, prev := range seen[h] {
			if bytes.Equal(prev, key) {
				dup = true
				break
			}
		}
		if dup {
			drop[i] = true
			continue
		}
		seen[h] = append(seen[h], key)
	}

	out := c.Filter(func(i int, _ model.Feature) bool { return !drop[i] })
	slog.Debug("Simplify: exact duplicates removed", "removed", len(drop), "remaining", out.Len())
	return out
}

type indexedPoint struct {
	idx int
	pt  orb.Point
}

func (p indexedPoint) Point() orb.Point { return p.pt }
