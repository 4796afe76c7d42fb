package native

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/osm"
)

// assemble builds a multipolygon from the member ways of a relation. Outer
// and inner ways are stitched into closed rings by shared end nodes; each
// inner ring is attached to the first outer ring containing it.
func assemble(rel relRef, ways map[osm.WayID][]osm.NodeID, coords map[osm.NodeID]orb.Point) (orb.MultiPolygon, error) {
	outerRings, err := resolveRings(rel.outer, ways, coords)
	if err != nil {
		return nil, fmt.Errorf("outer: %w", err)
	}
	if len(outerRings) == 0 {
		return nil, errors.New("no closed outer ring")
	}
	innerRings, err := resolveRings(rel.inner, ways, coords)
	if err != nil {
		return nil, fmt.Errorf("inner: %w", err)
	}

	mp := make(orb.MultiPolygon, len(outerRings))
	for i, r := range outerRings {
		mp[i] = orb.Polygon{r}
	}
	for _, hole := range innerRings {
		for i := range mp {
			if planar.RingContains(mp[i][0], hole[0]) {
				mp[i] = append(mp[i], hole)
				break
			}
		}
	}
	return mp, nil
}

func resolveRings(ids []osm.WayID, ways map[osm.WayID][]osm.NodeID, coords map[osm.NodeID]orb.Point) ([]orb.Ring, error) {
	var parts [][]osm.NodeID
	for _, id := range ids {
		nodes := ways[id]
		if len(nodes) < 2 {
			return nil, fmt.Errorf("missing member way %d", id)
		}
		parts = append(parts, nodes)
	}

	var rings []orb.Ring
	for _, loop := range stitch(parts) {
		ls, err := lineString(loop, coords)
		if err != nil {
			return nil, err
		}
		rings = append(rings, orb.Ring(ls))
	}
	return rings, nil
}

// stitch joins node sequences sharing end nodes into closed loops.
// Sequences that cannot be closed are dropped.
func stitch(parts [][]osm.NodeID) [][]osm.NodeID {
	used := make([]bool, len(parts))
	var loops [][]osm.NodeID

	for i := range parts {
		if used[i] {
			continue
		}
		used[i] = true
		cur := append([]osm.NodeID(nil), parts[i]...)

		for cur[0] != cur[len(cur)-1] {
			end := cur[len(cur)-1]
			extended := false
			for j := range parts {
				if used[j] {
					continue
				}
				p := parts[j]
				switch end {
				case p[0]:
					cur = append(cur, p[1:]...)
				case p[len(p)-1]:
					for k := len(p) - 2; k >= 0; k-- {
						cur = append(cur, p[k])
					}
				default:
					continue
				}
				used[j] = true
				extended = true
				break
			}
			if !extended {
				break
			}
		}

		if len(cur) >= 4 && cur[0] == cur[len(cur)-1] {
			loops = append(loops, cur)
		}
	}
	return loops
}
