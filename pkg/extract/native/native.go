// Package native is an extract backend that reads .osm.pbf and .osm files
// directly and evaluates queries in-process.
//
// Layers follow the defaults of GDAL's OSM driver: points are tagged nodes,
// lines are open ways and closed ways that are not areas, multipolygons are
// closed area ways plus multipolygon and boundary relations.
package native

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"

	"osmflex/pkg/extract"
	"osmflex/pkg/logging"
	"osmflex/pkg/model"
	"osmflex/pkg/osmsql"
)

// ErrUnsupportedLayer is returned for layers other than points, lines and multipolygons.
var ErrUnsupportedLayer = errors.New("native: unsupported layer")

// Backend scans map files with paulmach/osm.
type Backend struct {
	procs int
}

// New creates a Backend. procs is the PBF decoder parallelism; zero uses GOMAXPROCS.
func New(procs int) *Backend {
	if procs <= 0 {
		procs = runtime.GOMAXPROCS(0)
	}
	return &Backend{procs: procs}
}

// Query implements extract.Backend.
func (b *Backend) Query(ctx context.Context, path, query string, emit func(extract.RawFeature)) error {
	st, err := osmsql.Parse(query)
	if err != nil {
		return err
	}

	q := &run{b: b, ctx: ctx, path: path, stmt: st, emit: emit}
	switch model.Layer(st.Layer) {
	case model.LayerPoints:
		err = q.points()
	case model.LayerLines:
		err = q.lines()
	case model.LayerMultiPolygons:
		err = q.multipolygons()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedLayer, st.Layer)
	}
	if err != nil {
		return err
	}
	slog.Debug("Native: query complete", "path", path, "layer", st.Layer, "features", q.emitted)
	return nil
}

// scan streams every object of kind in the file to fn.
func (b *Backend) scan(ctx context.Context, path string, kind osm.Type, fn func(osm.Object)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var s osm.Scanner
	if isXML(path) {
		s = osmxml.New(ctx, f)
	} else {
		ps := osmpbf.New(ctx, f, b.procs)
		ps.SkipNodes = kind != osm.TypeNode
		ps.SkipWays = kind != osm.TypeWay
		ps.SkipRelations = kind != osm.TypeRelation
		s = ps
	}
	defer s.Close()

	for s.Scan() {
		o := s.Object()
		if o.ObjectID().Type() != kind {
			continue
		}
		fn(o)
	}
	return s.Err()
}

func isXML(path string) bool {
	p := strings.ToLower(path)
	return strings.HasSuffix(p, ".osm") || strings.HasSuffix(p, ".xml")
}

type run struct {
	b       *Backend
	ctx     context.Context
	path    string
	stmt    *osmsql.Statement
	emit    func(extract.RawFeature)
	emitted int
}

func (r *run) match(id int64, tags osm.Tags) bool {
	return osmsql.Match(r.stmt.Where, tagRow{id: id, tags: tags})
}

func (r *run) send(id int64, tags osm.Tags, g orb.Geometry) {
	r.emitted++
	logging.TraceDefault("Native: matched", "id", id, "type", g.GeoJSONType())
	r.emit(extract.RawFeature{
		ID:         id,
		Properties: properties(r.stmt.Columns, id, tags),
		Geometry:   g,
	})
}

func (r *run) fail(kind string, id int64, err error) {
	logging.TraceDefault("Native: geometry failed", "kind", kind, "id", id, "error", err)
	r.emit(extract.RawFeature{ID: id, Err: fmt.Errorf("%s %d: %w", kind, id, err)})
}

func (r *run) points() error {
	return r.b.scan(r.ctx, r.path, osm.TypeNode, func(o osm.Object) {
		n := o.(*osm.Node)
		if !significant(n.Tags) || !r.match(int64(n.ID), n.Tags) {
			return
		}
		r.send(int64(n.ID), n.Tags, n.Point())
	})
}

type wayRef struct {
	id    osm.WayID
	tags  osm.Tags
	nodes []osm.NodeID
}

func nodeIDs(w *osm.Way) []osm.NodeID {
	ids := make([]osm.NodeID, len(w.Nodes))
	for i, wn := range w.Nodes {
		ids[i] = wn.ID
	}
	return ids
}

func closed(nodes []osm.NodeID) bool {
	return len(nodes) >= 4 && nodes[0] == nodes[len(nodes)-1]
}

func (r *run) lines() error {
	var ways []wayRef
	need := make(map[osm.NodeID]struct{})
	err := r.b.scan(r.ctx, r.path, osm.TypeWay, func(o osm.Object) {
		w := o.(*osm.Way)
		ids := nodeIDs(w)
		if len(ids) < 2 || !significant(w.Tags) {
			return
		}
		if closed(ids) && isArea(w.Tags) {
			return
		}
		if !r.match(int64(w.ID), w.Tags) {
			return
		}
		ways = append(ways, wayRef{id: w.ID, tags: w.Tags, nodes: ids})
		for _, id := range ids {
			need[id] = struct{}{}
		}
	})
	if err != nil {
		return err
	}
	if len(ways) == 0 {
		return nil
	}

	coords, err := r.locate(need)
	if err != nil {
		return err
	}
	for _, w := range ways {
		ls, err := lineString(w.nodes, coords)
		if err != nil {
			r.fail("way", int64(w.id), err)
			continue
		}
		r.send(int64(w.id), w.tags, ls)
	}
	return nil
}

type relRef struct {
	id    osm.RelationID
	tags  osm.Tags
	outer []osm.WayID
	inner []osm.WayID
}

func (r *run) multipolygons() error {
	var rels []relRef
	members := make(map[osm.WayID][]osm.NodeID)
	err := r.b.scan(r.ctx, r.path, osm.TypeRelation, func(o osm.Object) {
		rel := o.(*osm.Relation)
		t, _ := find(rel.Tags, "type")
		if t != "multipolygon" && t != "boundary" {
			return
		}
		if !r.match(int64(rel.ID), rel.Tags) {
			return
		}
		ref := relRef{id: rel.ID, tags: rel.Tags}
		for _, m := range rel.Members {
			if m.Type != osm.TypeWay {
				continue
			}
			wid := osm.WayID(m.Ref)
			if m.Role == "inner" {
				ref.inner = append(ref.inner, wid)
			} else {
				ref.outer = append(ref.outer, wid)
			}
			members[wid] = nil
		}
		rels = append(rels, ref)
	})
	if err != nil {
		return err
	}

	var ways []wayRef
	need := make(map[osm.NodeID]struct{})
	err = r.b.scan(r.ctx, r.path, osm.TypeWay, func(o osm.Object) {
		w := o.(*osm.Way)
		ids := nodeIDs(w)
		_, isMember := members[w.ID]
		if isMember {
			members[w.ID] = ids
		}
		area := closed(ids) && isArea(w.Tags) && r.match(int64(w.ID), w.Tags)
		if area {
			ways = append(ways, wayRef{id: w.ID, tags: w.Tags, nodes: ids})
		}
		if isMember || area {
			for _, id := range ids {
				need[id] = struct{}{}
			}
		}
	})
	if err != nil {
		return err
	}
	if len(ways) == 0 && len(rels) == 0 {
		return nil
	}

	coords, err := r.locate(need)
	if err != nil {
		return err
	}

	for _, rel := range rels {
		mp, err := assemble(rel, members, coords)
		if err != nil {
			r.fail("relation", int64(rel.id), err)
			continue
		}
		r.send(int64(rel.id), rel.tags, mp)
	}
	for _, w := range ways {
		ring, err := lineString(w.nodes, coords)
		if err != nil {
			r.fail("way", int64(w.id), err)
			continue
		}
		r.send(int64(w.id), w.tags, orb.MultiPolygon{{orb.Ring(ring)}})
	}
	return nil
}

// locate resolves the coordinates of every node in need.
func (r *run) locate(need map[osm.NodeID]struct{}) (map[osm.NodeID]orb.Point, error) {
	found := make(map[osm.NodeID]orb.Point, len(need))
	err := r.b.scan(r.ctx, r.path, osm.TypeNode, func(o osm.Object) {
		n := o.(*osm.Node)
		if _, ok := need[n.ID]; ok {
			found[n.ID] = n.Point()
		}
	})
	return found, err
}

func lineString(ids []osm.NodeID, coords map[osm.NodeID]orb.Point) (orb.LineString, error) {
	ls := make(orb.LineString, 0, len(ids))
	for _, id := range ids {
		p, ok := coords[id]
		if !ok {
			return nil, fmt.Errorf("missing node %d", id)
		}
		ls = append(ls, p)
	}
	return ls, nil
}

func properties(columns []string, id int64, tags osm.Tags) map[string]any {
	props := make(map[string]any, len(columns))
	row := tagRow{id: id, tags: tags}
	for _, c := range columns {
		if c == "*" {
			for _, t := range tags {
				props[t.Key] = t.Value
			}
			continue
		}
		if v, ok := row.Lookup(c); ok {
			props[c] = v
		} else {
			props[c] = nil
		}
	}
	return props
}

// tagRow exposes OSM tags as query columns. Column names use _ where the
// tag key uses :, as in tower_type for tower:type.
type tagRow struct {
	id   int64
	tags osm.Tags
}

func (t tagRow) Lookup(column string) (string, bool) {
	if column == "osm_id" {
		return strconv.FormatInt(t.id, 10), true
	}
	if v, ok := find(t.tags, column); ok {
		return v, true
	}
	if !strings.Contains(column, "_") {
		return "", false
	}
	if v, ok := find(t.tags, strings.ReplaceAll(column, "_", ":")); ok {
		return v, true
	}
	for i := 0; i < len(column); i++ {
		if column[i] != '_' {
			continue
		}
		if v, ok := find(t.tags, column[:i]+":"+column[i+1:]); ok {
			return v, true
		}
	}
	return "", false
}

func find(tags osm.Tags, key string) (string, bool) {
	for _, t := range tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

var ignoredKeys = map[string]bool{
	"created_by":   true,
	"converted_by": true,
	"source":       true,
	"time":         true,
	"note":         true,
	"fixme":        true,
	"FIXME":        true,
}

// significant reports whether tags carry anything beyond editor metadata.
func significant(tags osm.Tags) bool {
	for _, t := range tags {
		if !ignoredKeys[t.Key] {
			return true
		}
	}
	return false
}

var areaKeys = map[string]bool{
	"aeroway":  true,
	"amenity":  true,
	"boundary": true,
	"building": true,
	"craft":    true,
	"historic": true,
	"landuse":  true,
	"leisure":  true,
	"man_made": true,
	"military": true,
	"natural":  true,
	"office":   true,
	"place":    true,
	"shop":     true,
	"sport":    true,
	"tourism":  true,
}

// isArea reports whether a closed way with these tags is a polygon.
func isArea(tags osm.Tags) bool {
	if v, ok := find(tags, "area"); ok {
		return v == "yes"
	}
	for _, t := range tags {
		if areaKeys[t.Key] {
			return true
		}
	}
	return false
}
