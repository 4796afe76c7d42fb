package model

import (
	"github.com/paulmach/orb"
)

// CRS is the coordinate reference system of every collection.
const CRS = "EPSG:4326"

// Layer is a geometry layer exposed by the OSM driver.
type Layer string

// Known layers. Other names are passed through to the backend unchanged.
const (
	LayerPoints        Layer = "points"
	LayerLines         Layer = "lines"
	LayerMultiPolygons Layer = "multipolygons"
)

// Feature is one decoded map entity.
type Feature struct {
	ID         int64          `json:"id"`
	Attributes map[string]any `json:"attributes"` // string, number or nil
	Geometry   orb.Geometry   `json:"-"`
}

// Clone returns a copy that shares no map storage with f.
// Geometries are treated as immutable and are shared.
func (f Feature) Clone() Feature {
	attrs := make(map[string]any, len(f.Attributes))
	for k, v := range f.Attributes {
		attrs[k] = v
	}
	return Feature{ID: f.ID, Attributes: attrs, Geometry: f.Geometry}
}

// QuerySpec describes a single attribute query against one layer.
type QuerySpec struct {
	Layer     Layer
	Keys      []string
	Predicate string // empty means "no predicate"
}

// HasPredicate reports whether a predicate was supplied.
func (q QuerySpec) HasPredicate() bool {
	return q.Predicate != ""
}

// Engine selects the external clipping tool.
type Engine string

const (
	EngineOsmosis    Engine = "osmosis"
	EngineOsmconvert Engine = "osmconvert"
)

// ClipShape is either a bounding box or a reference to a .poly file.
type ClipShape struct {
	BBox     *[4]float64 // xmin, ymin, xmax, ymax
	PolyFile string
}

// BBoxShape returns a bounding box shape.
func BBoxShape(xmin, ymin, xmax, ymax float64) ClipShape {
	return ClipShape{BBox: &[4]float64{xmin, ymin, xmax, ymax}}
}

// PolyShape returns a shape backed by a polygon filter file.
func PolyShape(path string) ClipShape {
	return ClipShape{PolyFile: path}
}

// ClipSpec describes one clip invocation.
type ClipSpec struct {
	Shape       ClipShape
	Source      string
	Destination string
	Overwrite   bool
	Engine      Engine
}
