package model

import (
	"github.com/paulmach/orb"
)

// Collection is an ordered set of features sharing a column schema.
// Columns holds the attribute keys; id and geometry are implicit.
type Collection struct {
	Columns  []string
	CRS      string
	Features []Feature
}

// NewCollection returns an empty collection with the given attribute columns.
func NewCollection(columns []string) *Collection {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Collection{
		Columns:  cols,
		CRS:      CRS,
		Features: []Feature{},
	}
}

// Len returns the number of rows.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}

// Schema returns the full column list: id, attribute columns, geometry.
func (c *Collection) Schema() []string {
	schema := make([]string, 0, len(c.Columns)+2)
	schema = append(schema, "id")
	schema = append(schema, c.Columns...)
	return append(schema, "geometry")
}

// Append adds a feature, normalizing its attributes to the collection schema.
// Missing keys become nil and keys outside the schema are dropped.
func (c *Collection) Append(f Feature) {
	attrs := make(map[string]any, len(c.Columns))
	for _, col := range c.Columns {
		v, ok := f.Attributes[col]
		if !ok {
			v = nil
		}
		attrs[col] = v
	}
	c.Features = append(c.Features, Feature{ID: f.ID, Attributes: attrs, Geometry: f.Geometry})
}

// Filter returns a new collection containing the rows for which keep returns true.
// Row order is preserved and the index is reset.
func (c *Collection) Filter(keep func(i int, f Feature) bool) *Collection {
	out := NewCollection(c.Columns)
	out.CRS = c.CRS
	for i, f := range c.Features {
		if keep(i, f) {
			out.Features = append(out.Features, f.Clone())
		}
	}
	return out
}

// Geometries returns the geometry column.
func (c *Collection) Geometries() []orb.Geometry {
	geoms := make([]orb.Geometry, len(c.Features))
	for i, f := range c.Features {
		geoms[i] = f.Geometry
	}
	return geoms
}

// Concat unions collections row-wise. The resulting schema is the union of all
// columns in first-seen order; values missing in a source row are nil.
func Concat(collections ...*Collection) *Collection {
	var columns []string
	seen := make(map[string]bool)
	for _, c := range collections {
		if c == nil {
			continue
		}
		for _, col := range c.Columns {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}

	out := NewCollection(columns)
	for _, c := range collections {
		if c == nil {
			continue
		}
		for _, f := range c.Features {
			out.Append(f)
		}
	}
	return out
}
