// Package extract runs attribute queries against an OSM map file and decodes
// the matches into feature collections.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"osmflex/pkg/category"
	"osmflex/pkg/geo"
	"osmflex/pkg/model"
	"osmflex/pkg/tracker"
)

var (
	// ErrSourceNotFound is returned when the map file does not exist or is not a regular file.
	ErrSourceNotFound = fmt.Errorf("extract: source file not found: %w", fs.ErrNotExist)
	// ErrInvalidQuery is returned for malformed query parameters.
	ErrInvalidQuery = errors.New("extract: invalid query")
	// ErrBackendQuery is returned when the backend rejects or fails the query.
	ErrBackendQuery = errors.New("extract: backend query failed")
)

// RawFeature is a feature as produced by a backend, before decoding.
type RawFeature struct {
	ID         any // string or number, as reported by the backend
	Properties map[string]any
	Geometry   orb.Geometry
	Err        error // set when the backend could not decode the feature
}

// Backend executes a query against a map file and emits every matching feature.
type Backend interface {
	Query(ctx context.Context, path, query string, emit func(RawFeature)) error
}

// Extractor runs queries through a Backend.
type Extractor struct {
	backend Backend
	tracker *tracker.Tracker
}

// New creates an Extractor. tr may be nil.
func New(b Backend, tr *tracker.Tracker) *Extractor {
	return &Extractor{backend: b, tracker: tr}
}

// BuildQuery renders the SQL for a query specification. Without a predicate
// the first key must be non-null.
func BuildQuery(q model.QuerySpec) string {
	var sb strings.Builder
	sb.WriteString("SELECT osm_id")
	for _, k := range q.Keys {
		sb.WriteString(",")
		sb.WriteString(k)
	}
	sb.WriteString(" FROM ")
	sb.WriteString(string(q.Layer))
	sb.WriteString(" WHERE ")
	if q.HasPredicate() {
		sb.WriteString(q.Predicate)
	} else if len(q.Keys) > 0 {
		sb.WriteString(q.Keys[0])
		sb.WriteString(" IS NOT NULL")
	}
	return sb.String()
}

func validate(q model.QuerySpec) error {
	if q.Layer == "" {
		return fmt.Errorf("%w: empty layer", ErrInvalidQuery)
	}
	if len(q.Keys) == 0 {
		return fmt.Errorf("%w: no keys", ErrInvalidQuery)
	}
	seen := make(map[string]bool, len(q.Keys))
	for _, k := range q.Keys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidQuery)
		}
		if seen[k] {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalidQuery, k)
		}
		seen[k] = true
	}
	return nil
}

func checkSource(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}
	return nil
}

// Extract queries layer of the map file at path and returns a collection with
// columns keys. An empty predicate selects rows where keys[0] is not null.
func (e *Extractor) Extract(ctx context.Context, path string, layer model.Layer, keys []string, predicate string) (*model.Collection, error) {
	if err := checkSource(path); err != nil {
		return nil, err
	}
	spec := model.QuerySpec{Layer: layer, Keys: keys, Predicate: predicate}
	if err := validate(spec); err != nil {
		return nil, err
	}
	return e.run(ctx, path, spec)
}

func (e *Extractor) run(ctx context.Context, path string, spec model.QuerySpec) (*model.Collection, error) {
	query := BuildQuery(spec)
	slog.Debug("Extract: running query", "path", path, "query", query)

	out := model.NewCollection(spec.Keys)
	skipped := 0
	err := e.backend.Query(ctx, path, query, func(raw RawFeature) {
		f, err := decode(raw, spec.Keys)
		if err != nil {
			skipped++
			e.tracker.TrackSkipped("extract")
			slog.Warn("Extract: skipped feature", "layer", spec.Layer, "error", err)
			return
		}
		out.Append(f)
	})
	if err != nil {
		e.tracker.TrackFailure("extract")
		slog.Error("Extract: query failed", "path", path, "query", query, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrBackendQuery, err)
	}

	e.tracker.TrackSuccess("extract")
	e.tracker.TrackFeatures("extract", out.Len())
	slog.Info("Extract: query finished", "layer", spec.Layer, "features", out.Len(), "skipped", skipped)
	return out, nil
}

// ExtractByCategory runs every query of the named category and concatenates
// the results. An unknown category logs a warning and yields an empty collection.
func (e *Extractor) ExtractByCategory(ctx context.Context, path, name string) (*model.Collection, error) {
	if err := checkSource(path); err != nil {
		return nil, err
	}
	c, ok := category.Parse(name)
	if !ok {
		slog.Warn("Extract: unknown category, returning empty collection", "category", name)
		return model.NewCollection(nil), nil
	}

	var parts []*model.Collection
	for _, q := range c.Queries() {
		part, err := e.run(ctx, path, q)
		if err != nil {
			return nil, fmt.Errorf("category %s, layer %s: %w", c, q.Layer, err)
		}
		parts = append(parts, part)
	}
	return model.Concat(parts...), nil
}

func decode(raw RawFeature, keys []string) (model.Feature, error) {
	if raw.Err != nil {
		return model.Feature{}, raw.Err
	}
	if raw.Geometry == nil || geo.IsEmpty(raw.Geometry) {
		return model.Feature{}, errors.New("empty geometry")
	}
	id, err := parseID(raw.ID)
	if err != nil {
		return model.Feature{}, err
	}

	attrs := make(map[string]any, len(keys))
	for _, k := range keys {
		attrs[k] = raw.Properties[k]
	}
	return model.Feature{ID: id, Attributes: attrs, Geometry: raw.Geometry}, nil
}

func parseID(v any) (int64, error) {
	switch id := v.(type) {
	case int64:
		return id, nil
	case int:
		return int64(id), nil
	case float64:
		return int64(id), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid osm_id %q: %w", id, err)
		}
		return n, nil
	case nil:
		return 0, errors.New("missing osm_id")
	}
	return 0, fmt.Errorf("unsupported osm_id type %T", v)
}
