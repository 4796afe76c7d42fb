// Package output writes and reads feature collections as GeoJSON or CSV
// with WKT geometries.
package output

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"

	"osmflex/pkg/model"
)

// Format names an output encoding.
type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatCSV     Format = "csv"
)

// ErrUnknownFormat is returned for file extensions and format names that
// have no encoder.
var ErrUnknownFormat = errors.New("output: unknown format")

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// Write encodes c to w.
func Write(w io.Writer, c *model.Collection, f Format) error {
	switch f {
	case FormatGeoJSON:
		return WriteGeoJSON(w, c)
	case FormatCSV:
		return WriteCSV(w, c)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteFile encodes c into path, choosing the format by extension. The file
// is written to a temporary sibling and renamed on success.
func WriteFile(path string, c *model.Collection) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(file, c, f); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// WriteGeoJSON writes c as a FeatureCollection. Every feature carries id and
// all schema columns as properties; absent values are null.
func WriteGeoJSON(w io.Writer, c *model.Collection) error {
	fc := geojson.NewFeatureCollection()
	for _, f := range c.Features {
		gf := geojson.NewFeature(f.Geometry)
		gf.Properties["id"] = f.ID
		for _, col := range c.Columns {
			gf.Properties[col] = f.Attributes[col]
		}
		fc.Append(gf)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	return nil
}

// WriteCSV writes one row per feature: id, the schema columns, and the
// geometry as WKT. Absent values are empty cells.
func WriteCSV(w io.Writer, c *model.Collection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(c.Schema()); err != nil {
		return err
	}

	record := make([]string, 0, len(c.Columns)+2)
	for _, f := range c.Features {
		record = record[:0]
		record = append(record, strconv.FormatInt(f.ID, 10))
		for _, col := range c.Columns {
			record = append(record, cell(f.Attributes[col]))
		}
		geom := ""
		if f.Geometry != nil {
			geom = wkt.MarshalString(f.Geometry)
		}
		record = append(record, geom)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// ReadFile decodes a collection from a GeoJSON file.
func ReadFile(path string) (*model.Collection, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	if f != FormatGeoJSON {
		return nil, fmt.Errorf("%w: cannot read %s", ErrUnknownFormat, f)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadGeoJSON(data)
}

// ReadGeoJSON decodes a FeatureCollection. The column schema is the union of
// property names, excluding id, in order of first appearance with each
// feature's names sorted. A numeric id property
// wins over the feature's top-level id.
func ReadGeoJSON(data []byte) (*model.Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	var columns []string
	seen := make(map[string]struct{})
	for _, gf := range fc.Features {
		keys := make([]string, 0, len(gf.Properties))
		for k := range gf.Properties {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if k == "id" {
				continue
			}
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}

	c := model.NewCollection(columns)
	for _, gf := range fc.Features {
		c.Append(model.Feature{
			ID:         featureID(gf),
			Attributes: gf.Properties,
			Geometry:   gf.Geometry,
		})
	}
	return c, nil
}

func featureID(gf *geojson.Feature) int64 {
	if id, ok := toInt64(gf.Properties["id"]); ok {
		return id
	}
	id, _ := toInt64(gf.ID)
	return id
}

func toInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}
