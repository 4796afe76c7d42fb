package output

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osmflex/pkg/model"
)

func sample() *model.Collection {
	c := model.NewCollection([]string{"amenity", "name"})
	c.Append(model.Feature{
		ID:         42,
		Attributes: map[string]any{"amenity": "hospital", "name": "St. Mary"},
		Geometry:   orb.Point{8.5, 47.3},
	})
	c.Append(model.Feature{
		ID:         7,
		Attributes: map[string]any{"amenity": "clinic"},
		Geometry:   orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
	})
	return c
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"out/health.geojson", FormatGeoJSON, false},
		{"health.JSON", FormatGeoJSON, false},
		{"health.csv", FormatCSV, false},
		{"health.shp", "", true},
		{"health", "", true},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownFormat, tt.path)
			continue
		}
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestGeoJSON_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, sample()))

	got, err := ReadGeoJSON(buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, []string{"amenity", "name"}, got.Columns)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, int64(42), got.Features[0].ID)
	assert.Equal(t, "St. Mary", got.Features[0].Attributes["name"])
	assert.Equal(t, orb.Point{8.5, 47.3}, got.Features[0].Geometry)

	// Absent values are written as null and read back as nil
	v, ok := got.Features[1].Attributes["name"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "Polygon", got.Features[1].Geometry.GeoJSONType())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"id", "amenity", "name", "geometry"}, records[0])
	assert.Equal(t, []string{"42", "hospital", "St. Mary", "POINT(8.5 47.3)"}, records[1])
	assert.Equal(t, "7", records[2][0])
	assert.Equal(t, "", records[2][2])
	assert.Equal(t, "POLYGON((0 0,1 0,1 1,0 0))", records[2][3])
}

func TestCell(t *testing.T) {
	assert.Equal(t, "", cell(nil))
	assert.Equal(t, "x", cell("x"))
	assert.Equal(t, "2.5", cell(2.5))
	assert.Equal(t, "3", cell(int64(3)))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "nested", "health.geojson")
	require.NoError(t, WriteFile(path, sample()))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed")

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())

	err = WriteFile(filepath.Join(dir, "health.kml"), sample())
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	csvPath := filepath.Join(dir, "health.csv")
	require.NoError(t, WriteFile(csvPath, sample()))
	_, err = ReadFile(csvPath)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
