package boundary

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feature struct {
	attrs []string
	parts [][]shp.Point
}

// writeLayer writes a polygon shapefile with string attributes.
func writeLayer(t *testing.T, path string, fields []string, features []feature) {
	t.Helper()
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	shpFields := make([]shp.Field, len(fields))
	for i, f := range fields {
		shpFields[i] = shp.StringField(f, 32)
	}
	require.NoError(t, w.SetFields(shpFields))

	for _, f := range features {
		poly := shp.Polygon(*shp.NewPolyLine(f.parts))
		n := w.Write(&poly)
		for i, v := range f.attrs {
			require.NoError(t, w.WriteAttribute(int(n), i, v))
		}
	}
	w.Close()
}

// Clockwise outer rings, counter-clockwise holes
var (
	outer = []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}
	hole  = []shp.Point{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 2}}
	isle  = []shp.Point{{X: 20, Y: 0}, {X: 20, Y: 1}, {X: 21, Y: 1}, {X: 21, Y: 0}, {X: 20, Y: 0}}
	small = []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 0}, {X: 0, Y: 0}}
	other = []shp.Point{{X: 5, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 5}, {X: 10, Y: 0}, {X: 5, Y: 0}}
)

func writeFixtures(t *testing.T, dir string) {
	t.Helper()
	writeLayer(t, filepath.Join(dir, "ne_10m_admin_0_countries.shp"),
		[]string{"ADM0_A3", "NAME"},
		[]feature{
			{attrs: []string{"CAN", "Canada"}, parts: [][]shp.Point{outer, hole, isle}},
			{attrs: []string{"MEX", "Mexico"}, parts: [][]shp.Point{small}},
		})
	writeLayer(t, filepath.Join(dir, "ne_10m_admin_1_states_provinces.shp"),
		[]string{"adm0_a3", "name_en"},
		[]feature{
			{attrs: []string{"CAN", "Alberta"}, parts: [][]shp.Point{small}},
			{attrs: []string{"CAN", "Ontario"}, parts: [][]shp.Point{other}},
			{attrs: []string{"MEX", "Sonora"}, parts: [][]shp.Point{small}},
		})
}

func TestCountryShape(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)
	s := NewService(dir, nil)
	ctx := context.Background()

	g, err := s.CountryShape(ctx, "CAN")
	require.NoError(t, err)
	mp, ok := g.(orb.MultiPolygon)
	require.True(t, ok, "expected multipolygon, got %T", g)
	require.Len(t, mp, 2)
	assert.Len(t, mp[0], 2, "hole must be attached to the mainland")
	assert.Len(t, mp[1], 1)

	g, err = s.CountryShape(ctx, "MEX")
	require.NoError(t, err)
	_, ok = g.(orb.Polygon)
	assert.True(t, ok, "single ring country is a polygon, got %T", g)

	_, err = s.CountryShape(ctx, "XYZ")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CountryShape(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestAdmin1Shapes(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)
	s := NewService(dir, nil)

	shapes, err := s.Admin1Shapes(context.Background(), "CAN")
	require.NoError(t, err)
	assert.Len(t, shapes, 2)
	assert.Contains(t, shapes, "Alberta")
	assert.Contains(t, shapes, "Ontario")

	_, err = s.Admin1Shapes(context.Background(), "XYZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMissingDataWithoutClient(t *testing.T) {
	s := NewService(t.TempDir(), nil)
	_, err := s.CountryShape(context.Background(), "CAN")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

// zipDownloader serves a zip of the files in src whose names start with the
// archive's layer prefix.
type zipDownloader struct {
	src   string
	calls []string
}

func (z *zipDownloader) Download(_ context.Context, u, dst string) (int64, error) {
	z.calls = append(z.calls, u)
	prefix := filepath.Base(u)
	prefix = prefix[:len(prefix)-len(".zip")] + "."

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	zw := zip.NewWriter(out)

	entries, err := os.ReadDir(z.src)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if len(e.Name()) < len(prefix) || e.Name()[:len(prefix)] != prefix {
			continue
		}
		w, err := zw.Create("nested/" + e.Name())
		if err != nil {
			return 0, err
		}
		f, err := os.Open(filepath.Join(z.src, e.Name()))
		if err != nil {
			return 0, err
		}
		_, err = io.Copy(w, f)
		f.Close()
		if err != nil {
			return 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	info, err := out.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func TestDownloadsMissingLayer(t *testing.T) {
	src := t.TempDir()
	writeFixtures(t, src)
	dir := filepath.Join(t.TempDir(), "naturalearth")

	z := &zipDownloader{src: src}
	s := NewService(dir, z)
	s.SetBaseURL("https://mirror.example/ne")
	ctx := context.Background()

	shapes, err := s.Admin1Shapes(ctx, "MEX")
	require.NoError(t, err)
	assert.Contains(t, shapes, "Sonora")
	require.Equal(t, []string{"https://mirror.example/ne/ne_10m_admin_1_states_provinces.zip"}, z.calls)

	_, err = os.Stat(filepath.Join(dir, "ne_10m_admin_1_states_provinces.shp"))
	assert.NoError(t, err, "shapefile must be extracted flat into the data dir")
	_, err = os.Stat(filepath.Join(dir, "ne_10m_admin_1_states_provinces.zip"))
	assert.True(t, os.IsNotExist(err), "archive must be removed")

	// Cached layer: no further download
	_, err = s.Admin1Shapes(ctx, "CAN")
	require.NoError(t, err)
	assert.Len(t, z.calls, 1)
}

func TestConvertPolygon_UnmatchedHole(t *testing.T) {
	ccw := []shp.Point{{X: 50, Y: 50}, {X: 51, Y: 50}, {X: 51, Y: 51}, {X: 50, Y: 50}}
	p := shp.Polygon(*shp.NewPolyLine([][]shp.Point{outer, ccw}))
	g := convertPolygon(&p)
	mp, ok := g.(orb.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, mp, 2)
}
