package ogr

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osmflex/pkg/extract"
	"osmflex/pkg/model"
	"osmflex/pkg/runner"
)

type fakeRunner struct {
	argv   []string
	output string
	result runner.Result
	err    error
}

func (f *fakeRunner) Run(_ context.Context, argv []string, stdout io.Writer) (runner.Result, error) {
	f.argv = argv
	if f.err != nil {
		return runner.Result{}, f.err
	}
	if stdout != nil {
		if _, err := io.WriteString(stdout, f.output); err != nil {
			return runner.Result{}, err
		}
	}
	return f.result, nil
}

const seq = "\x1e{\"type\":\"Feature\",\"properties\":{\"osm_id\":\"42\",\"name\":\"Elm Rd\",\"highway\":\"residential\"},\"geometry\":{\"type\":\"LineString\",\"coordinates\":[[8.5,47.3],[8.6,47.4]]}}\n" +
	"{\"type\":\"Feature\",\"properties\":{\"osm_id\":\"43\",\"name\":null,\"highway\":\"residential\"},\"geometry\":{\"type\":\"LineString\",\"coordinates\":[[8.6,47.4],[8.7,47.5]]}}\n" +
	"\n" +
	"not json\n" +
	"{\"type\":\"Feature\",\"properties\":{\"osm_id\":\"44\",\"highway\":\"residential\"},\"geometry\":null}\n"

func TestArgs(t *testing.T) {
	b := New("", "", nil)
	assert.Equal(t,
		[]string{"ogr2ogr", "-f", "GeoJSONSeq", "/vsistdout/", "in.osm.pbf", "-sql", "SELECT osm_id FROM points WHERE a IS NOT NULL"},
		b.Args("in.osm.pbf", "SELECT osm_id FROM points WHERE a IS NOT NULL"))

	b = New("/opt/gdal/bin/ogr2ogr", "/etc/osmconf.ini", nil)
	argv := b.Args("in.osm.pbf", "q")
	assert.Equal(t, "/opt/gdal/bin/ogr2ogr", argv[0])
	assert.Equal(t, []string{"--config", "OSM_CONFIG_FILE", "/etc/osmconf.ini"}, argv[len(argv)-3:])
}

func TestQuery_Decodes(t *testing.T) {
	r := &fakeRunner{output: seq}
	b := New("ogr2ogr", "", r)

	var got []extract.RawFeature
	err := b.Query(context.Background(), "in.osm.pbf", "SELECT osm_id,name,highway FROM lines WHERE highway='residential'", func(f extract.RawFeature) {
		got = append(got, f)
	})
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "42", got[0].ID)
	assert.Equal(t, "Elm Rd", got[0].Properties["name"])
	assert.Equal(t, orb.LineString{{8.5, 47.3}, {8.6, 47.4}}, got[0].Geometry)
	assert.Nil(t, got[1].Properties["name"])
	assert.Error(t, got[2].Err)
	assert.True(t, got[3].Err != nil || got[3].Geometry == nil, "null geometry must not decode to a shape")
	assert.Equal(t, "-sql", r.argv[5])
}

func TestQuery_NonZeroExit(t *testing.T) {
	r := &fakeRunner{result: runner.Result{ExitCode: 1, Stderr: "ERROR 1: Undefined column 'bogus'"}}
	b := New("ogr2ogr", "", r)

	err := b.Query(context.Background(), "in.osm.pbf", "q", func(extract.RawFeature) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestQuery_StartFailure(t *testing.T) {
	startErr := errors.New("exec: ogr2ogr not found")
	b := New("ogr2ogr", "", &fakeRunner{err: startErr})

	err := b.Query(context.Background(), "in.osm.pbf", "q", func(extract.RawFeature) {})
	assert.ErrorIs(t, err, startErr)
}

func TestQuery_ThroughExtractor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.osm.pbf")
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o644))

	e := extract.New(New("ogr2ogr", "", &fakeRunner{output: seq}), nil)
	c, err := e.Extract(context.Background(), path, model.LayerLines, []string{"name", "highway"}, "highway='residential'")
	require.NoError(t, err)

	require.Equal(t, 2, c.Len())
	assert.Equal(t, int64(42), c.Features[0].ID)
	assert.Equal(t, int64(43), c.Features[1].ID)
	assert.Equal(t, []string{"id", "name", "highway", "geometry"}, c.Schema())
}

func TestQuery_MultipolygonWayIDs(t *testing.T) {
	out := "{\"type\":\"Feature\",\"properties\":{\"osm_id\":null,\"osm_way_id\":\"77\",\"building\":\"yes\"},\"geometry\":{\"type\":\"MultiPolygon\",\"coordinates\":[[[[0,0],[0,1],[1,1],[1,0],[0,0]]]]}}\n"
	r := &fakeRunner{output: out}
	b := New("ogr2ogr", "", r)

	var got []extract.RawFeature
	err := b.Query(context.Background(), "in.osm.pbf", "SELECT osm_id,building FROM multipolygons WHERE building IS NOT NULL", func(f extract.RawFeature) {
		got = append(got, f)
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "77", got[0].ID)
	assert.Equal(t, "SELECT osm_id,osm_way_id,building FROM multipolygons WHERE building IS NOT NULL", r.argv[6])
}
