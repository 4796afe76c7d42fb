// Package ogr is an extract backend that runs queries through GDAL's ogr2ogr
// and its OSM driver.
package ogr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/paulmach/orb/geojson"

	"osmflex/pkg/extract"
	"osmflex/pkg/runner"
)

// maxLine bounds a single GeoJSONSeq record.
const maxLine = 256 << 20

// Backend runs ogr2ogr with GeoJSONSeq output on stdout.
type Backend struct {
	binary     string
	configFile string
	runner     runner.Runner
}

// New creates a Backend. configFile is the OSM driver ini and may be empty.
func New(binary, configFile string, r runner.Runner) *Backend {
	if binary == "" {
		binary = "ogr2ogr"
	}
	if r == nil {
		r = runner.Exec{}
	}
	return &Backend{binary: binary, configFile: configFile, runner: r}
}

// Args returns the ogr2ogr argument vector for a query.
func (b *Backend) Args(path, query string) []string {
	argv := []string{b.binary, "-f", "GeoJSONSeq", "/vsistdout/", path, "-sql", query}
	if b.configFile != "" {
		argv = append(argv, "--config", "OSM_CONFIG_FILE", b.configFile)
	}
	return argv
}

// Query implements extract.Backend.
func (b *Backend) Query(ctx context.Context, path, query string, emit func(extract.RawFeature)) error {
	pr, pw := io.Pipe()

	type outcome struct {
		res runner.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := b.runner.Run(ctx, b.Args(path, withWayID(query)), pw)
		pw.Close()
		done <- outcome{res, err}
	}()

	sc := bufio.NewScanner(pr)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	n := 0
	for sc.Scan() {
		line := bytes.TrimSpace(bytes.TrimLeft(sc.Bytes(), "\x1e"))
		if len(line) == 0 {
			continue
		}
		n++
		emit(decodeLine(line))
	}
	scanErr := sc.Err()
	// Unblock the writer if scanning stopped early.
	pr.CloseWithError(io.ErrClosedPipe)

	out := <-done
	if out.err != nil {
		return out.err
	}
	if out.res.ExitCode != 0 {
		return fmt.Errorf("%s exited with code %d: %s", b.binary, out.res.ExitCode, out.res.Stderr)
	}
	if scanErr != nil {
		return fmt.Errorf("reading %s output: %w", b.binary, scanErr)
	}

	slog.Debug("OGR: query complete", "path", path, "records", n, "duration", out.res.Duration)
	return nil
}

// withWayID also selects osm_way_id from the multipolygons layer, where GDAL
// reports areas built from closed ways with a null osm_id.
func withWayID(query string) string {
	const prefix = "SELECT osm_id,"
	if strings.HasPrefix(query, prefix) && strings.Contains(query, " FROM multipolygons ") {
		return prefix + "osm_way_id," + strings.TrimPrefix(query, prefix)
	}
	return query
}

func decodeLine(line []byte) extract.RawFeature {
	f, err := geojson.UnmarshalFeature(line)
	if err != nil {
		return extract.RawFeature{Err: fmt.Errorf("decode feature: %w", err)}
	}
	props := map[string]any(f.Properties)
	id := props["osm_id"]
	if id == nil {
		id = props["osm_way_id"]
	}
	return extract.RawFeature{
		ID:         id,
		Properties: props,
		Geometry:   f.Geometry,
	}
}
