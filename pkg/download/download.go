// Package download fetches OSM dumps from Geofabrik and the planet server.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"osmflex/pkg/model"
	"osmflex/pkg/store"
	"osmflex/pkg/tracker"
)

const (
	DefaultGeofabrikURL = "https://download.geofabrik.de/"
	DefaultPlanetURL    = "https://planet.openstreetmap.org/pbf/planet-latest.osm.pbf"
)

var (
	ErrUnknownCountry = errors.New("download: country not available on Geofabrik")
	ErrInvalidFormat  = errors.New("download: invalid file format")
)

// Fetcher performs the HTTP transfers. request.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, u, cacheKey string) ([]byte, error)
	Download(ctx context.Context, u, dst string) (int64, error)
}

// Downloader fetches country, region and planet extracts.
type Downloader struct {
	client       Fetcher
	tracker      *tracker.Tracker
	catalog      store.ArtifactStore
	geofabrikURL string
	planetURL    string
}

// New creates a Downloader. catalog may be nil.
func New(client Fetcher, tr *tracker.Tracker, catalog store.ArtifactStore) *Downloader {
	return &Downloader{
		client:       client,
		tracker:      tr,
		catalog:      catalog,
		geofabrikURL: DefaultGeofabrikURL,
		planetURL:    DefaultPlanetURL,
	}
}

// SetMirrors overrides the Geofabrik base URL and the planet file URL.
// Empty values keep the current setting.
func (d *Downloader) SetMirrors(geofabrikURL, planetURL string) {
	if geofabrikURL != "" {
		if !strings.HasSuffix(geofabrikURL, "/") {
			geofabrikURL += "/"
		}
		d.geofabrikURL = geofabrikURL
	}
	if planetURL != "" {
		d.planetURL = planetURL
	}
}

// GeofabrikURL returns the download URL of a country extract. format is
// "pbf" for the OSM protobuf dump or "shp" for the zipped shapefiles.
func GeofabrikURL(iso3, format string) (string, error) {
	return geofabrikURL(DefaultGeofabrikURL, iso3, format)
}

func geofabrikURL(base, iso3, format string) (string, error) {
	entry, ok := geofabrikCountries[iso3]
	if !ok {
		if iso3 == "RUS" {
			return "", fmt.Errorf("%w: Russia comes in two files, use RUS-A for the Asian or RUS-E for the European part", ErrUnknownCountry)
		}
		return "", fmt.Errorf("%w: %q; clip it from the planet file or a regional file instead", ErrUnknownCountry, iso3)
	}
	switch format {
	case "pbf":
		return base + entry.continent + "/" + entry.name + "-latest.osm.pbf", nil
	case "shp":
		return base + entry.continent + "/" + entry.name + "-latest-free.shp.zip", nil
	}
	return "", fmt.Errorf("%w: %q, choose one of [shp, pbf]", ErrInvalidFormat, format)
}

// Country downloads the extract of one country into dir and returns the
// local path. An existing file is kept unless overwrite is set.
func (d *Downloader) Country(ctx context.Context, iso3, format, dir string, overwrite bool) (string, error) {
	u, err := geofabrikURL(d.geofabrikURL, iso3, format)
	if err != nil {
		return "", err
	}
	return d.fetch(ctx, u, filepath.Join(dir, path.Base(u)), iso3, overwrite)
}

// Region downloads a Geofabrik region such as "europe" or "central-america"
// into dir and returns the local path.
func (d *Downloader) Region(ctx context.Context, region, dir string, overwrite bool) (string, error) {
	region = strings.ToLower(strings.TrimSpace(region))
	if region == "" {
		return "", fmt.Errorf("download: empty region")
	}
	u := d.geofabrikURL + region + "-latest.osm.pbf"
	return d.fetch(ctx, u, filepath.Join(dir, path.Base(u)), region, overwrite)
}

// Planet downloads the full planet file to dst.
func (d *Downloader) Planet(ctx context.Context, dst string, overwrite bool) (string, error) {
	return d.fetch(ctx, d.planetURL, dst, "planet", overwrite)
}

func (d *Downloader) fetch(ctx context.Context, u, dst, region string, overwrite bool) (string, error) {
	if info, err := os.Stat(dst); err == nil && info.Mode().IsRegular() && !overwrite {
		slog.Info("Download: file already exists", "path", dst)
		return dst, nil
	}

	slog.Info("Download: fetching", "url", u, "path", dst)
	n, err := d.client.Download(ctx, u, dst)
	if err != nil {
		d.tracker.TrackFailure("download")
		return "", fmt.Errorf("download %s: %w", u, err)
	}
	d.tracker.TrackSuccess("download")
	d.tracker.TrackBytes("download", n)
	slog.Info("Download: done", "path", dst, "bytes", n)

	if d.catalog != nil {
		abs, err := filepath.Abs(dst)
		if err != nil {
			abs = dst
		}
		a := &model.Artifact{Kind: model.ArtifactDownload, Path: abs, Source: u, Region: region, Bytes: n}
		if err := d.catalog.SaveArtifact(ctx, a); err != nil {
			slog.Warn("Download: failed to record artifact", "path", abs, "error", err)
		}
	}
	return dst, nil
}
