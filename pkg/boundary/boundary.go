// Package boundary provides Natural Earth country and admin-1 outlines.
package boundary

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DefaultBaseURL hosts the 10m cultural Natural Earth archives.
const DefaultBaseURL = "https://naciscdn.org/naturalearth/10m/cultural/"

const (
	admin0Layer = "admin_0_countries"
	admin1Layer = "admin_1_states_provinces"
)

var (
	ErrInvalidCode = errors.New("boundary: invalid country code")
	ErrNotFound    = errors.New("boundary: no natural earth records for country")
)

// Downloader fetches a URL into a local file. request.Client implements it.
type Downloader interface {
	Download(ctx context.Context, u, dst string) (int64, error)
}

type record struct {
	attrs    map[string]string // upper-cased field name -> value
	geometry orb.Geometry
}

// Service reads the admin-0 and admin-1 shapefiles from dir, downloading
// them on first use when they are missing. Parsed layers are kept in memory.
type Service struct {
	dir     string
	baseURL string
	client  Downloader

	mu     sync.Mutex
	layers map[string][]record
}

// NewService creates a Service. client may be nil, in which case missing
// shapefiles are an error.
func NewService(dir string, client Downloader) *Service {
	return &Service{
		dir:     dir,
		baseURL: DefaultBaseURL,
		client:  client,
		layers:  make(map[string][]record),
	}
}

// SetBaseURL overrides the Natural Earth mirror.
func (s *Service) SetBaseURL(u string) {
	if u != "" && !strings.HasSuffix(u, "/") {
		u += "/"
	}
	s.baseURL = u
}

func checkCode(iso3 string) (string, error) {
	code := strings.TrimSpace(iso3)
	if code == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCode)
	}
	return code, nil
}

// CountryShape returns the outline of the country whose ADM0_A3 code is iso3.
func (s *Service) CountryShape(ctx context.Context, iso3 string) (orb.Geometry, error) {
	code, err := checkCode(iso3)
	if err != nil {
		return nil, err
	}
	recs, err := s.layer(ctx, admin0Layer)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if r.attrs["ADM0_A3"] == code {
			return r.geometry, nil
		}
	}
	return nil, fmt.Errorf("%w %s", ErrNotFound, code)
}

// Admin1Shapes returns the first-level subdivisions of a country keyed by
// their English name.
func (s *Service) Admin1Shapes(ctx context.Context, iso3 string) (map[string]orb.Geometry, error) {
	code, err := checkCode(iso3)
	if err != nil {
		return nil, err
	}
	recs, err := s.layer(ctx, admin1Layer)
	if err != nil {
		return nil, err
	}
	out := make(map[string]orb.Geometry)
	for _, r := range recs {
		if r.attrs["ADM0_A3"] == code {
			out[r.attrs["NAME_EN"]] = r.geometry
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNotFound, code)
	}
	return out, nil
}

func (s *Service) layer(ctx context.Context, name string) ([]record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if recs, ok := s.layers[name]; ok {
		return recs, nil
	}

	path := filepath.Join(s.dir, "ne_10m_"+name+".shp")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.fetch(ctx, name); err != nil {
			return nil, err
		}
	}

	recs, err := readShapefile(path)
	if err != nil {
		return nil, err
	}
	slog.Info("Boundary: loaded layer", "layer", name, "records", len(recs))
	s.layers[name] = recs
	return recs, nil
}

// fetch downloads and unpacks the zipped shapefile of a layer into dir.
func (s *Service) fetch(ctx context.Context, name string) error {
	if s.client == nil {
		return fmt.Errorf("boundary: %s missing in %s and downloads are disabled: %w", name, s.dir, os.ErrNotExist)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("boundary: failed to create data dir: %w", err)
	}

	archive := "ne_10m_" + name + ".zip"
	zipPath := filepath.Join(s.dir, archive)
	slog.Info("Boundary: downloading Natural Earth layer", "layer", name)
	if _, err := s.client.Download(ctx, s.baseURL+archive, zipPath); err != nil {
		return fmt.Errorf("boundary: failed to download %s: %w", archive, err)
	}
	defer os.Remove(zipPath)

	return unzip(zipPath, s.dir, "ne_10m_"+name+".")
}

// unzip extracts the members of zipPath whose base name starts with prefix
// into dir, flattening any directory structure.
func unzip(zipPath, dir, prefix string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("boundary: failed to open archive: %w", err)
	}
	defer zr.Close()

	extracted := 0
	for _, f := range zr.File {
		base := filepath.Base(f.Name)
		if f.FileInfo().IsDir() || !strings.HasPrefix(base, prefix) {
			continue
		}
		if err := extractFile(f, filepath.Join(dir, base)); err != nil {
			return err
		}
		extracted++
	}
	if extracted == 0 {
		return fmt.Errorf("boundary: archive %s holds no %s* members", filepath.Base(zipPath), prefix)
	}
	return nil
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("boundary: failed to read %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("boundary: failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("boundary: failed to extract %s: %w", f.Name, err)
	}
	return out.Close()
}

func readShapefile(path string) ([]record, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("boundary: failed to open shapefile: %w", err)
	}
	defer reader.Close()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToUpper(strings.TrimRight(f.String(), "\x00 "))
	}

	var recs []record
	for reader.Next() {
		n, p := reader.Shape()

		var g orb.Geometry
		switch v := p.(type) {
		case *shp.Polygon:
			g = convertPolygon(v)
		case *shp.Null:
			continue
		default:
			slog.Debug("Boundary: skipping unsupported shape type", "type", fmt.Sprintf("%T", p))
			continue
		}
		if g == nil {
			continue
		}

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			attrs[name] = strings.TrimSpace(strings.Trim(reader.ReadAttribute(n, i), "\x00"))
		}
		recs = append(recs, record{attrs: attrs, geometry: g})
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("boundary: error iterating shapes: %w", err)
	}
	return recs, nil
}

// convertPolygon groups shapefile rings into polygons. Outer rings are
// clockwise; counter-clockwise rings are holes of the outer ring that
// contains them.
func convertPolygon(s *shp.Polygon) orb.Geometry {
	var mp orb.MultiPolygon
	var holes []orb.Ring

	for i := 0; i < int(s.NumParts); i++ {
		start := s.Parts[i]
		end := s.NumPoints
		if i < int(s.NumParts)-1 {
			end = s.Parts[i+1]
		}

		ring := make(orb.Ring, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, orb.Point{s.Points[j].X, s.Points[j].Y})
		}
		if len(ring) < 4 {
			continue
		}
		if ring.Orientation() == orb.CCW {
			holes = append(holes, ring)
			continue
		}
		mp = append(mp, orb.Polygon{ring})
	}

	for _, h := range holes {
		placed := false
		for i := range mp {
			if planar.RingContains(mp[i][0], h[0]) {
				mp[i] = append(mp[i], h)
				placed = true
				break
			}
		}
		if !placed {
			// Orientation is not enforced by every writer; treat as an outer ring
			mp = append(mp, orb.Polygon{h})
		}
	}

	switch len(mp) {
	case 0:
		return nil
	case 1:
		return mp[0]
	}
	return mp
}
