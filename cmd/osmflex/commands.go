package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/paulmach/orb"

	"osmflex/pkg/geo"
	"osmflex/pkg/model"
	"osmflex/pkg/output"
	"osmflex/pkg/simplify"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

// --- download ---

func (a *app) cmdDownload(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: download needs country, region, planet or list", errUsage)
	}
	sub, rest := args[0], args[1:]

	fs := newFlagSet("download " + sub)
	dir := fs.String("dir", a.cfg.Paths.OSMDir, "Destination directory")
	format := fs.String("format", "pbf", "Country extract format: pbf or shp")
	dst := fs.String("out", filepath.Join(a.cfg.Paths.OSMDir, "planet-latest.osm.pbf"), "Planet destination file")
	overwrite := fs.Bool("overwrite", false, "Replace an existing file")
	if err := parseFlags(fs, rest); err != nil {
		return err
	}

	var path string
	var err error
	switch sub {
	case "country":
		if fs.NArg() != 1 {
			return fmt.Errorf("%w: download country <ISO3>", errUsage)
		}
		path, err = a.downloader.Country(ctx, fs.Arg(0), *format, *dir, *overwrite)
	case "region":
		if fs.NArg() != 1 {
			return fmt.Errorf("%w: download region <path>", errUsage)
		}
		path, err = a.downloader.Region(ctx, fs.Arg(0), *dir, *overwrite)
	case "planet":
		path, err = a.downloader.Planet(ctx, *dst, *overwrite)
	case "list":
		if fs.NArg() != 1 {
			return fmt.Errorf("%w: download list <region>", errUsage)
		}
		entries, err := a.downloader.ListRegion(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(a.out, "%s\t%s\n", e.Name, e.URL)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown download target %q", errUsage, sub)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, path)
	return nil
}

// --- clip ---

func (a *app) cmdClip(ctx context.Context, args []string) error {
	fs := newFlagSet("clip")
	src := fs.String("src", "", "Source .osm.pbf")
	dst := fs.String("dst", "", "Destination .osm.pbf")
	bbox := fs.String("bbox", "", "Bounding box xmin,ymin,xmax,ymax")
	poly := fs.String("poly", "", "Osmosis .poly filter file")
	country := fs.String("country", "", "Clip to the Natural Earth outline of this ISO3 country")
	admin1 := fs.String("admin1", "", "With -country, clip to this first-level subdivision")
	engine := fs.String("engine", a.cfg.Clip.Engine, "osmosis or osmconvert")
	overwrite := fs.Bool("overwrite", false, "Replace an existing destination")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *src == "" || *dst == "" {
		return fmt.Errorf("%w: clip needs -src and -dst", errUsage)
	}

	set := 0
	for _, v := range []string{*bbox, *poly, *country} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: clip needs exactly one of -bbox, -poly, -country", errUsage)
	}

	eng := engineOf(*engine)
	switch {
	case *bbox != "":
		b, err := parseBBox(*bbox)
		if err != nil {
			return err
		}
		return a.clipper.ClipFromBBox(ctx, b, *src, *dst, *overwrite, eng)
	case *poly != "":
		return a.clipper.ClipFromPoly(ctx, *poly, *src, *dst, *overwrite, eng)
	}

	shapes, err := a.countryShapes(ctx, *country, *admin1)
	if err != nil {
		return err
	}
	return a.clipper.ClipFromShapes(ctx, shapes, *src, *dst, *overwrite, eng)
}

func (a *app) countryShapes(ctx context.Context, iso3, admin1 string) ([]orb.Geometry, error) {
	if admin1 == "" {
		g, err := a.boundaries.CountryShape(ctx, iso3)
		if err != nil {
			return nil, err
		}
		return []orb.Geometry{g}, nil
	}
	regions, err := a.boundaries.Admin1Shapes(ctx, iso3)
	if err != nil {
		return nil, err
	}
	for name, g := range regions {
		if strings.EqualFold(name, admin1) {
			return []orb.Geometry{g}, nil
		}
	}
	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("no subdivision %q in %s (have: %s)", admin1, iso3, strings.Join(names, ", "))
}

// parseBBox parses "xmin,ymin,xmax,ymax".
func parseBBox(s string) ([4]float64, error) {
	var b [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return b, fmt.Errorf("%w: bbox needs 4 comma separated values, got %q", errUsage, s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return b, fmt.Errorf("%w: bbox value %q: %v", errUsage, p, err)
		}
		b[i] = v
	}
	if b[0] > b[2] || b[1] > b[3] {
		return b, fmt.Errorf("%w: bbox min exceeds max in %q", errUsage, s)
	}
	return b, nil
}

// --- boundary ---

func (a *app) cmdBoundary(ctx context.Context, args []string) error {
	fs := newFlagSet("boundary")
	country := fs.String("country", "", "ISO3 country code")
	admin1 := fs.Bool("admin1", false, "Export first-level subdivisions instead of the outline")
	out := fs.String("out", "-", "Output .geojson or .csv, - for GeoJSON on stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *country == "" {
		return fmt.Errorf("%w: boundary needs -country", errUsage)
	}

	c := model.NewCollection([]string{"country", "name"})
	if !*admin1 {
		g, err := a.boundaries.CountryShape(ctx, *country)
		if err != nil {
			return err
		}
		c.Append(model.Feature{ID: 1, Attributes: map[string]any{"country": *country, "name": nil}, Geometry: g})
		return a.write(c, *out)
	}

	regions, err := a.boundaries.Admin1Shapes(ctx, *country)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		c.Append(model.Feature{
			ID:         int64(i + 1),
			Attributes: map[string]any{"country": *country, "name": name},
			Geometry:   regions[name],
		})
	}
	return a.write(c, *out)
}

// --- extract & simplify ---

type filterFlags struct {
	minArea *float64
	points  *bool
	polys   *bool
	dedupe  *bool
	h3Res   *int
}

func addFilterFlags(fs *flag.FlagSet) *filterFlags {
	return &filterFlags{
		minArea: fs.Float64("min-area", 0, "Drop polygons smaller than this (square degrees), repairing invalid ones"),
		points:  fs.Bool("drop-contained-points", false, "Drop points inside polygons"),
		polys:   fs.Bool("drop-contained-polys", false, "Drop polygons covered by other polygons"),
		dedupe:  fs.Bool("dedupe", false, "Drop exact geometric duplicates"),
		h3Res:   fs.Int("h3", -1, "Add an h3 column with the cell of each feature's centroid at this resolution"),
	}
}

// apply runs the selected filters in a fixed order: duplicates, small
// polygons, contained polygons, contained points. The h3 column is added last.
func (f *filterFlags) apply(c *model.Collection) (*model.Collection, error) {
	in := c.Len()
	if *f.dedupe {
		c = simplify.RemoveExactDuplicates(c)
	}
	if *f.minArea > 0 {
		c = simplify.RemoveSmallPolygons(c, *f.minArea)
	}
	if *f.polys {
		c = simplify.RemoveContainedPolys(c)
	}
	if *f.points {
		c = simplify.RemoveContainedPoints(c)
	}
	if c.Len() != in {
		slog.Info("Simplify: filters applied", "in", in, "out", c.Len())
	}
	if *f.h3Res >= 0 {
		return withCells(c, *f.h3Res)
	}
	return c, nil
}

// withCells returns a copy of c with an h3 column. Rows without a usable
// geometry get nil.
func withCells(c *model.Collection, res int) (*model.Collection, error) {
	columns := c.Columns
	if !slices.Contains(columns, "h3") {
		columns = append(slices.Clone(columns), "h3")
	}
	out := model.NewCollection(columns)
	out.CRS = c.CRS
	for _, f := range c.Features {
		row := f.Clone()
		row.Attributes["h3"] = nil
		if !geo.IsEmpty(f.Geometry) {
			cell, err := geo.CellOf(f.Geometry, res)
			if err != nil {
				return nil, err
			}
			row.Attributes["h3"] = cell
		}
		out.Append(row)
	}
	return out, nil
}

func (a *app) cmdExtract(ctx context.Context, args []string) error {
	fs := newFlagSet("extract")
	src := fs.String("src", "", "Source .osm.pbf or .osm file")
	cat := fs.String("category", "", "Infrastructure category (e.g. healthcare, power)")
	layer := fs.String("layer", string(model.LayerPoints), "Layer for attribute queries: points, lines, multipolygons")
	keys := fs.String("keys", "", "Comma separated attribute keys")
	where := fs.String("where", "", "WHERE predicate; defaults to <first key> IS NOT NULL")
	backend := fs.String("backend", "", "ogr or native; defaults to the configured backend")
	out := fs.String("out", "-", "Output .geojson or .csv, - for GeoJSON on stdout")
	filters := addFilterFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *src == "" {
		return fmt.Errorf("%w: extract needs -src", errUsage)
	}
	if (*cat == "") == (*keys == "") {
		return fmt.Errorf("%w: extract needs exactly one of -category, -keys", errUsage)
	}

	ex, err := a.extractor(*backend)
	if err != nil {
		return err
	}

	var c *model.Collection
	if *cat != "" {
		c, err = ex.ExtractByCategory(ctx, *src, *cat)
	} else {
		c, err = ex.Extract(ctx, *src, model.Layer(*layer), splitKeys(*keys), *where)
	}
	if err != nil {
		return err
	}
	if c, err = filters.apply(c); err != nil {
		return err
	}
	return a.write(c, *out)
}

func (a *app) cmdSimplify(args []string) error {
	fs := newFlagSet("simplify")
	in := fs.String("in", "", "Input .geojson collection")
	out := fs.String("out", "-", "Output .geojson or .csv, - for GeoJSON on stdout")
	filters := addFilterFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("%w: simplify needs -in", errUsage)
	}
	if *filters.minArea == 0 {
		*filters.minArea = a.cfg.Simplify.MinArea
	}

	c, err := output.ReadFile(*in)
	if err != nil {
		return err
	}
	if c, err = filters.apply(c); err != nil {
		return err
	}
	return a.write(c, *out)
}

func (a *app) write(c *model.Collection, path string) error {
	if path == "-" {
		return output.WriteGeoJSON(a.out, c)
	}
	if err := output.WriteFile(path, c); err != nil {
		return err
	}
	slog.Info("Wrote collection", "path", path, "features", c.Len())
	return nil
}

// splitKeys splits a comma separated key list, dropping blanks.
func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// --- catalog ---

func (a *app) cmdCatalog(ctx context.Context, args []string) error {
	fs := newFlagSet("catalog")
	kind := fs.String("kind", "", "Only list this kind: download, clip, poly, imported")
	prune := fs.Bool("prune", false, "Reconcile the catalog with the data dir and prune the HTTP cache")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *prune {
		if err := a.runMaintenance(ctx); err != nil {
			return err
		}
	}

	list, err := a.store.ListArtifacts(ctx, model.ArtifactKind(*kind))
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tREGION\tBYTES\tCREATED\tPATH")
	for _, art := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", art.Kind, art.Region, art.Bytes, art.CreatedAt.Format("2006-01-02 15:04"), art.Path)
	}
	return tw.Flush()
}
