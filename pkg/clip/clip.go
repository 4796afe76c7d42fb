// Package clip cuts regions out of large .osm.pbf files with osmosis or
// osmconvert.
package clip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"osmflex/pkg/model"
	"osmflex/pkg/runner"
	"osmflex/pkg/store"
	"osmflex/pkg/tracker"
)

var (
	ErrSourceNotFound    = errors.New("clip: source file not found")
	ErrDestinationExists = errors.New("clip: destination already exists")
	ErrUnknownEngine     = errors.New("clip: unknown engine")
	ErrInvalidShape      = errors.New("clip: invalid shape")
	ErrToolFailed        = errors.New("clip: tool failed")
)

// ToolError reports a clipping tool that exited with a nonzero code.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("clip: %s exited with code %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("clip: %s exited with code %d: %s", e.Tool, e.ExitCode, e.Stderr)
}

func (e *ToolError) Is(target error) bool { return target == ErrToolFailed }

// Options configures the tool binaries and the scratch directory for
// temporary .poly files.
type Options struct {
	Osmosis    string
	Osmconvert string
	PolyDir    string
}

// Clipper runs clip jobs.
type Clipper struct {
	opts    Options
	runner  runner.Runner
	tracker *tracker.Tracker
	catalog store.ArtifactStore
}

// New creates a Clipper. catalog may be nil, in which case finished clips
// are not recorded.
func New(opts Options, r runner.Runner, tr *tracker.Tracker, catalog store.ArtifactStore) *Clipper {
	if opts.Osmosis == "" {
		opts.Osmosis = "osmosis"
	}
	if opts.Osmconvert == "" {
		opts.Osmconvert = "osmconvert"
	}
	if opts.PolyDir == "" {
		opts.PolyDir = os.TempDir()
	}
	return &Clipper{opts: opts, runner: r, tracker: tr, catalog: catalog}
}

func checkShape(shape model.ClipShape) error {
	if shape.BBox == nil && shape.PolyFile == "" {
		return fmt.Errorf("%w: neither bounding box nor poly file given", ErrInvalidShape)
	}
	return nil
}

// BuildOsmosisArgs returns the osmosis argv for clipping shape out of src.
func (c *Clipper) BuildOsmosisArgs(shape model.ClipShape, src, dst string) ([]string, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	args := []string{c.opts.Osmosis, "--read-pbf", "file=" + src}
	if shape.PolyFile != "" {
		args = append(args, "--bounding-polygon", "file="+shape.PolyFile)
	} else {
		b := shape.BBox
		args = append(args, "--bounding-box",
			"top="+polyNumber(b[3]),
			"left="+polyNumber(b[0]),
			"bottom="+polyNumber(b[1]),
			"right="+polyNumber(b[2]))
	}
	return append(args, "--write-pbf", "file="+dst), nil
}

// BuildOsmconvertArgs returns the osmconvert argv for clipping shape out of src.
func (c *Clipper) BuildOsmconvertArgs(shape model.ClipShape, src, dst string) ([]string, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	args := []string{c.opts.Osmconvert, src}
	if shape.PolyFile != "" {
		args = append(args, "-B="+shape.PolyFile)
	} else {
		b := shape.BBox
		args = append(args, "-b="+polyNumber(b[0])+","+polyNumber(b[1])+","+polyNumber(b[2])+","+polyNumber(b[3]))
	}
	return append(args, "-o="+dst), nil
}

// resolveSource appends .osm.pbf to a suffix-less source and checks that it
// is a regular file.
func resolveSource(src string) (string, error) {
	if filepath.Ext(src) == "" {
		src += ".osm.pbf"
	}
	info, err := os.Stat(src)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrSourceNotFound, src)
	}
	return src, nil
}

// Clip runs one clip job described by spec.
func (c *Clipper) Clip(ctx context.Context, spec model.ClipSpec) error {
	err := c.clip(ctx, spec)
	if err != nil {
		c.tracker.TrackFailure("clip")
		return err
	}
	c.tracker.TrackSuccess("clip")
	return nil
}

func (c *Clipper) clip(ctx context.Context, spec model.ClipSpec) error {
	engine := spec.Engine
	if engine == "" {
		engine = model.EngineOsmosis
	}
	if engine != model.EngineOsmosis && engine != model.EngineOsmconvert {
		return fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}

	src, err := resolveSource(spec.Source)
	if err != nil {
		return err
	}
	if info, err := os.Stat(spec.Destination); err == nil && info.Mode().IsRegular() && !spec.Overwrite {
		return fmt.Errorf("%w: %s", ErrDestinationExists, spec.Destination)
	}

	var argv []string
	if engine == model.EngineOsmosis {
		argv, err = c.BuildOsmosisArgs(spec.Shape, src, spec.Destination)
	} else {
		argv, err = c.BuildOsmconvertArgs(spec.Shape, src, spec.Destination)
	}
	if err != nil {
		return err
	}

	if dir := filepath.Dir(spec.Destination); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("clip: failed to create destination dir: %w", err)
		}
	}

	slog.Info("Clip: extracting from larger file, this will take a while", "engine", engine, "source", src, "destination", spec.Destination)
	res, err := c.runner.Run(ctx, argv, nil)
	if err != nil {
		return fmt.Errorf("clip: %w", err)
	}
	if res.ExitCode != 0 {
		slog.Error("Clip: tool failed", "tool", argv[0], "code", res.ExitCode, "stderr", res.Stderr)
		return &ToolError{Tool: argv[0], ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	slog.Info("Clip: done", "destination", spec.Destination, "duration", res.Duration)

	c.record(ctx, src, spec.Destination)
	return nil
}

// record adds the finished extract to the catalog. Failures are logged only.
func (c *Clipper) record(ctx context.Context, src, dst string) {
	var size int64
	if info, err := os.Stat(dst); err == nil {
		size = info.Size()
		c.tracker.TrackBytes("clip", size)
	}
	if c.catalog == nil {
		return
	}
	abs, err := filepath.Abs(dst)
	if err != nil {
		abs = dst
	}
	a := &model.Artifact{Kind: model.ArtifactClip, Path: abs, Source: src, Bytes: size}
	if err := c.catalog.SaveArtifact(ctx, a); err != nil {
		slog.Warn("Clip: failed to record artifact", "path", abs, "error", err)
	}
}

// ClipFromBBox cuts bbox (xmin, ymin, xmax, ymax) out of src.
func (c *Clipper) ClipFromBBox(ctx context.Context, bbox [4]float64, src, dst string, overwrite bool, engine model.Engine) error {
	return c.Clip(ctx, model.ClipSpec{
		Shape:       model.BBoxShape(bbox[0], bbox[1], bbox[2], bbox[3]),
		Source:      src,
		Destination: dst,
		Overwrite:   overwrite,
		Engine:      engine,
	})
}

// ClipFromPoly cuts the area described by a .poly file out of src.
func (c *Clipper) ClipFromPoly(ctx context.Context, polyFile, src, dst string, overwrite bool, engine model.Engine) error {
	return c.Clip(ctx, model.ClipSpec{
		Shape:       model.PolyShape(polyFile),
		Source:      src,
		Destination: dst,
		Overwrite:   overwrite,
		Engine:      engine,
	})
}

// ClipFromShapes simplifies shapes, writes them to a temporary .poly file
// and clips with it. The temporary file is removed afterwards.
func (c *Clipper) ClipFromShapes(ctx context.Context, shapes []orb.Geometry, src, dst string, overwrite bool, engine model.Engine) error {
	simplified := simplifyShapes(shapes)
	if len(simplified) == 0 {
		c.tracker.TrackFailure("clip")
		return fmt.Errorf("%w: no shape left after simplification", ErrInvalidShape)
	}

	if err := os.MkdirAll(c.opts.PolyDir, 0o755); err != nil {
		return fmt.Errorf("clip: failed to create poly dir: %w", err)
	}
	polyFile, err := WritePoly(simplified, filepath.Join(c.opts.PolyDir, "shapes-"+uuid.NewString()+".poly"))
	if err != nil {
		c.tracker.TrackFailure("clip")
		return err
	}
	defer func() {
		if err := os.Remove(polyFile); err != nil {
			slog.Warn("Clip: failed to remove temporary poly file", "path", polyFile, "error", err)
		}
	}()

	return c.ClipFromPoly(ctx, polyFile, src, dst, overwrite, engine)
}
