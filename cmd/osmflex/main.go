package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"osmflex/pkg/boundary"
	"osmflex/pkg/cache"
	"osmflex/pkg/clip"
	"osmflex/pkg/config"
	"osmflex/pkg/db"
	"osmflex/pkg/db/maintenance"
	"osmflex/pkg/download"
	"osmflex/pkg/extract"
	"osmflex/pkg/extract/native"
	"osmflex/pkg/extract/ogr"
	"osmflex/pkg/logging"
	"osmflex/pkg/model"
	"osmflex/pkg/request"
	"osmflex/pkg/runner"
	"osmflex/pkg/store"
	"osmflex/pkg/tracker"
	"osmflex/pkg/version"
)

const defaultConfigPath = "configs/osmflex.yaml"

const usage = `Usage: osmflex [global flags] <command> [flags] [args]

Commands:
  download country <ISO3>     Download a Geofabrik country extract
  download region <path>      Download a Geofabrik region (e.g. europe/germany)
  download planet             Download the full planet file
  download list <region>      List the extracts of a Geofabrik region
  clip                        Clip an .osm.pbf by bbox, poly file or country shape
  extract                     Extract features by category or attribute query
  simplify                    Apply geometry filters to a GeoJSON collection
  boundary                    Export Natural Earth country or subdivision shapes
  catalog                     List recorded artifacts, or reconcile with -prune
  init-config                 Write a default config file and exit
  version                     Print the version

Global flags:
`

var errUsage = errors.New("invalid usage")

func main() {
	global := flag.NewFlagSet("osmflex", flag.ContinueOnError)
	configPath := global.String("config", defaultConfigPath, "Path to the YAML config file")
	metricsPath := global.String("metrics", "", "Write Prometheus metrics to this file on exit")
	trace := global.Bool("trace", false, "Enable per-feature trace logging")
	global.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		global.PrintDefaults()
	}
	if err := global.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	args := global.Args()
	if len(args) == 0 {
		global.Usage()
		os.Exit(2)
	}

	switch args[0] {
	case "version":
		fmt.Println("osmflex", version.String())
		return
	case "init-config":
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.EnableTrace = *trace
	err := run(ctx, *configPath, *metricsPath, args, os.Stdout)
	if errors.Is(err, errUsage) {
		global.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "osmflex: %v\n", err)
		os.Exit(1)
	}
}

// app holds the services shared by all commands.
type app struct {
	cfg        *config.Config
	out        io.Writer
	db         *db.DB
	store      store.Store
	tracker    *tracker.Tracker
	client     *request.Client
	downloader *download.Downloader
	boundaries *boundary.Service
	clipper    *clip.Clipper
}

func run(ctx context.Context, configPath, metricsPath string, args []string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Debug("osmflex started", "version", version.Version, "command", args[0])

	if err := cfg.Setup(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	a, err := newApp(cfg, reg, out)
	if err != nil {
		return err
	}
	defer a.db.Close()

	err = a.dispatch(ctx, args)

	if metricsPath == "" {
		metricsPath = cfg.Metrics.Textfile
	}
	if metricsPath != "" {
		if werr := tracker.WriteTextfile(reg, metricsPath); werr != nil {
			slog.Error("Failed to write metrics", "path", metricsPath, "error", werr)
		}
	}
	return err
}

func newApp(cfg *config.Config, reg prometheus.Registerer, out io.Writer) (*app, error) {
	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	st := store.NewSQLiteStore(dbConn)
	tr := tracker.New(reg)

	client := request.New(cache.NewTiered(st, cache.DefaultSize), tr)
	client.SetRetryPolicy(cfg.Request.Retries, time.Duration(cfg.Request.Backoff.BaseDelay))
	if logging.RequestLogger != nil {
		client.SetRequestLogger(logging.RequestLogger)
	}

	dl := download.New(client, tr, st)
	dl.SetMirrors(cfg.Download.GeofabrikURL, cfg.Download.PlanetURL)

	bs := boundary.NewService(cfg.Paths.BoundaryDir, client)
	bs.SetBaseURL(cfg.Download.NaturalEarthURL)

	cl := clip.New(clip.Options{
		Osmosis:    cfg.Tools.Osmosis,
		Osmconvert: cfg.Tools.Osmconvert,
		PolyDir:    cfg.Paths.PolyDir,
	}, runner.Exec{}, tr, st)

	return &app{
		cfg:        cfg,
		out:        out,
		db:         dbConn,
		store:      st,
		tracker:    tr,
		client:     client,
		downloader: dl,
		boundaries: bs,
		clipper:    cl,
	}, nil
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "download":
		return a.cmdDownload(ctx, rest)
	case "clip":
		return a.cmdClip(ctx, rest)
	case "extract":
		return a.cmdExtract(ctx, rest)
	case "simplify":
		return a.cmdSimplify(rest)
	case "catalog":
		return a.cmdCatalog(ctx, rest)
	case "boundary":
		return a.cmdBoundary(ctx, rest)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

// extractor builds an Extractor for the named backend, falling back to the
// configured one.
func (a *app) extractor(backend string) (*extract.Extractor, error) {
	if backend == "" {
		backend = a.cfg.Extract.Backend
	}
	switch backend {
	case "ogr":
		return extract.New(ogr.New(a.cfg.Tools.Ogr2ogr, a.cfg.Tools.OSMConfigFile, runner.Exec{}), a.tracker), nil
	case "native":
		return extract.New(native.New(runtime.GOMAXPROCS(0)), a.tracker), nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", errUsage, backend)
}

func (a *app) runMaintenance(ctx context.Context) error {
	return maintenance.Run(ctx, a.store, a.db, a.cfg.Paths.DataDir, time.Duration(a.cfg.Cache.MaxAge))
}

func engineOf(name string) model.Engine {
	return model.Engine(name)
}
