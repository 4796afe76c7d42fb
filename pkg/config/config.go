package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Tools    ToolsConfig    `yaml:"tools"`
	Extract  ExtractConfig  `yaml:"extract"`
	Clip     ClipConfig     `yaml:"clip"`
	Simplify SimplifyConfig `yaml:"simplify"`
	Download DownloadConfig `yaml:"download"`
	Request  RequestConfig  `yaml:"request"`
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Cache    CacheConfig    `yaml:"cache"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// PathsConfig holds the data directory layout. Empty sub-directories are
// derived from DataDir by Setup.
type PathsConfig struct {
	DataDir     string `yaml:"data_dir"`
	OSMDir      string `yaml:"osm_dir"`      // raw .osm.pbf dumps
	PolyDir     string `yaml:"poly_dir"`     // .poly files
	ExtractDir  string `yaml:"extract_dir"`  // extraction results
	BoundaryDir string `yaml:"boundary_dir"` // Natural Earth shapefiles
}

// ToolsConfig holds the external binaries.
type ToolsConfig struct {
	Ogr2ogr       string `yaml:"ogr2ogr"`
	OSMConfigFile string `yaml:"osm_config_file"` // GDAL osmconf.ini, optional
	Osmosis       string `yaml:"osmosis"`
	Osmconvert    string `yaml:"osmconvert"`
}

// ExtractConfig holds query backend settings.
type ExtractConfig struct {
	Backend string `yaml:"backend"` // "ogr", "native"
}

// ClipConfig holds clipping settings.
type ClipConfig struct {
	Engine string `yaml:"engine"` // "osmosis", "osmconvert"
}

// SimplifyConfig holds defaults for the geometry filters.
type SimplifyConfig struct {
	MinArea float64 `yaml:"min_area"` // square degrees
}

// DownloadConfig holds download mirrors.
type DownloadConfig struct {
	GeofabrikURL    string `yaml:"geofabrik_url"`
	PlanetURL       string `yaml:"planet_url"`
	NaturalEarthURL string `yaml:"natural_earth_url"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Main     LogSettings `yaml:"main"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds the settings of one log file.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds catalog database settings.
type DBConfig struct {
	Path string `yaml:"path"` // defaults to <data_dir>/catalog.db
}

// CacheConfig holds HTTP response cache settings.
type CacheConfig struct {
	MaxAge Duration `yaml:"max_age"`
}

// MetricsConfig holds metric export settings.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // Prometheus text file, empty disables
}

// Environment overrides, applied after the config file and .env are read.
const (
	EnvDataDir    = "OSMFLEX_DATA_DIR"
	EnvOgr2ogr    = "OSMFLEX_OGR2OGR"
	EnvOSMConfig  = "OSMFLEX_OSM_CONFIG_FILE"
	EnvOsmosis    = "OSMFLEX_OSMOSIS"
	EnvOsmconvert = "OSMFLEX_OSMCONVERT"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir: "./osm",
		},
		Tools: ToolsConfig{
			Ogr2ogr:    "ogr2ogr",
			Osmosis:    "osmosis",
			Osmconvert: "osmconvert",
		},
		Extract: ExtractConfig{
			Backend: "ogr",
		},
		Clip: ClipConfig{
			Engine: "osmosis",
		},
		Simplify: SimplifyConfig{
			MinArea: 1e-8,
		},
		Download: DownloadConfig{
			GeofabrikURL:    "https://download.geofabrik.de/",
			PlanetURL:       "https://planet.openstreetmap.org/pbf/planet-latest.osm.pbf",
			NaturalEarthURL: "https://naciscdn.org/naturalearth/10m/cultural/",
		},
		Request: RequestConfig{
			Retries: 3,
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
			},
		},
		Log: LogConfig{
			Main: LogSettings{
				Path:  "./logs/osmflex.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		Cache: CacheConfig{
			MaxAge: Duration(30 * Day),
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT
// save back to disk, to preserve user formatting and comments.
// A .env file next to the config (or in the working directory) is loaded
// before environment overrides are applied; variables already set win.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(dir string) error {
	for _, p := range []string{filepath.Join(dir, ".env"), ".env"} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// applyEnv overrides settings from the environment. Overrides are not saved.
func (c *Config) applyEnv() {
	for env, field := range map[string]*string{
		EnvDataDir:    &c.Paths.DataDir,
		EnvOgr2ogr:    &c.Tools.Ogr2ogr,
		EnvOSMConfig:  &c.Tools.OSMConfigFile,
		EnvOsmosis:    &c.Tools.Osmosis,
		EnvOsmconvert: &c.Tools.Osmconvert,
	} {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
}

var windowsEnvRe = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)

// expandEnv expands $VAR, ${VAR} and %VAR% references.
func expandEnv(s string) string {
	s = windowsEnvRe.ReplaceAllString(s, "$${$1}")
	return os.ExpandEnv(s)
}

func (c *Config) expandPaths() {
	for _, p := range []*string{
		&c.Paths.DataDir, &c.Paths.OSMDir, &c.Paths.PolyDir, &c.Paths.ExtractDir, &c.Paths.BoundaryDir,
		&c.Tools.Ogr2ogr, &c.Tools.OSMConfigFile, &c.Tools.Osmosis, &c.Tools.Osmconvert,
		&c.Log.Main.Path, &c.Log.Requests.Path, &c.DB.Path, &c.Metrics.Textfile,
	} {
		*p = expandEnv(*p)
	}

	data := c.Paths.DataDir
	if c.Paths.OSMDir == "" {
		c.Paths.OSMDir = filepath.Join(data, "osm_bpf")
	}
	if c.Paths.PolyDir == "" {
		c.Paths.PolyDir = filepath.Join(data, "poly")
	}
	if c.Paths.ExtractDir == "" {
		c.Paths.ExtractDir = filepath.Join(data, "extracts")
	}
	if c.Paths.BoundaryDir == "" {
		c.Paths.BoundaryDir = filepath.Join(data, "naturalearth")
	}
	if c.DB.Path == "" {
		c.DB.Path = filepath.Join(data, "catalog.db")
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Extract.Backend {
	case "ogr", "native":
	default:
		errs = append(errs, fmt.Errorf("invalid extract.backend %q: must be ogr or native", c.Extract.Backend))
	}
	switch c.Clip.Engine {
	case "osmosis", "osmconvert":
	default:
		errs = append(errs, fmt.Errorf("invalid clip.engine %q: must be osmosis or osmconvert", c.Clip.Engine))
	}
	if c.Simplify.MinArea < 0 {
		errs = append(errs, fmt.Errorf("invalid simplify.min_area %v: must not be negative", c.Simplify.MinArea))
	}
	if c.Paths.DataDir == "" {
		errs = append(errs, errors.New("paths.data_dir must not be empty"))
	}
	return errors.Join(errs...)
}

// Setup creates the data directories.
func (c *Config) Setup() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.OSMDir, c.Paths.PolyDir, c.Paths.ExtractDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# osmflex configuration
# ---------------------
# Supported Units:
#   Duration: ns, us, ms, s, m, h, d (day), w (week)
# Paths may reference environment variables as $VAR or %VAR%.
# Environment overrides: ` + strings.Join([]string{EnvDataDir, EnvOgr2ogr, EnvOSMConfig, EnvOsmosis, EnvOsmconvert}, ", ") + `

`)
	data = append(header, data...)

	reBackend := regexp.MustCompile(`(?m)^(\s+)backend:`)
	data = reBackend.ReplaceAll(data, []byte("${1}# Options: ogr, native\n${1}backend:"))

	reEngine := regexp.MustCompile(`(?m)^(\s+)engine:`)
	data = reEngine.ReplaceAll(data, []byte("${1}# Options: osmosis, osmconvert\n${1}engine:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
