package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/EmpoweredVote/geoharvest/internal/geometry"
)

// Common errors
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL or DB_HOST/DB_NAME/DB_USER must be set")
	ErrMissingBounds      = errors.New("GEOMETRY_BOUNDS is required")
	ErrInvalidStartDate   = errors.New("START_DATUM must be a date in YYYY-MM-DD form")
	ErrInvalidLayerName   = errors.New("layer names must be non-empty and distinct")
)

const (
	// DefaultEndpoint is the public SRU search endpoint of the repository.
	DefaultEndpoint = "https://repository.overheid.nl/sru"

	// DateLayout is the layout of START_DATUM and of the date window in queries.
	DateLayout = "2006-01-02"
)

// Database holds the spatial store settings.
type Database struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"database_name"`
	Schema   string `yaml:"schema"`

	LayerPoint   string `yaml:"layer_point"`
	LayerLine    string `yaml:"layer_line"`
	LayerPolygon string `yaml:"layer_polygon"`
}

// API holds the upstream repository settings.
type API struct {
	Endpoint       string        `yaml:"endpoint"`
	GeometryBounds string        `yaml:"geometry_bounds"`
	StartDatum     string        `yaml:"start_datum"`
	RateLimit      float64       `yaml:"rate_limit"`
	PageAttempts   int           `yaml:"page_attempts"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Config is built once at start-up and handed to every component that needs it.
type Config struct {
	Database Database `yaml:"database"`
	API      API      `yaml:"api"`
	Port     string   `yaml:"port"`

	// AdminToken guards the /admin routes when set.
	AdminToken  string   `yaml:"admin_token"`
	CORSOrigins []string `yaml:"cors_origins"`

	// Populated by Validate.
	Bounds    geometry.Region `yaml:"-"`
	StartDate time.Time       `yaml:"-"`
}

// Default returns a configuration with every optional value filled in.
func Default() Config {
	return Config{
		Database: Database{
			Port:         "5432",
			Schema:       "geo",
			LayerPoint:   "publicaties_punt",
			LayerLine:    "publicaties_lijn",
			LayerPolygon: "publicaties_vlak",
		},
		API: API{
			Endpoint:     DefaultEndpoint,
			RateLimit:    0,
			PageAttempts: 1,
			Timeout:      60 * time.Second,
		},
		Port: "5050",
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// GEOHARVEST_CONFIG (if any), then environment variables. The environment is
// first primed from .env.local when that file exists.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("GEOHARVEST_CONFIG")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from environment variables.
//
// Environment variables:
//   - DATABASE_URL, or DB_USER/DB_PASSWORD/DB_HOST/DB_PORT/DB_NAME
//   - DB_SCHEMA (default: geo)
//   - LAYER_POINT, LAYER_LINE, LAYER_POLYGON
//   - SRU_ENDPOINT (default: https://repository.overheid.nl/sru)
//   - GEOMETRY_BOUNDS: WKT polygon in EPSG:28992
//   - START_DATUM: YYYY-MM-DD
//   - SRU_RATE_LIMIT: requests per second, 0 = unlimited
//   - SRU_PAGE_ATTEMPTS: attempts per page on transport errors (default: 1)
//   - HTTP_TIMEOUT: Go duration, e.g. 60s
//   - PORT (default: 5050)
//   - ADMIN_TOKEN: bearer token for /admin routes
//   - CORS_ORIGINS: comma-separated allow-list
func (c *Config) applyEnv() error {
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Username, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.Schema, "DB_SCHEMA")
	setString(&c.Database.LayerPoint, "LAYER_POINT")
	setString(&c.Database.LayerLine, "LAYER_LINE")
	setString(&c.Database.LayerPolygon, "LAYER_POLYGON")

	setString(&c.API.Endpoint, "SRU_ENDPOINT")
	setString(&c.API.GeometryBounds, "GEOMETRY_BOUNDS")
	setString(&c.API.StartDatum, "START_DATUM")
	setString(&c.Port, "PORT")
	setString(&c.AdminToken, "ADMIN_TOKEN")
	if v := env("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = strings.Split(v, ",")
	}

	if v := env("SRU_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SRU_RATE_LIMIT: %w", err)
		}
		c.API.RateLimit = f
	}
	if v := env("SRU_PAGE_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SRU_PAGE_ATTEMPTS: %w", err)
		}
		c.API.PageAttempts = n
	}
	if v := env("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HTTP_TIMEOUT: %w", err)
		}
		c.API.Timeout = d
	}
	return nil
}

// Validate checks required values and parses the bounds region and start date.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.GeometryBounds) == "" {
		return ErrMissingBounds
	}
	region, err := geometry.NewRegion(c.API.GeometryBounds)
	if err != nil {
		return fmt.Errorf("GEOMETRY_BOUNDS: %w", err)
	}
	c.Bounds = region

	start, err := time.Parse(DateLayout, strings.TrimSpace(c.API.StartDatum))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidStartDate, c.API.StartDatum)
	}
	c.StartDate = start

	if _, err := url.ParseRequestURI(c.API.Endpoint); err != nil {
		return fmt.Errorf("SRU_ENDPOINT: %w", err)
	}
	if c.API.PageAttempts < 1 {
		c.API.PageAttempts = 1
	}

	layers := []string{c.Database.LayerPoint, c.Database.LayerLine, c.Database.LayerPolygon}
	seen := make(map[string]bool, len(layers))
	for _, l := range layers {
		if l == "" || seen[l] {
			return ErrInvalidLayerName
		}
		seen[l] = true
	}
	return nil
}

// DSN returns the database connection string, assembling it from its parts
// when DATABASE_URL was not given.
func (c *Config) DSN() (string, error) {
	d := c.Database
	if d.URL != "" {
		return d.URL, nil
	}
	if d.Host == "" || d.Name == "" || d.Username == "" {
		return "", ErrMissingDatabaseURL
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(d.Username, d.Password),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Name,
	}
	return u.String(), nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}
