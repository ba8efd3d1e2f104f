// Package pipeline runs one harvest: fetch, extract, parse, classify, bounds
// filter, enrich and write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/EmpoweredVote/geoharvest/internal/classify"
	"github.com/EmpoweredVote/geoharvest/internal/config"
	"github.com/EmpoweredVote/geoharvest/internal/enrich"
	"github.com/EmpoweredVote/geoharvest/internal/extract"
	"github.com/EmpoweredVote/geoharvest/internal/geometry"
	"github.com/EmpoweredVote/geoharvest/internal/logging"
	"github.com/EmpoweredVote/geoharvest/internal/metrics"
	"github.com/EmpoweredVote/geoharvest/internal/models"
	"github.com/EmpoweredVote/geoharvest/internal/sink"
	"github.com/EmpoweredVote/geoharvest/internal/xmlnode"
)

// ErrNoSink is returned by Run when writing is enabled but no sink was set.
var ErrNoSink = errors.New("pipeline has no sink; use WithSink or WithDryRun")

// Fetcher retrieves the raw search records for a date window.
// *sru.Client implements it.
type Fetcher interface {
	FetchRecords(ctx context.Context, start, end time.Time) ([]*xmlnode.Node, error)
}

// Window is the modification-date range of a run.
type Window struct {
	Start time.Time
	End   time.Time
}

// LayerNames maps geometry kinds to layer tables.
type LayerNames struct {
	Point   string
	Line    string
	Polygon string
}

// LayerCounts holds a row count per layer.
type LayerCounts struct {
	Points   int `json:"points"`
	Lines    int `json:"lines"`
	Polygons int `json:"polygons"`
}

func countsOf(l models.Layers) LayerCounts {
	return LayerCounts{Points: len(l.Points), Lines: len(l.Lines), Polygons: len(l.Polygons)}
}

// Summary reports what one run did.
type Summary struct {
	RunID         uuid.UUID    `json:"run_id"`
	WindowStart   string       `json:"window_start"`
	WindowEnd     string       `json:"window_end"`
	StartedAt     time.Time    `json:"started_at"`
	FinishedAt    time.Time    `json:"finished_at"`
	DryRun        bool         `json:"dry_run"`
	Records       int          `json:"records"`
	Rows          int          `json:"rows"`
	ParseFailures int          `json:"parse_failures"`
	Classified    LayerCounts  `json:"classified"`
	Within        LayerCounts  `json:"within_bounds"`
	Enrichment    enrich.Stats `json:"enrichment"`
	Written       LayerCounts  `json:"written"`
}

// Pipeline holds everything a run needs. Runs are sequential; do not call
// Run concurrently on one Pipeline.
type Pipeline struct {
	fetcher   Fetcher
	extractor *extract.Extractor
	lookup    enrich.Lookup
	sink      sink.Sink
	bounds    geometry.Region
	layers    LayerNames
	metrics   *metrics.Metrics
	dryRun    bool
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSink sets the store the layers are written to.
func WithSink(s sink.Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithDryRun runs every stage except the write.
func WithDryRun(dry bool) Option {
	return func(p *Pipeline) { p.dryRun = dry }
}

// WithMetrics records run counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline from a validated configuration.
func New(cfg *config.Config, fetcher Fetcher, lookup enrich.Lookup, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:   fetcher,
		extractor: extract.New(cfg.API.Endpoint),
		lookup:    lookup,
		bounds:    cfg.Bounds,
		layers: LayerNames{
			Point:   cfg.Database.LayerPoint,
			Line:    cfg.Database.LayerLine,
			Polygon: cfg.Database.LayerPolygon,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WindowFrom returns the window from start until now.
func (p *Pipeline) WindowFrom(start time.Time) Window {
	return Window{Start: start, End: p.now()}
}

// Run performs one harvest over w. Per-record, per-geometry and per-lookup
// problems are logged and absorbed; Run fails only when the run is cancelled
// or a layer cannot be written.
func (p *Pipeline) Run(ctx context.Context, w Window) (Summary, error) {
	defer logging.Track("pipeline")()

	s := Summary{
		RunID:       uuid.New(),
		WindowStart: w.Start.Format(config.DateLayout),
		WindowEnd:   w.End.Format(config.DateLayout),
		StartedAt:   p.now(),
		DryRun:      p.dryRun,
	}
	if !p.dryRun && p.sink == nil {
		return s, ErrNoSink
	}
	log.Printf("[pipeline] run %s started window=%s..%s dry_run=%t",
		s.RunID, s.WindowStart, s.WindowEnd, s.DryRun)

	records, err := p.fetcher.FetchRecords(ctx, w.Start, w.End)
	s.Records = len(records)
	if err != nil {
		return s, fmt.Errorf("fetch records: %w", err)
	}

	rows := p.extractor.ExtractAll(records)
	s.Rows = len(rows)
	p.metrics.AddRows(len(rows))

	s.ParseFailures = classify.ParseGeometries(rows, p.metrics)

	layers := classify.Classify(rows, p.metrics)
	s.Classified = countsOf(layers)

	if p.bounds.IsZero() {
		logging.LogWarn("pipeline", "no bounds region configured; no geometry can be contained")
	}
	layers = classify.WithinLayers(layers, p.bounds)
	s.Within = countsOf(layers)

	s.Enrichment = enrich.New(p.lookup, p.metrics).Enrich(ctx, layers.All()...)
	if err := ctx.Err(); err != nil {
		return s, err
	}

	if p.dryRun {
		log.Printf("[pipeline] dry run: skipping write of %d rows", layers.Len())
	} else {
		if err := p.write(ctx, layers); err != nil {
			return s, err
		}
		s.Written = s.Within
	}

	s.FinishedAt = p.now()
	p.metrics.MarkRunFinished(s.FinishedAt)
	log.Printf("[pipeline] run %s finished records=%d rows=%d points=%d lines=%d polygons=%d",
		s.RunID, s.Records, s.Rows, s.Within.Points, s.Within.Lines, s.Within.Polygons)
	return s, nil
}

func (p *Pipeline) write(ctx context.Context, l models.Layers) error {
	defer logging.Track("write_layers")()

	targets := []struct {
		name string
		rows []*models.GeoRow
	}{
		{p.layers.Point, l.Points},
		{p.layers.Line, l.Lines},
		{p.layers.Polygon, l.Polygons},
	}
	for _, t := range targets {
		if err := p.sink.Replace(ctx, t.name, t.rows); err != nil {
			return fmt.Errorf("write layer %s: %w", t.name, err)
		}
	}
	return nil
}
