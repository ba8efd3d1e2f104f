package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmpoweredVote/geoharvest/internal/config"
	"github.com/EmpoweredVote/geoharvest/internal/enrich"
	"github.com/EmpoweredVote/geoharvest/internal/geometry"
	"github.com/EmpoweredVote/geoharvest/internal/models"
	"github.com/EmpoweredVote/geoharvest/internal/pipeline"
	"github.com/EmpoweredVote/geoharvest/internal/retry"
	"github.com/EmpoweredVote/geoharvest/internal/sink"
	"github.com/EmpoweredVote/geoharvest/internal/sru"
	"github.com/EmpoweredVote/geoharvest/internal/sru/srutest"
)

const bounds = "POLYGON((150000 460000,160000 460000,160000 470000,150000 470000,150000 460000))"

// repository serves a two-page search (1000 + 400 records) and the metadata
// documents behind every marked record.
type repository struct {
	mu          sync.Mutex
	srv         *httptest.Server
	offsets     []int
	lookups     map[string]int
	metaFetches map[string]int
}

func newRepository(t *testing.T) *repository {
	t.Helper()
	r := &repository{lookups: map[string]int{}, metaFetches: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/sru", r.search)
	mux.HandleFunc("/meta/", r.metadata)
	r.srv = httptest.NewServer(mux)
	t.Cleanup(r.srv.Close)
	return r
}

func (r *repository) endpoint() string { return r.srv.URL + "/sru" }

func (r *repository) marked() []srutest.Record {
	return []srutest.Record{
		{
			Identifier: "gmb-in",
			HasVersion: "https://zoek.officielebekendmakingen.nl/gmb-in.html",
			Markings: []srutest.Marking{{
				Geometries: []string{"POINT(155000 463000)", "LINESTRING(151000 461000,152000 462000)"},
				Labels:     []string{"Centrum", "Kade"},
			}},
		},
		{
			Identifier: "gmb-out",
			Markings: []srutest.Marking{{
				Geometries: []string{"POINT(500000 900000)"},
				Labels:     []string{"Elders"},
			}},
		},
		{
			Identifier: "gmb-bad",
			Markings: []srutest.Marking{{
				Geometries: []string{"POLYGON((150500 460500,151500 461500,151500 460500,150500 461500,150500 460500))", "POINT("},
				Labels:     []string{"Zandloper", "Kapot"},
			}},
		},
	}
}

func (r *repository) search(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query().Get("query")
	if strings.HasPrefix(q, "(dt.identifier=") {
		id := strings.TrimSuffix(strings.TrimPrefix(q, "(dt.identifier="), ")")
		r.mu.Lock()
		r.lookups[id]++
		r.mu.Unlock()
		fmt.Fprint(w, srutest.SearchResponse(srutest.Record{
			Identifier:  id,
			MetadataURL: r.srv.URL + "/meta/" + id,
		}))
		return
	}

	start, _ := strconv.Atoi(req.URL.Query().Get("startRecord"))
	r.mu.Lock()
	r.offsets = append(r.offsets, start)
	r.mu.Unlock()

	switch start {
	case 1:
		recs := append(r.marked(), srutest.Numbered("p1", sru.PageSize-3)...)
		fmt.Fprint(w, srutest.SearchResponse(recs...))
	case 1 + sru.PageSize:
		fmt.Fprint(w, srutest.SearchResponse(srutest.Numbered("p2", 400)...))
	default:
		http.Error(w, "unexpected page", http.StatusBadRequest)
	}
}

func (r *repository) metadata(w http.ResponseWriter, req *http.Request) {
	id := strings.TrimPrefix(req.URL.Path, "/meta/")
	r.mu.Lock()
	r.metaFetches[id]++
	r.mu.Unlock()
	fmt.Fprint(w, srutest.MetadataDocument("REF-"+id))
}

func testConfig(t *testing.T, endpoint string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.API.Endpoint = endpoint
	cfg.API.GeometryBounds = bounds
	cfg.API.StartDatum = "2024-01-01"
	require.NoError(t, cfg.Validate())
	return &cfg
}

var fixedNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func newPipeline(t *testing.T, repo *repository, opts ...pipeline.Option) (*pipeline.Pipeline, *config.Config) {
	t.Helper()
	cfg := testConfig(t, repo.endpoint())
	client := sru.NewClient(cfg.API.Endpoint)
	resolver := enrich.NewResolver(client, retry.Default())
	opts = append([]pipeline.Option{pipeline.WithClock(func() time.Time { return fixedNow })}, opts...)
	return pipeline.New(cfg, client, resolver, opts...), cfg
}

func TestRun_EndToEnd(t *testing.T) {
	repo := newRepository(t)
	mem := sink.NewMemorySink()
	p, cfg := newPipeline(t, repo, pipeline.WithSink(mem))

	s, err := p.Run(context.Background(), p.WindowFrom(cfg.StartDate))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1001}, repo.offsets)
	assert.Equal(t, 1400, s.Records)
	assert.Equal(t, 5, s.Rows)
	assert.Equal(t, 1, s.ParseFailures)
	assert.Equal(t, pipeline.LayerCounts{Points: 2, Lines: 1, Polygons: 0}, s.Classified)
	assert.Equal(t, pipeline.LayerCounts{Points: 1, Lines: 1, Polygons: 0}, s.Within)
	assert.Equal(t, s.Within, s.Written)
	assert.Equal(t, "2024-01-01", s.WindowStart)
	assert.Equal(t, "2024-07-01", s.WindowEnd)
	assert.NotEqual(t, uuid.Nil, s.RunID)

	points, ok := mem.Layer(cfg.Database.LayerPoint)
	require.True(t, ok)
	require.Len(t, points, 1)
	pt := points[0]
	assert.Equal(t, "gmb-in", pt.Identifier())
	assert.Equal(t, "Centrum", models.Deref(pt.GeometrieLabel))
	assert.Equal(t, "https://zoek.officielebekendmakingen.nl/gmb-in.html", models.Deref(pt.Source))
	assert.Equal(t, repo.srv.URL+"/meta/gmb-in", models.Deref(pt.MetadataURL))
	assert.Equal(t, "REF-gmb-in", models.Deref(pt.Referentienummer))

	lines, ok := mem.Layer(cfg.Database.LayerLine)
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.Equal(t, "REF-gmb-in", models.Deref(lines[0].Referentienummer))

	polygons, ok := mem.Layer(cfg.Database.LayerPolygon)
	assert.True(t, ok, "empty layers are still replaced")
	assert.Empty(t, polygons)

	// Two rows share one source_xml; only rows inside the bounds are looked up.
	assert.Equal(t, map[string]int{"gmb-in": 1}, repo.lookups)
	assert.Equal(t, map[string]int{"gmb-in": 1}, repo.metaFetches)
	assert.Equal(t, enrich.Stats{Distinct: 1, Resolved: 1}, s.Enrichment)
}

func TestRun_DryRunSkipsWrite(t *testing.T) {
	repo := newRepository(t)
	mem := sink.NewMemorySink()
	p, cfg := newPipeline(t, repo, pipeline.WithSink(mem), pipeline.WithDryRun(true))

	s, err := p.Run(context.Background(), p.WindowFrom(cfg.StartDate))
	require.NoError(t, err)

	assert.True(t, s.DryRun)
	assert.Zero(t, mem.Writes())
	assert.Equal(t, pipeline.LayerCounts{}, s.Written)
	assert.Equal(t, 1, s.Within.Points)
}

func TestRun_WithoutSinkFails(t *testing.T) {
	repo := newRepository(t)
	p, cfg := newPipeline(t, repo)

	_, err := p.Run(context.Background(), p.WindowFrom(cfg.StartDate))
	require.ErrorIs(t, err, pipeline.ErrNoSink)
	assert.Empty(t, repo.offsets)
}

type failingSink struct{ err error }

func (f failingSink) Replace(context.Context, string, []*models.GeoRow) error { return f.err }

func TestRun_SinkErrorFailsRun(t *testing.T) {
	repo := newRepository(t)
	boom := errors.New("relation is locked")
	p, cfg := newPipeline(t, repo, pipeline.WithSink(failingSink{err: boom}))

	_, err := p.Run(context.Background(), p.WindowFrom(cfg.StartDate))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), cfg.Database.LayerPoint)
}

func TestRun_CancelledBeforeWrite(t *testing.T) {
	repo := newRepository(t)
	mem := sink.NewMemorySink()
	p, cfg := newPipeline(t, repo, pipeline.WithSink(mem))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, p.WindowFrom(cfg.StartDate))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, mem.Writes())
}

func TestRun_ZeroRegionKeepsNothing(t *testing.T) {
	repo := newRepository(t)
	mem := sink.NewMemorySink()
	cfg := testConfig(t, repo.endpoint())
	cfg.Bounds = geometry.Region{}

	client := sru.NewClient(cfg.API.Endpoint)
	p := pipeline.New(cfg, client, enrich.NewResolver(client, retry.Default()),
		pipeline.WithSink(mem), pipeline.WithClock(func() time.Time { return fixedNow }))

	s, err := p.Run(context.Background(), p.WindowFrom(cfg.StartDate))
	require.NoError(t, err)

	assert.Equal(t, pipeline.LayerCounts{Points: 2, Lines: 1}, s.Classified)
	assert.Equal(t, pipeline.LayerCounts{}, s.Within)
	for _, layer := range []string{cfg.Database.LayerPoint, cfg.Database.LayerLine, cfg.Database.LayerPolygon} {
		rows, ok := mem.Layer(layer)
		assert.True(t, ok, layer)
		assert.Empty(t, rows, layer)
	}
	assert.Empty(t, repo.lookups)
}
