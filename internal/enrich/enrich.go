// Package enrich attaches metadata_url and referentienummer to rows by
// following each distinct source_xml through two repository lookups.
package enrich

import (
	"context"
	"log"
	"sort"

	"github.com/EmpoweredVote/geoharvest/internal/logging"
	"github.com/EmpoweredVote/geoharvest/internal/metrics"
	"github.com/EmpoweredVote/geoharvest/internal/models"
	"github.com/EmpoweredVote/geoharvest/internal/retry"
)

// Lookup resolves the two hops of a reference. *Resolver implements it.
type Lookup interface {
	MetadataURL(ctx context.Context, sourceXML string) retry.Result[string]
	ReferenceNumber(ctx context.Context, metadataURL string) retry.Result[string]
}

// Stats summarises one enrichment pass.
type Stats struct {
	Distinct int `json:"distinct"`
	Resolved int `json:"resolved"`
	NotFound int `json:"not_found"`
	Failed   int `json:"failed"`
}

// Enricher resolves references one at a time and remembers every answer, so
// each distinct source_xml is looked up at most once per Enricher.
type Enricher struct {
	lookup  Lookup
	cache   map[string]models.Reference
	metrics *metrics.Metrics
}

// New creates an Enricher with an empty cache. Use one Enricher per run.
func New(lookup Lookup, m *metrics.Metrics) *Enricher {
	return &Enricher{
		lookup:  lookup,
		cache:   make(map[string]models.Reference),
		metrics: m,
	}
}

// DistinctSources returns the set of non-empty source_xml values across all
// collections, sorted for a stable lookup order.
func DistinctSources(collections ...[]*models.GeoRow) []string {
	set := make(map[string]struct{})
	for _, rows := range collections {
		for _, r := range rows {
			if s := models.Deref(r.SourceXML); s != "" {
				set[s] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Enrich resolves every distinct source_xml in collections, then stamps each
// row with the reference cached for its own source_xml. Rows whose reference
// could not be resolved get nil for both fields; no row is removed.
func (e *Enricher) Enrich(ctx context.Context, collections ...[]*models.GeoRow) Stats {
	defer logging.Track("enrich")()

	sources := DistinctSources(collections...)
	stats := Stats{Distinct: len(sources)}

	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		if _, ok := e.cache[src]; ok {
			continue
		}
		ref, outcome := e.resolve(ctx, src)
		e.cache[src] = ref
		e.metrics.IncLookup(outcome)
		switch outcome {
		case "resolved":
			stats.Resolved++
		case "not_found":
			stats.NotFound++
		default:
			stats.Failed++
		}
	}

	for _, rows := range collections {
		for _, r := range rows {
			ref := e.cache[models.Deref(r.SourceXML)]
			r.MetadataURL = ref.MetadataURL
			r.Referentienummer = ref.Referentienummer
		}
	}

	log.Printf("[enrich] references distinct=%d resolved=%d not_found=%d failed=%d",
		stats.Distinct, stats.Resolved, stats.NotFound, stats.Failed)
	return stats
}

// Reference returns the cached reference for sourceXML.
func (e *Enricher) Reference(sourceXML string) (models.Reference, bool) {
	ref, ok := e.cache[sourceXML]
	return ref, ok
}

func (e *Enricher) resolve(ctx context.Context, sourceXML string) (models.Reference, string) {
	meta := e.lookup.MetadataURL(ctx, sourceXML)
	if !meta.OK() {
		if meta.Err != nil {
			logging.LogError("enrich", "resolve metadata url "+sourceXML, meta.Err)
			return models.Reference{}, "failed"
		}
		return models.Reference{}, "not_found"
	}

	ref := models.Reference{MetadataURL: models.Ptr(meta.Value)}
	num := e.lookup.ReferenceNumber(ctx, meta.Value)
	if !num.OK() {
		if num.Err != nil {
			logging.LogError("enrich", "resolve referentienummer "+meta.Value, num.Err)
			return ref, "failed"
		}
		return ref, "not_found"
	}
	ref.Referentienummer = models.Ptr(num.Value)
	return ref, "resolved"
}
