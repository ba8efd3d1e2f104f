// Package classify parses row geometries, splits rows into point, line and
// polygon layers, drops invalid geometries and applies the bounds filter.
package classify

import (
	"log"
	"time"

	"github.com/EmpoweredVote/geoharvest/internal/geometry"
	"github.com/EmpoweredVote/geoharvest/internal/logging"
	"github.com/EmpoweredVote/geoharvest/internal/metrics"
	"github.com/EmpoweredVote/geoharvest/internal/models"
)

// ParseGeometries replaces each row's geometry text with the parsed geometry.
// Rows whose text does not parse keep a null geometry. It returns the number
// of parse failures.
func ParseGeometries(rows []*models.GeoRow, m *metrics.Metrics) int {
	defer logging.Track("parse_geometries")()

	failed := 0
	for _, r := range rows {
		g, ok := geometry.Parse(models.Deref(r.GeometryText))
		r.Geometry = g
		if !ok {
			failed++
			m.IncParseFailures()
		}
	}
	return failed
}

// Split partitions rows by geometry kind. Null geometries and kinds without
// a layer are left out.
func Split(rows []*models.GeoRow) models.Layers {
	var l models.Layers
	for _, r := range rows {
		switch r.Geometry.Kind() {
		case geometry.KindPoint:
			l.Points = append(l.Points, r)
		case geometry.KindLine:
			l.Lines = append(l.Lines, r)
		case geometry.KindPolygon:
			l.Polygons = append(l.Polygons, r)
		case geometry.KindNone, geometry.KindOther:
		}
	}
	return l
}

// Valid keeps only rows with a structurally valid geometry and reports how
// many were dropped.
func Valid(rows []*models.GeoRow, kind geometry.Kind, m *metrics.Metrics) []*models.GeoRow {
	out := make([]*models.GeoRow, 0, len(rows))
	for _, r := range rows {
		if err := r.Geometry.Validate(); err != nil {
			continue
		}
		out = append(out, r)
	}
	invalid := len(rows) - len(out)
	log.Printf("[classify] Found %d invalid %s geometries out of %d. Removing invalid geometries.",
		invalid, kind, len(rows))
	m.AddInvalid(kind.String(), invalid)
	return out
}

// Classify splits rows into layers and validates each layer.
func Classify(rows []*models.GeoRow, m *metrics.Metrics) models.Layers {
	start := time.Now()
	l := Split(rows)
	l.Points = Valid(l.Points, geometry.KindPoint, m)
	l.Lines = Valid(l.Lines, geometry.KindLine, m)
	l.Polygons = Valid(l.Polygons, geometry.KindPolygon, m)
	logging.LogTransform("classify", len(rows), l.Len(), time.Since(start))
	return l
}

// Within keeps the rows whose geometry lies entirely inside region.
func Within(rows []*models.GeoRow, region geometry.Region) []*models.GeoRow {
	out := make([]*models.GeoRow, 0, len(rows))
	for _, r := range rows {
		if region.Contains(r.Geometry) {
			out = append(out, r)
		}
	}
	return out
}

// WithinLayers applies Within to every layer independently.
func WithinLayers(l models.Layers, region geometry.Region) models.Layers {
	start := time.Now()
	out := models.Layers{
		Points:   Within(l.Points, region),
		Lines:    Within(l.Lines, region),
		Polygons: Within(l.Polygons, region),
	}
	logging.LogTransform("bounds", l.Len(), out.Len(), time.Since(start))
	return out
}
