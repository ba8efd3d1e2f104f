// Package extract flattens search records into one row per area-marking
// geometry.
package extract

import (
	"strings"
	"time"

	"github.com/EmpoweredVote/geoharvest/internal/logging"
	"github.com/EmpoweredVote/geoharvest/internal/models"
	"github.com/EmpoweredVote/geoharvest/internal/sru"
	"github.com/EmpoweredVote/geoharvest/internal/xmlnode"
)

const pageSuffix = ".html"

// Extractor turns raw search records into GeoRows.
type Extractor struct {
	endpoint string
}

// New creates an Extractor. endpoint is the SRU base URL used to build
// each row's source_xml lookup URL.
func New(endpoint string) *Extractor {
	return &Extractor{endpoint: endpoint}
}

// ExtractAll flattens a batch of records.
func (e *Extractor) ExtractAll(records []*xmlnode.Node) []*models.GeoRow {
	start := time.Now()
	var rows []*models.GeoRow
	for _, rec := range records {
		rows = append(rows, e.Extract(rec)...)
	}
	logging.LogTransform("extract", len(records), len(rows), time.Since(start))
	return rows
}

// Extract returns one row per paired geometry/label inside the record's
// area markings. A record without markings yields nothing.
func (e *Extractor) Extract(rec *xmlnode.Node) []*models.GeoRow {
	base := &models.GeoRow{Fields: make(map[string]*string, len(models.FieldSet))}
	for _, f := range models.FieldSet {
		base.Fields[f.Local] = nil
		if n := rec.Find(xmlnode.Named(sru.NS(f.Prefix), f.Local)); n != nil {
			base.Fields[f.Local] = models.NonEmpty(n.Text)
		}
	}

	if hv := rec.Find(xmlnode.Named(sru.NS("dcterms"), "hasVersion")); hv != nil {
		if ri, ok := hv.Attr("resourceIdentifier"); ok {
			if s := strings.ReplaceAll(ri, pageSuffix, ""); s != "" {
				base.Source = models.Ptr(s + pageSuffix)
			}
		}
	}
	if id := base.Identifier(); id != "" {
		base.SourceXML = models.Ptr(sru.SourceXMLURL(e.endpoint, id))
	}

	ns := sru.NS("overheidwetgeving")
	var rows []*models.GeoRow
	for _, marking := range rec.FindAll(xmlnode.Named(ns, "gebiedsmarkering")) {
		geometries := marking.FindAll(xmlnode.Named(ns, "geometrie"))
		labels := marking.FindAll(xmlnode.Named(ns, "geometrielabel"))
		if len(geometries) != len(labels) {
			logging.LogWarn("extract", "%s: %d geometries but %d labels in %s, pairing %d",
				base.Identifier(), len(geometries), len(labels), marking.Local,
				min(len(geometries), len(labels)))
		}

		for i := 0; i < len(geometries) && i < len(labels); i++ {
			row := base.Clone()
			row.GeometryText = models.Ptr(geometries[i].Text)
			row.GebiedsmarkeringType = models.Ptr(marking.Local)
			row.GeometrieLabel = models.NonEmpty(labels[i].Text)
			rows = append(rows, row)
		}
	}
	return rows
}
