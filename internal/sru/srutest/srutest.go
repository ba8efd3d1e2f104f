// Package srutest builds repository responses for tests.
package srutest

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Marking is one gebiedsmarkering element.
type Marking struct {
	Geometries []string
	Labels     []string
}

// Record describes one search result. Empty fields are left out of the XML.
type Record struct {
	Identifier  string
	Title       string
	Modified    string
	Creator     string
	HasVersion  string // resourceIdentifier attribute of dcterms:hasVersion
	MetadataURL string // gzd:itemUrl with manifestation="metadata"
	Markings    []Marking
}

const header = `<?xml version="1.0" encoding="UTF-8"?>
<sru:searchRetrieveResponse xmlns:sru="http://docs.oasis-open.org/ns/search-ws/sruResponse"` +
	` xmlns:gzd="http://standaarden.overheid.nl/sru"` +
	` xmlns:dcterms="http://purl.org/dc/terms/"` +
	` xmlns:c="http://standaarden.overheid.nl/collectie/"` +
	` xmlns:overheidwetgeving="http://standaarden.overheid.nl/wetgeving/"` +
	` xmlns:overheid="http://standaarden.overheid.nl/owms/terms/">`

// SearchResponse renders a searchRetrieveResponse holding records.
func SearchResponse(records ...Record) string {
	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "<sru:numberOfRecords>%d</sru:numberOfRecords><sru:records>", len(records))
	for _, r := range records {
		b.WriteString(r.XML())
	}
	b.WriteString("</sru:records></sru:searchRetrieveResponse>")
	return b.String()
}

// Numbered returns n records with identifiers prefix-1 .. prefix-n and no markings.
func Numbered(prefix string, n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{Identifier: fmt.Sprintf("%s-%d", prefix, i+1)}
	}
	return out
}

// XML renders the sru:record element.
func (r Record) XML() string {
	var b strings.Builder
	b.WriteString("<sru:record><sru:recordSchema>gzd</sru:recordSchema><sru:recordData><gzd:gzd><gzd:originalData>")
	b.WriteString("<overheidwetgeving:meta><overheidwetgeving:owmskern>")
	element(&b, "dcterms:identifier", r.Identifier)
	element(&b, "dcterms:title", r.Title)
	element(&b, "dcterms:type", "gemeenteblad")
	element(&b, "dcterms:creator", r.Creator)
	element(&b, "dcterms:modified", r.Modified)
	if r.HasVersion != "" {
		fmt.Fprintf(&b, `<dcterms:hasVersion resourceIdentifier="%s">%s</dcterms:hasVersion>`,
			escape(r.HasVersion), escape(r.HasVersion))
	}
	b.WriteString("</overheidwetgeving:owmskern><overheidwetgeving:tpmeta>")
	element(&b, "c:product-area", "officielepublicaties")
	for _, m := range r.Markings {
		b.WriteString("<overheidwetgeving:gebiedsmarkering>")
		for _, g := range m.Geometries {
			element(&b, "overheidwetgeving:geometrie", g)
		}
		for _, l := range m.Labels {
			element(&b, "overheidwetgeving:geometrielabel", l)
		}
		b.WriteString("</overheidwetgeving:gebiedsmarkering>")
	}
	b.WriteString("</overheidwetgeving:tpmeta></overheidwetgeving:meta></gzd:originalData>")
	if r.MetadataURL != "" {
		b.WriteString("<gzd:enrichedData>")
		b.WriteString(`<gzd:itemUrl manifestation="html">https://zoek.officielebekendmakingen.nl/doc.html</gzd:itemUrl>`)
		fmt.Fprintf(&b, `<gzd:itemUrl manifestation="metadata">%s</gzd:itemUrl>`, escape(r.MetadataURL))
		b.WriteString("</gzd:enrichedData>")
	}
	b.WriteString("</gzd:gzd></sru:recordData></sru:record>")
	return b.String()
}

// MetadataDocument renders a metadata document carrying a reference number.
func MetadataDocument(referentienummer string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<metadata_gegevens>
  <metadata name="DC.identifier" content="doc"/>
  <metadata name="OVERHEIDop.referentienummer" content="%s"/>
</metadata_gegevens>`, escape(referentienummer))
}

func element(b *strings.Builder, name, text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(b, "<%s>%s</%s>", name, escape(text), name)
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
