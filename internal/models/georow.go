package models

import (
	"github.com/EmpoweredVote/geoharvest/internal/geometry"
)

// Field is one metadata element projected from a search record.
type Field struct {
	Prefix string // namespace prefix, resolved through sru.Namespaces
	Local  string // element local name, also the attribute key
}

// FieldSet is the fixed set of metadata fields copied onto every GeoRow.
var FieldSet = []Field{
	{"dcterms", "identifier"},
	{"dcterms", "title"},
	{"dcterms", "type"},
	{"dcterms", "creator"},
	{"dcterms", "modified"},
	{"overheid", "authority"},
	{"dcterms", "available"},
	{"dcterms", "hasVersion"},
	{"dcterms", "subject"},
	{"dcterms", "abstract"},
	{"dcterms", "publisher"},
	{"c", "product-area"},
	{"c", "content-area"},
	{"overheidwetgeving", "activiteit"},
	{"overheidwetgeving", "jaargang"},
	{"overheidwetgeving", "organisatietype"},
	{"overheidwetgeving", "publicatienummer"},
	{"overheidwetgeving", "publicatienaam"},
}

// Attribute names that follow the metadata fields, in column order.
const (
	AttrSource               = "source"
	AttrSourceXML            = "source_xml"
	AttrGebiedsmarkeringType = "gebiedsmarkering_type"
	AttrGeometrieLabel       = "geometrieLabel"
	AttrMetadataURL          = "metadata_url"
	AttrReferentienummer     = "referentienummer"
)

// GeoRow is one geometry from one area marking, together with the metadata of
// the publication it came from. Nil pointers are NULL values.
type GeoRow struct {
	// Fields holds every key of FieldSet, including those that were missing.
	Fields map[string]*string

	GeometryText         *string
	Geometry             geometry.Geometry
	Source               *string
	SourceXML            *string
	GebiedsmarkeringType *string
	GeometrieLabel       *string

	MetadataURL      *string
	Referentienummer *string
}

// Field returns the value of a metadata field.
func (r *GeoRow) Field(local string) *string {
	return r.Fields[local]
}

// Identifier returns the dcterms:identifier value, or "".
func (r *GeoRow) Identifier() string {
	return Deref(r.Fields["identifier"])
}

// Attributes returns the attribute names of a GeoRow in storage order,
// excluding the geometry itself.
func Attributes() []string {
	names := make([]string, 0, len(FieldSet)+6)
	for _, f := range FieldSet {
		names = append(names, f.Local)
	}
	return append(names,
		AttrSource,
		AttrSourceXML,
		AttrGebiedsmarkeringType,
		AttrGeometrieLabel,
		AttrMetadataURL,
		AttrReferentienummer,
	)
}

// Values returns the attribute values in the order given by Attributes.
func (r *GeoRow) Values() []*string {
	vals := make([]*string, 0, len(FieldSet)+6)
	for _, f := range FieldSet {
		vals = append(vals, r.Fields[f.Local])
	}
	return append(vals,
		r.Source,
		r.SourceXML,
		r.GebiedsmarkeringType,
		r.GeometrieLabel,
		r.MetadataURL,
		r.Referentienummer,
	)
}

// Clone returns a copy of r that shares no mutable state with it.
func (r *GeoRow) Clone() *GeoRow {
	c := *r
	c.Fields = make(map[string]*string, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return &c
}

// Ptr returns a pointer to s.
func Ptr(s string) *string {
	return &s
}

// NonEmpty returns nil for "" and a pointer to s otherwise.
func NonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns *s, or "" when s is nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
