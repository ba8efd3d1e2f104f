package models

// Layers holds the rows of one run split by geometry kind.
type Layers struct {
	Points   []*GeoRow
	Lines    []*GeoRow
	Polygons []*GeoRow
}

// All returns the three collections in point, line, polygon order.
func (l Layers) All() [][]*GeoRow {
	return [][]*GeoRow{l.Points, l.Lines, l.Polygons}
}

// Len returns the total number of rows across the layers.
func (l Layers) Len() int {
	return len(l.Points) + len(l.Lines) + len(l.Polygons)
}

// Reference is the outcome of the two-hop metadata lookup for one source_xml.
type Reference struct {
	MetadataURL      *string
	Referentienummer *string
}
