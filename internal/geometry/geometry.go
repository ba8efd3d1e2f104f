// Package geometry wraps WKT parsing, validity checks and containment for the
// geometries carried by area markings. All coordinates are in EPSG:28992.
package geometry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/peterstace/simplefeatures/geom"

	"github.com/EmpoweredVote/geoharvest/internal/logging"
)

// SRID is the spatial reference of every geometry (Amersfoort / RD New).
const SRID = 28992

// Kind is the storage layer a geometry belongs to.
type Kind int

const (
	KindNone Kind = iota
	KindPoint
	KindLine
	KindPolygon
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindPolygon:
		return "polygon"
	case KindOther:
		return "other"
	default:
		return "none"
	}
}

// ErrEmptyInput is returned when there is no WKT to parse.
var ErrEmptyInput = errors.New("empty geometry text")

// Geometry is a parsed geometry tagged with its Kind. The zero value is the
// null geometry.
type Geometry struct {
	kind Kind
	g    geom.Geometry
}

// Kind returns the layer kind, KindNone for the null geometry.
func (g Geometry) Kind() Kind { return g.kind }

// IsNull reports whether g holds no geometry.
func (g Geometry) IsNull() bool { return g.kind == KindNone }

// WKT returns the well-known text of g, or "" for the null geometry.
func (g Geometry) WKT() string {
	if g.IsNull() {
		return ""
	}
	return g.g.AsText()
}

// Validate reports structural problems: self-intersections, unclosed rings,
// degenerate lines and the like.
func (g Geometry) Validate() error {
	if g.IsNull() {
		return errors.New("null geometry")
	}
	return g.g.Validate()
}

// Decode parses text as WKT without judging validity; structurally invalid
// shapes are accepted here and rejected later by Validate.
func Decode(text string) (_ Geometry, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Geometry{}, ErrEmptyInput
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("wkt parser panic: %v", r)
		}
	}()

	g, err := geom.UnmarshalWKT(text, geom.NoValidate{})
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{kind: kindOf(g.Type()), g: g}, nil
}

// Parse is Decode for the pipeline: a failure is logged with the offending
// input and yields the null geometry instead of an error.
func Parse(text string) (Geometry, bool) {
	g, err := Decode(text)
	if err != nil {
		logging.LogWarn("geometry", "failed to parse geometry %q: %v", text, err)
		return Geometry{}, false
	}
	return g, true
}

func kindOf(t geom.GeometryType) Kind {
	switch t {
	case geom.TypePoint:
		return KindPoint
	case geom.TypeLineString, geom.TypeMultiLineString:
		return KindLine
	case geom.TypePolygon, geom.TypeMultiPolygon:
		return KindPolygon
	default:
		return KindOther
	}
}
