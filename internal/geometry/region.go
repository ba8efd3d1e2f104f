package geometry

import (
	"errors"
	"fmt"

	"github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidBounds is returned for a bounds region that is not a valid polygon.
var ErrInvalidBounds = errors.New("bounds must be a valid polygon")

// Region is the area of interest. It is immutable once built.
type Region struct {
	g geom.Geometry
}

// NewRegion parses the bounds WKT. Only valid, non-empty (multi)polygons are
// accepted.
func NewRegion(wkt string) (Region, error) {
	g, err := Decode(wkt)
	if err != nil {
		return Region{}, fmt.Errorf("%w: %v", ErrInvalidBounds, err)
	}
	if g.Kind() != KindPolygon {
		return Region{}, fmt.Errorf("%w: got %s", ErrInvalidBounds, g.g.Type())
	}
	if g.g.IsEmpty() {
		return Region{}, fmt.Errorf("%w: empty", ErrInvalidBounds)
	}
	if err := g.Validate(); err != nil {
		return Region{}, fmt.Errorf("%w: %v", ErrInvalidBounds, err)
	}
	return Region{g: g.g}, nil
}

// IsZero reports whether r was never initialised.
func (r Region) IsZero() bool {
	return r.g.IsEmpty()
}

// WKT returns the region's well-known text.
func (r Region) WKT() string {
	return r.g.AsText()
}

// Contains reports whether g lies entirely inside r. A geometry touching
// only the boundary, or crossing it, is not contained.
func (r Region) Contains(g Geometry) bool {
	if g.IsNull() || r.IsZero() {
		return false
	}
	ok, err := geom.Contains(r.g, g.g)
	if err != nil {
		return false
	}
	return ok
}
