package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmpoweredVote/geoharvest/internal/classify"
	"github.com/EmpoweredVote/geoharvest/internal/geometry"
	"github.com/EmpoweredVote/geoharvest/internal/models"
)

func rowsFor(wkts ...string) []*models.GeoRow {
	rows := make([]*models.GeoRow, len(wkts))
	for i, w := range wkts {
		rows[i] = &models.GeoRow{Fields: map[string]*string{}, GeometryText: models.Ptr(w)}
	}
	return rows
}

func labels(rows []*models.GeoRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = models.Deref(r.GeometryText)
	}
	return out
}

func TestParseGeometries_CountsFailures(t *testing.T) {
	rows := rowsFor("POINT(1 1)", "POINT(", "", "LINESTRING(0 0,1 1)")

	failed := classify.ParseGeometries(rows, nil)

	assert.Equal(t, 2, failed)
	assert.Equal(t, geometry.KindPoint, rows[0].Geometry.Kind())
	assert.True(t, rows[1].Geometry.IsNull())
	assert.True(t, rows[2].Geometry.IsNull())
	assert.Equal(t, geometry.KindLine, rows[3].Geometry.Kind())
}

func TestClassify_EachValidRowInExactlyOneLayer(t *testing.T) {
	rows := rowsFor(
		"POINT(1 1)",
		"LINESTRING(0 0,1 1)",
		"MULTILINESTRING((0 0,1 1),(2 2,3 3))",
		"POLYGON((0 0,10 0,10 10,0 10,0 0))",
		"MULTIPOLYGON(((0 0,1 0,1 1,0 0)),((5 5,6 5,6 6,5 5)))",
		"POLYGON((0 0,10 10,10 0,0 10,0 0))", // self-intersecting
		"MULTIPOINT((1 1),(2 2))",           // no layer
		"not wkt",
	)
	classify.ParseGeometries(rows, nil)

	l := classify.Classify(rows, nil)

	assert.Equal(t, []string{"POINT(1 1)"}, labels(l.Points))
	assert.Equal(t, []string{"LINESTRING(0 0,1 1)", "MULTILINESTRING((0 0,1 1),(2 2,3 3))"}, labels(l.Lines))
	assert.Equal(t, []string{
		"POLYGON((0 0,10 0,10 10,0 10,0 0))",
		"MULTIPOLYGON(((0 0,1 0,1 1,0 0)),((5 5,6 5,6 6,5 5)))",
	}, labels(l.Polygons))

	seen := map[*models.GeoRow]int{}
	for _, layer := range l.All() {
		for _, r := range layer {
			seen[r]++
		}
	}
	for r, n := range seen {
		assert.Equal(t, 1, n, models.Deref(r.GeometryText))
	}
}

func TestWithinLayers_ContainmentNotIntersection(t *testing.T) {
	region, err := geometry.NewRegion("POLYGON((0 0,100 0,100 100,0 100,0 0))")
	require.NoError(t, err)

	rows := rowsFor(
		"POINT(50 50)",
		"POINT(100 50)", // on the boundary
		"POINT(500 500)",
		"LINESTRING(10 10,20 20)",
		"LINESTRING(50 50,150 50)",
		"POLYGON((10 10,20 10,20 20,10 20,10 10))",
		"POLYGON((-10 -10,10 -10,10 10,-10 10,-10 -10))",
	)
	classify.ParseGeometries(rows, nil)
	l := classify.WithinLayers(classify.Classify(rows, nil), region)

	assert.Equal(t, []string{"POINT(50 50)"}, labels(l.Points))
	assert.Equal(t, []string{"LINESTRING(10 10,20 20)"}, labels(l.Lines))
	assert.Equal(t, []string{"POLYGON((10 10,20 10,20 20,10 20,10 10))"}, labels(l.Polygons))
}
