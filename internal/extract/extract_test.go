package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmpoweredVote/geoharvest/internal/extract"
	"github.com/EmpoweredVote/geoharvest/internal/models"
	"github.com/EmpoweredVote/geoharvest/internal/sru"
	"github.com/EmpoweredVote/geoharvest/internal/sru/srutest"
	"github.com/EmpoweredVote/geoharvest/internal/xmlnode"
)

const endpoint = "https://repository.overheid.nl/sru"

func parseRecords(t *testing.T, recs ...srutest.Record) []*xmlnode.Node {
	t.Helper()
	root, err := xmlnode.Parse([]byte(srutest.SearchResponse(recs...)))
	require.NoError(t, err)
	return sru.Records(root)
}

func TestExtract_OneRowPerPair(t *testing.T) {
	recs := parseRecords(t, srutest.Record{
		Identifier: "gmb-2024-1",
		Title:      "Omgevingsvergunning Dorpsstraat 1",
		HasVersion: "https://zoek.officielebekendmakingen.nl/gmb-2024-1.html",
		Markings: []srutest.Marking{
			{Geometries: []string{"POINT(1 1)", "POINT(2 2)"}, Labels: []string{"a", "b"}},
			{Geometries: []string{"POINT(3 3)"}, Labels: []string{"c"}},
		},
	})

	rows := extract.New(endpoint).Extract(recs[0])
	require.Len(t, rows, 3)

	assert.Equal(t, "POINT(1 1)", models.Deref(rows[0].GeometryText))
	assert.Equal(t, "a", models.Deref(rows[0].GeometrieLabel))
	assert.Equal(t, "POINT(3 3)", models.Deref(rows[2].GeometryText))
	assert.Equal(t, "c", models.Deref(rows[2].GeometrieLabel))

	for _, r := range rows {
		assert.Equal(t, "gmb-2024-1", r.Identifier())
		assert.Equal(t, "Omgevingsvergunning Dorpsstraat 1", models.Deref(r.Field("title")))
		assert.Equal(t, "https://zoek.officielebekendmakingen.nl/gmb-2024-1.html", models.Deref(r.Source))
		assert.Equal(t, "https://repository.overheid.nl/sru?&query=(dt.identifier=gmb-2024-1)", models.Deref(r.SourceXML))
		assert.Equal(t, "gebiedsmarkering", models.Deref(r.GebiedsmarkeringType))
	}
}

func TestExtract_MismatchedCountsTruncate(t *testing.T) {
	recs := parseRecords(t, srutest.Record{
		Identifier: "gmb-2024-2",
		Markings: []srutest.Marking{
			{Geometries: []string{"POINT(1 1)", "POINT(2 2)", "POINT(3 3)"}, Labels: []string{"a"}},
			{Geometries: []string{"POINT(4 4)"}, Labels: []string{"b", "c"}},
		},
	})

	rows := extract.New(endpoint).Extract(recs[0])
	require.Len(t, rows, 2)
	assert.Equal(t, "POINT(1 1)", models.Deref(rows[0].GeometryText))
	assert.Equal(t, "POINT(4 4)", models.Deref(rows[1].GeometryText))
	assert.Equal(t, "b", models.Deref(rows[1].GeometrieLabel))
}

func TestExtract_NoMarkingsNoRows(t *testing.T) {
	recs := parseRecords(t, srutest.Record{Identifier: "gmb-2024-3"})
	assert.Empty(t, extract.New(endpoint).Extract(recs[0]))
}

func TestExtract_MissingFieldsAreExplicitNulls(t *testing.T) {
	recs := parseRecords(t, srutest.Record{
		Markings: []srutest.Marking{{Geometries: []string{"POINT(1 1)"}, Labels: []string{"a"}}},
	})

	rows := extract.New(endpoint).Extract(recs[0])
	require.Len(t, rows, 1)
	row := rows[0]

	assert.Len(t, row.Fields, len(models.FieldSet))
	for _, f := range models.FieldSet {
		_, ok := row.Fields[f.Local]
		assert.True(t, ok, "missing key %s", f.Local)
	}
	assert.Nil(t, row.Field("identifier"))
	assert.Nil(t, row.Field("title"))
	assert.Equal(t, "officielepublicaties", models.Deref(row.Field("product-area")))
	assert.Nil(t, row.SourceXML)
	assert.Nil(t, row.Source)
}

func TestExtract_SourceStripsPageSuffix(t *testing.T) {
	recs := parseRecords(t, srutest.Record{
		Identifier: "stcrt-2024-9",
		HasVersion: "https://zoek.officielebekendmakingen.nl/stcrt-2024-9",
		Markings:   []srutest.Marking{{Geometries: []string{"POINT(1 1)"}, Labels: []string{"a"}}},
	})

	rows := extract.New(endpoint).Extract(recs[0])
	require.Len(t, rows, 1)
	assert.Equal(t, "https://zoek.officielebekendmakingen.nl/stcrt-2024-9.html", models.Deref(rows[0].Source))
}

func TestExtract_RowsDoNotShareFields(t *testing.T) {
	recs := parseRecords(t, srutest.Record{
		Identifier: "gmb-2024-4",
		Markings:   []srutest.Marking{{Geometries: []string{"POINT(1 1)", "POINT(2 2)"}, Labels: []string{"a", "b"}}},
	})

	rows := extract.New(endpoint).Extract(recs[0])
	require.Len(t, rows, 2)
	rows[0].Fields["title"] = models.Ptr("changed")
	assert.Nil(t, rows[1].Field("title"))
}

func TestExtractAll_SumsAcrossRecords(t *testing.T) {
	recs := parseRecords(t,
		srutest.Record{Identifier: "a", Markings: []srutest.Marking{{Geometries: []string{"POINT(1 1)"}, Labels: []string{"x"}}}},
		srutest.Record{Identifier: "b"},
		srutest.Record{Identifier: "c", Markings: []srutest.Marking{
			{Geometries: []string{"POINT(1 1)", "POINT(2 2)"}, Labels: []string{"x", "y"}},
			{Geometries: []string{"POINT(3 3)"}, Labels: []string{"z"}},
		}},
	)

	rows := extract.New(endpoint).ExtractAll(recs)
	assert.Len(t, rows, 4)
}

func TestExtract_EmptyResourceIdentifierLeavesSourceNull(t *testing.T) {
	doc := `<sru:searchRetrieveResponse xmlns:sru="` + sru.NS("sru") + `"` +
		` xmlns:dcterms="` + sru.NS("dcterms") + `"` +
		` xmlns:overheidwetgeving="` + sru.NS("overheidwetgeving") + `">` +
		`<sru:records><sru:record><sru:recordData>` +
		`<dcterms:identifier>gmb-2024-5</dcterms:identifier>` +
		`<dcterms:hasVersion resourceIdentifier=""></dcterms:hasVersion>` +
		`<overheidwetgeving:gebiedsmarkering>` +
		`<overheidwetgeving:geometrie>POINT(1 1)</overheidwetgeving:geometrie>` +
		`<overheidwetgeving:geometrielabel>a</overheidwetgeving:geometrielabel>` +
		`</overheidwetgeving:gebiedsmarkering>` +
		`</sru:recordData></sru:record></sru:records></sru:searchRetrieveResponse>`
	root, err := xmlnode.Parse([]byte(doc))
	require.NoError(t, err)

	rows := extract.New(endpoint).Extract(sru.Records(root)[0])
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Source)

	recs := parseRecords(t, srutest.Record{
		Identifier: "gmb-2024-6",
		HasVersion: ".html",
		Markings:   []srutest.Marking{{Geometries: []string{"POINT(1 1)"}, Labels: []string{"a"}}},
	})
	rows = extract.New(endpoint).Extract(recs[0])
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Source)
}
