package sru

// Namespaces maps the prefixes used throughout the code to the namespace URIs
// of the SRU response and the overheid.nl metadata standards.
var Namespaces = map[string]string{
	"sru":               "http://docs.oasis-open.org/ns/search-ws/sruResponse",
	"gzd":               "http://standaarden.overheid.nl/sru",
	"dcterms":           "http://purl.org/dc/terms/",
	"c":                 "http://standaarden.overheid.nl/collectie/",
	"overheidwetgeving": "http://standaarden.overheid.nl/wetgeving/",
	"overheid":          "http://standaarden.overheid.nl/owms/terms/",
}

// NS returns the namespace URI for prefix, or "" when unknown.
func NS(prefix string) string {
	return Namespaces[prefix]
}
