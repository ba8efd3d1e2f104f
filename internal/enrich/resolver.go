package enrich

import (
	"context"
	"errors"

	"github.com/EmpoweredVote/geoharvest/internal/logging"
	"github.com/EmpoweredVote/geoharvest/internal/retry"
	"github.com/EmpoweredVote/geoharvest/internal/sru"
	"github.com/EmpoweredVote/geoharvest/internal/xmlnode"
)

const referenceMetadataName = "OVERHEIDop.referentienummer"

// DocumentFetcher fetches and parses an XML document. *sru.Client implements it.
type DocumentFetcher interface {
	Get(ctx context.Context, url string) (*xmlnode.Node, error)
}

// Resolver performs the two lookups behind a reference, each under the
// shared retry policy.
type Resolver struct {
	docs   DocumentFetcher
	policy retry.Policy
}

// NewResolver creates a Resolver.
func NewResolver(docs DocumentFetcher, policy retry.Policy) *Resolver {
	return &Resolver{docs: docs, policy: policy}
}

// MetadataURL fetches a publication's search result and returns the URL of
// its metadata manifestation.
func (r *Resolver) MetadataURL(ctx context.Context, sourceXML string) retry.Result[string] {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (string, error) {
		root, err := r.fetch(ctx, "metadata url", sourceXML)
		if err != nil {
			return "", err
		}
		n := root.Find(xmlnode.NamedWithAttr(sru.NS("gzd"), "itemUrl", "manifestation", "metadata"))
		if n == nil || n.Text == "" {
			logging.LogWarn("enrich", "no metadata URL found in source XML for URL: %s", sourceXML)
			return "", retry.ErrNotFound
		}
		return n.Text, nil
	})
}

// ReferenceNumber fetches a metadata document and returns the content of its
// OVERHEIDop.referentienummer element.
func (r *Resolver) ReferenceNumber(ctx context.Context, metadataURL string) retry.Result[string] {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (string, error) {
		root, err := r.fetch(ctx, "referentienummer", metadataURL)
		if err != nil {
			return "", err
		}
		n := root.Find(xmlnode.NamedWithAttr("", "metadata", "name", referenceMetadataName))
		if n == nil {
			return "", retry.ErrNotFound
		}
		content, ok := n.Attr("content")
		if !ok {
			return "", retry.ErrNotFound
		}
		return content, nil
	})
}

// fetch gets one document. A bad status is a failed attempt retried without
// backoff; transport and parse errors back off.
func (r *Resolver) fetch(ctx context.Context, what, url string) (*xmlnode.Node, error) {
	root, err := r.docs.Get(ctx, url)
	if err == nil {
		return root, nil
	}
	logging.LogError("enrich", "fetch "+what, err)
	if errors.Is(err, sru.ErrBadStatus) {
		return nil, retry.NoBackoff(err)
	}
	return nil, err
}
