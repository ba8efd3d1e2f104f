package sru

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/EmpoweredVote/geoharvest/internal/metrics"
	"github.com/EmpoweredVote/geoharvest/internal/retry"
	"github.com/EmpoweredVote/geoharvest/internal/xmlnode"
)

const (
	// PageSize is the number of records requested per page.
	PageSize = 1000

	// ProductArea is the collection every query is restricted to.
	ProductArea = "officielepublicaties"

	dateLayout = "2006-01-02"
)

// ErrBadStatus matches every *StatusError.
var ErrBadStatus = errors.New("unexpected http status")

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrBadStatus
}

// Doer is the part of *http.Client the repository client needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the repository's SRU endpoint and to the documents it links to.
type Client struct {
	endpoint   string
	httpClient Doer
	limiter    *rate.Limiter
	pagePolicy retry.Policy
	metrics    *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.httpClient = d
	}
}

// WithRateLimit caps outgoing requests at rps per second. rps <= 0 disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithPagePolicy sets the retry policy for transport errors while paging.
// The default makes a single attempt.
func WithPagePolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.pagePolicy = p
	}
}

// WithMetrics records page and record counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client for the SRU endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		pagePolicy: retry.Policy{Attempts: 1, Backoff: retry.DefaultBackoff},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the SRU base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Get fetches url and parses the body as XML. A non-200 status is returned
// as *StatusError.
func (c *Client) Get(ctx context.Context, rawURL string) (*xmlnode.Node, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("repository request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	root, err := xmlnode.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return root, nil
}

// Query builds the CQL query for publications modified within [start, end].
func Query(start, end time.Time) string {
	return fmt.Sprintf("(c.product-area==%s AND dt.modified>=%s AND dt.modified<=%s)",
		ProductArea, start.Format(dateLayout), end.Format(dateLayout))
}

// PageURL returns the search URL for one page of a query.
func (c *Client) PageURL(query string, startRecord, maximumRecords int) string {
	params := url.Values{}
	params.Set("query", query)
	params.Set("startRecord", strconv.Itoa(startRecord))
	params.Set("maximumRecords", strconv.Itoa(maximumRecords))
	return fmt.Sprintf("%s?%s", c.endpoint, params.Encode())
}

// SourceXMLURL returns the search URL that looks a publication up by identifier.
func SourceXMLURL(endpoint, identifier string) string {
	return fmt.Sprintf("%s?&query=(dt.identifier=%s)", endpoint, identifier)
}

// Records returns the sru:record elements of a search response.
func Records(root *xmlnode.Node) []*xmlnode.Node {
	return root.FindAll(xmlnode.Named(NS("sru"), "record"))
}

// FetchByIdentifier returns the records matching one publication identifier.
func (c *Client) FetchByIdentifier(ctx context.Context, identifier string) ([]*xmlnode.Node, error) {
	root, err := c.Get(ctx, SourceXMLURL(c.endpoint, identifier))
	if err != nil {
		return nil, err
	}
	return Records(root), nil
}

// HealthCheck verifies the endpoint answers a minimal query.
func (c *Client) HealthCheck(ctx context.Context) error {
	now := time.Now()
	if _, err := c.Get(ctx, c.PageURL(Query(now, now), 1, 1)); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}
