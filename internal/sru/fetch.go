package sru

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/EmpoweredVote/geoharvest/internal/logging"
	"github.com/EmpoweredVote/geoharvest/internal/retry"
	"github.com/EmpoweredVote/geoharvest/internal/xmlnode"
)

// FetchRecords pages through every publication modified in [start, end].
//
// Paging stops at the first non-200 response, at an empty page, or at a page
// shorter than PageSize. Records gathered before a failing page are kept and
// no error is returned for it; only context cancellation is reported.
func (c *Client) FetchRecords(ctx context.Context, start, end time.Time) ([]*xmlnode.Node, error) {
	defer logging.Track("fetch_records")()

	query := Query(start, end)
	var all []*xmlnode.Node
	startRecord := 1

	for {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		pageURL := c.PageURL(query, startRecord, PageSize)
		began := time.Now()
		logging.LogRequest("sru", "GET", c.endpoint, map[string]interface{}{
			"startRecord": startRecord,
		})

		res := retry.Do(ctx, c.pagePolicy, func(ctx context.Context) ([]*xmlnode.Node, error) {
			root, err := c.Get(ctx, pageURL)
			if err != nil {
				if errors.Is(err, ErrBadStatus) {
					return nil, retry.Permanent(err)
				}
				return nil, err
			}
			return Records(root), nil
		})
		if res.Err != nil {
			logging.LogError("sru", "fetch page", res.Err)
			break
		}

		page := res.Value
		c.metrics.IncPages()
		c.metrics.AddRecords(len(page))
		logging.LogResponse("sru", 200, time.Since(began), len(page))

		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		startRecord += PageSize
		if len(page) < PageSize {
			break
		}
	}

	log.Printf("[sru] records fetched: %d", len(all))
	return all, nil
}
