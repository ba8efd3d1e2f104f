package pipeline

import (
	"gorm.io/gorm"

	"github.com/EmpoweredVote/geoharvest/internal/config"
	"github.com/EmpoweredVote/geoharvest/internal/enrich"
	"github.com/EmpoweredVote/geoharvest/internal/metrics"
	"github.com/EmpoweredVote/geoharvest/internal/retry"
	"github.com/EmpoweredVote/geoharvest/internal/sink"
	"github.com/EmpoweredVote/geoharvest/internal/sru"
)

// NewFromConfig builds the production pipeline: the repository client,
// the reference resolver and, when store is non-nil, the PostGIS sink.
func NewFromConfig(cfg *config.Config, store *gorm.DB, m *metrics.Metrics, opts ...Option) *Pipeline {
	client := sru.NewClientFromConfig(cfg, m)
	resolver := enrich.NewResolver(client, retry.Default())

	base := []Option{WithMetrics(m)}
	if store != nil {
		base = append(base, WithSink(sink.NewPostGIS(store, cfg.Database.Schema,
			sink.WithAdvisoryLock(sink.LockKey),
			sink.WithMetrics(m),
		)))
	}
	return New(cfg, client, resolver, append(base, opts...)...)
}
