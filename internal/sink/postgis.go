package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/EmpoweredVote/geoharvest/internal/db"
	"github.com/EmpoweredVote/geoharvest/internal/geometry"
	"github.com/EmpoweredVote/geoharvest/internal/logging"
	"github.com/EmpoweredVote/geoharvest/internal/metrics"
	"github.com/EmpoweredVote/geoharvest/internal/models"
)

const (
	// GeometryColumn is the name of the geometry column in every layer table.
	GeometryColumn = "geometry"

	// DefaultBatchSize keeps one INSERT well under the 65535 bind parameter
	// limit of the Postgres wire protocol.
	DefaultBatchSize = 500

	// LockKey is the advisory lock key used by the harvest processes.
	LockKey int64 = 0x67656f68 // "geoh"
)

// PostGIS writes layers as tables in one schema of a PostGIS database.
type PostGIS struct {
	db        *gorm.DB
	schema    string
	batchSize int
	lockKey   int64
	metrics   *metrics.Metrics
}

// PostGISOption configures a PostGIS sink.
type PostGISOption func(*PostGIS)

// WithBatchSize sets the number of rows per INSERT statement.
func WithBatchSize(n int) PostGISOption {
	return func(p *PostGIS) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithAdvisoryLock takes pg_advisory_xact_lock(key) at the start of every
// replace so concurrent writers of the same store serialise. 0 disables it.
func WithAdvisoryLock(key int64) PostGISOption {
	return func(p *PostGIS) { p.lockKey = key }
}

// WithMetrics records written rows per layer.
func WithMetrics(m *metrics.Metrics) PostGISOption {
	return func(p *PostGIS) { p.metrics = m }
}

// NewPostGIS creates a sink writing into schema.
func NewPostGIS(d *gorm.DB, schema string, opts ...PostGISOption) *PostGIS {
	p := &PostGIS{db: d, schema: schema, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Replace drops and recreates the layer table and inserts rows, all in one
// transaction. An empty rows slice leaves an empty table behind.
func (p *PostGIS) Replace(ctx context.Context, layer string, rows []*models.GeoRow) error {
	start := time.Now()

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.lockKey != 0 {
			if err := tx.Exec(`SELECT pg_advisory_xact_lock(?)`, p.lockKey).Error; err != nil {
				return fmt.Errorf("advisory lock: %w", err)
			}
		}
		if err := db.EnsureSchema(tx, p.schema); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		if err := tx.Exec(dropTableSQL(p.schema, layer)).Error; err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
		if err := tx.Exec(createTableSQL(p.schema, layer)).Error; err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		for i := 0; i < len(rows); i += p.batchSize {
			end := min(i+p.batchSize, len(rows))
			batch := rows[i:end]
			if err := tx.Exec(insertSQL(p.schema, layer, len(batch)), insertArgs(batch)...).Error; err != nil {
				return fmt.Errorf("insert rows %d-%d: %w", i, end, err)
			}
		}
		return nil
	})
	if err != nil {
		logging.LogError("sink", "replace "+layer, err)
		return fmt.Errorf("replace layer %s: %w", layer, err)
	}

	p.metrics.AddWritten(layer, len(rows))
	logging.LogWrite(layer, len(rows), time.Since(start))
	return nil
}

// Count returns the number of rows in a layer table.
func (p *PostGIS) Count(ctx context.Context, layer string) (int64, error) {
	var n int64
	err := p.db.WithContext(ctx).
		Raw(`SELECT count(*) FROM ` + qualified(p.schema, layer)).
		Scan(&n).Error
	return n, err
}

var lower = cases.Lower(language.Und)

// Columns returns the attribute column names of a layer table, in insert
// order and without the geometry column.
func Columns() []string {
	attrs := models.Attributes()
	cols := make([]string, len(attrs))
	for i, a := range attrs {
		cols[i] = lower.String(a)
	}
	return cols
}

func qualified(schema, table string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

func dropTableSQL(schema, layer string) string {
	return `DROP TABLE IF EXISTS ` + qualified(schema, layer)
}

func createTableSQL(schema, layer string) string {
	var b strings.Builder
	b.WriteString(`CREATE TABLE `)
	b.WriteString(qualified(schema, layer))
	b.WriteString(" (")
	for _, c := range Columns() {
		b.WriteString(pq.QuoteIdentifier(c))
		b.WriteString(" text, ")
	}
	fmt.Fprintf(&b, "%s geometry(Geometry,%d))", pq.QuoteIdentifier(GeometryColumn), geometry.SRID)
	return b.String()
}

func insertSQL(schema, layer string, n int) string {
	cols := Columns()
	quoted := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		quoted = append(quoted, pq.QuoteIdentifier(c))
	}
	quoted = append(quoted, pq.QuoteIdentifier(GeometryColumn))

	placeholders := strings.Repeat("?, ", len(cols))
	tuple := fmt.Sprintf("(%sST_GeomFromText(?, %d))", placeholders, geometry.SRID)

	tuples := make([]string, n)
	for i := range tuples {
		tuples[i] = tuple
	}
	return `INSERT INTO ` + qualified(schema, layer) +
		" (" + strings.Join(quoted, ", ") + ") VALUES " + strings.Join(tuples, ", ")
}

func insertArgs(rows []*models.GeoRow) []any {
	args := make([]any, 0, len(rows)*(len(models.Attributes())+1))
	for _, r := range rows {
		for _, v := range r.Values() {
			if v == nil {
				args = append(args, nil)
			} else {
				args = append(args, *v)
			}
		}
		if r.Geometry.IsNull() {
			args = append(args, nil)
		} else {
			args = append(args, r.Geometry.WKT())
		}
	}
	return args
}
