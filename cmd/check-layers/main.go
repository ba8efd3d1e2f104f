// Command check-layers prints row counts, SRIDs and geometry types of the
// three layer tables.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/EmpoweredVote/geoharvest/internal/config"
)

type layerStat struct {
	GeometryType string
	SRID         int
	Rows         int64
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	dsn, err := cfg.DSN()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}

	layers := []string{cfg.Database.LayerPoint, cfg.Database.LayerLine, cfg.Database.LayerPolygon}
	for _, layer := range layers {
		table := pq.QuoteIdentifier(cfg.Database.Schema) + "." + pq.QuoteIdentifier(layer)

		var total int64
		if err := db.QueryRowContext(ctx, `SELECT count(*) FROM `+table).Scan(&total); err != nil {
			fmt.Printf("=== %s: %v ===\n\n", layer, err)
			continue
		}

		rows, err := db.QueryContext(ctx, `
			SELECT GeometryType(geometry), ST_SRID(geometry), count(*)
			FROM `+table+`
			GROUP BY 1, 2
			ORDER BY 3 DESC`)
		if err != nil {
			log.Fatalf("query %s: %v", layer, err)
		}

		var stats []layerStat
		for rows.Next() {
			var s layerStat
			var gt sql.NullString
			var srid sql.NullInt64
			if err := rows.Scan(&gt, &srid, &s.Rows); err != nil {
				log.Fatalf("scan %s: %v", layer, err)
			}
			s.GeometryType, s.SRID = gt.String, int(srid.Int64)
			stats = append(stats, s)
		}
		if err := rows.Err(); err != nil {
			log.Fatalf("rows %s: %v", layer, err)
		}
		rows.Close()

		fmt.Printf("=== %s (%d rows) ===\n", layer, total)
		for _, s := range stats {
			fmt.Printf("  - %s srid=%d: %d\n", s.GeometryType, s.SRID, s.Rows)
		}
		fmt.Println()
	}
}
