// Command check-record fetches one publication by identifier and prints the
// rows it flattens into, with the parse and validity status of each geometry.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/EmpoweredVote/geoharvest/internal/config"
	"github.com/EmpoweredVote/geoharvest/internal/extract"
	"github.com/EmpoweredVote/geoharvest/internal/geometry"
	"github.com/EmpoweredVote/geoharvest/internal/models"
	"github.com/EmpoweredVote/geoharvest/internal/sru"
)

func main() {
	id := flag.String("id", "", "Publication identifier, e.g. gmb-2024-123456 (required)")
	flag.Parse()
	if *id == "" {
		fmt.Fprintln(os.Stderr, "--id is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := sru.NewClientFromConfig(cfg, nil)
	records, err := client.FetchByIdentifier(ctx, *id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Records for %s: %d\n\n", *id, len(records))

	rows := extract.New(client.Endpoint()).ExtractAll(records)
	for i, r := range rows {
		g, ok := geometry.Parse(models.Deref(r.GeometryText))
		status := "unparsable"
		if ok {
			status = g.Kind().String()
			if err := g.Validate(); err != nil {
				status += " (invalid: " + err.Error() + ")"
			} else if !cfg.Bounds.IsZero() && !cfg.Bounds.Contains(g) {
				status += " (outside bounds)"
			}
		}
		fmt.Printf("=== row %d: %s ===\n", i+1, status)
		fmt.Printf("  title:  %s\n", models.Deref(r.Field("title")))
		fmt.Printf("  label:  %s\n", models.Deref(r.GeometrieLabel))
		fmt.Printf("  source: %s\n", models.Deref(r.Source))
		fmt.Printf("  wkt:    %.120s\n", models.Deref(r.GeometryText))
		fmt.Println()
	}
}
