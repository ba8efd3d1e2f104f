// Command harvest runs one harvest from the configured start date until now
// and prints the run summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/EmpoweredVote/geoharvest/internal/config"
	"github.com/EmpoweredVote/geoharvest/internal/db"
	"github.com/EmpoweredVote/geoharvest/internal/pipeline"
	"github.com/EmpoweredVote/geoharvest/internal/sru"
)

var (
	dryRun  = flag.Bool("dry-run", false, "Fetch, classify and enrich only; no DB writes")
	start   = flag.String("start", "", "Override START_DATUM (YYYY-MM-DD)")
	timeout = flag.Duration("timeout", 2*time.Hour, "Abort the run after this long")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatalf("config: %v", err)
	}
	if *start != "" {
		t, err := time.Parse(config.DateLayout, *start)
		if err != nil {
			fatalf("--start must be YYYY-MM-DD: %v", err)
		}
		cfg.StartDate = t
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	// An unreachable repository yields an empty harvest, not a failed one.
	if err := sru.NewClientFromConfig(cfg, nil).HealthCheck(ctx); err != nil {
		log.Printf("[harvest] WARNING: repository health check failed: %v", err)
	}

	var store *gorm.DB
	if !*dryRun {
		dsn, err := cfg.DSN()
		if err != nil {
			fatalf("config: %v", err)
		}
		store, err = db.Connect(dsn, db.Options{})
		if err != nil {
			fatalf("connect: %v", err)
		}
		defer db.Close(store)
	}

	p := pipeline.NewFromConfig(cfg, store, nil, pipeline.WithDryRun(*dryRun))
	summary, err := p.Run(ctx, p.WindowFrom(cfg.StartDate))
	if err != nil {
		log.Printf("run failed: %v", err)
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
	if *dryRun {
		fmt.Println("Dry run complete. No changes made.")
	}
	if err != nil {
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
