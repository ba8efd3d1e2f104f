package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/EmpoweredVote/geoharvest/internal/config"
	"github.com/EmpoweredVote/geoharvest/internal/db"
	"github.com/EmpoweredVote/geoharvest/internal/harvestjobs"
	"github.com/EmpoweredVote/geoharvest/internal/logging"
	"github.com/EmpoweredVote/geoharvest/internal/metrics"
	"github.com/EmpoweredVote/geoharvest/internal/pipeline"
	"github.com/EmpoweredVote/geoharvest/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	dsn, err := cfg.DSN()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	store, err := db.Connect(dsn, db.Options{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close(store)

	if err := db.EnsureSchema(store, cfg.Database.Schema); err != nil {
		log.Fatalf("ensure schema %s: %v", cfg.Database.Schema, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	logging.AddObserver(m.ObserveStage)

	p := pipeline.NewFromConfig(cfg, store, m)
	jobs := harvestjobs.NewManager(p, cfg.StartDate)

	srv := &http.Server{
		Addr: "0.0.0.0:" + cfg.Port,
		Handler: server.NewRouter(server.Options{
			Jobs:        jobs,
			Gatherer:    reg,
			AdminToken:  cfg.AdminToken,
			CORSOrigins: cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server listening on port :%s...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	jobs.Shutdown()
}
