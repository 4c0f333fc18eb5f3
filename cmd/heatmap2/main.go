package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sagar-cesta/heatmap2/internal/config"
	"github.com/Sagar-cesta/heatmap2/internal/dashboard"
	"github.com/Sagar-cesta/heatmap2/internal/metrics"
	"github.com/Sagar-cesta/heatmap2/internal/metrics/datadog"
	"github.com/Sagar-cesta/heatmap2/internal/server"
	"github.com/Sagar-cesta/heatmap2/internal/warehouse"

	// register all warehouse backends with the factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "github.com/Sagar-cesta/heatmap2/internal/warehouse/all"
)

// main is the entry point for the dashboard binary. It loads the config,
// optionally initializes a metrics backend, connects the warehouse, and
// serves the dashboard over HTTP.
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		addrFlg           string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/dashboard.json", "dashboard config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (datadog, none; overrides config)")
	flag.StringVar(&addrFlg, "addr", "", "listen address (overrides config)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	f, err := os.Open(cfgPath)
	if err != nil {
		fatalf("open config: %v", err)
	}

	var cfg config.Dashboard
	err = json.NewDecoder(f).Decode(&cfg)
	f.Close()
	if err != nil {
		fatalf("decode config: %v", err)
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}

	// If validate flag is set, only validate the configuration and exit
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	// Decide metrics backend: flag → env → config.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	if backendName == "" {
		backendName = cfg.Metrics.Backend
	}
	switch backendName {
	case "datadog":
		jobName := cfg.Job
		if jobName == "" {
			jobName = "heatmap2"
		}

		tags := cfg.Metrics.Tags
		tags = append(tags, datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))...)

		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: jobName,
			Tags:    tags,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=%v job_name=%v tags=%v", backendName, jobName, tags)
			metrics.SetBackend(b)

			// Close() stops the periodic flush loop and then performs a
			// final Flush(). Clean shutdown path for the Datadog backend.
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()

	repo, err := warehouse.New(ctx, cfg.Warehouse)
	if err != nil {
		fatalf("warehouse: %v", err)
	}
	defer repo.Close()

	if *verbose {
		log.Printf("warehouse: kind=%s table=%s", cfg.Warehouse.Kind, cfg.Warehouse.TableOrDefault())
	}

	svc := dashboard.New(repo, log.Default())
	srv := server.New(svc, log.Default())

	addr := addrFlg
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if addr == "" {
		addr = ":8080"
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("stage=serve addr=%s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	case sig := <-sigCh:
		log.Printf("stage=shutdown signal=%v", sig)
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
