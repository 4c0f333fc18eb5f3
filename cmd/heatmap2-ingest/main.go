package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Sagar-cesta/heatmap2/internal/config"
	"github.com/Sagar-cesta/heatmap2/internal/ingest"
	"github.com/Sagar-cesta/heatmap2/internal/warehouse"

	_ "github.com/Sagar-cesta/heatmap2/internal/warehouse/all"
)

// main loads observation CSVs into the warehouse the dashboard reads from.
// Reads from a file or stdin ("-").
func main() {
	var (
		cfgPath    string
		inputPath  string
		batchSize  int
		stateCol   string
		catCol     string
		typeCol    string
		initSchema bool
	)

	flag.StringVar(&cfgPath, "config", "configs/dashboard.json", "dashboard config JSON path")
	flag.StringVar(&inputPath, "input", "-", "observation CSV path, - for stdin")
	flag.IntVar(&batchSize, "batch-size", 500, "rows per insert batch")
	flag.StringVar(&stateCol, "state-column", "state", "CSV header of the state column")
	flag.StringVar(&catCol, "category-column", "category", "CSV header of the category column")
	flag.StringVar(&typeCol, "type-column", "negotiated_type", "CSV header of the negotiated type column")
	flag.BoolVar(&initSchema, "init-schema", false, "create the observation table if missing")
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

	ctx := context.Background()

	repo, err := warehouse.New(ctx, cfg.Warehouse)
	if err != nil {
		fatalf("warehouse: %v", err)
	}
	defer repo.Close()

	loader, ok := repo.(warehouse.Loader)
	if !ok {
		fatalf("warehouse kind %q does not support ingestion", cfg.Warehouse.Kind)
	}

	if initSchema {
		if err := loader.EnsureSchema(ctx); err != nil {
			fatalf("ensure schema: %v", err)
		}
	}

	in := os.Stdin
	if inputPath != "-" {
		in, err = os.Open(inputPath)
		if err != nil {
			fatalf("open input: %v", err)
		}
		defer in.Close()
	}

	start := time.Now()
	res, err := ingest.Run(ctx, in, loader, ingest.Options{
		BatchSize:      batchSize,
		StateColumn:    stateCol,
		CategoryColumn: catCol,
		TypeColumn:     typeCol,
	}, log.Default())
	if err != nil {
		log.Fatalf("ingest: %v (inserted %d rows before failure)", err, res.Inserted)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	log.Printf("stage=ingest status=ok read=%d inserted=%d", res.Read, res.Inserted)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
