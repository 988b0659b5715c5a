package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"databridge/internal/config"
	"databridge/internal/datastore"
	"databridge/internal/infrastructure"
	"databridge/internal/ingest"
	"databridge/internal/services"
)

func main() {
	dir := flag.String("dir", "", "export directory (defaults to BRIDGE_EXPORTS_DIR)")
	file := flag.String("file", "", "ingest a single export file by name instead of the whole directory")
	list := flag.Bool("list", false, "list recognized export files and exit")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	exportDir := *dir
	if exportDir == "" {
		exportDir = cfg.Exports.Dir
	}
	if exportDir == "" {
		logger.Error("No export directory configured, pass -dir or set BRIDGE_EXPORTS_DIR")
		os.Exit(1)
	}

	store, err := datastore.NewClient(datastore.Config{
		URL:     cfg.Datastore.URL,
		Key:     cfg.Datastore.Key,
		Timeout: cfg.Datastore.Timeout,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize datastore client", "error", err)
		os.Exit(1)
	}

	ingestor := ingest.NewIngestor(store, cfg.Datastore.Table, logger)
	svc := services.NewExportService(exportDir, ingestor, nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *list {
		files, err := svc.List(ctx)
		if err != nil {
			logger.Error("Failed to list exports", "error", err)
			os.Exit(1)
		}
		for _, f := range files {
			fmt.Printf("%s\t%d bytes\t%s\n", f.Name, f.Size, f.ModTime.Format(time.RFC3339))
		}
		return
	}

	var results []ingestResult
	if *file != "" {
		res, err := svc.Process(ctx, *file)
		if err != nil {
			logger.Error("Failed to process export", "file", *file, "error", err)
			os.Exit(1)
		}
		results = append(results, ingestResult{res.File, res.Inserted, res.Errors})
	} else {
		all, err := svc.ProcessAll(ctx)
		if err != nil {
			logger.Error("Failed to process exports", "error", err)
			os.Exit(1)
		}
		for _, res := range all {
			results = append(results, ingestResult{res.File, res.Inserted, res.Errors})
		}
	}

	failed := false
	for _, res := range results {
		fmt.Printf("%s: %d rows inserted", res.file, res.inserted)
		if len(res.errors) > 0 {
			failed = true
			fmt.Printf(", %d errors", len(res.errors))
			for _, e := range res.errors {
				logger.Warn("Ingest error", "file", res.file, "error", e)
			}
		}
		fmt.Println()
	}

	if failed {
		os.Exit(1)
	}
}

type ingestResult struct {
	file     string
	inserted int
	errors   []string
}
