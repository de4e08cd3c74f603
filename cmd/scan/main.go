package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/threadscan/threadscan/internal/browser"
	"github.com/threadscan/threadscan/internal/config"
	"github.com/threadscan/threadscan/internal/models"
	"github.com/threadscan/threadscan/internal/scraper"
)

func main() {
	var (
		query    = flag.String("query", "", "Search term to scan all sites for")
		all      = flag.Bool("all", false, "Crawl the full catalog of every site instead of searching")
		output   = flag.String("output", "json", "Output format: json, csv")
		headless = flag.Bool("headless", true, "Run browser in headless mode")
	)
	flag.Parse()

	if *query == "" && !*all {
		log.Fatal("either -query or -all is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = *headless && cfg.Browser.Headless
	browserOpts.Timeout = cfg.Browser.Timeout
	browserOpts.ViewportWidth = cfg.Browser.ViewportWidth
	browserOpts.ViewportHeight = cfg.Browser.ViewportHeight
	browserOpts.Locale = cfg.Browser.Locale
	browserOpts.TimezoneID = cfg.Browser.TimezoneID

	b, err := browser.New(browserOpts)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	opts := scraper.ScanOptions{
		Concurrency: cfg.Scraper.Concurrency,
		DelayMin:    cfg.Scraper.DelayMin,
		DelayMax:    cfg.Scraper.DelayMax,
		OnLog: func(message string) {
			logger.Info(message)
		},
	}

	var products []models.Product
	if *all {
		products = scraper.RunScanAll(ctx, b, opts)
	} else {
		products = scraper.RunScan(ctx, b, *query, opts)
	}

	if err := write(products, *output); err != nil {
		logger.Error("failed to write output", "error", err)
		os.Exit(1)
	}
}

func write(products []models.Product, format string) error {
	switch format {
	case "csv":
		w := csv.NewWriter(os.Stdout)
		if err := w.Write([]string{"site", "name", "price", "url", "sizes", "availability", "description"}); err != nil {
			return err
		}
		for _, p := range products {
			record := []string{p.Site, p.Name, p.Price, p.URL, strings.Join(p.Sizes, ", "), p.Availability, p.Description}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	default:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(products)
	}
}
