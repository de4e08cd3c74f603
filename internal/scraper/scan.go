package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/threadscan/threadscan/internal/browser"
	"github.com/threadscan/threadscan/internal/models"
	"github.com/threadscan/threadscan/internal/ratelimit"
)

// ScanConcurrency bounds how many sites are scraped at once on the shared
// browser session.
const ScanConcurrency = 4

// ScanOptions configure one scan run. The callbacks may be invoked from any
// site goroutine; OnSiteDone fires exactly once per site.
type ScanOptions struct {
	Targets     []*ScrapeTarget
	Concurrency int

	OnSiteDone func(site string, products []models.Product, err error)
	OnLog      func(message string)

	// HTTPClient serves the JSON fast path. Nil means a default client.
	HTTPClient *http.Client
	// Seed makes per-site randomness reproducible; 0 seeds from the clock.
	Seed int64
	// DelayMin/DelayMax bound the humanization pause before each page visit.
	DelayMin time.Duration
	DelayMax time.Duration
	// ScrollPause is the wait after each infinite-scroll attempt.
	ScrollPause time.Duration
}

func (o *ScanOptions) withDefaults() ScanOptions {
	opts := *o
	if len(opts.Targets) == 0 {
		opts.Targets = BuiltinTargets()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = ScanConcurrency
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	return opts
}

// RunScan scrapes every target's search results for one query and returns
// the combined products. Per-site failures are contained and reported via
// OnSiteDone; the scan itself always completes.
func RunScan(ctx context.Context, session browser.Session, query string, opts ScanOptions) []models.Product {
	return runScan(ctx, session, "scan", opts, func(ctx context.Context, site *SiteScraper) ([]models.Product, error) {
		return site.Search(ctx, query)
	})
}

// RunScanAll crawls every target's full catalog.
func RunScanAll(ctx context.Context, session browser.Session, opts ScanOptions) []models.Product {
	return runScan(ctx, session, "scan-all", opts, func(ctx context.Context, site *SiteScraper) ([]models.Product, error) {
		return site.CrawlCatalog(ctx)
	})
}

func runScan(ctx context.Context, session browser.Session, mode string, options ScanOptions, scrape func(context.Context, *SiteScraper) ([]models.Product, error)) []models.Product {
	opts := options.withDefaults()
	logger := slog.Default().With("component", "scan", "mode", mode)

	narrate := func(message string) {
		logger.Info(message)
		if opts.OnLog != nil {
			opts.OnLog(message)
		}
	}
	narrate(mode + ": starting")

	var (
		mu      sync.Mutex
		results []models.Product
		wg      sync.WaitGroup
	)
	sem := make(chan struct{}, opts.Concurrency)

	for index, target := range opts.Targets {
		wg.Add(1)
		go func(index int, target *ScrapeTarget) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rng := rand.New(rand.NewSource(opts.Seed + int64(index)))
			siteOpts := &SiteScraperOptions{
				HTTPClient:  opts.HTTPClient,
				Rand:        rng,
				ScrollPause: opts.ScrollPause,
				OnLog:       opts.OnLog,
			}
			if opts.DelayMin != 0 || opts.DelayMax != 0 {
				siteOpts.Limiter = ratelimit.NewJittered(opts.DelayMin, opts.DelayMax, rng)
			}
			site := NewSiteScraper(session, target, siteOpts)

			products, err := scrape(ctx, site)
			if err != nil {
				logger.Warn("site scrape failed", "site", target.Name, "error", err)
			} else if len(products) > 0 {
				mu.Lock()
				results = append(results, products...)
				mu.Unlock()
			}
			if opts.OnSiteDone != nil {
				opts.OnSiteDone(target.Name, products, err)
			}
		}(index, target)
	}
	wg.Wait()

	narrate(fmt.Sprintf("%s: finished with %d products", mode, len(results)))
	return results
}
