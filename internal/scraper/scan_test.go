package scraper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadscan/threadscan/internal/models"
)

func scanTestTargets() []*ScrapeTarget {
	return []*ScrapeTarget{
		NewTarget(ScrapeTarget{
			Name:      "shop-a",
			BaseURL:   "https://shop-a.example",
			SearchURL: "https://shop-a.example/search?q=%s",
		}),
		NewTarget(ScrapeTarget{
			Name:      "shop-b",
			BaseURL:   "https://shop-b.example",
			SearchURL: "https://shop-b.example/search?q=%s",
		}),
	}
}

func scanTestOptions(targets []*ScrapeTarget) ScanOptions {
	return ScanOptions{
		Targets:     targets,
		Seed:        1,
		DelayMin:    time.Nanosecond,
		DelayMax:    time.Nanosecond,
		ScrollPause: time.Millisecond,
	}
}

func TestRunScanAggregatesSites(t *testing.T) {
	session := newFakeSession()
	session.addPage("https://shop-a.example/search?q=tee", &fakePageData{
		selectors: map[string][]fakeElement{
			"a[href*='/products/']": {link("/products/a-tee")},
		},
	})
	addProductPage(session, "https://shop-a.example/products/a-tee", "A Tee")
	session.addPage("https://shop-b.example/search?q=tee", &fakePageData{
		selectors: map[string][]fakeElement{
			"a[href*='/products/']": {link("/products/b-tee")},
		},
	})
	addProductPage(session, "https://shop-b.example/products/b-tee", "B Tee")

	results := RunScan(context.Background(), session, "tee", scanTestOptions(scanTestTargets()))

	require.Len(t, results, 2)
	names := []string{results[0].Name, results[1].Name}
	assert.ElementsMatch(t, []string{"A Tee", "B Tee"}, names)
}

func TestRunScanIsolatesSiteFailures(t *testing.T) {
	session := newFakeSession()
	// Only shop-a works; shop-b's search page fails to load.
	session.addPage("https://shop-a.example/search?q=tee", &fakePageData{
		selectors: map[string][]fakeElement{
			"a[href*='/products/']": {link("/products/a-tee")},
		},
	})
	addProductPage(session, "https://shop-a.example/products/a-tee", "A Tee")

	var (
		mu       sync.Mutex
		outcomes = map[string]error{}
		calls    = map[string]int{}
	)
	opts := scanTestOptions(scanTestTargets())
	opts.OnSiteDone = func(site string, products []models.Product, err error) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[site] = err
		calls[site]++
	}

	results := RunScan(context.Background(), session, "tee", opts)

	require.Len(t, results, 1)
	assert.Equal(t, "A Tee", results[0].Name)

	assert.NoError(t, outcomes["shop-a"])
	assert.Error(t, outcomes["shop-b"])
	assert.Equal(t, map[string]int{"shop-a": 1, "shop-b": 1}, calls,
		"every site reports exactly once")
}

func TestRunScanEmitsLogs(t *testing.T) {
	session := newFakeSession()

	var (
		mu   sync.Mutex
		logs []string
	)
	opts := scanTestOptions(scanTestTargets())
	opts.OnLog = func(message string) {
		mu.Lock()
		defer mu.Unlock()
		logs = append(logs, message)
	}

	RunScan(context.Background(), session, "tee", opts)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, logs)
	assert.Equal(t, "scan: starting", logs[0])
	assert.Equal(t, "scan: finished with 0 products", logs[len(logs)-1])
}

func TestRunScanAllUsesCatalogs(t *testing.T) {
	session := newFakeSession()
	targets := []*ScrapeTarget{
		NewTarget(ScrapeTarget{
			Name:       "shop-a",
			BaseURL:    "https://shop-a.example",
			SearchURL:  "https://shop-a.example/search?q=%s",
			CatalogURL: "https://shop-a.example/shop",
		}),
	}
	session.addPage("https://shop-a.example/shop", &fakePageData{
		selectors: map[string][]fakeElement{
			"a[href*='/products/']": {link("/products/a-tee")},
		},
	})
	addProductPage(session, "https://shop-a.example/products/a-tee", "A Tee")

	results := RunScanAll(context.Background(), session, scanTestOptions(targets))

	require.Len(t, results, 1)
	assert.Equal(t, "A Tee", results[0].Name)
}
