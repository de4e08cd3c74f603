package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scan service on a dedicated
// registry.
type Metrics struct {
	Registry        *prometheus.Registry
	ScansTotal      *prometheus.CounterVec
	ScanDuration    prometheus.Histogram
	SitesTotal      *prometheus.CounterVec
	ProductsScraped prometheus.Counter
}

// New constructs and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	scans := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadscan_scans_total",
			Help: "Total scans started, by mode.",
		},
		[]string{"mode"},
	)
	scanDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threadscan_scan_duration_seconds",
			Help:    "Wall-clock duration of whole scans.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
	sites := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadscan_sites_total",
			Help: "Per-site scrape outcomes.",
		},
		[]string{"outcome"},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "threadscan_products_scraped_total",
			Help: "Total product records emitted.",
		},
	)

	registry.MustRegister(scans, scanDuration, sites, products)

	return &Metrics{
		Registry:        registry,
		ScansTotal:      scans,
		ScanDuration:    scanDuration,
		SitesTotal:      sites,
		ProductsScraped: products,
	}
}
