package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/threadscan/threadscan/internal/browser"
	"github.com/threadscan/threadscan/internal/metrics"
	"github.com/threadscan/threadscan/internal/models"
)

// Service runs scans on demand. Each scan launches its own browser session,
// shares it across all site tasks, and tears it down when the scan ends.
type Service struct {
	browserOpts *browser.Options
	scanOpts    ScanOptions
	metrics     *metrics.Metrics
	logger      *slog.Logger

	// newSession is swappable for tests.
	newSession func() (browser.Session, func(), error)
}

func NewService(browserOpts *browser.Options, scanOpts ScanOptions, m *metrics.Metrics) *Service {
	s := &Service{
		browserOpts: browserOpts,
		scanOpts:    scanOpts.withDefaults(),
		metrics:     m,
		logger:      slog.Default().With("component", "scan_service"),
	}
	s.newSession = func() (browser.Session, func(), error) {
		b, err := browser.New(s.browserOpts)
		if err != nil {
			return nil, nil, err
		}
		return b, func() {
			if err := b.Close(); err != nil {
				s.logger.Error("failed to close browser", "error", err)
			}
		}, nil
	}
	return s
}

// Sites reports how many targets a scan covers.
func (s *Service) Sites() int {
	return len(s.scanOpts.Targets)
}

// Scan runs a single-query search scan across all targets.
func (s *Service) Scan(ctx context.Context, query string, onSiteDone func(string, []models.Product, error), onLog func(string)) ([]models.Product, error) {
	return s.run(ctx, "scan", onSiteDone, onLog, func(ctx context.Context, session browser.Session, opts ScanOptions) []models.Product {
		return RunScan(ctx, session, query, opts)
	})
}

// ScanAll runs a full catalog crawl across all targets.
func (s *Service) ScanAll(ctx context.Context, onSiteDone func(string, []models.Product, error), onLog func(string)) ([]models.Product, error) {
	return s.run(ctx, "scan-all", onSiteDone, onLog, func(ctx context.Context, session browser.Session, opts ScanOptions) []models.Product {
		return RunScanAll(ctx, session, opts)
	})
}

func (s *Service) run(ctx context.Context, mode string, onSiteDone func(string, []models.Product, error), onLog func(string), scan func(context.Context, browser.Session, ScanOptions) []models.Product) ([]models.Product, error) {
	session, cleanup, err := s.newSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	defer cleanup()

	if s.metrics != nil {
		s.metrics.ScansTotal.WithLabelValues(mode).Inc()
	}
	started := time.Now()

	opts := s.scanOpts
	opts.OnLog = onLog
	opts.OnSiteDone = func(site string, products []models.Product, err error) {
		if s.metrics != nil {
			outcome := "ok"
			if err != nil {
				outcome = "failed"
			}
			s.metrics.SitesTotal.WithLabelValues(outcome).Inc()
		}
		if onSiteDone != nil {
			onSiteDone(site, products, err)
		}
	}

	results := scan(ctx, session, opts)

	if s.metrics != nil {
		s.metrics.ScanDuration.Observe(time.Since(started).Seconds())
		s.metrics.ProductsScraped.Add(float64(len(results)))
	}
	return results, nil
}
