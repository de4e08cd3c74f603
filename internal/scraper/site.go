package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/threadscan/threadscan/internal/browser"
	"github.com/threadscan/threadscan/internal/models"
	"github.com/threadscan/threadscan/internal/ratelimit"
)

const (
	productPageTimeout = 45 * time.Second
	listingTimeout     = 60 * time.Second

	defaultScrollPause = 1200 * time.Millisecond
	defaultDelayMin    = 600 * time.Millisecond
	defaultDelayMax    = 1400 * time.Millisecond
)

// catalogPaths are probed in order when a target has no known catalog URL.
var catalogPaths = []string{
	"/collections/all",
	"/collections",
	"/shop",
	"/all",
	"/products",
}

// SiteScraperOptions tune pacing and randomness. Zero values get production
// defaults; tests inject a seeded Rand and zero delays.
type SiteScraperOptions struct {
	HTTPClient  *http.Client
	Limiter     ratelimit.Limiter
	Rand        *rand.Rand
	ScrollPause time.Duration
	OnLog       func(message string)
}

// SiteScraper runs one site's scan: discovery, pagination, and product page
// extraction. It owns no pages across calls; every navigation opens and
// closes its own tab on the shared session.
type SiteScraper struct {
	session     browser.Session
	target      *ScrapeTarget
	client      *http.Client
	limiter     ratelimit.Limiter
	rng         *rand.Rand
	scrollPause time.Duration
	logger      *slog.Logger
	onLog       func(string)
}

func NewSiteScraper(session browser.Session, target *ScrapeTarget, opts *SiteScraperOptions) *SiteScraper {
	if opts == nil {
		opts = &SiteScraperOptions{}
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: productPageTimeout}
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewJittered(defaultDelayMin, defaultDelayMax, opts.Rand)
	}
	scrollPause := opts.ScrollPause
	if scrollPause == 0 {
		scrollPause = defaultScrollPause
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SiteScraper{
		session:     session,
		target:      target,
		client:      client,
		limiter:     limiter,
		rng:         rng,
		scrollPause: scrollPause,
		logger:      slog.Default().With("component", "site_scraper", "site", target.Name),
		onLog:       opts.OnLog,
	}
}

func (s *SiteScraper) logf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	s.logger.Info(message)
	if s.onLog != nil {
		s.onLog(message)
	}
}

// Search navigates the target's search URL for one query and scrapes the
// product links found there, without catalog pagination.
func (s *SiteScraper) Search(ctx context.Context, query string) ([]models.Product, error) {
	searchURL := fmt.Sprintf(s.target.SearchURL, url.QueryEscape(query))
	s.logf("%s: searching %s", s.target.Name, searchURL)

	productURLs, err := s.collectFromListing(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	s.logf("%s: found %d product links", s.target.Name, len(productURLs))
	return s.scrapeProducts(ctx, productURLs)
}

// CrawlCatalog discovers the target's catalog and paginates through it,
// scraping every collected product page. A missing catalog is not an error;
// the site simply yields nothing.
func (s *SiteScraper) CrawlCatalog(ctx context.Context) ([]models.Product, error) {
	catalogURL, err := s.discoverCatalogURL(ctx)
	if err != nil {
		return nil, err
	}
	if catalogURL == "" {
		s.logf("%s: catalog not found, skipping", s.target.Name)
		return nil, nil
	}

	s.logf("%s: catalog start %s", s.target.Name, catalogURL)
	productURLs := s.crawlCatalogURLs(ctx, catalogURL)
	s.logf("%s: collected %d catalog products", s.target.Name, len(productURLs))
	return s.scrapeProducts(ctx, productURLs)
}

// scrapeProducts visits product pages sequentially up to the budget. A
// failing product is logged and skipped; it never aborts the site.
func (s *SiteScraper) scrapeProducts(ctx context.Context, productURLs []string) ([]models.Product, error) {
	if len(productURLs) > s.target.MaxProducts {
		productURLs = productURLs[:s.target.MaxProducts]
	}
	var results []models.Product
	for index, productURL := range productURLs {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		s.logf("%s: scraping product %d/%d", s.target.Name, index+1, s.target.MaxProducts)
		product, err := s.scrapeProduct(ctx, productURL)
		if err != nil {
			s.logf("%s: product failed (%v)", s.target.Name, err)
			continue
		}
		if product != nil {
			results = append(results, *product)
		}
	}
	s.logf("%s: scraped %d products", s.target.Name, len(results))
	return results, nil
}

// discoverCatalogURL probes the candidate catalog paths and accepts the
// first whose page yields at least one product link. The discovery is cached
// back onto the target.
func (s *SiteScraper) discoverCatalogURL(ctx context.Context) (string, error) {
	if s.target.CatalogURL != "" {
		return s.target.CatalogURL, nil
	}
	page, err := s.session.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	for _, path := range catalogPaths {
		candidate := resolveURL(s.target.BaseURL, path)
		if err := page.Goto(candidate, listingTimeout); err != nil {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
		if urls := s.collectProductURLs(page); len(urls) > 0 {
			s.target.CatalogURL = candidate
			return candidate, nil
		}
	}
	return "", nil
}

// collectFromListing opens one listing page and gathers its product links.
func (s *SiteScraper) collectFromListing(ctx context.Context, listingURL string) ([]string, error) {
	page, err := s.session.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	if err := page.Goto(listingURL, listingTimeout); err != nil {
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.collectProductURLs(page), nil
}

// collectProductURLs walks the product-link selector chain; the first
// selector yielding links wins for this page.
func (s *SiteScraper) collectProductURLs(page browser.Page) []string {
	var urls []string
	seen := make(map[string]struct{})
	for _, selector := range s.target.ProductLinkSelectors {
		locator := page.Locator(selector)
		count, err := locator.Count()
		if err != nil || count == 0 {
			continue
		}
		for i := 0; i < count; i++ {
			href, err := locator.Nth(i).GetAttribute("href")
			if err != nil || href == "" {
				continue
			}
			absolute := resolveURL(s.target.BaseURL, href)
			if !isProductURL(absolute) {
				continue
			}
			if _, ok := seen[absolute]; ok {
				continue
			}
			seen[absolute] = struct{}{}
			urls = append(urls, absolute)
		}
		if len(urls) > 0 {
			break
		}
	}
	return urls
}

// maybeScrollForMore runs a bounded number of scroll-and-wait passes for
// infinite-scroll listings and keeps whichever pass saw the most links.
func (s *SiteScraper) maybeScrollForMore(ctx context.Context, page browser.Page, current []string) []string {
	attempts := 2 + s.rng.Intn(3)
	best := current
	for i := 0; i < attempts; i++ {
		if _, err := page.Evaluate("window.scrollTo(0, document.body.scrollHeight)"); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			return best
		case <-time.After(s.scrollPause):
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return best
		}
		fresh := s.collectProductURLs(page)
		if len(fresh) > len(best) {
			best = fresh
		}
		if len(best) >= s.target.MaxProducts {
			break
		}
	}
	return best
}
