package scraper

import (
	"context"

	"github.com/threadscan/threadscan/internal/browser"
)

const defaultPaginationParam = "page"

// paginationSelectors locate a structural "next" link; a site-specific
// override is tried first.
var paginationSelectors = []string{
	"a[rel='next']",
	"a[aria-label*='Next']",
	"a:has-text('Next')",
	"button:has-text('Next')",
}

// crawlState is the ephemeral bookkeeping of one catalog crawl.
type crawlState struct {
	collected []string            // product URLs, in discovery order
	seen      map[string]struct{} // normalized product URLs
	visited   map[string]struct{} // pagination page URLs, cycle guard
}

// crawlCatalogURLs enumerates product URLs starting from the catalog page.
// The Shopify JSON fast path is tried first; if it's not applicable or
// fails, the generic DOM crawl takes over. Pagination prefers a structural
// "next" link while keeping a query-param fallback one step behind, which
// recovers from misdetected next links without looping: a page URL seen
// twice stops the crawl unconditionally.
func (s *SiteScraper) crawlCatalogURLs(ctx context.Context, startURL string) []string {
	if urls := s.crawlShopifyCatalog(ctx, startURL); len(urls) > 0 {
		return urls
	}

	state := &crawlState{
		seen:    make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
	currentURL := startURL
	pendingFallback := ""
	pageIndex := 1

	for currentURL != "" && len(state.collected) < s.target.MaxProducts {
		if _, ok := state.visited[currentURL]; ok {
			break
		}
		state.visited[currentURL] = struct{}{}

		productURLs, nextURL, fallbackURL, err := s.visitCatalogPage(ctx, currentURL, pageIndex+1)
		if err != nil {
			s.logf("%s: catalog page error (%v)", s.target.Name, err)
			break
		}

		newCount := 0
		for _, productURL := range productURLs {
			normalized := NormalizeURL(productURL)
			if _, ok := state.seen[normalized]; ok {
				continue
			}
			state.seen[normalized] = struct{}{}
			state.collected = append(state.collected, productURL)
			newCount++
			if len(state.collected) >= s.target.MaxProducts {
				break
			}
		}

		if len(productURLs) == 0 || newCount == 0 {
			// Before giving up, retry the page-parameter guess computed on
			// the previous page, in case the structural next link was wrong.
			if pendingFallback != "" {
				if _, ok := state.visited[pendingFallback]; !ok {
					currentURL = pendingFallback
					pendingFallback = ""
					pageIndex++
					continue
				}
			}
			break
		}

		pendingFallback = ""
		if fallbackURL != "" && nextURL != "" && fallbackURL != nextURL {
			pendingFallback = fallbackURL
		}

		if nextURL == "" {
			break
		}
		if _, ok := state.visited[nextURL]; ok {
			break
		}
		currentURL = nextURL
		pageIndex++
	}

	return state.collected
}

// visitCatalogPage loads one pagination page, gathers its product links
// (scrolling for infinite-scroll listings), and works out where to go next.
func (s *SiteScraper) visitCatalogPage(ctx context.Context, pageURL string, nextPage int) (productURLs []string, nextURL, fallbackURL string, err error) {
	page, err := s.session.NewPage()
	if err != nil {
		return nil, "", "", err
	}
	defer page.Close()

	if err := page.Goto(pageURL, listingTimeout); err != nil {
		return nil, "", "", err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, "", "", err
	}

	productURLs = s.collectProductURLs(page)
	productURLs = s.maybeScrollForMore(ctx, page, productURLs)
	nextURL, fallbackURL = s.findNextPageURL(page, pageURL, nextPage)
	return productURLs, nextURL, fallbackURL, nil
}

// findNextPageURL searches the next-link selector chain. When a link is
// found, its href becomes the structural next URL and a page-parameter
// increment of the current URL is returned as the fallback. With no link at
// all, the parameter increment itself is the best guess and there is no
// separate fallback.
func (s *SiteScraper) findNextPageURL(page browser.Page, currentURL string, nextPage int) (string, string) {
	param := s.target.PaginationParam
	if param == "" {
		param = defaultPaginationParam
	}

	selectors := paginationSelectors
	if s.target.PaginationSelector != "" {
		selectors = append([]string{s.target.PaginationSelector}, paginationSelectors...)
	}
	for _, selector := range selectors {
		locator := page.Locator(selector)
		count, err := locator.Count()
		if err != nil || count == 0 {
			continue
		}
		href, err := locator.First().GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		nextURL := resolveURL(s.target.BaseURL, href)
		fallbackURL := withPaginationParam(currentURL, param, nextPage)
		return nextURL, fallbackURL
	}

	return withPaginationParam(currentURL, param, nextPage), ""
}
