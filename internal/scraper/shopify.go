package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// shopifyPageLimit is the page size requested from the products.json
// listing endpoint.
const shopifyPageLimit = 250

type shopifyListing struct {
	Products []struct {
		Handle string `json:"handle"`
	} `json:"products"`
}

// crawlShopifyCatalog is the fast pagination path for storefronts exposing
// a machine-readable collection listing. It applies only to catalog URLs
// with a collection path segment. Any transport, status, or decode failure
// abandons the whole path and returns nil so the caller falls back to the
// DOM crawl; an empty first page is a legitimate "no fast path" result, not
// an error.
func (s *SiteScraper) crawlShopifyCatalog(ctx context.Context, startURL string) []string {
	if !strings.Contains(startURL, "/collections/") {
		return nil
	}
	parsed, err := url.Parse(startURL)
	if err != nil {
		return nil
	}
	path := strings.TrimRight(parsed.Path, "/")
	if path == "" {
		return nil
	}
	base := fmt.Sprintf("%s://%s%s", parsed.Scheme, parsed.Host, path)

	seen := make(map[string]struct{})
	var collected []string

	for pageIndex := 1; len(collected) < s.target.MaxProducts; pageIndex++ {
		apiURL := fmt.Sprintf("%s/products.json?limit=%d&page=%d", base, shopifyPageLimit, pageIndex)
		listing, ok := s.fetchShopifyPage(ctx, apiURL)
		if !ok {
			return nil
		}
		if len(listing.Products) == 0 {
			break
		}
		for _, product := range listing.Products {
			if product.Handle == "" {
				continue
			}
			productURL := NormalizeURL(resolveURL(s.target.BaseURL, "/products/"+product.Handle))
			if _, dup := seen[productURL]; dup {
				continue
			}
			seen[productURL] = struct{}{}
			collected = append(collected, productURL)
			if len(collected) >= s.target.MaxProducts {
				break
			}
		}
	}

	if len(collected) == 0 {
		return nil
	}
	s.logf("%s: shopify catalog collected %d products", s.target.Name, len(collected))
	return collected
}

func (s *SiteScraper) fetchShopifyPage(ctx context.Context, apiURL string) (shopifyListing, bool) {
	var listing shopifyListing

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return listing, false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return listing, false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return listing, false
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return listing, false
	}
	return listing, true
}
