package scraper

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addProductPage(session *fakeSession, url, name string) {
	session.addPage(url, &fakePageData{
		selectors: map[string][]fakeElement{
			"h1": {text(name)},
		},
	})
}

func TestSearch(t *testing.T) {
	session := newFakeSession()
	session.addPage("https://fakeshop.example/search?q=wool+tee", &fakePageData{
		selectors: map[string][]fakeElement{
			"a[href*='/products/']": {
				link("/products/tee-1"),
				link("/products/tee-2"),
				link("/products/tee-1"),
				link("/pages/about"),
			},
		},
	})
	addProductPage(session, "https://fakeshop.example/products/tee-1", "Tee One")
	addProductPage(session, "https://fakeshop.example/products/tee-2", "Tee Two")

	s := newTestScraper(session, testTarget())
	products, err := s.Search(context.Background(), "wool tee")
	require.NoError(t, err)

	require.Len(t, products, 2)
	assert.Equal(t, "Tee One", products[0].Name)
	assert.Equal(t, "Tee Two", products[1].Name)
}

func TestSearchListingFailure(t *testing.T) {
	session := newFakeSession()

	s := newTestScraper(session, testTarget())
	_, err := s.Search(context.Background(), "anything")
	assert.Error(t, err)
}

func TestSearchFailingProductPagesSkipped(t *testing.T) {
	session := newFakeSession()
	session.addPage("https://fakeshop.example/search?q=tee", &fakePageData{
		selectors: map[string][]fakeElement{
			"a[href*='/products/']": {
				link("/products/good"),
				link("/products/broken"),
			},
		},
	})
	addProductPage(session, "https://fakeshop.example/products/good", "Good Tee")

	s := newTestScraper(session, testTarget())
	products, err := s.Search(context.Background(), "tee")
	require.NoError(t, err)

	require.Len(t, products, 1)
	assert.Equal(t, "Good Tee", products[0].Name)
}

func TestScrapeProductsHonorsBudget(t *testing.T) {
	session := newFakeSession()
	target := testTarget()
	target.MaxProducts = 3

	var urls []string
	for i := 0; i < 6; i++ {
		url := fmt.Sprintf("https://fakeshop.example/products/item-%d", i)
		addProductPage(session, url, fmt.Sprintf("Item %d", i))
		urls = append(urls, url)
	}

	s := newTestScraper(session, target)
	products, err := s.scrapeProducts(context.Background(), urls)
	require.NoError(t, err)
	assert.Len(t, products, 3)
}

func TestDiscoverCatalogURL(t *testing.T) {
	session := newFakeSession()
	// /collections/all 404s; /collections loads but has no product links;
	// /shop is the first page with products.
	session.addPage("https://fakeshop.example/collections", &fakePageData{})
	session.addPage("https://fakeshop.example/shop", &fakePageData{
		selectors: map[string][]fakeElement{
			"a[href*='/products/']": {link("/products/tee")},
		},
	})

	target := testTarget()
	s := newTestScraper(session, target)
	catalogURL, err := s.discoverCatalogURL(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://fakeshop.example/shop", catalogURL)
	assert.Equal(t, "https://fakeshop.example/shop", target.CatalogURL, "discovery is cached on the target")
}

func TestDiscoverCatalogURLUsesConfigured(t *testing.T) {
	session := newFakeSession()
	target := testTarget()
	target.CatalogURL = "https://fakeshop.example/collections/womens"

	s := newTestScraper(session, target)
	catalogURL, err := s.discoverCatalogURL(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://fakeshop.example/collections/womens", catalogURL)
	assert.Empty(t, session.visited(), "no probing when the catalog is known")
}

func TestDiscoverCatalogURLNotFound(t *testing.T) {
	session := newFakeSession()

	s := newTestScraper(session, testTarget())
	catalogURL, err := s.discoverCatalogURL(context.Background())
	require.NoError(t, err)
	assert.Empty(t, catalogURL)
}

func TestCrawlCatalogMissingCatalogYieldsNothing(t *testing.T) {
	session := newFakeSession()

	s := newTestScraper(session, testTarget())
	products, err := s.CrawlCatalog(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}
