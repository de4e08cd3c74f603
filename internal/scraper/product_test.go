package scraper

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadscan/threadscan/internal/browser"
	"github.com/threadscan/threadscan/internal/models"
	"github.com/threadscan/threadscan/internal/ratelimit"
)

func newTestScraper(session browser.Session, target *ScrapeTarget) *SiteScraper {
	return NewSiteScraper(session, target, &SiteScraperOptions{
		Limiter:     ratelimit.NewJittered(0, 0, nil),
		Rand:        rand.New(rand.NewSource(1)),
		ScrollPause: time.Millisecond,
	})
}

func testTarget() *ScrapeTarget {
	return NewTarget(ScrapeTarget{
		Name:      "fakeshop",
		BaseURL:   "https://fakeshop.example",
		SearchURL: "https://fakeshop.example/search?q=%s",
	})
}

func TestScrapeProductFromDOM(t *testing.T) {
	session := newFakeSession()
	session.addPage("https://fakeshop.example/products/tee", &fakePageData{
		selectors: map[string][]fakeElement{
			"h1":                      {text("Organic  Tee")},
			"[class*='price']":        {text("$35")},
			"[class*='size'] button":  {text("XS"), text("S"), text("M")},
			"[class*='availability']": {text("In Stock")},
			"[class*='description']":  {text("Soft organic cotton. This site uses cookies for analytics.")},
		},
	})

	s := newTestScraper(session, testTarget())
	product, err := s.scrapeProduct(context.Background(), "https://fakeshop.example/products/tee")
	require.NoError(t, err)
	require.NotNil(t, product)

	assert.Equal(t, "fakeshop", product.Site)
	assert.Equal(t, "Organic Tee", product.Name)
	assert.Equal(t, "$35", product.Price)
	assert.Equal(t, "https://fakeshop.example/products/tee", product.URL)
	assert.Equal(t, []string{"XS", "S", "M"}, product.Sizes)
	assert.Equal(t, models.AvailabilityInStock, product.Availability)
	assert.Equal(t, "Soft organic cotton.", product.Description)
}

func TestScrapeProductStructuredDataFallback(t *testing.T) {
	session := newFakeSession()
	session.addPage("https://fakeshop.example/products/runner", &fakePageData{
		html: `<html><head><script type="application/ld+json">{
			"@type": "Product",
			"name": "Wool Runner",
			"description": "A breathable everyday sneaker.",
			"offers": {"price": "49.00", "availability": "https://schema.org/InStock"}
		}</script></head></html>`,
	})

	s := newTestScraper(session, testTarget())
	product, err := s.scrapeProduct(context.Background(), "https://fakeshop.example/products/runner")
	require.NoError(t, err)
	require.NotNil(t, product)

	assert.Equal(t, "Wool Runner", product.Name)
	assert.Equal(t, "49.00", product.Price)
	assert.Equal(t, models.AvailabilityInStock, product.Availability)
	assert.Equal(t, "A breathable everyday sneaker.", product.Description)
	assert.Empty(t, product.Sizes)
}

func TestScrapeProductDOMAvailabilityWins(t *testing.T) {
	session := newFakeSession()
	session.addPage("https://fakeshop.example/products/tee", &fakePageData{
		selectors: map[string][]fakeElement{
			"h1":                      {text("Tee")},
			"[class*='availability']": {text("Sold Out")},
		},
		html: `<html><script type="application/ld+json">{
			"@type": "Product", "name": "Tee",
			"offers": {"availability": "https://schema.org/InStock"}
		}</script></html>`,
	})

	s := newTestScraper(session, testTarget())
	product, err := s.scrapeProduct(context.Background(), "https://fakeshop.example/products/tee")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, models.AvailabilityOutOfStock, product.Availability)
}

func TestScrapeProductCartButtonFallback(t *testing.T) {
	tests := []struct {
		name     string
		disabled bool
		expected string
	}{
		{"enabled button means in stock", false, models.AvailabilityInStock},
		{"disabled button means out of stock", true, models.AvailabilityOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newFakeSession()
			session.addPage("https://fakeshop.example/products/tee", &fakePageData{
				selectors: map[string][]fakeElement{
					"h1": {text("Tee")},
					"button:has-text('Add to Cart')": {{text: "Add to Cart", disabled: tt.disabled}},
				},
			})

			s := newTestScraper(session, testTarget())
			product, err := s.scrapeProduct(context.Background(), "https://fakeshop.example/products/tee")
			require.NoError(t, err)
			require.NotNil(t, product)
			assert.Equal(t, tt.expected, product.Availability)
		})
	}
}

func TestScrapeProductNoAvailabilitySignal(t *testing.T) {
	session := newFakeSession()
	session.addPage("https://fakeshop.example/products/tee", &fakePageData{
		selectors: map[string][]fakeElement{"h1": {text("Tee")}},
	})

	s := newTestScraper(session, testTarget())
	product, err := s.scrapeProduct(context.Background(), "https://fakeshop.example/products/tee")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Empty(t, product.Availability)
}

func TestScrapeProductWithoutNameSkipped(t *testing.T) {
	session := newFakeSession()
	session.addPage("https://fakeshop.example/products/mystery", &fakePageData{
		selectors: map[string][]fakeElement{
			"[class*='price']": {text("$10")},
		},
	})

	s := newTestScraper(session, testTarget())
	product, err := s.scrapeProduct(context.Background(), "https://fakeshop.example/products/mystery")
	require.NoError(t, err)
	assert.Nil(t, product)
}

func TestScrapeProductNavigationFailureSkipped(t *testing.T) {
	session := newFakeSession()

	s := newTestScraper(session, testTarget())
	product, err := s.scrapeProduct(context.Background(), "https://fakeshop.example/products/gone")
	require.NoError(t, err)
	assert.Nil(t, product)
}
