package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/threadscan/threadscan/internal/browser"
	"github.com/threadscan/threadscan/internal/models"
	"github.com/threadscan/threadscan/internal/parser"
)

// addToCartSelectors probe purchase buttons as a last-resort availability
// signal. A present, disabled button implies out of stock.
var addToCartSelectors = []string{
	"button:has-text('Add to Cart')",
	"button:has-text('Add to Bag')",
	"button:has-text('Add to Basket')",
}

// scrapeProduct builds one product record from its detail page. Navigation
// failure or a missing name yields (nil, nil): no record, not fatal. Every
// field runs a DOM-selector-first, structured-data-fallback chain, except
// sizes which are DOM-only.
func (s *SiteScraper) scrapeProduct(ctx context.Context, productURL string) (*models.Product, error) {
	page, err := s.session.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	if err := page.Goto(productURL, productPageTimeout); err != nil {
		s.logf("%s: product page error (%v)", s.target.Name, err)
		return nil, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	structured := s.extractStructuredData(page)

	name := s.firstText(page, s.target.NameSelectors)
	if name == "" {
		name = structured.Name
	}
	if name == "" {
		s.logf("%s: skipped product without name", s.target.Name)
		return nil, nil
	}

	price := s.firstText(page, s.target.PriceSelectors)
	if price == "" {
		price = structured.Price
	}

	sizes := parser.FilterSizes(s.allTexts(page, s.target.SizeSelectors))

	availability := s.availabilityFromDOM(page)
	if availability == "" {
		availability = structured.Availability
	}
	if availability == "" {
		availability = s.availabilityFromCartButton(page)
	}

	description := s.firstText(page, s.target.DescriptionSelectors)
	if description != "" {
		description = parser.CleanDescription(description)
	} else {
		description = structured.Description
	}

	return &models.Product{
		Site:         s.target.Name,
		Name:         name,
		Price:        price,
		URL:          productURL,
		Sizes:        sizes,
		Availability: availability,
		Description:  description,
	}, nil
}

// extractStructuredData pulls the page HTML once and mines it for a JSON-LD
// Product block. Any failure just means "no structured data".
func (s *SiteScraper) extractStructuredData(page browser.Page) parser.StructuredProduct {
	html, err := page.Content()
	if err != nil {
		return parser.StructuredProduct{}
	}
	structured, _ := parser.ProductFromHTML(html)
	return structured
}

// firstText returns the cleaned inner text of the first selector in the
// chain that has a non-empty match.
func (s *SiteScraper) firstText(page browser.Page, selectors []string) string {
	for _, selector := range selectors {
		locator := page.Locator(selector)
		count, err := locator.Count()
		if err != nil || count == 0 {
			continue
		}
		text, err := locator.First().InnerText()
		if err != nil {
			continue
		}
		if cleaned := parser.CleanText(text); cleaned != "" {
			return cleaned
		}
	}
	return ""
}

// allTexts returns the cleaned inner texts of every match of the first
// selector in the chain that yields any.
func (s *SiteScraper) allTexts(page browser.Page, selectors []string) []string {
	for _, selector := range selectors {
		locator := page.Locator(selector)
		count, err := locator.Count()
		if err != nil || count == 0 {
			continue
		}
		texts, err := locator.AllInnerTexts()
		if err != nil {
			continue
		}
		var cleaned []string
		for _, text := range texts {
			if c := parser.CleanText(text); c != "" {
				cleaned = append(cleaned, c)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return nil
}

func (s *SiteScraper) availabilityFromDOM(page browser.Page) string {
	text := s.firstText(page, s.target.AvailabilitySelectors)
	if text == "" {
		return ""
	}
	if normalized := parser.NormalizeAvailability(text); normalized != "" {
		return normalized
	}
	if strings.Contains(strings.ToLower(text), "low stock") {
		return models.AvailabilityInStock
	}
	return ""
}

func (s *SiteScraper) availabilityFromCartButton(page browser.Page) string {
	for _, selector := range addToCartSelectors {
		locator := page.Locator(selector)
		count, err := locator.Count()
		if err != nil || count == 0 {
			continue
		}
		disabled, err := locator.First().IsDisabled()
		if err != nil {
			disabled = false
		}
		if disabled {
			return models.AvailabilityOutOfStock
		}
		return models.AvailabilityInStock
	}
	return ""
}
