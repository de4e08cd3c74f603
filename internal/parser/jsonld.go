package parser

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StructuredProduct carries the fields recovered from an embedded JSON-LD
// Product block. Empty fields were simply not present (or unparseable).
type StructuredProduct struct {
	Name         string
	Price        string
	Availability string
	Description  string
}

// ProductFromHTML scans page HTML for application/ld+json blocks and returns
// the first one that is, or contains, a schema.org Product. Malformed blocks
// are skipped silently. The second return reports whether anything was found.
func ProductFromHTML(html string) (StructuredProduct, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return StructuredProduct{}, false
	}

	var product StructuredProduct
	found := false
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return true
		}
		var payload interface{}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return true
		}
		if p, ok := findProduct(payload); ok {
			product = p
			found = true
			return false
		}
		return true
	})
	return product, found
}

// findProduct walks lists and @graph wrappers recursively looking for the
// first object typed as Product.
func findProduct(payload interface{}) (StructuredProduct, bool) {
	switch value := payload.(type) {
	case []interface{}:
		for _, item := range value {
			if p, ok := findProduct(item); ok {
				return p, true
			}
		}
	case map[string]interface{}:
		if value["@type"] == "Product" {
			return extractProductFields(value), true
		}
		if graph, ok := value["@graph"]; ok {
			return findProduct(graph)
		}
	}
	return StructuredProduct{}, false
}

func extractProductFields(product map[string]interface{}) StructuredProduct {
	var result StructuredProduct
	if name, ok := product["name"].(string); ok {
		result.Name = CleanText(name)
	}
	if description, ok := product["description"].(string); ok {
		result.Description = CleanDescription(description)
	}

	offers := product["offers"]
	if list, ok := offers.([]interface{}); ok && len(list) > 0 {
		offers = list[0]
	}
	offer, ok := offers.(map[string]interface{})
	if !ok {
		return result
	}

	price := offer["price"]
	if price == nil {
		if spec, ok := offer["priceSpecification"].(map[string]interface{}); ok {
			price = spec["price"]
		}
	}
	switch v := price.(type) {
	case string:
		result.Price = v
	case float64:
		result.Price = strconv.FormatFloat(v, 'f', -1, 64)
	}

	if availability, ok := offer["availability"].(string); ok {
		result.Availability = NormalizeAvailability(availability)
	}
	return result
}
