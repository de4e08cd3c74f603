package scraper

import (
	"net/url"
	"strconv"
	"strings"
)

var trackingParams = map[string]struct{}{
	"cid":          {},
	"session":      {},
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"gclid":        {},
	"fbclid":       {},
}

// NormalizeURL strips tracking query parameters and returns the canonical
// form used for dedup. Scheme, host, path, and all other query parameters
// are preserved. Unparseable input is returned unchanged.
func NormalizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := parsed.Query()
	for key := range query {
		if _, tracked := trackingParams[key]; tracked || strings.HasPrefix(key, "utm_") {
			query.Del(key)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// withPaginationParam returns raw with the given query parameter set to the
// page number, replacing any previous value.
func withPaginationParam(raw, param string, page int) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := parsed.Query()
	query.Set(param, strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// resolveURL resolves href against base, tolerating absolute hrefs.
func resolveURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// isProductURL reports whether a link looks like a product detail page.
func isProductURL(raw string) bool {
	for _, segment := range []string{"/product/", "/products/", "/p/"} {
		if strings.Contains(raw, segment) {
			return true
		}
	}
	return false
}
