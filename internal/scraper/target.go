package scraper

// DefaultMaxProducts caps the number of products collected per site and
// per scan.
const DefaultMaxProducts = 75

var defaultProductLinkSelectors = []string{
	"a[href*='/products/']",
	"a[href*='/product/']",
	"a[href*='/p/']",
	"a[data-testid*='product']",
	"a[class*='product']",
}

var defaultNameSelectors = []string{
	"[data-testid='product-title']",
	"[data-testid*='product-name']",
	"h1[itemprop='name']",
	"h1[class*='product']",
	"h1",
}

var defaultPriceSelectors = []string{
	"[data-testid*='price']",
	"[itemprop='price']",
	"[class*='price']",
	"[data-price]",
}

var defaultSizeSelectors = []string{
	"button[aria-label*='Size']",
	"[data-testid*='size'] button",
	"[class*='size'] button",
	"select[name*='size'] option",
}

var defaultAvailabilitySelectors = []string{
	"[data-testid*='availability']",
	"[class*='availability']",
	"[class*='stock']",
}

var defaultDescriptionSelectors = []string{
	"[data-testid='product-description']",
	"[class*='description']",
	"[itemprop='description']",
}

// ScrapeTarget is one site's scrape configuration: its identity, URLs, and
// ordered selector fallback chains per field. Targets are built once at
// startup and treated as immutable, except that a catalog URL discovered
// during a scan is cached back onto the target for reuse.
type ScrapeTarget struct {
	Name    string
	BaseURL string
	// SearchURL is a template; %s receives the URL-escaped query.
	SearchURL string

	ProductLinkSelectors  []string
	NameSelectors         []string
	PriceSelectors        []string
	SizeSelectors         []string
	AvailabilitySelectors []string
	DescriptionSelectors  []string

	// CatalogURL, when set, skips catalog discovery.
	CatalogURL string
	// PaginationSelector is tried before the generic "next" selectors.
	PaginationSelector string
	// PaginationParam overrides the query parameter used for the page-number
	// fallback URL. Empty means "page".
	PaginationParam string

	MaxProducts int
}

// NewTarget fills in the default selector chains and budget for any field
// left empty.
func NewTarget(target ScrapeTarget) *ScrapeTarget {
	if len(target.ProductLinkSelectors) == 0 {
		target.ProductLinkSelectors = defaultProductLinkSelectors
	}
	if len(target.NameSelectors) == 0 {
		target.NameSelectors = defaultNameSelectors
	}
	if len(target.PriceSelectors) == 0 {
		target.PriceSelectors = defaultPriceSelectors
	}
	if len(target.SizeSelectors) == 0 {
		target.SizeSelectors = defaultSizeSelectors
	}
	if len(target.AvailabilitySelectors) == 0 {
		target.AvailabilitySelectors = defaultAvailabilitySelectors
	}
	if len(target.DescriptionSelectors) == 0 {
		target.DescriptionSelectors = defaultDescriptionSelectors
	}
	if target.MaxProducts <= 0 {
		target.MaxProducts = DefaultMaxProducts
	}
	return &target
}

// BuiltinTargets returns the sites the service scans out of the box.
func BuiltinTargets() []*ScrapeTarget {
	return []*ScrapeTarget{
		NewTarget(ScrapeTarget{
			Name:       "allbirds",
			BaseURL:    "https://www.allbirds.com",
			SearchURL:  "https://www.allbirds.com/search?q=%s",
			CatalogURL: "https://www.allbirds.com/collections/womens",
		}),
		NewTarget(ScrapeTarget{
			Name:      "gymshark",
			BaseURL:   "https://www.gymshark.com",
			SearchURL: "https://www.gymshark.com/search?q=%s",
		}),
		NewTarget(ScrapeTarget{
			Name:            "everlane",
			BaseURL:         "https://www.everlane.com",
			SearchURL:       "https://www.everlane.com/search?q=%s",
			PaginationParam: "page",
		}),
	}
}
