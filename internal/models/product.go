package models

// Availability states reported for a product. An empty string means the
// engine could not determine availability from any source.
const (
	AvailabilityInStock    = "in_stock"
	AvailabilityOutOfStock = "out_of_stock"
)

// Product is one normalized product record emitted by a site scan.
// Name is the only required field; a product without a name is dropped
// before a record is ever built.
type Product struct {
	Site         string   `json:"site"`
	Name         string   `json:"name"`
	Price        string   `json:"price,omitempty"`
	URL          string   `json:"url"`
	Sizes        []string `json:"sizes"`
	Availability string   `json:"availability,omitempty"`
	Description  string   `json:"description,omitempty"`
}
