package domain

import "github.com/shopspring/decimal"

// Prices are written as JSON numbers, matching products.json and the
// persisted cart format.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Tags        []string        `json:"tags"`
}
