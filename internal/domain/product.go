package domain

import "time"

// Product is the read model of a catalog product as seen by the discovery
// engine. The engine never mutates it; all writes happen in the catalog
// service and reach us through events.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	CategoryID    string    `json:"category_id"`
	CategoryName  string    `json:"category_name"`
	CategorySlug  string    `json:"category_slug"`
	ImageURL      string    `json:"image_url"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Rating Rating `json:"rating"`

	// Popularity is derived from recent demand, see indexer.
	Popularity float64 `json:"popularity"`
}

// Rating holds review aggregates for a product.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	// Distribution maps star value (1-5) to review count.
	Distribution map[int]int `json:"distribution,omitempty"`
}
