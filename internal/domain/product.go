package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents one catalog entry. Title and Price are the only
// required fields; everything the scraper could not extract lives in
// Details and is omitted from serialized output.
type Product struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	Title     string         `json:"title" db:"title"`
	Price     string         `json:"price" db:"price"`
	Category  string         `json:"category" db:"category"`
	Details   ProductDetails `json:"details" db:"details"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// ProductDetails holds the optional scraped fields, persisted as a
// JSONB document. Prices are kept as formatted display strings, the
// way the marketplace renders them.
type ProductDetails struct {
	OriginalPrice string   `json:"original_price,omitempty"`
	Discount      string   `json:"discount,omitempty"`
	Rating        string   `json:"rating,omitempty"`
	Reviews       string   `json:"reviews,omitempty"`
	Description   string   `json:"description,omitempty"`
	Features      []string `json:"features,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	Link          string   `json:"link,omitempty"`
}

// ProductFields is the extractor's output before persistence.
type ProductFields struct {
	Title   string
	Price   string
	Details ProductDetails
}

// Category is a named partition of products. Name is unique and
// capitalized at the boundary.
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
