package model

import (
	"context"
	"strings"
)

// Listing is a bookable camping spot as stored in the catalog.
type Listing struct {
	ID        string   `json:"id" db:"id"`
	Title     string   `json:"title" db:"title"`
	Price     float64  `json:"price" db:"price"`
	City      string   `json:"city" db:"city"`
	Country   string   `json:"country" db:"country"`
	Capacity  int      `json:"capacity" db:"capacity"`
	Amenities []string `json:"amenities"`
	ImageURLs []string `json:"imageUrls"`
}

// Location renders "City, Country" skipping empty parts.
func (l Listing) Location() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{l.City, l.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Recommendation converts the listing into its cached summary.
func (l Listing) Recommendation() Recommendation {
	return Recommendation{
		ID:        l.ID,
		Title:     l.Title,
		Price:     l.Price,
		Location:  l.Location(),
		Amenities: append([]string{}, l.Amenities...),
		ImageURLs: append([]string{}, l.ImageURLs...),
		Capacity:  l.Capacity,
	}
}

// ListingFilter is the catalog query built from merged preferences.
type ListingFilter struct {
	Location    string
	Amenities   []string
	MinPrice    *float64
	MaxPrice    *float64
	MinCapacity int
	ExcludeIDs  []string
	Limit       int
}

// AmenityCatalog answers whether an amenity name exists in any listing.
type AmenityCatalog interface {
	// CountListingsWithAmenity matches the name case-insensitively.
	CountListingsWithAmenity(ctx context.Context, name string) (int, error)
}

// ListingCatalog finds bookable spots.
type ListingCatalog interface {
	SearchListings(ctx context.Context, filter ListingFilter) ([]Listing, error)
}
