package catalog

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/campfinder-assistant/server/internal/agent/model"
)

// MemoryCatalog serves a fixed listing set. It backs local runs without a
// database and the recommendation tests.
type MemoryCatalog struct {
	listings []model.Listing
}

func NewMemoryCatalog(listings []model.Listing) *MemoryCatalog {
	return &MemoryCatalog{listings: listings}
}

// NewSeededCatalog returns a MemoryCatalog filled with SeedListings.
func NewSeededCatalog() *MemoryCatalog {
	return NewMemoryCatalog(SeedListings)
}

func (c *MemoryCatalog) CountListingsWithAmenity(ctx context.Context, name string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	want := strings.TrimSpace(name)
	n := 0
	for _, l := range c.listings {
		if hasAnyAmenity(l, []string{want}) {
			n++
		}
	}
	return n, nil
}

func (c *MemoryCatalog) SearchListings(ctx context.Context, filter model.ListingFilter) ([]model.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loc := strings.ToLower(strings.TrimSpace(filter.Location))
	var matched []model.Listing
	for _, l := range c.listings {
		if loc != "" &&
			!strings.Contains(strings.ToLower(l.City), loc) &&
			!strings.Contains(strings.ToLower(l.Country), loc) {
			continue
		}
		if len(filter.Amenities) > 0 && !hasAnyAmenity(l, filter.Amenities) {
			continue
		}
		if filter.MinPrice != nil && l.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && l.Price > *filter.MaxPrice {
			continue
		}
		if l.Capacity < filter.MinCapacity {
			continue
		}
		if slices.Contains(filter.ExcludeIDs, l.ID) {
			continue
		}
		matched = append(matched, l)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Price != matched[j].Price {
			return matched[i].Price < matched[j].Price
		}
		return matched[i].ID < matched[j].ID
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func hasAnyAmenity(l model.Listing, names []string) bool {
	for _, have := range l.Amenities {
		for _, want := range names {
			if strings.EqualFold(have, strings.TrimSpace(want)) {
				return true
			}
		}
	}
	return false
}

var SeedListings = []model.Listing{
	{
		ID:        "spot-001",
		Title:     "Pine Ridge Lakeside Site",
		Price:     45,
		City:      "Lake Tahoe",
		Country:   "United States",
		Capacity:  6,
		Amenities: []string{"Fire pit", "Restroom", "Picnic table", "Lake access"},
		ImageURLs: []string{"https://images.campfinder.example/spot-001/1.jpg"},
	},
	{
		ID:        "spot-002",
		Title:     "Emerald Bay Tent Platform",
		Price:     62,
		City:      "Lake Tahoe",
		Country:   "United States",
		Capacity:  4,
		Amenities: []string{"BBQ grill", "Shower", "Wifi"},
		ImageURLs: []string{"https://images.campfinder.example/spot-002/1.jpg"},
	},
	{
		ID:        "spot-003",
		Title:     "Half Dome View Meadow",
		Price:     38,
		City:      "Yosemite",
		Country:   "United States",
		Capacity:  8,
		Amenities: []string{"Fire pit", "Composting toilet", "Hiking trails"},
		ImageURLs: []string{"https://images.campfinder.example/spot-003/1.jpg"},
	},
	{
		ID:        "spot-004",
		Title:     "Redwood Creek Cabin Camp",
		Price:     110,
		City:      "Big Sur",
		Country:   "United States",
		Capacity:  5,
		Amenities: []string{"Hot tub", "Electricity", "Shower", "Restroom"},
		ImageURLs: []string{"https://images.campfinder.example/spot-004/1.jpg"},
	},
	{
		ID:        "spot-005",
		Title:     "Banff Glacier Basecamp",
		Price:     75,
		City:      "Banff",
		Country:   "Canada",
		Capacity:  4,
		Amenities: []string{"Fire pit", "Restroom", "Pet friendly"},
		ImageURLs: []string{"https://images.campfinder.example/spot-005/1.jpg"},
	},
	{
		ID:        "spot-006",
		Title:     "Lakeside Glamping Dome",
		Price:     150,
		City:      "Lake District",
		Country:   "United Kingdom",
		Capacity:  2,
		Amenities: []string{"Electricity", "Wifi", "Shower", "Sauna"},
		ImageURLs: []string{"https://images.campfinder.example/spot-006/1.jpg"},
	},
	{
		ID:        "spot-007",
		Title:     "Desert Star Primitive Site",
		Price:     20,
		City:      "Joshua Tree",
		Country:   "United States",
		Capacity:  3,
		Amenities: []string{"Fire pit"},
		ImageURLs: []string{"https://images.campfinder.example/spot-007/1.jpg"},
	},
}
