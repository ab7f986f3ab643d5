package recommend

import (
	"strconv"
	"strings"
	"time"

	"github.com/campfinder-assistant/server/internal/agent/model"
	errx "github.com/campfinder-assistant/server/internal/core/error"
)

// DateOverride is the partial date range a client may send.
type DateOverride struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// PriceOverride is the partial price range a client may send.
type PriceOverride struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// PreferenceOverrides is the partial preference object of a recommendation
// request. Set fields win over the stored preferences.
type PreferenceOverrides struct {
	Location       *string        `json:"location,omitempty"`
	DateRange      *DateOverride  `json:"dateRange,omitempty"`
	GuestCount     *int           `json:"guestCount,omitempty"`
	PriceRange     *PriceOverride `json:"priceRange,omitempty"`
	Amenities      []string       `json:"amenities,omitempty"`
	NearbyFeatures []string       `json:"nearbyFeatures,omitempty"`
}

// Validate returns an errx.Validation error naming every bad field.
func (o *PreferenceOverrides) Validate() error {
	if o == nil {
		return nil
	}
	fields := map[string]string{}

	if o.GuestCount != nil && *o.GuestCount < 0 {
		fields["preferences.guestCount"] = "must not be negative"
	}
	if pr := o.PriceRange; pr != nil {
		if pr.Min != nil && *pr.Min < 0 {
			fields["preferences.priceRange.min"] = "must not be negative"
		}
		if pr.Max != nil && *pr.Max < 0 {
			fields["preferences.priceRange.max"] = "must not be negative"
		}
		if pr.Min != nil && pr.Max != nil && *pr.Min > *pr.Max {
			fields["preferences.priceRange"] = "min must not exceed max"
		}
	}
	if dr := o.DateRange; dr != nil && dr.Start != nil && dr.End != nil && dr.End.Before(*dr.Start) {
		fields["preferences.dateRange"] = "end must not be before start"
	}
	for i, a := range o.Amenities {
		if strings.TrimSpace(a) == "" {
			fields["preferences.amenities"] = "entry " + strconv.Itoa(i) + " is empty"
			break
		}
	}

	if len(fields) > 0 {
		return errx.Validation(fields)
	}
	return nil
}

// MergePreferences applies the overrides field by field on a copy of stored.
// Each price bound is taken independently.
func MergePreferences(stored model.Preferences, o *PreferenceOverrides) model.Preferences {
	merged := stored
	merged.Amenities = append([]string{}, stored.Amenities...)
	merged.NearbyFeatures = append([]string{}, stored.NearbyFeatures...)
	if o == nil {
		return merged
	}

	if o.Location != nil && strings.TrimSpace(*o.Location) != "" {
		merged.Location = strings.TrimSpace(*o.Location)
	}
	if o.DateRange != nil && o.DateRange.Start != nil {
		merged.DateRange = model.DateRange{Start: o.DateRange.Start, End: o.DateRange.End}
	}
	if o.GuestCount != nil && *o.GuestCount > 0 {
		merged.GuestCount = *o.GuestCount
	}
	if o.PriceRange != nil {
		if o.PriceRange.Min != nil {
			v := *o.PriceRange.Min
			merged.PriceRange.Min = &v
		}
		if o.PriceRange.Max != nil {
			v := *o.PriceRange.Max
			merged.PriceRange.Max = &v
		}
	}
	if len(o.Amenities) > 0 {
		merged.Amenities = []string{}
		merged.AddAmenities(o.Amenities...)
	}
	if len(o.NearbyFeatures) > 0 {
		merged.NearbyFeatures = append([]string{}, o.NearbyFeatures...)
	}
	return merged
}

// BuildFilter turns merged preferences into a catalog query.
func BuildFilter(p model.Preferences, limit int) model.ListingFilter {
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	return model.ListingFilter{
		Location:    p.Location,
		Amenities:   append([]string{}, p.Amenities...),
		MinPrice:    p.PriceRange.Min,
		MaxPrice:    p.PriceRange.Max,
		MinCapacity: p.GuestCount,
		ExcludeIDs:  append([]string{}, p.RejectedRecommendationIDs...),
		Limit:       limit,
	}
}
