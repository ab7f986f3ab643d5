package model

import "strings"

// EntityKind tags one variant of an NLU entity.
type EntityKind string

const (
	KindLocation EntityKind = "location"
	KindAmenity  EntityKind = "amenity"
	KindFeature  EntityKind = "feature"
	KindNumber   EntityKind = "number"
	KindPrice    EntityKind = "price"
	KindCountry  EntityKind = "country"
	KindDate     EntityKind = "date"
	KindUnknown  EntityKind = ""
)

// ParseEntityKind normalises the type tags NLU backends emit (e.g. "guests",
// "location.city", "daterange") onto the known kinds.
func ParseEntityKind(tag string) EntityKind {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, ".:"); i > 0 {
		tag = tag[:i]
	}
	switch tag {
	case "location", "city", "place", "region":
		return KindLocation
	case "amenity", "amenities", "facility":
		return KindAmenity
	case "feature", "features", "nearby", "nearbyfeature":
		return KindFeature
	case "number", "guests", "guestcount", "quantity", "people":
		return KindNumber
	case "price", "budget", "money", "currency":
		return KindPrice
	case "country":
		return KindCountry
	case "date", "daterange", "datetime", "season":
		return KindDate
	default:
		return KindUnknown
	}
}

// RawEntity is one entity as returned by the NLU engine.
type RawEntity struct {
	Kind       EntityKind `json:"entity"`
	SourceText string     `json:"sourceText"`
	// Option is the canonical value when the engine resolved one (e.g. "Fire pit", "max").
	Option   string   `json:"option,omitempty"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// Value prefers the resolved option over the literal source text.
func (e RawEntity) Value() string {
	if v := strings.TrimSpace(e.Option); v != "" {
		return v
	}
	return strings.TrimSpace(e.SourceText)
}

// Confidence defaults to 1 when the engine gave no accuracy.
func (e RawEntity) Confidence() float64 {
	if e.Accuracy == nil {
		return 1
	}
	return *e.Accuracy
}

// ExtractedEntities is the per-message output of the entity pipeline.
type ExtractedEntities struct {
	Location             *string             `json:"location"`
	LocationConfidence   float64             `json:"locationConfidence"`
	Amenities            []string            `json:"amenities"`
	Features             []string            `json:"features"`
	PriceRange           PriceRange          `json:"priceRange"`
	GuestCount           *int                `json:"guestCount,omitempty"`
	DateRange            DateRange           `json:"dateRange"`
	Countries            []string            `json:"countries"`
	Sentiment            float64             `json:"sentiment"`
	IntentConfidence     float64             `json:"intentConfidence"`
	MultiPart            bool                `json:"multiPart"`
	InvalidAmenities     []string            `json:"invalidAmenities"`
	AlternativeAmenities map[string][]string `json:"alternativeAmenities"`
	// Confidence is the averaged per-kind confidence of NLU-sourced entities.
	Confidence map[EntityKind]float64 `json:"confidence,omitempty"`
}

// NewExtractedEntities returns an empty, non-nil extraction.
func NewExtractedEntities() *ExtractedEntities {
	return &ExtractedEntities{
		Amenities:            []string{},
		Features:             []string{},
		Countries:            []string{},
		InvalidAmenities:     []string{},
		AlternativeAmenities: map[string][]string{},
		Confidence:           map[EntityKind]float64{},
	}
}
