package model

import (
	"strings"
	"time"
)

// StateInitial is the only phase tag the dialogue currently uses.
const StateInitial = "initial"

// DateRange is a resolved stay window. Start <= End whenever both are set.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// IsZero reports whether neither bound is set.
func (d DateRange) IsZero() bool {
	return d.Start == nil && d.End == nil
}

// PriceRange holds independent optional bounds.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IsZero reports whether neither bound is set.
func (p PriceRange) IsZero() bool {
	return p.Min == nil && p.Max == nil
}

// SearchCriteria is the snapshot of preferences used for one catalog query.
type SearchCriteria struct {
	Location   string     `json:"location,omitempty"`
	DateRange  DateRange  `json:"dateRange"`
	GuestCount int        `json:"guestCount,omitempty"`
	PriceRange PriceRange `json:"priceRange"`
	Amenities  []string   `json:"amenities,omitempty"`
	Features   []string   `json:"nearbyFeatures,omitempty"`
}

// SearchRecord is appended to Preferences.PreviousSearches after each successful query.
type SearchRecord struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Timestamp   time.Time      `json:"timestamp"`
	Criteria    SearchCriteria `json:"criteria"`
	ResultCount int            `json:"resultCount"`
}

// Preferences accumulate across turns. Amenities and RejectedRecommendationIDs have
// set semantics (case-insensitive for amenities) but are kept as ordered slices.
type Preferences struct {
	Location                  string         `json:"location,omitempty"`
	DateRange                 DateRange      `json:"dateRange"`
	GuestCount                int            `json:"guestCount,omitempty"`
	PriceRange                PriceRange     `json:"priceRange"`
	Amenities                 []string       `json:"amenities"`
	NearbyFeatures            []string       `json:"nearbyFeatures"`
	PreviousSearches          []SearchRecord `json:"previousSearches"`
	RejectedRecommendationIDs []string       `json:"rejectedRecommendationIds"`
}

// Criteria returns the searchable subset of the preferences.
func (p Preferences) Criteria() SearchCriteria {
	return SearchCriteria{
		Location:   p.Location,
		DateRange:  p.DateRange,
		GuestCount: p.GuestCount,
		PriceRange: p.PriceRange,
		Amenities:  append([]string(nil), p.Amenities...),
		Features:   append([]string(nil), p.NearbyFeatures...),
	}
}

// AddAmenities unions names into the amenity set.
func (p *Preferences) AddAmenities(names ...string) {
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || containsFold(p.Amenities, n) {
			continue
		}
		p.Amenities = append(p.Amenities, n)
	}
}

// Reject adds listing ids to the rejected set.
func (p *Preferences) Reject(ids ...string) {
	for _, id := range ids {
		if id == "" || contains(p.RejectedRecommendationIDs, id) {
			continue
		}
		p.RejectedRecommendationIDs = append(p.RejectedRecommendationIDs, id)
	}
}

// Recommendation is the cached summary of a listing shown to the user.
type Recommendation struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Price     float64  `json:"price"`
	Location  string   `json:"location"`
	Amenities []string `json:"amenities"`
	ImageURLs []string `json:"imageUrls"`
	Capacity  int      `json:"capacity"`
}

// SessionContext holds dialogue context that is not a search preference.
type SessionContext struct {
	Countries               []string         `json:"countries"`
	LastRecommendations     []Recommendation `json:"lastRecommendations"`
	LastPositiveFeedbackAt  *time.Time       `json:"lastPositiveFeedbackAt,omitempty"`
	ReadyForRecommendations bool             `json:"readyForRecommendations"`
}

// RecommendationIDs lists the ids of the cached recommendations in order.
func (c SessionContext) RecommendationIDs() []string {
	ids := make([]string, 0, len(c.LastRecommendations))
	for _, r := range c.LastRecommendations {
		ids = append(ids, r.ID)
	}
	return ids
}

// Metrics count turns. len(SentimentScores) == MessageCount at the end of each turn.
type Metrics struct {
	MessageCount    int       `json:"messageCount"`
	QuestionCount   int       `json:"questionCount"`
	SentimentScores []float64 `json:"sentimentScores"`
}

// ConversationSession is the per-user dialogue state.
type ConversationSession struct {
	UserID         string         `json:"userId"`
	State          string         `json:"state"`
	Preferences    Preferences    `json:"preferences"`
	Context        SessionContext `json:"context"`
	Metrics        Metrics        `json:"metrics"`
	CreatedAt      time.Time      `json:"createdAt"`
	LastActivityAt time.Time      `json:"lastActivityAt"`
}

// NewSession returns a session with default preferences.
func NewSession(userID string, now time.Time) *ConversationSession {
	return &ConversationSession{
		UserID: userID,
		State:  StateInitial,
		Preferences: Preferences{
			Amenities:                 []string{},
			NearbyFeatures:            []string{},
			PreviousSearches:          []SearchRecord{},
			RejectedRecommendationIDs: []string{},
		},
		Context: SessionContext{
			Countries:           []string{},
			LastRecommendations: []Recommendation{},
		},
		Metrics:        Metrics{SentimentScores: []float64{}},
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s *ConversationSession) Clone() *ConversationSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Preferences.DateRange = cloneDateRange(s.Preferences.DateRange)
	c.Preferences.PriceRange = clonePriceRange(s.Preferences.PriceRange)
	c.Preferences.Amenities = cloneStrings(s.Preferences.Amenities)
	c.Preferences.NearbyFeatures = cloneStrings(s.Preferences.NearbyFeatures)
	c.Preferences.RejectedRecommendationIDs = cloneStrings(s.Preferences.RejectedRecommendationIDs)
	c.Preferences.PreviousSearches = make([]SearchRecord, len(s.Preferences.PreviousSearches))
	for i, rec := range s.Preferences.PreviousSearches {
		rec.Criteria.DateRange = cloneDateRange(rec.Criteria.DateRange)
		rec.Criteria.PriceRange = clonePriceRange(rec.Criteria.PriceRange)
		rec.Criteria.Amenities = cloneStrings(rec.Criteria.Amenities)
		rec.Criteria.Features = cloneStrings(rec.Criteria.Features)
		c.Preferences.PreviousSearches[i] = rec
	}
	c.Context.Countries = cloneStrings(s.Context.Countries)
	c.Context.LastRecommendations = make([]Recommendation, len(s.Context.LastRecommendations))
	for i, r := range s.Context.LastRecommendations {
		r.Amenities = cloneStrings(r.Amenities)
		r.ImageURLs = cloneStrings(r.ImageURLs)
		c.Context.LastRecommendations[i] = r
	}
	if s.Context.LastPositiveFeedbackAt != nil {
		t := *s.Context.LastPositiveFeedbackAt
		c.Context.LastPositiveFeedbackAt = &t
	}
	c.Metrics.SentimentScores = append([]float64{}, s.Metrics.SentimentScores...)
	return &c
}

func cloneDateRange(d DateRange) DateRange {
	var out DateRange
	if d.Start != nil {
		t := *d.Start
		out.Start = &t
	}
	if d.End != nil {
		t := *d.End
		out.End = &t
	}
	return out
}

func clonePriceRange(p PriceRange) PriceRange {
	var out PriceRange
	if p.Min != nil {
		v := *p.Min
		out.Min = &v
	}
	if p.Max != nil {
		v := *p.Max
		out.Max = &v
	}
	return out
}

func cloneStrings(in []string) []string {
	return append([]string{}, in...)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
