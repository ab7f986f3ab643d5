package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfinder-assistant/server/internal/agent/catalog"
	"github.com/campfinder-assistant/server/internal/agent/graph/conversations"
	"github.com/campfinder-assistant/server/internal/agent/model"
	"github.com/campfinder-assistant/server/internal/agent/repo"
	errx "github.com/campfinder-assistant/server/internal/core/error"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string { return &v }
func intp(v int) *int { return &v }

var testNow = time.Date(2025, time.April, 16, 10, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	records []model.SearchRecord
	err     error
}

func (p *recordingPublisher) PublishSearch(_ context.Context, rec model.SearchRecord) error {
	p.records = append(p.records, rec)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type failingCatalog struct{}

func (failingCatalog) SearchListings(context.Context, model.ListingFilter) ([]model.Listing, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func newBuilder(t *testing.T, c model.ListingCatalog, pub *recordingPublisher) (*Builder, *repo.MemorySessionStore) {
	t.Helper()
	store := repo.NewMemorySessionStore(20)
	sm := conversations.NewSessionManager(store, model.SessionConfig{}).
		WithClock(func() time.Time { return testNow })
	return NewBuilder(Options{
		Sessions:  sm,
		Catalog:   c,
		Publisher: pub,
		Config:    model.RecommendConfig{MaxResults: 5},
	}), store
}

func TestMergePreferences_PriceBoundsIndependent(t *testing.T) {
	stored := model.Preferences{PriceRange: model.PriceRange{Min: f64(20)}}

	merged := MergePreferences(stored, &PreferenceOverrides{PriceRange: &PriceOverride{Max: f64(50)}})

	require.NotNil(t, merged.PriceRange.Min)
	require.NotNil(t, merged.PriceRange.Max)
	assert.Equal(t, 20.0, *merged.PriceRange.Min)
	assert.Equal(t, 50.0, *merged.PriceRange.Max)
	assert.Nil(t, stored.PriceRange.Max, "stored preferences are not mutated")
}

func TestMergePreferences_FieldByField(t *testing.T) {
	start := testNow.AddDate(0, 0, 3)
	stored := model.Preferences{
		Location:       "Yosemite",
		GuestCount:     4,
		Amenities:      []string{"Fire pit"},
		NearbyFeatures: []string{"lake"},
	}

	tests := []struct {
		name  string
		in    *PreferenceOverrides
		check func(t *testing.T, p model.Preferences)
	}{
		{
			name: "nil keeps stored",
			in:   nil,
			check: func(t *testing.T, p model.Preferences) {
				assert.Equal(t, "Yosemite", p.Location)
				assert.Equal(t, 4, p.GuestCount)
			},
		},
		{
			name: "location wins",
			in:   &PreferenceOverrides{Location: str("Banff")},
			check: func(t *testing.T, p model.Preferences) {
				assert.Equal(t, "Banff", p.Location)
				assert.Equal(t, []string{"Fire pit"}, p.Amenities)
			},
		},
		{
			name: "blank location ignored",
			in:   &PreferenceOverrides{Location: str("  ")},
			check: func(t *testing.T, p model.Preferences) {
				assert.Equal(t, "Yosemite", p.Location)
			},
		},
		{
			name: "guest count replaced",
			in:   &PreferenceOverrides{GuestCount: intp(2)},
			check: func(t *testing.T, p model.Preferences) {
				assert.Equal(t, 2, p.GuestCount)
			},
		},
		{
			name: "amenities replaced and deduplicated",
			in:   &PreferenceOverrides{Amenities: []string{"Shower", "shower", "Wifi"}},
			check: func(t *testing.T, p model.Preferences) {
				assert.Equal(t, []string{"Shower", "Wifi"}, p.Amenities)
				assert.Equal(t, []string{"lake"}, p.NearbyFeatures)
			},
		},
		{
			name: "dates replaced",
			in:   &PreferenceOverrides{DateRange: &DateOverride{Start: &start}},
			check: func(t *testing.T, p model.Preferences) {
				require.NotNil(t, p.DateRange.Start)
				assert.True(t, p.DateRange.Start.Equal(start))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, MergePreferences(stored, tt.in))
		})
	}
}

func TestPreferenceOverrides_Validate(t *testing.T) {
	var nilOverrides *PreferenceOverrides
	assert.NoError(t, nilOverrides.Validate())

	start := testNow
	end := testNow.AddDate(0, 0, -1)
	err := (&PreferenceOverrides{
		GuestCount: intp(-1),
		PriceRange: &PriceOverride{Min: f64(80), Max: f64(40)},
		DateRange:  &DateOverride{Start: &start, End: &end},
		Amenities:  []string{"Wifi", " "},
	}).Validate()
	require.Error(t, err)

	var appErr *errx.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errx.KindValidation, appErr.Kind)
	assert.Equal(t, 400, appErr.Status)
	assert.Contains(t, appErr.Fields, "preferences.guestCount")
	assert.Contains(t, appErr.Fields, "preferences.priceRange")
	assert.Contains(t, appErr.Fields, "preferences.dateRange")
	assert.Equal(t, "entry 1 is empty", appErr.Fields["preferences.amenities"])

	err = (&PreferenceOverrides{PriceRange: &PriceOverride{Min: f64(-5)}}).Validate()
	require.Error(t, err)
	assert.Equal(t, errx.KindValidation, errx.KindOf(err))
}

func TestBuildFilter(t *testing.T) {
	p := model.Preferences{
		Location:                  "Lake Tahoe",
		GuestCount:                3,
		Amenities:                 []string{"Fire pit"},
		PriceRange:                model.PriceRange{Max: f64(60)},
		RejectedRecommendationIDs: []string{"spot-002"},
	}

	f := BuildFilter(p, 0)
	assert.Equal(t, "Lake Tahoe", f.Location)
	assert.Equal(t, 3, f.MinCapacity)
	assert.Equal(t, []string{"Fire pit"}, f.Amenities)
	assert.Nil(t, f.MinPrice)
	assert.Equal(t, 60.0, *f.MaxPrice)
	assert.Equal(t, []string{"spot-002"}, f.ExcludeIDs)
	assert.Equal(t, DefaultMaxResults, f.Limit)
}

func TestBuilder_RecommendCachesAndRecords(t *testing.T) {
	pub := &recordingPublisher{}
	b, store := newBuilder(t, catalog.NewSeededCatalog(), pub)
	ctx := context.Background()

	s := model.NewSession("u1", testNow)
	s.Preferences.Location = "Lake Tahoe"
	s.Preferences.PriceRange.Min = f64(20)
	s.Metrics.MessageCount = 2
	require.NoError(t, store.Put(ctx, s))

	res, err := b.Recommend(ctx, Request{
		UserID:      "u1",
		Preferences: &PreferenceOverrides{PriceRange: &PriceOverride{Max: f64(50)}},
	})
	require.NoError(t, err)

	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, "spot-001", res.Recommendations[0].ID)
	assert.Equal(t, "Lake Tahoe, United States", res.Recommendations[0].Location)
	assert.Equal(t, "I found 1 camping spot that matches what you're looking for.", res.Message)
	assert.Equal(t, 20.0, *res.SearchCriteria.PriceRange.Min)
	assert.Equal(t, 50.0, *res.SearchCriteria.PriceRange.Max)

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"spot-001"}, got.Context.RecommendationIDs())
	require.Len(t, got.Preferences.PreviousSearches, 1)
	rec := got.Preferences.PreviousSearches[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 1, rec.ResultCount)
	assert.Equal(t, testNow, rec.Timestamp)
	assert.Nil(t, got.Preferences.PriceRange.Max, "overrides are not persisted")
	assert.Equal(t, 2, got.Metrics.MessageCount, "recommendation requests are not messages")

	require.Len(t, pub.records, 1)
	assert.Equal(t, rec.ID, pub.records[0].ID)
}

func TestBuilder_ExcludesRejected(t *testing.T) {
	b, store := newBuilder(t, catalog.NewSeededCatalog(), &recordingPublisher{})
	ctx := context.Background()

	s := model.NewSession("u1", testNow)
	s.Preferences.Location = "tahoe"
	s.Preferences.Reject("spot-001")
	require.NoError(t, store.Put(ctx, s))

	res, err := b.Recommend(ctx, Request{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, "spot-002", res.Recommendations[0].ID)
}

func TestBuilder_NewUserWithoutPreferences(t *testing.T) {
	b, store := newBuilder(t, catalog.NewSeededCatalog(), &recordingPublisher{})

	res, err := b.Recommend(context.Background(), Request{UserID: "fresh"})
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, DefaultMaxResults)
	assert.Equal(t, 1, store.Len())
}

func TestBuilder_CatalogFailureLeavesSessionUntouched(t *testing.T) {
	pub := &recordingPublisher{}
	b, store := newBuilder(t, failingCatalog{}, pub)
	ctx := context.Background()

	s := model.NewSession("u1", testNow.Add(-time.Hour))
	s.Context.LastRecommendations = []model.Recommendation{{ID: "old"}}
	require.NoError(t, store.Put(ctx, s))

	_, err := b.Recommend(ctx, Request{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, errx.KindCatalogUnavailable, errx.KindOf(err))
	assert.Equal(t, 503, errx.From(err).Status)

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, got.Context.RecommendationIDs())
	assert.Empty(t, got.Preferences.PreviousSearches)
	assert.Equal(t, testNow.Add(-time.Hour), got.LastActivityAt)
	assert.Empty(t, pub.records)
}

func TestBuilder_InvalidOverridesRejectedBeforeLoad(t *testing.T) {
	b, store := newBuilder(t, catalog.NewSeededCatalog(), &recordingPublisher{})

	_, err := b.Recommend(context.Background(), Request{
		UserID:      "u1",
		Preferences: &PreferenceOverrides{GuestCount: intp(-2)},
	})
	require.Error(t, err)
	assert.Equal(t, errx.KindValidation, errx.KindOf(err))
	assert.Zero(t, store.Len())
}

func TestBuilder_PublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	b, _ := newBuilder(t, catalog.NewSeededCatalog(), pub)

	res, err := b.Recommend(context.Background(), Request{UserID: "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Recommendations)
}
