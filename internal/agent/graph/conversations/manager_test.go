package conversations

import (
	"context"
	"testing"
	"time"

	"github.com/campfinder-assistant/server/internal/agent/model"
	"github.com/campfinder-assistant/server/internal/agent/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func fPtr(f float64) *float64 { return &f }

func newTestManager(now time.Time) *SessionManager {
	store := repo.NewMemorySessionStore(20)
	return NewSessionManager(store, model.SessionConfig{RecentHistory: 3}).
		WithClock(func() time.Time { return now })
}

func TestSessionManager_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.April, 16, 10, 0, 0, 0, time.UTC)
	sm := newTestManager(now)

	s, err := sm.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.StateInitial, s.State)
	assert.Equal(t, 1, s.Metrics.MessageCount)
	assert.Equal(t, now, s.LastActivityAt)
	require.NoError(t, sm.Save(ctx, s))

	again, err := sm.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Metrics.MessageCount)

	loaded, err := sm.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Metrics.MessageCount, "Load does not count a message")
}

func TestSessionManager_History(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	sm := newTestManager(now)

	require.NoError(t, sm.AppendExchange(ctx, "u1", "hi", nil, "hello!", now))
	require.NoError(t, sm.AppendExchange(ctx, "u1", "near Moab", model.NewExtractedEntities(), "Moab it is", now))

	recent, err := sm.RecentHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, model.RoleBot, recent[0].Role)
	assert.Equal(t, "near Moab", recent[1].Message)
	assert.NotNil(t, recent[1].Entities)
	assert.Equal(t, "Moab it is", recent[2].Message)

	all, err := sm.History(ctx, "u1", 20)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestMergeEntities_Rules(t *testing.T) {
	s := model.NewSession("u1", time.Now())

	first := model.NewExtractedEntities()
	first.Location = strPtr("Lake Tahoe")
	first.LocationConfidence = 0.7
	first.Amenities = []string{"Fire pit"}
	first.Features = []string{"lake"}
	first.GuestCount = intPtr(4)
	first.PriceRange.Max = fPtr(50)
	first.Countries = []string{"USA"}
	MergeEntities(s, first)

	assert.Equal(t, "Lake Tahoe", s.Preferences.Location, "empty location is always filled")
	assert.Equal(t, []string{"USA"}, s.Context.Countries)

	second := model.NewExtractedEntities()
	second.Location = strPtr("Reno")
	second.LocationConfidence = 0.75
	second.Amenities = []string{"fire PIT", "Shower"}
	second.GuestCount = intPtr(2)
	second.PriceRange.Min = fPtr(20)
	MergeEntities(s, second)

	assert.Equal(t, "Lake Tahoe", s.Preferences.Location, "weak location does not override")
	assert.Equal(t, []string{"Fire pit", "Shower"}, s.Preferences.Amenities)
	assert.Equal(t, []string{"lake"}, s.Preferences.NearbyFeatures, "no features keeps the old ones")
	assert.Equal(t, 4, s.Preferences.GuestCount, "guests never decrease")
	require.NotNil(t, s.Preferences.PriceRange.Min)
	require.NotNil(t, s.Preferences.PriceRange.Max)
	assert.Equal(t, 20.0, *s.Preferences.PriceRange.Min)
	assert.Equal(t, 50.0, *s.Preferences.PriceRange.Max)

	start := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	third := model.NewExtractedEntities()
	third.Location = strPtr("Yosemite")
	third.LocationConfidence = 0.9
	third.Features = []string{"river"}
	third.GuestCount = intPtr(6)
	third.DateRange = model.DateRange{Start: &start, End: &end}
	MergeEntities(s, third)

	assert.Equal(t, "Yosemite", s.Preferences.Location)
	assert.Equal(t, []string{"river"}, s.Preferences.NearbyFeatures)
	assert.Equal(t, 6, s.Preferences.GuestCount)
	require.NotNil(t, s.Preferences.DateRange.Start)
	assert.Equal(t, start, *s.Preferences.DateRange.Start)
}

func TestRecordTurnMetrics(t *testing.T) {
	ctx := context.Background()
	sm := newTestManager(time.Now())

	for _, msg := range []string{"hi", "any spots near Moab?", "great"} {
		s, err := sm.GetOrCreate(ctx, "u1")
		require.NoError(t, err)
		RecordTurnMetrics(s, msg, 0.1)
		require.NoError(t, sm.Save(ctx, s))
	}

	s, err := sm.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Metrics.MessageCount)
	assert.Equal(t, 1, s.Metrics.QuestionCount)
	assert.Len(t, s.Metrics.SentimentScores, s.Metrics.MessageCount)
}

func TestRecordRejectionAndMinimumCriteria(t *testing.T) {
	s := model.NewSession("u1", time.Now())
	assert.False(t, HasMinimumSearchCriteria(s.Preferences))

	RecordRejection(s, []string{"a", "b"})
	RecordRejection(s, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, s.Preferences.RejectedRecommendationIDs)
	assert.False(t, HasMinimumSearchCriteria(s.Preferences))

	s.Preferences.GuestCount = 2
	assert.True(t, HasMinimumSearchCriteria(s.Preferences))
}
