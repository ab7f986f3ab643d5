package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/campfinder-assistant/server/internal/agent/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNLU struct {
	res   *model.NLUResult
	err   error
	delay time.Duration
}

func (s stubNLU) Process(ctx context.Context, _, _ string) (*model.NLUResult, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.res, s.err
}

type stubSentiment struct {
	score float64
	err   error
}

func (s stubSentiment) Analyze(context.Context, string) (float64, error) {
	return s.score, s.err
}

// amenityCounts is a case-insensitive fake catalog.
type amenityCounts struct {
	counts map[string]int
	err    error
	calls  atomic.Int32
}

func (a *amenityCounts) CountListingsWithAmenity(_ context.Context, name string) (int, error) {
	a.calls.Add(1)
	if a.err != nil {
		return 0, a.err
	}
	return a.counts[strings.ToLower(name)], nil
}

func conf(v float64) *float64 { return &v }

func newTestPipeline(nlu model.NLUEngine, sent model.SentimentAnalyzer, catalog model.AmenityCatalog) *Pipeline {
	return New(Options{
		NLU:       nlu,
		Sentiment: sent,
		Amenities: NewAmenityValidator(catalog),
		NLUConfig: model.NLUModelConfig{Locale: "en", Timeout: 50 * time.Millisecond},
		Config:    model.PipelineConfig{SentimentTimeout: 50 * time.Millisecond, LocationFallbackConfidence: 0.7, DefaultStayDays: 3},
	})
}

func TestPipeline_RoutesEntities(t *testing.T) {
	nlu := stubNLU{res: &model.NLUResult{
		Intent: "search.multi",
		Score:  0.92,
		Entities: []model.RawEntity{
			{Kind: model.KindLocation, SourceText: "tahoe", Option: "Lake Tahoe", Accuracy: conf(0.9)},
			{Kind: model.KindLocation, SourceText: "reno", Accuracy: conf(0.5)},
			{Kind: model.KindAmenity, SourceText: "fire pit", Option: "Fire pit", Accuracy: conf(0.8)},
			{Kind: model.KindAmenity, SourceText: "campfire", Accuracy: conf(0.6)},
			{Kind: model.KindFeature, SourceText: "Lake"},
			{Kind: model.KindNumber, SourceText: "4"},
			{Kind: model.KindPrice, SourceText: "$50", Option: "max"},
			{Kind: model.KindCountry, SourceText: "USA"},
			{Kind: model.KindDate, SourceText: "next week"},
			{Kind: model.KindUnknown, SourceText: "???"},
		},
	}}
	catalog := &amenityCounts{counts: map[string]int{"fire pit": 3, "bbq grill": 1}}
	p := newTestPipeline(nlu, stubSentiment{score: 0.6}, catalog)
	now := time.Date(2025, time.April, 16, 10, 0, 0, 0, time.UTC)

	res, e := p.Process(context.Background(), "lake tahoe next week for 4, fire pit or campfire, max $50", now)

	assert.Equal(t, "search.multi", res.Intent)
	assert.Equal(t, 0.92, e.IntentConfidence)
	assert.Equal(t, 0.6, e.Sentiment)

	require.NotNil(t, e.Location)
	assert.Equal(t, "Lake Tahoe", *e.Location)
	assert.InDelta(t, 0.7, e.LocationConfidence, 1e-9)
	assert.InDelta(t, 0.7, e.Confidence[model.KindAmenity], 1e-9)

	assert.Equal(t, []string{"Fire pit"}, e.Amenities)
	assert.Equal(t, []string{"campfire"}, e.InvalidAmenities)
	assert.Equal(t, []string{"Fire pit", "BBQ grill"}, e.AlternativeAmenities["campfire"])

	assert.Equal(t, []string{"lake"}, e.Features)
	require.NotNil(t, e.GuestCount)
	assert.Equal(t, 4, *e.GuestCount)
	require.NotNil(t, e.PriceRange.Max)
	assert.Equal(t, 50.0, *e.PriceRange.Max)
	assert.Nil(t, e.PriceRange.Min)
	assert.Equal(t, []string{"USA"}, e.Countries)

	require.NotNil(t, e.DateRange.Start)
	assert.Equal(t, time.Date(2025, time.April, 21, 0, 0, 0, 0, time.UTC), *e.DateRange.Start)
	assert.True(t, e.MultiPart)
}

func TestPipeline_DegradesOnUpstreamFailures(t *testing.T) {
	p := newTestPipeline(
		stubNLU{err: errors.New("model unavailable")},
		stubSentiment{err: errors.New("boom")},
		&amenityCounts{},
	)

	res, e := p.Process(context.Background(), "Looking for something near Yosemite", time.Now())

	assert.Equal(t, model.IntentError, res.Intent)
	assert.Zero(t, res.Score)
	assert.Zero(t, e.Sentiment)
	require.NotNil(t, e.Location)
	assert.Equal(t, "Yosemite", *e.Location)
	assert.Equal(t, 0.7, e.LocationConfidence)
	assert.False(t, e.MultiPart)
}

func TestPipeline_EngineSentimentWins(t *testing.T) {
	engineScore := -0.95
	nlu := stubNLU{res: &model.NLUResult{Intent: "feedback.negative", Score: 0.9, Sentiment: &engineScore}}
	p := newTestPipeline(nlu, stubSentiment{score: 0.4}, &amenityCounts{})

	_, e := p.Process(context.Background(), "The staff was rude and the last place smelled of sewage", time.Now())
	assert.Equal(t, -0.95, e.Sentiment)

	p = newTestPipeline(stubNLU{res: &model.NLUResult{Intent: "greeting", Score: 0.9}}, stubSentiment{score: 0.4}, &amenityCounts{})
	_, e = p.Process(context.Background(), "hello", time.Now())
	assert.Equal(t, 0.4, e.Sentiment, "analyzer scores when the engine does not")

	p = newTestPipeline(nlu, nil, &amenityCounts{})
	_, e = p.Process(context.Background(), "hello", time.Now())
	assert.Equal(t, -0.95, e.Sentiment, "no analyzer is needed when the engine scores")
}

func TestPipeline_NLUTimeout(t *testing.T) {
	p := newTestPipeline(
		stubNLU{delay: time.Second, res: &model.NLUResult{Intent: "search.location", Score: 1}},
		stubSentiment{},
		&amenityCounts{},
	)

	start := time.Now()
	res, _ := p.Process(context.Background(), "hello", time.Now())
	assert.Equal(t, model.IntentError, res.Intent)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestPipeline_TextFallbacks(t *testing.T) {
	p := newTestPipeline(stubNLU{res: &model.NLUResult{Intent: "search.price", Score: 0.8}}, stubSentiment{}, &amenityCounts{})

	_, e := p.Process(context.Background(), "Two adults, between $20 and $50, in July", time.Date(2025, time.April, 16, 0, 0, 0, 0, time.UTC))

	require.NotNil(t, e.GuestCount)
	assert.Equal(t, 2, *e.GuestCount)
	require.NotNil(t, e.PriceRange.Min)
	require.NotNil(t, e.PriceRange.Max)
	assert.Equal(t, 20.0, *e.PriceRange.Min)
	assert.Equal(t, 50.0, *e.PriceRange.Max)
	require.NotNil(t, e.DateRange.Start)
	assert.Equal(t, time.July, e.DateRange.Start.Month())
	assert.Nil(t, e.Location)
	assert.True(t, e.MultiPart)
}

func TestPipeline_PriceBoundFromWording(t *testing.T) {
	nlu := stubNLU{res: &model.NLUResult{
		Intent:   "search.price",
		Score:    0.9,
		Entities: []model.RawEntity{{Kind: model.KindPrice, SourceText: "30"}},
	}}
	p := newTestPipeline(nlu, stubSentiment{}, &amenityCounts{})

	_, e := p.Process(context.Background(), "at least 30 a night", time.Now())
	require.NotNil(t, e.PriceRange.Min)
	assert.Equal(t, 30.0, *e.PriceRange.Min)
	assert.Nil(t, e.PriceRange.Max)
}
