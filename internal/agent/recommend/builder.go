package recommend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campfinder-assistant/server/internal/agent/dialogue"
	"github.com/campfinder-assistant/server/internal/agent/events"
	"github.com/campfinder-assistant/server/internal/agent/graph/conversations"
	"github.com/campfinder-assistant/server/internal/agent/model"
	errx "github.com/campfinder-assistant/server/internal/core/error"
	logx "github.com/campfinder-assistant/server/pkg/logger"
)

// DefaultMaxResults caps a recommendation round.
const DefaultMaxResults = 5

// Request asks for a recommendation round for one user.
type Request struct {
	UserID      string
	Preferences *PreferenceOverrides
}

// Result is the narrated outcome of a round.
type Result struct {
	Message         string                 `json:"message"`
	Recommendations []model.Recommendation `json:"recommendations"`
	SearchCriteria  model.SearchCriteria   `json:"searchCriteria"`
}

// Builder runs recommendation rounds against the listing catalog.
type Builder struct {
	sessions     *conversations.SessionManager
	catalog      model.ListingCatalog
	publisher    events.Publisher
	maxResults   int
	queryTimeout time.Duration
	log          zerolog.Logger
}

type Options struct {
	Sessions     *conversations.SessionManager
	Catalog      model.ListingCatalog
	Publisher    events.Publisher
	Config       model.RecommendConfig
	QueryTimeout time.Duration
}

func NewBuilder(opts Options) *Builder {
	pub := opts.Publisher
	if pub == nil {
		pub = events.NopPublisher{}
	}
	maxResults := opts.Config.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Builder{
		sessions:     opts.Sessions,
		catalog:      opts.Catalog,
		publisher:    pub,
		maxResults:   maxResults,
		queryTimeout: opts.QueryTimeout,
		log:          logx.Component("recommend"),
	}
}

// Recommend merges the overrides into the stored preferences, queries the
// catalog and caches the results on the session. The overrides themselves are
// not persisted. A catalog failure leaves the session untouched.
func (b *Builder) Recommend(ctx context.Context, req Request) (*Result, error) {
	if err := req.Preferences.Validate(); err != nil {
		return nil, err
	}

	s, err := b.sessions.Load(ctx, req.UserID)
	if err != nil {
		return nil, errx.From(err)
	}

	merged := MergePreferences(s.Preferences, req.Preferences)
	filter := BuildFilter(merged, b.maxResults)

	listings, err := b.search(ctx, filter)
	if err != nil {
		b.log.Error().Err(err).Str("user_id", req.UserID).Msg("Listing search failed")
		if errx.KindOf(err) == errx.KindCatalogUnavailable {
			return nil, err
		}
		return nil, errx.CatalogUnavailable(err)
	}

	recs := make([]model.Recommendation, 0, len(listings))
	for _, l := range listings {
		recs = append(recs, l.Recommendation())
	}

	criteria := merged.Criteria()
	record := model.SearchRecord{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Timestamp:   b.sessions.Now(),
		Criteria:    criteria,
		ResultCount: len(recs),
	}

	s.Context.LastRecommendations = recs
	s.Preferences.PreviousSearches = append(s.Preferences.PreviousSearches, record)
	if err := b.sessions.Save(ctx, s); err != nil {
		return nil, errx.From(err)
	}

	if err := b.publisher.PublishSearch(ctx, record); err != nil {
		b.log.Warn().Err(err).Str("search_id", record.ID).Msg("Search event not published")
	}

	b.log.Info().
		Str("user_id", req.UserID).
		Str("search_id", record.ID).
		Int("results", len(recs)).
		Msg("Recommendation round completed")

	return &Result{
		Message:         dialogue.NarrateResults(len(recs), criteria),
		Recommendations: recs,
		SearchCriteria:  criteria,
	}, nil
}

func (b *Builder) search(ctx context.Context, filter model.ListingFilter) ([]model.Listing, error) {
	if b.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.queryTimeout)
		defer cancel()
	}
	return b.catalog.SearchListings(ctx, filter)
}
