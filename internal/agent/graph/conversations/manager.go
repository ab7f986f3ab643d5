package conversations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/campfinder-assistant/server/internal/agent/model"
	logx "github.com/campfinder-assistant/server/pkg/logger"
)

// locationOverrideConfidence is the confidence a new location needs to replace a stored one.
const locationOverrideConfidence = 0.8

// SessionManager owns the session lifecycle on top of a SessionStore.
type SessionManager struct {
	store         model.SessionStore
	recentHistory int
	now           func() time.Time
}

func NewSessionManager(store model.SessionStore, config model.SessionConfig) *SessionManager {
	recent := config.RecentHistory
	if recent <= 0 {
		recent = 3
	}
	return &SessionManager{
		store:         store,
		recentHistory: recent,
		now:           time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (sm *SessionManager) WithClock(now func() time.Time) *SessionManager {
	sm.now = now
	return sm
}

// Now returns the manager's current time.
func (sm *SessionManager) Now() time.Time {
	return sm.now()
}

// =========== Lifecycle ===========

// GetOrCreate loads the session for a message turn, creating it with defaults when
// absent. It always refreshes LastActivityAt and counts the message.
func (sm *SessionManager) GetOrCreate(ctx context.Context, userID string) (*model.ConversationSession, error) {
	s, err := sm.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.Metrics.MessageCount++
	return s, nil
}

// Load returns the session (or a fresh default) and refreshes LastActivityAt without
// counting a message. Recommendation requests use it so metrics stay per message.
func (sm *SessionManager) Load(ctx context.Context, userID string) (*model.ConversationSession, error) {
	now := sm.now()
	s, err := sm.store.Get(ctx, userID)
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		logx.Debug().Str("user_id", userID).Msg("creating conversation session")
		s = model.NewSession(userID, now)
	case err != nil:
		return nil, err
	}
	s.LastActivityAt = now
	return s, nil
}

// Save writes the session back. A session deleted by the reaper while the turn was
// in flight is recreated from this snapshot; its history is not.
func (sm *SessionManager) Save(ctx context.Context, s *model.ConversationSession) error {
	return sm.store.Put(ctx, s)
}

// AppendExchange logs the user message and the bot reply in that order.
func (sm *SessionManager) AppendExchange(ctx context.Context, userID, userMsg string, entities *model.ExtractedEntities, reply string, at time.Time) error {
	return sm.store.AppendHistory(ctx, userID,
		model.HistoryEntry{Role: model.RoleUser, Message: userMsg, Entities: entities, Timestamp: at},
		model.HistoryEntry{Role: model.RoleBot, Message: reply, Timestamp: at},
	)
}

// History returns the last limit entries.
func (sm *SessionManager) History(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	return sm.store.History(ctx, userID, limit)
}

// RecentHistory returns the short tail echoed in message replies.
func (sm *SessionManager) RecentHistory(ctx context.Context, userID string) ([]model.HistoryEntry, error) {
	return sm.store.History(ctx, userID, sm.recentHistory)
}

// =========== Preference rules ===========

// MergeEntities folds one turn's extraction into the accumulated preferences.
// Every field has its own rule.
func MergeEntities(s *model.ConversationSession, e *model.ExtractedEntities) {
	if s == nil || e == nil {
		return
	}
	p := &s.Preferences

	// location: only fill a gap or replace on strong confidence
	if e.Location != nil && strings.TrimSpace(*e.Location) != "" {
		if p.Location == "" || e.LocationConfidence > locationOverrideConfidence {
			p.Location = strings.TrimSpace(*e.Location)
		}
	}

	// amenities: set union
	p.AddAmenities(e.Amenities...)

	// features: the latest message that names any wins outright
	if len(e.Features) > 0 {
		p.NearbyFeatures = append([]string{}, e.Features...)
	}

	// countries: overwrite
	if len(e.Countries) > 0 {
		s.Context.Countries = append([]string{}, e.Countries...)
	}

	// guests: never decrease
	if e.GuestCount != nil && *e.GuestCount > p.GuestCount {
		p.GuestCount = *e.GuestCount
	}

	// dates: wholesale replacement when a new range resolved
	if e.DateRange.Start != nil {
		p.DateRange = model.DateRange{Start: e.DateRange.Start, End: e.DateRange.End}
	}

	// price: each bound independently
	if e.PriceRange.Min != nil {
		v := *e.PriceRange.Min
		p.PriceRange.Min = &v
	}
	if e.PriceRange.Max != nil {
		v := *e.PriceRange.Max
		p.PriceRange.Max = &v
	}
}

// RecordRejection adds listing ids to the rejected set.
func RecordRejection(s *model.ConversationSession, ids []string) {
	if s == nil {
		return
	}
	s.Preferences.Reject(ids...)
}

// RecordTurnMetrics counts questions and appends the sentiment score. Together with
// GetOrCreate it keeps len(SentimentScores) == MessageCount.
func RecordTurnMetrics(s *model.ConversationSession, message string, sentiment float64) {
	if strings.Contains(message, "?") {
		s.Metrics.QuestionCount++
	}
	s.Metrics.SentimentScores = append(s.Metrics.SentimentScores, sentiment)
}

// HasMinimumSearchCriteria reports whether at least one searchable preference is set.
func HasMinimumSearchCriteria(p model.Preferences) bool {
	return p.Location != "" ||
		p.DateRange.Start != nil ||
		len(p.Amenities) > 0 ||
		len(p.NearbyFeatures) > 0 ||
		p.PriceRange.Min != nil ||
		p.PriceRange.Max != nil ||
		p.GuestCount > 0
}
