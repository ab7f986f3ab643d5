package model

import (
	"context"
	"errors"
	"time"
)

// DefaultHistoryLimit caps the per-session history log.
const DefaultHistoryLimit = 20

// ErrSessionNotFound is returned by SessionStore.Get for unknown users.
var ErrSessionNotFound = errors.New("session not found")

// Role tags who produced a history entry.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// HistoryEntry is one message in the per-session history log.
type HistoryEntry struct {
	Role      Role               `json:"role"`
	Message   string             `json:"message"`
	Entities  *ExtractedEntities `json:"entities,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// SessionStore keeps sessions and their history log keyed by user id.
// Implementations copy on read and write so callers own the returned session.
type SessionStore interface {
	// Get returns ErrSessionNotFound when no session exists for the user.
	Get(ctx context.Context, userID string) (*ConversationSession, error)

	// Put creates or replaces the session.
	Put(ctx context.Context, session *ConversationSession) error

	// Delete removes the session and its history.
	Delete(ctx context.Context, userID string) error

	// Sweep deletes every session whose LastActivityAt is before cutoff and
	// returns how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)

	// AppendHistory appends entries in order, dropping the oldest past the cap.
	AppendHistory(ctx context.Context, userID string, entries ...HistoryEntry) error

	// History returns the last limit entries in arrival order (all when limit <= 0).
	History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error)
}
