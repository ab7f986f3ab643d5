package model

import "time"

// TurnInput is the input of the turn graph.
type TurnInput struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// Branch names the dialogue handler selected for a turn.
type Branch string

const (
	BranchFAQ        Branch = "faq"
	BranchFeedback   Branch = "feedback"
	BranchComparison Branch = "comparison"
	BranchAccumulate Branch = "accumulate"
)

// Turn carries one message through the graph. It owns Session (a copy loaded from
// the store) until the finalize node writes it back.
type Turn struct {
	UserID   string
	Message  string
	Now      time.Time
	Session  *ConversationSession
	NLU      NLUResult
	Entities *ExtractedEntities

	Branch Branch
	// Body is the branch reply before the sentiment prefix is applied.
	Body string
}

// TurnResult is the output of the turn graph.
type TurnResult struct {
	UserID             string         `json:"userId"`
	Response           string         `json:"response"`
	Intent             string         `json:"intent"`
	Sentiment          float64        `json:"sentiment"`
	Branch             Branch         `json:"branch"`
	HasRecommendations bool           `json:"hasRecommendations"`
	RecentHistory      []HistoryEntry `json:"conversationHistory,omitempty"`
}

// TurnState is the graph-local state of one invocation.
type TurnState struct {
	UserID    string
	StartedAt time.Time
	Branch    Branch
}
