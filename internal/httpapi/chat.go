package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campfinder-assistant/server/internal/agent/graph"
	"github.com/campfinder-assistant/server/internal/agent/model"
	"github.com/campfinder-assistant/server/internal/agent/recommend"
	errx "github.com/campfinder-assistant/server/internal/core/error"
)

const anonymousSession = "anonymous"

// Recommender runs an on-demand recommendation round.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Result, error)
}

// HistoryReader returns a user's stored conversation log.
type HistoryReader interface {
	History(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error)
}

// ChatHandler serves the /api/v1/chat routes.
type ChatHandler struct {
	turns       graph.Runner
	recommender Recommender
	history     HistoryReader
}

func NewChatHandler(turns graph.Runner, recommender Recommender, history HistoryReader) *ChatHandler {
	return &ChatHandler{
		turns:       turns,
		recommender: recommender,
		history:     history,
	}
}

type messageRequest struct {
	Message   *string `json:"message"`
	SessionID string  `json:"sessionId"`
	UserID    string  `json:"userId"`
}

type messageResponse struct {
	Response            string               `json:"response"`
	Intent              string               `json:"intent"`
	Sentiment           float64              `json:"sentiment"`
	HasRecommendations  bool                 `json:"hasRecommendations"`
	ConversationHistory []model.HistoryEntry `json:"conversationHistory,omitempty"`
}

type recommendationRequest struct {
	SessionID   string                         `json:"sessionId"`
	UserID      string                         `json:"userId"`
	Preferences *recommend.PreferenceOverrides `json:"preferences"`
}

type historyResponse struct {
	UserID  string               `json:"userId"`
	History []model.HistoryEntry `json:"history"`
}

// resolveUser applies the id defaults: userId falls back to sessionId, which
// falls back to "anonymous".
func resolveUser(userID, sessionID string) string {
	if s := strings.TrimSpace(userID); s != "" {
		return s
	}
	if s := strings.TrimSpace(sessionID); s != "" {
		return s
	}
	return anonymousSession
}

// Message handles POST /api/v1/chat/message
func (h *ChatHandler) Message(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, errx.Input("request body must be a JSON object"))
		return
	}
	if req.Message == nil || strings.TrimSpace(*req.Message) == "" {
		respondError(c, errx.Input("message is required"))
		return
	}

	out, err := h.turns.Invoke(c.Request.Context(), model.TurnInput{
		UserID:  resolveUser(req.UserID, req.SessionID),
		Message: *req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{
		Response:            out.Response,
		Intent:              out.Intent,
		Sentiment:           out.Sentiment,
		HasRecommendations:  out.HasRecommendations,
		ConversationHistory: out.RecentHistory,
	})
}

// Recommendations handles POST /api/v1/chat/recommendations
func (h *ChatHandler) Recommendations(c *gin.Context) {
	var req recommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, errx.Validation(bindingFields(err)))
		return
	}

	res, err := h.recommender.Recommend(c.Request.Context(), recommend.Request{
		UserID:      resolveUser(req.UserID, req.SessionID),
		Preferences: req.Preferences,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// History handles GET /api/v1/chat/history/:userId
func (h *ChatHandler) History(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		respondError(c, errx.Input("userId is required"))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, errx.Validation(map[string]string{"limit": "must be a non-negative integer"}))
			return
		}
		limit = n
	}

	entries, err := h.history.History(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}

	c.JSON(http.StatusOK, historyResponse{UserID: userID, History: entries})
}

var suggestions = []string{
	"Find me a campsite near Lake Tahoe this weekend",
	"I need a spot for 4 people with a fire pit",
	"Something by a lake under $60 a night",
	"Are pets allowed?",
	"How do I cancel a booking?",
	"Compare these by price",
}

// Suggestions handles GET /api/v1/chat/suggestions
func (h *ChatHandler) Suggestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// bindingFields maps a JSON decoding failure onto field-level detail.
func bindingFields(err error) map[string]string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return map[string]string{field: "must be " + typeErr.Type.String()}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return map[string]string{"body": "malformed JSON at offset " + strconv.FormatInt(syntaxErr.Offset, 10)}
	}
	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		return map[string]string{"preferences.dateRange": "dates must be RFC 3339"}
	}
	return map[string]string{"body": "invalid request payload"}
}
