package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/campfinder-assistant/server/internal/agent/dialogue"
	"github.com/campfinder-assistant/server/internal/agent/graph/conversations"
	"github.com/campfinder-assistant/server/internal/agent/model"
	"github.com/campfinder-assistant/server/internal/agent/pipeline"
	logx "github.com/campfinder-assistant/server/pkg/logger"
)

const (
	NodeExtract    = "Extract"
	NodeFAQ        = "FAQ"
	NodeFeedback   = "Feedback"
	NodeComparison = "Comparison"
	NodeAccumulate = "Accumulate"
	NodeFinalize   = "Finalize"
)

var branchNodes = map[model.Branch]string{
	model.BranchFAQ:        NodeFAQ,
	model.BranchFeedback:   NodeFeedback,
	model.BranchComparison: NodeComparison,
	model.BranchAccumulate: NodeAccumulate,
}

// NewExtractPreHandler resets the per-invocation state.
func NewExtractPreHandler() func(context.Context, model.TurnInput, *model.TurnState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.TurnState) (model.TurnInput, error) {
		s.UserID = in.UserID
		s.StartedAt = time.Now()
		return in, nil
	}
}

// NewExtractNode loads the session and runs the entity pipeline. The session is only
// mutated later by the branch handlers, after extraction has fully completed.
func NewExtractNode(sm *conversations.SessionManager, pl *pipeline.Pipeline) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (*model.Turn, error) {
		session, err := sm.GetOrCreate(ctx, in.UserID)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}

		now := sm.Now()
		nlu, entities := pl.Process(ctx, in.Message, now)

		logx.Debug().
			Str("user_id", in.UserID).
			Str("intent", nlu.Intent).
			Float64("score", nlu.Score).
			Float64("sentiment", entities.Sentiment).
			Bool("multi_part", entities.MultiPart).
			Msg("Entities extracted")

		return &model.Turn{
			UserID:   in.UserID,
			Message:  in.Message,
			Now:      now,
			Session:  session,
			NLU:      nlu,
			Entities: entities,
		}, nil
	})
}

// NewBranchCondition routes the turn to one of the dialogue handlers.
func NewBranchCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		branch := dialogue.SelectBranch(t)
		node, ok := branchNodes[branch]
		if !ok {
			return "", fmt.Errorf("no node for branch %q", branch)
		}
		logx.Debug().Str("user_id", t.UserID).Str("branch", string(branch)).Msg("Routing turn")
		return node, nil
	}
}

// NewHandlerNode wraps one router handler as a graph node.
func NewHandlerNode(handle func(*model.Turn)) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		handle(t)
		return t, nil
	})
}

// NewHandlerPostHandler records the chosen branch in local state.
func NewHandlerPostHandler() func(context.Context, *model.Turn, *model.TurnState) (*model.Turn, error) {
	return func(ctx context.Context, t *model.Turn, s *model.TurnState) (*model.Turn, error) {
		s.Branch = t.Branch
		return t, nil
	}
}

// NewFinalizeNode composes the reply, records metrics, persists the session and
// appends the exchange to the history log.
func NewFinalizeNode(sm *conversations.SessionManager, router *dialogue.Router) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.TurnResult, error) {
		reply := router.Compose(t)
		conversations.RecordTurnMetrics(t.Session, t.Message, t.Entities.Sentiment)

		if err := sm.Save(ctx, t.Session); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		if err := sm.AppendExchange(ctx, t.UserID, t.Message, t.Entities, reply, t.Now); err != nil {
			logx.Error().Err(err).Str("user_id", t.UserID).Msg("Error appending conversation history")
		}

		recent, err := sm.RecentHistory(ctx, t.UserID)
		if err != nil {
			logx.Warn().Err(err).Str("user_id", t.UserID).Msg("Error loading recent history")
			recent = nil
		}

		return &model.TurnResult{
			UserID:             t.UserID,
			Response:           reply,
			Intent:             t.NLU.Intent,
			Sentiment:          t.Entities.Sentiment,
			Branch:             t.Branch,
			HasRecommendations: t.Session.Context.ReadyForRecommendations,
			RecentHistory:      recent,
		}, nil
	})
}

// NewFinalizePostHandler logs the turn latency.
func NewFinalizePostHandler() func(context.Context, *model.TurnResult, *model.TurnState) (*model.TurnResult, error) {
	return func(ctx context.Context, out *model.TurnResult, s *model.TurnState) (*model.TurnResult, error) {
		logx.Debug().
			Str("user_id", s.UserID).
			Str("branch", string(s.Branch)).
			Dur("elapsed", time.Since(s.StartedAt)).
			Msg("Turn completed")
		return out, nil
	}
}
