package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/campfinder-assistant/server/pkg/logger"
)

// NewTurnCallbacks aggregates the observers attached to every turn graph run:
// node failures, prompt rendering and chat model calls, all at debug level except errors.
func NewTurnCallbacks() []einocb.Handler {
	return []einocb.Handler{
		newNodeErrorHandler(),
		callbackHelper.NewHandlerHelper().
			ChatModel(newModelHandler()).
			Prompt(newPromptHandler()).
			Handler(),
	}
}

func newNodeErrorHandler() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().
				Err(err).
				Str("component", string(info.Component)).
				Str("node", info.Name).
				Msg("Graph node failed")
			return ctx
		}).
		Build()
}

func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			if input != nil {
				logx.Debug().
					Str("model", info.Name).
					Int("messages", len(input.Messages)).
					Msg("Model call started")
			}
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			if output != nil && output.Message != nil {
				logx.Debug().
					Str("model", info.Name).
					Int("content_len", len(strings.TrimSpace(output.Message.Content))).
					Msg("Model call finished")
			}
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("model", info.Name).Msg("Model call failed")
			return ctx
		},
	}
}

func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			if output != nil {
				logx.Debug().Str("prompt", info.Name).Int("messages", len(output.Result)).Msg("Prompt rendered")
			}
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("prompt", info.Name).Msg("Prompt rendering failed")
			return ctx
		},
	}
}
