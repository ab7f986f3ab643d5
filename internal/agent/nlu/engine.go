package nlu

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/campfinder-assistant/server/internal/agent/model"
	logx "github.com/campfinder-assistant/server/pkg/logger"
)

// Generator is the slice of an eino chat model the engine uses.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// Engine classifies messages with an LLM and parses the tuple output.
type Engine struct {
	generator Generator
	config    model.NLUModelConfig
	pricing   model.Pricing
}

func NewEngine(generator Generator, config model.NLUModelConfig) *Engine {
	return &Engine{
		generator: generator,
		config:    config,
		pricing:   model.ResolvePricing(config.Model),
	}
}

// Process implements model.NLUEngine.
func (e *Engine) Process(ctx context.Context, text, locale string) (*model.NLUResult, error) {
	if locale == "" {
		locale = e.config.Locale
	}
	msgs, err := RenderMessages(ctx, e.config, text, locale)
	if err != nil {
		return nil, err
	}

	out, err := e.generator.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("nlu generate: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("nlu generate: empty response")
	}
	e.logUsage(out)

	return ParseOutput(out.Content)
}

func (e *Engine) logUsage(out *schema.Message) {
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, e.pricing)
	logx.Debug().
		Str("component", "nlu").
		Str("model", e.config.Model).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}
