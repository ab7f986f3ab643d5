package nlu

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/campfinder-assistant/server/internal/agent/model"
	logx "github.com/campfinder-assistant/server/pkg/logger"
)

// ChatModelConfig holds what NewGeminiChatModel needs.
type ChatModelConfig struct {
	APIKey    string
	BaseURL   string
	NLUConfig model.NLUModelConfig
}

// NewGeminiChatModel creates the Gemini chat model used for classification.
// Thinking is left off; extraction is latency bound.
func NewGeminiChatModel(ctx context.Context, config ChatModelConfig) (*gemini.ChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	temperature := config.NLUConfig.Temperature
	maxTokens := config.NLUConfig.MaxTokens
	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.NLUConfig.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating NLU model")
		return nil, fmt.Errorf("error creating NLU model: %w", err)
	}
	return chatModel, nil
}
