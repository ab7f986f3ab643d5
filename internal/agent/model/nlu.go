package model

import (
	"context"
	"strings"
)

// IntentError is reported when the NLU engine could not classify the message.
const IntentError = "error"

// NLUResult is the engine output for one message.
type NLUResult struct {
	Intent   string      `json:"intent"`
	Score    float64     `json:"score"`
	Entities []RawEntity `json:"entities"`
	// Sentiment is set when the engine scored the message itself, in [-1, 1].
	Sentiment *float64 `json:"sentiment,omitempty"`
}

// IntentPrefix returns the part before the first dot ("faq" for "faq.booking").
func (r NLUResult) IntentPrefix() string {
	prefix, _, _ := strings.Cut(r.Intent, ".")
	return prefix
}

// SubIntent returns the part after the first dot, or "".
func (r NLUResult) SubIntent() string {
	_, sub, _ := strings.Cut(r.Intent, ".")
	return sub
}

// NLUEngine classifies a message and extracts typed entities.
type NLUEngine interface {
	Process(ctx context.Context, text, locale string) (*NLUResult, error)
}

// SentimentAnalyzer scores a message roughly in [-1, 1].
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (float64, error)
}
