package nlu

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/campfinder-assistant/server/internal/agent/model"
)

//go:embed template/nlu_prompt.txt
var systemPrompt string

// RenderMessages builds the system and user messages for one NLU call. The
// template is filled with a token replacer so its JSON braces survive, then passed
// through an eino prompt template so prompt callbacks fire.
func RenderMessages(ctx context.Context, cfg model.NLUModelConfig, text, locale string) ([]*schema.Message, error) {
	content := strings.NewReplacer(
		"{TD}", tupDelim,
		"{RD}", recDelim,
		"{CD}", endDelim,
		"{intents}", bulletList(cfg.Intents),
		"{entities}", bulletList(cfg.Entities),
	).Replace(systemPrompt)

	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
		schema.UserMessage("<locale>{locale}</locale>\n<message>{message}</message>"),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
		"locale":          locale,
		"message":         text,
	})
	if err != nil {
		return nil, fmt.Errorf("render nlu prompt: %w", err)
	}
	if len(msgs) < 2 {
		return nil, fmt.Errorf("render nlu prompt: expected 2 messages, got %d", len(msgs))
	}
	return msgs, nil
}

func bulletList(csv string) string {
	var b strings.Builder
	for _, item := range strings.Split(csv, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
