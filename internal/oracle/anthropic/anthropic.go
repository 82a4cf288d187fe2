// Package anthropic adapts anthropic-sdk-go's Messages API to the
// oracle.Client interface, grounded on
// goa-ai/runtime/agents/features/model/anthropic/client.go. The agent's tool
// protocol is JSON-in-prose rather than native tool-use (spec.md §4.3's
// rationale for tolerant parsing), so this adapter only ever sends plain
// text turns and flattens the response to a string, discarding any
// thinking or tool-use content blocks.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/docuqa/agent-runtime/internal/oracle"
)

// Client wraps an anthropic-sdk-go client bound to one model.
type Client struct {
	inner anthropic.Client
	model anthropic.Model
}

// New builds a Client. model should be one of the anthropic.Model
// constants (e.g. anthropic.ModelClaude3_5SonnetLatest).
func New(apiKey string, model anthropic.Model) *Client {
	return &Client{
		inner: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model: model,
	}
}

// Chat implements oracle.Client.
func (c *Client) Chat(ctx context.Context, messages []oracle.Message, temperature float64, maxTokens int) (string, error) {
	var system string
	var turns []anthropic.MessageParam

	for _, m := range messages {
		switch m.Role {
		case oracle.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case oracle.RoleUser:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case oracle.RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(turns) == 0 {
		return "", errors.New("anthropic: no user/assistant turns to send")
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages:    turns,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if text := block.AsText(); text.Text != "" {
			b.WriteString(text.Text)
		}
	}
	return b.String(), nil
}
