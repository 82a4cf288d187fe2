// Package openai adapts openai-go's chat completions endpoint to the
// oracle.Client interface. openai-go is the SDK actually pinned in go.mod
// (the teacher's own OpenAI adapter imports the unrelated
// github.com/sashabaranov/go-openai package and a deleted internal model
// package; this adapter is written fresh against the SDK the rest of the
// retrieved pack uses).
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/docuqa/agent-runtime/internal/oracle"
)

// Client wraps an openai-go client bound to one model.
type Client struct {
	inner openai.Client
	model openai.ChatModel
}

// New builds a Client.
func New(apiKey string, model openai.ChatModel) *Client {
	return &Client{
		inner: openai.NewClient(option.WithAPIKey(apiKey)),
		model: model,
	}
}

// Chat implements oracle.Client.
func (c *Client) Chat(ctx context.Context, messages []oracle.Message, temperature float64, maxTokens int) (string, error) {
	var turns []openai.ChatCompletionMessageParamUnion
	for _, m := range messages {
		switch m.Role {
		case oracle.RoleSystem:
			turns = append(turns, openai.SystemMessage(m.Content))
		case oracle.RoleUser:
			turns = append(turns, openai.UserMessage(m.Content))
		case oracle.RoleAssistant:
			turns = append(turns, openai.AssistantMessage(m.Content))
		}
	}
	if len(turns) == 0 {
		return "", errors.New("openai: no messages to send")
	}

	resp, err := c.inner.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    turns,
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
