// Package bedrock adapts the AWS Bedrock Converse API to the oracle.Client
// interface, grounded on goa-ai/runtime/agents/features/model/bedrock/client.go.
package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"

	"github.com/docuqa/agent-runtime/internal/oracle"
)

// ErrRateLimited is returned (wrapped) from Chat when Bedrock signals
// throttling, so callers can distinguish "try again" from a hard failure.
var ErrRateLimited = errors.New("bedrock: rate limited")

// isRateLimited reports whether err represents a Bedrock throttling
// response, grounded on goa-ai's features/model/bedrock/client.go
// isRateLimited helper (trimmed to the provider-error-code check — the
// Converse SDK call here never surfaces a raw smithyhttp.ResponseError).
// It is idempotent: an err that already wraps ErrRateLimited reports true
// without inspecting the API error code again.
func isRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return true
		}
	}
	return false
}

// converseAPI is the slice of *bedrockruntime.Client this package depends
// on, narrowed so tests can substitute a fake without a live AWS endpoint —
// the same seam goa-ai's bedrock client keeps around its runtime field.
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client wraps a bedrockruntime client bound to one model ID.
type Client struct {
	inner   converseAPI
	modelID string
}

// New builds a Client from an already-configured bedrockruntime client.
func New(inner *bedrockruntime.Client, modelID string) *Client {
	return &Client{inner: inner, modelID: modelID}
}

// Chat implements oracle.Client.
func (c *Client) Chat(ctx context.Context, messages []oracle.Message, temperature float64, maxTokens int) (string, error) {
	var system []types.SystemContentBlock
	var turns []types.Message

	for _, m := range messages {
		switch m.Role {
		case oracle.RoleSystem:
			system = append(system, &types.SystemContentBlockMemberText{Value: m.Content})
		case oracle.RoleUser:
			turns = append(turns, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		case oracle.RoleAssistant:
			turns = append(turns, types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		}
	}
	if len(turns) == 0 {
		return "", errors.New("bedrock: no user/assistant turns to send")
	}

	temp32 := float32(temperature)
	maxTok32 := int32(maxTokens)

	resp, err := c.inner.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		System:  system,
		Messages: turns,
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: &temp32,
			MaxTokens:   &maxTok32,
		},
	})
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", err
	}

	output, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("bedrock: unexpected converse output shape")
	}
	for _, block := range output.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			return text.Value, nil
		}
	}
	return "", errors.New("bedrock: no text content block in response")
}
