package bedrock

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	smithy "github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuqa/agent-runtime/internal/oracle"
)

type fakeConverseAPI struct {
	err error
}

func (f *fakeConverseAPI) Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	return nil, f.err
}

func TestIsRateLimited_IdempotentOnSentinel(t *testing.T) {
	assert.True(t, isRateLimited(ErrRateLimited))
	assert.True(t, isRateLimited(fmt.Errorf("provider: %w", ErrRateLimited)))
}

func TestIsRateLimited_ThrottlingExceptionCode(t *testing.T) {
	err := &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}
	assert.True(t, isRateLimited(err))
}

func TestIsRateLimited_UnrelatedAPIErrorCode(t *testing.T) {
	err := &smithy.GenericAPIError{Code: "ValidationException", Message: "bad input"}
	assert.False(t, isRateLimited(err))
}

func TestIsRateLimited_PlainErrorNotRateLimited(t *testing.T) {
	assert.False(t, isRateLimited(errors.New("boom")))
}

func TestChat_WrapsRateLimitedErrors(t *testing.T) {
	client := &Client{
		inner:   &fakeConverseAPI{err: &smithy.GenericAPIError{Code: "TooManyRequestsException"}},
		modelID: "test-model",
	}
	_, err := client.Chat(context.Background(), []oracle.Message{{Role: oracle.RoleUser, Content: "hi"}}, 0.2, 256)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestChat_PassesThroughNonRateLimitErrors(t *testing.T) {
	client := &Client{
		inner:   &fakeConverseAPI{err: errors.New("network unreachable")},
		modelID: "test-model",
	}
	_, err := client.Chat(context.Background(), []oracle.Message{{Role: oracle.RoleUser, Content: "hi"}}, 0.2, 256)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestChat_NoTurnsIsRejected(t *testing.T) {
	client := &Client{inner: &fakeConverseAPI{}, modelID: "test-model"}
	_, err := client.Chat(context.Background(), []oracle.Message{{Role: oracle.RoleSystem, Content: "sys only"}}, 0.2, 256)
	require.Error(t, err)
}
