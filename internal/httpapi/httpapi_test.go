package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuqa/agent-runtime/internal/docstore/memstore"
	"github.com/docuqa/agent-runtime/internal/executor"
	"github.com/docuqa/agent-runtime/internal/oracle"
)

// scriptedOracle replays a fixed reply sequence: the first call is always
// the plan generator's, subsequent calls drive the loop in order.
type scriptedOracle struct {
	planReply   string
	loopReplies []string
	calls       int
}

func (s *scriptedOracle) Chat(ctx context.Context, messages []oracle.Message, temperature float64, maxTokens int) (string, error) {
	s.calls++
	if s.calls == 1 {
		return s.planReply, nil
	}
	idx := s.calls - 2
	if idx >= len(s.loopReplies) {
		idx = len(s.loopReplies) - 1
	}
	return s.loopReplies[idx], nil
}

const defaultPlanReply = `["Search documents", "Open best citation", "Answer with citations"]`

func testStore() *memstore.Store {
	return memstore.New([]memstore.Document{
		{
			DocID:    "doc-123",
			Filename: "runbook.md",
			OwnerID:  "user-1",
			Chunks: []string{
				"To reindex sql run the primary migration script before cutover.",
				"Delete verification requires confirming the record no longer exists.",
			},
		},
	})
}

func newTestServer(o oracle.Client) *Server {
	ex := executor.New(o, testStore(), executor.Options{}, nil)
	return New(ex, 1000)
}

func doRequest(t *testing.T, s *Server, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	s.Register(engine)

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHandleRun_HappyPathWithValidCitations(t *testing.T) {
	o := &scriptedOracle{
		planReply: defaultPlanReply,
		loopReplies: []string{
			`{"type":"tool_call","tool":"search_docs","input":{"query":"reindex"}}`,
			`{"type":"tool_call","tool":"open_citation","input":{"docId":"doc-123","chunkId":"doc-123-chunk-0"}}`,
			`{"type":"final","answer":"Based on [1], here is the answer.","used_citations":[{"docId":"doc-123","chunkId":"doc-123-chunk-0","chunkIndex":0}]}`,
		},
	}
	s := newTestServer(o)

	rec := doRequest(t, s, "/agent/run", "user-1", runRequest{
		Question: "What is the reindex process?",
		Mode:     "agent",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Answer, "[1]")
	assert.Len(t, resp.Citations, 1)
}

func TestHandleRun_MissingUserIDRejected(t *testing.T) {
	s := newTestServer(&scriptedOracle{planReply: defaultPlanReply})

	rec := doRequest(t, s, "/agent/run", "", runRequest{Question: "hi", Mode: "agent"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_MissingQuestionRejected(t *testing.T) {
	s := newTestServer(&scriptedOracle{planReply: defaultPlanReply})

	rec := doRequest(t, s, "/agent/run", "user-1", runRequest{Mode: "agent"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_WrongModeRejected(t *testing.T) {
	s := newTestServer(&scriptedOracle{planReply: defaultPlanReply})

	rec := doRequest(t, s, "/agent/run", "user-1", runRequest{Question: "hi", Mode: "chat"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_ReturnsTraceWhenRequested(t *testing.T) {
	o := &scriptedOracle{
		planReply: defaultPlanReply,
		loopReplies: []string{
			`{"type":"tool_call","tool":"search_docs","input":{"query":"reindex"}}`,
			`{"type":"final","answer":"Some answer.","used_citations":[]}`,
		},
	}
	s := newTestServer(o)

	rec := doRequest(t, s, "/agent/run", "user-1", runRequest{
		Question:    "describe reindex",
		Mode:        "agent",
		ReturnTrace: true,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Trace)
}

func TestHandleStream_FramesSSEEvents(t *testing.T) {
	o := &scriptedOracle{
		planReply: defaultPlanReply,
		loopReplies: []string{
			`{"type":"tool_call","tool":"search_docs","input":{"query":"reindex"}}`,
			`{"type":"final","answer":"Some answer.","used_citations":[]}`,
		},
	}
	s := newTestServer(o)

	rec := doRequest(t, s, "/agent/stream", "user-1", runRequest{
		Question: "describe reindex",
		Mode:     "agent",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: trace")
	assert.Contains(t, body, "event: complete")
}
