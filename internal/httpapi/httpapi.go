// Package httpapi implements the agent HTTP surface (spec.md §6) using
// gin-gonic/gin, matching the hand-written HTTP idiom of
// basegraphhq-basegraph and codeready-toolchain-tarsy rather than the
// teacher's own goa-codegen output (SPEC_FULL.md §1.1).
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/docuqa/agent-runtime/internal/executor"
	"github.com/docuqa/agent-runtime/internal/runstore"
	"github.com/docuqa/agent-runtime/internal/streamsink"
)

// Code is the stable error code surfaced in error responses (spec §6).
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeAgentError Code = "AGENT_ERROR"
	CodeInternal   Code = "INTERNAL_ERROR"
)

const userIDHeader = "X-User-Id"

// runRequest is the JSON body for both /agent/run and /agent/stream.
type runRequest struct {
	Question      string `json:"question"`
	Mode          string `json:"mode"`
	ReturnTrace   bool   `json:"returnTrace"`
	RefinePrompt  bool   `json:"refine_prompt"`
	Rerank        bool   `json:"rerank"`
}

type citationResponse struct {
	DocID           string  `json:"docId"`
	ChunkID         string  `json:"chunkId"`
	ChunkIndex      int     `json:"chunkIndex"`
	Snippet         string  `json:"snippet"`
	DocumentTitle   string  `json:"documentTitle"`
	Score           float64 `json:"score"`
}

type runResponse struct {
	Answer          string             `json:"answer"`
	Citations       []citationResponse `json:"citations"`
	Insufficiencies []insufficiencyResponse `json:"insufficiencies,omitempty"`
	Trace           []traceResponse    `json:"trace,omitempty"`
}

type insufficiencyResponse struct {
	Section      string   `json:"section"`
	Missing      string   `json:"missing"`
	QueriesTried []string `json:"queriesTried,omitempty"`
}

type traceResponse struct {
	Type             string   `json:"type"`
	Tool             string   `json:"tool,omitempty"`
	OutputSummary    string   `json:"outputSummary,omitempty"`
	Steps            []string `json:"steps,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	Error            string   `json:"error,omitempty"`
	ValidationErrors []string `json:"validationErrors,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  Code   `json:"code"`
}

// stubAuth reads X-User-Id and injects it into the gin context. A real
// authentication scheme is explicitly out of scope (spec §1): this exists
// only so the handlers below have something to depend on.
func stubAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(userIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
				Error: "missing " + userIDHeader + " header",
				Code:  CodeValidation,
			})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

// validateRequest enforces the question/mode rules from spec §6 before the
// executor is invoked, matching the teacher's "request-pipeline composing
// handlers before the core Executor" design note.
func validateRequest(maxQuestionLength int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req runRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
				Error: "invalid request body: " + err.Error(),
				Code:  CodeValidation,
			})
			return
		}
		if req.Question == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
				Error: "question is required",
				Code:  CodeValidation,
			})
			return
		}
		if req.Mode != "agent" {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
				Error: `mode must be "agent"`,
				Code:  CodeValidation,
			})
			return
		}
		if len(req.Question) > maxQuestionLength {
			req.Question = req.Question[:maxQuestionLength]
		}
		c.Set("runRequest", req)
		c.Next()
	}
}

// Server wires the agent HTTP surface onto a gin engine.
type Server struct {
	exec              *executor.Executor
	maxQuestionLength int
	archive           runstore.Store
}

// New builds a Server around an already-constructed Executor.
func New(exec *executor.Executor, maxQuestionLength int) *Server {
	return &Server{exec: exec, maxQuestionLength: maxQuestionLength}
}

// WithArchive attaches a runstore.Store that every /agent/run request
// (success or failure) is archived to, fire-and-forget: the save runs in a
// goroutine started before the response is written, and the handler does
// not wait for it. /agent/stream runs are not archived. A nil store (the
// default) disables archival.
func (s *Server) WithArchive(store runstore.Store) *Server {
	s.archive = store
	return s
}

// archiveRun persists a completed run's trace/outcome if an archive store
// is configured. Archival failures are not surfaced to the HTTP client:
// the run already succeeded or failed on its own terms (SPEC_FULL.md §2 —
// the run store is post-hoc inspection, never authoritative).
func (s *Server) archiveRun(userID, question, answer string, trace []streamsink.Event, startedAt time.Time, runErr error) {
	if s.archive == nil {
		return
	}
	traceJSON, err := json.Marshal(trace)
	if err != nil {
		return
	}
	if runErr != nil {
		answer = ""
	}
	record := runstore.Record{
		RunID:     uuid.NewString(),
		UserID:    userID,
		Question:  question,
		Answer:    answer,
		Trace:     traceJSON,
		StartedAt: startedAt,
		EndedAt:   time.Now(),
	}
	go func() {
		_ = s.archive.Save(context.Background(), record)
	}()
}

// Register mounts the agent routes on engine.
func (s *Server) Register(engine *gin.Engine) {
	group := engine.Group("/agent")
	group.Use(stubAuth(), validateRequest(s.maxQuestionLength))
	group.POST("/run", s.handleRun)
	group.POST("/stream", s.handleStream)
}

func (s *Server) handleRun(c *gin.Context) {
	userID := c.GetString("userID")
	req := c.MustGet("runRequest").(runRequest)
	startedAt := time.Now()

	outcome, sink, err := s.exec.Run(c.Request.Context(), userID, req.Question)
	if err != nil {
		s.archiveRun(userID, req.Question, "", sink.Events, startedAt, err)
		s.writeAgentError(c, err)
		return
	}

	s.archiveRun(userID, req.Question, outcome.Answer, sink.Events, startedAt, nil)

	var trace []streamsink.Event
	if req.ReturnTrace {
		trace = sink.Events
	}
	c.JSON(http.StatusOK, toRunResponse(outcome, req.ReturnTrace, trace))
}

// handleStream drives the same executor but streams trace events to the
// client as Server-Sent Events as they happen, rather than buffering the
// whole run, matching the teacher's streaming-transport idiom.
func (s *Server) handleStream(c *gin.Context) {
	userID := c.GetString("userID")
	req := c.MustGet("runRequest").(runRequest)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sink := streamsink.NewStream(c.Writer)
	if _, err := s.exec.RunWithSink(c.Request.Context(), userID, req.Question, sink); err != nil {
		// RunWithSink has already framed a fatal "error" event via sink.Fail;
		// the HTTP status is already 200 by the time headers were flushed, so
		// there is nothing further to write here.
		return
	}
}

func (s *Server) writeAgentError(c *gin.Context, err error) {
	code := CodeAgentError
	status := http.StatusInternalServerError
	if errors.Is(err, executor.ErrInternal) {
		code = CodeInternal
	}
	c.JSON(status, errorResponse{Error: "the agent run could not complete", Code: code})
}
