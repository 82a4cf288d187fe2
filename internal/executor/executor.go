// Package executor drives the bounded agent loop (spec.md §4.5): plan →
// (parse → dispatch → validate → reprompt)* → synthesize. It is constructed
// as a pure function of its injected collaborators — an oracle.Client and a
// docstore.Store — with no package-level singletons, matching the teacher's
// "injected interfaces, not global lookups" design note (SPEC_FULL.md §9).
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docuqa/agent-runtime/internal/action"
	"github.com/docuqa/agent-runtime/internal/agentstate"
	"github.com/docuqa/agent-runtime/internal/constraints"
	"github.com/docuqa/agent-runtime/internal/docstore"
	"github.com/docuqa/agent-runtime/internal/ground"
	"github.com/docuqa/agent-runtime/internal/oracle"
	"github.com/docuqa/agent-runtime/internal/plan"
	"github.com/docuqa/agent-runtime/internal/reprompt"
	"github.com/docuqa/agent-runtime/internal/streamsink"
	"github.com/docuqa/agent-runtime/internal/telemetry"
	"github.com/docuqa/agent-runtime/internal/toolsvc"
	"github.com/docuqa/agent-runtime/internal/validate"
)

// Executor drives one run at a time per instance, but a single Executor
// value is safe to reuse across concurrent runs: it holds no per-run
// mutable state itself (spec §5 — AgentState is strictly run-local).
type Executor struct {
	oracle oracle.Client
	store  docstore.Store
	opts   Options
	log    telemetry.Logger
}

// New builds an Executor from its collaborators. A nil logger falls back to
// a no-op implementation so callers that don't care about telemetry (tests,
// one-off CLI runs) don't need to wire one up.
func New(oracleClient oracle.Client, store docstore.Store, opts Options, logger telemetry.Logger) *Executor {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Executor{oracle: oracleClient, store: store, opts: opts.withDefaults(), log: logger}
}

// RunOutcome is the result of one completed run.
type RunOutcome struct {
	Answer                  string
	Citations               []ground.Citation
	Insufficiencies         []action.InsufficiencyClaim
	AcceptedAfterMaxReprompt bool
}

const (
	toolSearchDocs   = "search_docs"
	toolOpenCitation = "open_citation"
)

// Run executes one full agent run for userID/question against an in-memory
// Collect sink and returns it alongside the outcome, for callers that don't
// need incremental delivery (e.g. the non-streaming /agent/run handler).
func (e *Executor) Run(ctx context.Context, userID, question string) (RunOutcome, *streamsink.Collect, error) {
	sink := streamsink.NewCollect()
	outcome, err := e.RunWithSink(ctx, userID, question, sink)
	return outcome, sink, err
}

// RunWithSink executes one full agent run for userID/question, emitting
// trace events to sink as they happen and returning the final outcome. It
// never panics past its own boundary (spec §7.9): any unexpected failure is
// recovered, logged, and surfaced as ErrInternal via sink.Fail and a generic
// error return, never leaking the original panic value.
func (e *Executor) RunWithSink(ctx context.Context, userID, question string, sink streamsink.Sink) (outcome RunOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error(ctx, "run panicked", "panic", fmt.Sprint(r))
			err = ErrInternal
			sink.Fail(err)
		}
	}()

	if len(question) > e.opts.MaxQuestionLength {
		question = question[:e.opts.MaxQuestionLength]
	}

	runID := uuid.NewString()
	e.log.Info(ctx, "run started", "runID", runID, "userID", userID)
	state := agentstate.New(runID, userID, question, time.Now())
	dispatcher := toolsvc.New(e.store, e.opts.ToolRatePerSecond, e.opts.ToolRateBurst)

	c := constraints.Analyze(question)

	// PLANNING
	p := plan.Generate(ctx, e.oracle, question)
	state.Log("plan", fmt.Sprintf("generated plan (fallback=%v): %v", p.IsFallback, p.Steps), time.Now())
	sink.Send(streamsink.Event{Type: streamsink.EventPlan, Steps: p.Steps})

	// LOOPING
	outcome, err = e.loop(ctx, userID, question, c, p, state, dispatcher, sink)
	if err != nil {
		e.log.Error(ctx, "run failed", "runID", runID, "error", err)
		sink.Fail(err)
		return outcome, err
	}

	e.log.Info(ctx, "run completed", "runID", runID, "toolCallsUsed", state.ToolCallsUsed, "repromptsUsed", state.RepromptsUsed)
	sink.Complete(outcome)
	return outcome, nil
}

func (e *Executor) loop(ctx context.Context, userID, question string, c constraints.Constraints, p plan.Plan, state *agentstate.AgentState, dispatcher *toolsvc.Dispatcher, sink streamsink.Sink) (RunOutcome, error) {
	var pendingReprompt string
	jsonErrorCount := 0
	tokenBudget := e.opts.TokenBudgetDefault
	if c.IsComplexQuery {
		tokenBudget = e.opts.TokenBudgetComplex
	}

loop:
	for state.Iteration < e.opts.MaxIterations && state.ToolCallsUsed < e.opts.MaxToolCalls {
		sections := renderPrompt(question, p, c, state, e.opts, pendingReprompt)
		pendingReprompt = ""

		messages := []oracle.Message{
			{Role: oracle.RoleUser, Content: renderSections(sections)},
		}

		reply, err := e.oracle.Chat(ctx, messages, 0.1, tokenBudget)
		if err != nil {
			state.Log("error", "oracle transport error: "+err.Error(), time.Now())
			sink.Send(streamsink.Event{Type: streamsink.EventError, Error: err.Error()})
			break
		}

		act := action.Parse(reply)

		switch act.Kind {
		case action.KindInvalid:
			jsonErrorCount++
			if jsonErrorCount >= 2 {
				state.Log("error", "two consecutive invalid actions, exiting to synthesis", time.Now())
				sink.Send(streamsink.Event{Type: streamsink.EventError, Error: "repeated invalid model output"})
				state.Iteration++
				break loop
			}
			pendingReprompt = "Invalid JSON: " + act.Reason + ". Output ONLY valid JSON."
			state.Iteration++
			continue

		case action.KindToolCall:
			jsonErrorCount = 0
			if state.ToolCallsUsed >= e.opts.MaxToolCalls {
				state.Iteration++
				break loop
			}
			e.dispatchTool(ctx, userID, state, dispatcher, act, sink)
			state.Iteration++
			continue

		case action.KindFinal:
			jsonErrorCount = 0
			accepted, rp, done := e.validationGate(ctx, userID, state, dispatcher, act, c, sink)
			state.Iteration++
			if done {
				return e.accept(act, state), nil
			}
			pendingReprompt = rp
			if accepted {
				// accepted after max reprompts: the validation gate already
				// logged and the caller treats this as a normal Final.
				return e.acceptAfterMaxReprompts(act, state), nil
			}
			continue
		}
	}

	return e.synthesize(ctx, userID, question, c, state, dispatcher, sink)
}

// dispatchTool performs one tool invocation and records its outcome as a
// trace entry and, on failure, a short note — never aborting the loop
// (spec §4.4, §7).
func (e *Executor) dispatchTool(ctx context.Context, userID string, state *agentstate.AgentState, dispatcher *toolsvc.Dispatcher, act action.Action, sink streamsink.Sink) {
	state.ToolCallsUsed++

	switch act.Tool {
	case toolSearchDocs:
		hits, err := dispatcher.SearchDocs(ctx, userID, state, act.Input)
		if err != nil {
			e.recordToolError(state, toolSearchDocs, err, sink)
			return
		}
		state.Log("tool_call", fmt.Sprintf("search_docs returned %d hits", len(hits)), time.Now())
		sink.Send(streamsink.Event{Type: streamsink.EventToolCall, Tool: toolSearchDocs, Input: act.Input, OutputSummary: fmt.Sprintf("%d hits", len(hits))})

	case toolOpenCitation:
		chunk, err := dispatcher.OpenCitation(ctx, userID, state, act.Input)
		if err != nil {
			e.recordToolError(state, toolOpenCitation, err, sink)
			return
		}
		state.Log("tool_call", fmt.Sprintf("opened citation [%d] %s", chunk.Citation, chunk.Filename), time.Now())
		sink.Send(streamsink.Event{Type: streamsink.EventToolCall, Tool: toolOpenCitation, Input: act.Input, OutputSummary: fmt.Sprintf("citation [%d]", chunk.Citation)})
	}
}

func (e *Executor) recordToolError(state *agentstate.AgentState, tool string, err error, sink streamsink.Sink) {
	msg := err.Error()
	if toolErr, ok := err.(*toolsvc.Error); ok {
		switch toolErr.Kind {
		case toolsvc.KindAccess:
			state.AddNote("Access denied: " + toolErr.Msg)
		default:
			state.AddNote(toolErr.Msg)
		}
	} else {
		state.AddNote(msg)
	}
	state.Log("error", tool+": "+msg, time.Now())
	sink.Send(streamsink.Event{Type: streamsink.EventError, Tool: tool, Error: msg})
}

// validationGate implements spec §4.5 step 4, including the safety
// auto-open deviation (spec §9). Returns (acceptedAfterMaxReprompts,
// reprompt, done) — done=true means the Final should be accepted as-is.
func (e *Executor) validationGate(ctx context.Context, userID string, state *agentstate.AgentState, dispatcher *toolsvc.Dispatcher, act action.Action, c constraints.Constraints, sink streamsink.Sink) (bool, string, bool) {
	if state.DistinctOpenedChunks() == 0 && len(state.SearchHits) > 0 && state.ToolCallsUsed < e.opts.MaxToolCalls {
		opened := e.safetyAutoOpen(ctx, userID, state, dispatcher, sink)
		if opened > 0 {
			rp := fmt.Sprintf("I have now opened %d citation(s) for you. Review the OPENED CITATIONS section and provide a proper answer with markers [1], [2], …", opened)
			return false, rp, false
		}
	}

	corpus := corpusText(state)
	result := validate.Validate(act.Answer, citationNumsFromUsed(act.UsedCitations, state), c, state.Snapshot(), corpus)

	errMsgs := make([]string, len(result.Errors))
	for i, m := range result.Errors {
		errMsgs[i] = string(m.Code) + ": " + m.Text
	}
	state.Log("validation", fmt.Sprintf("valid=%v errors=%d warnings=%d", result.IsValid, len(result.Errors), len(result.Warnings)), time.Now())
	sink.Send(streamsink.Event{Type: streamsink.EventValidation, ValidationErrors: errMsgs})

	if result.IsValid {
		state.Log("final", "accepted", time.Now())
		sink.Send(streamsink.Event{Type: streamsink.EventFinal})
		return false, "", true
	}

	state.RepromptsUsed++
	if state.RepromptsUsed >= e.opts.MaxReprompts {
		state.Log("final", "accepted after max reprompts (may have validation issues)", time.Now())
		sink.Send(streamsink.Event{Type: streamsink.EventFinal, Notes: "accepted after max reprompts (may have validation issues)"})
		return true, "", false
	}

	rp := reprompt.Build(result, e.opts.MaxToolCalls-state.ToolCallsUsed)
	state.Log("reprompt", rp, time.Now())
	sink.Send(streamsink.Event{Type: streamsink.EventReprompt, Notes: rp})
	return false, rp, false
}

// safetyAutoOpen opens up to 3 top search hits when the model tried to
// finalize without opening anything (spec §9: "prevents a frequent failure
// mode"). It counts against the tool budget.
func (e *Executor) safetyAutoOpen(ctx context.Context, userID string, state *agentstate.AgentState, dispatcher *toolsvc.Dispatcher, sink streamsink.Sink) int {
	const maxAutoOpen = 3
	seen := map[string]bool{}
	opened := 0
	for _, h := range topSearchHits(state.SearchHits, len(state.SearchHits)) {
		if opened >= maxAutoOpen || state.ToolCallsUsed >= e.opts.MaxToolCalls {
			break
		}
		key := h.DocID + "/" + h.ChunkID
		if seen[key] {
			continue
		}
		seen[key] = true

		state.ToolCallsUsed++
		chunk, err := dispatcher.OpenCitation(ctx, userID, state, map[string]any{"docId": h.DocID, "chunkId": h.ChunkID})
		if err != nil {
			e.recordToolError(state, toolOpenCitation, err, sink)
			continue
		}
		state.Log("tool_call", fmt.Sprintf("safety auto-open [%d] %s", chunk.Citation, chunk.Filename), time.Now())
		sink.Send(streamsink.Event{Type: streamsink.EventToolCall, Tool: toolOpenCitation, OutputSummary: fmt.Sprintf("auto-opened citation [%d]", chunk.Citation)})
		opened++
	}
	return opened
}

func citationNumsFromUsed(used []action.UsedCitation, state *agentstate.AgentState) []int {
	var nums []int
	byID := make(map[string]int, len(state.OpenedChunks))
	for _, c := range state.OpenedChunks {
		byID[c.DocID+"/"+c.ChunkID] = c.Citation
	}
	for _, u := range used {
		if n, ok := byID[u.DocID+"/"+u.ChunkID]; ok {
			nums = append(nums, n)
		}
	}
	return nums
}

func corpusText(state *agentstate.AgentState) string {
	var text string
	for _, c := range state.OpenedChunks {
		text += c.Text + " "
	}
	for _, h := range state.SearchHits {
		text += h.Snippet + " "
	}
	return text
}

func (e *Executor) accept(final action.Action, state *agentstate.AgentState) RunOutcome {
	answer, citations := ground.Ground(final, state)
	return RunOutcome{Answer: answer, Citations: citations, Insufficiencies: mergeInsufficiencies(final, state)}
}

func (e *Executor) acceptAfterMaxReprompts(final action.Action, state *agentstate.AgentState) RunOutcome {
	outcome := e.accept(final, state)
	outcome.AcceptedAfterMaxReprompt = true
	return outcome
}

func mergeInsufficiencies(final action.Action, state *agentstate.AgentState) []action.InsufficiencyClaim {
	out := make([]action.InsufficiencyClaim, len(final.Insufficiencies))
	copy(out, final.Insufficiencies)
	for _, i := range state.Insufficiency {
		out = append(out, action.InsufficiencyClaim{Section: i.Section, Missing: i.Missing, QueriesTried: i.QueriesTried})
	}
	return out
}
