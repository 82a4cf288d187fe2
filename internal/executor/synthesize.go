package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/docuqa/agent-runtime/internal/action"
	"github.com/docuqa/agent-runtime/internal/agentstate"
	"github.com/docuqa/agent-runtime/internal/constraints"
	"github.com/docuqa/agent-runtime/internal/ground"
	"github.com/docuqa/agent-runtime/internal/oracle"
	"github.com/docuqa/agent-runtime/internal/streamsink"
	"github.com/docuqa/agent-runtime/internal/toolsvc"
)

const noDocumentsAnswer = "I don't know based on the provided documents."

// synthesize implements the synthesis fallback (spec §4.7), reached when the
// loop exits without an accepted Final: budget exhaustion, two consecutive
// invalid actions, or an oracle transport error.
func (e *Executor) synthesize(ctx context.Context, userID, question string, c constraints.Constraints, state *agentstate.AgentState, dispatcher *toolsvc.Dispatcher, sink streamsink.Sink) (RunOutcome, error) {
	if len(state.SearchHits) == 0 && state.DistinctOpenedChunks() == 0 {
		state.Log("final", "no context gathered; returning literal don't-know answer", time.Now())
		sink.Send(streamsink.Event{Type: streamsink.EventFinal, Notes: "synthesis fallback: no context"})
		return RunOutcome{Answer: noDocumentsAnswer}, nil
	}

	prompt := synthesisPrompt(question, state)
	tokenBudget := e.opts.TokenBudgetDefault
	if c.IsComplexQuery {
		tokenBudget = e.opts.TokenBudgetComplex
	}

	reply, err := e.oracle.Chat(ctx, []oracle.Message{{Role: oracle.RoleUser, Content: prompt}}, 0.15, tokenBudget)
	if err != nil {
		reply = noDocumentsAnswer
	}

	final := action.Action{Kind: action.KindFinal, Answer: reply}
	answer, citations := ground.Ground(final, state)

	state.Log("final", "synthesized from gathered context after exhaustion", time.Now())
	sink.Send(streamsink.Event{Type: streamsink.EventFinal, Notes: "synthesized after exhaustion"})

	return RunOutcome{
		Answer:          answer,
		Citations:       citations,
		Insufficiencies: mergeInsufficiencies(final, state),
	}, nil
}

// synthesisPrompt lists each opened chunk (or, if none were opened, the top
// 3 search snippets) and asks for a complete, source-bound answer.
func synthesisPrompt(question string, state *agentstate.AgentState) string {
	var b strings.Builder
	b.WriteString("The tool budget for this run has been exhausted. Using ONLY the context below, ")
	b.WriteString("write a complete answer to the question, citing sources with [n] markers.\n\n")
	fmt.Fprintf(&b, "QUESTION: %s\n\n", question)

	if len(state.OpenedChunks) > 0 {
		b.WriteString("CONTEXT:\n")
		for _, c := range state.OpenedChunks {
			fmt.Fprintf(&b, "[%d] %s (chunk %d):\n%s\n\n", c.Citation, c.Filename, c.ChunkIndex, c.Text)
		}
	} else {
		b.WriteString("CONTEXT (top search snippets, nothing was opened):\n")
		for _, h := range topSearchHits(state.SearchHits, 3) {
			fmt.Fprintf(&b, "- %s (%s): %s\n", h.DocID, h.Filename, h.Snippet)
		}
	}

	b.WriteString("\nIf the context does not fully answer the question, say so explicitly and do not invent details.")
	return b.String()
}

// topSearchHits returns the n globally top-scoring hits from hits, which is
// the flat concatenation of every distinct search_docs call the run made.
// Sorting by Score first is required: without it, "top n" would silently
// mean "first query's top n" on any run with more than one search.
func topSearchHits(hits []agentstate.SearchHit, n int) []agentstate.SearchHit {
	ranked := make([]agentstate.SearchHit, len(hits))
	copy(ranked, hits)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
