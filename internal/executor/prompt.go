package executor

import (
	"fmt"
	"strings"

	"github.com/docuqa/agent-runtime/internal/agentstate"
	"github.com/docuqa/agent-runtime/internal/constraints"
	"github.com/docuqa/agent-runtime/internal/plan"
)

const systemDirective = `You are a document question-answering agent. You have exactly two tools:

  search_docs(query: string) - semantic search over the user's own documents
  open_citation(docId: string, chunkId: string) - retrieve the full text of one chunk

Every turn you must respond with EXACTLY ONE JSON object, nothing else:

  Tool call: {"type":"tool_call","tool":"search_docs|open_citation","input":{...}}
  Final:     {"type":"final","answer":"...","used_citations":[{"docId":"...","chunkId":"...","chunkIndex":0}],"insufficiencies":[]}

When you copy a docId or chunkId into open_citation, copy the COMPLETE string exactly as it
appeared in the search results. Never truncate, abbreviate, or paraphrase an identifier.`

// renderPrompt assembles the per-iteration prompt in the exact order spec §4.6
// requires: system directive, question, plan/step, constraint summary,
// budget telemetry, current context block, available-citations table, and
// (if queued) a correction block, ending with the output trailer.
func renderPrompt(question string, p plan.Plan, c constraints.Constraints, state *agentstate.AgentState, opts Options, reprompt string) []promptSection {
	var sections []promptSection

	sections = append(sections, promptSection{"SYSTEM", systemDirective})
	sections = append(sections, promptSection{"QUESTION", question})

	stepLine := fmt.Sprintf("PLAN:\n%s\nCURRENT STEP: %d of %d", formatSteps(p.Steps), min(state.Iteration+1, len(p.Steps)), len(p.Steps))
	sections = append(sections, promptSection{"PLAN", stepLine})

	if summary := constraints.Summarize(c); summary != "No special constraints detected." {
		sections = append(sections, promptSection{"CONSTRAINTS", summary})
	}

	sections = append(sections, promptSection{"BUDGET", budgetTelemetry(state, opts)})

	if ctx := contextBlock(state); ctx != "" {
		sections = append(sections, promptSection{"CONTEXT", ctx})
	}

	if table := availableCitationsTable(state); table != "" {
		sections = append(sections, promptSection{"AVAILABLE CITATIONS FOR FINAL", table})
	}

	if reprompt != "" {
		sections = append(sections, promptSection{"CORRECTION REQUIRED", reprompt})
	}

	sections = append(sections, promptSection{"", "Output your next action as JSON:"})

	return sections
}

// promptSection is one titled block of the assembled prompt; executor.go
// flattens these into the single user-turn string sent to the oracle.
type promptSection struct {
	Title string
	Body  string
}

func renderSections(sections []promptSection) string {
	var b strings.Builder
	for _, s := range sections {
		if s.Title != "" {
			b.WriteString(s.Title)
			b.WriteString(":\n")
		}
		b.WriteString(s.Body)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSteps(steps []string) string {
	var b strings.Builder
	for i, s := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return strings.TrimRight(b.String(), "\n")
}

func budgetTelemetry(state *agentstate.AgentState, opts Options) string {
	return fmt.Sprintf(
		"Remaining tool calls: %d\nDistinct searches done: %d\nCitations opened: %d",
		opts.MaxToolCalls-state.ToolCallsUsed,
		state.DistinctSearches(),
		state.DistinctOpenedChunks(),
	)
}

func contextBlock(state *agentstate.AgentState) string {
	var b strings.Builder

	if len(state.SearchHits) > 0 {
		byQuery := map[string][]agentstate.SearchHit{}
		var order []string
		for _, h := range state.SearchHits {
			if _, ok := byQuery[h.Query]; !ok {
				order = append(order, h.Query)
			}
			byQuery[h.Query] = append(byQuery[h.Query], h)
		}
		b.WriteString("Search results:\n")
		for _, q := range order {
			fmt.Fprintf(&b, "  query %q:\n", q)
			for _, h := range byQuery[q] {
				fmt.Fprintf(&b, "    docId=%s chunkId=%s (chunk %d, %s, score %.3f): %s\n",
					h.DocID, h.ChunkID, h.ChunkIndex, h.Filename, h.Score, h.Snippet)
			}
		}
	}

	if len(state.OpenedChunks) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		inWindow := map[int]bool{}
		for _, n := range state.ContextCitations() {
			inWindow[n] = true
		}
		b.WriteString("Opened citations:\n")
		for _, c := range state.OpenedChunks {
			if !inWindow[c.Citation] {
				continue
			}
			fmt.Fprintf(&b, "  [%d] %s (chunk %d): %s\n", c.Citation, c.Filename, c.ChunkIndex, c.Text)
		}
	}

	if notes := state.LastNotes(); len(notes) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Notes:\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "  - %s\n", n)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func availableCitationsTable(state *agentstate.AgentState) string {
	if len(state.OpenedChunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("citationNum | docId | chunkId | chunkIndex | filename\n")
	for _, c := range state.OpenedChunks {
		fmt.Fprintf(&b, "%d | %s | %s | %d | %s\n", c.Citation, c.DocID, c.ChunkID, c.ChunkIndex, c.Filename)
	}
	return strings.TrimRight(b.String(), "\n")
}
