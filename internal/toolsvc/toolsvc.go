// Package toolsvc implements tool dispatch for the agent's two tools,
// search_docs and open_citation (spec.md §4.4), against a docstore.Store
// collaborator. It classifies downstream failures into validation, access,
// and transport errors the way apps/agent/tools.py's ToolError hierarchy
// does, and implements the truncated-identifier resolution policy models
// routinely need (spec §4.4, "UUID resolution policy").
package toolsvc

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/time/rate"

	"github.com/docuqa/agent-runtime/internal/agentstate"
	"github.com/docuqa/agent-runtime/internal/docstore"
)

const (
	maxQueryLength      = 500
	maxSearchResults    = 5
	maxCitationTextDisp = 2000 // MAX_CITATION_TEXT_FOR_LLM, spec §5
)

// ErrorKind classifies a tool dispatch failure.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindAccess
	KindTransport
)

// Error is returned by SearchDocs and OpenCitation when a tool invocation fails. The loop
// continues regardless — the executor records it as a trace entry and note
// (spec §4.4, §7) rather than aborting.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func validationErr(msg string) *Error { return &Error{Kind: KindValidation, Msg: msg} }
func accessErr(msg string) *Error     { return &Error{Kind: KindAccess, Msg: msg} }
func transportErr(msg string) *Error  { return &Error{Kind: KindTransport, Msg: msg} }

// Dispatcher executes search_docs and open_citation against a docstore,
// applying a per-run rate limiter as defensive backpressure (never the
// authority on MAX_TOOL_CALLS — AgentState.ToolCallsUsed is, per SPEC_FULL.md
// §5).
type Dispatcher struct {
	store   docstore.Store
	limiter *rate.Limiter
}

// New builds a Dispatcher for one run. ratePerSecond/burst bound how fast
// this run alone may hit the store; 0 disables limiting.
func New(store docstore.Store, ratePerSecond float64, burst int) *Dispatcher {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return &Dispatcher{store: store, limiter: limiter}
}

func (d *Dispatcher) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return d.limiter.Wait(ctx)
}

// SearchDocs validates and issues a search_docs call, recording results into
// state on success.
func (d *Dispatcher) SearchDocs(ctx context.Context, userID string, state *agentstate.AgentState, input map[string]any) ([]agentstate.SearchHit, error) {
	query, _ := input["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationErr("search_docs requires a non-empty query")
	}
	if len(query) > maxQueryLength {
		query = query[:maxQueryLength]
	}

	if err := d.wait(ctx); err != nil {
		return nil, transportErr("rate limiter: " + err.Error())
	}

	results, err := d.store.Search(ctx, userID, query, maxSearchResults)
	if err != nil {
		return nil, classifyStoreErr(err)
	}

	hits := make([]agentstate.SearchHit, len(results))
	for i, r := range results {
		hits[i] = agentstate.SearchHit{
			DocID:      r.DocID,
			ChunkID:    r.ChunkID,
			ChunkIndex: r.ChunkIndex,
			Snippet:    r.Snippet,
			Score:      r.Score,
			Filename:   r.Filename,
			Query:      query,
		}
	}
	state.RecordSearch(query, hits)
	return hits, nil
}

// OpenCitation validates and issues an open_citation call. docId/chunkId are
// resolved against identifiers already seen in state.SearchHits before
// dispatch (the UUID resolution policy, spec §4.4).
func (d *Dispatcher) OpenCitation(ctx context.Context, userID string, state *agentstate.AgentState, input map[string]any) (agentstate.OpenedChunk, error) {
	docID, _ := input["docId"].(string)
	chunkID, _ := input["chunkId"].(string)
	docID = strings.TrimSpace(docID)
	chunkID = strings.TrimSpace(chunkID)

	if docID == "" || chunkID == "" {
		return agentstate.OpenedChunk{}, validationErr("open_citation requires both docId and chunkId")
	}

	resolvedDoc, resolvedChunk, ok := ResolveIdentifiers(state.SearchHits, docID, chunkID)
	if !ok {
		return agentstate.OpenedChunk{}, validationErr(hintMessage(state.SearchHits))
	}

	if err := d.wait(ctx); err != nil {
		return agentstate.OpenedChunk{}, transportErr("rate limiter: " + err.Error())
	}

	chunk, err := d.store.Chunk(ctx, userID, resolvedDoc, resolvedChunk)
	if err != nil {
		return agentstate.OpenedChunk{}, classifyStoreErr(err)
	}

	text := chunk.Text
	if len(text) > maxCitationTextDisp {
		text = text[:maxCitationTextDisp]
	}

	nums := state.NextCitationNumbers(1)
	citation := nums[0]
	opened := agentstate.OpenedChunk{
		DocID:      chunk.DocID,
		ChunkID:    chunk.ChunkID,
		ChunkIndex: chunk.ChunkIndex,
		Text:       text,
		Filename:   chunk.Filename,
		Citation:   citation,
	}
	state.RecordOpen(opened)
	state.RecordGrounding(citation, agentstate.GroundSource{DocID: chunk.DocID, ChunkID: chunk.ChunkID, Text: chunk.Text})
	return opened, nil
}

func classifyStoreErr(err error) *Error {
	switch {
	case errors.Is(err, docstore.ErrAccessDenied):
		return accessErr("access denied: document not owned by user")
	case errors.Is(err, docstore.ErrNotFound):
		return validationErr("no matching document/chunk found")
	default:
		return transportErr("downstream store error: " + err.Error())
	}
}

// hintMessage enumerates up to 5 complete (docId, chunkId, filename)
// triples seen so far, so the model can copy a full identifier next turn
// (spec §4.4: "the error message to the model enumerates up to 5 complete
// triples as a hint").
func hintMessage(hits []agentstate.SearchHit) string {
	seen := make(map[string]bool)
	var b strings.Builder
	b.WriteString("could not resolve docId/chunkId; known identifiers: ")
	n := 0
	for _, h := range hits {
		key := h.DocID + "/" + h.ChunkID
		if seen[key] {
			continue
		}
		seen[key] = true
		if n > 0 {
			b.WriteString("; ")
		}
		b.WriteString(h.DocID + "," + h.ChunkID + "," + h.Filename)
		n++
		if n == 5 {
			break
		}
	}
	if n == 0 {
		return "could not resolve docId/chunkId; no search results are available yet"
	}
	return b.String()
}
