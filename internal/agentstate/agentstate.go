// Package agentstate defines the data model shared across the agent
// execution engine: the mutable run state, the record of tool activity,
// and the snapshot used by the validator. All mutation happens through the
// methods on AgentState so that the monotonic-counter and bounded-window
// invariants (spec.md §3) cannot be violated by a caller forgetting a step.
package agentstate

import "time"

// SearchHit is one result returned from a search_docs call.
type SearchHit struct {
	DocID      string
	ChunkID    string
	ChunkIndex int
	Snippet    string
	Score      float64
	Filename   string
	Query      string // the search query that produced this hit
}

// OpenedChunk is the full text retrieved by an open_citation call.
type OpenedChunk struct {
	DocID      string
	ChunkID    string
	ChunkIndex int
	Text       string
	Filename   string
	Citation   int
}

// Insufficiency records a point in the run where the agent determined that
// the available documents did not cover some aspect of the question.
type Insufficiency struct {
	Section      string
	Missing      string
	QueriesTried []string
}

// TraceEntry is one step of the run's append-only activity log.
type TraceEntry struct {
	Iteration int
	Kind      string // "plan", "tool_call", "validation", "reprompt", "final", "error"
	Detail    string
	At        time.Time
}

// AgentState is the authoritative, single-threaded state for one run. It is
// never shared between concurrent runs (spec.md §5) and carries no
// synchronization primitives of its own — callers (the executor) own
// exclusive access for the run's lifetime.
type AgentState struct {
	RunID     string
	UserID    string
	Question  string
	StartedAt time.Time

	Iteration     int
	ToolCallsUsed int
	RepromptsUsed int

	// SearchQueries holds distinct query strings in insertion order; the
	// count of distinct searches issued is len(SearchQueries), not the
	// number of search_docs calls (a repeated query does not count twice).
	SearchQueries []string

	SearchHits    []SearchHit
	OpenedChunks  []OpenedChunk
	Notes         []string
	Insufficiency []Insufficiency
	Trace         []TraceEntry

	// citationWindow is the rolling window of the most recent citations
	// available to the oracle's context (MAX_CONTEXT_CITATIONS, spec §4.10).
	citationWindow []int
	// citationGround is the full-lifetime map from citation number to its
	// grounding source, used by the citation grounder even after a citation
	// has been evicted from the rolling window.
	citationGround map[int]GroundSource
	nextCitation   int
}

// GroundSource names where a citation's text actually came from, so the
// citation grounder can resolve an answer's [n] markers even after the
// citation has scrolled out of the rolling context window.
type GroundSource struct {
	DocID   string
	ChunkID string
	Text    string
}

// New creates a fresh AgentState for a run.
func New(runID, userID, question string, startedAt time.Time) *AgentState {
	return &AgentState{
		RunID:          runID,
		UserID:         userID,
		Question:       question,
		StartedAt:      startedAt,
		citationGround: make(map[int]GroundSource),
		nextCitation:   1,
	}
}

// NextCitationNumbers allocates n consecutive citation numbers, advancing
// the monotonic counter (invariant: citation numbers are never reused or
// reassigned within a run).
func (s *AgentState) NextCitationNumbers(n int) []int {
	nums := make([]int, n)
	for i := 0; i < n; i++ {
		nums[i] = s.nextCitation
		s.nextCitation++
	}
	return nums
}

const maxContextCitations = 5

// RecordGrounding associates a citation number with its source text and
// pushes it into the rolling context window, evicting the oldest entry once
// the window exceeds MAX_CONTEXT_CITATIONS.
func (s *AgentState) RecordGrounding(citation int, src GroundSource) {
	s.citationGround[citation] = src
	s.citationWindow = append(s.citationWindow, citation)
	if len(s.citationWindow) > maxContextCitations {
		s.citationWindow = s.citationWindow[len(s.citationWindow)-maxContextCitations:]
	}
}

// ContextCitations returns the citation numbers currently in the rolling
// window, oldest first.
func (s *AgentState) ContextCitations() []int {
	out := make([]int, len(s.citationWindow))
	copy(out, s.citationWindow)
	return out
}

// GroundFor returns the grounding source for a citation number, searching
// the full-lifetime map (not just the rolling window).
func (s *AgentState) GroundFor(citation int) (GroundSource, bool) {
	src, ok := s.citationGround[citation]
	return src, ok
}

// AllCitations returns every citation number ever grounded in this run, in
// ascending order.
func (s *AgentState) AllCitations() []int {
	out := make([]int, 0, len(s.citationGround))
	for c := range s.citationGround {
		out = append(out, c)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// RecordSearch appends hits from a search_docs call and, if query has not
// been seen before, records it as a new distinct search.
func (s *AgentState) RecordSearch(query string, hits []SearchHit) {
	seen := false
	for _, q := range s.SearchQueries {
		if q == query {
			seen = true
			break
		}
	}
	if !seen {
		s.SearchQueries = append(s.SearchQueries, query)
	}
	s.SearchHits = append(s.SearchHits, hits...)
}

// DistinctSearches returns the count of distinct search queries issued.
func (s *AgentState) DistinctSearches() int {
	return len(s.SearchQueries)
}

// RecordOpen appends a chunk opened via open_citation.
func (s *AgentState) RecordOpen(chunk OpenedChunk) {
	s.OpenedChunks = append(s.OpenedChunks, chunk)
}

// RecordInsufficiency appends a disclosed documentation gap.
func (s *AgentState) RecordInsufficiency(section, missing string, queriesTried []string) {
	s.Insufficiency = append(s.Insufficiency, Insufficiency{Section: section, Missing: missing, QueriesTried: queriesTried})
}

// AddNote appends a short free-text note to the run's history (errors,
// recoveries, auto-open actions). The full history is kept; callers wanting
// the bounded 3-item display use LastNotes.
func (s *AgentState) AddNote(note string) {
	s.Notes = append(s.Notes, note)
}

// LastNotes returns up to the last 3 notes, oldest first, for prompt
// display (spec: "notes bounded display to last 3").
func (s *AgentState) LastNotes() []string {
	if len(s.Notes) <= 3 {
		out := make([]string, len(s.Notes))
		copy(out, s.Notes)
		return out
	}
	out := make([]string, 3)
	copy(out, s.Notes[len(s.Notes)-3:])
	return out
}

// Log appends an entry to the run's activity trace.
func (s *AgentState) Log(kind, detail string, at time.Time) {
	s.Trace = append(s.Trace, TraceEntry{Iteration: s.Iteration, Kind: kind, Detail: detail, At: at})
}

// DistinctOpenedChunks returns the count of unique (docID, chunkID) pairs
// opened via open_citation — the quantity the validator's
// MIN_OPEN_CITATIONS check actually cares about, since a buggy oracle could
// re-open the same chunk repeatedly without that counting as progress.
func (s *AgentState) DistinctOpenedChunks() int {
	seen := make(map[string]struct{}, len(s.OpenedChunks))
	for _, c := range s.OpenedChunks {
		seen[c.DocID+"/"+c.ChunkID] = struct{}{}
	}
	return len(seen)
}

// Snapshot is an immutable view of AgentState handed to the validator and
// reprompt builder, matching apps/agent/validator.py's
// AgentStateSnapshot.from_agent_state — a deliberate copy so those
// components cannot mutate the live run state.
type Snapshot struct {
	Iteration            int
	ToolCallsUsed        int
	RepromptsUsed        int
	DistinctSearches     int
	DistinctOpenedChunks int
	ContextCitations     []int
	AllCitations         []int
	Insufficiency        []Insufficiency
}

// Snapshot captures the current state for read-only inspection.
func (s *AgentState) Snapshot() Snapshot {
	insuff := make([]Insufficiency, len(s.Insufficiency))
	copy(insuff, s.Insufficiency)
	return Snapshot{
		Iteration:            s.Iteration,
		ToolCallsUsed:        s.ToolCallsUsed,
		RepromptsUsed:        s.RepromptsUsed,
		DistinctSearches:     s.DistinctSearches(),
		DistinctOpenedChunks: s.DistinctOpenedChunks(),
		ContextCitations:     s.ContextCitations(),
		AllCitations:         s.AllCitations(),
		Insufficiency:        insuff,
	}
}
