package ground

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuqa/agent-runtime/internal/action"
	"github.com/docuqa/agent-runtime/internal/agentstate"
)

func stateWithOpenedChunks(t *testing.T) *agentstate.AgentState {
	t.Helper()
	s := agentstate.New("r", "u", "q", time.Now())
	nums := s.NextCitationNumbers(2)
	require.Equal(t, []int{1, 2}, nums)

	c1 := agentstate.OpenedChunk{DocID: "doc-123", ChunkID: "chunk-456", ChunkIndex: 0, Text: "first chunk text", Citation: 1}
	c2 := agentstate.OpenedChunk{DocID: "doc-123", ChunkID: "chunk-789", ChunkIndex: 1, Text: "second chunk text", Citation: 2}
	s.RecordOpen(c1)
	s.RecordOpen(c2)
	s.RecordGrounding(1, agentstate.GroundSource{DocID: c1.DocID, ChunkID: c1.ChunkID, Text: c1.Text})
	s.RecordGrounding(2, agentstate.GroundSource{DocID: c2.DocID, ChunkID: c2.ChunkID, Text: c2.Text})
	return s
}

func TestGround_HappyPathValidCitations(t *testing.T) {
	s := stateWithOpenedChunks(t)
	final := action.Action{
		Kind:   action.KindFinal,
		Answer: "Based on [1] and [2], here is the answer.",
		UsedCitations: []action.UsedCitation{
			{DocID: "doc-123", ChunkID: "chunk-456", ChunkIndex: 0},
			{DocID: "doc-123", ChunkID: "chunk-789", ChunkIndex: 1},
		},
	}

	answer, citations := Ground(final, s)
	assert.Equal(t, "Based on [1] and [2], here is the answer.", answer)
	assert.Len(t, citations, 2)
}

func TestGround_StripsHallucinatedMarker(t *testing.T) {
	s := stateWithOpenedChunks(t)
	final := action.Action{Kind: action.KindFinal, Answer: "[1] and [2] and [3]"}

	answer, citations := Ground(final, s)
	assert.NotContains(t, answer, "[3]")
	assert.Contains(t, answer, "[1]")
	assert.Contains(t, answer, "[2]")
	assert.Len(t, citations, 2)
}

func TestGround_FallbackToSearchHitsWhenNothingOpened(t *testing.T) {
	s := agentstate.New("r", "u", "q", time.Now())
	s.RecordSearch("q1", []agentstate.SearchHit{
		{DocID: "d1", ChunkID: "c1", Snippet: "s1", Score: 0.9},
		{DocID: "d1", ChunkID: "c2", Snippet: "s2", Score: 0.5},
	})
	final := action.Action{Kind: action.KindFinal, Answer: "I don't know based on the provided documents."}

	_, citations := Ground(final, s)
	assert.Len(t, citations, 2)
}

func TestGround_FallbackRanksAcrossMultipleSearchCalls(t *testing.T) {
	s := agentstate.New("r", "u", "q", time.Now())
	// The first query's hits arrive first, but the single best hit overall
	// (0.99) arrives in the second call — SearchHits is just the
	// flat concatenation of both, so the fallback must re-sort by Score
	// rather than trust arrival order.
	s.RecordSearch("q1", []agentstate.SearchHit{
		{DocID: "d1", ChunkID: "c1", Snippet: "s1", Score: 0.5},
		{DocID: "d1", ChunkID: "c2", Snippet: "s2", Score: 0.4},
	})
	s.RecordSearch("q2", []agentstate.SearchHit{
		{DocID: "d2", ChunkID: "c3", Snippet: "s3", Score: 0.99},
	})
	final := action.Action{Kind: action.KindFinal, Answer: "I don't know based on the provided documents."}

	_, citations := Ground(final, s)
	require.Len(t, citations, 3)
	assert.Equal(t, "c3", citations[0].ChunkID)
	assert.Equal(t, 0.99, citations[0].Score)
}

func TestGround_NoFallbackWhenChunksWereOpened(t *testing.T) {
	s := stateWithOpenedChunks(t)
	final := action.Action{Kind: action.KindFinal, Answer: "No bracket markers here."}

	_, citations := Ground(final, s)
	assert.Empty(t, citations)
}

func TestGround_CollapsesMultipleSpaces(t *testing.T) {
	s := stateWithOpenedChunks(t)
	final := action.Action{Kind: action.KindFinal, Answer: "Text with  [3]  removed here."}

	answer, _ := Ground(final, s)
	assert.NotContains(t, answer, "  ")
}
