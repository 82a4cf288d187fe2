package toolsvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuqa/agent-runtime/internal/agentstate"
	"github.com/docuqa/agent-runtime/internal/docstore/memstore"
)

func testDispatcher() *Dispatcher {
	store := memstore.New([]memstore.Document{
		{
			DocID:    "c5bd8bfc-1234-5678-abcd-1234567890ab",
			Filename: "runbook.md",
			OwnerID:  "user-1",
			Chunks: []string{
				"Run reindex sql on the primary before cutover.",
				"The redirect uri must match exactly what was registered.",
			},
		},
	})
	return New(store, 0, 0)
}

func TestSearchDocs_EmptyQuery(t *testing.T) {
	d := testDispatcher()
	state := agentstate.New("r", "user-1", "q", time.Now())
	_, err := d.SearchDocs(context.Background(), "user-1", state, map[string]any{"query": "  "})
	require.Error(t, err)
	var e *Error
	assert.ErrorAs(t, err, &e)
	assert.Equal(t, KindValidation, e.Kind)
}

func TestSearchDocs_RecordsDistinctQuery(t *testing.T) {
	d := testDispatcher()
	state := agentstate.New("r", "user-1", "q", time.Now())
	hits, err := d.SearchDocs(context.Background(), "user-1", state, map[string]any{"query": "reindex sql"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, 1, state.DistinctSearches())
}

func TestOpenCitation_TruncatedUUIDRecovery(t *testing.T) {
	d := testDispatcher()
	state := agentstate.New("r", "user-1", "q", time.Now())
	_, err := d.SearchDocs(context.Background(), "user-1", state, map[string]any{"query": "reindex sql"})
	require.NoError(t, err)

	truncated := "c5bd8bfc-1234-5678-a" // prefix of the full docID
	fullChunkID := state.SearchHits[0].ChunkID

	opened, err := d.OpenCitation(context.Background(), "user-1", state, map[string]any{
		"docId":   truncated,
		"chunkId": fullChunkID,
	})
	require.NoError(t, err)
	assert.Equal(t, "c5bd8bfc-1234-5678-abcd-1234567890ab", opened.DocID)
	assert.Equal(t, 1, opened.Citation)
}

func TestOpenCitation_UnresolvableIdentifier(t *testing.T) {
	d := testDispatcher()
	state := agentstate.New("r", "user-1", "q", time.Now())
	_, err := d.OpenCitation(context.Background(), "user-1", state, map[string]any{
		"docId":   "nonexistent",
		"chunkId": "nonexistent",
	})
	require.Error(t, err)
	var e *Error
	assert.ErrorAs(t, err, &e)
	assert.Equal(t, KindValidation, e.Kind)
}

func TestOpenCitation_AccessDenied(t *testing.T) {
	store := memstore.New([]memstore.Document{
		{DocID: "doc-a", Filename: "f.md", OwnerID: "owner", Chunks: []string{"secret content"}},
	})
	d := New(store, 0, 0)
	ownerState := agentstate.New("r", "owner", "q", time.Now())
	_, err := d.SearchDocs(context.Background(), "owner", ownerState, map[string]any{"query": "secret"})
	require.NoError(t, err)

	// A different user somehow learns the identifiers and tries to open them.
	attackerState := agentstate.New("r2", "attacker", "q", time.Now())
	attackerState.SearchHits = ownerState.SearchHits
	_, err = d.OpenCitation(context.Background(), "attacker", attackerState, map[string]any{
		"docId":   ownerState.SearchHits[0].DocID,
		"chunkId": ownerState.SearchHits[0].ChunkID,
	})
	require.Error(t, err)
	var e *Error
	assert.ErrorAs(t, err, &e)
	assert.Equal(t, KindAccess, e.Kind)
}

func TestResolveIdentifiers_AmbiguousPrefixFails(t *testing.T) {
	hits := []agentstate.SearchHit{
		{DocID: "abc123", ChunkID: "x"},
		{DocID: "abc999", ChunkID: "y"},
	}
	_, _, ok := ResolveIdentifiers(hits, "abc", "x")
	assert.False(t, ok)
}

func TestResolveIdentifiers_ChunkFallsBackToFirstInDoc(t *testing.T) {
	hits := []agentstate.SearchHit{
		{DocID: "doc-1", ChunkID: "chunk-1"},
		{DocID: "doc-1", ChunkID: "chunk-2"},
	}
	doc, chunk, ok := ResolveIdentifiers(hits, "doc-1", "does-not-exist")
	assert.True(t, ok)
	assert.Equal(t, "doc-1", doc)
	assert.Equal(t, "chunk-1", chunk)
}
