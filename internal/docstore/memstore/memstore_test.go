package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docuqa/agent-runtime/internal/docstore"
)

func testStore() *Store {
	return New([]Document{
		{
			DocID:    "doc-123",
			Filename: "runbook.md",
			OwnerID:  "user-1",
			Chunks: []string{
				"To reindex, run the command reindex sql on the primary.",
				"The redirect uri must match exactly what was registered.",
			},
		},
		{
			DocID:    "doc-999",
			Filename: "other.md",
			OwnerID:  "user-2",
			Chunks:   []string{"unrelated content for another user"},
		},
	})
}

func TestSearch_OwnerScoped(t *testing.T) {
	s := testStore()
	hits, err := s.Search(context.Background(), "user-1", "reindex sql", 5)
	assert.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, "doc-123", hits[0].DocID)
}

func TestSearch_ExcludesOtherUsersDocs(t *testing.T) {
	s := testStore()
	hits, err := s.Search(context.Background(), "user-1", "unrelated content", 5)
	assert.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChunk_AccessDenied(t *testing.T) {
	s := testStore()
	hits, _ := s.Search(context.Background(), "user-2", "unrelated content", 5)
	assert.Len(t, hits, 1)

	_, err := s.Chunk(context.Background(), "user-1", hits[0].DocID, hits[0].ChunkID)
	assert.ErrorIs(t, err, docstore.ErrAccessDenied)
}

func TestChunk_NotFound(t *testing.T) {
	s := testStore()
	_, err := s.Chunk(context.Background(), "user-1", "doc-123", "chunk-nope")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestChunk_Success(t *testing.T) {
	s := testStore()
	hits, _ := s.Search(context.Background(), "user-1", "redirect uri", 5)
	assert.Len(t, hits, 1)

	chunk, err := s.Chunk(context.Background(), "user-1", hits[0].DocID, hits[0].ChunkID)
	assert.NoError(t, err)
	assert.Contains(t, chunk.Text, "redirect uri")
}
