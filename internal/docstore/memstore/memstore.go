// Package memstore is an in-memory docstore.Store, used by tests (the CLI
// wires pgstore instead). It indexes documents loaded at construction time with a
// simple case-insensitive substring scorer — good enough to exercise the
// agent loop without a real vector index.
package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/docuqa/agent-runtime/internal/docstore"
)

// Document is one document's full text, pre-split into chunks.
type Document struct {
	DocID    string
	Filename string
	OwnerID  string
	Chunks   []string
}

type indexedChunk struct {
	docID      string
	chunkID    string
	chunkIndex int
	filename   string
	ownerID    string
	text       string
}

// Store is a synchronous, single-process reference implementation of
// docstore.Store. It is safe for concurrent reads after construction.
type Store struct {
	chunks []indexedChunk
}

// New builds a Store from a fixed set of documents. Chunk IDs are assigned
// deterministically as "<docID>-chunk-<index>".
func New(docs []Document) *Store {
	s := &Store{}
	for _, d := range docs {
		for i, text := range d.Chunks {
			s.chunks = append(s.chunks, indexedChunk{
				docID:      d.DocID,
				chunkID:    chunkIDFor(d.DocID, i),
				chunkIndex: i,
				filename:   d.Filename,
				ownerID:    d.OwnerID,
				text:       text,
			})
		}
	}
	return s
}

func chunkIDFor(docID string, index int) string {
	return docID + "-chunk-" + itoa(index)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

const snippetLength = 250

// Search scores chunks owned by userID by counting case-insensitive
// occurrences of each query token, returning the topK highest-scoring hits.
func (s *Store) Search(ctx context.Context, userID, query string, topK int) ([]docstore.Hit, error) {
	lowerQuery := strings.ToLower(strings.TrimSpace(query))
	tokens := strings.Fields(lowerQuery)

	type scored struct {
		hit   docstore.Hit
		score float64
	}
	var candidates []scored

	for _, c := range s.chunks {
		if c.ownerID != userID {
			continue
		}
		lowerText := strings.ToLower(c.text)
		var score float64
		for _, tok := range tokens {
			score += float64(strings.Count(lowerText, tok))
		}
		if score == 0 {
			continue
		}
		snippet := c.text
		if len(snippet) > snippetLength {
			snippet = snippet[:snippetLength]
		}
		candidates = append(candidates, scored{
			hit: docstore.Hit{
				DocID:      c.docID,
				ChunkID:    c.chunkID,
				ChunkIndex: c.chunkIndex,
				Snippet:    snippet,
				Score:      score,
				Filename:   c.filename,
			},
			score: score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}
	out := make([]docstore.Hit, topK)
	for i := 0; i < topK; i++ {
		out[i] = candidates[i].hit
	}
	return out, nil
}

// Chunk returns the full text of one chunk, enforcing ownership.
func (s *Store) Chunk(ctx context.Context, userID, docID, chunkID string) (docstore.Chunk, error) {
	for _, c := range s.chunks {
		if c.docID == docID && c.chunkID == chunkID {
			if c.ownerID != userID {
				return docstore.Chunk{}, docstore.ErrAccessDenied
			}
			return docstore.Chunk{
				DocID:      c.docID,
				ChunkID:    c.chunkID,
				ChunkIndex: c.chunkIndex,
				Text:       c.text,
				Filename:   c.filename,
			}, nil
		}
	}
	return docstore.Chunk{}, docstore.ErrNotFound
}
