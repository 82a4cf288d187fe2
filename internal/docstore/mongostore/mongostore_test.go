package mongostore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/docuqa/agent-runtime/internal/docstore"
)

type fakeCursor struct {
	docs []chunkDocument
	pos  int
}

func (c *fakeCursor) Next(context.Context) bool {
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Decode(val any) error {
	out, ok := val.(*chunkDocument)
	if !ok {
		return errors.New("unexpected decode target")
	}
	*out = c.docs[c.pos-1]
	return nil
}

func (c *fakeCursor) Close(context.Context) error { return nil }
func (c *fakeCursor) Err() error                  { return nil }

type fakeSingleResult struct {
	doc chunkDocument
	err error
}

func (r fakeSingleResult) Decode(val any) error {
	if r.err != nil {
		return r.err
	}
	out, ok := val.(*chunkDocument)
	if !ok {
		return errors.New("unexpected decode target")
	}
	*out = r.doc
	return nil
}

type fakeCollection struct {
	findResult   *fakeCursor
	findOneResult fakeSingleResult
	lastFilter   bson.M
}

func (f *fakeCollection) Find(_ context.Context, filter any, _ ...options.Lister[options.FindOptions]) (cursor, error) {
	f.lastFilter, _ = filter.(bson.M)
	return f.findResult, nil
}

func (f *fakeCollection) FindOne(_ context.Context, filter any, _ ...options.Lister[options.FindOneOptions]) singleResult {
	f.lastFilter, _ = filter.(bson.M)
	return f.findOneResult
}

func TestSearch_ScopesFilterToOwnerAndQuery(t *testing.T) {
	fc := &fakeCollection{findResult: &fakeCursor{docs: []chunkDocument{
		{DocID: "d1", ChunkID: "c1", Filename: "a.md", Text: "hello world", Score: 0.8},
	}}}
	s := &Store{coll: fc}

	hits, err := s.Search(context.Background(), "user-1", "refund policy", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0].DocID)
	assert.Equal(t, 0.8, hits[0].Score)
	assert.Equal(t, "user-1", fc.lastFilter["owner_user_id"])
	assert.Equal(t, bson.M{"$search": "refund policy"}, fc.lastFilter["$text"])
}

func TestSearch_TruncatesLongSnippets(t *testing.T) {
	longText := make([]byte, 400)
	for i := range longText {
		longText[i] = 'x'
	}
	fc := &fakeCollection{findResult: &fakeCursor{docs: []chunkDocument{
		{DocID: "d1", ChunkID: "c1", Text: string(longText)},
	}}}
	s := &Store{coll: fc}

	hits, err := s.Search(context.Background(), "user-1", "q", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Len(t, hits[0].Snippet, 250)
}

func TestChunk_ReturnsAccessDeniedForWrongOwner(t *testing.T) {
	fc := &fakeCollection{findOneResult: fakeSingleResult{doc: chunkDocument{
		DocID: "d1", ChunkID: "c1", OwnerID: "someone-else",
	}}}
	s := &Store{coll: fc}

	_, err := s.Chunk(context.Background(), "user-1", "d1", "c1")
	assert.ErrorIs(t, err, docstore.ErrAccessDenied)
}

func TestChunk_ReturnsNotFoundWhenMissing(t *testing.T) {
	fc := &fakeCollection{findOneResult: fakeSingleResult{err: mongo.ErrNoDocuments}}
	s := &Store{coll: fc}

	_, err := s.Chunk(context.Background(), "user-1", "d1", "c1")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestChunk_ReturnsChunkForOwner(t *testing.T) {
	fc := &fakeCollection{findOneResult: fakeSingleResult{doc: chunkDocument{
		DocID: "d1", ChunkID: "c1", ChunkIndex: 2, Filename: "a.md", Text: "body", OwnerID: "user-1",
	}}}
	s := &Store{coll: fc}

	c, err := s.Chunk(context.Background(), "user-1", "d1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "body", c.Text)
	assert.Equal(t, 2, c.ChunkIndex)
}
