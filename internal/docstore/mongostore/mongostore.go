// Package mongostore is a MongoDB-backed docstore.Store, an alternative to
// pgstore for deployments that index chunks into Mongo's text-search engine
// instead of Postgres. Grounded on the client/collection-interface seam the
// teacher repo's features/memory/mongo/clients/mongo package uses to keep the
// driver testable without a live cluster.
package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/docuqa/agent-runtime/internal/docstore"
)

const defaultCollection = "chunks"

// collection narrows *mongo.Collection to the two operations this store
// issues, so tests can substitute a fake cursor/result without a live
// cluster.
type collection interface {
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (cursor, error)
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult
}

type cursor interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Close(ctx context.Context) error
	Err() error
}

type singleResult interface {
	Decode(val any) error
}

// Store queries a MongoDB collection for search_docs and open_citation.
type Store struct {
	coll collection
}

// New wraps a *mongo.Collection holding indexed document chunks. Callers own
// the client's lifecycle (connect/disconnect, index creation).
func New(coll *mongo.Collection) *Store {
	return &Store{coll: mongoCollection{coll: coll}}
}

// NewFromClient is a convenience wrapper around New for the common case of a
// single database/collection pair.
func NewFromClient(client *mongo.Client, database, collectionName string) *Store {
	if collectionName == "" {
		collectionName = defaultCollection
	}
	return New(client.Database(database).Collection(collectionName))
}

type chunkDocument struct {
	DocID      string `bson:"doc_id"`
	ChunkID    string `bson:"chunk_id"`
	ChunkIndex int    `bson:"chunk_index"`
	Filename   string `bson:"filename"`
	Text       string `bson:"text"`
	OwnerID    string `bson:"owner_user_id"`
	Score      float64 `bson:"score,omitempty"`
}

// Search runs a $text query scoped to userID's documents and sorts by the
// textScore projection, Mongo's equivalent of pgstore's ts_rank column.
func (s *Store) Search(ctx context.Context, userID, query string, topK int) ([]docstore.Hit, error) {
	filter := bson.M{
		"owner_user_id": userID,
		"$text":         bson.M{"$search": query},
	}
	projection := bson.M{"score": bson.M{"$meta": "textScore"}}
	findOpts := options.Find().
		SetProjection(projection).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetLimit(int64(topK))

	cur, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var hits []docstore.Hit
	for cur.Next(ctx) {
		var doc chunkDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		hits = append(hits, docstore.Hit{
			DocID:      doc.DocID,
			ChunkID:    doc.ChunkID,
			ChunkIndex: doc.ChunkIndex,
			Filename:   doc.Filename,
			Snippet:    snippet(doc.Text),
			Score:      doc.Score,
		})
	}
	return hits, cur.Err()
}

// Chunk fetches one document by (docID, chunkID) and enforces ownership in
// application code, matching pgstore's ErrAccessDenied/ErrNotFound split.
func (s *Store) Chunk(ctx context.Context, userID, docID, chunkID string) (docstore.Chunk, error) {
	filter := bson.M{"doc_id": docID, "chunk_id": chunkID}
	var doc chunkDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return docstore.Chunk{}, docstore.ErrNotFound
		}
		return docstore.Chunk{}, err
	}
	if doc.OwnerID != userID {
		return docstore.Chunk{}, docstore.ErrAccessDenied
	}
	return docstore.Chunk{
		DocID:      doc.DocID,
		ChunkID:    doc.ChunkID,
		ChunkIndex: doc.ChunkIndex,
		Filename:   doc.Filename,
		Text:       doc.Text,
	}, nil
}

func snippet(text string) string {
	const max = 250
	if len(text) <= max {
		return text
	}
	return text[:max]
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c mongoCollection) Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (cursor, error) {
	cur, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (c mongoCollection) FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult {
	return c.coll.FindOne(ctx, filter, opts...)
}
