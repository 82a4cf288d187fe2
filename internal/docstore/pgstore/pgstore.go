// Package pgstore is a Postgres-backed docstore.Store, for production
// wiring per SPEC_FULL.md §1.2. It assumes an upstream indexing pipeline
// (out of scope per spec.md §1) has already populated a `chunks` table with
// a full-text `search_vector` column; this package only issues the two
// queries the agent needs. Search filters by owner in SQL; Chunk checks
// ownership in application code.
package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docuqa/agent-runtime/internal/docstore"
)

// rows narrows pgx.Rows to what Store consumes, so tests can substitute a
// fake result set without a live database — the same seam the bedrock
// adapter keeps around its Converse call.
type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// row narrows pgx.Row, pgx's single-result type.
type row interface {
	Scan(dest ...any) error
}

// querier is the slice of *pgxpool.Pool this package depends on.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) row
}

// Store queries a Postgres database for search_docs and open_citation.
type Store struct {
	pool querier
}

// New wraps an existing connection pool. Callers own the pool's lifecycle.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: poolQuerier{pool: pool}}
}

// poolQuerier adapts *pgxpool.Pool's Query/QueryRow to the querier
// interface; pgx.Rows and pgx.Row already satisfy rows/row, so this is
// purely a return-type narrowing, not a reimplementation.
type poolQuerier struct {
	pool *pgxpool.Pool
}

func (p poolQuerier) Query(ctx context.Context, sql string, args ...any) (rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

func (p poolQuerier) QueryRow(ctx context.Context, sql string, args ...any) row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// searchQuery ranks chunks by `ts_rank` over the upstream-populated
// `search_vector` column, computed at query time; the agent core only relies
// on results arriving ordered by descending score.
const searchQuery = `
SELECT doc_id, chunk_id, chunk_index, filename,
       left(text, 250) AS snippet,
       ts_rank(search_vector, plainto_tsquery('english', $2)) AS score
FROM chunks
WHERE owner_user_id = $1
  AND search_vector @@ plainto_tsquery('english', $2)
ORDER BY score DESC
LIMIT $3
`

// Search issues searchQuery and maps rows to docstore.Hit.
func (s *Store) Search(ctx context.Context, userID, query string, topK int) ([]docstore.Hit, error) {
	rows, err := s.pool.Query(ctx, searchQuery, userID, query, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []docstore.Hit
	for rows.Next() {
		var h docstore.Hit
		if err := rows.Scan(&h.DocID, &h.ChunkID, &h.ChunkIndex, &h.Filename, &h.Snippet, &h.Score); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

const chunkQuery = `
SELECT doc_id, chunk_id, chunk_index, filename, text, owner_user_id
FROM chunks
WHERE doc_id = $1 AND chunk_id = $2
`

// Chunk issues chunkQuery and enforces the ownership check in application
// code (rather than in the WHERE clause) so a mismatch can be reported as
// docstore.ErrAccessDenied instead of indistinguishable from ErrNotFound.
func (s *Store) Chunk(ctx context.Context, userID, docID, chunkID string) (docstore.Chunk, error) {
	var c docstore.Chunk
	var ownerID string

	row := s.pool.QueryRow(ctx, chunkQuery, docID, chunkID)
	if err := row.Scan(&c.DocID, &c.ChunkID, &c.ChunkIndex, &c.Filename, &c.Text, &ownerID); err != nil {
		return docstore.Chunk{}, docstore.ErrNotFound
	}
	if ownerID != userID {
		return docstore.Chunk{}, docstore.ErrAccessDenied
	}
	return c, nil
}
