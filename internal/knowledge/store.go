// Package knowledge manages the document knowledge base backed by
// PostgreSQL + pgvector. Documents are chunked, embedded and stored
// with deterministic content-derived IDs so re-indexing is idempotent.
package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"

	"github.com/riffle-ai/riffle/internal/log"
)

// VectorDimension is the embedding width stored in pgvector columns.
// gemini-embedding-001 supports Matryoshka truncation to 768.
const VectorDimension = 768

// EmbedTimeout bounds a single embedding call.
const EmbedTimeout = 30 * time.Second

// Chunk is a document fragment ready for storage.
type Chunk struct {
	ID      string
	Content string
	Source  string
}

// SearchResult is a knowledge base hit ordered by similarity.
type SearchResult struct {
	ID         string
	Content    string
	Source     string
	Similarity float32
}

// Store persists and searches embedded document chunks.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   log.Logger
}

// NewStore creates a knowledge Store.
func NewStore(pool *pgxpool.Pool, embedder ai.Embedder, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}, nil
}

// embed generates a vector embedding for the given text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	dim := int32(VectorDimension)
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding response")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// Add upserts a chunk. The content-derived ID makes repeated indexing
// of unchanged files a no-op.
func (s *Store) Add(ctx context.Context, chunk Chunk) error {
	if chunk.ID == "" || chunk.Content == "" {
		return fmt.Errorf("chunk id and content are required")
	}

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()
	vec, err := s.embed(embedCtx, chunk.Content)
	if err != nil {
		return fmt.Errorf("add chunk %s: %w", chunk.ID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO kb_documents (id, content, source, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		chunk.ID, chunk.Content, chunk.Source, vec)
	if err != nil {
		return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// Search returns the limit nearest chunks by cosine similarity.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()
	vec, err := s.embed(embedCtx, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, content, source, 1 - (embedding <=> $1) AS similarity
		FROM kb_documents
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vec, limit)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Content, &r.Source, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	s.logger.DebugContext(ctx, "knowledge search", "results", len(results))
	return results, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM kb_documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// DeleteBySource removes every chunk indexed from the given source file.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM kb_documents WHERE source = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("delete by source %s: %w", source, err)
	}
	return tag.RowsAffected(), nil
}
