// Package memory persists conversation turns in PostgreSQL + pgvector
// so earlier parts of a session can be recalled semantically during
// retrieval and reloaded verbatim when a session resumes.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"

	"github.com/riffle-ai/riffle/internal/conversation"
	"github.com/riffle-ai/riffle/internal/log"
)

// VectorDimension is the embedding width stored in pgvector columns.
// Must match the kb_documents schema so both stores share one embedder.
const VectorDimension = 768

// EmbedTimeout bounds a single embedding call.
const EmbedTimeout = 30 * time.Second

// SearchResult is a remembered turn matched by semantic similarity.
type SearchResult struct {
	TurnID     uuid.UUID
	Role       conversation.Role
	Content    string
	Similarity float32
}

// Store manages conversation memory backed by PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   log.Logger
}

// NewStore creates a memory Store.
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

// Write persists a turn under the session. The turn's own ID keys the
// row, so retried writes of the same turn are idempotent.
func (s *Store) Write(ctx context.Context, sessionID uuid.UUID, turn conversation.Turn) error {
	if sessionID == uuid.Nil {
		return fmt.Errorf("session id is required")
	}
	if turn.Text == "" {
		return fmt.Errorf("turn text is required")
	}

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()
	vec, err := s.embed(embedCtx, turn.Text)
	if err != nil {
		return fmt.Errorf("write turn: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO memory_turns (id, session_id, role, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		turn.ID, sessionID, string(turn.Role), turn.Text, vec, turn.Timestamp)
	if err != nil {
		return fmt.Errorf("insert turn %s: %w", turn.ID, err)
	}
	return nil
}

// Search returns the limit most similar turns within the session.
func (s *Store) Search(ctx context.Context, sessionID uuid.UUID, query string, limit int) ([]SearchResult, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("session id is required")
	}
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
		SELECT id, role, content, 1 - (embedding <=> $1) AS similarity
		FROM memory_turns
		WHERE session_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		vec, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var role string
		if err := rows.Scan(&r.TurnID, &role, &r.Content, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Role = conversation.Role(role)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	s.logger.DebugContext(ctx, "memory search", "session_id", sessionID, "results", len(results))
	return results, nil
}

// Recent returns the session's last n turns in chronological order,
// used to rebuild the in-process history when a session resumes.
func (s *Store) Recent(ctx context.Context, sessionID uuid.UUID, n int) ([]conversation.Turn, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("session id is required")
	}
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive, got %d", n)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, role, content, created_at
		FROM (
			SELECT id, role, content, created_at
			FROM memory_turns
			WHERE session_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`,
		sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("recent query: %w", err)
	}
	defer rows.Close()

	var turns []conversation.Turn
	for rows.Next() {
		var t conversation.Turn
		var role string
		if err := rows.Scan(&t.ID, &role, &t.Text, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = conversation.Role(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

// Clear deletes every turn in the session. Used by session reset.
func (s *Store) Clear(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	if sessionID == uuid.Nil {
		return 0, fmt.Errorf("session id is required")
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM memory_turns WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("clear session %s: %w", sessionID, err)
	}
	return tag.RowsAffected(), nil
}

// SessionWriter binds a Store to one session so pipeline stages can
// write turns without carrying the session ID.
type SessionWriter struct {
	store     *Store
	sessionID uuid.UUID
}

// NewSessionWriter creates a SessionWriter.
func NewSessionWriter(store *Store, sessionID uuid.UUID) (*SessionWriter, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("session id is required")
	}
	return &SessionWriter{store: store, sessionID: sessionID}, nil
}

func (w *SessionWriter) Write(ctx context.Context, turn conversation.Turn) error {
	return w.store.Write(ctx, w.sessionID, turn)
}
