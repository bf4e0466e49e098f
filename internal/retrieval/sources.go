package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/riffle-ai/riffle/internal/knowledge"
	"github.com/riffle-ai/riffle/internal/memory"
)

// KnowledgeSource adapts the knowledge base store to the Searcher interface.
type KnowledgeSource struct {
	store *knowledge.Store
}

// NewKnowledgeSource creates a Searcher backed by the knowledge base.
func NewKnowledgeSource(store *knowledge.Store) (*KnowledgeSource, error) {
	if store == nil {
		return nil, fmt.Errorf("knowledge store is required")
	}
	return &KnowledgeSource{store: store}, nil
}

func (s *KnowledgeSource) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	results, err := s.store.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("knowledge search: %w", err)
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{DocID: r.ID, Content: r.Content, Score: r.Similarity})
	}
	return hits, nil
}

func (s *KnowledgeSource) Origin() Origin { return OriginKnowledgeBase }

// MemorySource adapts the conversation memory store to the Searcher
// interface, scoped to one session.
type MemorySource struct {
	store     *memory.Store
	sessionID uuid.UUID
}

// NewMemorySource creates a Searcher over one session's conversation memory.
func NewMemorySource(store *memory.Store, sessionID uuid.UUID) (*MemorySource, error) {
	if store == nil {
		return nil, fmt.Errorf("memory store is required")
	}
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("session id is required")
	}
	return &MemorySource{store: store, sessionID: sessionID}, nil
}

func (s *MemorySource) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	results, err := s.store.Search(ctx, s.sessionID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("memory search: %w", err)
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{DocID: r.TurnID.String(), Content: r.Content, Score: r.Similarity})
	}
	return hits, nil
}

func (s *MemorySource) Origin() Origin { return OriginMemory }
