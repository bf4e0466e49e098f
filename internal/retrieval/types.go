// Package retrieval implements multi-source document retrieval with
// Reciprocal Rank Fusion. Sub-queries fan out concurrently across the
// knowledge base and conversation memory, and the per-source ranked
// lists are fused into a single relevance ordering.
package retrieval

import (
	"context"

	"github.com/google/uuid"
)

// Origin identifies which retrieval source produced a document.
type Origin string

// Retrieval sources.
const (
	OriginKnowledgeBase Origin = "knowledge_base"
	OriginMemory        Origin = "memory"
)

// SubQuery is a focused single-concept query derived from the user's turn.
type SubQuery struct {
	ID         uuid.UUID
	Text       string
	OriginTurn uuid.UUID
}

// Document is a retrieved document with its 1-based rank in the source's
// result list for one sub-query.
type Document struct {
	DocID    string
	Content  string
	Rank     int
	Origin   Origin
	SubQuery uuid.UUID
}

// Fused is a deduplicated document with its accumulated RRF score.
// Origin is the source that first surfaced the document.
type Fused struct {
	DocID   string
	Content string
	Origin  Origin
	Score   float64
}

// Hit is a raw search result from a single source, ordered most relevant
// first. Score is the source-native similarity and is only meaningful
// within one source's result list.
type Hit struct {
	DocID   string
	Content string
	Score   float32
}

// Searcher is a single retrieval source. Implementations must return
// results ordered by descending relevance.
type Searcher interface {
	// Search returns up to limit hits for the query.
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
	// Origin identifies the source for provenance tracking.
	Origin() Origin
}
