package pipeline

import (
	"github.com/riffle-ai/riffle/internal/conversation"
	"github.com/riffle-ai/riffle/internal/retrieval"
)

// State is the shared state threaded through every pipeline stage. Each
// stage reads what earlier stages wrote and adds its own output; writes
// made by completed stages survive later failures.
type State struct {
	// Query is the user turn driving this run.
	Query conversation.Turn

	// History is the session's conversation history. The query turn is
	// appended during the memory stage and the answer turn after
	// generation succeeds.
	History *conversation.History

	// SubQueries is the deconstruction output.
	SubQueries []retrieval.SubQuery

	// Retrieved holds every ranked document with provenance, before fusion.
	Retrieved []retrieval.Document

	// Fused is the deduplicated RRF-ordered context.
	Fused []retrieval.Fused

	// Answer is the generated assistant reply. Empty until the
	// generation stage completes.
	Answer string
}
