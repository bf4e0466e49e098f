// Package pipeline orchestrates a conversational turn through a fixed
// sequence of stages: store the user turn, deconstruct the query,
// retrieve and fuse context, generate the answer. The sequence never
// branches and no stage is retried.
package pipeline

import (
	"context"
	"fmt"

	"github.com/riffle-ai/riffle/internal/conversation"
	"github.com/riffle-ai/riffle/internal/log"
	"github.com/riffle-ai/riffle/internal/retrieval"
)

// Stage identifies a step of the fixed pipeline.
type Stage int

const (
	StageStoreMemory Stage = iota
	StageDeconstructQuery
	StageRetrieveInfo
	StageGenerate
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageStoreMemory:
		return "store_memory"
	case StageDeconstructQuery:
		return "deconstruct_query"
	case StageRetrieveInfo:
		return "retrieve_info"
	case StageGenerate:
		return "generate"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MemoryWriter persists conversation turns for later retrieval.
type MemoryWriter interface {
	Write(ctx context.Context, turn conversation.Turn) error
}

// Deconstructor breaks a user turn into retrieval sub-queries.
type Deconstructor interface {
	Deconstruct(ctx context.Context, turn conversation.Turn, history []conversation.Turn) ([]retrieval.SubQuery, error)
}

// Retriever fans sub-queries across sources and fuses the results.
type Retriever interface {
	Retrieve(ctx context.Context, subQueries []retrieval.SubQuery) ([]retrieval.Document, []retrieval.Fused, error)
}

// Generator produces the final answer from query, history and context.
type Generator interface {
	Generate(ctx context.Context, query string, history []conversation.Turn, docs []retrieval.Fused) (string, error)
}

// Pipeline runs conversational turns end to end.
type Pipeline struct {
	memory        MemoryWriter
	deconstructor Deconstructor
	retriever     Retriever
	generator     Generator
	observer      Observer
	historyWindow int
	logger        log.Logger
}

// Config holds Pipeline dependencies. Observer is optional.
type Config struct {
	Memory        MemoryWriter
	Deconstructor Deconstructor
	Retriever     Retriever
	Generator     Generator
	Observer      Observer
	HistoryWindow int
	Logger        log.Logger
}

func (c Config) validate() error {
	if c.Memory == nil {
		return fmt.Errorf("memory writer is required")
	}
	if c.Deconstructor == nil {
		return fmt.Errorf("deconstructor is required")
	}
	if c.Retriever == nil {
		return fmt.Errorf("retriever is required")
	}
	if c.Generator == nil {
		return fmt.Errorf("generator is required")
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("history window must be positive, got %d", c.HistoryWindow)
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return &Pipeline{
		memory:        cfg.Memory,
		deconstructor: cfg.Deconstructor,
		retriever:     cfg.Retriever,
		generator:     cfg.Generator,
		observer:      cfg.Observer,
		historyWindow: cfg.HistoryWindow,
		logger:        cfg.Logger,
	}, nil
}

// Run executes one conversational turn. The returned State reflects
// everything completed stages wrote, even when a later stage failed;
// in particular the user turn stays in the history if generation sinks.
// Errors are *StageError values wrapping the stage sentinel.
func (p *Pipeline) Run(ctx context.Context, query string, history *conversation.History) (*State, error) {
	state := &State{
		Query:   conversation.NewTurn(conversation.RoleUser, query),
		History: history,
	}

	type step struct {
		stage Stage
		run   func(context.Context, *State) error
	}
	steps := []step{
		{StageStoreMemory, p.storeMemory},
		{StageDeconstructQuery, p.deconstructQuery},
		{StageRetrieveInfo, p.retrieveInfo},
		{StageGenerate, p.generate},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return state, &StageError{Stage: s.stage, Err: err}
		}
		if err := s.run(ctx, state); err != nil {
			p.logger.ErrorContext(ctx, "pipeline stage failed",
				"stage", s.stage.String(), "error", err)
			return state, &StageError{Stage: s.stage, Err: err}
		}
		p.observe(s.stage, state)
	}

	p.observe(StageDone, state)
	return state, nil
}

func (p *Pipeline) observe(stage Stage, state *State) {
	if p.observer != nil {
		p.observer(stage, state)
	}
}

func (p *Pipeline) storeMemory(ctx context.Context, state *State) error {
	if err := p.memory.Write(ctx, state.Query); err != nil {
		return fmt.Errorf("%w: %w", ErrMemoryWrite, err)
	}
	state.History.Append(state.Query)
	return nil
}

func (p *Pipeline) deconstructQuery(ctx context.Context, state *State) error {
	// History already contains the query turn; exclude it so the model
	// sees prior turns as context and the query only as the question.
	turns := state.History.Window(p.historyWindow + 1)
	if n := len(turns); n > 0 && turns[n-1].ID == state.Query.ID {
		turns = turns[:n-1]
	}

	subQueries, err := p.deconstructor.Deconstruct(ctx, state.Query, turns)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeconstruction, err)
	}
	state.SubQueries = subQueries
	return nil
}

func (p *Pipeline) retrieveInfo(ctx context.Context, state *State) error {
	docs, fused, err := p.retriever.Retrieve(ctx, state.SubQueries)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	state.Retrieved = docs
	state.Fused = fused
	return nil
}

func (p *Pipeline) generate(ctx context.Context, state *State) error {
	turns := state.History.Window(p.historyWindow + 1)
	if n := len(turns); n > 0 && turns[n-1].ID == state.Query.ID {
		turns = turns[:n-1]
	}

	answer, err := p.generator.Generate(ctx, state.Query.Text, turns, state.Fused)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	state.Answer = answer

	reply := conversation.NewTurn(conversation.RoleAssistant, answer)
	if err := p.memory.Write(ctx, reply); err != nil {
		return fmt.Errorf("%w: store reply: %w", ErrMemoryWrite, err)
	}
	state.History.Append(reply)
	return nil
}
