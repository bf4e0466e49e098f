// Package app assembles the application: configuration, database pool,
// Genkit, stores, retrieval and the pipeline, wired explicitly in
// dependency order. Construction is fail-fast; any broken dependency
// surfaces at startup, not mid-conversation.
package app

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riffle-ai/riffle/internal/config"
	"github.com/riffle-ai/riffle/internal/conversation"
	"github.com/riffle-ai/riffle/internal/knowledge"
	"github.com/riffle-ai/riffle/internal/log"
	"github.com/riffle-ai/riffle/internal/memory"
	"github.com/riffle-ai/riffle/internal/pipeline"
)

// App holds the assembled application components.
type App struct {
	Config *config.Config
	Logger log.Logger

	Pool     *pgxpool.Pool
	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	KnowledgeStore *knowledge.Store
	MemoryStore    *memory.Store
	Indexer        *knowledge.Indexer

	Pipeline  *pipeline.Pipeline
	SessionID uuid.UUID
	History   *conversation.History

	cleanups []func()
}

// Options tunes App construction.
type Options struct {
	// Observer receives pipeline state after each stage. Optional.
	Observer pipeline.Observer
	// SessionID overrides the persisted session identity. Zero value
	// loads or creates the sticky session.
	SessionID uuid.UUID
}

// New builds the full application. The caller must invoke Close.
func New(ctx context.Context, cfg *config.Config, logger log.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	a := &App{Config: cfg, Logger: logger}
	if err := a.setup(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases resources in reverse construction order.
func (a *App) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}

func (a *App) onClose(fn func()) {
	a.cleanups = append(a.cleanups, fn)
}
