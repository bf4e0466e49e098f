package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riffle-ai/riffle/db"
	"github.com/riffle-ai/riffle/internal/conversation"
	"github.com/riffle-ai/riffle/internal/deconstruct"
	"github.com/riffle-ai/riffle/internal/generate"
	"github.com/riffle-ai/riffle/internal/knowledge"
	"github.com/riffle-ai/riffle/internal/memory"
	"github.com/riffle-ai/riffle/internal/model"
	"github.com/riffle-ai/riffle/internal/observability"
	"github.com/riffle-ai/riffle/internal/pipeline"
	"github.com/riffle-ai/riffle/internal/retrieval"
	"github.com/riffle-ai/riffle/internal/session"
)

// setup wires components in dependency order: observability, database,
// Genkit, stores, session identity, retrieval, pipeline.
func (a *App) setup(ctx context.Context, opts Options) error {
	shutdownTracing, err := observability.Setup(ctx, observability.Config{
		Endpoint:    a.Config.OTLPEndpoint,
		ServiceName: "riffle",
	})
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	a.onClose(func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			a.Logger.Warn("failed to flush traces", "error", err)
		}
	})

	if err := a.setupDatabase(ctx); err != nil {
		return err
	}
	if err := a.setupAI(ctx); err != nil {
		return err
	}
	if err := a.setupStores(); err != nil {
		return err
	}
	if err := a.setupSession(ctx, opts.SessionID); err != nil {
		return err
	}
	return a.setupPipeline(opts.Observer)
}

// setupDatabase runs migrations and opens the connection pool.
func (a *App) setupDatabase(ctx context.Context) error {
	if err := db.Migrate(a.Config.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(a.Config.PostgresURL())
	if err != nil {
		return fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging database: %w", err)
	}

	a.Pool = pool
	a.onClose(pool.Close)
	return nil
}

// setupAI initializes Genkit with the Google AI plugin. GEMINI_API_KEY
// is read by the plugin directly from the environment.
func (a *App) setupAI(ctx context.Context) error {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return errors.New("initializing genkit with gemini provider")
	}
	a.Genkit = g
	a.Embedder = googlegenai.GoogleAIEmbedder(g, a.Config.EmbedderModel)

	a.Logger.Info("initialized Genkit with gemini provider",
		"model", a.Config.ModelName, "embedder", a.Config.EmbedderModel)
	return nil
}

func (a *App) setupStores() error {
	knowledgeStore, err := knowledge.NewStore(a.Pool, a.Embedder, a.Logger)
	if err != nil {
		return fmt.Errorf("creating knowledge store: %w", err)
	}
	a.KnowledgeStore = knowledgeStore

	chunker, err := knowledge.NewChunker(a.Config.ChunkSize, a.Config.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("creating chunker: %w", err)
	}
	indexer, err := knowledge.NewIndexer(knowledgeStore, chunker, a.Logger)
	if err != nil {
		return fmt.Errorf("creating indexer: %w", err)
	}
	a.Indexer = indexer

	memoryStore, err := memory.NewStore(a.Pool, a.Embedder, a.Logger)
	if err != nil {
		return fmt.Errorf("creating memory store: %w", err)
	}
	a.MemoryStore = memoryStore
	return nil
}

// setupSession resolves session identity and reloads its recent history
// so a resumed session keeps conversational context.
func (a *App) setupSession(ctx context.Context, override uuid.UUID) error {
	sessionID := override
	if sessionID == uuid.Nil {
		id, created, err := session.CurrentOrNew()
		if err != nil {
			return fmt.Errorf("resolving session: %w", err)
		}
		sessionID = id
		if created {
			a.Logger.Info("started new session", "session_id", sessionID)
		}
	}
	a.SessionID = sessionID

	recent, err := a.MemoryStore.Recent(ctx, sessionID, a.Config.HistoryWindow)
	if err != nil {
		return fmt.Errorf("loading session history: %w", err)
	}
	a.History = conversation.NewHistory(recent...)
	return nil
}

func (a *App) setupPipeline(observer pipeline.Observer) error {
	kbSource, err := retrieval.NewKnowledgeSource(a.KnowledgeStore)
	if err != nil {
		return fmt.Errorf("creating knowledge source: %w", err)
	}
	memSource, err := retrieval.NewMemorySource(a.MemoryStore, a.SessionID)
	if err != nil {
		return fmt.Errorf("creating memory source: %w", err)
	}

	manager, err := retrieval.NewManager(retrieval.ManagerConfig{
		Sources:     []retrieval.Searcher{kbSource, memSource},
		TopK:        a.Config.TopK,
		RRFConstant: a.Config.RRFConstant,
		Logger:      a.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating retrieval manager: %w", err)
	}

	client, err := model.New(model.Config{
		Genkit:    a.Genkit,
		ModelName: a.Config.FullModelName(),
		Logger:    a.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating model client: %w", err)
	}

	deconstructor, err := deconstruct.New(deconstruct.Config{
		Completer:     client,
		HistoryWindow: a.Config.HistoryWindow,
		Logger:        a.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating deconstructor: %w", err)
	}

	generator, err := generate.New(generate.Config{
		Completer:     client,
		HistoryWindow: a.Config.HistoryWindow,
		Logger:        a.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	writer, err := memory.NewSessionWriter(a.MemoryStore, a.SessionID)
	if err != nil {
		return fmt.Errorf("creating session writer: %w", err)
	}

	p, err := pipeline.New(pipeline.Config{
		Memory:        writer,
		Deconstructor: deconstructor,
		Retriever:     manager,
		Generator:     generator,
		Observer:      observer,
		HistoryWindow: a.Config.HistoryWindow,
		Logger:        a.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}
	a.Pipeline = p
	return nil
}
