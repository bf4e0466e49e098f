package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/riffle-ai/riffle/internal/conversation"
	"github.com/riffle-ai/riffle/internal/log"
	"github.com/riffle-ai/riffle/internal/retrieval"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubMemory struct {
	written []conversation.Turn
	err     error
}

func (s *stubMemory) Write(_ context.Context, turn conversation.Turn) error {
	if s.err != nil {
		return s.err
	}
	s.written = append(s.written, turn)
	return nil
}

type stubDeconstructor struct {
	subQueries []retrieval.SubQuery
	err        error
	history    []conversation.Turn
}

func (s *stubDeconstructor) Deconstruct(_ context.Context, turn conversation.Turn, history []conversation.Turn) ([]retrieval.SubQuery, error) {
	s.history = history
	if s.err != nil {
		return nil, s.err
	}
	if s.subQueries != nil {
		return s.subQueries, nil
	}
	return []retrieval.SubQuery{{ID: uuid.New(), Text: turn.Text, OriginTurn: turn.ID}}, nil
}

type stubRetriever struct {
	docs  []retrieval.Document
	fused []retrieval.Fused
	err   error
}

func (s *stubRetriever) Retrieve(_ context.Context, _ []retrieval.SubQuery) ([]retrieval.Document, []retrieval.Fused, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.docs, s.fused, nil
}

type stubGenerator struct {
	answer string
	err    error
}

func (s *stubGenerator) Generate(_ context.Context, _ string, _ []conversation.Turn, _ []retrieval.Fused) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

type deps struct {
	memory        *stubMemory
	deconstructor *stubDeconstructor
	retriever     *stubRetriever
	generator     *stubGenerator
}

func happyDeps() *deps {
	return &deps{
		memory:        &stubMemory{},
		deconstructor: &stubDeconstructor{},
		retriever: &stubRetriever{
			docs:  []retrieval.Document{{DocID: "d1", Content: "ctx", Rank: 1, Origin: retrieval.OriginKnowledgeBase}},
			fused: []retrieval.Fused{{DocID: "d1", Content: "ctx", Score: 1.0 / 61.0}},
		},
		generator: &stubGenerator{answer: "the answer"},
	}
}

func newTestPipeline(t *testing.T, d *deps, observer Observer) *Pipeline {
	t.Helper()
	p, err := New(Config{
		Memory:        d.memory,
		Deconstructor: d.deconstructor,
		Retriever:     d.retriever,
		Generator:     d.generator,
		Observer:      observer,
		HistoryWindow: 10,
		Logger:        log.NewNop(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestRunHappyPath(t *testing.T) {
	d := happyDeps()
	p := newTestPipeline(t, d, nil)
	history := conversation.NewHistory()

	state, err := p.Run(context.Background(), "what is riffle?", history)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if state.Answer != "the answer" {
		t.Errorf("Answer = %q, want %q", state.Answer, "the answer")
	}
	if len(state.SubQueries) != 1 || len(state.Fused) != 1 {
		t.Errorf("state = %d sub-queries, %d fused; want 1 and 1",
			len(state.SubQueries), len(state.Fused))
	}

	// Both turns land in history and memory, user first.
	turns := history.Turns()
	if len(turns) != 2 {
		t.Fatalf("history len = %d, want 2", len(turns))
	}
	if turns[0].Role != conversation.RoleUser || turns[1].Role != conversation.RoleAssistant {
		t.Errorf("history roles = [%s %s], want [user assistant]", turns[0].Role, turns[1].Role)
	}
	if len(d.memory.written) != 2 {
		t.Fatalf("memory writes = %d, want 2", len(d.memory.written))
	}
	if d.memory.written[1].Text != "the answer" {
		t.Errorf("memory reply text = %q", d.memory.written[1].Text)
	}
}

func TestRunObserverSeesEveryStage(t *testing.T) {
	var stages []Stage
	observer := func(stage Stage, state *State) {
		stages = append(stages, stage)
	}
	p := newTestPipeline(t, happyDeps(), observer)

	if _, err := p.Run(context.Background(), "q", conversation.NewHistory()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []Stage{StageStoreMemory, StageDeconstructQuery, StageRetrieveInfo, StageGenerate, StageDone}
	if len(stages) != len(want) {
		t.Fatalf("observed %d stages, want %d: %v", len(stages), len(want), stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage[%d] = %s, want %s", i, stages[i], want[i])
		}
	}
}

func TestRunObserverStateProgression(t *testing.T) {
	type snapshot struct {
		subQueries int
		fused      int
		answer     string
	}
	snapshots := map[Stage]snapshot{}
	observer := func(stage Stage, state *State) {
		snapshots[stage] = snapshot{
			subQueries: len(state.SubQueries),
			fused:      len(state.Fused),
			answer:     state.Answer,
		}
	}
	p := newTestPipeline(t, happyDeps(), observer)

	if _, err := p.Run(context.Background(), "q", conversation.NewHistory()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if s := snapshots[StageStoreMemory]; s.subQueries != 0 || s.answer != "" {
		t.Errorf("store_memory snapshot has later-stage data: %+v", s)
	}
	if s := snapshots[StageDeconstructQuery]; s.subQueries != 1 || s.fused != 0 {
		t.Errorf("deconstruct snapshot = %+v, want 1 sub-query, no fusion", s)
	}
	if s := snapshots[StageRetrieveInfo]; s.fused != 1 || s.answer != "" {
		t.Errorf("retrieve snapshot = %+v, want fusion without answer", s)
	}
	if s := snapshots[StageGenerate]; s.answer != "the answer" {
		t.Errorf("generate snapshot = %+v, want answer set", s)
	}
}

func TestRunStageFailures(t *testing.T) {
	sentinel := errors.New("boom")

	tests := []struct {
		name      string
		mutate    func(*deps)
		wantStage Stage
		wantErr   error
	}{
		{
			name:      "memory write failure",
			mutate:    func(d *deps) { d.memory.err = sentinel },
			wantStage: StageStoreMemory,
			wantErr:   ErrMemoryWrite,
		},
		{
			name:      "deconstruction failure",
			mutate:    func(d *deps) { d.deconstructor.err = sentinel },
			wantStage: StageDeconstructQuery,
			wantErr:   ErrDeconstruction,
		},
		{
			name:      "retrieval failure",
			mutate:    func(d *deps) { d.retriever.err = sentinel },
			wantStage: StageRetrieveInfo,
			wantErr:   ErrRetrieval,
		},
		{
			name:      "generation failure",
			mutate:    func(d *deps) { d.generator.err = sentinel },
			wantStage: StageGenerate,
			wantErr:   ErrGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := happyDeps()
			tt.mutate(d)
			p := newTestPipeline(t, d, nil)

			_, err := p.Run(context.Background(), "q", conversation.NewHistory())
			if err == nil {
				t.Fatal("Run() error = nil, want stage error")
			}

			var stageErr *StageError
			if !errors.As(err, &stageErr) {
				t.Fatalf("Run() error = %T, want *StageError", err)
			}
			if stageErr.Stage != tt.wantStage {
				t.Errorf("Stage = %s, want %s", stageErr.Stage, tt.wantStage)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error does not wrap %v: %v", tt.wantErr, err)
			}
			if !errors.Is(err, sentinel) {
				t.Errorf("error does not wrap cause: %v", err)
			}
		})
	}
}

func TestRunGenerationFailureKeepsUserTurn(t *testing.T) {
	d := happyDeps()
	d.generator.err = errors.New("model timeout")
	p := newTestPipeline(t, d, nil)
	history := conversation.NewHistory()

	state, err := p.Run(context.Background(), "doomed question", history)
	if err == nil {
		t.Fatal("Run() error = nil, want generation failure")
	}

	// Completed-stage writes survive: the user turn stays in history and
	// memory, the answer stays unset.
	turns := history.Turns()
	if len(turns) != 1 || turns[0].Text != "doomed question" {
		t.Errorf("history after failure = %+v, want the user turn only", turns)
	}
	if len(d.memory.written) != 1 {
		t.Errorf("memory writes = %d, want 1 (user turn only)", len(d.memory.written))
	}
	if state.Answer != "" {
		t.Errorf("Answer = %q after failed generation, want empty", state.Answer)
	}
	if len(state.Fused) != 1 {
		t.Errorf("retrieval output lost on generation failure: %+v", state.Fused)
	}
}

func TestRunCancelledContext(t *testing.T) {
	p := newTestPipeline(t, happyDeps(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, "q", conversation.NewHistory())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageStoreMemory {
		t.Errorf("cancellation not tagged to first stage: %v", err)
	}
}

func TestRunExcludesQueryTurnFromPromptHistory(t *testing.T) {
	d := happyDeps()
	p := newTestPipeline(t, d, nil)
	history := conversation.NewHistory(
		conversation.NewTurn(conversation.RoleUser, "earlier question"),
		conversation.NewTurn(conversation.RoleAssistant, "earlier answer"),
	)

	if _, err := p.Run(context.Background(), "current question", history); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, turn := range d.deconstructor.history {
		if turn.Text == "current question" {
			t.Errorf("query turn leaked into deconstruction history")
		}
	}
	if len(d.deconstructor.history) != 2 {
		t.Errorf("deconstruction history len = %d, want 2 prior turns", len(d.deconstructor.history))
	}
}

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageStoreMemory, "store_memory"},
		{StageDeconstructQuery, "deconstruct_query"},
		{StageRetrieveInfo, "retrieve_info"},
		{StageGenerate, "generate"},
		{StageDone, "done"},
		{Stage(42), "unknown(42)"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", int(tt.stage), got, tt.want)
		}
	}
}
