package memory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/riffle-ai/riffle/internal/conversation"
	"github.com/riffle-ai/riffle/internal/log"
	"github.com/riffle-ai/riffle/internal/memory"
	"github.com/riffle-ai/riffle/internal/testutil"
)

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store, err := memory.NewStore(dbc.Pool, &testutil.FakeEmbedder{}, log.NewNop())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	sessionA := uuid.New()
	sessionB := uuid.New()

	turns := []conversation.Turn{
		conversation.NewTurn(conversation.RoleUser, "tell me about acme pricing plans"),
		conversation.NewTurn(conversation.RoleAssistant, "acme offers three pricing plans"),
		conversation.NewTurn(conversation.RoleUser, "what is the weather like today"),
	}
	for _, turn := range turns {
		if err := store.Write(ctx, sessionA, turn); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	// Another session's turn must not leak into session A searches.
	other := conversation.NewTurn(conversation.RoleUser, "acme pricing in the other session")
	if err := store.Write(ctx, sessionB, other); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Idempotent on turn ID.
	if err := store.Write(ctx, sessionA, turns[0]); err != nil {
		t.Fatalf("Write(duplicate) error = %v", err)
	}

	results, err := store.Search(ctx, sessionA, "acme pricing plans", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.TurnID == other.ID {
			t.Error("search leaked a turn from another session")
		}
	}
	pricingTurns := map[uuid.UUID]bool{turns[0].ID: true, turns[1].ID: true}
	for _, r := range results {
		if !pricingTurns[r.TurnID] {
			t.Errorf("unexpected result %v, want the two pricing turns", r.TurnID)
		}
	}

	recent, err := store.Recent(ctx, sessionA, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].Text != turns[1].Text || recent[1].Text != turns[2].Text {
		t.Errorf("Recent() order = [%q %q], want chronological tail", recent[0].Text, recent[1].Text)
	}

	cleared, err := store.Clear(ctx, sessionA)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if cleared != 3 {
		t.Errorf("Clear() = %d, want 3", cleared)
	}
	if results, _ := store.Search(ctx, sessionA, "acme", 5); len(results) != 0 {
		t.Errorf("Search() after Clear() = %d results, want 0", len(results))
	}
}

func TestSessionWriter_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dbc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store, err := memory.NewStore(dbc.Pool, &testutil.FakeEmbedder{}, log.NewNop())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	sessionID := uuid.New()
	writer, err := memory.NewSessionWriter(store, sessionID)
	if err != nil {
		t.Fatalf("NewSessionWriter() error = %v", err)
	}

	turn := conversation.NewTurn(conversation.RoleUser, "bound to one session")
	if err := writer.Write(ctx, turn); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	recent, err := store.Recent(ctx, sessionID, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 || recent[0].ID != turn.ID {
		t.Errorf("Recent() = %+v, want the written turn", recent)
	}
}
