package conversation

import (
	"fmt"
	"sync"
	"testing"
)

func TestHistoryAppendOrder(t *testing.T) {
	h := NewHistory()

	h.Append(NewTurn(RoleUser, "first"))
	h.Append(NewTurn(RoleAssistant, "second"))
	h.Append(NewTurn(RoleUser, "third"))

	turns := h.Turns()
	if len(turns) != 3 {
		t.Fatalf("Len = %d, want 3", len(turns))
	}
	for i, want := range []string{"first", "second", "third"} {
		if turns[i].Text != want {
			t.Errorf("turns[%d].Text = %q, want %q", i, turns[i].Text, want)
		}
	}
}

func TestHistoryWindow(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 5; i++ {
		h.Append(NewTurn(RoleUser, fmt.Sprintf("turn-%d", i)))
	}

	tests := []struct {
		name  string
		n     int
		want  int
		first string
	}{
		{name: "window smaller than history", n: 2, want: 2, first: "turn-3"},
		{name: "window equal to history", n: 5, want: 5, first: "turn-0"},
		{name: "window larger than history", n: 10, want: 5, first: "turn-0"},
		{name: "zero window", n: 0, want: 0},
		{name: "negative window", n: -1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Window(tt.n)
			if len(got) != tt.want {
				t.Fatalf("Window(%d) len = %d, want %d", tt.n, len(got), tt.want)
			}
			if tt.want > 0 && got[0].Text != tt.first {
				t.Errorf("Window(%d)[0].Text = %q, want %q", tt.n, got[0].Text, tt.first)
			}
		})
	}
}

func TestHistoryTurnsReturnsCopy(t *testing.T) {
	h := NewHistory(NewTurn(RoleUser, "original"))

	turns := h.Turns()
	turns[0].Text = "mutated"

	if got := h.Turns()[0].Text; got != "original" {
		t.Errorf("internal turn mutated through returned slice: %q", got)
	}
}

func TestHistoryLast(t *testing.T) {
	h := NewHistory()

	if _, ok := h.Last(); ok {
		t.Fatal("Last() on empty history reported a turn")
	}

	h.Append(NewTurn(RoleUser, "question"))
	h.Append(NewTurn(RoleAssistant, "answer"))

	last, ok := h.Last()
	if !ok || last.Text != "answer" || last.Role != RoleAssistant {
		t.Errorf("Last() = %+v, %v; want assistant answer", last, ok)
	}
}

func TestHistoryConcurrentAppend(t *testing.T) {
	h := NewHistory()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Append(NewTurn(RoleUser, "concurrent"))
			}
		}()
	}
	wg.Wait()

	if got := h.Len(); got != 1000 {
		t.Errorf("Len = %d after concurrent appends, want 1000", got)
	}
}
