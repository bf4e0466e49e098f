package conversation

import "sync"

// History encapsulates an append-only conversation history.
// Turns are never reordered or deleted within a session.
//
// Note: the zero value is NOT useful - use NewHistory() to create instances.
type History struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewHistory creates a History, optionally pre-seeded with turns
// (e.g., loaded from the memory store when resuming a session).
func NewHistory(turns ...Turn) *History {
	h := &History{turns: make([]Turn, 0, len(turns))}
	h.turns = append(h.turns, turns...)
	return h
}

// Append adds a turn to the end of the history.
func (h *History) Append(turn Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
}

// Turns returns a copy of all turns for thread-safe access.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]Turn, len(h.turns))
	copy(result, h.turns)
	return result
}

// Window returns a copy of the most recent n turns (all turns if fewer).
// Used to bound the history embedded in model prompts.
func (h *History) Window(n int) []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := len(h.turns) - n
	if start < 0 {
		start = 0
	}
	result := make([]Turn, len(h.turns)-start)
	copy(result, h.turns[start:])
	return result
}

// Len returns the number of turns.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Last returns the most recent turn and true, or a zero Turn and false
// when the history is empty.
func (h *History) Last() (Turn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.turns) == 0 {
		return Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}
