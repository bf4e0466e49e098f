// Package conversation provides the conversational data model: immutable
// turns and an append-only per-session history.
//
// Thread Safety: History is safe for concurrent use; Turn values are
// immutable once created.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation turn.
type Role string

// Valid roles for conversation turns.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single conversation turn. Immutable once created; appended to a
// History and optionally indexed into the memory store.
type Turn struct {
	ID        uuid.UUID
	Role      Role
	Text      string
	Timestamp time.Time
}

// NewTurn creates a Turn with a fresh ID and the current time.
func NewTurn(role Role, text string) Turn {
	return Turn{
		ID:        uuid.New(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}
