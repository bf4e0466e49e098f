// Package session tracks the active conversation session across CLI
// invocations. The session ID persists to ~/.riffle/current_session so
// consecutive commands share one memory scope until reset.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	stateDir  = ".riffle"
	stateFile = "current_session"
)

// StateFilePath returns the full path to the current session state file,
// creating the state directory if needed.
func StateFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	stateDirPath := filepath.Join(homeDir, stateDir)
	if err := os.MkdirAll(stateDirPath, 0o750); err != nil {
		return "", fmt.Errorf("create state directory: %w", err)
	}

	return filepath.Join(stateDirPath, stateFile), nil
}

// LoadCurrentID loads the active session ID from the state file.
// A missing or empty state file returns (nil, nil); only a malformed
// file is an error.
func LoadCurrentID() (*uuid.UUID, error) {
	filePath, err := StateFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	idStr := strings.TrimSpace(string(data))
	if idStr == "" {
		return nil, nil
	}

	sessionID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID in state file: %w", err)
	}
	return &sessionID, nil
}

// SaveCurrentID persists the active session ID.
func SaveCurrentID(sessionID uuid.UUID) error {
	filePath, err := StateFilePath()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filePath, []byte(sessionID.String()), 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// ClearCurrentID removes the state file. Idempotent; clearing a
// non-existent state is not an error.
func ClearCurrentID() error {
	filePath, err := StateFilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}

// CurrentOrNew returns the persisted session ID, minting and saving a
// fresh one when no session is active.
func CurrentOrNew() (uuid.UUID, bool, error) {
	existing, err := LoadCurrentID()
	if err != nil {
		return uuid.Nil, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}

	fresh := uuid.New()
	if err := SaveCurrentID(fresh); err != nil {
		return uuid.Nil, false, err
	}
	return fresh, true, nil
}
