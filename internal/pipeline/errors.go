package pipeline

import (
	"errors"
	"fmt"
)

// Stage-classified failure sentinels. Callers match with errors.Is to
// tell which stage sank the turn.
var (
	ErrMemoryWrite    = errors.New("memory write failed")
	ErrDeconstruction = errors.New("query deconstruction failed")
	ErrRetrieval      = errors.New("retrieval failed")
	ErrGeneration     = errors.New("answer generation failed")
)

// StageError tags a failure with the stage that produced it. The
// pipeline never retries; the error surfaces to the caller as-is.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
