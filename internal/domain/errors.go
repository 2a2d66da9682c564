package domain

import (
	"errors"
	"fmt"
)

// Input errors are rejected at package boundaries.
var (
	ErrInvalidChunk  = errors.New("invalid chunk")
	ErrInvalidBudget = errors.New("token budget must be positive")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnknownTask   = errors.New("unknown context task")
	ErrNoChunks      = errors.New("no chunks to process")
)

// ProviderError reports a failed provider call. The orchestrator converts it
// into a fallback summary; it never escapes a document-processing call.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
