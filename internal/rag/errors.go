package rag

import "fmt"

// ExternalError marks a failure in an upstream service call (embedding,
// vector search, generation) so the HTTP layer can map it to a generic
// upstream-failure response without leaking provider details.
type ExternalError struct {
	Call string // which collaborator failed, e.g. "embed query"
	Err  error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Call, e.Err)
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}
