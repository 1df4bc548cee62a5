package appmgr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrTemplateNotFound is returned when an operation names a template
	// that is not in the catalog.
	ErrTemplateNotFound = errors.New("app template not found")

	// ErrNotInstalled is returned when a template exists but no matching
	// installation is tracked. Callers use it as "go ahead and install".
	ErrNotInstalled = errors.New("app is not installed")
)

// UnhealthyError is returned when a tracked installation exists but the
// remote side reports it dead or gone. It carries the remote app id so the
// caller can decide to delete and retry instead of double-installing.
type UnhealthyError struct {
	AppID uuid.UUID
}

func (e *UnhealthyError) Error() string {
	return fmt.Sprintf("app %s is not healthy", e.AppID)
}

// InvalidRequestError is a caller error (missing user id, unknown handler
// class, forbidden flag change).
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return e.Reason
}

// OrchestratorError wraps a failed remote call. The installation is
// all-or-nothing: nothing was persisted and the caller may simply retry.
type OrchestratorError struct {
	Op  string
	Err error
}

func (e *OrchestratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OrchestratorError) Unwrap() error {
	return e.Err
}
