// Package engine defines the boundary to the native continuation engine.
// The engine itself is an external collaborator; this package fixes the
// data it exchanges and the stepped-handle contract used to drive it.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/krines/arcstep/internal/wire"
)

var (
	// ErrMissingCapability indicates the requested operation is not
	// available in the current engine build. This is a deployment
	// mismatch, not a data problem.
	ErrMissingCapability = errors.New("engine: operation not available in this build")

	// ErrNotInitialized indicates a handle was used before Start or after
	// its result was taken.
	ErrNotInitialized = errors.New("engine: runner not initialized")
)

// CapabilityError names the missing operation.
type CapabilityError struct {
	Op wire.JobKind
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("engine: %s not available in this build", e.Op)
}

func (e *CapabilityError) Unwrap() error { return ErrMissingCapability }

// Stepped is a handle to an in-flight continuation, driven in batches so
// the caller can observe progress and honor cancellation between them.
// All three methods are blocking within a single batch.
type Stepped interface {
	// RunSteps advances up to batch continuation steps and returns the
	// progress snapshot afterward.
	RunSteps(batch int) (wire.Progress, error)

	// Progress returns the current snapshot without stepping.
	Progress() (wire.Progress, error)

	// Result returns the completed branch. Valid once after progress
	// reports done.
	Result() (*wire.BranchData, error)
}

// Engine creates stepped handles for continuation requests.
type Engine interface {
	Start(ctx context.Context, req *wire.Request) (Stepped, error)
}
