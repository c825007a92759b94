package framegraph

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph/hal"
)

// Compile-time error categories. Typed errors below wrap these, so both
// errors.Is checks and identity extraction work:
//
//	plan, err := b.Compile(opts)
//	if errors.Is(err, framegraph.ErrCyclicDependency) { ... }
//	var cyc *framegraph.CyclicDependencyError
//	if errors.As(err, &cyc) { fix(cyc.Passes) }
//
// A failed compile never returns a partial plan.
var (
	// ErrInvalidAccess is returned when a pass declares conflicting
	// access modes to the same resource within itself.
	ErrInvalidAccess = errors.New("framegraph: invalid access")

	// ErrUnknownResource is returned when a pass references a resource
	// that was never declared.
	ErrUnknownResource = errors.New("framegraph: unknown resource")

	// ErrCyclicDependency is returned when resource usage across passes
	// forms a cycle.
	ErrCyclicDependency = errors.New("framegraph: cyclic dependency")

	// ErrUnschedulableGraph is returned when a pass exceeds backend
	// limits even as a single-pass group.
	ErrUnschedulableGraph = errors.New("framegraph: unschedulable graph")

	// ErrMissingQueueTransfer is returned when a cross-queue edge lacks
	// its release or acquire half.
	ErrMissingQueueTransfer = errors.New("framegraph: missing queue transfer")
)

// InvalidAccessError reports conflicting access declarations inside one
// pass.
type InvalidAccessError struct {
	Pass     PassID
	Resource ResourceID
}

func (e *InvalidAccessError) Error() string {
	return fmt.Sprintf("framegraph: invalid access: pass %d declares conflicting access modes to resource %d", e.Pass, e.Resource)
}

// Unwrap returns ErrInvalidAccess.
func (e *InvalidAccessError) Unwrap() error { return ErrInvalidAccess }

// UnknownResourceError reports an access referencing an undeclared
// resource id.
type UnknownResourceError struct {
	Pass     PassID
	Resource ResourceID
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("framegraph: unknown resource: pass %d references undeclared resource %d", e.Pass, e.Resource)
}

// Unwrap returns ErrUnknownResource.
func (e *UnknownResourceError) Unwrap() error { return ErrUnknownResource }

// CyclicDependencyError reports a dependency cycle. Passes lists the
// cycle in edge order; Resource is the resource whose access closed it.
type CyclicDependencyError struct {
	Resource ResourceID
	Passes   []PassID
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("framegraph: cyclic dependency through resource %d involving passes %v", e.Resource, e.Passes)
}

// Unwrap returns ErrCyclicDependency.
func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }

// UnschedulableGraphError reports a pass whose attachment set exceeds
// the backend limit even alone in a group.
type UnschedulableGraphError struct {
	Pass        PassID
	Attachments int
	Limit       int
}

func (e *UnschedulableGraphError) Error() string {
	return fmt.Sprintf("framegraph: unschedulable graph: pass %d needs %d color attachments, backend limit is %d", e.Pass, e.Attachments, e.Limit)
}

// Unwrap returns ErrUnschedulableGraph.
func (e *UnschedulableGraphError) Unwrap() error { return ErrUnschedulableGraph }

// MissingQueueTransferError reports a cross-queue hazard whose ownership
// transfer is incomplete.
type MissingQueueTransferError struct {
	Resource ResourceID
	Producer PassID
	Consumer PassID
	SrcQueue hal.QueueKind
	DstQueue hal.QueueKind
}

func (e *MissingQueueTransferError) Error() string {
	return fmt.Sprintf("framegraph: missing queue transfer for resource %d between pass %d (%s) and pass %d (%s)",
		e.Resource, e.Producer, e.SrcQueue, e.Consumer, e.DstQueue)
}

// Unwrap returns ErrMissingQueueTransfer.
func (e *MissingQueueTransferError) Unwrap() error { return ErrMissingQueueTransfer }

// PassExecutionError reports a pass callback failure during Recording.
// It aborts the remainder of the frame; the compiled plan stays valid.
type PassExecutionError struct {
	Pass PassID
	Name string
	Err  error
}

func (e *PassExecutionError) Error() string {
	return fmt.Sprintf("framegraph: pass %d (%s) failed: %v", e.Pass, e.Name, e.Err)
}

// Unwrap returns the callback's error.
func (e *PassExecutionError) Unwrap() error { return e.Err }
