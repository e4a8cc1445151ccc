package engine

import (
	"errors"
	"fmt"
)

// ErrExecutionNotRunning indicates a pause or cancel request targeted an
// execution with no in-flight run in this process.
var ErrExecutionNotRunning = errors.New("execution is not running")

// ErrNotResumable indicates a resume request targeted an execution that is
// not paused.
var ErrNotResumable = errors.New("execution is not paused")

// ErrNotRetryable indicates a retry request targeted an execution that has
// not failed or has exhausted its retry budget.
var ErrNotRetryable = errors.New("execution cannot be retried")

// ErrTemplateNotExecutable indicates an execute request targeted a template
// that is not in the active status.
var ErrTemplateNotExecutable = errors.New("template is not executable")

// ExecutionError reports a definition-level failure: the template cannot be
// turned into a runnable graph at all (unknown node types, cycles, no start
// node, malformed conditions).
type ExecutionError struct {
	TemplateID string
	Stage      string
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution graph %s failed for template %s: %v", e.Stage, e.TemplateID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NodeError reports a failure inside one node during the walk. It carries
// enough context for the per-node record and the execution error message.
type NodeError struct {
	NodeID   string
	NodeType string
	Err      error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (%s) failed: %v", e.NodeID, e.NodeType, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
