package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrWorkflowNotFound is returned when a workflow ID cannot be resolved by a loader.
var ErrWorkflowNotFound = errors.New("workflow not found")

// ErrNotAwaitingInput is returned when input is provided to a session that is not suspended.
var ErrNotAwaitingInput = errors.New("session is not awaiting input")

// ErrInputPending is returned when Step is called while the session waits for input.
var ErrInputPending = errors.New("session is awaiting input")

// ErrSessionClosed is returned when Step is called on a completed or failed session.
var ErrSessionClosed = errors.New("session is closed")

// ErrInputMismatch is returned when the supplied request ID does not match the pending one.
var ErrInputMismatch = errors.New("input does not match the pending request")

// ErrUnknownAction is returned by executors when no action is registered under a name.
var ErrUnknownAction = errors.New("unknown action")

// ErrorCode classifies execution errors and warnings.
type ErrorCode string

const (
	// CodeDanglingReference: a jump names a node that does not exist.
	CodeDanglingReference ErrorCode = "dangling_reference"
	// CodeIterationLimit: a single step executed more blocks than allowed.
	CodeIterationLimit ErrorCode = "iteration_limit"
	// CodeActionFailed: a delegated action returned an error.
	CodeActionFailed ErrorCode = "action_failed"
	// CodeInvalidBlock: a block is missing a field it needs to run.
	CodeInvalidBlock ErrorCode = "invalid_block"
	// CodeTypeMismatch: a condition operand could not be coerced. Non-fatal.
	CodeTypeMismatch ErrorCode = "type_mismatch"
	// CodeUnknownOperator: a condition names an unsupported operator. Non-fatal.
	CodeUnknownOperator ErrorCode = "unknown_operator"
)

// ExecError is a fatal execution error recorded on a failed session.
type ExecError struct {
	Code       ErrorCode `json:"code"`
	NodeID     string    `json:"node_id,omitempty"`
	BlockIndex int       `json:"block_index"`
	Message    string    `json:"message"`
}

func (e *ExecError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s at %s[%d]: %s", e.Code, e.NodeID, e.BlockIndex, e.Message)
}
