package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter    EventType = "node_enter"
	EventBlock        EventType = "block"
	EventActionCall   EventType = "action_call"
	EventActionReturn EventType = "action_return"
	EventSessionEnd   EventType = "session_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id"`
	WorkflowID string    `json:"workflow_id"`
}

// NodeEvent represents entry into a node.
type NodeEvent struct {
	EventBase
	NodeID string `json:"node_id"`
}

// BlockEvent represents the execution of one block.
type BlockEvent struct {
	EventBase
	NodeID     string    `json:"node_id"`
	BlockIndex int       `json:"block_index"`
	Kind       BlockKind `json:"kind"`
}

// ActionEvent represents a delegated action call.
type ActionEvent struct {
	EventBase
	NodeID   string         `json:"node_id"`
	Action   string         `json:"action"`
	Args     map[string]any `json:"args,omitempty"`
	Result   any            `json:"result,omitempty"`
	Duration time.Duration  `json:"duration,omitempty"`
	IsError  bool           `json:"is_error,omitempty"`
}

// SessionEvent represents a session reaching a closed status.
type SessionEvent struct {
	EventBase
	Status SessionStatus `json:"status"`
	Error  *ExecError    `json:"error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter    func(context.Context, *NodeEvent)
	OnBlock        func(context.Context, *BlockEvent)
	OnActionCall   func(context.Context, *ActionEvent)
	OnActionReturn func(context.Context, *ActionEvent)
	OnSessionEnd   func(context.Context, *SessionEvent)
}
