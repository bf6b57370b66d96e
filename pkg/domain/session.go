package domain

// SessionStatus defines where a session is in its lifecycle.
type SessionStatus string

const (
	StatusNotStarted    SessionStatus = "not_started"
	StatusRunning       SessionStatus = "running"
	StatusAwaitingInput SessionStatus = "awaiting_input"
	StatusCompleted     SessionStatus = "completed"
	StatusFailed        SessionStatus = "failed"
)

// Closed reports whether no further steps can be processed.
func (s SessionStatus) Closed() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Position addresses a block inside a workflow.
type Position struct {
	NodeID     string `json:"node_id"`
	BlockIndex int    `json:"block_index"`
}

// InputRequest is the pending AWAIT_USER_INPUT the session is suspended on.
type InputRequest struct {
	ID       string `json:"id"`
	Variable string `json:"variable,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	// Outcome is the enclosing condition's result when the await sits inside a branch.
	Outcome *bool `json:"outcome,omitempty"`
}

// Resume marks that the block at the current position finished while the
// session waited for input. The next step continues with its successor.
type Resume struct {
	Outcome *bool `json:"outcome,omitempty"`
}

// Session is the mutable state of one execution: position plus bindings.
// It never holds a reference to the workflow definition.
type Session struct {
	ID         string        `json:"id"`
	WorkflowID string        `json:"workflow_id,omitempty"`
	Status     SessionStatus `json:"status"`

	// CurrentNodeID is empty until the first step resolves the first node.
	// NodeIndex is its position in the declared node order, which keeps
	// nodes sharing an id apart.
	CurrentNodeID string `json:"current_node_id,omitempty"`
	NodeIndex     int    `json:"current_node_index"`
	BlockIndex    int    `json:"current_block_index"`

	Variables Bindings      `json:"variables"`
	Pending   *InputRequest `json:"pending,omitempty"`
	Resume    *Resume       `json:"resume,omitempty"`

	// History lists the nodes entered, in order.
	History []string `json:"history,omitempty"`

	Error *ExecError `json:"error,omitempty"`
}

// NewSession creates a session that has not yet entered any node.
func NewSession(id, workflowID string) *Session {
	return &Session{
		ID:         id,
		WorkflowID: workflowID,
		Status:     StatusNotStarted,
		Variables:  make(Bindings),
	}
}

// Started reports whether the session has resolved its first node.
func (s *Session) Started() bool {
	return s.CurrentNodeID != ""
}

// Position returns the current position.
func (s *Session) Position() Position {
	return Position{NodeID: s.CurrentNodeID, BlockIndex: s.BlockIndex}
}

// Clone returns a deep copy safe for independent mutation.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	next := *s
	next.Variables = s.Variables.Clone()
	if s.History != nil {
		next.History = append([]string(nil), s.History...)
	}
	if s.Pending != nil {
		p := *s.Pending
		next.Pending = &p
	}
	if s.Resume != nil {
		r := *s.Resume
		next.Resume = &r
	}
	if s.Error != nil {
		e := *s.Error
		next.Error = &e
	}
	return &next
}
