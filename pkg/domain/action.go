package domain

// ActionKind names an observable action emitted by a step.
type ActionKind string

const (
	// ActionContentShown asks the host to display Text.
	ActionContentShown ActionKind = "content_shown"
	// ActionInputRequested tells the host the session is waiting; Variable is optional.
	ActionInputRequested ActionKind = "input_requested"
	// ActionVariableChanged reports Variable was bound to Value.
	ActionVariableChanged ActionKind = "variable_changed"
	// ActionVariableRead exposes Variable's current Value (GET_VARIABLE).
	ActionVariableRead ActionKind = "variable_read"
	// ActionNavigated reports an explicit jump to NodeID.
	ActionNavigated ActionKind = "navigated"
	// ActionCompleted is the last action of a finished session.
	ActionCompleted ActionKind = "completed"
	// ActionError carries a fatal execution error (Code, Text).
	ActionError ActionKind = "error"
	// ActionWarning carries a recoverable problem (Code, Text).
	ActionWarning ActionKind = "warning"
)

// Action is one observable effect of a step, in emission order.
// Only the fields relevant to Kind are set.
type Action struct {
	Kind       ActionKind `json:"kind"`
	NodeID     string     `json:"node_id,omitempty"`
	BlockIndex int        `json:"block_index"`
	Text       string     `json:"text,omitempty"`
	Variable   string     `json:"variable,omitempty"`
	Value      *Value     `json:"value,omitempty"`
	RequestID  string     `json:"request_id,omitempty"`
	Code       ErrorCode  `json:"code,omitempty"`
}

// StepResult is the outcome of one Step call.
type StepResult struct {
	Actions []Action `json:"actions"`
	Session *Session `json:"session"`
	// Iterations counts blocks (and pass-through nodes) executed by the call.
	Iterations int `json:"iterations"`
}
