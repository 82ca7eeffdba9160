package workflow

// State represents a claim status in the lifecycle
type State string

const (
	StateSubmitted       State = "submitted"
	StateAnalyzing       State = "analyzing" // declared but never entered by the pipeline
	StateTriaged         State = "triaged"
	StatePendingApproval State = "pending_approval"
	StateApproved        State = "approved"
	StateRejected        State = "rejected"
	StateResolved        State = "resolved"
	StateEscalated       State = "escalated"
)

var validStates = map[State]bool{
	StateSubmitted:       true,
	StateAnalyzing:       true,
	StateTriaged:         true,
	StatePendingApproval: true,
	StateApproved:        true,
	StateRejected:        true,
	StateResolved:        true,
	StateEscalated:       true,
}

var terminalStates = map[State]bool{
	StateRejected: true,
	StateResolved: true,
}

// AllStates returns every declared state in lifecycle order
func AllStates() []State {
	return []State{
		StateSubmitted,
		StateAnalyzing,
		StateTriaged,
		StatePendingApproval,
		StateApproved,
		StateEscalated,
		StateRejected,
		StateResolved,
	}
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid claim state
func (s State) IsValid() bool {
	return validStates[s]
}
