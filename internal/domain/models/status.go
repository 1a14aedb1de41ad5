package models

// Status is the position of a transaction in the transfer state machine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusReverted  Status = "reverted"
)

// transitions lists the allowed targets for every status. Reverted is terminal.
var transitions = map[Status]map[Status]struct{}{
	StatusPending:   {StatusCompleted: {}, StatusFailed: {}},
	StatusFailed:    {StatusPending: {}, StatusCompleted: {}},
	StatusCompleted: {StatusReverted: {}},
	StatusReverted:  {},
}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := transitions[st]
	return st, ok
}

// CanTransition reports whether a transaction may move from s to next.
func (s Status) CanTransition(next Status) bool {
	targets, ok := transitions[s]
	if !ok {
		return false
	}
	_, ok = targets[next]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}
