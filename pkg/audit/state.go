package audit

// State is a stage in the life of an audit record.
//
//	STARTED -> {SUCCESS, FAILURE} -> DISPATCHED -> {PERSISTED, PERSIST_FAILED}
//
// The builder owns the first three stages. PERSISTED and PERSIST_FAILED
// describe the dispatcher's persistence attempt and are never written back
// to the record itself.
type State string

const (
	StateStarted       State = "STARTED"
	StateSuccess       State = "SUCCESS"
	StateFailure       State = "FAILURE"
	StateDispatched    State = "DISPATCHED"
	StatePersisted     State = "PERSISTED"
	StatePersistFailed State = "PERSIST_FAILED"
)

var transitions = map[State][]State{
	StateStarted:    {StateSuccess, StateFailure},
	StateSuccess:    {StateDispatched},
	StateFailure:    {StateDispatched},
	StateDispatched: {StatePersisted, StatePersistFailed},
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}
