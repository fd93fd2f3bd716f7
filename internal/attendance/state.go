package attendance

import dErrors "watchpost/pkg/domain-errors"

// State enumerates the workflow positions. The source of record for what a
// caller may do next is the transition table below, not scattered checks.
type State string

const (
	// StateIdle: nothing acquired yet for this working day.
	StateIdle State = "idle"
	// StateLocating: a fix request is in flight.
	StateLocating State = "locating"
	// StateLocationError: the last fix request failed; retryable.
	StateLocationError State = "location_error"
	// StateLocationReady: a fix is captured, check-in may begin.
	StateLocationReady State = "location_ready"
	// StateAwaitingCustodyCheckIn: check-in is pending the mandatory
	// ammunition reconciliation.
	StateAwaitingCustodyCheckIn State = "awaiting_custody_check_in"
	// StateCheckedIn: the shift is open.
	StateCheckedIn State = "checked_in"
	// StateAwaitingCustodyCheckOut: check-out is pending reconciliation.
	StateAwaitingCustodyCheckOut State = "awaiting_custody_check_out"
	// StateCheckedOut: terminal for the working day.
	StateCheckedOut State = "checked_out"
)

// operation names each externally callable workflow action.
type operation string

const (
	opRequestLocation operation = "request_location"
	opBeginCheckIn    operation = "begin_check_in"
	opConfirmCustody  operation = "confirm_custody"
	opBeginCheckOut   operation = "begin_check_out"
)

// validOperations is the exhaustive transition table: for each operation,
// the states it may be invoked from. RequestLocation is additionally valid
// from CheckedIn because check-out requires a fresh fix; a failure there
// leaves the machine in CheckedIn (the last stable state), not LocationError.
var validOperations = map[operation][]State{
	opRequestLocation: {StateIdle, StateLocationError, StateCheckedIn},
	opBeginCheckIn:    {StateLocationReady},
	opConfirmCustody:  {StateAwaitingCustodyCheckIn, StateAwaitingCustodyCheckOut},
	opBeginCheckOut:   {StateCheckedIn},
}

func (s State) permits(op operation) bool {
	for _, allowed := range validOperations[op] {
		if s == allowed {
			return true
		}
	}
	return false
}

func invalidTransition(op operation, from State) error {
	return dErrors.New(dErrors.CodeInvalidTransition,
		string(op)+" is not valid in state "+string(from))
}
