package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "watchpost/pkg/domain-errors"
)

func TestState_Permits(t *testing.T) {
	allStates := []State{
		StateIdle, StateLocating, StateLocationError, StateLocationReady,
		StateAwaitingCustodyCheckIn, StateCheckedIn,
		StateAwaitingCustodyCheckOut, StateCheckedOut,
	}

	// Full matrix: anything not listed here is forbidden.
	allowed := map[operation]map[State]bool{
		opRequestLocation: {StateIdle: true, StateLocationError: true, StateCheckedIn: true},
		opBeginCheckIn:    {StateLocationReady: true},
		opConfirmCustody:  {StateAwaitingCustodyCheckIn: true, StateAwaitingCustodyCheckOut: true},
		opBeginCheckOut:   {StateCheckedIn: true},
	}

	for op, states := range allowed {
		for _, s := range allStates {
			assert.Equal(t, states[s], s.permits(op),
				"operation %s in state %s", op, s)
		}
	}
}

func TestState_CheckedOutIsTerminal(t *testing.T) {
	for _, op := range []operation{
		opRequestLocation, opBeginCheckIn, opConfirmCustody, opBeginCheckOut,
	} {
		assert.False(t, StateCheckedOut.permits(op), "operation %s", op)
	}
}

func TestState_LocatingBlocksEverything(t *testing.T) {
	// Locating is transient; no operation may interleave with an in-flight
	// fix request.
	for _, op := range []operation{
		opRequestLocation, opBeginCheckIn, opConfirmCustody, opBeginCheckOut,
	} {
		assert.False(t, StateLocating.permits(op), "operation %s", op)
	}
}

func TestInvalidTransition_Error(t *testing.T) {
	err := invalidTransition(opBeginCheckOut, StateIdle)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	assert.Contains(t, err.Error(), "begin_check_out")
	assert.Contains(t, err.Error(), "idle")
}
