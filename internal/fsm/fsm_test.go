package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionDetectionCycle(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateDetecting, next)

	next, err = Transition(next, EventConfirm)
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, next)

	next, err = Transition(next, EventUnconfirm)
	require.NoError(t, err)
	require.Equal(t, StateDetecting, next)

	next, err = Transition(next, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionQuestionCycle(t *testing.T) {
	s := StateDetecting

	next, err := Transition(s, EventAsk)
	require.NoError(t, err)
	require.Equal(t, StateCapturing, next)

	next, err = Transition(next, EventArmed)
	require.NoError(t, err)
	require.Equal(t, StateAwaitingVoice, next)

	next, err = Transition(next, EventDescribe)
	require.NoError(t, err)
	require.Equal(t, StateAwaitingAnswer, next)

	next, err = Transition(next, EventAnswer)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionFailFromAnyStateGoesIdle(t *testing.T) {
	states := []State{StateIdle, StateDetecting, StateConfirmed, StateCapturing, StateAwaitingVoice, StateAwaitingAnswer}
	for _, state := range states {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateIdle, next)
	}
}

func TestTransitionConfirmIdempotent(t *testing.T) {
	next, err := Transition(StateConfirmed, EventConfirm)
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, next)
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "idle stop invalid", state: StateIdle, event: EventStop, want: StateIdle, wantErr: true},
		{name: "idle describe invalid", state: StateIdle, event: EventDescribe, want: StateIdle, wantErr: true},
		{name: "idle ask valid", state: StateIdle, event: EventAsk, want: StateCapturing, wantErr: false},
		{name: "detecting start invalid", state: StateDetecting, event: EventStart, want: StateDetecting, wantErr: true},
		{name: "detecting unconfirm invalid", state: StateDetecting, event: EventUnconfirm, want: StateDetecting, wantErr: true},
		{name: "confirmed ask valid", state: StateConfirmed, event: EventAsk, want: StateCapturing, wantErr: false},
		{name: "capturing describe invalid", state: StateCapturing, event: EventDescribe, want: StateCapturing, wantErr: true},
		{name: "capturing abort valid", state: StateCapturing, event: EventAbort, want: StateIdle, wantErr: false},
		{name: "awaiting voice start invalid", state: StateAwaitingVoice, event: EventStart, want: StateAwaitingVoice, wantErr: true},
		{name: "awaiting voice stop valid", state: StateAwaitingVoice, event: EventStop, want: StateIdle, wantErr: false},
		{name: "awaiting answer ask invalid", state: StateAwaitingAnswer, event: EventAsk, want: StateAwaitingAnswer, wantErr: true},
		{name: "awaiting answer abort valid", state: StateAwaitingAnswer, event: EventAbort, want: StateIdle, wantErr: false},
		{name: "awaiting answer stop valid", state: StateAwaitingAnswer, event: EventStop, want: StateIdle, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDetecting(t *testing.T) {
	require.True(t, Detecting(StateDetecting))
	require.True(t, Detecting(StateConfirmed))
	require.False(t, Detecting(StateIdle))
	require.False(t, Detecting(StateAwaitingAnswer))
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}
