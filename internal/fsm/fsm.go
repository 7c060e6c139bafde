package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle State = "idle"
	// StateDetecting streams frames and renders detection overlays.
	StateDetecting State = "detecting"
	// StateConfirmed is the detecting sub-state entered while every
	// required trigger label is present in the current batch.
	StateConfirmed State = "confirmed"
	// StateCapturing grabs the question frame before arming the voice trigger.
	StateCapturing State = "capturing"
	// StateAwaitingVoice waits for the describe phrase with a frame captured.
	StateAwaitingVoice State = "awaiting_voice"
	// StateAwaitingAnswer waits for the server's llm_answer.
	StateAwaitingAnswer State = "awaiting_answer"
)

const (
	EventStart     Event = "start"
	EventStop      Event = "stop"
	EventConfirm   Event = "confirm"
	EventUnconfirm Event = "unconfirm"
	EventAsk       Event = "ask"
	EventArmed     Event = "armed"
	EventDescribe  Event = "describe"
	EventAnswer    Event = "answer"
	EventAbort     Event = "abort"
	EventFail      Event = "fail"
)

// Transition applies one event to the current state. EventFail always
// returns to idle; every other pair outside the table is rejected with the
// state unchanged.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateDetecting, nil
		case EventAsk:
			return StateCapturing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateDetecting:
		switch event {
		case EventStop:
			return StateIdle, nil
		case EventConfirm:
			return StateConfirmed, nil
		case EventAsk:
			return StateCapturing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateConfirmed:
		switch event {
		case EventStop:
			return StateIdle, nil
		case EventConfirm:
			// Level-triggered re-evaluation is idempotent.
			return StateConfirmed, nil
		case EventUnconfirm:
			return StateDetecting, nil
		case EventAsk:
			return StateCapturing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateCapturing:
		switch event {
		case EventArmed:
			return StateAwaitingVoice, nil
		case EventAbort:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwaitingVoice:
		switch event {
		case EventDescribe:
			return StateAwaitingAnswer, nil
		case EventAbort, EventStop:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwaitingAnswer:
		switch event {
		case EventAnswer:
			return StateIdle, nil
		case EventAbort, EventStop:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Detecting reports whether the state accepts streamed detection frames.
func Detecting(s State) bool {
	return s == StateDetecting || s == StateConfirmed
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
