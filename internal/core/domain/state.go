package domain

import (
	"fmt"
	"time"
)

// State is a verification state as presented to the publisher UI.
type State string

const (
	StateIdle           State = "idle"
	StateInitializing   State = "initializing"
	StateAwaitingAction State = "awaiting-action"
	StateChecking       State = "checking"
	StateSuccess        State = "success"
	StateFailed         State = "failed"
	StateExhausted      State = "exhausted"
	StateExpired        State = "expired"
)

// Event drives a transition between states.
type Event string

const (
	EventSelectMethod    Event = "select-method"
	EventChallengeIssued Event = "challenge-issued"
	EventCheckRequested  Event = "check-requested"
	EventCheckPassed     Event = "check-passed"
	EventCheckMismatch   Event = "check-mismatch"
	EventCheckExhausted  Event = "check-exhausted"
)

var transitions = map[State]map[Event]State{
	StateIdle: {
		EventSelectMethod: StateInitializing,
	},
	StateInitializing: {
		EventChallengeIssued: StateAwaitingAction,
	},
	StateAwaitingAction: {
		EventSelectMethod:   StateInitializing,
		EventCheckRequested: StateChecking,
	},
	StateFailed: {
		EventSelectMethod:   StateInitializing,
		EventCheckRequested: StateChecking,
	},
	StateChecking: {
		EventCheckPassed:    StateSuccess,
		EventCheckMismatch:  StateFailed,
		EventCheckExhausted: StateExhausted,
		// transient is resolved by the caller back to the resting state it left
	},
	StateExhausted: {
		EventSelectMethod: StateInitializing,
	},
	StateExpired: {
		EventSelectMethod: StateInitializing,
	},
}

// Transition returns the state reached from s on event ev, or an ErrInvalidState error.
func Transition(s State, ev Event) (State, error) {
	next, ok := transitions[s][ev]
	if !ok {
		return s, NewError(ErrInvalidState, invalidCode(s), fmt.Sprintf("cannot %s while %s", ev, s))
	}
	return next, nil
}

func invalidCode(s State) string {
	switch s {
	case StateSuccess:
		return CodeAlreadyVerified
	case StateIdle:
		return CodeNoChallenge
	case StateExhausted:
		return CodeAttemptsExhausted
	case StateExpired:
		return CodeChallengeExpired
	}
	return CodeOperationBusy
}

// DeriveState computes the resting verification state of a website from its record.
// In-flight states (initializing, checking) never persist.
func (w *Website) DeriveState(now time.Time) State {
	v := &w.Verification
	switch {
	case v.IsVerified:
		return StateSuccess
	case v.Challenge == nil:
		return StateIdle
	case v.Challenge.Expired(now):
		return StateExpired
	case v.Exhausted():
		return StateExhausted
	case v.Attempts > 0:
		return StateFailed
	}
	return StateAwaitingAction
}
