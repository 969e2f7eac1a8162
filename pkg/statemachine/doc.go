// Package statemachine provides a small generic finite state machine.
//
// States and events are any comparable types, usually string kinds:
//
//	type Phase string
//	type Step string
//
//	m := statemachine.MustNew[Phase, Step]("idle",
//	    statemachine.WithTransition[Phase, Step]("idle", "running", "start"),
//	    statemachine.WithTransition[Phase, Step]("running", "idle", "stop"),
//	)
//
//	if err := m.Fire(ctx, "start", nil); statemachine.IsNoTransitionAvailableError(err) {
//	    // already running
//	}
//
// Guards veto a transition based on runtime data, actions run before the
// state changes and can abort it, and observers are told about every
// completed transition. Fire is serialized, so exactly one of several
// concurrent callers wins a transition out of a given state.
package statemachine
