package digest

import "github.com/dmitrymomot/notifykit/pkg/statemachine"

// Phase is a step of a digest pass.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseSelect Phase = "selecting"
	PhaseBatch  Phase = "batching"
	PhaseSend   Phase = "sending"
	PhaseMark   Phase = "marking"
)

type step string

const (
	stepStart    step = "start"
	stepSelected step = "selected"
	stepBatched  step = "batched"
	stepSkip     step = "skip"
	stepSent     step = "sent"
	stepMarked   step = "marked"
	stepFinish   step = "finish"
	stepAbort    step = "abort"
)

type phaseMachine = statemachine.Machine[Phase, step]

// newPhaseMachine wires the pass as
// idle > selecting > (batching > sending > marking > batching)* > idle.
// A user without a batch, address or successful send goes back to batching.
func newPhaseMachine(observer statemachine.Observer[Phase, step]) *phaseMachine {
	opts := []statemachine.Option[Phase, step]{
		statemachine.WithTransition(PhaseIdle, PhaseSelect, stepStart),
		statemachine.WithTransition(PhaseSelect, PhaseBatch, stepSelected),
		statemachine.WithTransition(PhaseBatch, PhaseSend, stepBatched),
		statemachine.WithTransition(PhaseBatch, PhaseBatch, stepSkip),
		statemachine.WithTransition(PhaseSend, PhaseMark, stepSent),
		statemachine.WithTransition(PhaseSend, PhaseBatch, stepSkip),
		statemachine.WithTransition(PhaseMark, PhaseBatch, stepMarked),
		statemachine.WithTransition(PhaseBatch, PhaseIdle, stepFinish),
	}
	for _, p := range []Phase{PhaseSelect, PhaseBatch, PhaseSend, PhaseMark} {
		opts = append(opts, statemachine.WithTransition(p, PhaseIdle, stepAbort))
	}
	if observer != nil {
		opts = append(opts, statemachine.WithObserver(observer))
	}
	return statemachine.MustNew(PhaseIdle, opts...)
}
