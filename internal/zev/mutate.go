package zev

import (
	"fmt"
	"iter"
	"slices"
)

func (e *Event) hasStep(r StepRef) bool {
	return r.Actor >= 0 && r.Actor < len(e.Actors) &&
		r.Step >= 0 && r.Step < len(e.Actors[r.Actor].Steps)
}

// RemoveStep deletes a step and returns it. Wait edges touching the step
// are dropped and later steps of the same actor are renumbered. The order
// of the remaining edges is not preserved.
func (e *Event) RemoveStep(actor, step int) (Step, error) {
	ref := StepRef{Actor: actor, Step: step}
	if !e.hasStep(ref) {
		return Step{}, fmt.Errorf("remove step (%d, %d): %w", actor, step, ErrOutOfRange)
	}

	for i := 0; i < len(e.WaitFors); {
		wf := &e.WaitFors[i]
		if wf.Waiting == ref || wf.WaitingOn == ref {
			last := len(e.WaitFors) - 1
			e.WaitFors[i] = e.WaitFors[last]
			e.WaitFors = e.WaitFors[:last]
			continue
		}
		shiftDown(&wf.Waiting, actor, step)
		shiftDown(&wf.WaitingOn, actor, step)
		i++
	}

	a := &e.Actors[actor]
	removed := a.Steps[step]
	a.Steps = slices.Delete(a.Steps, step, step+1)
	return removed, nil
}

// AddStep inserts a step at position, which may equal the actor's step
// count to append. Wait edges of the actor at or after position move up.
func (e *Event) AddStep(actor, position int, s Step) error {
	if actor < 0 || actor >= len(e.Actors) {
		return fmt.Errorf("add step to actor %d: %w", actor, ErrOutOfRange)
	}
	a := &e.Actors[actor]
	if position < 0 || position > len(a.Steps) {
		return fmt.Errorf("add step at (%d, %d): %w", actor, position, ErrOutOfRange)
	}
	if err := s.fits(); err != nil {
		return err
	}

	for i := range e.WaitFors {
		shiftUp(&e.WaitFors[i].Waiting, actor, position)
		shiftUp(&e.WaitFors[i].WaitingOn, actor, position)
	}
	a.Steps = slices.Insert(a.Steps, position, s)
	return nil
}

// AddWait makes (waitingActor, waitingStep) wait on (onActor, onStep),
// replacing any edge the waiting step already had.
func (e *Event) AddWait(waitingActor, waitingStep, onActor, onStep int) error {
	waiting := StepRef{Actor: waitingActor, Step: waitingStep}
	on := StepRef{Actor: onActor, Step: onStep}
	if !e.hasStep(waiting) {
		return fmt.Errorf("waiting step (%d, %d): %w", waitingActor, waitingStep, ErrOutOfRange)
	}
	if !e.hasStep(on) {
		return fmt.Errorf("waited on step (%d, %d): %w", onActor, onStep, ErrOutOfRange)
	}

	e.RemoveWaiting(waitingActor, waitingStep)
	e.WaitFors = append(e.WaitFors, WaitFor{Waiting: waiting, WaitingOn: on})
	return nil
}

// RemoveWaiting drops the edge whose waiting endpoint is (actor, step), if any.
func (e *Event) RemoveWaiting(actor, step int) {
	ref := StepRef{Actor: actor, Step: step}
	e.WaitFors = slices.DeleteFunc(e.WaitFors, func(wf WaitFor) bool {
		return wf.Waiting == ref
	})
}

// RemoveAllWaits drops every wait edge of the event.
func (e *Event) RemoveAllWaits() {
	e.WaitFors = nil
}

// WaitedOn returns the step that (actor, step) waits on.
func (e *Event) WaitedOn(actor, step int) (StepRef, bool) {
	ref := StepRef{Actor: actor, Step: step}
	for _, wf := range e.WaitFors {
		if wf.Waiting == ref {
			return wf.WaitingOn, true
		}
	}
	return StepRef{}, false
}

// Waiting yields every step waiting on (actor, step).
func (e *Event) Waiting(actor, step int) iter.Seq[StepRef] {
	ref := StepRef{Actor: actor, Step: step}
	return func(yield func(StepRef) bool) {
		for _, wf := range e.WaitFors {
			if wf.WaitingOn == ref && !yield(wf.Waiting) {
				return
			}
		}
	}
}

func shiftDown(r *StepRef, actor, removed int) {
	if r.Actor == actor && r.Step > removed {
		r.Step--
	}
}

func shiftUp(r *StepRef, actor, position int) {
	if r.Actor == actor && r.Step >= position {
		r.Step++
	}
}
