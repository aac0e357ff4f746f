package zev

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
)

// Encode lays out events as a container.
//
// Every flat table follows the order of events, which fixes the global
// step indices used by wait pointers. The event table alone is written
// sorted by CompareNames.
func Encode(events []Event) ([]byte, error) {
	for i := range events {
		if err := checkEncodable(&events[i]); err != nil {
			return nil, fmt.Errorf("%w: event %d %q: %w", ErrLogic, i, events[i].Name, err)
		}
	}
	c := CountEvents(events)
	if err := checkCounts(c); err != nil {
		return nil, err
	}

	l := ComputeLayout(c)
	e := &encoder{w: &writer{buf: make([]byte, l.Total)}, l: l}

	hb, err := e.w.at(0, HeaderSize)
	if err != nil {
		return nil, err
	}
	rawHeader{
		Magic:        Magic,
		EventCount:   uint16(c.Events),
		ActorCount:   uint16(c.Actors),
		StepCount:    uint16(c.Steps),
		Step2Count:   uint16(c.Steps),
		DataDefCount: uint16(c.DataDefs),
		Sentinel:     Sentinel,
		IntCount:     uint16(c.Ints),
		FloatCount:   uint16(c.Floats),
		StringBytes:  uint16(c.StringBytes),
	}.put(hb)

	raw := make([]rawEvent, 0, len(events))
	for i := range events {
		re, err := e.event(&events[i])
		if err != nil {
			return nil, err
		}
		raw = append(raw, re)
	}

	slices.SortStableFunc(raw, func(a, b rawEvent) int {
		return CompareNames(a.Name, b.Name)
	})
	t := l.eventTable()
	for i, re := range raw {
		b, err := t.recordAt(e.w, i)
		if err != nil {
			return nil, err
		}
		re.put(b)
	}

	if e.w.written != l.Total {
		return nil, fmt.Errorf("%w: wrote %d of %d bytes", ErrLogic, e.w.written, l.Total)
	}
	return e.w.buf, nil
}

type encoder struct {
	w *writer
	l Layout

	// next free entry of each flat table
	actor, step, def, ints, floats, str int
}

// waitPatch rewrites the wait pointer of step with target, both global.
type waitPatch struct {
	step   int
	target int
}

func (e *encoder) event(ev *Event) (rawEvent, error) {
	re := rawEvent{
		Name:       ev.Name,
		Flag2:      ev.Flag,
		ActorStart: uint16(e.actor),
		ActorCount: uint16(len(ev.Actors)),
	}

	// local actor index -> global index of its first step
	stepStart := make([]int, len(ev.Actors))
	at := e.l.actorTable()
	for ai := range ev.Actors {
		a := &ev.Actors[ai]
		stepStart[ai] = e.step
		b, err := at.recordAt(e.w, e.actor)
		if err != nil {
			return rawEvent{}, err
		}
		rawActor{
			Name:      a.Name,
			Flag1:     a.Flag1,
			Flag2:     a.Flag2,
			StepStart: uint16(e.step),
			StepCount: uint16(len(a.Steps)),
		}.put(b)
		for si := range a.Steps {
			if err := e.writeStep(&a.Steps[si]); err != nil {
				return rawEvent{}, err
			}
		}
		e.actor++
	}

	patches := make([]waitPatch, 0, len(ev.WaitFors))
	for _, wf := range ev.WaitFors {
		patches = append(patches, waitPatch{
			step:   stepStart[wf.Waiting.Actor] + wf.Waiting.Step,
			target: stepStart[wf.WaitingOn.Actor] + wf.WaitingOn.Step,
		})
	}
	if err := e.applyPatches(patches); err != nil {
		return rawEvent{}, err
	}
	return re, nil
}

func (e *encoder) applyPatches(patches []waitPatch) error {
	for _, p := range patches {
		if p.target > math.MaxInt16 {
			return fmt.Errorf("%w: wait target %d does not fit a signed 16-bit pointer", ErrLogic, p.target)
		}
		b, err := e.w.patch(e.l.Steps1+p.step*Step1Size+waitForOffset, 2)
		if err != nil {
			return err
		}
		binary.BigEndian.PutUint16(b, uint16(int16(p.target)))
	}
	return nil
}

func (e *encoder) writeStep(s *Step) error {
	b, err := e.l.step1Table().recordAt(e.w, e.step)
	if err != nil {
		return err
	}
	rawStep1{
		LongName:   s.LongName,
		WaitFor:    noWait,
		ActorIndex: uint16(e.actor),
		Flag:       s.Flag1,
		Self:       uint16(e.step),
		Pad1:       1,
	}.put(b)

	b, err = e.l.step2Table().recordAt(e.w, e.step)
	if err != nil {
		return err
	}
	rawStep2{
		Name:         s.Name,
		Flag:         s.Flag2,
		Self:         uint16(e.step),
		DataDefStart: uint16(e.def),
		DataDefCount: uint16(len(s.Data)),
	}.put(b)
	e.step++

	for i := range s.Data {
		if err := e.writeData(&s.Data[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeData(d *StepData) error {
	var start, n int
	switch v := d.Value.(type) {
	case Ints:
		start, n = e.ints, len(v)
		b, err := e.w.at(e.l.Ints+start*IntSize, n*IntSize)
		if err != nil {
			return err
		}
		for i, x := range v {
			binary.BigEndian.PutUint32(b[i*IntSize:], x)
		}
		e.ints += n
	case Floats:
		start, n = e.floats, len(v)
		b, err := e.w.at(e.l.Floats+start*FloatSize, n*FloatSize)
		if err != nil {
			return err
		}
		for i, x := range v {
			binary.BigEndian.PutUint32(b[i*FloatSize:], math.Float32bits(x))
		}
		e.floats += n
	case Text:
		start, n = e.str, len(v)+1
		b, err := e.w.at(e.l.Strings+start, n)
		if err != nil {
			return err
		}
		copy(b, v)
		b[n-1] = 0
		e.str += n
	default:
		return fmt.Errorf("%w: data %q has unsupported value %T", ErrLogic, d.Name, d.Value)
	}

	b, err := e.l.dataDefTable().recordAt(e.w, e.def)
	if err != nil {
		return err
	}
	rawDataDef{
		Name:       d.Name,
		Flag:       d.Flag,
		DataType:   uint16(d.Value.Type()),
		DataStart:  uint16(start),
		DataLength: uint16(n),
	}.put(b)
	e.def++
	return nil
}

// checkEncodable verifies names fit their fields and every wait edge
// points at existing steps, with at most one edge per waiting step.
func checkEncodable(ev *Event) error {
	if err := checkName(ev.Name, EventNameLen); err != nil {
		return fmt.Errorf("event name: %w", err)
	}
	for ai := range ev.Actors {
		a := &ev.Actors[ai]
		if err := checkName(a.Name, ActorNameLen); err != nil {
			return fmt.Errorf("actor %d name %q: %w", ai, a.Name, err)
		}
		for si := range a.Steps {
			if err := a.Steps[si].fits(); err != nil {
				return fmt.Errorf("actor %d step %d: %w", ai, si, err)
			}
		}
	}
	seen := make(map[StepRef]struct{}, len(ev.WaitFors))
	for _, wf := range ev.WaitFors {
		if !ev.hasStep(wf.Waiting) || !ev.hasStep(wf.WaitingOn) {
			return fmt.Errorf("wait %v -> %v: %w", wf.Waiting, wf.WaitingOn, ErrOutOfRange)
		}
		if _, dup := seen[wf.Waiting]; dup {
			return fmt.Errorf("second wait for step %v: %w", wf.Waiting, ErrAlreadyExists)
		}
		seen[wf.Waiting] = struct{}{}
	}
	return nil
}

func checkCounts(c Counts) error {
	fields := []struct {
		name string
		n    int
	}{
		{"events", c.Events},
		{"actors", c.Actors},
		{"steps", c.Steps},
		{"data defs", c.DataDefs},
		{"ints", c.Ints},
		{"floats", c.Floats},
		{"string bytes", c.StringBytes},
	}
	for _, f := range fields {
		if f.n > math.MaxUint16 {
			return fmt.Errorf("%w: %d %s exceed the 16-bit header field", ErrLogic, f.n, f.name)
		}
	}
	return nil
}
