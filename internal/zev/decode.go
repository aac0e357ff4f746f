package zev

import (
	"cmp"
	"encoding/binary"
	"math"
	"slices"
	"unicode/utf8"
)

// ReadHeader validates the header of a container and returns its counts.
func ReadHeader(data []byte) (Counts, error) {
	h, err := readHeader(reader{buf: data})
	if err != nil {
		return Counts{}, err
	}
	return h.counts(), nil
}

func readHeader(r reader) (rawHeader, error) {
	b, err := r.at(0, HeaderSize, "header")
	if err != nil {
		return rawHeader{}, err
	}
	h := decodeHeader(b)
	if h.Magic != Magic {
		return rawHeader{}, &HeaderError{Field: "magic", Expected: Magic, Actual: h.Magic}
	}
	if h.StepCount != h.Step2Count {
		return rawHeader{}, &HeaderError{Field: "step2 count", Expected: h.StepCount, Actual: h.Step2Count}
	}
	if h.Sentinel != Sentinel {
		return rawHeader{}, &HeaderError{Field: "sentinel", Expected: Sentinel, Actual: h.Sentinel}
	}
	return h, nil
}

// Decode parses a complete container. It either returns every event or
// fails without a partial result.
func Decode(data []byte) ([]Event, error) {
	r := reader{buf: data}
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	l := ComputeLayout(h.counts())
	if l.Total != len(data) {
		return nil, fileErrorf(0, "expected file length %d, got %d", l.Total, len(data))
	}

	d := decoder{r: r, l: l}
	raw := make([]rawEvent, 0, l.Counts.Events)
	for i := 0; i < l.Counts.Events; i++ {
		ev, err := d.event(i)
		if err != nil {
			return nil, err
		}
		raw = append(raw, ev)
	}

	// The event table is sorted by name; actor ranges are contiguous
	// in actor start order. An event without actors shares its start with
	// the next non-empty event and must come before it.
	slices.SortStableFunc(raw, func(a, b rawEvent) int {
		return cmp.Or(
			cmp.Compare(a.ActorStart, b.ActorStart),
			cmp.Compare(a.ActorCount, b.ActorCount),
		)
	})

	events := make([]Event, 0, len(raw))
	for _, re := range raw {
		ev, err := d.buildEvent(re)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

type decoder struct {
	r reader
	l Layout
}

func (d *decoder) event(i int) (rawEvent, error) {
	t := d.l.eventTable()
	b, err := t.record(d.r, i)
	if err != nil {
		return rawEvent{}, err
	}
	ev, ok := decodeEvent(b)
	if !ok {
		return rawEvent{}, fileErrorf(t.offset+i*t.size, "event %d: invalid name", i)
	}
	return ev, nil
}

func (d *decoder) actor(i int) (rawActor, error) {
	t := d.l.actorTable()
	b, err := t.record(d.r, i)
	if err != nil {
		return rawActor{}, err
	}
	a, ok := decodeActor(b)
	if !ok {
		return rawActor{}, fileErrorf(t.offset+i*t.size, "actor %d: invalid name", i)
	}
	return a, nil
}

func (d *decoder) step1(i int) (rawStep1, error) {
	t := d.l.step1Table()
	b, err := t.record(d.r, i)
	if err != nil {
		return rawStep1{}, err
	}
	s, ok := decodeStep1(b)
	if !ok {
		return rawStep1{}, fileErrorf(t.offset+i*t.size, "step %d: invalid long name", i)
	}
	return s, nil
}

func (d *decoder) step2(i int) (rawStep2, error) {
	t := d.l.step2Table()
	b, err := t.record(d.r, i)
	if err != nil {
		return rawStep2{}, err
	}
	s, ok := decodeStep2(b)
	if !ok {
		return rawStep2{}, fileErrorf(t.offset+i*t.size, "step %d: invalid name", i)
	}
	return s, nil
}

func (d *decoder) dataDef(i int) (rawDataDef, error) {
	t := d.l.dataDefTable()
	b, err := t.record(d.r, i)
	if err != nil {
		return rawDataDef{}, err
	}
	dd, ok := decodeDataDef(b)
	if !ok {
		return rawDataDef{}, fileErrorf(t.offset+i*t.size, "data def %d: invalid name", i)
	}
	return dd, nil
}

func (d *decoder) buildEvent(re rawEvent) (Event, error) {
	ev := Event{Name: re.Name, Flag: re.Flag2}
	actorStart := int(re.ActorStart)
	actorEnd := actorStart + int(re.ActorCount)

	for ai := actorStart; ai < actorEnd; ai++ {
		ra, err := d.actor(ai)
		if err != nil {
			return Event{}, err
		}
		actor := Actor{Name: ra.Name, Flag1: ra.Flag1, Flag2: ra.Flag2}
		stepStart := int(ra.StepStart)
		for si := stepStart; si < stepStart+int(ra.StepCount); si++ {
			s1, err := d.step1(si)
			if err != nil {
				return Event{}, err
			}
			s2, err := d.step2(si)
			if err != nil {
				return Event{}, err
			}
			data, err := d.stepData(s2)
			if err != nil {
				return Event{}, err
			}

			if s1.WaitFor >= 0 {
				on, err := d.resolveWait(int(s1.WaitFor), actorStart, actorEnd)
				if err != nil {
					return Event{}, err
				}
				ev.WaitFors = append(ev.WaitFors, WaitFor{
					Waiting:   StepRef{Actor: ai - actorStart, Step: si - stepStart},
					WaitingOn: on,
				})
			}

			actor.Steps = append(actor.Steps, Step{
				LongName: s1.LongName,
				Name:     s2.Name,
				Flag1:    s1.Flag,
				Flag2:    s2.Flag,
				Data:     data,
			})
		}
		ev.Actors = append(ev.Actors, actor)
	}
	return ev, nil
}

// resolveWait turns a global step index into event-local coordinates by
// following the target step back to its owning actor.
func (d *decoder) resolveWait(global, actorStart, actorEnd int) (StepRef, error) {
	target, err := d.step1(global)
	if err != nil {
		return StepRef{}, err
	}
	owner := int(target.ActorIndex)
	if owner < actorStart || owner >= actorEnd {
		return StepRef{}, fileErrorf(d.l.Steps1+global*Step1Size,
			"wait target step %d belongs to actor %d outside event actors [%d, %d)", global, owner, actorStart, actorEnd)
	}
	ra, err := d.actor(owner)
	if err != nil {
		return StepRef{}, err
	}
	local := global - int(ra.StepStart)
	if local < 0 || local >= int(ra.StepCount) {
		return StepRef{}, fileErrorf(d.l.Steps1+global*Step1Size,
			"wait target step %d outside the steps of actor %d", global, owner)
	}
	return StepRef{Actor: owner - actorStart, Step: local}, nil
}

func (d *decoder) stepData(s2 rawStep2) ([]StepData, error) {
	start := int(s2.DataDefStart)
	var out []StepData
	for i := start; i < start+int(s2.DataDefCount); i++ {
		dd, err := d.dataDef(i)
		if err != nil {
			return nil, err
		}
		v, err := d.value(i, dd)
		if err != nil {
			return nil, err
		}
		out = append(out, StepData{Name: dd.Name, Flag: dd.Flag, Value: v})
	}
	return out, nil
}

func (d *decoder) value(index int, dd rawDataDef) (Value, error) {
	start, n := int(dd.DataStart), int(dd.DataLength)
	switch DataType(dd.DataType) {
	case DataInts:
		b, err := d.l.intTable().span(d.r, start, n)
		if err != nil {
			return nil, err
		}
		v := make(Ints, n)
		for i := range v {
			v[i] = binary.BigEndian.Uint32(b[i*IntSize:])
		}
		return v, nil
	case DataFloats:
		b, err := d.l.floatTable().span(d.r, start, n)
		if err != nil {
			return nil, err
		}
		v := make(Floats, n)
		for i := range v {
			v[i] = math.Float32frombits(binary.BigEndian.Uint32(b[i*FloatSize:]))
		}
		return v, nil
	case DataString:
		b, err := d.l.stringTable().span(d.r, start, n)
		if err != nil {
			return nil, err
		}
		off := d.l.Strings + start
		if n == 0 || b[n-1] != 0 {
			return nil, fileErrorf(off, "string value %q not zero terminated", b)
		}
		b = b[:n-1]
		if !utf8.Valid(b) {
			return nil, fileErrorf(off, "string value is not valid text")
		}
		return Text(b), nil
	default:
		return nil, fileErrorf(d.l.DataDefs+index*DataDefSize, "unknown data type %d", dd.DataType)
	}
}
