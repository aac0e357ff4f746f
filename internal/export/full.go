package export

import (
	"encoding/json"
	"fmt"

	"zevtool/internal/zev"
)

// FullEvent is the complete text form of an event: every name, flag,
// parameter value and wait edge. Unlike EventSummary it can be turned
// back into an event.
type FullEvent struct {
	Name     string        `json:"name"`
	Flag     uint8         `json:"flag"`
	Actors   []FullActor   `json:"actors"`
	WaitFors []zev.WaitFor `json:"waitFors"`
}

type FullActor struct {
	Name  string     `json:"name"`
	Flag1 uint16     `json:"flag1"`
	Flag2 uint16     `json:"flag2"`
	Steps []FullStep `json:"steps"`
}

type FullStep struct {
	LongName string     `json:"longName"`
	Name     string     `json:"name"`
	Flag1    uint16     `json:"flag1"`
	Flag2    uint16     `json:"flag2"`
	Data     []FullData `json:"data"`
}

type FullData struct {
	Name   string    `json:"name"`
	Flag   uint16    `json:"flag"`
	Values DataValue `json:"values"`
}

// DataValue wraps a parameter value as {"t": type, "c": content}, with
// type one of "ints", "floats" or "string".
type DataValue struct {
	zev.Value
}

type taggedValue struct {
	T string          `json:"t"`
	C json.RawMessage `json:"c"`
}

func (v DataValue) MarshalJSON() ([]byte, error) {
	var (
		tag     string
		content any
	)
	switch x := v.Value.(type) {
	case zev.Ints:
		tag, content = "ints", nonNil(x)
	case zev.Floats:
		tag, content = "floats", nonNil(x)
	case zev.Text:
		tag, content = "string", string(x)
	default:
		return nil, fmt.Errorf("unsupported value %T", v.Value)
	}
	c, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedValue{T: tag, C: c})
}

func (v *DataValue) UnmarshalJSON(data []byte) error {
	var tv taggedValue
	if err := json.Unmarshal(data, &tv); err != nil {
		return err
	}
	switch tv.T {
	case "ints":
		var x zev.Ints
		if err := json.Unmarshal(tv.C, &x); err != nil {
			return fmt.Errorf("ints value: %w", err)
		}
		v.Value = nonNil(x)
	case "floats":
		var x zev.Floats
		if err := json.Unmarshal(tv.C, &x); err != nil {
			return fmt.Errorf("floats value: %w", err)
		}
		v.Value = nonNil(x)
	case "string":
		var x string
		if err := json.Unmarshal(tv.C, &x); err != nil {
			return fmt.Errorf("string value: %w", err)
		}
		v.Value = zev.Text(x)
	default:
		return fmt.Errorf("unknown value type %q", tv.T)
	}
	return nil
}

func nonNil[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}

// Full builds the complete text form of ev.
func Full(ev *zev.Event) FullEvent {
	out := FullEvent{
		Name:     ev.Name,
		Flag:     ev.Flag,
		Actors:   make([]FullActor, 0, len(ev.Actors)),
		WaitFors: nonNil(ev.WaitFors),
	}
	for _, a := range ev.Actors {
		fa := FullActor{Name: a.Name, Flag1: a.Flag1, Flag2: a.Flag2, Steps: make([]FullStep, 0, len(a.Steps))}
		for _, s := range a.Steps {
			fs := FullStep{
				LongName: s.LongName,
				Name:     s.Name,
				Flag1:    s.Flag1,
				Flag2:    s.Flag2,
				Data:     make([]FullData, 0, len(s.Data)),
			}
			for _, d := range s.Data {
				fs.Data = append(fs.Data, FullData{Name: d.Name, Flag: d.Flag, Values: DataValue{d.Value}})
			}
			fa.Steps = append(fa.Steps, fs)
		}
		out.Actors = append(out.Actors, fa)
	}
	return out
}

// Event rebuilds the event. Names are checked against their field sizes
// and every wait edge must address existing steps.
func (f *FullEvent) Event() (zev.Event, error) {
	ev, err := zev.NewEvent(f.Name, f.Flag)
	if err != nil {
		return zev.Event{}, err
	}
	for _, fa := range f.Actors {
		a := zev.Actor{Name: fa.Name, Flag1: fa.Flag1, Flag2: fa.Flag2}
		for _, fs := range fa.Steps {
			s := zev.Step{LongName: fs.LongName, Name: fs.Name, Flag1: fs.Flag1, Flag2: fs.Flag2}
			for _, d := range fs.Data {
				s.Data = append(s.Data, zev.StepData{Name: d.Name, Flag: d.Flag, Value: d.Values.Value})
			}
			a.Steps = append(a.Steps, s)
		}
		if _, err := ev.AddActor(a); err != nil {
			return zev.Event{}, err
		}
	}
	for _, wf := range f.WaitFors {
		if err := ev.AddWait(wf.Waiting.Actor, wf.Waiting.Step, wf.WaitingOn.Actor, wf.WaitingOn.Step); err != nil {
			return zev.Event{}, err
		}
	}
	return ev, nil
}

// ParseFull reads an event written in the full format.
func ParseFull(data []byte) (zev.Event, error) {
	var f FullEvent
	if err := json.Unmarshal(data, &f); err != nil {
		return zev.Event{}, fmt.Errorf("parse full event: %w", err)
	}
	return f.Event()
}
