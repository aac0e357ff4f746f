// Package zev decodes and encodes zev event containers, the fixed layout
// binary files holding cutscene scripts.
//
// A container is a list of events. Each event owns an ordered list of
// actors, each actor an ordered list of steps, and each step a list of
// typed parameters. Steps may wait on the completion of another step of
// the same event; those edges are kept in event-local (actor, step)
// coordinates and translated to file-wide step indices only while encoding.
package zev

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// DataType tags the variant held by a step parameter.
type DataType uint16

const (
	DataInts   DataType = 0
	DataFloats DataType = 1
	DataString DataType = 2
)

func (t DataType) String() string {
	switch t {
	case DataInts:
		return "ints"
	case DataFloats:
		return "floats"
	case DataString:
		return "string"
	default:
		return fmt.Sprintf("datatype(%d)", uint16(t))
	}
}

// Value is the payload of a step parameter: Ints, Floats or Text.
type Value interface {
	Type() DataType
	clone() Value
}

// Ints is a sequence of unsigned 32-bit integers.
type Ints []uint32

// Floats is a sequence of single precision floats.
type Floats []float32

// Text is a single string, stored zero terminated.
type Text string

func (Ints) Type() DataType   { return DataInts }
func (Floats) Type() DataType { return DataFloats }
func (Text) Type() DataType   { return DataString }

func (v Ints) clone() Value   { return slices.Clone(v) }
func (v Floats) clone() Value { return slices.Clone(v) }
func (v Text) clone() Value   { return v }

// StepRef addresses a step inside one event.
type StepRef struct {
	Actor int `json:"actorIdx" yaml:"actorIdx"`
	Step  int `json:"stepIdx" yaml:"stepIdx"`
}

// WaitFor is a dependency edge: Waiting starts after WaitingOn completes.
type WaitFor struct {
	Waiting   StepRef `json:"waiting" yaml:"waiting"`
	WaitingOn StepRef `json:"waitingOn" yaml:"waitingOn"`
}

// StepData is one typed parameter of a step.
type StepData struct {
	Name  string
	Flag  uint16
	Value Value
}

// Step is one instruction of an actor.
type Step struct {
	LongName string
	Name     string
	Flag1    uint16 // stored in step part 1
	Flag2    uint16 // stored in step part 2
	Data     []StepData
}

// Actor is a participant of an event.
type Actor struct {
	Name  string
	Flag1 uint16
	Flag2 uint16
	Steps []Step
}

// Event is a named script made of actors and the wait edges between
// their steps.
type Event struct {
	Name     string
	Flag     uint8
	Actors   []Actor
	WaitFors []WaitFor
}

// NewEvent returns an empty event after validating its name.
func NewEvent(name string, flag uint8) (Event, error) {
	if err := checkName(name, EventNameLen); err != nil {
		return Event{}, fmt.Errorf("event name %q: %w", name, err)
	}
	return Event{Name: name, Flag: flag}, nil
}

// NewActor returns an actor without steps after validating its name.
func NewActor(name string, flag1, flag2 uint16) (Actor, error) {
	if err := checkName(name, ActorNameLen); err != nil {
		return Actor{}, fmt.Errorf("actor name %q: %w", name, err)
	}
	return Actor{Name: name, Flag1: flag1, Flag2: flag2}, nil
}

// NewStep returns a step after validating both of its names.
func NewStep(longName, name string, flag1, flag2 uint16, data ...StepData) (Step, error) {
	s := Step{LongName: longName, Name: name, Flag1: flag1, Flag2: flag2, Data: data}
	if err := s.validate(); err != nil {
		return Step{}, err
	}
	return s, nil
}

// NewStepData returns a parameter after validating its name.
func NewStepData(name string, flag uint16, v Value) (StepData, error) {
	if err := checkFixedName(name, ShortNameLen); err != nil {
		return StepData{}, fmt.Errorf("data name %q: %w", name, err)
	}
	if err := checkValue(v); err != nil {
		return StepData{}, fmt.Errorf("data %q: %w", name, err)
	}
	return StepData{Name: name, Flag: flag, Value: v}, nil
}

// SetName renames the event.
func (e *Event) SetName(name string) error {
	if err := checkName(name, EventNameLen); err != nil {
		return fmt.Errorf("event name %q: %w", name, err)
	}
	e.Name = name
	return nil
}

// AddActor appends an actor and returns its local index.
func (e *Event) AddActor(a Actor) (int, error) {
	if err := checkName(a.Name, ActorNameLen); err != nil {
		return 0, fmt.Errorf("actor name %q: %w", a.Name, err)
	}
	for i := range a.Steps {
		if err := a.Steps[i].fits(); err != nil {
			return 0, err
		}
	}
	e.Actors = append(e.Actors, a)
	return len(e.Actors) - 1, nil
}

// ActorIndex returns the local index of the first actor with the given name.
func (e *Event) ActorIndex(name string) (int, bool) {
	i := slices.IndexFunc(e.Actors, func(a Actor) bool { return a.Name == name })
	return i, i >= 0
}

// StepIndex returns the index of the first step of an actor with the given long name.
func (e *Event) StepIndex(actor int, longName string) (int, bool) {
	if actor < 0 || actor >= len(e.Actors) {
		return -1, false
	}
	i := slices.IndexFunc(e.Actors[actor].Steps, func(s Step) bool { return s.LongName == longName })
	return i, i >= 0
}

// Waits returns the event's wait edges. The slice is owned by the event.
func (e *Event) Waits() []WaitFor {
	return e.WaitFors
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() Event {
	out := Event{
		Name:     e.Name,
		Flag:     e.Flag,
		Actors:   make([]Actor, len(e.Actors)),
		WaitFors: slices.Clone(e.WaitFors),
	}
	for i, a := range e.Actors {
		a.Steps = slices.Clone(a.Steps)
		for j := range a.Steps {
			a.Steps[j] = a.Steps[j].Clone()
		}
		out.Actors[i] = a
	}
	return out
}

// SetName renames the actor.
func (a *Actor) SetName(name string) error {
	if err := checkName(name, ActorNameLen); err != nil {
		return fmt.Errorf("actor name %q: %w", name, err)
	}
	a.Name = name
	return nil
}

// SetLongName changes the step's long name.
func (s *Step) SetLongName(name string) error {
	if err := checkName(name, LongNameLen); err != nil {
		return fmt.Errorf("step long name %q: %w", name, err)
	}
	s.LongName = name
	return nil
}

// SetName changes the step's four byte short name.
func (s *Step) SetName(name string) error {
	if err := checkFixedName(name, ShortNameLen); err != nil {
		return fmt.Errorf("step name %q: %w", name, err)
	}
	s.Name = name
	return nil
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	s.Data = slices.Clone(s.Data)
	for i := range s.Data {
		if s.Data[i].Value != nil {
			s.Data[i].Value = s.Data[i].Value.clone()
		}
	}
	return s
}

func (s *Step) validate() error {
	if err := checkName(s.LongName, LongNameLen); err != nil {
		return fmt.Errorf("step long name %q: %w", s.LongName, err)
	}
	if err := checkFixedName(s.Name, ShortNameLen); err != nil {
		return fmt.Errorf("step name %q: %w", s.Name, err)
	}
	for _, d := range s.Data {
		if err := checkFixedName(d.Name, ShortNameLen); err != nil {
			return fmt.Errorf("data name %q: %w", d.Name, err)
		}
		if err := checkValue(d.Value); err != nil {
			return fmt.Errorf("data %q: %w", d.Name, err)
		}
	}
	return nil
}

// fits checks that every name fits its on-disk field. Decoded short names
// may be shorter than four bytes, so only the field width is enforced.
func (s *Step) fits() error {
	if err := checkName(s.LongName, LongNameLen); err != nil {
		return fmt.Errorf("step long name %q: %w", s.LongName, err)
	}
	if err := checkName(s.Name, ShortNameLen); err != nil {
		return fmt.Errorf("step name %q: %w", s.Name, err)
	}
	for _, d := range s.Data {
		if err := checkName(d.Name, ShortNameLen); err != nil {
			return fmt.Errorf("data name %q: %w", d.Name, err)
		}
		if err := checkValue(d.Value); err != nil {
			return fmt.Errorf("data %q: %w", d.Name, err)
		}
	}
	return nil
}

// SetName changes the parameter's four byte name.
func (d *StepData) SetName(name string) error {
	if err := checkFixedName(name, ShortNameLen); err != nil {
		return fmt.Errorf("data name %q: %w", name, err)
	}
	d.Name = name
	return nil
}

// checkValue rejects nil values and text the decoder would refuse.
func checkValue(v Value) error {
	switch v := v.(type) {
	case nil:
		return fmt.Errorf("nil value: %w", ErrLogic)
	case Text:
		if !utf8.ValidString(string(v)) {
			return fmt.Errorf("text value: %w", ErrStringNotASCII)
		}
	}
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func checkName(name string, max int) error {
	if !isASCII(name) {
		return ErrStringNotASCII
	}
	if len(name) > max {
		return ErrStringTooLong
	}
	return nil
}

func checkFixedName(name string, size int) error {
	if !isASCII(name) {
		return ErrStringNotASCII
	}
	if len(name) != size {
		return ErrStringSizeWrong
	}
	return nil
}
