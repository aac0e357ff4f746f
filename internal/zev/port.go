package zev

import (
	"errors"
	"fmt"
)

// ErrEventNotFound is returned when a named event is missing from a list.
var ErrEventNotFound = errors.New("zev: event not found")

// FindEvent returns the event with the given name.
func FindEvent(events []Event, name string) (*Event, error) {
	for i := range events {
		if events[i].Name == name {
			return &events[i], nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrEventNotFound)
}

// Port appends deep copies of the named src events to dst. Nothing is
// appended unless every name exists in src and none exists in dst.
func Port(dst, src []Event, names ...string) ([]Event, error) {
	picked := make([]Event, 0, len(names))
	for _, name := range names {
		if _, err := FindEvent(dst, name); err == nil {
			return dst, fmt.Errorf("port %q: %w", name, ErrAlreadyExists)
		}
		for _, p := range picked {
			if p.Name == name {
				return dst, fmt.Errorf("port %q twice: %w", name, ErrAlreadyExists)
			}
		}
		ev, err := FindEvent(src, name)
		if err != nil {
			return dst, fmt.Errorf("port: %w", err)
		}
		picked = append(picked, ev.Clone())
	}
	return append(dst, picked...), nil
}
