// Package export renders one decoded event as structured text (a JSON or
// YAML summary, or the full JSON model) or as a Graphviz DOT graph.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"zevtool/internal/zev"
)

// Format selects the structured text flavor.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatFull Format = "full"
	FormatDOT  Format = "dot"
)

// ParseFormat maps a config or flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatFull, FormatDOT:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format: %q", s)
	}
}

// EventSummary is the text export of one event.
type EventSummary struct {
	Name   string         `json:"name" yaml:"name"`
	Actors []ActorSummary `json:"actors" yaml:"actors"`
}

// ActorSummary lists an actor and its steps in order.
type ActorSummary struct {
	Name  string        `json:"name" yaml:"name"`
	Index int           `json:"thisidx" yaml:"thisidx"`
	Steps []StepSummary `json:"steps" yaml:"steps"`
}

// StepSummary describes one step. The wait fields are null when the step
// waits on nothing.
type StepSummary struct {
	LongName    string `json:"longname" yaml:"longname"`
	Name        string `json:"name" yaml:"name"`
	Index       int    `json:"thisidx" yaml:"thisidx"`
	WaitOnActor *int   `json:"waitOnActoridx" yaml:"waitOnActoridx"`
	WaitOnStep  *int   `json:"waitOnStepidx" yaml:"waitOnStepidx"`
}

// Summarize builds the text export of ev.
func Summarize(ev *zev.Event) EventSummary {
	s := EventSummary{Name: ev.Name, Actors: make([]ActorSummary, 0, len(ev.Actors))}
	for ai, a := range ev.Actors {
		as := ActorSummary{Name: a.Name, Index: ai, Steps: make([]StepSummary, 0, len(a.Steps))}
		for si, st := range a.Steps {
			ss := StepSummary{LongName: st.LongName, Name: st.Name, Index: si}
			if on, ok := ev.WaitedOn(ai, si); ok {
				ss.WaitOnActor = &on.Actor
				ss.WaitOnStep = &on.Step
			}
			as.Steps = append(as.Steps, ss)
		}
		s.Actors = append(s.Actors, as)
	}
	return s
}

// Generator writes events in a configured format.
type Generator struct {
	format Format
	indent int
}

// NewGenerator returns a generator for format. indent is the number of
// spaces per nesting level; zero selects two.
func NewGenerator(format Format, indent int) *Generator {
	if indent <= 0 {
		indent = 2
	}
	return &Generator{format: format, indent: indent}
}

// Generate writes ev to w.
func (g *Generator) Generate(ev *zev.Event, w io.Writer) error {
	switch g.format {
	case FormatJSON:
		return g.generateJSON(Summarize(ev), w)
	case FormatYAML:
		return g.generateYAML(Summarize(ev), w)
	case FormatFull:
		return g.generateJSON(Full(ev), w)
	case FormatDOT:
		return WriteDOT(w, ev)
	default:
		return fmt.Errorf("unknown format: %s", g.format)
	}
}

func (g *Generator) generateJSON(v any, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", strings.Repeat(" ", g.indent))
	return encoder.Encode(v)
}

func (g *Generator) generateYAML(s EventSummary, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(g.indent)
	if err := encoder.Encode(s); err != nil {
		return err
	}
	return encoder.Close()
}
