package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"zevtool/internal/zev"
)

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func nodeID(r zev.StepRef) string {
	return fmt.Sprintf("action_%d_%d", r.Actor, r.Step)
}

// WriteDOT writes ev as a Graphviz digraph: one cluster per actor, one
// node per step, an edge between consecutive steps of an actor and an
// edge from every waited-on step to its waiting step. Wait edges are
// emitted in the event's edge order.
func WriteDOT(w io.Writer, ev *zev.Event) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "digraph {\nlabel=\"%s\"\n", dotEscaper.Replace(ev.Name))
	for ai, a := range ev.Actors {
		fmt.Fprintf(bw, "subgraph cluster_%d {\n", ai)
		fmt.Fprintf(bw, "label=\"%d. %s\"\n", ai, dotEscaper.Replace(a.Name))
		for si, st := range a.Steps {
			this := zev.StepRef{Actor: ai, Step: si}
			fmt.Fprintf(bw, "%s [label=\"%d. %s\"]\n", nodeID(this), si, dotEscaper.Replace(st.LongName))
			if si > 0 {
				fmt.Fprintf(bw, "%s -> %s\n", nodeID(zev.StepRef{Actor: ai, Step: si - 1}), nodeID(this))
			}
		}
		fmt.Fprintln(bw, "}")
	}
	for _, wf := range ev.WaitFors {
		fmt.Fprintf(bw, "%s -> %s\n", nodeID(wf.WaitingOn), nodeID(wf.Waiting))
	}
	fmt.Fprintln(bw, "}")

	return bw.Flush()
}
