package zev

// Counts holds the per-category element totals of a container.
type Counts struct {
	Events      int
	Actors      int
	Steps       int
	DataDefs    int
	Ints        int
	Floats      int
	StringBytes int // sum of string lengths plus one terminator each
}

// Layout holds the absolute byte offset of every section of a container.
type Layout struct {
	Counts Counts

	Events   int
	Actors   int
	Steps1   int
	Steps2   int
	DataDefs int
	Ints     int
	Floats   int
	Strings  int
	Total    int
}

// ComputeLayout places the sections of a container back to back in file order.
func ComputeLayout(c Counts) Layout {
	l := Layout{Counts: c}
	l.Events = HeaderSize
	l.Actors = l.Events + c.Events*EventSize
	l.Steps1 = l.Actors + c.Actors*ActorSize
	l.Steps2 = l.Steps1 + c.Steps*Step1Size
	l.DataDefs = l.Steps2 + c.Steps*Step2Size
	l.Ints = l.DataDefs + c.DataDefs*DataDefSize
	l.Floats = l.Ints + c.Ints*IntSize
	l.Strings = l.Floats + c.Floats*FloatSize
	l.Total = l.Strings + c.StringBytes
	return l
}

func (l Layout) eventTable() table {
	return table{name: "event", offset: l.Events, size: EventSize, count: l.Counts.Events}
}

func (l Layout) actorTable() table {
	return table{name: "actor", offset: l.Actors, size: ActorSize, count: l.Counts.Actors}
}

func (l Layout) step1Table() table {
	return table{name: "step1", offset: l.Steps1, size: Step1Size, count: l.Counts.Steps}
}

func (l Layout) step2Table() table {
	return table{name: "step2", offset: l.Steps2, size: Step2Size, count: l.Counts.Steps}
}

func (l Layout) dataDefTable() table {
	return table{name: "datadef", offset: l.DataDefs, size: DataDefSize, count: l.Counts.DataDefs}
}

func (l Layout) intTable() table {
	return table{name: "int", offset: l.Ints, size: IntSize, count: l.Counts.Ints}
}

func (l Layout) floatTable() table {
	return table{name: "float", offset: l.Floats, size: FloatSize, count: l.Counts.Floats}
}

func (l Layout) stringTable() table {
	return table{name: "string", offset: l.Strings, size: 1, count: l.Counts.StringBytes}
}

// CountEvents totals the elements of a logical event list.
func CountEvents(events []Event) Counts {
	var c Counts
	for i := range events {
		c.Events++
		for _, actor := range events[i].Actors {
			c.Actors++
			for _, step := range actor.Steps {
				c.Steps++
				for _, d := range step.Data {
					c.DataDefs++
					switch v := d.Value.(type) {
					case Ints:
						c.Ints += len(v)
					case Floats:
						c.Floats += len(v)
					case Text:
						c.StringBytes += len(v) + 1
					}
				}
			}
		}
	}
	return c
}
