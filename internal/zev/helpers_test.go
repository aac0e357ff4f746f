package zev

// sampleEvents builds two events, "B" then "Aa", covering every data type,
// a same-actor edge, a cross-actor edge and an unterminated long name.
//
// Resulting layout: 2 events, 3 actors, 6 steps, 6 data defs, 3 ints,
// 2 floats, 10 string bytes, 562 bytes total.
func sampleEvents() []Event {
	return []Event{
		{
			Name: "B",
			Flag: 3,
			Actors: []Actor{
				{
					Name:  "@player",
					Flag1: 2,
					Flag2: 0x16,
					Steps: []Step{
						{
							LongName: "Cast",
							Name:     "cast",
							Flag2:    5,
							Data: []StepData{
								{Name: "time", Value: Ints{1, 2, 3}},
								{Name: "pos ", Flag: 1, Value: Floats{1.5, -2.25}},
							},
						},
						{
							LongName: "Wait",
							Name:     "wait",
							Data:     []StepData{{Name: "text", Value: Text("hello")}},
						},
					},
				},
				{
					Name: "Camera",
					Steps: []Step{
						{LongName: "Pan", Name: "move"},
						{
							LongName: "MoveTo",
							Name:     "mvto",
							Flag1:    7,
							Data:     []StepData{{Name: "ints", Value: Ints{}}},
						},
					},
				},
			},
			WaitFors: []WaitFor{
				{Waiting: StepRef{Actor: 0, Step: 1}, WaitingOn: StepRef{Actor: 0, Step: 0}},
				{Waiting: StepRef{Actor: 1, Step: 0}, WaitingOn: StepRef{Actor: 0, Step: 1}},
			},
		},
		{
			Name: "Aa",
			Actors: []Actor{
				{
					Name: "Link",
					Steps: []Step{
						{
							LongName: "ExactlySixteen16",
							Name:     "exct",
							Data:     []StepData{{Name: "strn", Value: Text("")}},
						},
						{
							LongName: "Talk",
							Name:     "talk",
							Data:     []StepData{{Name: "msg_", Flag: 2, Value: Text("Hi")}},
						},
					},
				},
			},
			WaitFors: []WaitFor{
				{Waiting: StepRef{Actor: 0, Step: 1}, WaitingOn: StepRef{Actor: 0, Step: 0}},
			},
		},
	}
}

// threeStepEvent has one actor with three steps and no edges.
func threeStepEvent() *Event {
	return &Event{
		Name: "Three",
		Actors: []Actor{
			{
				Name: "X",
				Steps: []Step{
					{LongName: "S0", Name: "st00"},
					{LongName: "S1", Name: "st01"},
					{LongName: "S2", Name: "st02"},
				},
			},
			{
				Name: "Y",
				Steps: []Step{
					{LongName: "T0", Name: "tt00"},
					{LongName: "T1", Name: "tt01"},
				},
			},
		},
	}
}
