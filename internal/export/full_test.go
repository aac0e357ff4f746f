package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zevtool/internal/zev"
)

func dataEvent() *zev.Event {
	return &zev.Event{
		Name: "Intro",
		Flag: 2,
		Actors: []zev.Actor{
			{
				Name:  "Link",
				Flag1: 1,
				Flag2: 0x16,
				Steps: []zev.Step{
					{
						LongName: "Walk",
						Name:     "walk",
						Flag2:    4,
						Data: []zev.StepData{
							{Name: "pos ", Flag: 1, Value: zev.Floats{1.5, -2}},
							{Name: "time", Value: zev.Ints{30, 0xffffffff}},
						},
					},
					{LongName: "Talk", Name: "talk", Data: []zev.StepData{{Name: "text", Value: zev.Text("hi")}}},
				},
			},
			{
				Name:  "Camera",
				Steps: []zev.Step{{LongName: "Pan", Name: "move", Data: []zev.StepData{{Name: "ints", Value: zev.Ints{}}}}},
			},
		},
		WaitFors: []zev.WaitFor{
			{Waiting: zev.StepRef{Actor: 0, Step: 1}, WaitingOn: zev.StepRef{Actor: 0, Step: 0}},
			{Waiting: zev.StepRef{Actor: 1, Step: 0}, WaitingOn: zev.StepRef{Actor: 0, Step: 1}},
		},
	}
}

func TestGenerate_Full(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewGenerator(FormatFull, 2).Generate(dataEvent(), &buf))
	require.NoError(t, ValidateFullJSON(buf.Bytes()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, float64(2), got["flag"])

	walk := got["actors"].([]any)[0].(map[string]any)["steps"].([]any)[0].(map[string]any)
	assert.Equal(t, "walk", walk["name"])
	assert.Equal(t, float64(4), walk["flag2"])
	values := walk["data"].([]any)[0].(map[string]any)["values"].(map[string]any)
	assert.Equal(t, "floats", values["t"])
	assert.Equal(t, []any{1.5, float64(-2)}, values["c"])

	waits := got["waitFors"].([]any)
	assert.Len(t, waits, 2)
	assert.Equal(t, map[string]any{"actorIdx": float64(0), "stepIdx": float64(1)},
		waits[1].(map[string]any)["waitingOn"])
}

func TestDataValue_JSON(t *testing.T) {
	tests := []struct {
		name  string
		value zev.Value
		want  string
	}{
		{"ints", zev.Ints{1, 2}, `{"t":"ints","c":[1,2]}`},
		{"empty ints", zev.Ints(nil), `{"t":"ints","c":[]}`},
		{"floats", zev.Floats{0.5}, `{"t":"floats","c":[0.5]}`},
		{"string", zev.Text("hey"), `{"t":"string","c":"hey"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(DataValue{tt.value})
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var back DataValue
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.value.Type(), back.Type())
		})
	}

	var v DataValue
	assert.Error(t, json.Unmarshal([]byte(`{"t":"bytes","c":[]}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"t":"ints","c":"x"}`), &v))
	_, err := json.Marshal(DataValue{})
	assert.Error(t, err)
}

func TestParseFull_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewGenerator(FormatFull, 2).Generate(dataEvent(), &buf))

	ev, err := ParseFull(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, *dataEvent(), ev)

	// The rebuilt event encodes to the same container as the original.
	want, err := zev.Encode([]zev.Event{*dataEvent()})
	require.NoError(t, err)
	got, err := zev.Encode([]zev.Event{ev})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseFull_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{"name too long", `{"name": "ThisEventNameIsFarTooLongForItsField", "actors": []}`, zev.ErrStringTooLong},
		{"missing values", `{"name": "x", "actors": [{"name": "a", "steps": [
			{"longName": "l", "name": "n", "data": [{"name": "d"}]}]}]}`, zev.ErrLogic},
		{"wait out of range", `{"name": "x", "actors": [], "waitFors": [
			{"waiting": {"actorIdx": 0, "stepIdx": 0}, "waitingOn": {"actorIdx": 1, "stepIdx": 0}}]}`, zev.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFull([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := ParseFull([]byte(`{`))
	assert.Error(t, err)
}

func TestValidateFullJSON_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"summary document", `{"name": "x", "actors": []}`},
		{"bad tag", `{"name": "x", "flag": 0, "waitFors": [], "actors": [{"name": "a", "flag1": 0, "flag2": 0, "steps": [
			{"longName": "l", "name": "n", "flag1": 0, "flag2": 0, "data": [
				{"name": "d", "flag": 0, "values": {"t": "bytes", "c": []}}]}]}]}`},
		{"flag too wide", `{"name": "x", "flag": 256, "actors": [], "waitFors": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateFullJSON([]byte(tt.doc)))
		})
	}

	assert.NoError(t, ValidateFullJSON([]byte(`{"name": "x", "flag": 0, "actors": [], "waitFors": []}`)))
}
