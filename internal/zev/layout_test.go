package zev

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeLayout_Empty(t *testing.T) {
	l := ComputeLayout(Counts{})
	assert.Equal(t, HeaderSize, l.Events)
	assert.Equal(t, HeaderSize, l.Strings)
	assert.Equal(t, HeaderSize, l.Total)
}

func TestComputeLayout_Offsets(t *testing.T) {
	l := ComputeLayout(Counts{
		Events:      2,
		Actors:      3,
		Steps:       6,
		DataDefs:    6,
		Ints:        3,
		Floats:      2,
		StringBytes: 10,
	})

	assert.Equal(t, 20, l.Events)
	assert.Equal(t, 100, l.Actors)
	assert.Equal(t, 220, l.Steps1)
	assert.Equal(t, 388, l.Steps2)
	assert.Equal(t, 460, l.DataDefs)
	assert.Equal(t, 532, l.Ints)
	assert.Equal(t, 544, l.Floats)
	assert.Equal(t, 552, l.Strings)
	assert.Equal(t, 562, l.Total)
}

func TestCountEvents(t *testing.T) {
	c := CountEvents(sampleEvents())
	assert.Equal(t, Counts{
		Events:      2,
		Actors:      3,
		Steps:       6,
		DataDefs:    6,
		Ints:        3,
		Floats:      2,
		StringBytes: 10,
	}, c)
}

func TestCompareNames(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"Aa", "B", -1},
		{"B", "Aa", 1},
		{"A", "Aa", -1},
		{"Aa", "A", 1},
		{"same", "same", 0},
		{"", "a", -1},
		{"Z", "a", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareNames(tt.a, tt.b))
		})
	}
}
