package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubtract(t *testing.T) {
	day := []Interval{{Start: 540, End: 1080}} // 09:00-18:00

	tests := []struct {
		name     string
		cut      Interval
		expected []Interval
	}{
		{"no overlap", Interval{Start: 0, End: 60}, []Interval{{Start: 540, End: 1080}}},
		{"split in middle", Interval{Start: 780, End: 840}, []Interval{{Start: 540, End: 780}, {Start: 840, End: 1080}}},
		{"trim left edge", Interval{Start: 480, End: 600}, []Interval{{Start: 600, End: 1080}}},
		{"trim right edge", Interval{Start: 1020, End: 1140}, []Interval{{Start: 540, End: 1020}}},
		{"swallow whole", Interval{Start: 0, End: 1440}, nil},
		{"empty cut", Interval{Start: 600, End: 600}, []Interval{{Start: 540, End: 1080}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Subtract(day, tt.cut))
		})
	}
}

func TestSubtractAll(t *testing.T) {
	day := []Interval{{Start: 540, End: 1080}}
	cuts := []Interval{
		{Start: 780, End: 840}, // lunch 13:00-14:00
		{Start: 600, End: 630}, // booking 10:00-10:30
	}

	got := SubtractAll(day, cuts)
	assert.Equal(t, []Interval{
		{Start: 540, End: 600},
		{Start: 630, End: 780},
		{Start: 840, End: 1080},
	}, got)
}

func TestIntersect(t *testing.T) {
	salon := []Interval{{Start: 540, End: 1080}} // 09:00-18:00
	staff := []Interval{{Start: 600, End: 1200}} // 10:00-20:00

	got := Intersect(staff, salon)
	assert.Equal(t, []Interval{{Start: 600, End: 1080}}, got)

	// Disjoint sets intersect to nothing.
	assert.Empty(t, Intersect([]Interval{{Start: 0, End: 60}}, salon))
}

func TestIntervalContains(t *testing.T) {
	iv := Interval{Start: 540, End: 600}
	assert.True(t, iv.Contains(540, 600))
	assert.True(t, iv.Contains(550, 580))
	assert.False(t, iv.Contains(540, 601))
	assert.False(t, iv.Contains(530, 600))
}
