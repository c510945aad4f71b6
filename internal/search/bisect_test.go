package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func compareAgainst(values []int, target int) func(int) int {
	return func(index int) int {
		return values[index] - target
	}
}

func TestBisectLiteralCases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		values      []int
		target      int
		preferFirst bool
		want        int
	}{
		{name: "single match first", values: []int{0, 1, 2, 3}, target: 3, preferFirst: true, want: 3},
		{name: "single match last", values: []int{0, 1, 2, 3}, target: 3, preferFirst: false, want: 4},
		{name: "run first", values: []int{0, 1, 2, 3, 3, 3}, target: 3, preferFirst: true, want: 3},
		{name: "run last", values: []int{0, 1, 2, 3, 3, 3}, target: 3, preferFirst: false, want: 6},
		{name: "above target", values: []int{40}, target: 0, preferFirst: false, want: 0},
		{name: "leading match", values: []int{0, 40}, target: 0, preferFirst: false, want: 1},
		{name: "leading match first", values: []int{0, 40}, target: 0, preferFirst: true, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Bisect(0, len(tc.values)-1, tc.preferFirst, compareAgainst(tc.values, tc.target))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBisectRunLengthDifference(t *testing.T) {
	t.Parallel()

	for run := 1; run <= 7; run++ {
		values := []int{-4, -1}
		for i := 0; i < run; i++ {
			values = append(values, 5)
		}
		values = append(values, 9, 12)

		first := Bisect(0, len(values)-1, true, compareAgainst(values, 5))
		last := Bisect(0, len(values)-1, false, compareAgainst(values, 5))
		assert.Equal(t, 2, first)
		assert.Equal(t, run, last-first, "run of %d", run)
	}
}

func TestBisectWithoutMatchReturnsInsertionPoint(t *testing.T) {
	t.Parallel()

	values := []int{1, 3, 5, 7}
	for _, preferFirst := range []bool{true, false} {
		assert.Equal(t, 2, Bisect(0, 3, preferFirst, compareAgainst(values, 4)))
		assert.Equal(t, 0, Bisect(0, 3, preferFirst, compareAgainst(values, -10)))
		assert.Equal(t, 4, Bisect(0, 3, preferFirst, compareAgainst(values, 100)))
	}
}

func TestBisectHonorsOffsetRange(t *testing.T) {
	t.Parallel()

	values := []int{9, 9, 1, 2, 2, 4, 9}
	assert.Equal(t, 3, Bisect(2, 5, true, compareAgainst(values, 2)))
	assert.Equal(t, 5, Bisect(2, 5, false, compareAgainst(values, 2)))
	assert.Equal(t, 6, Bisect(2, 5, true, compareAgainst(values, 8)))
}

func TestBisectEmptyRange(t *testing.T) {
	t.Parallel()

	calls := 0
	got := Bisect(3, 2, true, func(int) int {
		calls++
		return 0
	})
	assert.Equal(t, 3, got)
	assert.Zero(t, calls)
}
