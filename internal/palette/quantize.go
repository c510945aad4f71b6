package palette

import (
	"container/heap"
	"fmt"
	"sort"

	"coverhue/internal/search"
)

const (
	axisRed = iota
	axisGreen
	axisBlue
)

// Fraction of the requested colors produced by population-only splitting before the
// population x volume phase takes over.
const populationPhaseFraction = 0.75

// Swatch is one representative palette color and the pixel population behind it.
type Swatch struct {
	R          uint8 `json:"r"`
	G          uint8 `json:"g"`
	B          uint8 `json:"b"`
	Population int   `json:"population"`
}

func (s Swatch) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", s.R, s.G, s.B)
}

func (s Swatch) HSL() HSL {
	return HSLFromRGB(s.R, s.G, s.B)
}

// Palette is ordered by descending population.
type Palette []Swatch

type splitCriterion int

const (
	byPopulation splitCriterion = iota
	byPopulationVolume
)

type colorBox struct {
	start      int
	end        int
	population int
	min        [3]uint8
	max        [3]uint8
	volume     int64
}

func (b colorBox) splittable() bool {
	return b.end-b.start > 1
}

func (b colorBox) widestAxis() int {
	axis := axisRed
	widest := b.max[axisRed] - b.min[axisRed]
	for _, candidate := range []int{axisGreen, axisBlue} {
		if span := b.max[candidate] - b.min[candidate]; span > widest {
			axis = candidate
			widest = span
		}
	}
	return axis
}

func (b colorBox) priority(criterion splitCriterion) int64 {
	if criterion == byPopulationVolume {
		return int64(b.population) * b.volume
	}
	return int64(b.population)
}

type quantizer struct {
	buckets  []Bucket
	arena    []colorBox
	queue    boxQueue
	terminal []int
}

// boxQueue is a max-heap of arena indexes under the active split criterion.
type boxQueue struct {
	q         *quantizer
	items     []int
	criterion splitCriterion
}

func (bq *boxQueue) Len() int {
	return len(bq.items)
}

func (bq *boxQueue) Less(i, j int) bool {
	left := bq.q.arena[bq.items[i]].priority(bq.criterion)
	right := bq.q.arena[bq.items[j]].priority(bq.criterion)
	if left == right {
		return bq.items[i] < bq.items[j]
	}
	return left > right
}

func (bq *boxQueue) Swap(i, j int) {
	bq.items[i], bq.items[j] = bq.items[j], bq.items[i]
}

func (bq *boxQueue) Push(x any) {
	bq.items = append(bq.items, x.(int))
}

func (bq *boxQueue) Pop() any {
	last := len(bq.items) - 1
	item := bq.items[last]
	bq.items = bq.items[:last]
	return item
}

// Quantize reduces histogram to at most maxColors representative colors with a
// two-phase median cut. An empty histogram yields an empty palette.
func Quantize(histogram Histogram, maxColors int) (Palette, error) {
	if maxColors < 1 {
		return nil, fmt.Errorf("%w: max colors %d, want at least 1", ErrInvalidArgument, maxColors)
	}
	if histogram.Len() == 0 {
		return Palette{}, nil
	}

	q := &quantizer{buckets: histogram.Buckets()}
	q.queue.q = q
	heap.Push(&q.queue, q.newBox(0, len(q.buckets)))

	q.splitUntil(int(float64(maxColors)*populationPhaseFraction), byPopulation)
	q.splitUntil(maxColors, byPopulationVolume)

	return q.palette(), nil
}

func (q *quantizer) boxCount() int {
	return q.queue.Len() + len(q.terminal)
}

func (q *quantizer) splitUntil(target int, criterion splitCriterion) {
	q.queue.criterion = criterion
	heap.Init(&q.queue)

	for q.boxCount() < target && q.queue.Len() > 0 {
		index := heap.Pop(&q.queue).(int)
		box := q.arena[index]
		if !box.splittable() {
			q.terminal = append(q.terminal, index)
			continue
		}

		left, right := q.split(box)
		heap.Push(&q.queue, left)
		heap.Push(&q.queue, right)
	}
}

// split partitions box at its population median along the widest channel and
// returns the arena indexes of both children.
func (q *quantizer) split(box colorBox) (int, int) {
	axis := box.widestAxis()
	segment := q.buckets[box.start:box.end]
	sort.Slice(segment, func(i, j int) bool {
		left := segment[i].channel(axis)
		right := segment[j].channel(axis)
		if left == right {
			return segment[i].key() < segment[j].key()
		}
		return left < right
	})

	cumulative := make([]int, len(segment))
	running := 0
	for index, bucket := range segment {
		running += bucket.Population
		cumulative[index] = running
	}

	median := search.Bisect(0, len(segment)-1, true, func(index int) int {
		return compareInt(2*cumulative[index], box.population)
	})
	cut := median + 1
	if cut >= len(segment) {
		cut = len(segment) - 1
	}

	left := q.newBox(box.start, box.start+cut)
	right := q.newBox(box.start+cut, box.end)
	return left, right
}

func (q *quantizer) newBox(start int, end int) int {
	box := colorBox{start: start, end: end}
	first := q.buckets[start]
	box.min = [3]uint8{first.RQ, first.GQ, first.BQ}
	box.max = box.min

	for _, bucket := range q.buckets[start:end] {
		box.population += bucket.Population
		for axis := axisRed; axis <= axisBlue; axis++ {
			value := bucket.channel(axis)
			if value < box.min[axis] {
				box.min[axis] = value
			}
			if value > box.max[axis] {
				box.max[axis] = value
			}
		}
	}

	box.volume = 1
	for axis := axisRed; axis <= axisBlue; axis++ {
		box.volume *= int64(box.max[axis]-box.min[axis]) + 1
	}

	q.arena = append(q.arena, box)
	return len(q.arena) - 1
}

func (q *quantizer) palette() Palette {
	leaves := append(append([]int(nil), q.queue.items...), q.terminal...)
	sort.Slice(leaves, func(i, j int) bool {
		left := q.arena[leaves[i]]
		right := q.arena[leaves[j]]
		if left.population == right.population {
			return leaves[i] < leaves[j]
		}
		return left.population > right.population
	})

	result := make(Palette, 0, len(leaves))
	for _, index := range leaves {
		box := q.arena[index]
		var sumR, sumG, sumB uint64
		for _, bucket := range q.buckets[box.start:box.end] {
			sumR += bucket.SumR
			sumG += bucket.SumG
			sumB += bucket.SumB
		}
		result = append(result, Swatch{
			R:          meanChannel(sumR, box.population),
			G:          meanChannel(sumG, box.population),
			B:          meanChannel(sumB, box.population),
			Population: box.population,
		})
	}
	return result
}

func compareInt(left int, right int) int {
	switch {
	case left < right:
		return -1
	case left > right:
		return 1
	default:
		return 0
	}
}
