package palette

import (
	"fmt"
	"sort"
)

const (
	DefaultReductionBits  = 3
	DefaultAlphaThreshold = 125
	maxReductionBits      = 7
)

// HistogramOptions controls how source pixels are bucketed.
type HistogramOptions struct {
	// ReductionBits is the number of low bits dropped from every channel before
	// bucketing. Valid values are 0 through 7.
	ReductionBits int
	// AlphaThreshold excludes RGBA pixels whose alpha is below it. 0 keeps all pixels.
	AlphaThreshold int
	// SampleStep considers every Nth pixel in row-major order. 0 means every pixel.
	SampleStep int
}

func DefaultHistogramOptions() HistogramOptions {
	return HistogramOptions{
		ReductionBits:  DefaultReductionBits,
		AlphaThreshold: DefaultAlphaThreshold,
		SampleStep:     1,
	}
}

func (o HistogramOptions) validate() error {
	if o.ReductionBits < 0 || o.ReductionBits > maxReductionBits {
		return fmt.Errorf("%w: reduction bits %d outside 0..%d", ErrInvalidArgument, o.ReductionBits, maxReductionBits)
	}
	if o.AlphaThreshold < 0 || o.AlphaThreshold > 255 {
		return fmt.Errorf("%w: alpha threshold %d outside 0..255", ErrInvalidArgument, o.AlphaThreshold)
	}
	if o.SampleStep < 0 {
		return fmt.Errorf("%w: negative sample step %d", ErrInvalidArgument, o.SampleStep)
	}
	return nil
}

// Bucket is one reduced color of a histogram. RQ, GQ and BQ are the reduced channel
// values; the sums hold the original channel values of every pixel merged into it.
type Bucket struct {
	RQ         uint8
	GQ         uint8
	BQ         uint8
	Population int
	SumR       uint64
	SumG       uint64
	SumB       uint64
}

func (b Bucket) key() uint32 {
	return uint32(b.RQ)<<16 | uint32(b.GQ)<<8 | uint32(b.BQ)
}

func (b Bucket) channel(axis int) uint8 {
	switch axis {
	case axisRed:
		return b.RQ
	case axisGreen:
		return b.GQ
	default:
		return b.BQ
	}
}

// Mean returns the average original color of the pixels in the bucket.
func (b Bucket) Mean() (uint8, uint8, uint8) {
	return meanChannel(b.SumR, b.Population), meanChannel(b.SumG, b.Population), meanChannel(b.SumB, b.Population)
}

// Histogram is the set of distinct reduced colors of a bitmap. Buckets are kept in
// ascending order of their packed reduced triple.
type Histogram struct {
	buckets       []Bucket
	population    int
	reductionBits int
}

func (h Histogram) Len() int {
	return len(h.buckets)
}

func (h Histogram) Population() int {
	return h.population
}

func (h Histogram) ReductionBits() int {
	return h.reductionBits
}

func (h Histogram) Buckets() []Bucket {
	return append([]Bucket(nil), h.buckets...)
}

// BuildHistogram reduces every eligible pixel of bitmap and merges identical reduced
// triples. It fails only on a structurally inconsistent bitmap or invalid options.
func BuildHistogram(bitmap Bitmap, options HistogramOptions) (Histogram, error) {
	if err := bitmap.validate(); err != nil {
		return Histogram{}, err
	}
	if err := options.validate(); err != nil {
		return Histogram{}, err
	}

	step := options.SampleStep
	if step == 0 {
		step = 1
	}
	shift := uint(options.ReductionBits)
	hasAlpha := bitmap.Channels == 4

	slots := make(map[uint32]int)
	buckets := make([]Bucket, 0, 256)
	population := 0

	for pixel := 0; pixel < bitmap.PixelCount(); pixel += step {
		offset := pixel * bitmap.Channels
		if hasAlpha && int(bitmap.Pix[offset+3]) < options.AlphaThreshold {
			continue
		}

		r := bitmap.Pix[offset]
		g := bitmap.Pix[offset+1]
		b := bitmap.Pix[offset+2]
		rq := r >> shift
		gq := g >> shift
		bq := b >> shift
		key := uint32(rq)<<16 | uint32(gq)<<8 | uint32(bq)

		slot, ok := slots[key]
		if !ok {
			slot = len(buckets)
			slots[key] = slot
			buckets = append(buckets, Bucket{RQ: rq, GQ: gq, BQ: bq})
		}

		bucket := &buckets[slot]
		bucket.Population++
		bucket.SumR += uint64(r)
		bucket.SumG += uint64(g)
		bucket.SumB += uint64(b)
		population++
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].key() < buckets[j].key()
	})

	return Histogram{
		buckets:       buckets,
		population:    population,
		reductionBits: options.ReductionBits,
	}, nil
}

func meanChannel(sum uint64, population int) uint8 {
	if population <= 0 {
		return 0
	}
	count := uint64(population)
	return uint8((sum + count/2) / count)
}
