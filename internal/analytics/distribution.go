package analytics

import "github.com/shopspring/decimal"

// DefaultBins is the histogram bucket count used when the caller does not pick one.
const DefaultBins = 50

// DefaultMinWeightGrams excludes small packs from the price-per-gram distribution.
const DefaultMinWeightGrams = 100

// Bucket is one histogram bar covering [Lower, Upper). The last bucket also includes Upper.
type Bucket struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// PricePerGramDistribution returns the price per gram of every record weighing at
// least minWeightGrams, in dataset order. Records without a defined price per gram
// (zero or negative weight) are skipped.
func PricePerGramDistribution(v View, minWeightGrams float64) []decimal.Decimal {
	out := make([]decimal.Decimal, 0)
	for i := 0; i < v.Len(); i++ {
		p := v.At(i)
		if p.PricePerGram == nil || p.WeightInGrams < minWeightGrams {
			continue
		}
		out = append(out, *p.PricePerGram)
	}
	return out
}

// Floats converts exact values for charting.
func Floats(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, d := range values {
		out[i] = d.InexactFloat64()
	}
	return out
}

// Histogram buckets values into bins equal-width ranges between their minimum and
// maximum. When every value is equal the range is widened to value ± 0.5.
// bins <= 0 uses DefaultBins. An empty input yields no buckets.
func Histogram(values []float64, bins int) []Bucket {
	if bins <= 0 {
		bins = DefaultBins
	}
	if len(values) == 0 {
		return []Bucket{}
	}

	lo, hi := values[0], values[0]
	for _, x := range values[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	buckets := make([]Bucket, bins)
	for i := range buckets {
		buckets[i].Lower = lo + float64(i)*width
		buckets[i].Upper = lo + float64(i+1)*width
	}
	buckets[bins-1].Upper = hi

	for _, x := range values {
		i := int((x - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		buckets[i].Count++
	}
	return buckets
}
