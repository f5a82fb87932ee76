package histogram

import "math"

// Histogram is a dense 2-D hue/saturation distribution stored row-major
// (hue rows, saturation columns).
type Histogram struct {
	hueBins int
	satBins int
	values  []float64
}

// New returns a zeroed histogram of the given shape.
func New(hueBins, satBins int) *Histogram {
	return &Histogram{
		hueBins: hueBins,
		satBins: satBins,
		values:  make([]float64, hueBins*satBins),
	}
}

// FromValues builds a histogram from row-major values. It copies values.
func FromValues(hueBins, satBins int, values []float64) *Histogram {
	h := New(hueBins, satBins)
	copy(h.values, values)
	return h
}

// Shape returns the hue and saturation bin counts.
func (h *Histogram) Shape() (hueBins, satBins int) {
	return h.hueBins, h.satBins
}

// Len returns the total number of bins.
func (h *Histogram) Len() int {
	return len(h.values)
}

// At returns the value of bin (hue, sat).
func (h *Histogram) At(hue, sat int) float64 {
	return h.values[hue*h.satBins+sat]
}

// Values returns a copy of the row-major bin values.
func (h *Histogram) Values() []float64 {
	out := make([]float64, len(h.values))
	copy(out, h.values)
	return out
}

// SameShape reports whether h and other have identical bin counts.
func (h *Histogram) SameShape(other *Histogram) bool {
	return other != nil && h.hueBins == other.hueBins && h.satBins == other.satBins
}

// Sum returns the total of all bins.
func (h *Histogram) Sum() float64 {
	var s float64
	for _, v := range h.values {
		s += v
	}
	return s
}

func (h *Histogram) add(hue, sat int) {
	h.values[hue*h.satBins+sat]++
}

// Normalize rescales h in place so its minimum maps to 0 and its maximum
// to 1. A histogram whose bins are all equal becomes all zeros.
func (h *Histogram) Normalize() {
	if len(h.values) == 0 {
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range h.values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	scale := 0.0
	if hi-lo > epsilon {
		scale = 1 / (hi - lo)
	}
	for i, v := range h.values {
		h.values[i] = (v - lo) * scale
	}
}

const epsilon = 2.220446049250313e-16
