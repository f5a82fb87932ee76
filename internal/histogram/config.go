package histogram

import "fmt"

// Range is a half-open value interval [Min, Max).
type Range struct {
	Min float64
	Max float64
}

// Config fixes the shape of every histogram built by an Extractor.
// It is passed by value and never modified after construction.
type Config struct {
	HueBins  int
	SatBins  int
	HueRange Range
	SatRange Range

	// MaxDimension downscales frames whose longest side exceeds it before
	// binning. Zero keeps full resolution.
	MaxDimension uint
}

// DefaultConfig returns the reference 30x32 hue/saturation configuration.
func DefaultConfig() Config {
	return Config{
		HueBins:  30,
		SatBins:  32,
		HueRange: Range{Min: 0, Max: 180},
		SatRange: Range{Min: 0, Max: 256},
	}
}

// Validate reports whether the config can produce a histogram.
func (c Config) Validate() error {
	if c.HueBins <= 0 || c.SatBins <= 0 {
		return fmt.Errorf("bin counts must be positive: hue=%d sat=%d", c.HueBins, c.SatBins)
	}
	if c.HueRange.Max <= c.HueRange.Min {
		return fmt.Errorf("invalid hue range [%g, %g)", c.HueRange.Min, c.HueRange.Max)
	}
	if c.SatRange.Max <= c.SatRange.Min {
		return fmt.Errorf("invalid saturation range [%g, %g)", c.SatRange.Min, c.SatRange.Max)
	}
	return nil
}

// bin maps v into [0, n) for a uniform split of r, or -1 when v is outside r.
func (r Range) bin(v float64, n int) int {
	if v < r.Min || v >= r.Max {
		return -1
	}
	idx := int((v - r.Min) * float64(n) / (r.Max - r.Min))
	if idx >= n {
		idx = n - 1
	}
	return idx
}
