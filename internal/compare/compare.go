package compare

import (
	"errors"
	"math"

	"github.com/kikiluvv/scenematch/internal/histogram"
)

// ErrShapeMismatch is returned when two histograms have different bin counts.
var ErrShapeMismatch = errors.New("histogram shapes differ")

const epsilon = 2.220446049250313e-16

// Comparator measures a scene histogram against a reference histogram.
type Comparator struct {
	config histogram.Config
}

// NewComparator returns a comparator for histograms built with cfg.
func NewComparator(cfg histogram.Config) *Comparator {
	return &Comparator{config: cfg}
}

// Compare scores scene against template under every metric and returns
// one record per metric, in Metrics order.
func (c *Comparator) Compare(sceneNum int, scene, template *histogram.Histogram) ([]ScoreRecord, error) {
	if scene == nil || !scene.SameShape(template) {
		return nil, ErrShapeMismatch
	}
	if hb, sb := scene.Shape(); hb != c.config.HueBins || sb != c.config.SatBins {
		return nil, ErrShapeMismatch
	}

	a, b := scene.Values(), template.Values()
	records := make([]ScoreRecord, 0, len(Metrics))
	for _, m := range Metrics {
		records = append(records, ScoreRecord{
			SceneNum: sceneNum,
			Metric:   m,
			Result:   Score(m, a, b),
		})
	}
	return records, nil
}

// Score evaluates metric m on two equal-length bin vectors. a plays the
// role of the observed histogram in the chi-square denominator.
func Score(m MetricID, a, b []float64) float64 {
	switch m {
	case Correlation:
		return correlation(a, b)
	case ChiSquare:
		return chiSquare(a, b)
	case Intersection:
		return intersection(a, b)
	case Bhattacharyya:
		return bhattacharyya(a, b)
	default:
		return math.NaN()
	}
}

func correlation(a, b []float64) float64 {
	n := float64(len(a))
	if n == 0 {
		return 1
	}
	var sa, sb float64
	for i := range a {
		sa += a[i]
		sb += b[i]
	}
	ma, mb := sa/n, sb/n

	var num, da, db float64
	for i := range a {
		x, y := a[i]-ma, b[i]-mb
		num += x * y
		da += x * x
		db += y * y
	}

	denom := da * db
	if math.Abs(denom) <= epsilon {
		return 1
	}
	return num / math.Sqrt(denom)
}

// chiSquare skips bins where a is zero.
func chiSquare(a, b []float64) float64 {
	var result float64
	for i := range a {
		if math.Abs(a[i]) <= epsilon {
			continue
		}
		d := a[i] - b[i]
		result += d * d / a[i]
	}
	return result
}

func intersection(a, b []float64) float64 {
	var result float64
	for i := range a {
		result += math.Min(a[i], b[i])
	}
	return result
}

func bhattacharyya(a, b []float64) float64 {
	var sa, sb, overlap float64
	for i := range a {
		sa += a[i]
		sb += b[i]
		overlap += math.Sqrt(a[i] * b[i])
	}

	scale := 1.0
	if s := sa * sb; math.Abs(s) > epsilon {
		scale = 1 / math.Sqrt(s)
	}
	return math.Sqrt(math.Max(1-overlap*scale, 0))
}
