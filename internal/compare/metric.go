// Package compare scores histogram pairs under several statistical metrics.
package compare

import (
	"fmt"
	"strings"
)

// MetricID identifies one comparison metric.
type MetricID int

const (
	Correlation MetricID = iota
	ChiSquare
	Intersection
	Bhattacharyya
)

// Metrics lists every metric in evaluation order.
var Metrics = []MetricID{Correlation, ChiSquare, Intersection, Bhattacharyya}

// Direction says which end of a metric's scale means "more similar".
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

func (m MetricID) String() string {
	switch m {
	case Correlation:
		return "correlation"
	case ChiSquare:
		return "chi_square"
	case Intersection:
		return "intersection"
	case Bhattacharyya:
		return "bhattacharyya"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// Direction returns the metric's ordering direction.
func (m MetricID) Direction() Direction {
	switch m {
	case ChiSquare, Bhattacharyya:
		return LowerIsBetter
	default:
		return HigherIsBetter
	}
}

// Valid reports whether m is one of the known metrics.
func (m MetricID) Valid() bool {
	return m >= Correlation && m <= Bhattacharyya
}

// MarshalText implements encoding.TextMarshaler so metrics render by name
// in YAML reports.
func (m MetricID) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("unknown metric %d", int(m))
	}
	return []byte(m.String()), nil
}

// ParseMetric resolves a metric name as produced by String.
func ParseMetric(s string) (MetricID, error) {
	for _, m := range Metrics {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

// ScoreRecord is one raw metric result for one scene.
type ScoreRecord struct {
	SceneNum int
	Metric   MetricID
	Result   float64
}
