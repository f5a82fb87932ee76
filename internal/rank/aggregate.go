// Package rank combines per-metric scene scores into a single ordering.
//
// Raw metric values have incomparable scales and opposite directions, so
// each metric is first turned into a 1..N ranking and the rankings are
// averaged per scene. The result depends only on the set of records passed
// in, never on their order.
package rank

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/kikiluvv/scenematch/internal/compare"
)

var (
	ErrNoRecords         = errors.New("no score records")
	ErrIncompleteRecords = errors.New("scene is missing metric results")
	ErrDuplicateRecord   = errors.New("duplicate score record")
	ErrUnknownMetric     = errors.New("unknown metric")
)

// Ranking maps a scene number to its 1-based rank within one metric.
type Ranking map[int]int

// Entry is one scene's aggregate position.
type Entry struct {
	SceneNum int     `yaml:"scene_num"`
	AvgRank  float64 `yaml:"avg_rank"`
}

// FinalRanking is the outcome of aggregation.
type FinalRanking struct {
	// PerMetric holds the ranking produced by each metric.
	PerMetric map[compare.MetricID]Ranking
	// Entries is ordered by AvgRank, then SceneNum, ascending.
	Entries []Entry
}

// Best returns the top entry.
func (f *FinalRanking) Best() Entry {
	return f.Entries[0]
}

// AvgRank returns the average rank of sceneNum and whether it was ranked.
func (f *FinalRanking) AvgRank(sceneNum int) (float64, bool) {
	for _, e := range f.Entries {
		if e.SceneNum == sceneNum {
			return e.AvgRank, true
		}
	}
	return 0, false
}

// Aggregate ranks every scene under every metric and averages the ranks.
// Each scene must have exactly one record per metric.
func Aggregate(records []compare.ScoreRecord) (*FinalRanking, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	results := make(map[compare.MetricID]map[int]float64, len(compare.Metrics))
	scenes := make(map[int]struct{})
	for _, r := range records {
		if !r.Metric.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrUnknownMetric, int(r.Metric))
		}
		byScene, ok := results[r.Metric]
		if !ok {
			byScene = make(map[int]float64)
			results[r.Metric] = byScene
		}
		if _, dup := byScene[r.SceneNum]; dup {
			return nil, fmt.Errorf("%w: scene %d %s", ErrDuplicateRecord, r.SceneNum, r.Metric)
		}
		byScene[r.SceneNum] = r.Result
		scenes[r.SceneNum] = struct{}{}
	}

	sceneNums := make([]int, 0, len(scenes))
	for n := range scenes {
		sceneNums = append(sceneNums, n)
	}
	sort.Ints(sceneNums)

	for _, m := range compare.Metrics {
		for _, n := range sceneNums {
			if _, ok := results[m][n]; !ok {
				return nil, fmt.Errorf("%w: scene %d has no %s result", ErrIncompleteRecords, n, m)
			}
		}
	}

	final := &FinalRanking{
		PerMetric: make(map[compare.MetricID]Ranking, len(compare.Metrics)),
		Entries:   make([]Entry, 0, len(sceneNums)),
	}
	for _, m := range compare.Metrics {
		final.PerMetric[m] = rankMetric(m.Direction(), sceneNums, results[m])
	}

	for _, n := range sceneNums {
		var total int
		for _, m := range compare.Metrics {
			total += final.PerMetric[m][n]
		}
		final.Entries = append(final.Entries, Entry{
			SceneNum: n,
			AvgRank:  float64(total) / float64(len(compare.Metrics)),
		})
	}

	sort.SliceStable(final.Entries, func(i, j int) bool {
		a, b := final.Entries[i], final.Entries[j]
		if a.AvgRank != b.AvgRank {
			return a.AvgRank < b.AvgRank
		}
		return a.SceneNum < b.SceneNum
	})

	return final, nil
}

// rankMetric orders sceneNums (already ascending) by result in the given
// direction. Equal results keep scene order; NaN results rank last.
func rankMetric(dir compare.Direction, sceneNums []int, results map[int]float64) Ranking {
	order := make([]int, len(sceneNums))
	copy(order, sceneNums)

	sort.SliceStable(order, func(i, j int) bool {
		a, b := results[order[i]], results[order[j]]
		aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
		switch {
		case aNaN || bNaN:
			return !aNaN && bNaN
		case dir == compare.LowerIsBetter:
			return a < b
		default:
			return a > b
		}
	})

	ranking := make(Ranking, len(order))
	for i, n := range order {
		ranking[n] = i + 1
	}
	return ranking
}
