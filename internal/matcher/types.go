package matcher

import (
	"context"
	"fmt"

	"github.com/kikiluvv/scenematch/internal/compare"
	"github.com/kikiluvv/scenematch/internal/histogram"
	"github.com/kikiluvv/scenematch/internal/rank"
	"github.com/kikiluvv/scenematch/internal/scene"
)

// SceneDetector supplies scene boundaries and the video duration.
type SceneDetector interface {
	DetectScenes(ctx context.Context, videoPath string) ([]scene.Boundary, error)
	Duration(ctx context.Context, videoPath string) (float64, error)
}

// Stage is the phase a matching run is in. Runs only move forward.
type Stage int

const (
	StageSampling Stage = iota
	StageScoring
	StageRanked
)

func (s Stage) String() string {
	switch s {
	case StageSampling:
		return "sampling"
	case StageScoring:
		return "scoring"
	case StageRanked:
		return "ranked"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Config holds matcher-specific configuration
type Config struct {
	TemplatePath string
	Histogram    histogram.Config
	// Workers bounds sampling and scoring fan-out; <= 0 uses GOMAXPROCS.
	Workers int
}

// Result is the outcome of one matching run.
type Result struct {
	RunID    string
	Video    string
	Template string
	Stage    Stage

	// Scenes is every scene that was sampled, in detector order.
	Scenes   []scene.Scene
	Fallback bool

	// Failed holds one *scene.SampleError per scene that was dropped.
	Failed  []error
	Records []compare.ScoreRecord
	Final   *rank.FinalRanking
}

// Best returns the best matching scene.
func (r *Result) Best() scene.Scene {
	best := r.Final.Best().SceneNum
	for _, sc := range r.Scenes {
		if sc.Num == best {
			return sc
		}
	}
	return scene.Scene{Num: best}
}

// Scored returns how many scenes made it into the ranking.
func (r *Result) Scored() int {
	return len(r.Final.Entries)
}
