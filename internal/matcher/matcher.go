// Package matcher runs a full scene-template match: load the template,
// detect and sample scenes, score each surviving scene and rank them.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kikiluvv/scenematch/internal/compare"
	"github.com/kikiluvv/scenematch/internal/histogram"
	"github.com/kikiluvv/scenematch/internal/rank"
	"github.com/kikiluvv/scenematch/internal/reference"
	"github.com/kikiluvv/scenematch/internal/scene"
)

// ErrNoScenesScored is returned when every scene was dropped.
var ErrNoScenesScored = errors.New("no scene could be scored")

// Matcher orchestrates the matching workflow
type Matcher struct {
	logger     zerolog.Logger
	config     Config
	detector   SceneDetector
	opener     scene.FrameOpener
	extractor  *histogram.Extractor
	comparator *compare.Comparator
}

// New creates a matcher. detector and opener are usually the same
// ffmpeg executor.
func New(logger zerolog.Logger, cfg Config, detector SceneDetector, opener scene.FrameOpener) (*Matcher, error) {
	extractor, err := histogram.NewExtractor(cfg.Histogram)
	if err != nil {
		return nil, fmt.Errorf("invalid histogram config: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	return &Matcher{
		logger:     logger.With().Str("component", "matcher").Logger(),
		config:     cfg,
		detector:   detector,
		opener:     opener,
		extractor:  extractor,
		comparator: compare.NewComparator(cfg.Histogram),
	}, nil
}

// Scenes detects the scenes of videoPath. When the detector finds none,
// a single scene covering the whole video is returned and fallback is true.
func (m *Matcher) Scenes(ctx context.Context, videoPath string) (scenes []scene.Scene, fallback bool, err error) {
	return m.scenes(ctx, m.logger, videoPath)
}

func (m *Matcher) scenes(ctx context.Context, logger zerolog.Logger, videoPath string) ([]scene.Scene, bool, error) {
	boundaries, err := m.detector.DetectScenes(ctx, videoPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to detect scenes: %w", err)
	}

	var duration float64
	if len(boundaries) == 0 {
		duration, err = m.detector.Duration(ctx, videoPath)
		if err != nil {
			return nil, false, fmt.Errorf("failed to probe duration: %w", err)
		}
	}

	scenes, fallback := scene.FromBoundaries(boundaries, duration)
	if fallback {
		logger.Info().
			Err(scene.ErrEmptySceneList).
			Float64("duration", duration).
			Msg("using whole video as a single scene")
	}
	return scenes, fallback, nil
}

// Match runs the matching pipeline on videoPath
func (m *Matcher) Match(ctx context.Context, videoPath string) (*Result, error) {
	if videoPath == "" {
		return nil, fmt.Errorf("video path cannot be empty")
	}

	res := &Result{
		RunID:    uuid.NewString(),
		Video:    videoPath,
		Template: m.config.TemplatePath,
		Stage:    StageSampling,
	}
	logger := m.logger.With().Str("run_id", res.RunID).Logger()

	logger.Info().
		Str("video", videoPath).
		Str("template", m.config.TemplatePath).
		Int("workers", m.config.Workers).
		Msg("starting match")

	// The template is loaded before any decoder is opened.
	ref, err := reference.Load(m.config.TemplatePath, m.extractor)
	if err != nil {
		return nil, err
	}

	res.Scenes, res.Fallback, err = m.scenes(ctx, logger, videoPath)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Stringer("stage", res.Stage).
		Int("scenes", len(res.Scenes)).
		Msg("sampling scenes")

	hists, err := m.sample(ctx, logger, videoPath, res)
	if err != nil {
		return nil, err
	}

	res.Stage = StageScoring
	logger.Info().
		Stringer("stage", res.Stage).
		Int("scenes", len(res.Scenes)-len(res.Failed)).
		Int("failed", len(res.Failed)).
		Msg("scoring scenes")

	res.Records, err = m.score(ctx, logger, res.Scenes, hists, ref.Histogram())
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("%w: %d of %d scenes failed", ErrNoScenesScored, len(res.Failed), len(res.Scenes))
	}

	res.Final, err = rank.Aggregate(res.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to rank scenes: %w", err)
	}
	res.Stage = StageRanked

	best := res.Final.Best()
	logger.Info().
		Stringer("stage", res.Stage).
		Int("best_scene", best.SceneNum).
		Float64("avg_rank", best.AvgRank).
		Int("scored", res.Scored()).
		Msg("match complete")

	return res, nil
}

// sample extracts a histogram for every scene. Slots of dropped scenes
// stay nil and their errors are appended to res.Failed.
func (m *Matcher) sample(ctx context.Context, logger zerolog.Logger, videoPath string, res *Result) ([]*histogram.Histogram, error) {
	hists := make([]*histogram.Histogram, len(res.Scenes))
	errs := make([]error, len(res.Scenes))

	sampler := scene.NewSampler(logger, m.opener, m.config.Workers)
	err := sampler.Each(ctx, videoPath, res.Scenes, func(s scene.Sample) {
		if s.Err != nil {
			errs[s.Index] = s.Err
			return
		}
		hist, err := m.extractor.Extract(s.Frame)
		if err != nil {
			errs[s.Index] = &scene.SampleError{Scene: s.Scene, Err: err}
			return
		}
		hists[s.Index] = hist
	})
	if err != nil {
		return nil, fmt.Errorf("sampling interrupted: %w", err)
	}

	for _, err := range errs {
		if err == nil {
			continue
		}
		logger.Warn().Err(err).Msg("skipping scene")
		res.Failed = append(res.Failed, err)
	}
	return hists, nil
}

// score compares each sampled histogram against the template. The
// template histogram is only read.
func (m *Matcher) score(ctx context.Context, logger zerolog.Logger, scenes []scene.Scene, hists []*histogram.Histogram, template *histogram.Histogram) ([]compare.ScoreRecord, error) {
	slots := make([][]compare.ScoreRecord, len(scenes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.Workers)
	for i, hist := range hists {
		if hist == nil {
			continue
		}
		i, hist := i, hist
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := m.comparator.Compare(scenes[i].Num, hist, template)
			if err != nil {
				return fmt.Errorf("scene %d: %w", scenes[i].Num, err)
			}
			slots[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []compare.ScoreRecord
	for _, rs := range slots {
		for _, r := range rs {
			logger.Debug().
				Int("scene", r.SceneNum).
				Stringer("metric", r.Metric).
				Float64("result", r.Result).
				Msg("scene score")
		}
		records = append(records, rs...)
	}
	return records, nil
}
