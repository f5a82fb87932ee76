package matcher

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/scenematch/internal/histogram"
	"github.com/kikiluvv/scenematch/internal/reference"
	"github.com/kikiluvv/scenematch/internal/scene"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func writeTemplate(t *testing.T, c color.Color) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, solid(c)))
	return path
}

type fakeDetector struct {
	boundaries []scene.Boundary
	duration   float64
	err        error
	calls      atomic.Int32
}

func (d *fakeDetector) DetectScenes(ctx context.Context, videoPath string) ([]scene.Boundary, error) {
	d.calls.Add(1)
	return d.boundaries, d.err
}

func (d *fakeDetector) Duration(ctx context.Context, videoPath string) (float64, error) {
	return d.duration, nil
}

// fakeOpener serves solid frames keyed by midpoint; a missing key is a
// decode failure.
type fakeOpener struct {
	frames map[float64]color.Color
	opens  atomic.Int32
}

func (o *fakeOpener) Open(ctx context.Context, videoPath string) (scene.FrameSource, error) {
	o.opens.Add(1)
	return &fakeSource{frames: o.frames}, nil
}

type fakeSource struct {
	frames map[float64]color.Color
}

func (s *fakeSource) FrameAt(ctx context.Context, ms float64) (image.Image, error) {
	c, ok := s.frames[ms]
	if !ok {
		return nil, scene.ErrNoFrame
	}
	return solid(c), nil
}

func (s *fakeSource) Close() error { return nil }

func threeScenes() *fakeDetector {
	return &fakeDetector{
		boundaries: []scene.Boundary{{Start: 0, End: 2}, {Start: 2, End: 4}, {Start: 4, End: 6}},
		duration:   6,
	}
}

func newMatcher(t *testing.T, template string, d SceneDetector, o scene.FrameOpener) *Matcher {
	t.Helper()
	m, err := New(zerolog.Nop(), Config{
		TemplatePath: template,
		Histogram:    histogram.DefaultConfig(),
		Workers:      2,
	}, d, o)
	require.NoError(t, err)
	return m
}

func TestMatchPicksClosestScene(t *testing.T) {
	opener := &fakeOpener{frames: map[float64]color.Color{1000: blue, 3000: red, 5000: green}}
	m := newMatcher(t, writeTemplate(t, red), threeScenes(), opener)

	res, err := m.Match(context.Background(), "video.mp4")
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, StageRanked, res.Stage)
	assert.False(t, res.Fallback)
	assert.Empty(t, res.Failed)
	assert.Len(t, res.Records, 12)

	best := res.Best()
	assert.Equal(t, 2, best.Num)
	assert.Equal(t, 3000.0, best.MidpointMS)
	assert.Equal(t, 1.0, res.Final.Best().AvgRank)

	// Blue and green are equally far from red; the lower scene wins.
	require.Len(t, res.Final.Entries, 3)
	assert.Equal(t, 1, res.Final.Entries[1].SceneNum)
	assert.Equal(t, 3, res.Final.Entries[2].SceneNum)
}

func TestMatchFallbackScene(t *testing.T) {
	detector := &fakeDetector{duration: 10}
	opener := &fakeOpener{frames: map[float64]color.Color{5000: green}}
	m := newMatcher(t, writeTemplate(t, red), detector, opener)

	res, err := m.Match(context.Background(), "video.mp4")
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	require.Len(t, res.Scenes, 1)
	assert.Equal(t, scene.Scene{Num: 1, Start: 0, End: 10, MidpointMS: 5000}, res.Scenes[0])
	assert.Equal(t, 1, res.Scored())
	assert.Equal(t, 1, res.Best().Num)
}

func TestMatchSkipsFailedScene(t *testing.T) {
	opener := &fakeOpener{frames: map[float64]color.Color{1000: red, 5000: blue}}
	m := newMatcher(t, writeTemplate(t, red), threeScenes(), opener)

	res, err := m.Match(context.Background(), "video.mp4")
	require.NoError(t, err)

	var nums []int
	for _, e := range res.Final.Entries {
		nums = append(nums, e.SceneNum)
	}
	assert.ElementsMatch(t, []int{1, 3}, nums)
	_, ok := res.Final.AvgRank(2)
	assert.False(t, ok)

	require.Len(t, res.Failed, 1)
	var sampleErr *scene.SampleError
	require.ErrorAs(t, res.Failed[0], &sampleErr)
	assert.Equal(t, 2, sampleErr.Scene.Num)
	assert.ErrorIs(t, res.Failed[0], scene.ErrNoFrame)
}

func TestMatchTemplateFailureStartsNoWork(t *testing.T) {
	detector := threeScenes()
	opener := &fakeOpener{frames: map[float64]color.Color{1000: red}}
	m := newMatcher(t, filepath.Join(t.TempDir(), "missing.png"), detector, opener)

	_, err := m.Match(context.Background(), "video.mp4")

	var loadErr *reference.TemplateLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Zero(t, detector.calls.Load())
	assert.Zero(t, opener.opens.Load())
}

func TestMatchNoSurvivors(t *testing.T) {
	opener := &fakeOpener{frames: map[float64]color.Color{}}
	m := newMatcher(t, writeTemplate(t, red), threeScenes(), opener)

	_, err := m.Match(context.Background(), "video.mp4")
	assert.ErrorIs(t, err, ErrNoScenesScored)
}

func TestMatchDetectorError(t *testing.T) {
	boom := errors.New("boom")
	detector := &fakeDetector{err: boom}
	m := newMatcher(t, writeTemplate(t, red), detector, &fakeOpener{})

	_, err := m.Match(context.Background(), "video.mp4")
	assert.ErrorIs(t, err, boom)
}

func TestMatchEmptyPath(t *testing.T) {
	m := newMatcher(t, writeTemplate(t, red), threeScenes(), &fakeOpener{})

	_, err := m.Match(context.Background(), "")
	assert.Error(t, err)
}

func TestNewRejectsInvalidHistogramConfig(t *testing.T) {
	cfg := histogram.DefaultConfig()
	cfg.HueBins = 0

	_, err := New(zerolog.Nop(), Config{Histogram: cfg}, threeScenes(), &fakeOpener{})
	assert.Error(t, err)
}

func TestScenes(t *testing.T) {
	m := newMatcher(t, "", threeScenes(), &fakeOpener{})

	scenes, fallback, err := m.Scenes(context.Background(), "video.mp4")
	require.NoError(t, err)
	assert.False(t, fallback)
	require.Len(t, scenes, 3)
	assert.Equal(t, 3, scenes[2].Num)
	assert.Equal(t, 5000.0, scenes[2].MidpointMS)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "sampling", StageSampling.String())
	assert.Equal(t, "scoring", StageScoring.String())
	assert.Equal(t, "ranked", StageRanked.String())
	assert.Equal(t, "stage(7)", Stage(7).String())
}
