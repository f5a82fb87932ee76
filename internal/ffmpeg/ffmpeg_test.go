package ffmpeg

import (
	"context"
	"errors"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/scenematch/internal/scene"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

// generateTwoSceneVideo writes a 4s clip: 2s solid red then 2s solid blue
func generateTwoSceneVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "two_scenes.mp4")
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "color=c=red:s=160x120:r=25:d=2",
		"-f", "lavfi", "-i", "color=c=blue:s=160x120:r=25:d=2",
		"-filter_complex", "[0:v][1:v]concat=n=2:v=1[out]",
		"-map", "[out]", "-pix_fmt", "yuv420p", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not generate test video: %v\n%s", err, out)
	}
	return path
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).Level(zerolog.InfoLevel)
	exec, err := New(logger, Config{Threads: 2})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	return exec
}

func TestFilterBuilder(t *testing.T) {
	got := NewFilterBuilder().SceneSelect(0.3).ShowInfo().Build()
	want := "select='gt(scene,0.300000)',showinfo"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFilterBuilderInvalidThreshold(t *testing.T) {
	if got := NewFilterBuilder().SceneSelect(0).Build(); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	if got := NewFilterBuilder().SceneSelect(1.5).ShowInfo().Build(); got != "showinfo" {
		t.Errorf("expected showinfo only, got %q", got)
	}
}

func TestParseSceneOutput(t *testing.T) {
	output := strings.Join([]string{
		"[Parsed_showinfo_1 @ 0x7f] n:   0 pts:  51200 pts_time:4.0     duration:512",
		"frame=   2 fps=0.0 q=-0.0 size=N/A",
		"[Parsed_showinfo_1 @ 0x7f] n:   1 pts:  25600 pts_time:2.04    duration:512",
		"[Parsed_showinfo_1 @ 0x7f] n:   2 pts:  25600 pts_time:2.04    duration:512",
		"[Parsed_showinfo_1 @ 0x7f] pts_time:",
		"progress=end",
	}, "\n")

	got := parseSceneOutput(output)
	want := []float64{2.04, 4.0}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cut %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestParseProbeOutput(t *testing.T) {
	output := []byte(`{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720, "r_frame_rate": "60000/1001"}
		],
		"format": {"duration": "10.010000", "bit_rate": "2500000"}
	}`)

	info, err := parseProbeOutput("clip.mp4", output)
	if err != nil {
		t.Fatalf("parseProbeOutput failed: %v", err)
	}
	if info.Width != 1280 || info.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", info.Width, info.Height)
	}
	if info.Duration != 10010*time.Millisecond {
		t.Errorf("unexpected duration %v", info.Duration)
	}
	if !info.HasAudio {
		t.Error("expected audio stream")
	}
	if info.VideoCodec != "h264" {
		t.Errorf("unexpected codec %q", info.VideoCodec)
	}

	if _, err := parseProbeOutput("audio.m4a", []byte(`{"streams":[{"codec_type":"audio"}],"format":{}}`)); err == nil {
		t.Error("expected error for file without video stream")
	}
	if _, err := parseProbeOutput("bad", []byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestStreamOutputProgress(t *testing.T) {
	e := &Executor{logger: zerolog.Nop()}
	input := "frame=12\nfps=24.5\nbitrate=N/A\nout_time=00:00:00.480000\nspeed=1.2x\nprogress=continue\nframe=0\nprogress=end\n"

	var got []Progress
	var lines int
	e.streamOutput(strings.NewReader(input), func(p *Progress) { got = append(got, *p) }, func(string) { lines++ })

	if lines != 8 {
		t.Errorf("expected 8 log lines, got %d", lines)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 progress update, got %d", len(got))
	}
	if got[0].Frame != 12 || got[0].FPS != 24.5 || got[0].Time != "00:00:00.480000" || got[0].Speed != "1.2x" {
		t.Errorf("unexpected progress %+v", got[0])
	}
}

func TestFrameSourceBeyondDuration(t *testing.T) {
	src := &videoSource{exec: &Executor{logger: zerolog.Nop()}, path: "clip.mp4", durationMS: 4000}

	for _, ms := range []float64{4000, 9000, -1} {
		if _, err := src.FrameAt(context.Background(), ms); !errors.Is(err, scene.ErrNoFrame) {
			t.Errorf("FrameAt(%v): expected ErrNoFrame, got %v", ms, err)
		}
	}

	src.Close()
	if _, err := src.FrameAt(context.Background(), 100); err == nil {
		t.Error("expected error from closed source")
	}
}

func TestDurationProbedOnce(t *testing.T) {
	e := &Executor{logger: zerolog.Nop(), ffprobePath: filepath.Join(t.TempDir(), "no-ffprobe")}

	if _, err := e.Duration(context.Background(), "clip.mp4"); err == nil {
		t.Fatal("expected probe error before the duration is known")
	}

	e.rememberDuration("clip.mp4", 4.5)
	for i := 0; i < 3; i++ {
		d, err := e.Duration(context.Background(), "clip.mp4")
		if err != nil {
			t.Fatalf("Duration: %v", err)
		}
		if d != 4.5 {
			t.Errorf("expected 4.5s, got %v", d)
		}
	}

	src, err := e.Open(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("Open should reuse the known duration: %v", err)
	}
	if _, err := src.FrameAt(context.Background(), 4500); !errors.Is(err, scene.ErrNoFrame) {
		t.Errorf("expected ErrNoFrame at the end, got %v", err)
	}
}

func TestExecutorCreation(t *testing.T) {
	skipIfNoFFmpeg(t)

	exec := newTestExecutor(t)
	if exec.ffmpegPath == "" {
		t.Error("ffmpeg path is empty")
	}
	if exec.ffprobePath == "" {
		t.Error("ffprobe path is empty")
	}
	if exec.sceneThreshold != DefaultSceneThreshold {
		t.Errorf("expected default threshold, got %v", exec.sceneThreshold)
	}
}

func TestProbeVideoInvalidFile(t *testing.T) {
	skipIfNoFFmpeg(t)

	exec := newTestExecutor(t)
	ctx := context.Background()

	if _, err := exec.ProbeVideo(ctx, "nonexistent.mp4"); err == nil {
		t.Error("ProbeVideo should fail for non-existent file")
	}

	invalidPath := filepath.Join(t.TempDir(), "invalid.txt")
	os.WriteFile(invalidPath, []byte("not a video"), 0644)
	if _, err := exec.ProbeVideo(ctx, invalidPath); err == nil {
		t.Error("ProbeVideo should fail for invalid video file")
	}
}

func TestDetectScenes(t *testing.T) {
	skipIfNoFFmpeg(t)

	video := generateTwoSceneVideo(t)
	exec := newTestExecutor(t)

	start := time.Now()
	boundaries, err := exec.DetectScenes(context.Background(), video)
	if err != nil {
		t.Fatalf("DetectScenes failed: %v", err)
	}
	t.Logf("found %d scenes in %v: %v", len(boundaries), time.Since(start), boundaries)

	if len(boundaries) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(boundaries))
	}
	if cut := boundaries[0].End; cut < 1.8 || cut > 2.2 {
		t.Errorf("expected cut near 2s, got %.3f", cut)
	}
}

func TestExtractFrame(t *testing.T) {
	skipIfNoFFmpeg(t)

	video := generateTwoSceneVideo(t)
	exec := newTestExecutor(t)
	ctx := context.Background()

	src, err := exec.Open(ctx, video)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	frame, err := src.FrameAt(ctx, 3000)
	if err != nil {
		t.Fatalf("FrameAt failed: %v", err)
	}
	if frame.Bounds() != image.Rect(0, 0, 160, 120) {
		t.Errorf("unexpected frame bounds %v", frame.Bounds())
	}
	r, _, b, _ := frame.At(80, 60).RGBA()
	if b>>8 < 200 || r>>8 > 60 {
		t.Errorf("expected a blue frame at 3s, got r=%d b=%d", r>>8, b>>8)
	}

	if _, err := src.FrameAt(ctx, 60000); !errors.Is(err, scene.ErrNoFrame) {
		t.Errorf("expected ErrNoFrame past the end, got %v", err)
	}
}

func TestExportScene(t *testing.T) {
	skipIfNoFFmpeg(t)

	video := generateTwoSceneVideo(t)
	exec := newTestExecutor(t)

	output := filepath.Join(t.TempDir(), "export", "best.mp4")
	if err := exec.ExportScene(context.Background(), video, scene.New(2, 2, 4), output, false); err != nil {
		t.Fatalf("ExportScene failed: %v", err)
	}

	info, err := exec.ProbeVideo(context.Background(), output)
	if err != nil {
		t.Fatalf("probe exported clip: %v", err)
	}
	if d := info.Duration.Seconds(); d < 1.5 || d > 2.5 {
		t.Errorf("expected ~2s clip, got %.2fs", d)
	}
}

func TestExtractClipValidation(t *testing.T) {
	e := &Executor{logger: zerolog.Nop()}
	err := e.ExtractClip(context.Background(), "in.mp4", ClipOptions{Start: time.Second, End: time.Second, Output: "out.mp4"})
	if err == nil {
		t.Error("expected error for zero-length clip")
	}
	err = e.ExtractClip(context.Background(), "in.mp4", ClipOptions{End: time.Second})
	if err == nil {
		t.Error("expected error for missing output")
	}
}
