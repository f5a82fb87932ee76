package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/kikiluvv/scenematch/internal/histogram"
	"github.com/kikiluvv/scenematch/internal/scene"
	"github.com/kikiluvv/scenematch/pkg/util"
)

// ExtractFrame decodes the single frame shown at timestamp. It returns
// scene.ErrNoFrame when ffmpeg produces no picture there.
func (e *Executor) ExtractFrame(ctx context.Context, input string, timestamp time.Duration) (image.Image, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}

	var stdout bytes.Buffer
	opts := RunOptions{
		Args: []string{
			"-ss", util.FormatDuration(timestamp),
			"-i", input,
			"-an",
			"-frames:v", "1",
			"-f", "image2pipe",
			"-vcodec", "png",
			"pipe:1",
		},
		Stdout: &stdout,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("frame extraction")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if stdout.Len() == 0 {
			return nil, fmt.Errorf("%w: %v", scene.ErrNoFrame, err)
		}
		return nil, err
	}
	if stdout.Len() == 0 {
		return nil, scene.ErrNoFrame
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, &histogram.FrameDecodeError{Err: err}
	}
	return img, nil
}

// Open probes the video and returns a handle that seeks by timestamp.
// Every handle owns its ffmpeg invocations, so handles can be used from
// different goroutines at once.
func (e *Executor) Open(ctx context.Context, videoPath string) (scene.FrameSource, error) {
	duration, err := e.Duration(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", videoPath, err)
	}
	return &videoSource{exec: e, path: videoPath, durationMS: duration * 1000}, nil
}

type videoSource struct {
	exec       *Executor
	path       string
	durationMS float64
	closed     bool
}

func (v *videoSource) FrameAt(ctx context.Context, ms float64) (image.Image, error) {
	if v.closed {
		return nil, fmt.Errorf("frame source for %s is closed", v.path)
	}
	if ms < 0 || ms >= v.durationMS {
		return nil, scene.ErrNoFrame
	}
	return v.exec.ExtractFrame(ctx, v.path, time.Duration(ms*float64(time.Millisecond)))
}

func (v *videoSource) Close() error {
	v.closed = true
	return nil
}
