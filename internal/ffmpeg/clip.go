package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kikiluvv/scenematch/internal/scene"
	"github.com/kikiluvv/scenematch/pkg/util"
)

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
)

// ClipOptions defines clip extraction parameters
type ClipOptions struct {
	Start        time.Duration
	End          time.Duration
	Output       string
	CopyCodec    bool // If true, use -c copy for fast extraction
	CRF          int  // Quality (0-51, lower = better)
	ProgressFunc ProgressFunc
}

// ExtractClip cuts a segment from a video
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	duration := opts.End - opts.Start
	if duration <= 0 {
		return fmt.Errorf("invalid clip duration: end must be after start")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", duration).
		Bool("copy_codec", opts.CopyCodec).
		Msg("extracting clip")

	args := []string{
		"-ss", util.FormatDuration(opts.Start),
		"-i", input,
		"-t", util.FormatDuration(duration),
	}

	if opts.CopyCodec {
		args = append(args, "-c", "copy")
	} else {
		crf := opts.CRF
		if crf == 0 {
			crf = DefaultCRF
		}
		args = append(args,
			"-c:v", DefaultVideoCodec,
			"-c:a", DefaultAudioCodec,
			"-crf", fmt.Sprintf("%d", crf),
		)
	}

	args = append(args, opts.Output)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("clip extraction")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("clip extraction complete")
	return nil
}

// ExportScene writes the time range of sc to output. Stream copy is fast
// but snaps to keyframes; re-encoding is frame accurate.
func (e *Executor) ExportScene(ctx context.Context, input string, sc scene.Scene, output string, copyCodec bool) error {
	if err := util.EnsureDir(filepath.Dir(output)); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	return e.ExtractClip(ctx, input, ClipOptions{
		Start:     time.Duration(sc.Start * float64(time.Second)),
		End:       time.Duration(sc.End * float64(time.Second)),
		Output:    output,
		CopyCodec: copyCodec,
		ProgressFunc: func(p *Progress) {
			e.logger.Debug().
				Int("frame", p.Frame).
				Str("time", p.Time).
				Str("speed", p.Speed).
				Msg("export progress")
		},
	})
}
