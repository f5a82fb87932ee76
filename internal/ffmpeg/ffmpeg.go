// Package ffmpeg wraps the ffmpeg and ffprobe binaries: scene detection,
// probing, frame decoding at a timestamp and clip export.
package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger         zerolog.Logger
	ffmpegPath     string
	ffprobePath    string
	threads        int
	sceneThreshold float64

	// probed durations in seconds, keyed by path
	mu        sync.Mutex
	durations map[string]float64
}

// New creates a new ffmpeg executor
func New(logger zerolog.Logger, cfg Config) (*Executor, error) {
	ffmpegPath, ffprobePath, err := lookupBinaries(cfg.BinaryPath)
	if err != nil {
		return nil, err
	}

	threshold := cfg.SceneThreshold
	if threshold <= 0 {
		threshold = DefaultSceneThreshold
	}

	return &Executor{
		logger:         logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:     ffmpegPath,
		ffprobePath:    ffprobePath,
		threads:        cfg.Threads,
		sceneThreshold: threshold,
	}, nil
}

func lookupBinaries(binaryPath string) (string, string, error) {
	if binaryPath == "" || binaryPath == "ffmpeg" {
		ffmpegPath, err := exec.LookPath("ffmpeg")
		if err != nil {
			return "", "", fmt.Errorf("ffmpeg not found in PATH: %w", err)
		}
		ffprobePath, err := exec.LookPath("ffprobe")
		if err != nil {
			return "", "", fmt.Errorf("ffprobe not found in PATH: %w", err)
		}
		return ffmpegPath, ffprobePath, nil
	}

	ffmpegPath, err := exec.LookPath(binaryPath)
	if err != nil {
		return "", "", fmt.Errorf("ffmpeg not found at %s: %w", binaryPath, err)
	}
	probe := filepath.Join(filepath.Dir(ffmpegPath), "ffprobe"+filepath.Ext(ffmpegPath))
	ffprobePath, err := exec.LookPath(probe)
	if err != nil {
		if ffprobePath, err = exec.LookPath("ffprobe"); err != nil {
			return "", "", fmt.Errorf("ffprobe not found: %w", err)
		}
	}
	return ffmpegPath, ffprobePath, nil
}

// Run executes ffmpeg with the given arguments and streams progress
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	// Build args with threads BEFORE other arguments
	baseArgs := []string{"-y", "-hide_banner", "-loglevel", "info"}

	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", fmt.Sprintf("%d", e.threads))
	}

	baseArgs = append(baseArgs, "-progress", "pipe:2")
	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	var stdout io.ReadCloser
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	} else if stdout, err = cmd.StdoutPipe(); err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var wg sync.WaitGroup

	// Stream stderr (progress + logs)
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.streamOutput(stderr, opts.ProgressHandler, opts.LogHandler)
	}()

	if stdout != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scanner := bufio.NewScanner(stdout)
			for scanner.Scan() {
				if opts.LogHandler != nil {
					opts.LogHandler(scanner.Text())
				}
			}
		}()
	}

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// streamOutput parses ffmpeg output and calls handlers
func (e *Executor) streamOutput(r io.Reader, progressHandler ProgressFunc, logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	progressData := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()

		if logHandler != nil {
			logHandler(line)
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "frame":
			fmt.Sscanf(value, "%d", &progressData.Frame)
		case "fps":
			fmt.Sscanf(value, "%f", &progressData.FPS)
		case "bitrate":
			progressData.Bitrate = value
		case "out_time", "time":
			progressData.Time = value
		case "speed":
			progressData.Speed = value
		case "progress":
			// End of progress block
			if progressHandler != nil && progressData.Frame > 0 {
				progressHandler(progressData)
			}
			progressData = &Progress{}
		}
	}
}
