package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kikiluvv/scenematch/internal/scene"
)

// DetectScenes splits the video into scenes at ffmpeg scene-change cuts.
// A video without cuts yields no boundaries.
func (e *Executor) DetectScenes(ctx context.Context, input string) ([]scene.Boundary, error) {
	duration, err := e.Duration(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}

	cuts, err := e.detectCuts(ctx, input)
	if err != nil {
		return nil, err
	}

	boundaries := scene.BoundariesFromCuts(cuts, duration)
	e.logger.Info().
		Int("cuts", len(cuts)).
		Int("scenes", len(boundaries)).
		Float64("duration", duration).
		Msg("scene detection complete")
	return boundaries, nil
}

// detectCuts finds scene change timestamps in seconds using ffmpeg scene detection
func (e *Executor) detectCuts(ctx context.Context, input string) ([]float64, error) {
	e.logger.Info().
		Str("input", input).
		Float64("threshold", e.sceneThreshold).
		Msg("detecting scene changes")

	var stderrBuf bytes.Buffer
	var mu sync.Mutex

	opts := RunOptions{
		Args: []string{
			"-i", input,
			"-an",
			"-vf", NewFilterBuilder().SceneSelect(e.sceneThreshold).ShowInfo().Build(),
			"-f", "null",
			"-",
		},
		LogHandler: func(line string) {
			mu.Lock()
			stderrBuf.WriteString(line + "\n")
			mu.Unlock()
		},
	}

	err := e.Run(ctx, opts)

	mu.Lock()
	output := stderrBuf.String()
	mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !strings.Contains(output, "Output file is empty") {
			e.logger.Debug().Str("stderr", output).Msg("scene detection output")
			return nil, fmt.Errorf("scene detection failed: %w", err)
		}
	}

	return parseSceneOutput(output), nil
}

// parseSceneOutput extracts ascending, de-duplicated pts_time values from showinfo lines
func parseSceneOutput(output string) []float64 {
	var cuts []float64
	seen := make(map[float64]bool)

	for _, line := range strings.Split(output, "\n") {
		_, rest, ok := strings.Cut(line, "pts_time:")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		seconds, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || seen[seconds] {
			continue
		}
		seen[seconds] = true
		cuts = append(cuts, seconds)
	}

	sort.Float64s(cuts)
	return cuts
}
