package ffmpeg

import (
	"io"
	"time"
)

// Config configures the ffmpeg executor
type Config struct {
	// BinaryPath overrides the ffmpeg lookup; ffprobe is expected next to it
	BinaryPath string
	Threads    int
	// SceneThreshold is the scene-change score (0-1) above which a frame
	// starts a new scene
	SceneThreshold float64
}

// DefaultSceneThreshold matches the content-aware detector's sensitivity
// on broadcast footage
const DefaultSceneThreshold = 0.3

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	Bitrate    int64
	VideoCodec string
	HasAudio   bool
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
type ProgressFunc func(*Progress)

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
	// Stdout receives raw output when set; otherwise stdout lines go to LogHandler
	Stdout io.Writer
}
