// Package scene models detected video scenes and samples one frame from each.
package scene

import (
	"errors"
	"fmt"
)

// ErrEmptySceneList marks a detector result with no scenes. It is handled
// by FromBoundaries and never returned to callers.
var ErrEmptySceneList = errors.New("scene list is empty")

// Boundary is a detected scene interval in seconds.
type Boundary struct {
	Start float64
	End   float64
}

// Scene is a numbered, time-bounded section of a video.
type Scene struct {
	Num        int     `yaml:"scene_num"`
	Start      float64 `yaml:"start"`
	End        float64 `yaml:"end"`
	MidpointMS float64 `yaml:"midpoint_ms"`
}

// New builds scene num spanning [start, end] seconds.
func New(num int, start, end float64) Scene {
	return Scene{
		Num:        num,
		Start:      start,
		End:        end,
		MidpointMS: ((start + end) / 2) * 1000,
	}
}

func (s Scene) String() string {
	return fmt.Sprintf("scene %d [%.3fs-%.3fs] mid=%.2fms", s.Num, s.Start, s.End, s.MidpointMS)
}

// FromBoundaries numbers boundaries from 1 in detector order. When there
// are none, a single scene covering [0, duration] is returned and
// fallback is true, so the result is never empty.
func FromBoundaries(boundaries []Boundary, duration float64) (scenes []Scene, fallback bool) {
	if len(boundaries) == 0 {
		return []Scene{New(1, 0, duration)}, true
	}

	scenes = make([]Scene, 0, len(boundaries))
	for i, b := range boundaries {
		scenes = append(scenes, New(i+1, b.Start, b.End))
	}
	return scenes, false
}

// BoundariesFromCuts turns ascending cut timestamps into consecutive
// intervals ending at duration. Cuts outside (0, duration) are ignored;
// when none remain there are no boundaries.
func BoundariesFromCuts(cuts []float64, duration float64) []Boundary {
	if len(cuts) == 0 {
		return nil
	}

	boundaries := make([]Boundary, 0, len(cuts)+1)
	prev := 0.0
	for _, c := range cuts {
		if c <= prev || c >= duration {
			continue
		}
		boundaries = append(boundaries, Boundary{Start: prev, End: c})
		prev = c
	}
	if len(boundaries) == 0 {
		return nil
	}
	return append(boundaries, Boundary{Start: prev, End: duration})
}
