package scene

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrNoFrame is the decoder's definite "no frame at this timestamp" signal.
var ErrNoFrame = errors.New("no frame at timestamp")

// FrameSource decodes frames from one opened video. A source is stateful
// and must only be used by one goroutine at a time.
type FrameSource interface {
	FrameAt(ctx context.Context, ms float64) (image.Image, error)
	Close() error
}

// FrameOpener opens an independent FrameSource for a video.
type FrameOpener interface {
	Open(ctx context.Context, videoPath string) (FrameSource, error)
}

// SampleError reports a scene whose midpoint frame could not be obtained.
type SampleError struct {
	Scene Scene
	Err   error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("scene %d at %.2fms: %v", e.Scene.Num, e.Scene.MidpointMS, e.Err)
}

func (e *SampleError) Unwrap() error {
	return e.Err
}

// Sample is the outcome of sampling one scene. Exactly one of Frame and
// Err is set. Index is the scene's position in the input slice.
type Sample struct {
	Index int
	Scene Scene
	Frame image.Image
	Err   error
}

// Sampler fetches the midpoint frame of each scene using a pool of
// workers, each with its own FrameSource.
type Sampler struct {
	logger  zerolog.Logger
	opener  FrameOpener
	workers int
}

// NewSampler creates a sampler. workers <= 0 uses GOMAXPROCS.
func NewSampler(logger zerolog.Logger, opener FrameOpener, workers int) *Sampler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Sampler{
		logger:  logger.With().Str("component", "sampler").Logger(),
		opener:  opener,
		workers: workers,
	}
}

// Each samples every scene and calls handle once per scene from the worker
// that sampled it. handle may run concurrently with itself. Each returns
// only when all scenes are handled or ctx is done. A worker whose source
// fails to open takes no scenes; scenes fail with the open error only when
// no worker could open a source.
func (s *Sampler) Each(ctx context.Context, videoPath string, scenes []Scene, handle func(Sample)) error {
	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range scenes {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := min(s.workers, len(scenes))
	var pool workerPool
	pool.alive.Store(int32(workers))
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			return s.work(gctx, videoPath, scenes, jobs, handle, &pool)
		})
	}

	return g.Wait()
}

// workerPool counts workers that still hold a usable frame source.
type workerPool struct {
	alive atomic.Int32
}

func (s *Sampler) work(ctx context.Context, videoPath string, scenes []Scene, jobs <-chan int, handle func(Sample), pool *workerPool) error {
	src, err := s.opener.Open(ctx, videoPath)
	if err != nil {
		s.logger.Warn().Err(err).Str("video", videoPath).Msg("failed to open frame source")
		// Leave the queue to workers that opened. The last one to fail
		// marks every remaining scene as failed.
		if pool.alive.Add(-1) > 0 {
			return nil
		}
		return drain(ctx, scenes, jobs, handle, err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("closing frame source")
		}
	}()

	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}

		sc := scenes[i]
		sample := Sample{Index: i, Scene: sc}
		frame, err := src.FrameAt(ctx, sc.MidpointMS)
		switch {
		case err == nil && frame == nil:
			sample.Err = &SampleError{Scene: sc, Err: ErrNoFrame}
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sample.Err = &SampleError{Scene: sc, Err: err}
		default:
			sample.Frame = frame
			s.logger.Debug().
				Int("scene", sc.Num).
				Float64("midpoint_ms", sc.MidpointMS).
				Msg("extracted frame")
		}
		handle(sample)
	}
	return nil
}

// drain fails every queued scene with openErr.
func drain(ctx context.Context, scenes []Scene, jobs <-chan int, handle func(Sample), openErr error) error {
	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		sc := scenes[i]
		handle(Sample{Index: i, Scene: sc, Err: &SampleError{Scene: sc, Err: openErr}})
	}
	return nil
}
