// Package histogram builds normalized hue/saturation histograms from frames.
package histogram

import (
	"errors"
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

// ErrEmptyFrame is returned for nil or zero-area frames.
var ErrEmptyFrame = errors.New("frame is empty")

// FrameDecodeError reports a frame that could not be turned into a histogram.
type FrameDecodeError struct {
	Err error
}

func (e *FrameDecodeError) Error() string {
	return fmt.Sprintf("frame decode: %v", e.Err)
}

func (e *FrameDecodeError) Unwrap() error {
	return e.Err
}

// Extractor converts frames to min-max normalized hue/saturation histograms.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	config Config
}

// NewExtractor validates cfg and returns an extractor bound to it.
func NewExtractor(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("histogram config: %w", err)
	}
	return &Extractor{config: cfg}, nil
}

// Config returns the extractor's configuration.
func (e *Extractor) Config() Config {
	return e.config
}

// Extract computes the normalized joint hue/saturation histogram of img.
func (e *Extractor) Extract(img image.Image) (*Histogram, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, &FrameDecodeError{Err: ErrEmptyFrame}
	}

	if m := e.config.MaxDimension; m > 0 {
		b := img.Bounds()
		if uint(b.Dx()) > m || uint(b.Dy()) > m {
			img = resize.Thumbnail(m, m, img, resize.Bilinear)
		}
	}

	hist := New(e.config.HueBins, e.config.SatBins)
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			hue, sat := hueSat(uint8(r>>8), uint8(g>>8), uint8(b>>8))

			hi := e.config.HueRange.bin(hue, e.config.HueBins)
			si := e.config.SatRange.bin(sat, e.config.SatBins)
			if hi < 0 || si < 0 {
				continue
			}
			hist.add(hi, si)
		}
	}

	hist.Normalize()
	return hist, nil
}
