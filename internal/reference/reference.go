// Package reference loads the template image every scene is compared to.
package reference

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kikiluvv/scenematch/internal/histogram"
)

// ErrNotImage is returned when the template file is not a recognised image.
var ErrNotImage = errors.New("file is not an image")

// TemplateLoadError is fatal: without a template nothing can be compared.
type TemplateLoadError struct {
	Path string
	Err  error
}

func (e *TemplateLoadError) Error() string {
	return fmt.Sprintf("load template %q: %v", e.Path, e.Err)
}

func (e *TemplateLoadError) Unwrap() error {
	return e.Err
}

// Reference holds the template histogram. It is built once and only read
// afterwards, so it can be shared between goroutines.
type Reference struct {
	path   string
	width  int
	height int
	hist   *histogram.Histogram
}

// Load reads and decodes the image at path and extracts its histogram.
func Load(path string, extractor *histogram.Extractor) (*Reference, error) {
	if path == "" {
		return nil, &TemplateLoadError{Path: path, Err: errors.New("no template path configured")}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &TemplateLoadError{Path: path, Err: err}
	}

	img, err := Decode(data)
	if err != nil {
		return nil, &TemplateLoadError{Path: path, Err: err}
	}

	hist, err := extractor.Extract(img)
	if err != nil {
		return nil, &TemplateLoadError{Path: path, Err: err}
	}

	b := img.Bounds()
	return &Reference{
		path:   path,
		width:  b.Dx(),
		height: b.Dy(),
		hist:   hist,
	}, nil
}

// Decode sniffs data and decodes it as an image.
func Decode(data []byte) (image.Image, error) {
	if !filetype.IsImage(data) {
		kind, _ := filetype.Match(data)
		return nil, fmt.Errorf("%w (detected %s)", ErrNotImage, kind.MIME.Value)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decode %s image: %w", format, histogram.ErrEmptyFrame)
	}
	return img, nil
}

// Histogram returns the template histogram. Callers must not modify it.
func (r *Reference) Histogram() *histogram.Histogram {
	return r.hist
}

// Path returns the file the template was loaded from.
func (r *Reference) Path() string {
	return r.path
}

// Size returns the template's pixel dimensions.
func (r *Reference) Size() (width, height int) {
	return r.width, r.height
}
