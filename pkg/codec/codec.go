// Package codec reads and writes pixel buffers as lossless raster files.
//
// The format is chosen from the file extension. Encoding always flattens
// the image against an explicit background first, so files carry no
// transparency beyond what the background bakes in.
package codec

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"drawpanel/pkg/logx"
	"drawpanel/pkg/pixel"
)

var (
	// ErrUnsupportedFormat means the path's extension names no known format.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrImageLoad wraps any failure to turn a file into a buffer.
	ErrImageLoad = errors.New("image load failure")
	// ErrIO wraps write failures during export.
	ErrIO = errors.New("i/o failure")
)

// Format describes one raster encoding.
type Format struct {
	Name   string
	Exts   []string
	Encode func(w io.Writer, img image.Image) error
	Decode func(r io.Reader) (image.Image, error)
}

var formats = []Format{
	{
		Name:   "png",
		Exts:   []string{".png"},
		Encode: png.Encode,
		Decode: png.Decode,
	},
	{
		Name:   "bmp",
		Exts:   []string{".bmp"},
		Encode: bmp.Encode,
		Decode: bmp.Decode,
	},
	{
		Name: "tiff",
		Exts: []string{".tif", ".tiff"},
		Encode: func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		},
		Decode: tiff.Decode,
	},
}

// FormatFor returns the format selected by path's extension.
func FormatFor(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range formats {
		for _, e := range f.Exts {
			if e == ext {
				return f, nil
			}
		}
	}
	if ext == "" {
		ext = "(none)"
	}
	return Format{}, fmt.Errorf("%w: extension %s", ErrUnsupportedFormat, ext)
}

// Supported reports whether path has a known raster extension.
func Supported(path string) bool {
	_, err := FormatFor(path)
	return err == nil
}

// Extensions lists every recognized extension, in registration order.
func Extensions() []string {
	var out []string
	for _, f := range formats {
		out = append(out, f.Exts...)
	}
	return out
}

// Save flattens img against bg and writes it to path.
//
// The file is written to a temporary sibling and renamed into place, so a
// failed export never leaves a truncated file behind or clobbers an
// existing one.
func Save(path string, img image.Image, bg color.Color) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}
	flat := pixel.FlattenImage(img, bg)

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	tmpName := tmp.Name()
	// CreateTemp uses 0600; exports should look like any other written file.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := f.Encode(tmp, flat); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: encoding %s: %w", ErrIO, f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	logx.Logger().Debug("image saved", "path", path, "format", f.Name,
		"width", flat.Rect.Dx(), "height", flat.Rect.Dy())
	return nil
}

// Load decodes the file at path into a new buffer. Every failure wraps
// ErrImageLoad together with its cause.
func Load(path string) (*pixel.Buffer, error) {
	f, err := FormatFor(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageLoad, err)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageLoad, err)
	}
	defer file.Close()
	return decode(file, f)
}

// Decode reads an image of the format implied by name from r.
func Decode(r io.Reader, name string) (*pixel.Buffer, error) {
	f, err := FormatFor(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageLoad, err)
	}
	return decode(r, f)
}

func decode(r io.Reader, f Format) (*pixel.Buffer, error) {
	img, err := f.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrImageLoad, f.Name, err)
	}
	buf := pixel.FromImage(img)
	if buf == nil {
		return nil, fmt.Errorf("%w: empty %s image", ErrImageLoad, f.Name)
	}
	return buf, nil
}
