// Package pixel provides the owned 2-D raster that every drawing surface
// and diff session slot is built on.
//
// A Buffer is a width×height grid of 32-bit ARGB values. Its dimensions
// never change after creation. Coordinates outside [0,width)×[0,height)
// are never stored: reads return 0 (fully transparent) and writes are
// dropped.
package pixel

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// ErrInvalidDimension is returned when a buffer is requested with a
// non-positive width or height.
var ErrInvalidDimension = errors.New("invalid dimension")

// Transparent is the zero ARGB value, used to fill outside an image's extent.
const Transparent uint32 = 0

// Buffer is a dense raster of ARGB pixels.
//
// The backing store is an *image.RGBA so drawing libraries can rasterize
// into it directly. A Buffer is not safe for concurrent mutation.
type Buffer struct {
	img *image.RGBA
}

// New allocates a fully transparent buffer.
func New(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimension, width, height)
	}
	return &Buffer{img: image.NewRGBA(image.Rect(0, 0, width, height))}, nil
}

// MustNew is like New but panics on invalid dimensions. Intended for tests
// and fixed-size fixtures.
func MustNew(width, height int) *Buffer {
	b, err := New(width, height)
	if err != nil {
		panic(err)
	}
	return b
}

// FromImage copies src into a new buffer whose origin is src.Bounds().Min.
// Returns nil for an empty image.
func FromImage(src image.Image) *Buffer {
	if src == nil {
		return nil
	}
	r := src.Bounds()
	if r.Empty() {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(img, img.Bounds(), src, r.Min, draw.Src)
	return &Buffer{img: img}
}

// Width returns the number of columns.
func (b *Buffer) Width() int { return b.img.Rect.Dx() }

// Height returns the number of rows.
func (b *Buffer) Height() int { return b.img.Rect.Dy() }

// In reports whether (x, y) is a valid coordinate.
func (b *Buffer) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width() && y < b.Height()
}

// ARGB returns the non-premultiplied 0xAARRGGBB value at (x, y), or
// Transparent when (x, y) is out of range.
func (b *Buffer) ARGB(x, y int) uint32 {
	if !b.In(x, y) {
		return Transparent
	}
	return ToARGB(b.img.RGBAAt(x, y))
}

// SetARGB stores v at (x, y). Out-of-range writes are ignored.
func (b *Buffer) SetARGB(x, y int, v uint32) {
	if !b.In(x, y) {
		return
	}
	b.img.Set(x, y, FromARGB(v))
}

// Set stores c at (x, y). Out-of-range writes are ignored.
func (b *Buffer) Set(x, y int, c color.Color) {
	if !b.In(x, y) {
		return
	}
	b.img.Set(x, y, c)
}

// Fill sets every pixel to c.
func (b *Buffer) Fill(c color.Color) {
	draw.Draw(b.img, b.img.Rect, image.NewUniform(c), image.Point{}, draw.Src)
}

// RGBA exposes the backing image. Writes through it mutate the buffer.
func (b *Buffer) RGBA() *image.RGBA { return b.img }

// Clone returns an independent copy.
func (b *Buffer) Clone() *Buffer {
	img := image.NewRGBA(b.img.Rect)
	copy(img.Pix, b.img.Pix)
	return &Buffer{img: img}
}

// CopyInto copies the pixels into dst, which must have the same bounds.
func (b *Buffer) CopyInto(dst *image.RGBA) {
	copy(dst.Pix, b.img.Pix)
}

// Flatten composes the buffer over an opaque background and returns a new
// image. Buffer pixels win wherever they are non-transparent.
func (b *Buffer) Flatten(bg color.Color) *image.RGBA {
	return FlattenImage(b.img, bg)
}

// FlattenImage composes src over a solid background of the same size.
func FlattenImage(src image.Image, bg color.Color) *image.RGBA {
	r := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Rect, image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Rect, src, r.Min, draw.Over)
	return dst
}

// ColorModel implements image.Image.
func (b *Buffer) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (b *Buffer) Bounds() image.Rectangle { return b.img.Rect }

// At implements image.Image.
func (b *Buffer) At(x, y int) color.Color { return b.img.At(x, y) }

// ToARGB packs c into a non-premultiplied 0xAARRGGBB value.
func ToARGB(c color.Color) uint32 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return uint32(n.A)<<24 | uint32(n.R)<<16 | uint32(n.G)<<8 | uint32(n.B)
}

// FromARGB unpacks a 0xAARRGGBB value.
func FromARGB(v uint32) color.NRGBA {
	return color.NRGBA{
		A: uint8(v >> 24),
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}
}
