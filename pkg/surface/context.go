package surface

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/fogleman/gg"
)

// DrawContext draws into a surface's buffer.
//
// It carries the current color, line width, font and the anti-aliasing
// flag captured when the surface was created. With anti-aliasing off,
// lines are stepped on whole pixels and rectangles are filled on whole
// pixels; ovals, polygons and text always go through the rasterizer.
type DrawContext struct {
	s         *Surface
	gc        *gg.Context
	color     color.Color
	lineWidth float64
	antialias bool
}

func newDrawContext(s *Surface, antialias bool) *DrawContext {
	d := &DrawContext{
		s:         s,
		gc:        gg.NewContextForRGBA(s.buf.RGBA()),
		color:     color.Black,
		lineWidth: 1,
		antialias: antialias,
	}
	d.gc.SetColor(d.color)
	d.gc.SetLineWidth(d.lineWidth)
	return d
}

// Antialias reports whether shapes are drawn with anti-aliasing.
func (d *DrawContext) Antialias() bool { return d.antialias }

// Width returns the width of the underlying buffer.
func (d *DrawContext) Width() int { return d.s.width }

// Height returns the height of the underlying buffer.
func (d *DrawContext) Height() int { return d.s.height }

// SetColor sets the color used by every following primitive.
func (d *DrawContext) SetColor(c color.Color) {
	d.color = c
	d.gc.SetColor(c)
}

// SetRGB255 sets an opaque color from 0-255 components.
func (d *DrawContext) SetRGB255(r, g, b int) {
	d.SetColor(color.RGBA{uint8(r), uint8(g), uint8(b), 255})
}

// Color returns the current color.
func (d *DrawContext) Color() color.Color { return d.color }

// SetLineWidth sets the stroke width for outlines and lines.
func (d *DrawContext) SetLineWidth(w float64) {
	d.lineWidth = w
	d.gc.SetLineWidth(w)
}

// SetFont selects the face used by DrawString. Unknown families fall back
// to the default sans-serif face.
func (d *DrawContext) SetFont(family string, style FontStyle, size float64) error {
	face, err := loadFace(family, style, size)
	if err != nil {
		return err
	}
	d.gc.SetFontFace(face)
	return nil
}

// MeasureString returns the advance width and height of s in the current
// font.
func (d *DrawContext) MeasureString(s string) (w, h float64) {
	return d.gc.MeasureString(s)
}

// Clear fills the whole buffer with the current color, replacing what
// was there.
func (d *DrawContext) Clear() {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.s.buf.Fill(d.color)
}

// SetPixel blends the current color into one pixel.
func (d *DrawContext) SetPixel(x, y int) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.blendRect(image.Rect(x, y, x+1, y+1))
}

// DrawLine strokes a line from (x1, y1) to (x2, y2).
func (d *DrawContext) DrawLine(x1, y1, x2, y2 float64) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if !d.antialias {
		d.stepLine(round(x1), round(y1), round(x2), round(y2))
		return
	}
	d.gc.DrawLine(x1+0.5, y1+0.5, x2+0.5, y2+0.5)
	d.gc.Stroke()
}

// FillRect fills the rectangle with top-left (x, y) and size w×h.
func (d *DrawContext) FillRect(x, y, w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if !d.antialias {
		d.blendRect(image.Rect(round(x), round(y), round(x+w), round(y+h)))
		return
	}
	d.gc.DrawRectangle(x, y, w, h)
	d.gc.Fill()
}

// DrawRect outlines the rectangle spanning (x, y) to (x+w, y+h)
// inclusive.
func (d *DrawContext) DrawRect(x, y, w, h float64) {
	if w < 0 || h < 0 {
		return
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if !d.antialias {
		x0, y0, x1, y1 := round(x), round(y), round(x+w), round(y+h)
		d.stepLine(x0, y0, x1, y0)
		d.stepLine(x1, y0+1, x1, y1)
		d.stepLine(x1-1, y1, x0, y1)
		d.stepLine(x0, y1-1, x0, y0+1)
		return
	}
	d.gc.DrawRectangle(x+0.5, y+0.5, w, h)
	d.gc.Stroke()
}

// FillOval fills the ellipse inscribed in the given bounding box.
func (d *DrawContext) FillOval(x, y, w, h float64) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.gc.DrawEllipse(x+w/2, y+h/2, w/2, h/2)
	d.gc.Fill()
}

// DrawOval outlines the ellipse inscribed in the given bounding box.
func (d *DrawContext) DrawOval(x, y, w, h float64) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.gc.DrawEllipse(x+w/2+0.5, y+h/2+0.5, w/2, h/2)
	d.gc.Stroke()
}

// FillPolygon fills the closed polygon through the given vertices. Extra
// coordinates in the longer slice are ignored.
func (d *DrawContext) FillPolygon(xs, ys []float64) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if d.polygonPath(xs, ys, 0) {
		d.gc.Fill()
	}
}

// DrawPolygon outlines the closed polygon through the given vertices.
func (d *DrawContext) DrawPolygon(xs, ys []float64) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if d.polygonPath(xs, ys, 0.5) {
		d.gc.Stroke()
	}
}

// DrawString draws text with its baseline starting at (x, y).
func (d *DrawContext) DrawString(s string, x, y float64) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.gc.DrawString(s, x, y)
}

// DrawImage draws img with its top-left corner at (x, y).
func (d *DrawContext) DrawImage(img image.Image, x, y int) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	r := img.Bounds()
	dst := image.Rect(x, y, x+r.Dx(), y+r.Dy())
	draw.Draw(d.s.buf.RGBA(), dst, img, r.Min, draw.Over)
}

func (d *DrawContext) polygonPath(xs, ys []float64, offset float64) bool {
	n := min(len(xs), len(ys))
	if n < 2 {
		return false
	}
	d.gc.NewSubPath()
	d.gc.MoveTo(xs[0]+offset, ys[0]+offset)
	for i := 1; i < n; i++ {
		d.gc.LineTo(xs[i]+offset, ys[i]+offset)
	}
	d.gc.ClosePath()
	return true
}

// blendRect composites the current color over r, clipped to the buffer.
func (d *DrawContext) blendRect(r image.Rectangle) {
	img := d.s.buf.RGBA()
	r = r.Intersect(img.Rect)
	if r.Empty() {
		return
	}
	draw.Draw(img, r, image.NewUniform(d.color), image.Point{}, draw.Over)
}

// stepLine draws a one-pixel line between integer endpoints using
// Bresenham's algorithm.
func (d *DrawContext) stepLine(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		d.blendRect(image.Rect(x0, y0, x0+1, y0+1))
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func round(v float64) int { return int(math.Floor(v + 0.5)) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
