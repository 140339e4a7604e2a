// Package diff computes exact pixel differences between two buffers.
package diff

import (
	"errors"
	"image"
	"image/color"
	"runtime"
	"sync"

	"drawpanel/pkg/pixel"
)

// ErrMissingImage is returned when either input buffer is absent.
var ErrMissingImage = errors.New("missing image")

// parallelThreshold is the pixel count above which rows are split across
// workers.
const parallelThreshold = 256 * 256

// Result is the outcome of comparing two buffers.
//
// Width and Height are the element-wise maximum of the inputs' dimensions.
// A coordinate differs when the two ARGB values there, with pixels outside
// an input's own extent read as 0, are not bit-identical.
type Result struct {
	Width  int
	Height int
	Count  int
	mask   []bool
}

// Compute compares a and b. There is no tolerance: only bit-identical
// pixels match. Compute is deterministic and does not modify its inputs.
func Compute(a, b *pixel.Buffer) (*Result, error) {
	if a == nil || b == nil {
		return nil, ErrMissingImage
	}
	w := max(a.Width(), b.Width())
	h := max(a.Height(), b.Height())
	r := &Result{Width: w, Height: h, mask: make([]bool, w*h)}

	workers := 1
	if w*h >= parallelThreshold {
		workers = min(runtime.NumCPU(), h)
	}
	if workers <= 1 {
		r.Count = compareRows(a, b, r.mask, w, 0, h)
		return r, nil
	}

	counts := make([]int, workers)
	rowsPer := (h + workers - 1) / workers
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		y0 := i * rowsPer
		y1 := min(y0+rowsPer, h)
		if y0 >= y1 {
			continue
		}
		wg.Add(1)
		go func(i, y0, y1 int) {
			defer wg.Done()
			counts[i] = compareRows(a, b, r.mask, w, y0, y1)
		}(i, y0, y1)
	}
	wg.Wait()
	for _, c := range counts {
		r.Count += c
	}
	return r, nil
}

// compareRows fills mask for rows [y0, y1) and returns the mismatch count.
func compareRows(a, b *pixel.Buffer, mask []bool, w, y0, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		row := mask[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			// ARGB reads outside a buffer's extent return 0, which is the
			// zero-fill rule.
			if a.ARGB(x, y) != b.ARGB(x, y) {
				row[x] = true
				n++
			}
		}
	}
	return n
}

// Differs reports whether (x, y) is in the mismatch set.
func (r *Result) Differs(x, y int) bool {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return false
	}
	return r.mask[y*r.Width+x]
}

// Total returns the number of compared coordinates.
func (r *Result) Total() int { return r.Width * r.Height }

// Percent returns the share of differing coordinates in [0, 100].
func (r *Result) Percent() float64 {
	if r.Total() == 0 {
		return 0
	}
	return float64(r.Count) / float64(r.Total()) * 100
}

// Points lists the differing coordinates in row-major order.
func (r *Result) Points() []image.Point {
	pts := make([]image.Point, 0, r.Count)
	for i, d := range r.mask {
		if d {
			pts = append(pts, image.Point{X: i % r.Width, Y: i / r.Width})
		}
	}
	return pts
}

// Mask returns the mismatch set as an alpha image: 0xff where the inputs
// differ, 0 elsewhere. Useful as a mask for image/draw.
func (r *Result) Mask() *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, r.Width, r.Height))
	for i, d := range r.mask {
		if d {
			m.Pix[i] = 0xff
		}
	}
	return m
}

// Paint sets every differing coordinate of dst to c. Coordinates outside
// dst are skipped.
func (r *Result) Paint(dst *image.RGBA, c color.Color) {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	b := dst.Bounds()
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			if !r.mask[y*r.Width+x] {
				continue
			}
			p := image.Point{X: b.Min.X + x, Y: b.Min.Y + y}
			if p.In(b) {
				dst.SetRGBA(p.X, p.Y, rgba)
			}
		}
	}
}
