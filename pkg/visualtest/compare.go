// Package visualtest decides whether a rendered image passes against a
// reference when small rendering differences are acceptable.
//
// diff.Compute answers "which pixels differ"; Compare answers "is this
// close enough", allowing per-channel tolerance, small positional shifts
// and a budget of differing pixels.
package visualtest

import (
	"fmt"
	"image"

	"drawpanel/pkg/codec"
	"drawpanel/pkg/diff"
	"drawpanel/pkg/pixel"
)

// Result summarizes a tolerant comparison.
type Result struct {
	Match           bool
	DifferentPixels int
	TotalPixels     int
	MaxDifference   int // largest channel difference seen
}

// Options relaxes exact comparison. The zero value compares exactly.
type Options struct {
	// Tolerance is the largest per-channel difference (0-255) still
	// counted as equal.
	Tolerance int
	// FuzzyRadius lets a pixel match any reference pixel within this many
	// pixels in each direction.
	FuzzyRadius int
	// MaxDifferentPercent passes the comparison when at most this share of
	// pixels differ.
	MaxDifferentPercent float64
}

// Exact reports whether o accepts only identical images.
func (o Options) Exact() bool {
	return o.Tolerance <= 0 && o.FuzzyRadius <= 0 && o.MaxDifferentPercent <= 0
}

// Compare checks actual against expected. Pixels outside an image count as
// transparent, as in diff.Compute.
func Compare(actual, expected *pixel.Buffer, opts Options) (*Result, error) {
	if actual == nil || expected == nil {
		return nil, diff.ErrMissingImage
	}
	w := max(actual.Width(), expected.Width())
	h := max(actual.Height(), expected.Height())
	bounds := image.Rect(0, 0, w, h)

	result := &Result{Match: true, TotalPixels: w * h}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := channelDiff(actual.ARGB(x, y), expected.ARGB(x, y))
			if d > result.MaxDifference {
				result.MaxDifference = d
			}
			if d <= opts.Tolerance {
				continue
			}
			if opts.FuzzyRadius > 0 && fuzzyMatch(actual, expected, x, y, opts, bounds) {
				continue
			}
			result.Match = false
			result.DifferentPixels++
		}
	}

	if !result.Match && opts.MaxDifferentPercent > 0 && result.TotalPixels > 0 {
		pct := float64(result.DifferentPixels) / float64(result.TotalPixels) * 100
		if pct <= opts.MaxDifferentPercent {
			result.Match = true
		}
	}
	return result, nil
}

// CompareFiles loads both images and compares them.
func CompareFiles(actualPath, expectedPath string, opts Options) (*Result, error) {
	actual, err := codec.Load(actualPath)
	if err != nil {
		return nil, fmt.Errorf("actual image: %w", err)
	}
	expected, err := codec.Load(expectedPath)
	if err != nil {
		return nil, fmt.Errorf("expected image: %w", err)
	}
	return Compare(actual, expected, opts)
}

// fuzzyMatch reports whether actual's pixel at (x, y) is within tolerance
// of any expected pixel in the radius.
func fuzzyMatch(actual, expected *pixel.Buffer, x, y int, opts Options, bounds image.Rectangle) bool {
	v := actual.ARGB(x, y)
	r := opts.FuzzyRadius
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			p := image.Pt(x+dx, y+dy)
			if !p.In(bounds) {
				continue
			}
			if channelDiff(v, expected.ARGB(p.X, p.Y)) <= opts.Tolerance {
				return true
			}
		}
	}
	return false
}

// channelDiff is the largest absolute difference across the four
// channels of two ARGB values.
func channelDiff(a, b uint32) int {
	d := 0
	for shift := 0; shift < 32; shift += 8 {
		ca := int(a>>shift) & 0xff
		cb := int(b>>shift) & 0xff
		d = max(d, absInt(ca-cb))
	}
	return d
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
