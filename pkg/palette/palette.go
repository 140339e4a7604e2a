// Package palette provides named colors and immutable color sequences.
//
// A Palette never changes after construction. Effects that cycle through
// a palette keep their own Rotation, so several effects can share one
// palette without sharing mutable state.
package palette

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Named colors, matching the classic AWT constants.
var named = map[string]color.RGBA{
	"black":     {0, 0, 0, 255},
	"blue":      {0, 0, 255, 255},
	"cyan":      {0, 255, 255, 255},
	"darkgray":  {64, 64, 64, 255},
	"gray":      {128, 128, 128, 255},
	"green":     {0, 255, 0, 255},
	"lightgray": {192, 192, 192, 255},
	"magenta":   {255, 0, 255, 255},
	"orange":    {255, 200, 0, 255},
	"pink":      {255, 175, 175, 255},
	"red":       {255, 0, 0, 255},
	"white":     {255, 255, 255, 255},
	"yellow":    {255, 255, 0, 255},
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "", "-", "", " ", "", "grey", "gray").Replace(name)
}

// Lookup returns the named color, accepting forms such as "DARK_GRAY" and
// "dark-grey".
func Lookup(name string) (color.RGBA, bool) {
	c, ok := named[normalize(name)]
	return c, ok
}

// Names lists the known color names in sorted order.
func Names() []string {
	out := make([]string, 0, len(named))
	for n := range named {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Parse accepts a color name or a "#rgb"/"#rrggbb" hex string.
func Parse(s string) (color.RGBA, error) {
	if c, ok := Lookup(s); ok {
		return c, nil
	}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parsing color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{r, g, b, 255}, nil
}

// Hex formats c as "#rrggbb", ignoring alpha.
func Hex(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	cf := colorful.Color{R: float64(n.R) / 255, G: float64(n.G) / 255, B: float64(n.B) / 255}
	return cf.Hex()
}

// Palette is an immutable ordered sequence of colors.
type Palette struct {
	colors []color.Color
}

// New copies colors into a palette.
func New(colors ...color.Color) Palette {
	return Palette{colors: append([]color.Color(nil), colors...)}
}

// Len returns the number of colors.
func (p Palette) Len() int { return len(p.colors) }

// At returns color i, wrapping around in both directions. An empty
// palette yields transparent.
func (p Palette) At(i int) color.Color {
	n := len(p.colors)
	if n == 0 {
		return color.Transparent
	}
	return p.colors[((i%n)+n)%n]
}

// Colors returns a copy of the sequence.
func (p Palette) Colors() []color.Color {
	return append([]color.Color(nil), p.colors...)
}

// Rotation starts an independent cursor at index start.
func (p Palette) Rotation(start int) *Rotation {
	return &Rotation{p: p, index: start}
}

// Rotation is per-effect state walking a palette.
type Rotation struct {
	p     Palette
	index int
}

// Current returns the color at the cursor.
func (r *Rotation) Current() color.Color { return r.p.At(r.index) }

// Next advances the cursor and returns the new current color.
func (r *Rotation) Next() color.Color {
	r.index++
	if n := r.p.Len(); n > 0 {
		r.index %= n
	}
	return r.Current()
}

// Index returns the cursor position.
func (r *Rotation) Index() int { return r.index }

// Lights is the six-color string-light palette used by the holiday scene
// examples.
var Lights = New(
	color.RGBA{255, 254, 201, 255},
	color.RGBA{255, 154, 24, 255},
	color.RGBA{255, 0, 0, 255},
	color.RGBA{255, 17, 199, 255},
	color.RGBA{0, 255, 111, 255},
	color.RGBA{200, 23, 43, 255},
)
