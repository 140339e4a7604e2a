// Package session holds the interactive state of an image comparison.
//
// A Session owns up to two images, a blend opacity and a highlight
// setting. The exact pixel diff is recomputed only when an image is set or
// replaced; opacity and highlight changes only re-render. Render and
// ExportComposite always see the diff for the current pair of images.
package session

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"sync"

	"drawpanel/pkg/codec"
	"drawpanel/pkg/diff"
	"drawpanel/pkg/logx"
	"drawpanel/pkg/pixel"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

const (
	// DefaultOpacity is the initial blend of image B over image A.
	DefaultOpacity = 50
	// DefaultLabelA and DefaultLabelB name images that did not come from
	// a file.
	DefaultLabelA = "Expected"
	DefaultLabelB = "Actual"
)

var (
	// DefaultHighlightColor paints differing pixels.
	DefaultHighlightColor color.Color = color.RGBA{255, 228, 0, 255}
	// DefaultBackground fills the area no image covers.
	DefaultBackground color.Color = color.RGBA{238, 238, 238, 255}
)

// State is the session's position in its lifecycle.
type State int

const (
	Idle State = iota
	Partial
	Ready
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Partial:
		return "partial"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Slot names one of the two compared images.
type Slot int

const (
	SlotA Slot = iota
	SlotB
)

func (s Slot) String() string {
	if s == SlotA {
		return "A"
	}
	return "B"
}

// Change describes a state change delivered to listeners.
type Change struct {
	State State
	// Recomputed is true when the diff was recomputed, which happens only
	// when an image was set.
	Recomputed bool
}

// Listener is called after every change, outside the session lock.
type Listener func(Change)

// Option configures New.
type Option func(*Session)

// WithBackground sets the fill for areas no image covers. It should be
// opaque.
func WithBackground(c color.Color) Option {
	return func(s *Session) { s.background = c }
}

// WithOpacity sets the initial opacity, clamped to [0, 100].
func WithOpacity(v int) Option {
	return func(s *Session) { s.opacity = clampOpacity(v) }
}

// WithHighlight sets the initial highlight toggle and color.
func WithHighlight(on bool, c color.Color) Option {
	return func(s *Session) {
		s.highlight = on
		if c != nil {
			s.highlightColor = c
		}
	}
}

// Session compares two images.
//
// Methods are safe to call from several goroutines, but controls are
// meant to be driven from the UI goroutine.
type Session struct {
	mu             sync.Mutex
	a, b           *pixel.Buffer
	labelA, labelB string
	opacity        int
	highlight      bool
	highlightColor color.Color
	background     color.Color
	result         *diff.Result
	computations   int
	closed         bool
	listeners      []Listener
}

// New returns an idle session.
func New(opts ...Option) *Session {
	s := &Session{
		labelA:         DefaultLabelA,
		labelB:         DefaultLabelB,
		opacity:        DefaultOpacity,
		highlightColor: DefaultHighlightColor,
		background:     DefaultBackground,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compare builds a ready session with the file at expectedPath as image A
// and actual as image B.
func Compare(expectedPath string, actual *pixel.Buffer, opts ...Option) (*Session, error) {
	s := New(opts...)
	if err := s.SetImageA(FromFile(expectedPath)); err != nil {
		return nil, err
	}
	if err := s.SetImageB(FromBuffer(actual, DefaultLabelB)); err != nil {
		return nil, err
	}
	return s, nil
}

// OnChange registers l to run after every change.
func (s *Session) OnChange(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// SetImageA sets or replaces image A and recomputes the diff.
func (s *Session) SetImageA(src Source) error { return s.SetImage(SlotA, src) }

// SetImageB sets or replaces image B and recomputes the diff.
func (s *Session) SetImageB(src Source) error { return s.SetImage(SlotB, src) }

// SetImage loads src into slot. If loading fails the session is left
// exactly as it was and the error wraps codec.ErrImageLoad.
func (s *Session) SetImage(slot Slot, src Source) error {
	if src == nil {
		return fmt.Errorf("setting image %s: %w", slot, diff.ErrMissingImage)
	}
	// Decode before taking the lock; it may touch the disk.
	buf, label, err := src.load()
	if err != nil {
		return fmt.Errorf("setting image %s: %w", slot, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if slot == SlotA {
		s.a, s.labelA = buf, label
	} else {
		s.b, s.labelB = buf, label
	}
	recomputed := s.recompute()
	ch := Change{State: s.state(), Recomputed: recomputed}
	s.mu.Unlock()

	logx.Logger().Debug("session image set", "slot", slot.String(), "label", label,
		"width", buf.Width(), "height", buf.Height(), "state", ch.State.String())
	s.notify(ch)
	return nil
}

// recompute refreshes the cached diff. Callers hold s.mu.
func (s *Session) recompute() bool {
	if s.a == nil || s.b == nil {
		s.result = nil
		return false
	}
	res, err := diff.Compute(s.a, s.b)
	if err != nil {
		// Both images are present, so Compute cannot fail.
		panic(err)
	}
	s.result = res
	s.computations++
	logx.Logger().Info("diff computed", "differing", res.Count,
		"width", res.Width, "height", res.Height)
	return true
}

// SetOpacity sets the blend of image B over image A. Values outside
// [0, 100] are clamped.
func (s *Session) SetOpacity(v int) {
	s.update(func() { s.opacity = clampOpacity(v) })
}

// SetHighlight toggles painting of differing pixels.
func (s *Session) SetHighlight(on bool) {
	s.update(func() { s.highlight = on })
}

// SetHighlightColor sets the color differing pixels are painted with.
func (s *Session) SetHighlightColor(c color.Color) {
	if c == nil {
		return
	}
	s.update(func() { s.highlightColor = c })
}

func (s *Session) update(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn()
	ch := Change{State: s.state()}
	s.mu.Unlock()
	s.notify(ch)
}

func (s *Session) notify(ch Change) {
	s.mu.Lock()
	ls := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()
	for _, l := range ls {
		l(ch)
	}
}

// Opacity returns the current opacity in [0, 100].
func (s *Session) Opacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opacity
}

// Highlight reports whether differing pixels are highlighted.
func (s *Session) Highlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlight
}

// HighlightColor returns the highlight color.
func (s *Session) HighlightColor() color.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlightColor
}

// Background returns the fill used where no image covers the composite.
func (s *Session) Background() color.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

// Labels returns the display names of images A and B.
func (s *Session) Labels() (a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.labelA, s.labelB
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Session) state() State {
	switch {
	case s.closed:
		return Closed
	case s.a != nil && s.b != nil:
		return Ready
	case s.a != nil || s.b != nil:
		return Partial
	}
	return Idle
}

// DiffCount returns the number of differing pixels. ok is false until
// both images are set.
func (s *Session) DiffCount() (n int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return 0, false
	}
	return s.result.Count, true
}

// Result returns the cached diff, or nil until both images are set.
func (s *Session) Result() *diff.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Computations returns how many times the diff has been computed.
func (s *Session) Computations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.computations
}

// Size returns the composite's dimensions: the maximum extent of the
// images present.
func (s *Session) Size() (w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size()
}

func (s *Session) size() (w, h int) {
	for _, b := range []*pixel.Buffer{s.a, s.b} {
		if b != nil {
			w = max(w, b.Width())
			h = max(h, b.Height())
		}
	}
	return w, h
}

// Close ends the session. Later image changes return ErrClosed and
// control changes are ignored.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.notify(Change{State: Closed})
	return nil
}

// Render composes the current view: background, image A at its native
// size, then image B (over background) blended at the current opacity,
// then the highlight layer if enabled. An idle session renders an empty
// image.
func (s *Session) Render() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render()
}

func (s *Session) render() *image.RGBA {
	w, h := s.size()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}
	bg := image.NewUniform(s.background)
	draw.Draw(dst, dst.Rect, bg, image.Point{}, draw.Src)

	if s.a != nil {
		draw.Draw(dst, s.a.Bounds(), s.a.RGBA(), image.Point{}, draw.Over)
	}
	if s.b != nil {
		layer := image.NewRGBA(dst.Rect)
		draw.Draw(layer, layer.Rect, bg, image.Point{}, draw.Src)
		draw.Draw(layer, s.b.Bounds(), s.b.RGBA(), image.Point{}, draw.Over)
		alpha := image.NewUniform(color.Alpha{A: opacityAlpha(s.opacity)})
		draw.DrawMask(dst, dst.Rect, layer, image.Point{}, alpha, image.Point{}, draw.Over)
	}
	if s.highlight && s.result != nil {
		s.result.Paint(dst, s.highlightColor)
	}
	return dst
}

// ExportComposite writes exactly what Render returns to path.
func (s *Session) ExportComposite(path string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.a == nil && s.b == nil {
		s.mu.Unlock()
		return fmt.Errorf("exporting composite: %w", diff.ErrMissingImage)
	}
	img := s.render()
	bg := s.background
	s.mu.Unlock()

	if err := codec.Save(path, img, bg); err != nil {
		return fmt.Errorf("exporting composite: %w", err)
	}
	logx.Logger().Info("composite exported", "path", path)
	return nil
}

func clampOpacity(v int) int {
	return min(max(v, 0), 100)
}

func opacityAlpha(opacity int) uint8 {
	return uint8((opacity*255 + 50) / 100)
}

// Source supplies an image for a session slot.
type Source interface {
	load() (*pixel.Buffer, string, error)
}

type bufferSource struct {
	buf   *pixel.Buffer
	label string
}

func (b bufferSource) load() (*pixel.Buffer, string, error) {
	if b.buf == nil {
		return nil, "", fmt.Errorf("%w: %w", codec.ErrImageLoad, diff.ErrMissingImage)
	}
	return b.buf.Clone(), b.label, nil
}

// FromBuffer uses a copy of buf, so later drawing on buf does not affect
// the session.
func FromBuffer(buf *pixel.Buffer, label string) Source {
	return bufferSource{buf: buf, label: label}
}

type fileSource string

func (f fileSource) load() (*pixel.Buffer, string, error) {
	buf, err := codec.Load(string(f))
	if err != nil {
		return nil, "", err
	}
	return buf, filepath.Base(string(f)), nil
}

// FromFile decodes the image at path when the slot is set. The label is
// the file's base name.
func FromFile(path string) Source {
	return fileSource(path)
}
