// Package surface implements a persistent drawing surface.
//
// A Surface owns a pixel buffer that keeps everything drawn on it. Clients
// draw through the surface's DrawContext; a refresh schedule periodically
// presents a composited snapshot of the buffer to a Display. Drawing calls
// never force a redraw: what is visible is always the latest scheduled
// snapshot.
//
// A Surface and its DrawContext belong to a single client goroutine.
// Drawing from several goroutines at once is not supported. The refresh
// goroutine only reads the buffer.
package surface

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"drawpanel/pkg/codec"
	"drawpanel/pkg/display"
	"drawpanel/pkg/logx"
	"drawpanel/pkg/pixel"
	"drawpanel/pkg/refresh"
)

// DefaultBackground is the background behind transparent buffer pixels.
var DefaultBackground color.Color = color.White

var defaultAntialias atomic.Bool

func init() {
	defaultAntialias.Store(true)
}

// SetDefaultAntialias sets the anti-aliasing flag captured by surfaces
// created afterwards. Existing surfaces are unaffected.
func SetDefaultAntialias(on bool) { defaultAntialias.Store(on) }

// DefaultAntialias reports the flag new surfaces will capture.
func DefaultAntialias() bool { return defaultAntialias.Load() }

// RefreshHook runs on the refresh goroutine after each presented frame.
// Returning true unregisters it. Hooks must not block and must not call
// Close directly; start a goroutine for anything long-running.
type RefreshHook func(now time.Time) (done bool)

// Option configures Create.
type Option func(*options)

type options struct {
	display    func(*Surface) display.Display
	period     time.Duration
	background color.Color
}

// WithDisplay presents frames on d instead of a headless display.
func WithDisplay(d display.Display) Option {
	return func(o *options) {
		o.display = func(*Surface) display.Display { return d }
	}
}

// WithDisplayFunc builds the display once the surface exists, so the
// display can call back into it (menus for export and compare).
func WithDisplayFunc(fn func(s *Surface) display.Display) Option {
	return func(o *options) { o.display = fn }
}

// WithPeriod overrides the refresh period.
func WithPeriod(d time.Duration) Option {
	return func(o *options) { o.period = d }
}

// WithBackground sets the initial background color.
func WithBackground(c color.Color) Option {
	return func(o *options) { o.background = c }
}

// Surface is a persistent, periodically displayed drawing surface.
type Surface struct {
	width   int
	height  int
	created time.Time

	// mu guards buffer pixels, background and hooks. Drawing primitives
	// hold it only while writing so a snapshot never reads mid-write.
	mu         sync.Mutex
	buf        *pixel.Buffer
	background color.Color
	hooks      []RefreshHook
	onClose    []func()

	ctx     *DrawContext
	display display.Display
	sched   *refresh.Scheduler
	closed  atomic.Bool
}

// Create allocates a transparent width×height surface, opens its display
// and starts the refresh schedule.
func Create(width, height int, opts ...Option) (*Surface, error) {
	buf, err := pixel.New(width, height)
	if err != nil {
		return nil, fmt.Errorf("creating surface: %w", err)
	}
	o := options{
		period:     refresh.DefaultPeriod,
		background: DefaultBackground,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Surface{
		width:      width,
		height:     height,
		created:    time.Now(),
		buf:        buf,
		background: o.background,
	}
	s.ctx = newDrawContext(s, DefaultAntialias())
	if o.display != nil {
		s.display = o.display(s)
	}
	if s.display == nil {
		s.display = display.NewHeadless()
	}
	s.sched = refresh.New(o.period, s.present)
	s.sched.Start()

	logx.Logger().Info("surface created", "width", width, "height", height,
		"period", s.sched.Period(), "antialias", s.ctx.Antialias())
	return s, nil
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.width }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.height }

// CreatedAt returns the construction time.
func (s *Surface) CreatedAt() time.Time { return s.created }

// Period returns the refresh period.
func (s *Surface) Period() time.Duration { return s.sched.Period() }

// Display returns the display frames are presented on.
func (s *Surface) Display() display.Display { return s.display }

// Context returns the drawing context bound to the surface's buffer.
func (s *Surface) Context() *DrawContext { return s.ctx }

// SetBackground sets the color composited behind transparent pixels and
// used as the export fill. Buffer pixels are not touched.
func (s *Surface) SetBackground(c color.Color) {
	s.mu.Lock()
	s.background = c
	s.mu.Unlock()
}

// Background returns the current background color.
func (s *Surface) Background() color.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

// Snapshot returns the buffer composited over the background.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Flatten(s.background)
}

// Pixels returns a copy of the raw, uncomposited buffer.
func (s *Surface) Pixels() *pixel.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Clone()
}

// Export writes the composited surface to path. The format follows the
// extension; see package codec for the errors returned.
func (s *Surface) Export(path string) error {
	s.mu.Lock()
	bg := s.background
	frame := s.buf.Flatten(bg)
	s.mu.Unlock()

	if err := codec.Save(path, frame, bg); err != nil {
		return fmt.Errorf("exporting surface: %w", err)
	}
	logx.Logger().Info("surface exported", "path", path)
	return nil
}

// AddRefreshHook registers fn to run after each presented frame.
func (s *Surface) AddRefreshHook(fn RefreshHook) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// OnClose registers fn to run once Close has stopped the refresh
// schedule, so no refresh hook runs concurrently with or after fn. If the
// surface is already closed fn runs immediately.
func (s *Surface) OnClose(fn func()) {
	s.mu.Lock()
	if !s.closed.Load() {
		s.onClose = append(s.onClose, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

// Sleep pauses the calling goroutine, letting the schedule present frames
// between animation steps.
func (s *Surface) Sleep(d time.Duration) { time.Sleep(d) }

// Closed reports whether Close has been called.
func (s *Surface) Closed() bool { return s.closed.Load() }

// Close stops the refresh schedule and releases the display. When Close
// returns no further frame will be presented. Drawing after Close is a
// programming error with undefined results.
func (s *Surface) Close() error {
	s.mu.Lock()
	if s.closed.Swap(true) {
		s.mu.Unlock()
		return nil
	}
	onClose := s.onClose
	s.onClose = nil
	s.mu.Unlock()

	s.sched.Stop()
	logx.Logger().Info("surface closed", "width", s.width, "height", s.height)
	err := s.display.Close()
	for _, fn := range onClose {
		fn()
	}
	return err
}

// present is the refresh task.
func (s *Surface) present(now time.Time) {
	s.display.Show(s.Snapshot())

	s.mu.Lock()
	hooks := s.hooks
	s.mu.Unlock()
	if len(hooks) == 0 {
		return
	}

	var finished []int
	for i, h := range hooks {
		if h(now) {
			finished = append(finished, i)
		}
	}
	if len(finished) == 0 {
		return
	}
	s.mu.Lock()
	s.hooks = removeHooks(s.hooks, hooks, finished)
	s.mu.Unlock()
}

// removeHooks drops the finished hooks from current. Hooks added while the
// snapshot ran sit after len(snapshot) and are kept.
func removeHooks(current, snapshot []RefreshHook, finished []int) []RefreshHook {
	drop := make(map[int]bool, len(finished))
	for _, i := range finished {
		drop[i] = true
	}
	out := make([]RefreshHook, 0, len(current)-len(finished))
	for i, h := range current {
		if i < len(snapshot) && drop[i] {
			continue
		}
		out = append(out, h)
	}
	return out
}
