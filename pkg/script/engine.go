// Package script runs JavaScript drawing programs against drawing surfaces.
//
// Scripts see a DrawingPanel constructor, a Color namespace, a Font style
// namespace, a Palette namespace and a console. A script creates panels,
// draws on their graphics context, and may save or compare them, the same
// way a Go client would.
package script

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dop251/goja"

	"drawpanel/pkg/images"
	"drawpanel/pkg/session"
	"drawpanel/pkg/surface"
)

// Size of a DrawingPanel constructed without arguments, unless changed
// with WithDefaultSize.
const (
	DefaultWidth  = 500
	DefaultHeight = 400
)

// Factory creates the surface behind a new DrawingPanel.
type Factory func(width, height int) (*surface.Surface, error)

// Option configures New.
type Option func(*Engine)

// WithFactory replaces the default headless surface factory.
func WithFactory(f Factory) Option {
	return func(e *Engine) { e.factory = f }
}

// WithOutput sends console.log output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

// WithDefaultSize sets the size of panels constructed without arguments.
func WithDefaultSize(width, height int) Option {
	return func(e *Engine) { e.width, e.height = width, height }
}

// WithSessionOptions applies opts to every session a script's compare
// call opens.
func WithSessionOptions(opts ...session.Option) Option {
	return func(e *Engine) { e.sessOpts = append(e.sessOpts, opts...) }
}

// Engine executes drawing scripts with a fresh goja runtime.
type Engine struct {
	vm      *goja.Runtime
	out     io.Writer
	factory Factory
	images  *images.Cache

	width, height int
	sessOpts      []session.Option

	mu     sync.Mutex
	panels []*surface.Surface
}

// New creates an engine and registers the global API.
func New(opts ...Option) *Engine {
	e := &Engine{
		vm:     goja.New(),
		out:    os.Stdout,
		images: images.NewCache(),
		width:  DefaultWidth,
		height: DefaultHeight,
		factory: func(w, h int) (*surface.Surface, error) {
			return surface.Create(w, h)
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	c := &consoleAPI{out: e.out}
	c.register(e.vm)
	registerColors(e.vm)
	registerFonts(e.vm)
	registerPalette(e.vm)
	e.registerPanel()
	return e
}

// Run executes src. name appears in error positions.
func (e *Engine) Run(name, src string) error {
	if _, err := e.vm.RunScript(name, src); err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}
	return nil
}

// RunFile executes the script at path.
func (e *Engine) RunFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	return e.Run(path, string(src))
}

// Interrupt aborts a running script, for example when its window closes.
func (e *Engine) Interrupt(reason string) {
	e.vm.Interrupt(reason)
}

// Panels returns the surfaces created so far, in creation order.
func (e *Engine) Panels() []*surface.Surface {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*surface.Surface(nil), e.panels...)
}

func (e *Engine) throw(err error) {
	panic(e.vm.NewGoError(err))
}
