package script

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/dop251/goja"

	"drawpanel/pkg/palette"
	"drawpanel/pkg/pixel"
	"drawpanel/pkg/session"
	"drawpanel/pkg/surface"
)

var errBadColor = errors.New("invalid color")

// registerPanel installs the DrawingPanel constructor:
//
//	var p = new DrawingPanel(300, 200);
//	var g = p.getGraphics();
//	g.setColor(Color.BLUE);
//	g.fillRect(10, 10, 50, 50);
//
// With no arguments the panel takes the engine's default size.
func (e *Engine) registerPanel() {
	e.vm.Set("DrawingPanel", func(call goja.ConstructorCall) *goja.Object {
		w, h := e.width, e.height
		if len(call.Arguments) > 0 {
			w = int(call.Argument(0).ToInteger())
			h = int(call.Argument(1).ToInteger())
		}
		s, err := e.factory(w, h)
		if err != nil {
			e.throw(err)
		}
		e.mu.Lock()
		e.panels = append(e.panels, s)
		e.mu.Unlock()
		return e.panelObject(s)
	})
}

func (e *Engine) panelObject(s *surface.Surface) *goja.Object {
	vm := e.vm
	obj := vm.NewObject()
	g := e.graphicsObject(s.Context())

	obj.Set("width", s.Width())
	obj.Set("height", s.Height())
	obj.Set("getGraphics", func(goja.FunctionCall) goja.Value { return g })
	obj.Set("setBackground", func(call goja.FunctionCall) goja.Value {
		s.SetBackground(e.color(call.Argument(0)))
		return goja.Undefined()
	})
	obj.Set("getBackground", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(palette.Hex(s.Background()))
	})
	obj.Set("save", func(call goja.FunctionCall) goja.Value {
		if err := s.Export(call.Argument(0).String()); err != nil {
			e.throw(err)
		}
		return goja.Undefined()
	})
	obj.Set("compare", func(call goja.FunctionCall) goja.Value {
		sess, err := session.Compare(call.Argument(0).String(), pixel.FromImage(s.Snapshot()), e.sessOpts...)
		if err != nil {
			e.throw(err)
		}
		defer sess.Close()
		n, _ := sess.DiffCount()
		return vm.ToValue(n)
	})
	obj.Set("sleep", func(call goja.FunctionCall) goja.Value {
		s.Sleep(time.Duration(call.Argument(0).ToInteger()) * time.Millisecond)
		return goja.Undefined()
	})
	obj.Set("close", func(goja.FunctionCall) goja.Value {
		s.Close()
		return goja.Undefined()
	})
	return obj
}

func (e *Engine) graphicsObject(g *surface.DrawContext) *goja.Object {
	vm := e.vm
	obj := vm.NewObject()
	num := func(call goja.FunctionCall, i int) float64 { return call.Argument(i).ToFloat() }

	obj.Set("setColor", func(call goja.FunctionCall) goja.Value {
		g.SetColor(e.color(call.Argument(0)))
		return goja.Undefined()
	})
	obj.Set("getColor", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(palette.Hex(g.Color()))
	})
	obj.Set("setLineWidth", func(call goja.FunctionCall) goja.Value {
		g.SetLineWidth(num(call, 0))
		return goja.Undefined()
	})
	obj.Set("setFont", func(call goja.FunctionCall) goja.Value {
		err := g.SetFont(call.Argument(0).String(),
			surface.FontStyle(call.Argument(1).ToInteger()), num(call, 2))
		if err != nil {
			e.throw(err)
		}
		return goja.Undefined()
	})
	obj.Set("measureString", func(call goja.FunctionCall) goja.Value {
		w, h := g.MeasureString(call.Argument(0).String())
		return vm.ToValue(map[string]float64{"width": w, "height": h})
	})
	obj.Set("clear", func(goja.FunctionCall) goja.Value {
		g.Clear()
		return goja.Undefined()
	})
	obj.Set("setPixel", func(call goja.FunctionCall) goja.Value {
		g.SetPixel(int(call.Argument(0).ToInteger()), int(call.Argument(1).ToInteger()))
		return goja.Undefined()
	})
	obj.Set("drawLine", func(call goja.FunctionCall) goja.Value {
		g.DrawLine(num(call, 0), num(call, 1), num(call, 2), num(call, 3))
		return goja.Undefined()
	})
	rect := func(fn func(x, y, w, h float64)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			fn(num(call, 0), num(call, 1), num(call, 2), num(call, 3))
			return goja.Undefined()
		}
	}
	obj.Set("drawRect", rect(g.DrawRect))
	obj.Set("fillRect", rect(g.FillRect))
	obj.Set("drawOval", rect(g.DrawOval))
	obj.Set("fillOval", rect(g.FillOval))

	poly := func(fn func(xs, ys []float64)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			var xs, ys []float64
			if err := vm.ExportTo(call.Argument(0), &xs); err != nil {
				e.throw(fmt.Errorf("polygon x coordinates: %w", err))
			}
			if err := vm.ExportTo(call.Argument(1), &ys); err != nil {
				e.throw(fmt.Errorf("polygon y coordinates: %w", err))
			}
			fn(xs, ys)
			return goja.Undefined()
		}
	}
	obj.Set("drawPolygon", poly(g.DrawPolygon))
	obj.Set("fillPolygon", poly(g.FillPolygon))

	obj.Set("drawString", func(call goja.FunctionCall) goja.Value {
		g.DrawString(call.Argument(0).String(), num(call, 1), num(call, 2))
		return goja.Undefined()
	})
	obj.Set("drawImage", func(call goja.FunctionCall) goja.Value {
		img, err := e.images.Load(call.Argument(0).String())
		if err != nil {
			e.throw(err)
		}
		g.DrawImage(img, int(call.Argument(1).ToInteger()), int(call.Argument(2).ToInteger()))
		return goja.Undefined()
	})
	return obj
}

// color converts a script color: a name, a hex string, or an object with
// r, g, b and optional a fields as produced by Color.rgb.
func (e *Engine) color(v goja.Value) color.Color {
	c, err := toColor(v)
	if err != nil {
		e.throw(err)
	}
	return c
}

func toColor(v goja.Value) (color.Color, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, fmt.Errorf("%w: missing", errBadColor)
	}
	switch x := v.Export().(type) {
	case string:
		c, err := palette.Parse(x)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errBadColor, err)
		}
		return c, nil
	case map[string]interface{}:
		c := color.NRGBA{A: 255}
		for key, dst := range map[string]*uint8{"r": &c.R, "g": &c.G, "b": &c.B, "a": &c.A} {
			raw, ok := x[key]
			if !ok {
				if key == "a" {
					continue
				}
				return nil, fmt.Errorf("%w: missing %q", errBadColor, key)
			}
			n, ok := channel(raw)
			if !ok {
				return nil, fmt.Errorf("%w: %s=%v", errBadColor, key, raw)
			}
			*dst = n
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", errBadColor, v.String())
}

func channel(v interface{}) (uint8, bool) {
	var f float64
	switch n := v.(type) {
	case int64:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0, false
	}
	if f < 0 || f > 255 {
		return 0, false
	}
	return uint8(f), true
}

// registerColors installs Color.RED style constants and Color.rgb.
func registerColors(vm *goja.Runtime) {
	obj := vm.NewObject()
	for _, name := range palette.Names() {
		c, _ := palette.Lookup(name)
		obj.Set(constName(name), palette.Hex(c))
	}
	obj.Set("rgb", func(call goja.FunctionCall) goja.Value {
		m := map[string]interface{}{
			"r": call.Argument(0).ToInteger(),
			"g": call.Argument(1).ToInteger(),
			"b": call.Argument(2).ToInteger(),
			"a": int64(255),
		}
		if len(call.Arguments) > 3 {
			m["a"] = call.Argument(3).ToInteger()
		}
		return vm.ToValue(m)
	})
	vm.Set("Color", obj)
}

func constName(name string) string {
	switch name {
	case "darkgray":
		return "DARK_GRAY"
	case "lightgray":
		return "LIGHT_GRAY"
	}
	return strings.ToUpper(name)
}

func registerFonts(vm *goja.Runtime) {
	obj := vm.NewObject()
	obj.Set("PLAIN", int(surface.Plain))
	obj.Set("BOLD", int(surface.Bold))
	obj.Set("ITALIC", int(surface.Italic))
	vm.Set("Font", obj)
}

// registerPalette installs Palette.lights() and Palette.of(colors), each
// returning an independent rotation with current(), next() and index().
func registerPalette(vm *goja.Runtime) {
	rotation := func(r *palette.Rotation) goja.Value {
		obj := vm.NewObject()
		obj.Set("current", func(goja.FunctionCall) goja.Value { return vm.ToValue(palette.Hex(r.Current())) })
		obj.Set("next", func(goja.FunctionCall) goja.Value { return vm.ToValue(palette.Hex(r.Next())) })
		obj.Set("index", func(goja.FunctionCall) goja.Value { return vm.ToValue(r.Index()) })
		return obj
	}
	obj := vm.NewObject()
	obj.Set("lights", func(call goja.FunctionCall) goja.Value {
		return rotation(palette.Lights.Rotation(int(call.Argument(0).ToInteger())))
	})
	obj.Set("of", func(call goja.FunctionCall) goja.Value {
		var names []goja.Value
		if err := vm.ExportTo(call.Argument(0), &names); err != nil {
			panic(vm.NewGoError(err))
		}
		colors := make([]color.Color, len(names))
		for i, n := range names {
			c, err := toColor(n)
			if err != nil {
				panic(vm.NewGoError(err))
			}
			colors[i] = c
		}
		return rotation(palette.New(colors...).Rotation(0))
	})
	vm.Set("Palette", obj)
}
