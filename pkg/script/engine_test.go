package script

import (
	"bytes"
	"errors"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"drawpanel/pkg/codec"
	"drawpanel/pkg/pixel"
	"drawpanel/pkg/session"
	"drawpanel/pkg/surface"
)

func run(t *testing.T, src string, opts ...Option) *Engine {
	t.Helper()
	e := New(opts...)
	if err := e.Run("test.js", src); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		for _, s := range e.Panels() {
			s.Close()
		}
	})
	return e
}

func TestDrawingPanelFillRect(t *testing.T) {
	e := run(t, `
		var p = new DrawingPanel(10, 10);
		if (p.width !== 10 || p.height !== 10) throw new Error("bad size");
		var g = p.getGraphics();
		g.setColor(Color.BLUE);
		g.fillRect(0, 0, 10, 10);
	`)
	panels := e.Panels()
	if len(panels) != 1 {
		t.Fatalf("panels = %d, want 1", len(panels))
	}
	if got := panels[0].Pixels().ARGB(5, 5); got != 0xff0000ff {
		t.Errorf("pixel = %08x, want blue", got)
	}
}

func TestColors(t *testing.T) {
	e := run(t, `
		if (Color.DARK_GRAY !== "#404040") throw new Error("DARK_GRAY = " + Color.DARK_GRAY);
		var p = new DrawingPanel(3, 1);
		var g = p.getGraphics();
		g.setColor("red");
		g.setPixel(0, 0);
		g.setColor("#00ff00");
		g.setPixel(1, 0);
		g.setColor(Color.rgb(0, 0, 255, 128));
		g.setPixel(2, 0);
		if (g.getColor() !== "#0000ff") throw new Error("getColor = " + g.getColor());
	`)
	buf := e.Panels()[0].Pixels()
	want := []uint32{0xffff0000, 0xff00ff00, 0x800000ff}
	for x, w := range want {
		if got := buf.ARGB(x, 0); got != w {
			t.Errorf("pixel %d = %08x, want %08x", x, got, w)
		}
	}
}

func TestBadColorThrows(t *testing.T) {
	e := New()
	err := e.Run("bad.js", `
		var g = new DrawingPanel(2, 2).getGraphics();
		g.setColor("not a color");
	`)
	for _, s := range e.Panels() {
		s.Close()
	}
	if err == nil || !strings.Contains(err.Error(), "invalid color") {
		t.Errorf("expected invalid color error, got %v", err)
	}
}

func TestCatchableErrors(t *testing.T) {
	run(t, `
		var threw = false;
		try { new DrawingPanel(0, 5); } catch (e) { threw = true; }
		if (!threw) throw new Error("zero-size panel should throw");
	`)
}

func TestPolygonAndShapes(t *testing.T) {
	surface.SetDefaultAntialias(false)
	defer surface.SetDefaultAntialias(true)
	e := run(t, `
		var g = new DrawingPanel(30, 30).getGraphics();
		g.setColor(Color.RED);
		g.fillPolygon([0, 20, 0], [0, 0, 20]);
		g.drawLine(0, 29, 29, 29);
	`)
	buf := e.Panels()[0].Pixels()
	if buf.ARGB(3, 3) != 0xffff0000 {
		t.Errorf("polygon interior = %08x", buf.ARGB(3, 3))
	}
	if buf.ARGB(25, 25) != 0 {
		t.Errorf("outside polygon = %08x", buf.ARGB(25, 25))
	}
	if buf.ARGB(15, 29) != 0xffff0000 {
		t.Errorf("line pixel = %08x", buf.ARGB(15, 29))
	}
}

func TestSaveAndCompare(t *testing.T) {
	dir := t.TempDir()
	expected := pixel.MustNew(8, 8)
	expected.Fill(color.White)
	expected.Set(4, 4, color.Black)
	expPath := filepath.Join(dir, "expected.png")
	if err := codec.Save(expPath, expected, color.White); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.png")

	var log bytes.Buffer
	run(t, `
		var p = new DrawingPanel(8, 8);
		p.setBackground(Color.WHITE);
		console.log("before", p.compare(EXPECTED));
		p.getGraphics().setColor(Color.BLACK);
		p.getGraphics().setPixel(4, 4);
		console.log("after", p.compare(EXPECTED));
		p.save(OUT);
	`, WithOutput(&log), withGlobals(map[string]string{"EXPECTED": expPath, "OUT": out}))

	if got := log.String(); got != "before 1\nafter 0\n" {
		t.Errorf("console output = %q", got)
	}
	saved, err := codec.Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if saved.ARGB(4, 4) != 0xff000000 || saved.ARGB(0, 0) != 0xffffffff {
		t.Error("saved image does not match drawing")
	}
}

func TestPaletteRotation(t *testing.T) {
	var log bytes.Buffer
	run(t, `
		var a = Palette.lights(0), b = Palette.lights(0);
		a.next();
		console.log(a.index(), b.index());
		var r = Palette.of(["red", "blue"]);
		console.log(r.current(), r.next(), r.next());
		if (Font.BOLD !== 1 || Font.ITALIC !== 2) throw new Error("font constants");
	`, WithOutput(&log))
	want := "1 0\n#ff0000 #0000ff #ff0000\n"
	if log.String() != want {
		t.Errorf("output = %q, want %q", log.String(), want)
	}
}

func TestFactoryErrorPropagates(t *testing.T) {
	sentinel := errors.New("no display")
	e := New(WithFactory(func(int, int) (*surface.Surface, error) { return nil, sentinel }))
	err := e.Run("f.js", `new DrawingPanel(5, 5);`)
	if err == nil || !strings.Contains(err.Error(), "no display") {
		t.Errorf("expected factory error, got %v", err)
	}
}

func TestRunFileMissing(t *testing.T) {
	if err := New().RunFile(filepath.Join(t.TempDir(), "nope.js")); err == nil {
		t.Error("expected error for missing script")
	}
}

func withGlobals(m map[string]string) Option {
	return func(e *Engine) {
		for k, v := range m {
			e.vm.Set(k, v)
		}
	}
}

func TestDrawImageUsesCache(t *testing.T) {
	stamp := pixel.MustNew(2, 2)
	stamp.Fill(color.RGBA{0, 255, 0, 255})
	path := filepath.Join(t.TempDir(), "stamp.png")
	if err := codec.Save(path, stamp, color.White); err != nil {
		t.Fatal(err)
	}
	e := run(t, `
		var g = new DrawingPanel(6, 6).getGraphics();
		g.drawImage(STAMP, 1, 1);
		g.drawImage(STAMP, 3, 3);
	`, withGlobals(map[string]string{"STAMP": path}))
	buf := e.Panels()[0].Pixels()
	if buf.ARGB(1, 1) != 0xff00ff00 || buf.ARGB(4, 4) != 0xff00ff00 || buf.ARGB(0, 0) != 0 {
		t.Error("stamps not drawn where expected")
	}
	if e.images.Loads() != 1 {
		t.Errorf("image decoded %d times, want 1", e.images.Loads())
	}
}

func TestDefaultPanelSize(t *testing.T) {
	e := run(t, `var a = new DrawingPanel(); var b = new DrawingPanel(3, 2);`, WithDefaultSize(40, 30))
	panels := e.Panels()
	if len(panels) != 2 {
		t.Fatalf("got %d panels, want 2", len(panels))
	}
	if panels[0].Width() != 40 || panels[0].Height() != 30 {
		t.Errorf("default panel = %dx%d, want 40x30", panels[0].Width(), panels[0].Height())
	}
	if panels[1].Width() != 3 || panels[1].Height() != 2 {
		t.Errorf("sized panel = %dx%d, want 3x2", panels[1].Width(), panels[1].Height())
	}

	e = run(t, `new DrawingPanel();`)
	if s := e.Panels()[0]; s.Width() != DefaultWidth || s.Height() != DefaultHeight {
		t.Errorf("panel = %dx%d, want %dx%d", s.Width(), s.Height(), DefaultWidth, DefaultHeight)
	}
}

func TestCompareAppliesSessionOptions(t *testing.T) {
	expected := pixel.MustNew(4, 4)
	path := filepath.Join(t.TempDir(), "expected.png")
	if err := codec.Save(path, expected, color.White); err != nil {
		t.Fatal(err)
	}
	var applied int
	spy := session.Option(func(*session.Session) { applied++ })
	run(t, `
		var p = new DrawingPanel(4, 4);
		p.compare(EXPECTED);
		p.compare(EXPECTED);
	`, WithSessionOptions(spy), withGlobals(map[string]string{"EXPECTED": path}))
	if applied != 2 {
		t.Errorf("session option applied %d times, want 2", applied)
	}
}
