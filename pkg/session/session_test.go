package session

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"drawpanel/pkg/codec"
	"drawpanel/pkg/diff"
	"drawpanel/pkg/pixel"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	green = color.RGBA{0, 255, 0, 255}
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
)

func solid(w, h int, c color.Color) *pixel.Buffer {
	b := pixel.MustNew(w, h)
	b.Fill(c)
	return b
}

func saveFixture(t *testing.T, name string, b *pixel.Buffer) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := codec.Save(path, b, color.White); err != nil {
		t.Fatalf("saving fixture: %v", err)
	}
	return path
}

// alone composes a single image over the session background, sized w×h.
func alone(b *pixel.Buffer, w, h int) *image.RGBA {
	out := pixel.MustNew(w, h)
	out.Fill(DefaultBackground)
	dst := out.RGBA()
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			if b.ARGB(x, y)>>24 == 0xff {
				dst.Set(x, y, b.At(x, y))
			}
		}
	}
	return dst
}

func samePixels(t *testing.T, got, want *image.RGBA) {
	t.Helper()
	if got.Rect != want.Rect {
		t.Fatalf("bounds %v, want %v", got.Rect, want.Rect)
	}
	for y := want.Rect.Min.Y; y < want.Rect.Max.Y; y++ {
		for x := want.Rect.Min.X; x < want.Rect.Max.X; x++ {
			if g, w := got.RGBAAt(x, y), want.RGBAAt(x, y); g != w {
				t.Fatalf("(%d,%d) = %v, want %v", x, y, g, w)
			}
		}
	}
}

func TestStateTransitions(t *testing.T) {
	s := New()
	var changes []Change
	s.OnChange(func(c Change) { changes = append(changes, c) })

	if s.State() != Idle {
		t.Fatalf("state = %v, want idle", s.State())
	}
	if _, ok := s.DiffCount(); ok {
		t.Error("idle session has a diff count")
	}
	if err := s.SetImageA(FromBuffer(solid(2, 2, red), "a")); err != nil {
		t.Fatal(err)
	}
	if s.State() != Partial {
		t.Fatalf("state = %v, want partial", s.State())
	}
	if err := s.SetImageB(FromBuffer(solid(2, 2, green), "b")); err != nil {
		t.Fatal(err)
	}
	if s.State() != Ready {
		t.Fatalf("state = %v, want ready", s.State())
	}
	if n, ok := s.DiffCount(); !ok || n != 4 {
		t.Errorf("diff count = %d, %v; want 4, true", n, ok)
	}
	s.Close()
	if s.State() != Closed {
		t.Fatalf("state = %v, want closed", s.State())
	}
	if err := s.SetImageA(FromBuffer(solid(1, 1, red), "a")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	if len(changes) != 3 || !changes[1].Recomputed || changes[0].Recomputed {
		t.Errorf("unexpected change sequence: %+v", changes)
	}
}

func TestRecomputeDiscipline(t *testing.T) {
	s := New()
	a := solid(4, 4, white)
	a.Set(0, 0, black)
	s.SetImageA(FromBuffer(a, "a"))
	s.SetImageB(FromBuffer(solid(4, 4, white), "b"))
	if s.Computations() != 1 {
		t.Fatalf("computations = %d, want 1", s.Computations())
	}

	var recomputed int
	s.OnChange(func(c Change) {
		if c.Recomputed {
			recomputed++
		}
	})
	s.SetOpacity(10)
	s.SetHighlight(true)
	s.SetHighlightColor(red)
	s.SetOpacity(90)
	_ = s.Render()
	if s.Computations() != 1 || recomputed != 0 {
		t.Errorf("control changes recomputed the diff (%d computations)", s.Computations())
	}
	if n, _ := s.DiffCount(); n != 1 {
		t.Errorf("diff count = %d, want 1", n)
	}

	s.SetImageB(FromBuffer(a, "b2"))
	if s.Computations() != 2 || recomputed != 1 {
		t.Errorf("replacing an image should recompute once, got %d", s.Computations())
	}
	if n, _ := s.DiffCount(); n != 0 {
		t.Errorf("diff count = %d, want 0", n)
	}
}

func TestSinglePixelScenario(t *testing.T) {
	a := solid(4, 4, white)
	b := solid(4, 4, white)
	a.Set(0, 0, black)
	s := New()
	s.SetImageA(FromBuffer(a, "a"))
	s.SetImageB(FromBuffer(b, "b"))
	pts := s.Result().Points()
	if len(pts) != 1 || pts[0] != (image.Point{}) {
		t.Errorf("mask = %v, want [(0,0)]", pts)
	}
}

func TestOpacityClamp(t *testing.T) {
	s := New()
	tests := []struct{ in, want int }{{-20, 0}, {0, 0}, {42, 42}, {100, 100}, {250, 100}}
	for _, tt := range tests {
		s.SetOpacity(tt.in)
		if got := s.Opacity(); got != tt.want {
			t.Errorf("SetOpacity(%d) -> %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestOpacityBoundaries(t *testing.T) {
	a := solid(6, 3, red)
	b := solid(3, 5, green)
	b.SetARGB(1, 1, 0) // transparent hole shows the background
	s := New(WithHighlight(false, nil))
	s.SetImageA(FromBuffer(a, "a"))
	s.SetImageB(FromBuffer(b, "b"))

	s.SetOpacity(0)
	samePixels(t, s.Render(), alone(a, 6, 5))

	s.SetOpacity(100)
	samePixels(t, s.Render(), alone(b, 6, 5))
}

func TestHalfOpacityBlends(t *testing.T) {
	s := New()
	s.SetImageA(FromBuffer(solid(1, 1, black), "a"))
	s.SetImageB(FromBuffer(solid(1, 1, white), "b"))
	s.SetOpacity(50)
	got := s.Render().RGBAAt(0, 0)
	if got.R < 120 || got.R > 135 || got.A != 255 {
		t.Errorf("50%% blend = %v, want mid gray", got)
	}
}

func TestHighlightOverridesBlend(t *testing.T) {
	a := solid(3, 3, white)
	a.Set(1, 1, black)
	s := New()
	s.SetImageA(FromBuffer(a, "a"))
	s.SetImageB(FromBuffer(solid(3, 3, white), "b"))

	if got := s.Render().RGBAAt(1, 1); got == DefaultHighlightColor {
		t.Error("highlight painted while disabled")
	}
	s.SetHighlight(true)
	img := s.Render()
	if got := img.RGBAAt(1, 1); got != DefaultHighlightColor {
		t.Errorf("highlighted pixel = %v, want %v", got, DefaultHighlightColor)
	}
	if got := img.RGBAAt(0, 0); got != white {
		t.Errorf("matching pixel = %v, want white", got)
	}
	s.SetHighlightColor(red)
	if got := s.Render().RGBAAt(1, 1); got != red {
		t.Errorf("highlighted pixel = %v, want red", got)
	}
}

func TestSetImageFromFileAndFailure(t *testing.T) {
	path := saveFixture(t, "expected.png", solid(5, 5, red))
	s := New()
	if err := s.SetImageA(FromFile(path)); err != nil {
		t.Fatal(err)
	}
	if la, _ := s.Labels(); la != "expected.png" {
		t.Errorf("label = %q, want expected.png", la)
	}
	s.SetImageB(FromBuffer(solid(5, 5, red), "b"))
	before := s.Result()

	bad := filepath.Join(t.TempDir(), "bad.png")
	os.WriteFile(bad, []byte("nope"), 0o644)
	err := s.SetImageB(FromFile(bad))
	if !errors.Is(err, codec.ErrImageLoad) {
		t.Fatalf("expected ErrImageLoad, got %v", err)
	}
	if s.Result() != before || s.State() != Ready {
		t.Error("failed load changed session state")
	}
	if _, lb := s.Labels(); lb != "b" {
		t.Errorf("label changed to %q after failed load", lb)
	}
	if err := s.SetImageA(nil); !errors.Is(err, diff.ErrMissingImage) {
		t.Errorf("expected ErrMissingImage for nil source, got %v", err)
	}
}

func TestFromBufferCopies(t *testing.T) {
	b := solid(2, 2, red)
	s := New()
	s.SetImageA(FromBuffer(b, "a"))
	s.SetImageB(FromBuffer(b, "b"))
	b.Fill(green)
	if n, _ := s.DiffCount(); n != 0 {
		t.Error("session shares storage with caller's buffer")
	}
	if got := s.Render().RGBAAt(0, 0); got != red {
		t.Errorf("render = %v, want red", got)
	}
}

func TestExportComposite(t *testing.T) {
	s := New()
	path := filepath.Join(t.TempDir(), "composite.png")
	if err := s.ExportComposite(path); !errors.Is(err, diff.ErrMissingImage) {
		t.Errorf("idle export: expected ErrMissingImage, got %v", err)
	}

	a := solid(4, 2, white)
	a.Set(3, 1, black)
	s.SetImageA(FromBuffer(a, "a"))
	s.SetImageB(FromBuffer(solid(4, 2, white), "b"))
	s.SetHighlight(true)
	if err := s.ExportComposite(path); err != nil {
		t.Fatal(err)
	}
	got, err := codec.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := pixel.FromImage(s.Render())
	res, _ := diff.Compute(got, want)
	if res.Count != 0 {
		t.Errorf("exported composite differs from render in %d pixels", res.Count)
	}
	if err := s.ExportComposite(filepath.Join(t.TempDir(), "x.gif")); !errors.Is(err, codec.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestCompare(t *testing.T) {
	expected := saveFixture(t, "expected.png", solid(10, 10, red))
	s, err := Compare(expected, solid(5, 5, red))
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := s.DiffCount(); n != 75 {
		t.Errorf("diff count = %d, want 75", n)
	}
	la, lb := s.Labels()
	if la != "expected.png" || lb != DefaultLabelB {
		t.Errorf("labels = %q, %q", la, lb)
	}
	if _, err := Compare(filepath.Join(t.TempDir(), "missing.png"), solid(1, 1, red)); !errors.Is(err, codec.ErrImageLoad) {
		t.Errorf("expected ErrImageLoad, got %v", err)
	}
}

func TestIdleRenderIsEmpty(t *testing.T) {
	if r := New().Render(); !r.Rect.Empty() {
		t.Errorf("idle render bounds = %v, want empty", r.Rect)
	}
}
