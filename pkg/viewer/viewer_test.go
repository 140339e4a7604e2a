package viewer

import (
	"image/color"
	"testing"

	"fyne.io/fyne/v2/test"

	"drawpanel/pkg/pixel"
	"drawpanel/pkg/session"
)

func solid(c color.Color) *pixel.Buffer {
	b := pixel.MustNew(6, 4)
	b.Fill(c)
	return b
}

func TestViewerReflectsSession(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()

	a := solid(color.White)
	a.Set(2, 2, color.Black)
	sess := session.New()
	sess.SetImageA(session.FromBuffer(a, "expected.png"))
	sess.SetImageB(session.FromBuffer(solid(color.White), session.DefaultLabelB))

	closed := false
	v := Open(app, sess, Options{OnClose: func() { closed = true }})

	if got := v.count.Text; got != "(1 pixels differ)" {
		t.Errorf("count label = %q", got)
	}
	if v.labelA.Text != "expected.png" || v.labelB.Text != session.DefaultLabelB {
		t.Errorf("labels = %q, %q", v.labelA.Text, v.labelB.Text)
	}
	if b := v.img.Image.Bounds(); b.Dx() != 6 || b.Dy() != 4 {
		t.Errorf("image bounds = %v", b)
	}

	v.opacity.OnChanged(80)
	if sess.Opacity() != 80 {
		t.Errorf("session opacity = %d, want 80", sess.Opacity())
	}
	test.Tap(v.highlight)
	if !sess.Highlight() {
		t.Error("tapping the check did not enable highlighting")
	}

	v.Window().Close()
	if !closed || sess.State() != session.Closed {
		t.Error("closing the window should close the session")
	}
}

func TestViewerIdleSession(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()
	v := Open(app, session.New(), Options{})
	defer v.Window().Close()
	if v.count.Text != "" {
		t.Errorf("idle count label = %q, want empty", v.count.Text)
	}
}
