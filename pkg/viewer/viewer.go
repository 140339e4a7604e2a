// Package viewer shows a diff session in a fyne window with live controls
// for opacity and difference highlighting.
package viewer

import (
	"fmt"
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"drawpanel/pkg/display"
	"drawpanel/pkg/logx"
	"drawpanel/pkg/session"
)

// DefaultTitle is the viewer window's title.
const DefaultTitle = "DiffImage"

// Options configures Open.
type Options struct {
	Title string
	// OnClose runs after the window closed and the session ended.
	OnClose func()
}

// Viewer is the window presenting one session. All fields are touched on
// the fyne thread only.
type Viewer struct {
	win     fyne.Window
	sess    *session.Session
	chooser *display.Chooser

	img       *canvas.Image
	labelA    *widget.Label
	labelB    *widget.Label
	count     *widget.Label
	opacity   *widget.Slider
	highlight *widget.Check
	swatch    *canvas.Rectangle
}

// Open shows sess in a new window. Closing the window closes the session.
func Open(app fyne.App, sess *session.Session, opts Options) *Viewer {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	v := &Viewer{
		win:    app.NewWindow(opts.Title),
		sess:   sess,
		labelA: widget.NewLabel(""),
		labelB: widget.NewLabel(""),
		count:  widget.NewLabel(""),
	}
	v.chooser = display.NewChooser(v.win)

	v.img = canvas.NewImageFromImage(image.NewRGBA(image.Rectangle{}))
	v.img.FillMode = canvas.ImageFillOriginal
	v.img.ScaleMode = canvas.ImageScalePixels

	v.opacity = widget.NewSlider(0, 100)
	v.opacity.Step = 5
	v.opacity.SetValue(float64(sess.Opacity()))
	v.opacity.OnChanged = func(f float64) { sess.SetOpacity(int(f)) }

	v.highlight = widget.NewCheck("Highlight diffs in color: ", func(on bool) { sess.SetHighlight(on) })
	v.highlight.SetChecked(sess.Highlight())

	v.swatch = canvas.NewRectangle(sess.HighlightColor())
	v.swatch.SetMinSize(fyne.NewSize(24, 24))
	pick := widget.NewButton("Color...", v.pickColor)

	blend := container.NewBorder(nil, nil, v.labelA, v.labelB, v.opacity)
	controls := container.NewHBox(v.count, layoutSpacer(), v.highlight, v.swatch, pick)
	south := container.NewVBox(blend, controls)

	v.win.SetContent(container.NewBorder(nil, south, nil, nil, container.NewCenter(v.img)))
	v.win.SetMainMenu(v.menu())
	v.win.SetOnClosed(func() {
		sess.Close()
		if opts.OnClose != nil {
			opts.OnClose()
		}
	})

	sess.OnChange(func(c session.Change) {
		if c.State == session.Closed {
			return
		}
		fyne.Do(v.refresh)
	})
	v.refresh()
	v.win.Show()
	return v
}

func layoutSpacer() fyne.CanvasObject {
	r := canvas.NewRectangle(color.Transparent)
	r.SetMinSize(fyne.NewSize(20, 0))
	return r
}

func (v *Viewer) menu() *fyne.MainMenu {
	set1 := fyne.NewMenuItem("Set Image 1...", func() { v.setImage(session.SlotA) })
	set1.Shortcut = &desktop.CustomShortcut{KeyName: fyne.Key1, Modifier: fyne.KeyModifierShortcutDefault}
	set2 := fyne.NewMenuItem("Set Image 2...", func() { v.setImage(session.SlotB) })
	set2.Shortcut = &desktop.CustomShortcut{KeyName: fyne.Key2, Modifier: fyne.KeyModifierShortcutDefault}
	saveAs := fyne.NewMenuItem("Save As...", v.saveAs)
	saveAs.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}

	return fyne.NewMainMenu(fyne.NewMenu("File", set1, set2, fyne.NewMenuItemSeparator(), saveAs))
}

func (v *Viewer) setImage(slot session.Slot) {
	v.chooser.Open(func(path string) {
		if err := v.sess.SetImage(slot, session.FromFile(path)); err != nil {
			dialog.ShowError(fmt.Errorf("unable to load image: %w", err), v.win)
		}
	})
}

func (v *Viewer) saveAs() {
	v.chooser.Save(func(path string) {
		if err := v.sess.ExportComposite(path); err != nil {
			dialog.ShowError(fmt.Errorf("unable to save image: %w", err), v.win)
		}
	})
}

func (v *Viewer) pickColor() {
	picker := dialog.NewColorPicker("Choose highlight color", "", func(c color.Color) {
		v.sess.SetHighlightColor(c)
		v.sess.SetHighlight(true)
	}, v.win)
	picker.Advanced = true
	picker.SetColor(v.sess.HighlightColor())
	picker.Show()
}

// refresh redraws the composite and the status widgets from the session.
func (v *Viewer) refresh() {
	frame := v.sess.Render()
	w, h := frame.Rect.Dx(), frame.Rect.Dy()
	v.img.Image = frame
	v.img.SetMinSize(fyne.NewSize(float32(w), float32(h)))
	v.img.Refresh()

	a, b := v.sess.Labels()
	v.labelA.SetText(a)
	v.labelB.SetText(b)
	if n, ok := v.sess.DiffCount(); ok {
		v.count.SetText(fmt.Sprintf("(%d pixels differ)", n))
	} else {
		v.count.SetText("")
	}
	v.highlight.SetChecked(v.sess.Highlight())
	v.swatch.FillColor = v.sess.HighlightColor()
	v.swatch.Refresh()
	logx.Logger().Debug("viewer refreshed", "width", w, "height", h)
}

// Window exposes the underlying fyne window.
func (v *Viewer) Window() fyne.Window { return v.win }
