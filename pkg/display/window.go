package display

import (
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"drawpanel/pkg/logx"
)

// DefaultTitle is the drawing window's title.
const DefaultTitle = "Drawing Panel"

// WindowOptions wires the window's menu to its owner.
type WindowOptions struct {
	Title string
	// SaveAs writes the current drawing to path ("Save As...").
	SaveAs func(path string) error
	// Compare diffs the current drawing against the image at path
	// ("Compare to File...").
	Compare func(path string) error
	// OnExit runs when the user picks "Exit" or closes the window.
	OnExit func()
}

// Window is a fyne-backed Display of fixed size with a status bar showing
// the mouse position.
type Window struct {
	win     fyne.Window
	img     *canvas.Image
	status  *widget.Label
	chooser *Chooser
	opts    WindowOptions
}

// NewWindow opens a window whose drawing area is exactly width×height.
func NewWindow(app fyne.App, width, height int, opts WindowOptions) *Window {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	w := &Window{
		win:    app.NewWindow(opts.Title),
		status: widget.NewLabel(" "),
		opts:   opts,
	}
	w.chooser = NewChooser(w.win)

	blank := image.NewRGBA(image.Rect(0, 0, width, height))
	w.img = canvas.NewImageFromImage(blank)
	w.img.FillMode = canvas.ImageFillStretch
	w.img.ScaleMode = canvas.ImageScalePixels
	w.img.SetMinSize(fyne.NewSize(float32(width), float32(height)))

	area := newHoverArea(w.img, func(x, y int) {
		w.status.SetText(fmt.Sprintf("(%d, %d)", x, y))
	})
	w.win.SetContent(container.NewBorder(nil, w.status, nil, nil, container.NewCenter(area)))
	w.win.SetFixedSize(true)
	w.win.SetMainMenu(w.menu())
	w.win.SetOnClosed(func() {
		if w.opts.OnExit != nil {
			w.opts.OnExit()
		}
	})
	w.win.Show()
	return w
}

func (w *Window) menu() *fyne.MainMenu {
	saveAs := fyne.NewMenuItem("Save As...", w.saveAs)
	saveAs.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}
	compare := fyne.NewMenuItem("Compare to File...", w.compare)
	exit := fyne.NewMenuItem("Exit", func() { w.win.Close() })
	about := fyne.NewMenuItem("About...", func() {
		dialog.ShowInformation("About", "Drawing Panel\npersistent drawing surface with image diff", w.win)
	})

	file := fyne.NewMenu("File", saveAs, fyne.NewMenuItemSeparator(), compare, fyne.NewMenuItemSeparator(), exit)
	help := fyne.NewMenu("Help", about)
	return fyne.NewMainMenu(file, help)
}

func (w *Window) saveAs() {
	if w.opts.SaveAs == nil {
		return
	}
	w.chooser.Save(func(path string) {
		if err := w.opts.SaveAs(path); err != nil {
			dialog.ShowError(fmt.Errorf("unable to save image: %w", err), w.win)
		}
	})
}

func (w *Window) compare() {
	if w.opts.Compare == nil {
		return
	}
	w.chooser.Open(func(path string) {
		if err := w.opts.Compare(path); err != nil {
			dialog.ShowError(fmt.Errorf("unable to compare images: %w", err), w.win)
		}
	})
}

// Show replaces the displayed image. Safe to call from any goroutine.
func (w *Window) Show(frame image.Image) {
	fyne.Do(func() {
		w.img.Image = frame
		w.img.Refresh()
	})
}

// Close closes the window.
func (w *Window) Close() error {
	logx.Logger().Debug("closing drawing window", "title", w.opts.Title)
	fyne.Do(w.win.Close)
	return nil
}

// FyneWindow exposes the underlying window, for parenting dialogs.
func (w *Window) FyneWindow() fyne.Window { return w.win }

// hoverArea wraps an image and reports pointer motion in image pixels.
type hoverArea struct {
	widget.BaseWidget
	img    *canvas.Image
	onMove func(x, y int)
}

func newHoverArea(img *canvas.Image, onMove func(x, y int)) *hoverArea {
	h := &hoverArea{img: img, onMove: onMove}
	h.ExtendBaseWidget(h)
	return h
}

func (h *hoverArea) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(h.img)
}

func (h *hoverArea) MinSize() fyne.Size {
	return h.img.MinSize()
}

// MouseIn implements desktop.Hoverable.
func (h *hoverArea) MouseIn(e *desktop.MouseEvent) { h.MouseMoved(e) }

// MouseMoved implements desktop.Hoverable.
func (h *hoverArea) MouseMoved(e *desktop.MouseEvent) {
	h.onMove(int(e.Position.X), int(e.Position.Y))
}

// MouseOut implements desktop.Hoverable.
func (h *hoverArea) MouseOut() {}
