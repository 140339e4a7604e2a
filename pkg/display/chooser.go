package display

import (
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"drawpanel/pkg/codec"
)

// Chooser shows file dialogs restricted to supported raster files. It is
// shared by the drawing window and the diff viewer.
type Chooser struct {
	win fyne.Window
	dir string
}

// NewChooser returns a chooser parented to win that starts in the
// working directory.
func NewChooser(win fyne.Window) *Chooser {
	dir, _ := os.Getwd()
	return &Chooser{win: win, dir: dir}
}

func (c *Chooser) configure(d *dialog.FileDialog) {
	d.SetFilter(storage.NewExtensionFileFilter(codec.Extensions()))
	if c.dir == "" {
		return
	}
	if lister, err := storage.ListerForURI(storage.NewFileURI(c.dir)); err == nil {
		d.SetLocation(lister)
	}
}

// Save asks for a destination and calls onPath with it. A missing
// extension becomes .png; replacing an existing file requires
// confirmation.
func (c *Chooser) Save(onPath func(path string)) {
	d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, c.win)
			return
		}
		if wc == nil {
			return
		}
		path := wc.URI().Path()
		wc.Close()
		c.dir = filepath.Dir(path)

		if codec.Supported(path) {
			onPath(path)
			return
		}
		// The dialog already created the bare name; drop it if empty.
		if info, err := os.Stat(path); err == nil && info.Size() == 0 {
			os.Remove(path)
		}
		path += ".png"
		if _, err := os.Stat(path); err == nil {
			dialog.ShowConfirm("Overwrite?", "File exists.  Overwrite?", func(ok bool) {
				if ok {
					onPath(path)
				}
			}, c.win)
			return
		}
		onPath(path)
	}, c.win)
	d.SetFileName("untitled.png")
	c.configure(d)
	d.Show()
}

// Open asks for an existing image file and calls onPath with it.
func (c *Chooser) Open(onPath func(path string)) {
	d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, c.win)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		rc.Close()
		c.dir = filepath.Dir(path)
		onPath(path)
	}, c.win)
	c.configure(d)
	d.Show()
}
