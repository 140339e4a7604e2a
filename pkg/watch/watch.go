// Package watch reloads diff session images when their files change on
// disk.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"drawpanel/pkg/logx"
	"drawpanel/pkg/session"
)

// ReloadFunc is told about every reload attempt. err is nil on success.
type ReloadFunc func(slot session.Slot, path string, err error)

// Watcher follows the files behind a session's image slots.
//
// Directories are watched rather than files so that editors and codec.Save,
// which replace a file by renaming over it, keep triggering reloads.
type Watcher struct {
	sess     *session.Session
	fw       *fsnotify.Watcher
	onReload ReloadFunc

	mu    sync.Mutex
	slots map[string]session.Slot
	dirs  map[string]bool

	done      chan struct{}
	closeOnce sync.Once
}

// New starts a watcher feeding sess. onReload may be nil.
func New(sess *session.Session, onReload ReloadFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		sess:     sess,
		fw:       fw,
		onReload: onReload,
		slots:    make(map[string]session.Slot),
		dirs:     make(map[string]bool),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Add follows path for slot. A slot follows at most one file; adding it
// again replaces the previous path.
func (w *Watcher) Add(slot session.Slot, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirs[dir] {
		if err := w.fw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	for p, s := range w.slots {
		if s == slot {
			delete(w.slots, p)
		}
	}
	w.slots[abs] = slot
	logx.Logger().Debug("watching image", "slot", slot.String(), "path", abs)
	return nil
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fw.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.mu.Lock()
			slot, ok := w.slots[filepath.Clean(ev.Name)]
			w.mu.Unlock()
			if ok {
				w.reload(slot, ev.Name)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logx.Logger().Warn("watch error", "err", err)
		}
	}
}

// reload keeps the previous image when the file cannot be decoded, which
// is normal while a writer is still part way through.
func (w *Watcher) reload(slot session.Slot, path string) {
	err := w.sess.SetImage(slot, session.FromFile(path))
	if err != nil {
		logx.Logger().Debug("reload failed", "slot", slot.String(), "path", path, "err", err)
	} else {
		logx.Logger().Info("image reloaded", "slot", slot.String(), "path", path)
	}
	if w.onReload != nil {
		w.onReload(slot, path, err)
	}
}
