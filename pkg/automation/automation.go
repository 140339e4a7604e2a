// Package automation drives a drawing surface without user interaction so
// an external harness can capture a deterministic snapshot.
//
// Two environment variables select the mode. When DRAWINGPANEL_DIFF names
// an expected image, the surface is compared against it once the settle
// delay has passed and the comparison is handed to a viewer. Otherwise,
// when DRAWINGPANEL_SAVE names a path, the surface is exported there and
// the process exits. Diff mode wins when both are set.
package automation

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"drawpanel/pkg/logx"
	"drawpanel/pkg/pixel"
	"drawpanel/pkg/session"
	"drawpanel/pkg/surface"
)

const (
	// SaveEnv names the auto-save path.
	SaveEnv = "DRAWINGPANEL_SAVE"
	// DiffEnv names the expected image for auto-diff.
	DiffEnv = "DRAWINGPANEL_DIFF"

	// SettlePeriods is the settle delay in refresh periods.
	SettlePeriods = 4
)

// ErrClosedBeforeSettle is reported through Deps.Done when the surface is
// closed before the settle delay has passed.
var ErrClosedBeforeSettle = errors.New("surface closed before settle delay")

// Mode is the automation behavior chosen for a run.
type Mode int

const (
	Off Mode = iota
	Save
	Diff
)

func (m Mode) String() string {
	switch m {
	case Save:
		return "save"
	case Diff:
		return "diff"
	}
	return "off"
}

// Config holds the two automation paths. Presence, not content, selects
// the mode.
type Config struct {
	SavePath string
	DiffPath string
}

// FromEnv reads Config with getenv, typically os.Getenv.
func FromEnv(getenv func(string) string) Config {
	return Config{
		SavePath: getenv(SaveEnv),
		DiffPath: getenv(DiffEnv),
	}
}

// Mode returns the mode this configuration selects.
func (c Config) Mode() Mode {
	switch {
	case c.DiffPath != "":
		return Diff
	case c.SavePath != "":
		return Save
	}
	return Off
}

// Deps are the side effects automation needs. Zero values fall back to
// logging only (OpenDiff) and os.Exit (Exit).
type Deps struct {
	// OpenDiff shows a comparison session, typically in a viewer window
	// whose closing ends the program.
	OpenDiff func(*session.Session)
	// Exit terminates the program after an auto-save.
	Exit func(code int)
	// Done, if set, is called exactly once with the outcome: after the
	// action ran, or with ErrClosedBeforeSettle.
	Done func(error)
	// SessionOptions configure the session built in diff mode.
	SessionOptions []session.Option
}

// Attach arms automation on s. It returns the selected mode; Off means
// nothing was attached.
//
// The action fires on the first refresh at least SettlePeriods periods
// after the surface was created. Whatever has been drawn by then is what
// gets saved or compared, even if the client is still drawing. If the
// surface is closed first, nothing is saved or compared and Done receives
// ErrClosedBeforeSettle.
func Attach(s *surface.Surface, cfg Config, deps Deps) Mode {
	mode := cfg.Mode()
	if mode == Off {
		return Off
	}
	if deps.Exit == nil {
		deps.Exit = os.Exit
	}
	deadline := s.CreatedAt().Add(SettlePeriods * s.Period())
	logx.Logger().Info("automation armed", "mode", mode.String(), "deadline", deadline)

	var fired atomic.Bool
	s.AddRefreshHook(func(now time.Time) bool {
		if now.Before(deadline) {
			return false
		}
		if fired.CompareAndSwap(false, true) {
			// Run off the refresh goroutine; save mode closes the surface.
			go run(s, cfg, mode, deps)
		}
		return true
	})
	// Close stops the schedule before running this, so the refresh hook
	// above can no longer fire once it has lost the race here.
	s.OnClose(func() {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		logx.Logger().Warn("automation skipped", "mode", mode.String(), "err", ErrClosedBeforeSettle)
		if deps.Done != nil {
			deps.Done(ErrClosedBeforeSettle)
		}
	})
	return mode
}

func run(s *surface.Surface, cfg Config, mode Mode, deps Deps) {
	var err error
	switch mode {
	case Diff:
		err = runDiff(s, cfg.DiffPath, deps)
	case Save:
		err = runSave(s, cfg.SavePath)
	}
	if deps.Done != nil {
		deps.Done(err)
	}
	if mode == Save {
		deps.Exit(0)
	}
}

func runDiff(s *surface.Surface, expected string, deps Deps) error {
	actual := pixel.FromImage(s.Snapshot())
	sess, err := session.Compare(expected, actual, deps.SessionOptions...)
	if err != nil {
		logx.Logger().Error("error diffing image", "expected", expected, "err", err)
		return fmt.Errorf("auto-diff: %w", err)
	}
	n, _ := sess.DiffCount()
	logx.Logger().Info("auto-diff complete", "expected", expected, "differing", n)
	if deps.OpenDiff != nil {
		deps.OpenDiff(sess)
	}
	return nil
}

// runSave exports and closes the surface. The process exits even when the
// export fails; the error is logged.
func runSave(s *surface.Surface, path string) error {
	err := s.Export(path)
	if err != nil {
		logx.Logger().Error("error saving image", "path", path, "err", err)
		err = fmt.Errorf("auto-save: %w", err)
	}
	s.Close()
	return err
}
