package main

import (
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"drawpanel/pkg/automation"
	"drawpanel/pkg/config"
	"drawpanel/pkg/display"
	"drawpanel/pkg/logx"
	"drawpanel/pkg/pixel"
	"drawpanel/pkg/script"
	"drawpanel/pkg/session"
	"drawpanel/pkg/surface"
	"drawpanel/pkg/viewer"
)

// runHeadless runs the script without a window system and returns the
// process exit code.
func runHeadless(path, output string, cfg config.Config, opts []surface.Option) int {
	log := logx.Logger()
	sessOpts, err := cfg.SessionOptions()
	if err != nil {
		log.Error("invalid diff settings", "err", err)
		return 2
	}
	done := make(chan error, 1)
	auto := &attacher{cfg: cfg.Automation(), deps: automation.Deps{
		Done:           func(err error) { done <- err },
		Exit:           func(int) {},
		SessionOptions: sessOpts,
	}}

	eng := script.New(
		script.WithDefaultSize(cfg.Width, cfg.Height),
		script.WithSessionOptions(sessOpts...),
		script.WithFactory(func(w, h int) (*surface.Surface, error) {
			s, err := surface.Create(w, h, opts...)
			if err == nil {
				auto.attach(s)
			}
			return s, err
		}),
	)
	runErr := eng.RunFile(path)
	if runErr != nil {
		log.Error("script failed", "script", path, "err", runErr)
	}

	panels := eng.Panels()
	if auto.armed {
		if err := <-done; err != nil {
			runErr = err
		}
	}
	if output != "" && len(panels) > 0 {
		if err := panels[0].Export(output); err != nil {
			log.Error("error saving image", "path", output, "err", err)
			runErr = err
		}
	}
	for _, s := range panels {
		s.Close()
	}
	if runErr != nil {
		return 1
	}
	return 0
}

// runWindowed gives every panel a window and runs the fyne event loop on
// the main goroutine while the script runs on another.
func runWindowed(path string, cfg config.Config, opts []surface.Option) {
	a := app.NewWithID("drawpanel")
	log := logx.Logger()

	sessOpts, err := cfg.SessionOptions()
	if err != nil {
		log.Error("invalid diff settings", "err", err)
		os.Exit(2)
	}
	openDiff := func(sess *session.Session) {
		viewer.Open(a, sess, viewer.Options{})
	}

	auto := &attacher{cfg: cfg.Automation(), deps: automation.Deps{
		OpenDiff:       func(sess *session.Session) { fyne.Do(func() { openDiff(sess) }) },
		Exit:           os.Exit,
		SessionOptions: sessOpts,
	}}

	var eng *script.Engine
	factory := func(w, h int) (*surface.Surface, error) {
		withWindow := surface.WithDisplayFunc(func(s *surface.Surface) display.Display {
			var win *display.Window
			fyne.DoAndWait(func() {
				win = display.NewWindow(a, w, h, display.WindowOptions{
					SaveAs: s.Export,
					Compare: func(expected string) error {
						sess, err := session.Compare(expected, pixel.FromImage(s.Snapshot()), sessOpts...)
						if err != nil {
							return err
						}
						openDiff(sess)
						return nil
					},
					OnExit: func() {
						eng.Interrupt("window closed")
						a.Quit()
					},
				})
			})
			return win
		})
		s, err := surface.Create(w, h, append(opts[:len(opts):len(opts)], withWindow)...)
		if err == nil {
			auto.attach(s)
		}
		return s, err
	}
	eng = script.New(
		script.WithDefaultSize(cfg.Width, cfg.Height),
		script.WithSessionOptions(sessOpts...),
		script.WithFactory(factory),
	)

	go func() {
		if err := eng.RunFile(path); err != nil {
			log.Error("script failed", "script", path, "err", err)
			if len(eng.Panels()) == 0 {
				fyne.Do(a.Quit)
			}
			return
		}
		if len(eng.Panels()) == 0 {
			fyne.Do(a.Quit)
		}
	}()
	a.Run()
	for _, s := range eng.Panels() {
		s.Close()
	}
}
