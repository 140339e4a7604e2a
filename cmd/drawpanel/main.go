// Command drawpanel runs a JavaScript drawing program on persistent
// drawing surfaces, in windows or headless.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"drawpanel/pkg/automation"
	"drawpanel/pkg/config"
	"drawpanel/pkg/logx"
	"drawpanel/pkg/surface"
)

func main() {
	configPath := flag.String("config", "", "TOML configuration file")
	headless := flag.Bool("headless", false, "draw without opening windows")
	output := flag.String("o", "", "export the first panel here when the script finishes (headless)")
	period := flag.String("period", "", "refresh period, e.g. 250ms")
	noAA := flag.Bool("no-antialias", false, "disable anti-aliasing for new panels")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: drawpanel [flags] <script.js>\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	setupLogging(*verbose)

	cfg, err := loadConfig(*configPath, os.Getenv, func(c *config.Config) {
		if *period != "" {
			c.Period = *period
		}
		if *noAA {
			c.Antialias = false
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	surface.SetDefaultAntialias(cfg.Antialias)

	opts, err := surfaceOptions(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	script := flag.Arg(0)
	if *headless {
		os.Exit(runHeadless(script, *output, cfg, opts))
	}
	runWindowed(script, cfg, opts)
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig layers the config file, the environment and then flags.
func loadConfig(path string, getenv func(string) string, flags func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}
	if flags != nil {
		flags(&cfg)
	}
	return cfg, cfg.Validate()
}

func surfaceOptions(cfg config.Config) ([]surface.Option, error) {
	period, err := cfg.RefreshPeriod()
	if err != nil {
		return nil, err
	}
	bg, err := cfg.BackgroundColor()
	if err != nil {
		return nil, err
	}
	return []surface.Option{surface.WithPeriod(period), surface.WithBackground(bg)}, nil
}

// attach arms automation on the first panel a script creates. Later panels
// are left alone. armed reports whether Done will be called.
type attacher struct {
	cfg   automation.Config
	deps  automation.Deps
	tried bool
	armed bool
}

func (a *attacher) attach(s *surface.Surface) {
	if a.tried {
		return
	}
	a.tried = true
	a.armed = automation.Attach(s, a.cfg, a.deps) != automation.Off
}
