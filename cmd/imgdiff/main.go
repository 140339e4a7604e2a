// Command imgdiff compares two images pixel by pixel, either in the diff
// viewer or headless with an exported composite.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"fyne.io/fyne/v2/app"

	"drawpanel/pkg/config"
	"drawpanel/pkg/logx"
	"drawpanel/pkg/palette"
	"drawpanel/pkg/session"
	"drawpanel/pkg/viewer"
	"drawpanel/pkg/visualtest"
	"drawpanel/pkg/watch"
)

func main() {
	configPath := flag.String("config", "", "TOML configuration file")
	output := flag.String("o", "", "write the composite here and exit without a window")
	opacity := flag.Int("opacity", -1, "initial opacity of image 2, 0-100")
	highlight := flag.Bool("highlight", false, "highlight differing pixels")
	hlColor := flag.String("color", "", "highlight color, a name or #rrggbb")
	follow := flag.Bool("watch", false, "reload images when their files change")
	tolerance := flag.Int("tolerance", 0, "with -o, per-channel difference still counted as a match")
	fuzz := flag.Int("fuzz", 0, "with -o, radius in pixels a match may be shifted by")
	maxPercent := flag.Float64("max-percent", 0, "with -o, share of differing pixels still counted as a match")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: imgdiff [flags] <image1> <image2>\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = applyFlags(&cfg, *opacity, *highlight, *hlColor)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	sess, err := open(cfg, flag.Arg(0), flag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if *output != "" {
		os.Exit(export(os.Stdout, sess, *output, check{
			expected: flag.Arg(0),
			actual:   flag.Arg(1),
			opts:     visualtest.Options{Tolerance: *tolerance, FuzzyRadius: *fuzz, MaxDifferentPercent: *maxPercent},
		}))
	}

	a := app.NewWithID("drawpanel.imgdiff")
	viewer.Open(a, sess, viewer.Options{OnClose: a.Quit})
	if *follow {
		w, err := watch.New(sess, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer w.Close()
		for slot, path := range map[session.Slot]string{session.SlotA: flag.Arg(0), session.SlotB: flag.Arg(1)} {
			if err := w.Add(slot, path); err != nil {
				logx.Logger().Warn("cannot watch image", "path", path, "err", err)
			}
		}
	}
	a.Run()
}

func applyFlags(cfg *config.Config, opacity int, highlight bool, hlColor string) error {
	if opacity >= 0 {
		cfg.Diff.Opacity = opacity
	}
	if highlight {
		cfg.Diff.Highlight = true
	}
	if hlColor != "" {
		if _, err := palette.Parse(hlColor); err != nil {
			return err
		}
		cfg.Diff.HighlightColor = hlColor
		cfg.Diff.Highlight = true
	}
	return cfg.Validate()
}

// open loads both images into a new session.
func open(cfg config.Config, pathA, pathB string) (*session.Session, error) {
	opts, err := cfg.SessionOptions()
	if err != nil {
		return nil, err
	}
	sess := session.New(opts...)
	if err := sess.SetImageA(session.FromFile(pathA)); err != nil {
		return nil, err
	}
	if err := sess.SetImageB(session.FromFile(pathB)); err != nil {
		return nil, err
	}
	return sess, nil
}

// check selects how export decides the exit code. Exact options use the
// diff count alone.
type check struct {
	expected, actual string
	opts             visualtest.Options
}

// export writes the composite, reports the count and returns the exit
// code: 0 when the images match, 1 when they differ, 2 on failure.
func export(out io.Writer, sess *session.Session, path string, c check) int {
	defer sess.Close()
	if err := sess.ExportComposite(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	res := sess.Result()
	fmt.Fprintf(out, "(%d pixels differ) %.2f%%\n", res.Count, res.Percent())
	if c.opts.Exact() {
		if res.Count > 0 {
			return 1
		}
		return 0
	}

	loose, err := visualtest.CompareFiles(c.actual, c.expected, c.opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	fmt.Fprintf(out, "match: %v (max channel difference %d)\n", loose.Match, loose.MaxDifference)
	if !loose.Match {
		return 1
	}
	return 0
}
