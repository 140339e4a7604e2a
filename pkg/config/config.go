// Package config loads settings for the drawpanel commands from an
// optional TOML file and the environment.
package config

import (
	"fmt"
	"image/color"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"drawpanel/pkg/automation"
	"drawpanel/pkg/logx"
	"drawpanel/pkg/palette"
	"drawpanel/pkg/refresh"
	"drawpanel/pkg/session"
)

// Environment variables read by ApplyEnv, besides the automation ones.
const (
	PeriodEnv    = "DRAWINGPANEL_PERIOD"
	AntialiasEnv = "DRAWINGPANEL_ANTIALIAS"
)

// Config is the merged command configuration.
type Config struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Period     string `toml:"refresh_period"`
	Background string `toml:"background"`
	Antialias  bool   `toml:"antialias"`

	Diff DiffConfig `toml:"diff"`

	Save     string `toml:"save"`
	DiffWith string `toml:"diff_with"`
}

// DiffConfig holds diff viewer defaults.
type DiffConfig struct {
	Opacity        int    `toml:"opacity"`
	Highlight      bool   `toml:"highlight"`
	HighlightColor string `toml:"highlight_color"`
	Background     string `toml:"background"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Width:      500,
		Height:     400,
		Period:     refresh.DefaultPeriod.String(),
		Background: "white",
		Antialias:  true,
		Diff: DiffConfig{
			Opacity:        session.DefaultOpacity,
			HighlightColor: palette.Hex(session.DefaultHighlightColor),
			Background:     palette.Hex(session.DefaultBackground),
		},
	}
}

// Load returns Default overlaid with the TOML file at path. An empty path
// skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("loading config %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		logx.Logger().Warn("unknown config key", "file", path, "key", key.String())
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. Automation paths are
// taken whenever present.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	auto := automation.FromEnv(getenv)
	if auto.SavePath != "" {
		c.Save = auto.SavePath
	}
	if auto.DiffPath != "" {
		c.DiffWith = auto.DiffPath
	}
	if v := getenv(PeriodEnv); v != "" {
		c.Period = v
	}
	if v := getenv(AntialiasEnv); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", AntialiasEnv, err)
		}
		c.Antialias = on
	}
	return nil
}

// Validate checks every field that has to parse.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", c.Width, c.Height)
	}
	if _, err := c.RefreshPeriod(); err != nil {
		return err
	}
	for _, s := range []string{c.Background, c.Diff.HighlightColor, c.Diff.Background} {
		if _, err := palette.Parse(s); err != nil {
			return err
		}
	}
	return nil
}

// RefreshPeriod parses Period.
func (c Config) RefreshPeriod() (time.Duration, error) {
	d, err := time.ParseDuration(c.Period)
	if err != nil {
		return 0, fmt.Errorf("refresh_period: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("refresh_period must be positive, got %s", c.Period)
	}
	return d, nil
}

// BackgroundColor parses Background.
func (c Config) BackgroundColor() (color.RGBA, error) {
	return palette.Parse(c.Background)
}

// Automation returns the automation paths.
func (c Config) Automation() automation.Config {
	return automation.Config{SavePath: c.Save, DiffPath: c.DiffWith}
}

// SessionOptions converts the diff defaults into session options.
func (c Config) SessionOptions() ([]session.Option, error) {
	hl, err := palette.Parse(c.Diff.HighlightColor)
	if err != nil {
		return nil, err
	}
	bg, err := palette.Parse(c.Diff.Background)
	if err != nil {
		return nil, err
	}
	return []session.Option{
		session.WithOpacity(c.Diff.Opacity),
		session.WithHighlight(c.Diff.Highlight, hl),
		session.WithBackground(bg),
	}, nil
}
