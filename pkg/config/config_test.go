package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"drawpanel/pkg/automation"
	"drawpanel/pkg/session"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	d, _ := cfg.RefreshPeriod()
	if d != 250*time.Millisecond {
		t.Errorf("period = %v, want 250ms", d)
	}
	if cfg.Automation().Mode() != automation.Off {
		t.Error("default config should not enable automation")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.toml")
	data := `
width = 120
height = 80
refresh_period = "100ms"
background = "#102030"

[diff]
opacity = 75
highlight = true
highlight_color = "red"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 120 || cfg.Height != 80 {
		t.Errorf("size = %dx%d, want 120x80", cfg.Width, cfg.Height)
	}
	if bg, _ := cfg.BackgroundColor(); bg != (color.RGBA{0x10, 0x20, 0x30, 255}) {
		t.Errorf("background = %v", bg)
	}
	if !cfg.Antialias {
		t.Error("unset keys should keep their defaults")
	}

	opts, err := cfg.SessionOptions()
	if err != nil {
		t.Fatal(err)
	}
	s := session.New(opts...)
	if s.Opacity() != 75 || !s.Highlight() || s.HighlightColor() != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("session options not applied: opacity=%d highlight=%v color=%v",
			s.Opacity(), s.Highlight(), s.HighlightColor())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(bad, []byte("width = \"wide\""), 0o644)
	if _, err := Load(bad); err == nil {
		t.Error("expected error for mistyped value")
	}
}

func TestApplyEnv(t *testing.T) {
	vars := map[string]string{
		automation.SaveEnv: "out.png",
		automation.DiffEnv: "expected.png",
		PeriodEnv:          "50ms",
		AntialiasEnv:       "false",
	}
	cfg := Default()
	if err := cfg.ApplyEnv(func(k string) string { return vars[k] }); err != nil {
		t.Fatal(err)
	}
	if cfg.Save != "out.png" || cfg.DiffWith != "expected.png" {
		t.Errorf("automation paths = %q, %q", cfg.Save, cfg.DiffWith)
	}
	if cfg.Automation().Mode() != automation.Diff {
		t.Error("diff should take precedence")
	}
	if d, _ := cfg.RefreshPeriod(); d != 50*time.Millisecond {
		t.Errorf("period = %v, want 50ms", d)
	}
	if cfg.Antialias {
		t.Error("antialias should be off")
	}

	vars[AntialiasEnv] = "sometimes"
	if err := cfg.ApplyEnv(func(k string) string { return vars[k] }); err == nil {
		t.Error("expected error for bad boolean")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"bad period", func(c *Config) { c.Period = "soon" }},
		{"negative period", func(c *Config) { c.Period = "-1s" }},
		{"bad color", func(c *Config) { c.Background = "#nothex" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
