package palette

import (
	"image/color"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		want color.RGBA
	}{
		{"BLACK", color.RGBA{0, 0, 0, 255}},
		{"DARK_GRAY", color.RGBA{64, 64, 64, 255}},
		{"light-grey", color.RGBA{192, 192, 192, 255}},
		{" White ", color.RGBA{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		got, ok := Lookup(tt.name)
		if !ok || got != tt.want {
			t.Errorf("Lookup(%q) = %v, %v; want %v", tt.name, got, ok, tt.want)
		}
	}
	if _, ok := Lookup("chartreuse"); ok {
		t.Error("unexpected match for unknown name")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#ffe400", color.RGBA{255, 228, 0, 255}},
		{"ffe400", color.RGBA{255, 228, 0, 255}},
		{"#fff", color.RGBA{255, 255, 255, 255}},
		{"blue", color.RGBA{0, 0, 255, 255}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := Parse("#zzzzzz"); err == nil {
		t.Error("expected error for invalid hex")
	}
}

func TestHex(t *testing.T) {
	if got := Hex(color.RGBA{255, 228, 0, 255}); got != "#ffe400" {
		t.Errorf("Hex = %s, want #ffe400", got)
	}
}

func TestPaletteIsImmutable(t *testing.T) {
	src := []color.Color{color.Black, color.White}
	p := New(src...)
	src[0] = color.Transparent
	if p.At(0) != color.Black {
		t.Error("palette aliased its input")
	}
	cs := p.Colors()
	cs[1] = color.Transparent
	if p.At(1) != color.White {
		t.Error("palette aliased Colors() result")
	}
}

func TestRotationsAreIndependent(t *testing.T) {
	a := Lights.Rotation(0)
	b := Lights.Rotation(3)
	a.Next()
	a.Next()
	if a.Index() != 2 || b.Index() != 3 {
		t.Errorf("indices = %d, %d; want 2, 3", a.Index(), b.Index())
	}
	for i := 0; i < Lights.Len(); i++ {
		b.Next()
	}
	if b.Current() != Lights.At(3) {
		t.Error("rotation did not wrap around")
	}
	if Lights.At(-1) != Lights.At(5) {
		t.Error("negative index should wrap")
	}
	if (Palette{}).At(0) != color.Transparent {
		t.Error("empty palette should yield transparent")
	}
}
