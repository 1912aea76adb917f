// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package image

import "testing"

func TestFormatValidate(t *testing.T) {
	if err := (Format{}).Validate(); err == nil {
		t.Fatal("Format{}.Validate: want error, got nil")
	}
	if err := (Format{Color: ColorRGBA8}).Validate(); err != nil {
		t.Fatalf("Format{Color: ColorRGBA8}.Validate: %v", err)
	}
	if err := (Format{Depth: DepthF32}).Validate(); err != nil {
		t.Fatalf("Format{Depth: DepthF32}.Validate: %v", err)
	}
}

func TestBytesPerPixel(t *testing.T) {
	cases := []struct {
		f    Format
		want int
	}{
		{Format{Color: ColorRGBA8}, 4},
		{Format{Color: ColorRGBA32F}, 16},
		{Format{Depth: DepthF32}, 4},
		{Format{Color: ColorRGBA8, Depth: DepthF32}, 8},
		{Format{Color: ColorRGBA32F, Depth: DepthF32}, 20},
	}
	for _, c := range cases {
		if got := c.f.BytesPerPixel(); got != c.want {
			t.Errorf("%+v.BytesPerPixel: got %d, want %d", c.f, got, c.want)
		}
	}
}

func TestNormalizedDepth(t *testing.T) {
	if got := NormalizedDepth(FarDepth); got != 1.0 {
		t.Errorf("NormalizedDepth(FarDepth): got %v, want 1.0", got)
	}
	const bits = 0x3f000000 // 0.5f
	if got := NormalizedDepth(bits); got != 0.5 {
		t.Errorf("NormalizedDepth(0.5f bits): got %v, want 0.5", got)
	}
}

func TestNewBackgroundRGBA8(t *testing.T) {
	bg := NewBackground([4]float32{1, 0, 0.5, 0}, ColorRGBA8)
	want := [4]byte{255, 0, 128, 0}
	for i, v := range want {
		if bg.Packed[i] != v {
			t.Errorf("Packed[%d]: got %d, want %d", i, bg.Packed[i], v)
		}
	}
}

func TestNewBackgroundRGBA32F(t *testing.T) {
	bg := NewBackground([4]float32{0.25, 0.5, 0.75, 1}, ColorRGBA32F)
	if len(bg.Packed) != 16 {
		t.Fatalf("len(Packed): got %d, want 16", len(bg.Packed))
	}
	for i, want := range [4]float32{0.25, 0.5, 0.75, 1} {
		if got := getFloat32(bg.Packed[i*4:]); got != want {
			t.Errorf("Packed float[%d]: got %v, want %v", i, got, want)
		}
	}
}

func TestNewBackgroundColorNone(t *testing.T) {
	bg := NewBackground([4]float32{}, ColorNone)
	if bg.Packed != nil {
		t.Errorf("Packed: got %v, want nil", bg.Packed)
	}
}
