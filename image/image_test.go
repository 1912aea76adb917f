// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package image

import "testing"

func TestAssignBuffer(t *testing.T) {
	f := Format{Color: ColorRGBA8, Depth: DepthF32}
	buf := make([]byte, BufferSize(4, 3, f))
	im, err := AssignBuffer(buf, 4, 3, f)
	if err != nil {
		t.Fatalf("AssignBuffer: %v", err)
	}
	if im.Width() != 4 || im.Height() != 3 {
		t.Fatalf("dimensions: got %dx%d, want 4x3", im.Width(), im.Height())
	}
	if im.NumPixels() != 12 {
		t.Fatalf("NumPixels: got %d, want 12", im.NumPixels())
	}
	if im.Format() != f {
		t.Fatalf("Format: got %+v, want %+v", im.Format(), f)
	}
}

func TestAssignBufferTooSmall(t *testing.T) {
	f := Format{Color: ColorRGBA8}
	buf := make([]byte, BufferSize(4, 4, f)-1)
	if _, err := AssignBuffer(buf, 4, 4, f); err == nil {
		t.Fatal("AssignBuffer: want error for undersized buffer, got nil")
	}
}

func TestAssignBufferBadFormat(t *testing.T) {
	buf := make([]byte, 64)
	if _, err := AssignBuffer(buf, 4, 4, Format{}); err == nil {
		t.Fatal("AssignBuffer: want error for empty format, got nil")
	}
}

func TestClear(t *testing.T) {
	f := Format{Color: ColorRGBA8, Depth: DepthF32}
	buf := make([]byte, BufferSize(2, 2, f))
	im, _ := AssignBuffer(buf, 2, 2, f)
	bg := NewBackground([4]float32{0.2, 0.4, 0.6, 0.8}, ColorRGBA8)
	im.Clear(bg)

	cp, _ := im.ColorRGBA8()
	dp, _ := im.Depth()
	want := [4]byte{bg.Packed[0], bg.Packed[1], bg.Packed[2], bg.Packed[3]}
	for i := 0; i < im.NumPixels(); i++ {
		if got := cp.At(i); got != want {
			t.Errorf("pixel %d color: got %v, want %v", i, got, want)
		}
		if got := dp.At(i); got != FarDepth {
			t.Errorf("pixel %d depth: got %#x, want FarDepth", i, got)
		}
	}
}

func TestColorAccessorMismatch(t *testing.T) {
	f := Format{Color: ColorRGBA32F}
	buf := make([]byte, BufferSize(1, 1, f))
	im, _ := AssignBuffer(buf, 1, 1, f)
	if _, err := im.ColorRGBA8(); err == nil {
		t.Fatal("ColorRGBA8 on an rgba32f image: want error, got nil")
	}
	if _, err := im.Depth(); err == nil {
		t.Fatal("Depth on a color-only image: want error, got nil")
	}
}

func TestIsActiveColorOnly(t *testing.T) {
	f := Format{Color: ColorRGBA8}
	buf := make([]byte, BufferSize(3, 1, f))
	im, _ := AssignBuffer(buf, 3, 1, f)
	bg := NewBackground([4]float32{0, 0, 0, 0}, ColorRGBA8)
	im.Clear(bg)
	cp, _ := im.ColorRGBA8()
	cp.Set(1, [4]uint8{255, 0, 0, 255})

	want := []bool{false, true, false}
	for i, w := range want {
		if got := isActive(im, i, bg); got != w {
			t.Errorf("isActive(%d): got %v, want %v", i, got, w)
		}
	}
}

// TestIsActiveCorrectColoredBackground exercises the known tradeoff of
// an opaque background color: with Correct unset, a pixel whose sample
// byte-for-byte equals the (already opaque) background is classified
// inactive regardless of whether it was ever drawn; with Correct set,
// any fully-opaque sample is trusted as a real fragment instead,
// including one that happens to equal the background exactly.
func TestIsActiveCorrectColoredBackground(t *testing.T) {
	f := Format{Color: ColorRGBA8}
	buf := make([]byte, BufferSize(1, 1, f))
	im, _ := AssignBuffer(buf, 1, 1, f)
	bg := NewBackground([4]float32{0.2, 0.4, 0.6, 1}, ColorRGBA8)
	im.Clear(bg)

	if isActive(im, 0, bg) {
		t.Error("isActive: want false for an untouched opaque-background pixel with Correct unset")
	}
	bg.Correct = true
	if !isActive(im, 0, bg) {
		t.Error("isActive: want true once Correct trusts full opacity over color match")
	}
}

func TestIsActiveDepthTakesPriority(t *testing.T) {
	f := Format{Color: ColorRGBA8, Depth: DepthF32}
	buf := make([]byte, BufferSize(1, 1, f))
	im, _ := AssignBuffer(buf, 1, 1, f)
	bg := NewBackground([4]float32{0, 0, 0, 0}, ColorRGBA8)
	im.Clear(bg)
	// Color differs from background but depth is still FarDepth: with
	// a depth channel present, depth alone decides activity.
	cp, _ := im.ColorRGBA8()
	cp.Set(0, [4]uint8{1, 2, 3, 4})
	if isActive(im, 0, bg) {
		t.Error("isActive: want false (depth is FarDepth), got true")
	}
	dp, _ := im.Depth()
	dp.Set(0, 0)
	if !isActive(im, 0, bg) {
		t.Error("isActive: want true (depth is not FarDepth), got false")
	}
}
