// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package image

import (
	"bytes"
	"math"
	"testing"
)

func sparseFromDepths(t *testing.T, depths []float32) (*SparseImage, Background, Format) {
	t.Helper()
	f := Format{Color: ColorRGBA8, Depth: DepthF32}
	n := len(depths)
	im, bg := makeTestImage(t, n, 1, f)
	cp, _ := im.ColorRGBA8()
	dp, _ := im.Depth()
	for i, d := range depths {
		cp.Set(i, [4]uint8{byte(i + 1), byte(i + 1), byte(i + 1), 255})
		dp.Set(i, math.Float32bits(d))
	}
	buf := make([]byte, SparseBufferSize(n, 1, f))
	s, err := CompressImage(im, bg, buf)
	if err != nil {
		t.Fatalf("CompressImage: %v", err)
	}
	return s, bg, f
}

func TestZBufferPicksNearer(t *testing.T) {
	a, bg, f := sparseFromDepths(t, []float32{0.1, 0.9})
	b, _, _ := sparseFromDepths(t, []float32{0.5, 0.2})

	buf := make([]byte, SparseBufferSize(2, 1, f))
	out, err := CompositeCompressedCompressed(a, b, ZBuffer, bg, buf)
	if err != nil {
		t.Fatalf("CompositeCompressedCompressed: %v", err)
	}

	dst, _ := makeTestImage(t, 2, 1, f)
	if err := DecompressImage(out, dst, bg); err != nil {
		t.Fatalf("DecompressImage: %v", err)
	}
	dp, _ := dst.Depth()
	// Pixel 0: a=0.1 is nearer than b=0.5 -> a wins.
	if got := NormalizedDepth(dp.At(0)); got != 0.1 {
		t.Errorf("pixel 0 depth: got %v, want 0.1 (a wins)", got)
	}
	// Pixel 1: b=0.2 is nearer than a=0.9 -> b wins.
	if got := NormalizedDepth(dp.At(1)); got != 0.2 {
		t.Errorf("pixel 1 depth: got %v, want 0.2 (b wins)", got)
	}
}

// TestZBufferAssociative covers property 3: for three operands with
// distinct depths, merging pairwise associates.
func TestZBufferAssociative(t *testing.T) {
	a, bg, f := sparseFromDepths(t, []float32{0.3})
	b, _, _ := sparseFromDepths(t, []float32{0.1})
	c, _, _ := sparseFromDepths(t, []float32{0.2})

	merge := func(x, y *SparseImage) *SparseImage {
		buf := make([]byte, SparseBufferSize(1, 1, f))
		out, err := CompositeCompressedCompressed(x, y, ZBuffer, bg, buf)
		if err != nil {
			t.Fatalf("CompositeCompressedCompressed: %v", err)
		}
		return out
	}

	left := merge(merge(a, b), c)
	right := merge(a, merge(b, c))

	if !bytes.Equal(left.buf, right.buf) {
		t.Errorf("associativity: merge(merge(a,b),c) != merge(a,merge(b,c))\nleft  %v\nright %v", left.buf, right.buf)
	}
	// The globally nearest depth (b, 0.1) must win regardless of
	// grouping.
	dst, _ := makeTestImage(t, 1, 1, f)
	DecompressImage(left, dst, bg)
	dp, _ := dst.Depth()
	if got := NormalizedDepth(dp.At(0)); got != 0.1 {
		t.Errorf("winning depth: got %v, want 0.1", got)
	}
}

func TestBlendOverFormula(t *testing.T) {
	f := Format{Color: ColorRGBA32F}
	front, bg := makeTestImage(t, 1, 1, f)
	back, _ := makeTestImage(t, 1, 1, f)

	fcp, _ := front.ColorRGBA32F()
	fcp.Set(0, [4]float32{1, 0, 0, 0.5})
	bcp, _ := back.ColorRGBA32F()
	bcp.Set(0, [4]float32{0, 1, 0, 1})

	fbuf := make([]byte, SparseBufferSize(1, 1, f))
	bbuf := make([]byte, SparseBufferSize(1, 1, f))
	fs, err := CompressImage(front, bg, fbuf)
	if err != nil {
		t.Fatalf("CompressImage(front): %v", err)
	}
	bs, err := CompressImage(back, bg, bbuf)
	if err != nil {
		t.Fatalf("CompressImage(back): %v", err)
	}

	obuf := make([]byte, SparseBufferSize(1, 1, f))
	out, err := CompositeCompressedCompressed(fs, bs, Blend, bg, obuf)
	if err != nil {
		t.Fatalf("CompositeCompressedCompressed: %v", err)
	}

	dst, _ := makeTestImage(t, 1, 1, f)
	if err := DecompressImage(out, dst, bg); err != nil {
		t.Fatalf("DecompressImage: %v", err)
	}
	cp, _ := dst.ColorRGBA32F()
	got := cp.At(0)
	want := [4]float32{1, 0.5, 0, 1} // front + (1-0.5)*back
	for k := range want {
		if diff := got[k] - want[k]; diff > 1e-5 || diff < -1e-5 {
			t.Errorf("channel %d: got %v, want %v", k, got[k], want[k])
		}
	}
}

func TestCompositeModeMismatchRejected(t *testing.T) {
	f := Format{Color: ColorRGBA8}
	im, bg := makeTestImage(t, 1, 1, f)
	buf := make([]byte, SparseBufferSize(1, 1, f))
	s, err := CompressImage(im, bg, buf)
	if err != nil {
		t.Fatalf("CompressImage: %v", err)
	}
	obuf := make([]byte, SparseBufferSize(1, 1, f))
	if _, err := CompositeCompressedCompressed(s, s, ZBuffer, bg, obuf); err == nil {
		t.Error("z_buffer composite on color-only operands: want error, got nil")
	}
}

func TestCompositeCompressedDenseInPlace(t *testing.T) {
	f := Format{Color: ColorRGBA8, Depth: DepthF32}
	src, bg := makeTestImage(t, 1, 1, f)
	scp, _ := src.ColorRGBA8()
	sdp, _ := src.Depth()
	scp.Set(0, [4]uint8{9, 9, 9, 255})
	sdp.Set(0, math.Float32bits(0.1))

	dst, _ := makeTestImage(t, 1, 1, f)
	dcp, _ := dst.ColorRGBA8()
	ddp, _ := dst.Depth()
	dcp.Set(0, [4]uint8{1, 1, 1, 255})
	ddp.Set(0, math.Float32bits(0.9))

	buf := make([]byte, SparseBufferSize(1, 1, f))
	sparse, err := CompressImage(src, bg, buf)
	if err != nil {
		t.Fatalf("CompressImage: %v", err)
	}
	if err := CompositeCompressedDense(sparse, dst, ZBuffer, bg, true); err != nil {
		t.Fatalf("CompositeCompressedDense: %v", err)
	}
	if got := ddp.At(0); got != math.Float32bits(0.1) {
		t.Errorf("depth: got %#x, want src's (nearer)", got)
	}
	if got := dcp.At(0); got != [4]uint8{9, 9, 9, 255} {
		t.Errorf("color: got %v, want src's", got)
	}
}
