// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package image implements the dense and sparse (run-length encoded)
// pixel buffers exchanged by the compositing strategies, along with
// the codecs that convert between the two and the operators that
// merge them.
//
// A pixel carries an optional color channel and an optional depth
// channel; at least one must be present. The wire layout of both the
// dense Image and the SparseImage is header-prefixed, matching
// spec §3/§4.1: a small fixed descriptor followed by the pixel
// payload, sized as a pure function of (width, height, formats).
package image

import (
	"math"

	"github.com/gviegas/compose/icerr"
)

// ColorFmt identifies the color channel layout of a pixel.
type ColorFmt uint8

// Color formats.
const (
	ColorNone ColorFmt = iota
	// ColorRGBA8 packs four uint8 channels (R,G,B,A).
	ColorRGBA8
	// ColorRGBA32F packs four float32 channels (R,G,B,A).
	ColorRGBA32F
)

// bytesPerPixel returns the size in bytes of one pixel's color data.
func (f ColorFmt) bytesPerPixel() int {
	switch f {
	case ColorNone:
		return 0
	case ColorRGBA8:
		return 4
	case ColorRGBA32F:
		return 16
	default:
		return 0
	}
}

func (f ColorFmt) String() string {
	switch f {
	case ColorNone:
		return "none"
	case ColorRGBA8:
		return "rgba8"
	case ColorRGBA32F:
		return "rgba32f"
	default:
		return "invalid"
	}
}

// DepthFmt identifies the depth channel layout of a pixel.
type DepthFmt uint8

// Depth formats.
const (
	DepthNone DepthFmt = iota
	// DepthF32 is a single float32 channel.
	DepthF32
)

func (f DepthFmt) bytesPerPixel() int {
	switch f {
	case DepthNone:
		return 0
	case DepthF32:
		return 4
	default:
		return 0
	}
}

func (f DepthFmt) String() string {
	switch f {
	case DepthNone:
		return "none"
	case DepthF32:
		return "f32"
	default:
		return "invalid"
	}
}

// Format is the pair of channel formats that parametrizes every
// Image/SparseImage created under it.
type Format struct {
	Color ColorFmt
	Depth DepthFmt
}

// Validate reports an error if neither channel is present.
func (f Format) Validate() error {
	if f.Color == ColorNone && f.Depth == DepthNone {
		return icerr.New(icerr.InvalidValue, "image.Format.Validate", "at least one channel must be present")
	}
	return nil
}

// BytesPerPixel returns the combined size in bytes of one pixel
// across both channels.
func (f Format) BytesPerPixel() int {
	return f.Color.bytesPerPixel() + f.Depth.bytesPerPixel()
}

// FarDepth is the bit pattern that marks a depth sample as empty
// (no fragment rendered there): the all-ones 32-bit pattern, an
// IEEE-754 float32 NaN. This is the stored representation; code that
// needs to compare in normalized depth space should use
// NormalizedDepth instead of comparing bit patterns directly, since
// some hosts treat "far" as the normalized value 1.0.
const FarDepth uint32 = 0xFFFFFFFF

// NormalizedDepth returns the depth value a host comparing in
// normalized [0,1] space would see for the given bit pattern: 1.0 for
// FarDepth, and the IEEE-754 float32 value otherwise.
func NormalizedDepth(bits uint32) float32 {
	if bits == FarDepth {
		return 1.0
	}
	return math.Float32frombits(bits)
}

// Background holds the color used to fill inactive (background)
// pixels, as both its four float components and a precomputed
// representation packed to the color format's native pixel layout
// (spec §3: "background color is 4 floats plus a precomputed packed
// word matching the color format").
type Background struct {
	RGBA   [4]float32
	Packed []byte
	// Correct mirrors state.CorrectColoredBackground: when set, a
	// color-only fragment whose color matches RGBA/Packed exactly is
	// still classified active if its alpha channel is fully opaque,
	// rather than treated as background by color match alone.
	Correct bool
}

// NewBackground precomputes the packed representation of rgba under
// the given color format. Packed is nil when cf is ColorNone.
func NewBackground(rgba [4]float32, cf ColorFmt) Background {
	b := Background{RGBA: rgba}
	switch cf {
	case ColorRGBA8:
		b.Packed = make([]byte, 4)
		for i, c := range rgba {
			v := c * 255
			switch {
			case v <= 0:
				b.Packed[i] = 0
			case v >= 255:
				b.Packed[i] = 255
			default:
				b.Packed[i] = byte(v + 0.5)
			}
		}
	case ColorRGBA32F:
		b.Packed = make([]byte, 16)
		for i, c := range rgba {
			putFloat32(b.Packed[i*4:], c)
		}
	}
	return b
}
