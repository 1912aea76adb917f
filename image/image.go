// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package image

import (
	"github.com/gviegas/compose/icerr"
)

// BufferSize returns the deterministic size, in bytes, of a dense
// Image buffer for the given dimensions and formats (spec §4.1
// image_buffer_size).
func BufferSize(w, h int, f Format) int {
	return denseHeaderSize + w*h*f.BytesPerPixel()
}

// Image is a dense, row-major pixel buffer backed by a caller-owned
// byte slice. It is header-prefixed: a fixed descriptor followed by
// a tightly packed color plane and a tightly packed depth plane, in
// that order (spec §3).
type Image struct {
	buf []byte
}

// AssignBuffer interprets buf as an Image of the given dimensions and
// formats, writing the header (spec §4.1 assign_buffer). The caller
// retains ownership of buf, which must be at least BufferSize(w, h,
// f) bytes; pixel contents are left as-is and must be initialized by
// the caller (e.g., via Clear) before being read.
func AssignBuffer(buf []byte, w, h int, f Format) (*Image, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, icerr.New(icerr.InvalidValue, "image.AssignBuffer", "width and height must be positive")
	}
	need := BufferSize(w, h, f)
	if len(buf) < need {
		return nil, icerr.New(icerr.SanityCheckFail, "image.AssignBuffer", "buffer smaller than BufferSize(w, h, f)")
	}
	putHeader(buf, header{magic: denseMagic, color: f.Color, depth: f.Depth, width: uint32(w), height: uint32(h), size: uint32(need)})
	return &Image{buf: buf[:need]}, nil
}

func (im *Image) header() header { return getHeader(im.buf) }

// Format returns the image's color and depth formats.
func (im *Image) Format() Format { return im.header().format() }

// Width returns the image's width in pixels.
func (im *Image) Width() int { return int(im.header().width) }

// Height returns the image's height in pixels.
func (im *Image) Height() int { return int(im.header().height) }

// NumPixels returns Width*Height.
func (im *Image) NumPixels() int { return im.Width() * im.Height() }

func (im *Image) colorPlane() []byte {
	h := im.header()
	n := int(h.width) * int(h.height) * h.color.bytesPerPixel()
	return im.buf[denseHeaderSize : denseHeaderSize+n]
}

func (im *Image) depthPlane() []byte {
	h := im.header()
	cn := int(h.width) * int(h.height) * h.color.bytesPerPixel()
	dn := int(h.width) * int(h.height) * h.depth.bytesPerPixel()
	return im.buf[denseHeaderSize+cn : denseHeaderSize+cn+dn]
}

// ColorPlane8 is a typed view of an RGBA8 color plane.
type ColorPlane8 []byte

// At returns the RGBA bytes of pixel i.
func (p ColorPlane8) At(i int) [4]uint8 {
	return [4]uint8{p[i*4], p[i*4+1], p[i*4+2], p[i*4+3]}
}

// Set writes the RGBA bytes of pixel i.
func (p ColorPlane8) Set(i int, c [4]uint8) { copy(p[i*4:i*4+4], c[:]) }

// ColorPlane32F is a typed view of an RGBA32F color plane.
type ColorPlane32F []byte

// At returns the RGBA floats of pixel i.
func (p ColorPlane32F) At(i int) (c [4]float32) {
	for k := range c {
		c[k] = getFloat32(p[i*16+k*4:])
	}
	return
}

// Set writes the RGBA floats of pixel i.
func (p ColorPlane32F) Set(i int, c [4]float32) {
	for k, v := range c {
		putFloat32(p[i*16+k*4:], v)
	}
}

// DepthPlane is a typed view of an F32 depth plane. Values are
// accessed as raw IEEE-754 bit patterns so that FarDepth (an
// intentional NaN payload) can be stored and compared without
// tripping float NaN semantics; use NormalizedDepth to interpret a
// value in [0,1] space.
type DepthPlane []byte

// At returns the bit pattern of pixel i's depth sample.
func (p DepthPlane) At(i int) uint32 { return getUint32(p[i*4:]) }

// Set writes the bit pattern of pixel i's depth sample.
func (p DepthPlane) Set(i int, bits uint32) { putUint32(p[i*4:], bits) }

// ColorRGBA8 returns the color plane, which must be in ColorRGBA8
// format.
func (im *Image) ColorRGBA8() (ColorPlane8, error) {
	if im.header().color != ColorRGBA8 {
		return nil, icerr.New(icerr.BadCast, "image.Image.ColorRGBA8", "color format is not rgba8")
	}
	return ColorPlane8(im.colorPlane()), nil
}

// ColorRGBA32F returns the color plane, which must be in
// ColorRGBA32F format.
func (im *Image) ColorRGBA32F() (ColorPlane32F, error) {
	if im.header().color != ColorRGBA32F {
		return nil, icerr.New(icerr.BadCast, "image.Image.ColorRGBA32F", "color format is not rgba32f")
	}
	return ColorPlane32F(im.colorPlane()), nil
}

// Depth returns the depth plane, which must be in DepthF32 format.
func (im *Image) Depth() (DepthPlane, error) {
	if im.header().depth != DepthF32 {
		return nil, icerr.New(icerr.BadCast, "image.Image.Depth", "depth format is not f32")
	}
	return DepthPlane(im.depthPlane()), nil
}

// Clear fills the color plane with bg's packed representation and
// the depth plane with FarDepth (spec §4.1 clear_image).
func (im *Image) Clear(bg Background) {
	h := im.header()
	n := im.NumPixels()
	switch h.color {
	case ColorRGBA8:
		cp := ColorPlane8(im.colorPlane())
		for i := 0; i < n; i++ {
			copy(cp[i*4:i*4+4], bg.Packed)
		}
	case ColorRGBA32F:
		cp := ColorPlane32F(im.colorPlane())
		for i := 0; i < n; i++ {
			copy(cp[i*16:i*16+16], bg.Packed)
		}
	}
	if h.depth == DepthF32 {
		dp := DepthPlane(im.depthPlane())
		for i := 0; i < n; i++ {
			dp.Set(i, FarDepth)
		}
	}
}

// isActive reports whether pixel i carries a non-background
// fragment, per spec §4.1's encoding algorithm: depth presence takes
// priority over color when both channels are present.
func isActive(im *Image, i int, bg Background) bool {
	h := im.header()
	if h.depth == DepthF32 {
		dp := DepthPlane(im.depthPlane())
		return dp.At(i) != FarDepth
	}
	switch h.color {
	case ColorRGBA8:
		cp := ColorPlane8(im.colorPlane())
		if !bytesEqual(cp[i*4:i*4+4], bg.Packed) {
			return true
		}
		return bg.Correct && cp.At(i)[3] == 255
	case ColorRGBA32F:
		cp := ColorPlane32F(im.colorPlane())
		if !bytesEqual(cp[i*16:i*16+16], bg.Packed) {
			return true
		}
		return bg.Correct && cp.At(i)[3] >= 1
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// packPixel writes pixel i's color (if any) then depth (if any)
// bytes, interleaved, to dst. It returns the number of bytes written.
func packPixel(im *Image, i int, dst []byte) int {
	h := im.header()
	n := 0
	if h.color != ColorNone {
		bpp := h.color.bytesPerPixel()
		copy(dst[n:n+bpp], im.colorPlane()[i*bpp:i*bpp+bpp])
		n += bpp
	}
	if h.depth != DepthNone {
		bpp := h.depth.bytesPerPixel()
		copy(dst[n:n+bpp], im.depthPlane()[i*bpp:i*bpp+bpp])
		n += bpp
	}
	return n
}

// unpackPixel is the inverse of packPixel: it writes src's color (if
// any) then depth (if any) bytes into pixel i of im.
func unpackPixel(im *Image, i int, src []byte) {
	h := im.header()
	n := 0
	if h.color != ColorNone {
		bpp := h.color.bytesPerPixel()
		copy(im.colorPlane()[i*bpp:i*bpp+bpp], src[n:n+bpp])
		n += bpp
	}
	if h.depth != DepthNone {
		bpp := h.depth.bytesPerPixel()
		copy(im.depthPlane()[i*bpp:i*bpp+bpp], src[n:n+bpp])
		n += bpp
	}
}
